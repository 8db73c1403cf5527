// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package handle provides a generational arena that hands out small value
// handles instead of pointers. A handle whose slot has been released fails
// validation instead of reaching a reused value.
package handle

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrNil   = errors.New("handle: nil handle")
	ErrStale = errors.New("handle: stale handle")
)

// Handle identifies a value in an Arena. The zero Handle is nil.
type Handle struct {
	Index      uint32
	Generation uint32
}

// IsNil reports whether h is the zero Handle.
func (h Handle) IsNil() bool {
	return h.Generation == 0
}

func (h Handle) String() string {
	if h.IsNil() {
		return "nil"
	}
	return fmt.Sprintf("%d#%d", h.Index, h.Generation)
}

type slot[T any] struct {
	gen  uint32
	live bool
	val  T
}

// Arena stores values of type T in reusable slots. Generations start at 1
// and are bumped on every Remove, so a handle is only valid for the
// lifetime of the value it was issued for.
// The zero Arena is ready to use. An Arena is not safe for concurrent use.
type Arena[T any] struct {
	slots []slot[T]
	free  []uint32
	live  int
}

// Insert stores v and returns its handle.
func (a *Arena[T]) Insert(v T) Handle {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		idx = uint32(len(a.slots))
		a.slots = append(a.slots, slot[T]{})
	}
	s := &a.slots[idx]
	if s.gen == 0 {
		s.gen = 1
	}
	s.live = true
	s.val = v
	a.live++
	return Handle{Index: idx, Generation: s.gen}
}

func (a *Arena[T]) lookup(h Handle) (*slot[T], error) {
	if h.IsNil() {
		return nil, ErrNil
	}
	if int(h.Index) >= len(a.slots) {
		return nil, fmt.Errorf("%w: %v", ErrStale, h)
	}
	s := &a.slots[h.Index]
	if !s.live || s.gen != h.Generation {
		return nil, fmt.Errorf("%w: %v", ErrStale, h)
	}
	return s, nil
}

// Get returns the value stored under h.
func (a *Arena[T]) Get(h Handle) (T, error) {
	s, err := a.lookup(h)
	if err != nil {
		var zero T
		return zero, err
	}
	return s.val, nil
}

// Remove releases the slot of h and returns the value it held.
func (a *Arena[T]) Remove(h Handle) (T, error) {
	var zero T
	s, err := a.lookup(h)
	if err != nil {
		return zero, err
	}
	v := s.val
	s.val = zero
	s.live = false
	a.live--
	// A slot whose generation would wrap is retired for good.
	if s.gen == math.MaxUint32 {
		return v, nil
	}
	s.gen++
	a.free = append(a.free, h.Index)
	return v, nil
}

// Len returns the number of live values.
func (a *Arena[T]) Len() int {
	return a.live
}

// Each calls fn for every live value in slot order until fn returns false.
func (a *Arena[T]) Each(fn func(Handle, T) bool) {
	for i := range a.slots {
		s := &a.slots[i]
		if !s.live {
			continue
		}
		if !fn(Handle{Index: uint32(i), Generation: s.gen}, s.val) {
			return
		}
	}
}
