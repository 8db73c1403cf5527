// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package r3voronoi

import (
	"fmt"

	"github.com/2dChan/r3voronoi/engine"
	"github.com/golang/geo/r3"
)

// IteratorState is the position of an iterator in its traversal.
type IteratorState int

const (
	Unstarted IteratorState = iota
	Positioned
	Exhausted
)

func (s IteratorState) String() string {
	switch s {
	case Unstarted:
		return "unstarted"
	case Positioned:
		return "positioned"
	case Exhausted:
		return "exhausted"
	}
	return fmt.Sprintf("IteratorState(%d)", int(s))
}

// Visit describes the site under an iterator. Index is the insertion
// position, ID the caller-assigned id.
type Visit struct {
	Index    int
	ID       int
	Position r3.Vector
	Weight   float64
}

type iterator struct {
	store StoreHandle
	loop  *engine.Loop
	state IteratorState
}

func newIterator(sh StoreHandle, c *engine.Container) *iterator {
	return &iterator{store: sh, loop: c.NewLoop()}
}

func (it *iterator) start() bool {
	if it.loop.Start() {
		it.state = Positioned
		return true
	}
	it.state = Exhausted
	return false
}

func (it *iterator) advance() bool {
	switch it.state {
	case Unstarted:
		return it.start()
	case Exhausted:
		return false
	}
	if it.loop.Inc() {
		return true
	}
	it.state = Exhausted
	return false
}

func (it *iterator) current() (Visit, error) {
	if it.state != Positioned {
		return Visit{}, fmt.Errorf("%w: state %v", ErrNotPositioned, it.state)
	}
	idx, s, _ := it.loop.Pos()
	return Visit{Index: idx, ID: s.ID, Position: s.Position, Weight: s.Radius}, nil
}

// StartIterator binds a new iterator to the store and positions it on the
// first site. The store is sealed from then on.
func (m *Manager) StartIterator(sh StoreHandle) (IteratorHandle, error) {
	s, err := m.store(sh)
	if err != nil {
		return IteratorHandle{}, err
	}
	s.sealed = true
	it := newIterator(sh, s.c)
	it.start()
	ih := IteratorHandle{m.iterators.Insert(it)}
	s.iterators = append(s.iterators, ih)
	return ih, nil
}

// Advance moves the iterator to the next site. It returns false once every
// site was visited.
func (m *Manager) Advance(ih IteratorHandle) (bool, error) {
	it, err := m.iterator(ih)
	if err != nil {
		return false, err
	}
	return it.advance(), nil
}

// Current returns the site under the iterator. It fails unless the
// iterator is Positioned.
func (m *Manager) Current(ih IteratorHandle) (Visit, error) {
	it, err := m.iterator(ih)
	if err != nil {
		return Visit{}, err
	}
	return it.current()
}

func (m *Manager) IteratorState(ih IteratorHandle) (IteratorState, error) {
	it, err := m.iterator(ih)
	if err != nil {
		return Unstarted, err
	}
	return it.state, nil
}
