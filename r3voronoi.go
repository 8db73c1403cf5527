// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package r3voronoi computes 3-D Voronoi and power-diagram tessellations of
// sites in a rectangular domain and exposes every cell through generational
// handles owned by a Manager.
package r3voronoi

import (
	"errors"
	"fmt"
	"math"

	"github.com/2dChan/r3voronoi/engine"
	"github.com/2dChan/r3voronoi/handle"
	"go.uber.org/zap"
)

const (
	defaultEps = engine.DefaultEps
)

var (
	ErrInvalidDomain       = errors.New("r3voronoi: invalid domain")
	ErrInvalidSite         = errors.New("r3voronoi: invalid site")
	ErrStoreSealed         = errors.New("r3voronoi: store is sealed")
	ErrConstructionFailure = errors.New("r3voronoi: cell construction failed")
	ErrMissingSites        = errors.New("r3voronoi: missing sites")
	ErrUseAfterDispose     = errors.New("r3voronoi: handle used after dispose")
	ErrNilHandle           = errors.New("r3voronoi: nil handle")
	ErrNotPositioned       = errors.New("r3voronoi: iterator is not positioned on a site")
	ErrEmptyCell           = errors.New("r3voronoi: cell slot holds no cell")
	ErrStoreMismatch       = errors.New("r3voronoi: iterator is bound to another store")
)

// Options configures a Manager.
type Options struct {
	// Eps is the cutting tolerance relative to the domain diagonal.
	Eps    float64
	Logger *zap.Logger
}

// Option sets a Manager option. It returns an error for invalid values.
type Option func(*Options) error

func WithEps(eps float64) Option {
	return func(o *Options) error {
		if !(eps > 0) || math.IsInf(eps, 1) {
			return fmt.Errorf("WithEps: eps must be positive, got %v", eps)
		}
		o.Eps = eps
		return nil
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Options) error {
		if l == nil {
			return errors.New("WithLogger: logger is nil")
		}
		o.Logger = l
		return nil
	}
}

// StoreHandle refers to a Site Store owned by a Manager.
type StoreHandle struct{ h handle.Handle }

// IteratorHandle refers to a Cell Iterator owned by a Manager.
type IteratorHandle struct{ h handle.Handle }

// CellHandle refers to a cell slot owned by a Manager.
type CellHandle struct{ h handle.Handle }

func (h StoreHandle) IsNil() bool    { return h.h.IsNil() }
func (h IteratorHandle) IsNil() bool { return h.h.IsNil() }
func (h CellHandle) IsNil() bool     { return h.h.IsNil() }

func (h StoreHandle) String() string    { return "store " + h.h.String() }
func (h IteratorHandle) String() string { return "iterator " + h.h.String() }
func (h CellHandle) String() string     { return "cell " + h.h.String() }

// Manager owns every store, iterator and cell it creates. Handles stay valid
// until disposed; a disposed handle fails with ErrUseAfterDispose.
//
// A Manager is not safe for concurrent use. Independent tessellations may run
// in parallel on distinct Managers.
type Manager struct {
	opts Options
	log  *zap.Logger

	stores    handle.Arena[*store]
	iterators handle.Arena[*iterator]
	cells     handle.Arena[*cellSlot]
}

func NewManager(setters ...Option) (*Manager, error) {
	opts := Options{
		Eps:    defaultEps,
		Logger: zap.NewNop(),
	}
	for _, set := range setters {
		if err := set(&opts); err != nil {
			return nil, err
		}
	}
	return &Manager{
		opts: opts,
		log:  opts.Logger,
	}, nil
}

// Live returns the number of live stores, iterators and cells.
func (m *Manager) Live() (stores, iterators, cells int) {
	return m.stores.Len(), m.iterators.Len(), m.cells.Len()
}

// LiveHandles lists every handle that has not been disposed, in slot order.
// Together with Live it serves leak reports.
func (m *Manager) LiveHandles() (stores []StoreHandle, iterators []IteratorHandle, cells []CellHandle) {
	m.stores.Each(func(h handle.Handle, _ *store) bool {
		stores = append(stores, StoreHandle{h})
		return true
	})
	m.iterators.Each(func(h handle.Handle, _ *iterator) bool {
		iterators = append(iterators, IteratorHandle{h})
		return true
	})
	m.cells.Each(func(h handle.Handle, _ *cellSlot) bool {
		cells = append(cells, CellHandle{h})
		return true
	})
	return stores, iterators, cells
}

func (m *Manager) store(sh StoreHandle) (*store, error) {
	s, err := m.stores.Get(sh.h)
	return s, handleErr(sh, err)
}

func (m *Manager) iterator(ih IteratorHandle) (*iterator, error) {
	it, err := m.iterators.Get(ih.h)
	return it, handleErr(ih, err)
}

func (m *Manager) slot(ch CellHandle) (*cellSlot, error) {
	c, err := m.cells.Get(ch.h)
	return c, handleErr(ch, err)
}

func handleErr(h fmt.Stringer, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, handle.ErrNil):
		return fmt.Errorf("%w: %v", ErrNilHandle, h)
	default:
		return fmt.Errorf("%w: %v", ErrUseAfterDispose, h)
	}
}
