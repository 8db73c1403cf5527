// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package r3voronoi

import (
	"fmt"

	"github.com/2dChan/r3voronoi/engine"
	"github.com/golang/geo/r3"
	"go.uber.org/zap"
)

// Tessellation is the result table of ComputeAll. Every slice is indexed by
// insertion position, which differs from the site id unless the caller used
// contiguous ids in insertion order.
type Tessellation struct {
	Cells     []CellHandle
	SiteIDs   []int
	Positions []r3.Vector
}

// Len returns the number of cells.
func (t *Tessellation) Len() int {
	return len(t.Cells)
}

// MissingSitesError reports the sites ComputeAll could not build a cell for.
// Causes is aligned with Indices.
type MissingSitesError struct {
	Total   int
	Indices []int
	Causes  []error
}

func (e *MissingSitesError) Error() string {
	return fmt.Sprintf("r3voronoi: %d of %d sites have no cell: %v", len(e.Indices), e.Total, e.Indices)
}

func (e *MissingSitesError) Is(target error) bool {
	return target == ErrMissingSites
}

func (e *MissingSitesError) Unwrap() []error {
	return e.Causes
}

// cellSlot holds at most one cell and the site it was built for.
type cellSlot struct {
	cell  *engine.Cell
	visit Visit
}

// builder collects cells for one ComputeAll pass. Cells only receive
// handles in transfer, so dropping a builder releases everything it built.
type builder struct {
	slots  []*cellSlot
	causes map[int]error
	found  int
}

func newBuilder(n int) *builder {
	return &builder{
		slots:  make([]*cellSlot, n),
		causes: make(map[int]error),
	}
}

func (b *builder) add(v Visit, c *engine.Cell) {
	if b.slots[v.Index] == nil {
		b.found++
	}
	b.slots[v.Index] = &cellSlot{cell: c, visit: v}
}

func (b *builder) fail(v Visit, err error) {
	b.causes[v.Index] = fmt.Errorf("%w: site %d (id %d): %w", ErrConstructionFailure, v.Index, v.ID, err)
}

func (b *builder) missing() *MissingSitesError {
	e := &MissingSitesError{Total: len(b.slots)}
	for i, s := range b.slots {
		if s != nil {
			continue
		}
		cause, ok := b.causes[i]
		if !ok {
			cause = fmt.Errorf("%w: site %d was never visited", ErrConstructionFailure, i)
		}
		e.Indices = append(e.Indices, i)
		e.Causes = append(e.Causes, cause)
	}
	return e
}

func (b *builder) transfer(m *Manager) *Tessellation {
	n := len(b.slots)
	t := &Tessellation{
		Cells:     make([]CellHandle, n),
		SiteIDs:   make([]int, n),
		Positions: make([]r3.Vector, n),
	}
	for i, s := range b.slots {
		t.Cells[i] = CellHandle{m.cells.Insert(s)}
		t.SiteIDs[i] = s.visit.ID
		t.Positions[i] = s.visit.Position
	}
	b.slots = nil
	return t
}

// ComputeAll builds the cell of every site in the store. It either returns a
// cell for every site or a *MissingSitesError, never a table with holes. A
// failure for one site does not stop the pass. An empty store yields an
// empty Tessellation.
func (m *Manager) ComputeAll(sh StoreHandle) (*Tessellation, error) {
	s, err := m.store(sh)
	if err != nil {
		return nil, err
	}
	s.sealed = true

	n := s.c.Len()
	b := newBuilder(n)
	it := newIterator(sh, s.c)
	for ok := it.start(); ok; ok = it.advance() {
		v, _ := it.current()
		cell, err := s.c.ComputeCell(it.loop)
		if err != nil {
			m.log.Debug("cell construction failed",
				zap.Int("index", v.Index), zap.Int("id", v.ID), zap.Error(err))
			b.fail(v, err)
			continue
		}
		b.add(v, cell)
	}

	if b.found != n {
		missing := b.missing()
		m.log.Warn("missing cells",
			zap.Stringer("store", sh),
			zap.Int("found", b.found),
			zap.Int("total", n),
			zap.Ints("indices", missing.Indices))
		return nil, missing
	}

	t := b.transfer(m)
	m.log.Info("tessellation computed", zap.Stringer("store", sh), zap.Int("cells", n))
	return t, nil
}

// NewCell allocates an empty cell slot for ComputeStep.
func (m *Manager) NewCell() CellHandle {
	return CellHandle{m.cells.Insert(&cellSlot{})}
}

// ComputeStep builds the cell of the site under the iterator into slot and
// advances the iterator by one. It returns the visited insertion position
// and whether a cell was built; when none was, slot is left empty. Tracking
// which sites lack a cell is up to the caller.
func (m *Manager) ComputeStep(sh StoreHandle, ih IteratorHandle, slot CellHandle) (int, bool, error) {
	s, err := m.store(sh)
	if err != nil {
		return -1, false, err
	}
	it, err := m.iterator(ih)
	if err != nil {
		return -1, false, err
	}
	if it.store != sh {
		return -1, false, fmt.Errorf("%w: %v is bound to %v", ErrStoreMismatch, ih, it.store)
	}
	cs, err := m.slot(slot)
	if err != nil {
		return -1, false, err
	}
	v, err := it.current()
	if err != nil {
		return -1, false, err
	}

	cell, err := s.c.ComputeCell(it.loop)
	it.advance()
	if err != nil {
		m.log.Debug("cell construction failed",
			zap.Int("index", v.Index), zap.Int("id", v.ID), zap.Error(err))
		*cs = cellSlot{}
		return v.Index, false, nil
	}
	*cs = cellSlot{cell: cell, visit: v}
	return v.Index, true, nil
}
