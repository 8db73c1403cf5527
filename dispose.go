// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package r3voronoi

import (
	"errors"
	"slices"
)

// DisposeCell releases a cell slot. A nil handle is a no-op.
func (m *Manager) DisposeCell(ch CellHandle) error {
	if ch.IsNil() {
		return nil
	}
	_, err := m.cells.Remove(ch.h)
	return handleErr(ch, err)
}

// DisposeIterator releases an iterator. A nil handle is a no-op.
func (m *Manager) DisposeIterator(ih IteratorHandle) error {
	if ih.IsNil() {
		return nil
	}
	it, err := m.iterators.Remove(ih.h)
	if err != nil {
		return handleErr(ih, err)
	}
	if s, err := m.stores.Get(it.store.h); err == nil {
		s.iterators = slices.DeleteFunc(s.iterators, func(h IteratorHandle) bool { return h == ih })
	}
	return nil
}

// DisposeStore releases a store together with every iterator still bound
// to it. Cells built from the store stay valid. A nil handle is a no-op.
func (m *Manager) DisposeStore(sh StoreHandle) error {
	if sh.IsNil() {
		return nil
	}
	s, err := m.store(sh)
	if err != nil {
		return err
	}
	for _, ih := range s.iterators {
		_, _ = m.iterators.Remove(ih.h)
	}
	s.iterators = nil
	_, err = m.stores.Remove(sh.h)
	return handleErr(sh, err)
}

// DisposeTessellation releases every cell of t once and clears its slots,
// so disposing t again is a no-op.
func (m *Manager) DisposeTessellation(t *Tessellation) error {
	if t == nil {
		return nil
	}
	var errs []error
	for i, ch := range t.Cells {
		if err := m.DisposeCell(ch); err != nil {
			errs = append(errs, err)
		}
		t.Cells[i] = CellHandle{}
	}
	return errors.Join(errs...)
}

// DisposeAll releases a tessellation and the store it was computed from,
// including any iterator bound to the store.
func (m *Manager) DisposeAll(sh StoreHandle, t *Tessellation) error {
	return errors.Join(m.DisposeTessellation(t), m.DisposeStore(sh))
}
