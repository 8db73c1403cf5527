// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package r3voronoi

import (
	"fmt"
	"math"
	"slices"

	"github.com/2dChan/r3voronoi/engine"
	"github.com/golang/geo/r3"
	"go.uber.org/zap"
)

// Box is an axis-aligned domain.
type Box struct {
	Min, Max r3.Vector
}

func (b Box) Volume() float64 {
	d := b.Max.Sub(b.Min)
	return d.X * d.Y * d.Z
}

// Grid is the number of spatial blocks along each axis.
type Grid struct {
	Nx, Ny, Nz int
}

// Site is an input point. Weight is the sphere radius used in weighted
// stores and is ignored otherwise. IDs must be non-negative: negative
// neighbour ids are reserved for walls.
type Site struct {
	ID       int
	Position r3.Vector
	Weight   float64
}

type store struct {
	c         *engine.Container
	iterators []IteratorHandle
	// NOTE: Set once an iterator is bound or a tessellation starts.
	sealed bool
}

// GridForDispersion returns block counts for a domain given the largest
// distance between two sites that may share a face.
func GridForDispersion(domain Box, dispersion float64) (Grid, error) {
	if !(dispersion > 0) || math.IsInf(dispersion, 1) {
		return Grid{}, fmt.Errorf("%w: dispersion %v", ErrInvalidDomain, dispersion)
	}
	d := domain.Max.Sub(domain.Min)
	blocks := func(l float64) int {
		return max(1, int(math.Ceil(l/dispersion)))
	}
	return Grid{Nx: blocks(d.X), Ny: blocks(d.Y), Nz: blocks(d.Z)}, nil
}

// CreateStore allocates a Site Store. Weighted stores compute power
// diagrams from the site weights.
func (m *Manager) CreateStore(domain Box, grid Grid, periodic [3]bool, weighted bool) (StoreHandle, error) {
	c, err := engine.NewContainer(engine.Config{
		Min:      domain.Min,
		Max:      domain.Max,
		Nx:       grid.Nx,
		Ny:       grid.Ny,
		Nz:       grid.Nz,
		Periodic: periodic,
		Weighted: weighted,
		Eps:      m.opts.Eps,
	})
	if err != nil {
		return StoreHandle{}, fmt.Errorf("%w: %w", ErrInvalidDomain, err)
	}
	sh := StoreHandle{m.stores.Insert(&store{c: c})}
	m.log.Debug("store created",
		zap.Stringer("store", sh),
		zap.Stringer("min", domain.Min),
		zap.Stringer("max", domain.Max),
		zap.Ints("grid", []int{grid.Nx, grid.Ny, grid.Nz}),
		zap.Bool("weighted", weighted),
		zap.Float64("tolerance", c.Tolerance()))
	return sh, nil
}

// Insert appends one site to the store.
func (m *Manager) Insert(sh StoreHandle, site Site) error {
	return m.InsertMany(sh, []Site{site})
}

// InsertMany appends sites in order. Either every site is inserted or, if
// one is invalid, none is.
func (m *Manager) InsertMany(sh StoreHandle, sites []Site) error {
	s, err := m.store(sh)
	if err != nil {
		return err
	}
	if s.sealed {
		return fmt.Errorf("%w: %v", ErrStoreSealed, sh)
	}
	weighted := s.c.Weighted()
	if i := slices.IndexFunc(sites, func(st Site) bool { return !validSite(st, weighted) }); i >= 0 {
		return fmt.Errorf("%w: %+v", ErrInvalidSite, sites[i])
	}
	for _, st := range sites {
		if weighted {
			s.c.PutWeighted(st.ID, st.Position, st.Weight)
		} else {
			s.c.Put(st.ID, st.Position)
		}
	}
	return nil
}

func validSite(s Site, weighted bool) bool {
	if s.ID < 0 {
		return false
	}
	for _, x := range []float64{s.Position.X, s.Position.Y, s.Position.Z} {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return !weighted || (s.Weight >= 0 && !math.IsInf(s.Weight, 1))
}

// NumSites returns the number of sites in the store.
func (m *Manager) NumSites(sh StoreHandle) (int, error) {
	s, err := m.store(sh)
	if err != nil {
		return 0, err
	}
	return s.c.Len(), nil
}

// Site returns the site at insertion position i as stored: positions on
// periodic axes are wrapped into the domain.
func (m *Manager) Site(sh StoreHandle, i int) (Site, error) {
	s, err := m.store(sh)
	if err != nil {
		return Site{}, err
	}
	st, err := s.c.Site(i)
	if err != nil {
		return Site{}, err
	}
	return Site{ID: st.ID, Position: st.Position, Weight: st.Radius}, nil
}
