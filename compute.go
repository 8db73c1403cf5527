// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package r3voronoi

import (
	"errors"

	"github.com/golang/geo/r3"
)

// ComputeConfig describes a one-shot tessellation. Grid is used when
// Dispersion is zero.
type ComputeConfig struct {
	Grid       Grid
	Dispersion float64
	Periodic   [3]bool
	Weighted   bool
}

// CellData is a plain copy of one cell, detached from any Manager.
type CellData struct {
	Index     int
	ID        int
	Original  r3.Vector
	Volume    float64
	Vertices  []r3.Vector
	Adjacency [][]int
	Faces     []Face
}

// Compute tessellates sites in one call and returns one CellData per site in
// input order. Every handle it creates is released before it returns.
func Compute(domain Box, sites []Site, cfg ComputeConfig, setters ...Option) ([]CellData, error) {
	m, err := NewManager(setters...)
	if err != nil {
		return nil, err
	}
	grid := cfg.Grid
	if cfg.Dispersion != 0 {
		if grid, err = GridForDispersion(domain, cfg.Dispersion); err != nil {
			return nil, err
		}
	}

	sh, err := m.CreateStore(domain, grid, cfg.Periodic, cfg.Weighted)
	if err != nil {
		return nil, err
	}
	if err := m.InsertMany(sh, sites); err != nil {
		return nil, errors.Join(err, m.DisposeStore(sh))
	}
	t, err := m.ComputeAll(sh)
	if err != nil {
		return nil, errors.Join(err, m.DisposeStore(sh))
	}

	out := make([]CellData, t.Len())
	for i, ch := range t.Cells {
		d, err := m.cellData(ch, i, t.Positions[i])
		if err != nil {
			return nil, errors.Join(err, m.DisposeAll(sh, t))
		}
		d.Original = sites[i].Position
		out[i] = d
	}
	return out, m.DisposeAll(sh, t)
}

func (m *Manager) cellData(ch CellHandle, i int, pos r3.Vector) (CellData, error) {
	cs, err := m.cell(ch)
	if err != nil {
		return CellData{}, err
	}
	verts, err := vertexPositions(cs.cell, pos)
	if err != nil {
		return CellData{}, err
	}
	adj, err := vertexAdjacency(cs.cell)
	if err != nil {
		return CellData{}, err
	}
	fs, err := faces(cs.cell)
	if err != nil {
		return CellData{}, err
	}
	return CellData{
		Index:     i,
		ID:        cs.visit.ID,
		Volume:    cs.cell.Volume(),
		Vertices:  verts,
		Adjacency: adj,
		Faces:     fs,
	}, nil
}
