// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package r3voronoi

import (
	"fmt"

	"github.com/2dChan/r3voronoi/engine"
	"github.com/golang/geo/r3"
)

// Neighbour ids of faces lying on the domain walls. Every negative neighbour
// id is a wall; site ids are never negative.
const (
	WallXMin = engine.WallXMin
	WallXMax = engine.WallXMax
	WallYMin = engine.WallYMin
	WallYMax = engine.WallYMax
	WallZMin = engine.WallZMin
	WallZMax = engine.WallZMax
)

// Face is one face of a cell: a vertex loop, counter-clockwise when looking
// at the face from outside the cell, and the id of the site across it.
type Face struct {
	Vertices []int
	Neighbor int
}

// IsBoundary reports whether the face lies on a domain wall.
func (f Face) IsBoundary() bool {
	return engine.IsWall(f.Neighbor)
}

func (m *Manager) cell(ch CellHandle) (*cellSlot, error) {
	cs, err := m.slot(ch)
	if err != nil {
		return nil, err
	}
	if cs.cell == nil {
		return nil, fmt.Errorf("%w: %v", ErrEmptyCell, ch)
	}
	return cs, nil
}

// CellSite returns the site the cell was built for.
func (m *Manager) CellSite(ch CellHandle) (Visit, error) {
	cs, err := m.cell(ch)
	if err != nil {
		return Visit{}, err
	}
	return cs.visit, nil
}

func (m *Manager) Volume(ch CellHandle) (float64, error) {
	cs, err := m.cell(ch)
	if err != nil {
		return 0, err
	}
	return cs.cell.Volume(), nil
}

func (m *Manager) SurfaceArea(ch CellHandle) (float64, error) {
	cs, err := m.cell(ch)
	if err != nil {
		return 0, err
	}
	return cs.cell.SurfaceArea(), nil
}

// MaxRadiusSq returns the largest squared distance from the site to a
// vertex of the cell.
func (m *Manager) MaxRadiusSq(ch CellHandle) (float64, error) {
	cs, err := m.cell(ch)
	if err != nil {
		return 0, err
	}
	return cs.cell.MaxRadiusSq(), nil
}

// VertexPositions returns the vertices of the cell in absolute coordinates,
// translated by site.
func (m *Manager) VertexPositions(ch CellHandle, site r3.Vector) ([]r3.Vector, error) {
	cs, err := m.cell(ch)
	if err != nil {
		return nil, err
	}
	return vertexPositions(cs.cell, site)
}

// VertexAdjacency returns, for every vertex, the vertices sharing an edge
// with it in the engine's edge order.
func (m *Manager) VertexAdjacency(ch CellHandle) ([][]int, error) {
	cs, err := m.cell(ch)
	if err != nil {
		return nil, err
	}
	return vertexAdjacency(cs.cell)
}

// Faces returns the faces of the cell.
func (m *Manager) Faces(ch CellHandle) ([]Face, error) {
	cs, err := m.cell(ch)
	if err != nil {
		return nil, err
	}
	return faces(cs.cell)
}

// Normals returns the outward unit normal of every face, aligned with Faces.
func (m *Manager) Normals(ch CellHandle) ([]r3.Vector, error) {
	cs, err := m.cell(ch)
	if err != nil {
		return nil, err
	}
	return triples(cs.cell.Normals())
}

// FaceAreas returns the area of every face, aligned with Faces.
func (m *Manager) FaceAreas(ch CellHandle) ([]float64, error) {
	cs, err := m.cell(ch)
	if err != nil {
		return nil, err
	}
	return cs.cell.FaceAreas(), nil
}

func vertexPositions(c *engine.Cell, site r3.Vector) ([]r3.Vector, error) {
	local, err := triples(c.LocalVertices())
	if err != nil {
		return nil, err
	}
	for i, v := range local {
		local[i] = site.Add(v)
	}
	return local, nil
}

func vertexAdjacency(c *engine.Cell) ([][]int, error) {
	adj, err := splitLengthPrefixed(c.VertexAdjacency())
	if err != nil {
		return nil, err
	}
	if len(adj) != c.NumVertices() {
		return nil, fmt.Errorf("r3voronoi: adjacency lists %d vertices, cell has %d", len(adj), c.NumVertices())
	}
	return adj, nil
}

func faces(c *engine.Cell) ([]Face, error) {
	loops, err := splitLengthPrefixed(c.FaceVertices())
	if err != nil {
		return nil, err
	}
	neighbors := c.Neighbors()
	if len(loops) != len(neighbors) {
		return nil, fmt.Errorf("r3voronoi: %d face loops but %d neighbours", len(loops), len(neighbors))
	}
	out := make([]Face, len(loops))
	for i, loop := range loops {
		out[i] = Face{Vertices: loop, Neighbor: neighbors[i]}
	}
	return out, nil
}

// splitLengthPrefixed decodes [n0, x..., n1, x..., ...] into one slice per
// group. It is the only place engine sequences with embedded lengths are
// walked.
func splitLengthPrefixed(flat []int) ([][]int, error) {
	var out [][]int
	for cur := 0; cur < len(flat); {
		n := flat[cur]
		end := cur + 1 + n
		if n < 0 || end > len(flat) {
			return nil, fmt.Errorf("r3voronoi: group length %d at offset %d overruns %d elements", n, cur, len(flat))
		}
		out = append(out, flat[cur+1:end:end])
		cur = end
	}
	return out, nil
}

func triples(flat []float64) ([]r3.Vector, error) {
	if len(flat)%3 != 0 {
		return nil, fmt.Errorf("r3voronoi: %d coordinates do not form triples", len(flat))
	}
	out := make([]r3.Vector, len(flat)/3)
	for i := range out {
		out[i] = r3.Vector{X: flat[3*i], Y: flat[3*i+1], Z: flat[3*i+2]}
	}
	return out, nil
}
