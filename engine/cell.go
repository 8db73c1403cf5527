// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package engine

import (
	"fmt"
	"slices"

	"github.com/golang/geo/r3"
)

// Cell is a constructed convex polyhedron. Vertices are stored relative to
// the site position. A Cell is immutable; every accessor returns a copy.
type Cell struct {
	verts     []r3.Vector
	faces     []face
	adjacency [][]int
	normals   []r3.Vector
	areas     []float64
	volume    float64
	surface   float64
	maxR2     float64
}

func newCell(p *polyhedron) (*Cell, error) {
	if len(p.faces) < 4 {
		return nil, fmt.Errorf("cell has %d faces", len(p.faces))
	}
	adj, err := vertexAdjacency(len(p.verts), p.faces)
	if err != nil {
		return nil, err
	}
	c := &Cell{
		verts:     p.verts,
		faces:     p.faces,
		adjacency: adj,
		normals:   make([]r3.Vector, len(p.faces)),
		areas:     make([]float64, len(p.faces)),
		maxR2:     p.maxRadiusSq(),
	}
	vol := 0.0
	for i, f := range p.faces {
		v0 := p.verts[f.loop[0]]
		var newell r3.Vector
		for k := 1; k+1 < len(f.loop); k++ {
			a, b := p.verts[f.loop[k]], p.verts[f.loop[k+1]]
			vol += v0.Dot(a.Cross(b))
			newell = newell.Add(a.Sub(v0).Cross(b.Sub(v0)))
		}
		if n := newell.Norm(); n > 0 {
			c.normals[i] = newell.Mul(1 / n)
			c.areas[i] = n / 2
		}
		c.surface += c.areas[i]
	}
	c.volume = vol / 6
	if !(c.volume > 0) {
		return nil, fmt.Errorf("cell volume %v", c.volume)
	}
	return c, nil
}

// vertexAdjacency orders the neighbours of each vertex by walking the faces
// around it.
func vertexAdjacency(numVerts int, faces []face) ([][]int, error) {
	type corner struct{ out, in int }
	corners := make([][]corner, numVerts)
	for _, f := range faces {
		m := len(f.loop)
		for k, v := range f.loop {
			corners[v] = append(corners[v], corner{out: f.loop[(k+1)%m], in: f.loop[(k+m-1)%m]})
		}
	}

	adj := make([][]int, numVerts)
	for v, cs := range corners {
		if len(cs) < 3 {
			return nil, fmt.Errorf("vertex %d lies on %d faces", v, len(cs))
		}
		ring := make([]int, 0, len(cs))
		cur := cs[0].out
		for range cs {
			ring = append(ring, cur)
			next := -1
			for _, c := range cs {
				if c.out == cur {
					next = c.in
					break
				}
			}
			if next < 0 {
				return nil, fmt.Errorf("vertex %d: open edge ring", v)
			}
			cur = next
		}
		if cur != cs[0].out {
			return nil, fmt.Errorf("vertex %d: edge ring does not close", v)
		}
		adj[v] = ring
	}
	return adj, nil
}

func (c *Cell) NumVertices() int {
	return len(c.verts)
}

func (c *Cell) NumFaces() int {
	return len(c.faces)
}

func (c *Cell) Volume() float64 {
	return c.volume
}

func (c *Cell) SurfaceArea() float64 {
	return c.surface
}

// MaxRadiusSq returns the largest squared distance of a vertex from the site.
func (c *Cell) MaxRadiusSq() float64 {
	return c.maxR2
}

// LocalVertices returns vertex coordinates relative to the site as
// flattened triples: coordinate j of vertex i is at 3*i+j.
func (c *Cell) LocalVertices() []float64 {
	out := make([]float64, 0, 3*len(c.verts))
	for _, v := range c.verts {
		out = append(out, v.X, v.Y, v.Z)
	}
	return out
}

// FaceVertices returns the face loops concatenated, each prefixed with its
// length: [n0, v..., n1, v..., ...].
func (c *Cell) FaceVertices() []int {
	size := 0
	for _, f := range c.faces {
		size += 1 + len(f.loop)
	}
	out := make([]int, 0, size)
	for _, f := range c.faces {
		out = append(out, len(f.loop))
		out = append(out, f.loop...)
	}
	return out
}

// Neighbors returns one neighbour id per face, aligned with FaceVertices.
// Negative ids are walls.
func (c *Cell) Neighbors() []int {
	out := make([]int, len(c.faces))
	for i, f := range c.faces {
		out[i] = f.neighbor
	}
	return out
}

// Normals returns outward unit normals as flattened triples, one per face.
// Degenerate faces get a zero vector.
func (c *Cell) Normals() []float64 {
	out := make([]float64, 0, 3*len(c.normals))
	for _, n := range c.normals {
		out = append(out, n.X, n.Y, n.Z)
	}
	return out
}

func (c *Cell) FaceAreas() []float64 {
	return slices.Clone(c.areas)
}

// VertexAdjacency returns, for every vertex, the number of edges followed by
// the adjacent vertices: [d0, u..., d1, u..., ...].
func (c *Cell) VertexAdjacency() []int {
	size := 0
	for _, a := range c.adjacency {
		size += 1 + len(a)
	}
	out := make([]int, 0, size)
	for _, a := range c.adjacency {
		out = append(out, len(a))
		out = append(out, a...)
	}
	return out
}
