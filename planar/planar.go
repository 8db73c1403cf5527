// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package planar computes 2-D Voronoi and power diagrams of points in a
// rectangle. Each 2-D cell is the bottom face of the 3-D cell of the same
// point inside a thin slab, so every behaviour of the 3-D layer carries over.
package planar

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/2dChan/r3voronoi"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.uber.org/zap"
)

const (
	defaultZHeight = 0.5
	// Sites per block when no dispersion is given.
	sitesPerBlock = 5
)

var ErrRadiiMismatch = errors.New("planar: number of radii does not match number of points")

type Options struct {
	Radii      []float64
	Periodic   [2]bool
	ZHeight    float64
	Dispersion float64
	Logger     *zap.Logger
}

type Option func(*Options) error

// WithRadii makes the diagram a power diagram with one radius per point.
func WithRadii(radii []float64) Option {
	return func(o *Options) error {
		o.Radii = radii
		return nil
	}
}

func WithPeriodic(x, y bool) Option {
	return func(o *Options) error {
		o.Periodic = [2]bool{x, y}
		return nil
	}
}

// WithZHeight sets the half thickness of the slab the cells are cut from.
func WithZHeight(h float64) Option {
	return func(o *Options) error {
		if !(h > 0) || math.IsInf(h, 1) {
			return fmt.Errorf("WithZHeight: height must be positive, got %v", h)
		}
		o.ZHeight = h
		return nil
	}
}

// WithDispersion sets the largest distance between two points that can
// share an edge. It only sizes the search grid.
func WithDispersion(d float64) Option {
	return func(o *Options) error {
		if !(d > 0) || math.IsInf(d, 1) {
			return fmt.Errorf("WithDispersion: dispersion must be positive, got %v", d)
		}
		o.Dispersion = d
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

// Edge is one side of a cell, from Vertices[0] to Vertices[1], and the id of
// the point across it. Negative ids are the rectangle sides, numbered as the
// r3voronoi x and y walls.
type Edge struct {
	Vertices [2]int
	Neighbor int
}

// IsBoundary reports whether the edge lies on a side of the rectangle.
func (e Edge) IsBoundary() bool {
	return e.Neighbor < 0
}

// Cell is the cell of one input point. Vertices are counter-clockwise and
// Edges[i] runs from vertex i to vertex i+1.
type Cell struct {
	Index     int
	Site      r2.Point
	Area      float64
	Vertices  []r2.Point
	Adjacency [][2]int
	Edges     []Edge
}

// Compute returns the cell of every point, in input order. Point i gets id i.
func Compute(points []r2.Point, bounds r2.Rect, setters ...Option) ([]Cell, error) {
	opts := &Options{
		ZHeight: defaultZHeight,
		Logger:  zap.NewNop(),
	}
	for _, set := range setters {
		if err := set(opts); err != nil {
			return nil, err
		}
	}
	weighted := opts.Radii != nil
	if weighted && len(opts.Radii) != len(points) {
		return nil, fmt.Errorf("%w: %d radii for %d points", ErrRadiiMismatch, len(opts.Radii), len(points))
	}

	domain := r3voronoi.Box{
		Min: r3.Vector{X: bounds.X.Lo, Y: bounds.Y.Lo, Z: -opts.ZHeight},
		Max: r3.Vector{X: bounds.X.Hi, Y: bounds.Y.Hi, Z: opts.ZHeight},
	}
	sites := make([]r3voronoi.Site, len(points))
	for i, p := range points {
		sites[i] = r3voronoi.Site{ID: i, Position: r3.Vector{X: p.X, Y: p.Y}}
		if weighted {
			sites[i].Weight = opts.Radii[i]
		}
	}
	cfg := r3voronoi.ComputeConfig{
		Dispersion: opts.Dispersion,
		Periodic:   [3]bool{opts.Periodic[0], opts.Periodic[1], false},
		Weighted:   weighted,
	}
	if cfg.Dispersion == 0 {
		k := max(1, int(math.Sqrt(float64(len(points))/sitesPerBlock)))
		cfg.Grid = r3voronoi.Grid{Nx: k, Ny: k, Nz: 1}
	}

	cells3, err := r3voronoi.Compute(domain, sites, cfg, r3voronoi.WithLogger(opts.Logger))
	if err != nil {
		return nil, err
	}
	out := make([]Cell, len(cells3))
	for i, c := range cells3 {
		cell, err := flatten(c, 2*opts.ZHeight)
		if err != nil {
			return nil, fmt.Errorf("planar: point %d: %w", i, err)
		}
		cell.Site = points[i]
		out[i] = cell
	}
	return out, nil
}

type edgeKey struct{ a, b int }

// flatten projects the bottom face of a slab cell onto the xy plane.
func flatten(c r3voronoi.CellData, thickness float64) (Cell, error) {
	bottom := slices.IndexFunc(c.Faces, func(f r3voronoi.Face) bool { return f.Neighbor == r3voronoi.WallZMin })
	if bottom < 0 {
		return Cell{}, errors.New("cell has no face on the slab bottom")
	}

	across := make(map[edgeKey]int)
	for k, f := range c.Faces {
		if k == bottom || f.Neighbor == r3voronoi.WallZMax {
			continue
		}
		for j, a := range f.Vertices {
			b := f.Vertices[(j+1)%len(f.Vertices)]
			across[edgeKey{a, b}] = f.Neighbor
		}
	}

	// The bottom loop is counter-clockwise seen from below.
	loop := slices.Clone(c.Faces[bottom].Vertices)
	slices.Reverse(loop)
	n := len(loop)
	cell := Cell{
		Index:     c.Index,
		Area:      c.Volume / thickness,
		Vertices:  make([]r2.Point, n),
		Adjacency: make([][2]int, n),
		Edges:     make([]Edge, n),
	}
	for i, v := range loop {
		p := c.Vertices[v]
		cell.Vertices[i] = r2.Point{X: p.X, Y: p.Y}
		cell.Adjacency[i] = [2]int{(i + n - 1) % n, (i + 1) % n}

		next := loop[(i+1)%n]
		// Adjacent faces traverse a shared edge in opposite directions, so the
		// side face runs v to next.
		neighbor, ok := across[edgeKey{v, next}]
		if !ok {
			return Cell{}, fmt.Errorf("edge %d-%d has no side face", v, next)
		}
		cell.Edges[i] = Edge{Vertices: [2]int{i, (i + 1) % n}, Neighbor: neighbor}
	}
	return cell, nil
}
