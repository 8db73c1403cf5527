// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package engine constructs Voronoi and power-diagram cells in a rectangular
// domain by cutting an initial box with the half-spaces of neighbouring sites.
package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r3"
)

const (
	DefaultEps = 1e-11
)

// Wall ids reported as face neighbours for faces on the domain boundary.
const (
	WallXMin = -(iota + 1)
	WallXMax
	WallYMin
	WallYMax
	WallZMin
	WallZMax
)

var (
	ErrInvalidBox    = errors.New("engine: invalid bounding box")
	ErrInvalidGrid   = errors.New("engine: invalid grid")
	ErrInvalidEps    = errors.New("engine: eps must be positive")
	ErrCoincident    = errors.New("engine: site coincides with another site")
	ErrEmpty         = errors.New("engine: cell clipped away")
	ErrDegenerate    = errors.New("engine: degenerate cell")
	ErrLoopExhausted = errors.New("engine: loop is not positioned on a site")
)

// IsWall reports whether a face neighbour id denotes the domain boundary.
func IsWall(id int) bool {
	return id < 0
}

type Config struct {
	Min, Max   r3.Vector
	Nx, Ny, Nz int
	Periodic   [3]bool
	Weighted   bool
	// Eps is the cutting tolerance relative to the domain diagonal.
	// Zero means DefaultEps.
	Eps float64
}

// Site is a stored particle. Radius is always zero in unweighted containers.
type Site struct {
	ID       int
	Position r3.Vector
	Radius   float64
}

// Container holds sites bucketed into an Nx*Ny*Nz block grid.
type Container struct {
	min, max r3.Vector
	grid     [3]int
	periodic [3]bool
	weighted bool
	tol      float64

	sites     []Site
	blocks    [][]int
	maxRadius float64
}

func NewContainer(cfg Config) (*Container, error) {
	for a := range 3 {
		lo, hi := axis(cfg.Min, a), axis(cfg.Max, a)
		if !isFinite(lo) || !isFinite(hi) || !(lo < hi) {
			return nil, fmt.Errorf("%w: axis %d bounds [%v %v]", ErrInvalidBox, a, lo, hi)
		}
	}
	grid := [3]int{cfg.Nx, cfg.Ny, cfg.Nz}
	for a, n := range grid {
		if n < 1 {
			return nil, fmt.Errorf("%w: axis %d has %d blocks", ErrInvalidGrid, a, n)
		}
	}
	eps := cfg.Eps
	if eps == 0 {
		eps = DefaultEps
	}
	if !(eps > 0) || math.IsInf(eps, 1) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEps, eps)
	}

	return &Container{
		min:      cfg.Min,
		max:      cfg.Max,
		grid:     grid,
		periodic: cfg.Periodic,
		weighted: cfg.Weighted,
		tol:      eps * cfg.Max.Sub(cfg.Min).Norm(),
		blocks:   make([][]int, grid[0]*grid[1]*grid[2]),
	}, nil
}

// Put stores an unweighted site.
func (c *Container) Put(id int, p r3.Vector) {
	c.put(Site{ID: id, Position: p})
}

// PutWeighted stores a site with radius r. The radius is dropped when the
// container is unweighted.
func (c *Container) PutWeighted(id int, p r3.Vector, r float64) {
	if !c.weighted {
		r = 0
	}
	c.put(Site{ID: id, Position: p, Radius: r})
}

func (c *Container) put(s Site) {
	s.Position = c.remap(s.Position)
	idx := len(c.sites)
	c.sites = append(c.sites, s)
	b := c.blockOf(s.Position)
	c.blocks[b] = append(c.blocks[b], idx)
	if s.Radius > c.maxRadius {
		c.maxRadius = s.Radius
	}
}

// Len returns the number of stored sites.
func (c *Container) Len() int {
	return len(c.sites)
}

// Site returns the site stored at insertion position i.
func (c *Container) Site(i int) (Site, error) {
	if i < 0 || i >= len(c.sites) {
		return Site{}, fmt.Errorf("Site: index %d out of range [0 %d)", i, len(c.sites))
	}
	return c.sites[i], nil
}

func (c *Container) Weighted() bool {
	return c.weighted
}

// Tolerance returns the absolute cutting tolerance.
func (c *Container) Tolerance() float64 {
	return c.tol
}

// remap wraps periodic coordinates into the primary domain.
func (c *Container) remap(p r3.Vector) r3.Vector {
	for a := range 3 {
		if !c.periodic[a] {
			continue
		}
		lo, hi := axis(c.min, a), axis(c.max, a)
		l := hi - lo
		m := math.Mod(axis(p, a)-lo, l)
		if m < 0 {
			m += l
		}
		if m >= l {
			m = 0
		}
		setAxis(&p, a, lo+m)
	}
	return p
}

// blockOf returns the block holding p, clamping positions outside the box
// into the nearest boundary block.
func (c *Container) blockOf(p r3.Vector) int {
	ijk := c.blockCoords(p)
	return ijk[0] + c.grid[0]*(ijk[1]+c.grid[1]*ijk[2])
}

func (c *Container) blockCoords(p r3.Vector) [3]int {
	var ijk [3]int
	for a := range 3 {
		lo, hi := axis(c.min, a), axis(c.max, a)
		n := c.grid[a]
		i := int(math.Floor((axis(p, a) - lo) / (hi - lo) * float64(n)))
		ijk[a] = min(max(i, 0), n-1)
	}
	return ijk
}

func axis(v r3.Vector, a int) float64 {
	switch a {
	case 0:
		return v.X
	case 1:
		return v.Y
	}
	return v.Z
}

func setAxis(v *r3.Vector, a int, x float64) {
	switch a {
	case 0:
		v.X = x
	case 1:
		v.Y = x
	default:
		v.Z = x
	}
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
