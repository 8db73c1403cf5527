// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package engine

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/golang/geo/r3"
)

type candidate struct {
	index  int
	id     int
	q      r3.Vector // offset from the site being computed
	dist2  float64
	radius float64
}

// ComputeCell constructs the cell of the site under l.
func (c *Container) ComputeCell(l *Loop) (*Cell, error) {
	idx, _, ok := l.Pos()
	if !ok {
		return nil, ErrLoopExhausted
	}
	return c.ComputeCellAt(idx)
}

// ComputeCellAt constructs the cell of the site at insertion position i.
//
// The cell starts as the domain box (or a box of twice the period along
// periodic axes) and is cut by the bisector, or the radical plane in
// weighted containers, of every other site and periodic image. Candidates
// are gathered shell by shell around the site's block, and the search stops
// once no plane from a farther shell can reach the farthest vertex.
func (c *Container) ComputeCellAt(i int) (*Cell, error) {
	if i < 0 || i >= len(c.sites) {
		return nil, fmt.Errorf("ComputeCellAt: index %d out of range [0 %d)", i, len(c.sites))
	}
	s := c.sites[i]
	lo, hi := c.initialBounds(s.Position)
	p := newBoxPolyhedron(lo, hi)
	r2 := p.maxRadiusSq()

	// The plane offset is increasing in the candidate distance, so a lower
	// bound on the distance of a block or shell bounds all its planes.
	reachable := func(d2 float64) bool {
		if d2 == 0 {
			return true
		}
		off := (d2 + s.Radius*s.Radius - c.maxRadius*c.maxRadius) / (2 * math.Sqrt(d2))
		return off <= math.Sqrt(r2)+c.tol
	}

	home := c.blockCoords(s.Position)
	width := c.minBlockWidth()
	for shell := 0; ; shell++ {
		if gap := float64(shell-1) * width; shell > 1 && !reachable(gap*gap) {
			break
		}
		cands, ok := c.shellCandidates(i, home, shell, reachable)
		if !ok {
			break
		}
		for _, cand := range cands {
			if cand.dist2 <= c.tol*c.tol {
				return nil, fmt.Errorf("%w: site %d and site %d", ErrCoincident, i, cand.index)
			}
			if !reachable(cand.dist2) {
				break
			}
			d := math.Sqrt(cand.dist2)
			off := (cand.dist2 + s.Radius*s.Radius - cand.radius*cand.radius) / (2 * d)
			switch p.cut(cand.q.Mul(1/d), off, cand.id, c.tol) {
			case cutClipped:
				r2 = p.maxRadiusSq()
			case cutEmpty:
				return nil, fmt.Errorf("%w: site %d", ErrEmpty, i)
			case cutFailed:
				return nil, fmt.Errorf("%w: site %d: inconsistent cut against site %d", ErrDegenerate, i, cand.index)
			}
		}
	}

	cell, err := newCell(p)
	if err != nil {
		return nil, fmt.Errorf("%w: site %d: %v", ErrDegenerate, i, err)
	}
	return cell, nil
}

// initialBounds returns the starting box relative to p. Periodic axes span a
// full period on each side and are trimmed by the site's own images.
func (c *Container) initialBounds(p r3.Vector) (r3.Vector, r3.Vector) {
	lo := c.min.Sub(p)
	hi := c.max.Sub(p)
	for a := range 3 {
		if !c.periodic[a] {
			continue
		}
		l := axis(c.max, a) - axis(c.min, a)
		setAxis(&lo, a, -l)
		setAxis(&hi, a, l)
	}
	return lo, hi
}

// shellCandidates returns, sorted by distance, the sites and periodic images
// stored in the blocks at Chebyshev distance shell from home. Blocks whose
// bounds fail reachable are skipped. It returns false once the shell has no
// block inside the grid.
func (c *Container) shellCandidates(i int, home [3]int, shell int, reachable func(float64) bool) ([]candidate, bool) {
	pi := c.sites[i].Position
	var out []candidate
	found := false
	var o [3]int
	for o[2] = -shell; o[2] <= shell; o[2]++ {
		for o[1] = -shell; o[1] <= shell; o[1]++ {
			step := 1
			if shell > 0 && abs(o[1]) < shell && abs(o[2]) < shell {
				step = 2 * shell
			}
			for o[0] = -shell; o[0] <= shell; o[0] += step {
				var u [3]int
				for a := range 3 {
					u[a] = home[a] + o[a]
				}
				blk, shift, ok := c.wrapBlock(u)
				if !ok {
					continue
				}
				found = true
				if !reachable(c.blockDist2(u, pi)) {
					continue
				}
				self := shift == (r3.Vector{})
				for _, j := range c.blocks[blk] {
					if j == i && self {
						continue
					}
					sj := c.sites[j]
					q := sj.Position.Add(shift).Sub(pi)
					out = append(out, candidate{
						index:  j,
						id:     sj.ID,
						q:      q,
						dist2:  q.Norm2(),
						radius: sj.Radius,
					})
				}
			}
		}
	}
	slices.SortStableFunc(out, func(a, b candidate) int {
		return cmp.Compare(a.dist2, b.dist2)
	})
	return out, found
}

// wrapBlock maps unwrapped block coordinates to a block index and the
// translation of the periodic image they stand for. It reports false for
// coordinates outside the grid on a non-periodic axis.
func (c *Container) wrapBlock(u [3]int) (int, r3.Vector, bool) {
	var shift r3.Vector
	var w [3]int
	for a := range 3 {
		n := c.grid[a]
		if !c.periodic[a] {
			if u[a] < 0 || u[a] >= n {
				return 0, r3.Vector{}, false
			}
			w[a] = u[a]
			continue
		}
		k := floorDiv(u[a], n)
		w[a] = u[a] - k*n
		setAxis(&shift, a, float64(k)*c.length(a))
	}
	return w[0] + c.grid[0]*(w[1]+c.grid[1]*w[2]), shift, true
}

// blockDist2 returns the squared distance from p to the block at unwrapped
// coordinates u. Boundary blocks of non-periodic axes extend to infinity,
// since they also hold the sites clamped into them.
func (c *Container) blockDist2(u [3]int, p r3.Vector) float64 {
	var d2 float64
	for a := range 3 {
		n := c.grid[a]
		w := c.length(a) / float64(n)
		lo := axis(c.min, a) + float64(u[a])*w
		hi := lo + w
		if !c.periodic[a] {
			if u[a] == 0 {
				lo = math.Inf(-1)
			}
			if u[a] == n-1 {
				hi = math.Inf(1)
			}
		}
		x := axis(p, a)
		d := max(lo-x, 0, x-hi)
		d2 += d * d
	}
	return d2
}

func (c *Container) length(a int) float64 {
	return axis(c.max, a) - axis(c.min, a)
}

func (c *Container) minBlockWidth() float64 {
	w := math.Inf(1)
	for a := range 3 {
		w = min(w, c.length(a)/float64(c.grid[a]))
	}
	return w
}

func floorDiv(a, n int) int {
	q := a / n
	if a%n < 0 {
		q--
	}
	return q
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
