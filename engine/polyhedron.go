// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package engine

import (
	"math"
	"slices"

	"github.com/golang/geo/r3"
)

// NOTE: Face loops are CCW when looking at the face from outside the cell.
type face struct {
	loop     []int
	neighbor int
}

// polyhedron is a convex cell under construction, in site-relative
// coordinates.
type polyhedron struct {
	verts []r3.Vector
	faces []face
}

type cutResult int

const (
	cutUnchanged cutResult = iota
	cutClipped
	cutEmpty
	cutFailed
)

func newBoxPolyhedron(lo, hi r3.Vector) *polyhedron {
	verts := make([]r3.Vector, 8)
	for i := range verts {
		v := lo
		if i&1 != 0 {
			v.X = hi.X
		}
		if i&2 != 0 {
			v.Y = hi.Y
		}
		if i&4 != 0 {
			v.Z = hi.Z
		}
		verts[i] = v
	}
	return &polyhedron{
		verts: verts,
		faces: []face{
			{loop: []int{0, 4, 6, 2}, neighbor: WallXMin},
			{loop: []int{1, 3, 7, 5}, neighbor: WallXMax},
			{loop: []int{0, 1, 5, 4}, neighbor: WallYMin},
			{loop: []int{2, 6, 7, 3}, neighbor: WallYMax},
			{loop: []int{0, 2, 3, 1}, neighbor: WallZMin},
			{loop: []int{4, 5, 7, 6}, neighbor: WallZMax},
		},
	}
}

func (p *polyhedron) maxRadiusSq() float64 {
	r2 := 0.0
	for _, v := range p.verts {
		r2 = max(r2, v.Norm2())
	}
	return r2
}

// cut keeps the part of p where x·n <= off, closing the hole with a new face
// that borders neighbor. n must be a unit vector.
func (p *polyhedron) cut(n r3.Vector, off float64, neighbor int, tol float64) cutResult {
	old := p.verts
	dist := make([]float64, len(old))
	in, out := 0, 0
	for i, v := range old {
		d := v.Dot(n) - off
		dist[i] = d
		switch {
		case d > tol:
			out++
		case d < -tol:
			in++
		}
	}
	if out == 0 {
		return cutUnchanged
	}
	if in == 0 {
		return cutEmpty
	}

	verts := slices.Clone(old)
	split := make(map[[2]int]int)
	crossing := func(a, b int) int {
		key := [2]int{min(a, b), max(a, b)}
		if v, ok := split[key]; ok {
			return v
		}
		t := dist[a] / (dist[a] - dist[b])
		verts = append(verts, old[a].Add(old[b].Sub(old[a]).Mul(t)))
		split[key] = len(verts) - 1
		return len(verts) - 1
	}
	onPlane := func(v int) bool {
		return v >= len(old) || math.Abs(dist[v]) <= tol
	}

	faces := make([]face, 0, len(p.faces)+1)
	// capNext[b] = a for every kept edge a->b lying on the plane; the new
	// face runs along those edges in the opposite direction.
	capNext := make(map[int]int)
	for _, f := range p.faces {
		m := len(f.loop)
		loop := make([]int, 0, m+1)
		for k, a := range f.loop {
			b := f.loop[(k+1)%m]
			da, db := dist[a], dist[b]
			if da <= tol {
				loop = append(loop, a)
			}
			if (da < -tol && db > tol) || (da > tol && db < -tol) {
				loop = append(loop, crossing(a, b))
			}
		}
		if len(loop) < 3 || !slices.ContainsFunc(loop, func(v int) bool { return !onPlane(v) }) {
			continue
		}
		for k, a := range loop {
			b := loop[(k+1)%len(loop)]
			if !onPlane(a) || !onPlane(b) {
				continue
			}
			if _, dup := capNext[b]; dup {
				return cutFailed
			}
			capNext[b] = a
		}
		faces = append(faces, face{loop: loop, neighbor: f.neighbor})
	}

	if len(capNext) < 3 {
		return cutFailed
	}
	start := -1
	for v := range capNext {
		if start < 0 || v < start {
			start = v
		}
	}
	capLoop := make([]int, 0, len(capNext))
	for v := start; ; {
		capLoop = append(capLoop, v)
		next, ok := capNext[v]
		if !ok || len(capLoop) > len(capNext) {
			return cutFailed
		}
		v = next
		if v == start {
			break
		}
	}
	if len(capLoop) != len(capNext) {
		return cutFailed
	}
	faces = append(faces, face{loop: capLoop, neighbor: neighbor})

	p.verts, p.faces = compact(verts, faces)
	return cutClipped
}

// compact drops vertices that no longer sit on three faces (unused ones and
// points left in the middle of an edge) and renumbers the rest in order of
// first appearance.
func compact(verts []r3.Vector, faces []face) ([]r3.Vector, []face) {
	uses := make([]int, len(verts))
	for _, f := range faces {
		for _, v := range f.loop {
			uses[v]++
		}
	}
	for i := range faces {
		faces[i].loop = slices.DeleteFunc(faces[i].loop, func(v int) bool { return uses[v] < 3 })
	}
	faces = slices.DeleteFunc(faces, func(f face) bool { return len(f.loop) < 3 })

	remap := make([]int, len(verts))
	for i := range remap {
		remap[i] = -1
	}
	kept := make([]r3.Vector, 0, len(verts))
	for _, f := range faces {
		for k, v := range f.loop {
			if remap[v] < 0 {
				remap[v] = len(kept)
				kept = append(kept, verts[v])
			}
			f.loop[k] = remap[v]
		}
	}
	return kept, faces
}
