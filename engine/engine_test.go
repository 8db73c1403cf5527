// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package engine

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"testing"

	"github.com/2dChan/r3voronoi/utils"
	"github.com/golang/geo/r3"
	"github.com/google/go-cmp/cmp"
)

const testTol = 1e-9

// Container

func TestNewContainer_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{"unit cube", unitConfig(), nil},
		{"inverted x", func() Config { c := unitConfig(); c.Min.X = 2; return c }(), ErrInvalidBox},
		{"flat z", func() Config { c := unitConfig(); c.Max.Z = 0; return c }(), ErrInvalidBox},
		{"nan bound", func() Config { c := unitConfig(); c.Max.Y = math.NaN(); return c }(), ErrInvalidBox},
		{"inf bound", func() Config { c := unitConfig(); c.Min.X = math.Inf(-1); return c }(), ErrInvalidBox},
		{"zero grid", func() Config { c := unitConfig(); c.Ny = 0; return c }(), ErrInvalidGrid},
		{"negative eps", func() Config { c := unitConfig(); c.Eps = -1; return c }(), ErrInvalidEps},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewContainer(tt.cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewContainer(...) error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestContainer_PutWeightedIgnoredWhenUnweighted(t *testing.T) {
	c := mustNewContainer(t, unitConfig())
	c.PutWeighted(7, r3.Vector{X: 0.5, Y: 0.5, Z: 0.5}, 0.3)
	s, err := c.Site(0)
	if err != nil {
		t.Fatalf("c.Site(0) error = %v, want nil", err)
	}
	if s.Radius != 0 || s.ID != 7 {
		t.Errorf("c.Site(0) = %+v, want id 7 with radius 0", s)
	}
	if _, err := c.Site(1); err == nil {
		t.Errorf("c.Site(1) error = nil, want non-nil")
	}
}

func TestContainer_PeriodicRemap(t *testing.T) {
	cfg := unitConfig()
	cfg.Periodic = [3]bool{true, false, false}
	c := mustNewContainer(t, cfg)
	c.Put(0, r3.Vector{X: -0.25, Y: 0.5, Z: 0.5})
	c.Put(1, r3.Vector{X: 1.5, Y: 0.5, Z: 0.5})

	want := []float64{0.75, 0.5}
	for i, w := range want {
		s, _ := c.Site(i)
		if math.Abs(s.Position.X-w) > testTol {
			t.Errorf("c.Site(%d).Position.X = %v, want %v", i, s.Position.X, w)
		}
	}
}

// Loop

func TestLoop_Empty(t *testing.T) {
	c := mustNewContainer(t, unitConfig())
	l := c.NewLoop()
	if l.Valid() {
		t.Errorf("l.Valid() before Start = true, want false")
	}
	if l.Start() {
		t.Errorf("l.Start() on empty container = true, want false")
	}
	if l.Inc() {
		t.Errorf("l.Inc() on exhausted loop = true, want false")
	}
	if _, err := c.ComputeCell(l); !errors.Is(err, ErrLoopExhausted) {
		t.Errorf("c.ComputeCell(exhausted) error = %v, want %v", err, ErrLoopExhausted)
	}
}

func TestLoop_BlockMajorOrder(t *testing.T) {
	cfg := unitConfig()
	cfg.Nx = 2
	c := mustNewContainer(t, cfg)
	c.Put(10, r3.Vector{X: 0.75, Y: 0.5, Z: 0.5})
	c.Put(11, r3.Vector{X: 0.25, Y: 0.5, Z: 0.5})
	c.Put(12, r3.Vector{X: 0.8, Y: 0.2, Z: 0.2})
	c.Put(13, r3.Vector{X: 0.1, Y: 0.9, Z: 0.9})
	c.Put(14, r3.Vector{X: 5, Y: 0.5, Z: 0.5}) // outside, clamped into the last block

	var got []int
	l := c.NewLoop()
	for ok := l.Start(); ok; ok = l.Inc() {
		idx, _, valid := l.Pos()
		if !valid {
			t.Fatalf("l.Pos() valid = false inside loop")
		}
		got = append(got, idx)
	}
	want := []int{1, 3, 0, 2, 4}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("loop order mismatch (-want +got):\n%s", diff)
	}
	if _, _, valid := l.Pos(); valid {
		t.Errorf("l.Pos() after exhaustion valid = true, want false")
	}
}

// Cells

func TestComputeCell_SingleSiteIsBox(t *testing.T) {
	c := mustNewContainer(t, unitConfig())
	c.Put(0, r3.Vector{X: 0.3, Y: 0.4, Z: 0.5})
	cell := mustComputeCell(t, c, 0)

	if got := cell.Volume(); math.Abs(got-1) > testTol {
		t.Errorf("cell.Volume() = %v, want 1", got)
	}
	if got := cell.SurfaceArea(); math.Abs(got-6) > testTol {
		t.Errorf("cell.SurfaceArea() = %v, want 6", got)
	}
	if got, want := cell.MaxRadiusSq(), 0.7*0.7+0.6*0.6+0.5*0.5; math.Abs(got-want) > testTol {
		t.Errorf("cell.MaxRadiusSq() = %v, want %v", got, want)
	}
	if cell.NumVertices() != 8 || cell.NumFaces() != 6 {
		t.Errorf("cell has %d vertices and %d faces, want 8 and 6", cell.NumVertices(), cell.NumFaces())
	}
	got := cell.Neighbors()
	slices.Sort(got)
	want := []int{WallZMax, WallZMin, WallYMax, WallYMin, WallXMax, WallXMin}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("cell.Neighbors() mismatch (-want +got):\n%s", diff)
	}
	checkTopology(t, cell)
}

func TestComputeCell_TwoSiteSlabs(t *testing.T) {
	c := mustNewContainer(t, unitConfig())
	c.Put(0, r3.Vector{X: 0.25, Y: 0.5, Z: 0.5})
	c.Put(1, r3.Vector{X: 0.75, Y: 0.5, Z: 0.5})

	for i := range 2 {
		cell := mustComputeCell(t, c, i)
		if got := cell.Volume(); math.Abs(got-0.5) > testTol {
			t.Errorf("cell %d Volume() = %v, want 0.5", i, got)
		}
		other := 1 - i
		count := 0
		for _, n := range cell.Neighbors() {
			if n == other {
				count++
			}
		}
		if count != 1 {
			t.Errorf("cell %d names neighbour %d on %d faces, want 1", i, other, count)
		}
		site, _ := c.Site(i)
		verts := cell.LocalVertices()
		for v := 0; v < len(verts); v += 3 {
			x := site.Position.X + verts[v]
			if math.Abs(x-0.5) > testTol && math.Abs(x-float64(i)) > testTol {
				t.Errorf("cell %d vertex x = %v, want 0.5 or %d", i, x, i)
			}
		}
		checkTopology(t, cell)
	}
}

func TestComputeCell_Coincident(t *testing.T) {
	c := mustNewContainer(t, unitConfig())
	c.Put(0, r3.Vector{X: 0.5, Y: 0.5, Z: 0.5})
	c.Put(1, r3.Vector{X: 0.5, Y: 0.5, Z: 0.5})
	c.Put(2, r3.Vector{X: 0.1, Y: 0.1, Z: 0.1})

	for i := range 2 {
		if _, err := c.ComputeCellAt(i); !errors.Is(err, ErrCoincident) {
			t.Errorf("c.ComputeCellAt(%d) error = %v, want %v", i, err, ErrCoincident)
		}
	}
	if _, err := c.ComputeCellAt(2); err != nil {
		t.Errorf("c.ComputeCellAt(2) error = %v, want nil", err)
	}
	if _, err := c.ComputeCellAt(3); err == nil {
		t.Errorf("c.ComputeCellAt(3) error = nil, want non-nil")
	}
}

func TestComputeCell_WeightedEngulfed(t *testing.T) {
	cfg := unitConfig()
	cfg.Weighted = true
	c := mustNewContainer(t, cfg)
	c.PutWeighted(0, r3.Vector{X: 0.5, Y: 0.5, Z: 0.5}, 0)
	c.PutWeighted(1, r3.Vector{X: 0.6, Y: 0.5, Z: 0.5}, 0.5)

	if _, err := c.ComputeCellAt(0); !errors.Is(err, ErrEmpty) {
		t.Errorf("c.ComputeCellAt(0) error = %v, want %v", err, ErrEmpty)
	}
	cell := mustComputeCell(t, c, 1)
	if got := cell.Volume(); math.Abs(got-1) > testTol {
		t.Errorf("cell.Volume() = %v, want 1", got)
	}
}

func TestComputeCell_WeightedRadicalPlane(t *testing.T) {
	c := mustNewContainer(t, Config{
		Max: r3.Vector{X: 10, Y: 10, Z: 10},
		Nx:  5, Ny: 5, Nz: 5,
		Weighted: true,
	})
	c.PutWeighted(0, r3.Vector{X: 1, Y: 2, Z: 3}, 1.3)
	c.PutWeighted(1, r3.Vector{X: 4, Y: 5.5, Z: 6}, 1.4)

	tests := []struct {
		idx          int
		volume       float64
		numVertices  int
		wantNeighbor []int
	}{
		{0, 207.1020518571429, 8, []int{WallZMax, WallZMin, WallYMin, WallXMax, WallXMin, 1}},
		{1, 792.8979481428571, 10, []int{WallZMax, WallZMin, WallYMax, WallYMin, WallXMax, WallXMin, 0}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("cell %d", tt.idx), func(t *testing.T) {
			cell := mustComputeCell(t, c, tt.idx)
			if got := cell.Volume(); math.Abs(got-tt.volume) > 1e-7 {
				t.Errorf("cell.Volume() = %v, want %v", got, tt.volume)
			}
			if got := cell.NumVertices(); got != tt.numVertices {
				t.Errorf("cell.NumVertices() = %v, want %v", got, tt.numVertices)
			}
			got := cell.Neighbors()
			slices.Sort(got)
			if diff := cmp.Diff(tt.wantNeighbor, got); diff != "" {
				t.Errorf("cell.Neighbors() mismatch (-want +got):\n%s", diff)
			}
			checkTopology(t, cell)
		})
	}
}

func TestComputeCell_PeriodicSingleSite(t *testing.T) {
	cfg := unitConfig()
	cfg.Periodic = [3]bool{true, true, true}
	c := mustNewContainer(t, cfg)
	c.Put(3, r3.Vector{X: 0.2, Y: 0.7, Z: 0.9})

	cell := mustComputeCell(t, c, 0)
	if got := cell.Volume(); math.Abs(got-1) > testTol {
		t.Errorf("cell.Volume() = %v, want 1", got)
	}
	for i, n := range cell.Neighbors() {
		if n != 3 {
			t.Errorf("cell.Neighbors()[%d] = %v, want 3 (own image)", i, n)
		}
	}
	checkTopology(t, cell)
}

func TestComputeCell_VolumeConservation(t *testing.T) {
	tests := []struct {
		name     string
		periodic [3]bool
	}{
		{"walls", [3]bool{}},
		{"periodic x", [3]bool{true, false, false}},
		{"periodic xyz", [3]bool{true, true, true}},
	}
	points := utils.GenerateJitteredGrid(3, r3.Vector{}, r3.Vector{X: 1, Y: 1, Z: 1}, 0.3, 5)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := unitConfig()
			cfg.Periodic = tt.periodic
			cfg.Nx, cfg.Ny, cfg.Nz = 2, 2, 2
			c := mustNewContainer(t, cfg)
			for i, p := range points {
				c.Put(i, p)
			}
			cells := make([]*Cell, len(points))
			total := 0.0
			for i := range points {
				cells[i] = mustComputeCell(t, c, i)
				total += cells[i].Volume()
				checkTopology(t, cells[i])
			}
			if math.Abs(total-1) > testTol {
				t.Errorf("sum of volumes = %v, want 1", total)
			}
			checkNeighborSymmetry(t, cells)
		})
	}
}

func TestComputeCell_GridIndependent(t *testing.T) {
	tests := []struct {
		name     string
		periodic [3]bool
	}{
		{"walls", [3]bool{}},
		{"periodic y", [3]bool{false, true, false}},
		{"periodic xyz", [3]bool{true, true, true}},
	}
	points := utils.GenerateRandomPoints(60, r3.Vector{}, r3.Vector{X: 1, Y: 1, Z: 1}, 8)
	radii := utils.GenerateRandomRadii(60, 0, 0.01, 8)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			build := func(n int) *Container {
				cfg := unitConfig()
				cfg.Periodic = tt.periodic
				cfg.Weighted = true
				cfg.Nx, cfg.Ny, cfg.Nz = n, n, n
				c := mustNewContainer(t, cfg)
				for i, p := range points {
					c.PutWeighted(i, p, radii[i])
				}
				return c
			}
			coarse, fine := build(1), build(5)
			for i := range points {
				want := mustComputeCell(t, coarse, i)
				got := mustComputeCell(t, fine, i)
				if math.Abs(got.Volume()-want.Volume()) > testTol {
					t.Errorf("cell %d volume = %v with 5^3 blocks, %v with one block", i, got.Volume(), want.Volume())
				}
				wantN, gotN := want.Neighbors(), got.Neighbors()
				slices.Sort(wantN)
				slices.Sort(gotN)
				if diff := cmp.Diff(wantN, gotN); diff != "" {
					t.Errorf("cell %d neighbours mismatch (-one block +5^3 blocks):\n%s", i, diff)
				}
			}
		})
	}
}

func TestComputeCell_SiteOutsideBox(t *testing.T) {
	c := mustNewContainer(t, Config{Max: r3.Vector{X: 1, Y: 1, Z: 1}, Nx: 4, Ny: 4, Nz: 4})
	c.Put(0, r3.Vector{X: 0.9, Y: 0.5, Z: 0.5})
	c.Put(1, r3.Vector{X: 1.2, Y: 0.5, Z: 0.5})
	c.Put(2, r3.Vector{X: 0.1, Y: 0.5, Z: 0.5})

	cell := mustComputeCell(t, c, 2)
	// Bisector with site 0 at x = 0.5; site 1 lies farther away.
	if got := cell.Volume(); math.Abs(got-0.5) > testTol {
		t.Errorf("cell.Volume() = %v, want 0.5", got)
	}
	cell = mustComputeCell(t, c, 0)
	// Bisectors at x = 0.5 and x = 1.05 leave the slab [0.5, 1].
	if got := cell.Volume(); math.Abs(got-0.5) > testTol {
		t.Errorf("cell.Volume() = %v, want 0.5", got)
	}
}

func TestCell_FlatAccessorsAligned(t *testing.T) {
	c := mustNewContainer(t, unitConfig())
	for i, p := range utils.GenerateJitteredGrid(2, r3.Vector{}, r3.Vector{X: 1, Y: 1, Z: 1}, 0.2, 9) {
		c.Put(i, p)
	}
	cell := mustComputeCell(t, c, 0)
	nf := cell.NumFaces()
	if got := len(cell.Neighbors()); got != nf {
		t.Errorf("len(cell.Neighbors()) = %v, want %v", got, nf)
	}
	if got := len(cell.FaceAreas()); got != nf {
		t.Errorf("len(cell.FaceAreas()) = %v, want %v", got, nf)
	}
	if got := len(cell.Normals()); got != 3*nf {
		t.Errorf("len(cell.Normals()) = %v, want %v", got, 3*nf)
	}
	if got := len(cell.LocalVertices()); got != 3*cell.NumVertices() {
		t.Errorf("len(cell.LocalVertices()) = %v, want %v", got, 3*cell.NumVertices())
	}

	sum := 0.0
	for _, a := range cell.FaceAreas() {
		sum += a
	}
	if math.Abs(sum-cell.SurfaceArea()) > testTol {
		t.Errorf("sum of face areas = %v, want %v", sum, cell.SurfaceArea())
	}

	normals := cell.Normals()
	for f := range nf {
		n := r3.Vector{X: normals[3*f], Y: normals[3*f+1], Z: normals[3*f+2]}
		if math.Abs(n.Norm()-1) > testTol {
			t.Errorf("normal %d norm = %v, want 1", f, n.Norm())
		}
	}
}

// Benchmarks

func BenchmarkComputeCell(b *testing.B) {
	sizes := []int{1e+2, 1e+3}
	for _, n := range sizes {
		b.Run(fmt.Sprintf("N%d", n), func(b *testing.B) {
			c, err := NewContainer(unitConfig())
			if err != nil {
				b.Fatalf("NewContainer(...) error = %v, want nil", err)
			}
			for i, p := range utils.GenerateRandomPoints(n, r3.Vector{}, r3.Vector{X: 1, Y: 1, Z: 1}, 0) {
				c.Put(i, p)
			}

			b.ReportAllocs()
			b.ResetTimer()
			i := 0
			for b.Loop() {
				if _, err := c.ComputeCellAt(i % n); err != nil {
					b.Fatalf("c.ComputeCellAt(%d) error = %v, want nil", i%n, err)
				}
				i++
			}
		})
	}
}

// Helpers

func unitConfig() Config {
	return Config{
		Max: r3.Vector{X: 1, Y: 1, Z: 1},
		Nx:  1, Ny: 1, Nz: 1,
	}
}

func mustNewContainer(t *testing.T, cfg Config) *Container {
	t.Helper()
	c, err := NewContainer(cfg)
	if err != nil {
		t.Fatalf("NewContainer(...) error = %v, want nil", err)
	}
	return c
}

func mustComputeCell(t *testing.T, c *Container, i int) *Cell {
	t.Helper()
	cell, err := c.ComputeCellAt(i)
	if err != nil {
		t.Fatalf("c.ComputeCellAt(%d) error = %v, want nil", i, err)
	}
	return cell
}

// checkTopology walks the length-prefixed face and adjacency sequences and
// checks that they describe a closed polyhedron.
func checkTopology(t *testing.T, cell *Cell) {
	t.Helper()
	nv := cell.NumVertices()
	uses := make([]int, nv)
	flat := cell.FaceVertices()
	faces := 0
	for cur := 0; cur < len(flat); {
		n := flat[cur]
		if n < 3 || cur+1+n > len(flat) {
			t.Fatalf("face %d has bad length %d at offset %d", faces, n, cur)
		}
		for _, v := range flat[cur+1 : cur+1+n] {
			if v < 0 || v >= nv {
				t.Fatalf("face %d references vertex %d, want [0 %d)", faces, v, nv)
			}
			uses[v]++
		}
		cur += 1 + n
		faces++
	}
	if faces != cell.NumFaces() {
		t.Errorf("walked %d faces, want %d", faces, cell.NumFaces())
	}
	for v, u := range uses {
		if u < 3 {
			t.Errorf("vertex %d appears in %d faces, want >= 3", v, u)
		}
	}

	adj := cell.VertexAdjacency()
	v := 0
	for cur := 0; cur < len(adj); v++ {
		n := adj[cur]
		if n != uses[v] {
			t.Errorf("vertex %d has %d edges, want %d", v, n, uses[v])
		}
		cur += 1 + n
	}
	if v != nv {
		t.Errorf("adjacency lists %d vertices, want %d", v, nv)
	}
}

func checkNeighborSymmetry(t *testing.T, cells []*Cell) {
	t.Helper()
	for i, c := range cells {
		for _, j := range c.Neighbors() {
			if IsWall(j) || j == i {
				continue
			}
			if !slices.Contains(cells[j].Neighbors(), i) {
				t.Errorf("cell %d names neighbour %d, but cell %d does not name %d", i, j, j, i)
			}
		}
	}
}
