// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package r3voronoi

import (
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

func TestSplitLengthPrefixed(t *testing.T) {
	tests := []struct {
		name    string
		flat    []int
		want    [][]int
		wantErr bool
	}{
		{"empty", nil, nil, false},
		{"single", []int{3, 0, 1, 2}, [][]int{{0, 1, 2}}, false},
		{"two groups", []int{2, 4, 5, 3, 1, 2, 3}, [][]int{{4, 5}, {1, 2, 3}}, false},
		{"empty group", []int{0, 1, 7}, [][]int{{}, {7}}, false},
		{"overrun", []int{3, 0, 1}, nil, true},
		{"overrun second", []int{1, 0, 4, 1}, nil, true},
		{"negative length", []int{-1, 0}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := splitLengthPrefixed(tt.flat)
			if (err != nil) != tt.wantErr {
				t.Fatalf("splitLengthPrefixed(%v) error = %v, wantErr %v", tt.flat, err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("splitLengthPrefixed(%v) mismatch (-want +got):\n%s", tt.flat, diff)
			}
		})
	}
}

func TestSplitLengthPrefixed_GroupsDoNotAlias(t *testing.T) {
	got, err := splitLengthPrefixed([]int{1, 4, 1, 5})
	if err != nil {
		t.Fatalf("splitLengthPrefixed(...) error = %v, want nil", err)
	}
	got[0] = append(got[0], 9)
	if got[1][0] != 5 {
		t.Errorf("appending to group 0 changed group 1 to %v", got[1])
	}
}

func TestTriples(t *testing.T) {
	got, err := triples([]float64{1, 2, 3, 4, 5, 6})
	if err != nil {
		t.Fatalf("triples(...) error = %v, want nil", err)
	}
	want := []r3.Vector{{X: 1, Y: 2, Z: 3}, {X: 4, Y: 5, Z: 6}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("triples(...) mismatch (-want +got):\n%s", diff)
	}
	if _, err := triples([]float64{1, 2}); err == nil {
		t.Errorf("triples([1 2]) error = nil, want non-nil")
	}
}

func TestVertexPositions_Rebased(t *testing.T) {
	m := mustNewManager(t)
	_, tess := mustComputeAll(t, m, cornerSites())
	ch := tess.Cells[0]

	origin, err := m.VertexPositions(ch, r3.Vector{})
	if err != nil {
		t.Fatalf("m.VertexPositions(..., 0) error = %v, want nil", err)
	}
	shift := r3.Vector{X: 3, Y: -2, Z: 0.5}
	shifted, err := m.VertexPositions(ch, shift)
	if err != nil {
		t.Fatalf("m.VertexPositions(..., %v) error = %v, want nil", shift, err)
	}
	for i := range origin {
		if !shifted[i].Sub(origin[i]).ApproxEqual(shift) {
			t.Errorf("vertex %d: %v - %v != %v", i, shifted[i], origin[i], shift)
		}
	}
}

func TestCellGeometry(t *testing.T) {
	m := mustNewManager(t)
	_, tess := mustComputeAll(t, m, jitteredSites(3, 5))

	for i, ch := range tess.Cells {
		site := tess.Positions[i]
		verts, err := m.VertexPositions(ch, site)
		if err != nil {
			t.Fatalf("m.VertexPositions(...) error = %v, want nil", err)
		}
		fs, err := m.Faces(ch)
		if err != nil {
			t.Fatalf("m.Faces(...) error = %v, want nil", err)
		}
		normals, err := m.Normals(ch)
		if err != nil {
			t.Fatalf("m.Normals(...) error = %v, want nil", err)
		}
		areas, err := m.FaceAreas(ch)
		if err != nil {
			t.Fatalf("m.FaceAreas(...) error = %v, want nil", err)
		}
		surface, err := m.SurfaceArea(ch)
		if err != nil {
			t.Fatalf("m.SurfaceArea(...) error = %v, want nil", err)
		}
		maxR2, err := m.MaxRadiusSq(ch)
		if err != nil {
			t.Fatalf("m.MaxRadiusSq(...) error = %v, want nil", err)
		}

		if len(normals) != len(fs) || len(areas) != len(fs) {
			t.Fatalf("cell %d: %d faces, %d normals, %d areas", i, len(fs), len(normals), len(areas))
		}
		if got := floats.Sum(areas); !scalar.EqualWithinAbs(got, surface, 1e-12) {
			t.Errorf("cell %d: sum of face areas = %v, want %v", i, got, surface)
		}

		var far float64
		for _, v := range verts {
			far = math.Max(far, v.Sub(site).Norm2())
		}
		if math.Abs(far-maxR2) > 1e-12 {
			t.Errorf("cell %d: max radius squared = %v, want %v", i, maxR2, far)
		}

		for k, f := range fs {
			n := normals[k]
			if math.Abs(n.Norm()-1) > 1e-9 {
				t.Errorf("cell %d face %d: |normal| = %v, want 1", i, k, n.Norm())
			}
			if d := n.Dot(verts[f.Vertices[0]].Sub(site)); d <= 0 {
				t.Errorf("cell %d face %d: normal %v points inward", i, k, n)
			}
			// Counter-clockwise from outside: Newell normal agrees with n.
			var newell r3.Vector
			for j, a := range f.Vertices {
				b := f.Vertices[(j+1)%len(f.Vertices)]
				newell = newell.Add(verts[a].Sub(site).Cross(verts[b].Sub(site)))
			}
			if newell.Dot(n) <= 0 {
				t.Errorf("cell %d face %d: loop is not counter-clockwise from outside", i, k)
			}
		}
	}
}

func TestCellAccessors_EmptySlot(t *testing.T) {
	m := mustNewManager(t)
	slot := m.NewCell()
	if _, err := m.Volume(slot); !errors.Is(err, ErrEmptyCell) {
		t.Errorf("m.Volume(empty) error = %v, want %v", err, ErrEmptyCell)
	}
	if _, err := m.Faces(slot); !errors.Is(err, ErrEmptyCell) {
		t.Errorf("m.Faces(empty) error = %v, want %v", err, ErrEmptyCell)
	}
	if _, err := m.Topology(slot, r3.Vector{}); !errors.Is(err, ErrEmptyCell) {
		t.Errorf("m.Topology(empty) error = %v, want %v", err, ErrEmptyCell)
	}
	if err := m.DisposeCell(slot); err != nil {
		t.Errorf("m.DisposeCell(empty) error = %v, want nil", err)
	}
}
