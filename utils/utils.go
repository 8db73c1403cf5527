// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package utils provides utility functions for generating sites for 3-D Voronoi tessellations.

package utils

import (
	"math/rand"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// GenerateRandomPoints generates cnt uniformly distributed points inside the
// box [lo, hi]. The seed parameter ensures reproducibility.
func GenerateRandomPoints(cnt int, lo, hi r3.Vector, seed int64) []r3.Vector {
	//nolint:gosec
	random := rand.New(rand.NewSource(seed))
	points := make([]r3.Vector, cnt)
	size := hi.Sub(lo)

	for i := range cnt {
		points[i] = r3.Vector{
			X: lo.X + random.Float64()*size.X,
			Y: lo.Y + random.Float64()*size.Y,
			Z: lo.Z + random.Float64()*size.Z,
		}
	}

	return points
}

// GenerateRandomPlanarPoints generates cnt uniformly distributed points
// inside the rectangle r.
func GenerateRandomPlanarPoints(cnt int, r r2.Rect, seed int64) []r2.Point {
	//nolint:gosec
	random := rand.New(rand.NewSource(seed))
	points := make([]r2.Point, cnt)
	size := r.Size()

	for i := range cnt {
		points[i] = r2.Point{
			X: r.X.Lo + random.Float64()*size.X,
			Y: r.Y.Lo + random.Float64()*size.Y,
		}
	}

	return points
}

// GenerateRandomRadii generates cnt radii uniformly distributed in [lo, hi).
func GenerateRandomRadii(cnt int, lo, hi float64, seed int64) []float64 {
	//nolint:gosec
	random := rand.New(rand.NewSource(seed))
	radii := make([]float64, cnt)
	for i := range cnt {
		radii[i] = lo + random.Float64()*(hi-lo)
	}
	return radii
}

// GenerateJitteredGrid places one point per cell of an n*n*n lattice over
// [lo, hi], displaced from the cell centre by at most jitter times the cell
// size. Jitter below 0.5 keeps points well separated.
func GenerateJitteredGrid(n int, lo, hi r3.Vector, jitter float64, seed int64) []r3.Vector {
	//nolint:gosec
	random := rand.New(rand.NewSource(seed))
	step := hi.Sub(lo).Mul(1 / float64(n))
	points := make([]r3.Vector, 0, n*n*n)

	for k := range n {
		for j := range n {
			for i := range n {
				offset := r3.Vector{
					X: (float64(i) + 0.5 + (random.Float64()*2-1)*jitter) * step.X,
					Y: (float64(j) + 0.5 + (random.Float64()*2-1)*jitter) * step.Y,
					Z: (float64(k) + 0.5 + (random.Float64()*2-1)*jitter) * step.Z,
				}
				points = append(points, lo.Add(offset))
			}
		}
	}

	return points
}
