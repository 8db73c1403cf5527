// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package r3voronoi

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/2dChan/r3voronoi/engine"
	"github.com/golang/geo/r3"
)

const (
	topologyMagic   = "R3VT"
	topologyVersion = 1
)

var ErrMalformedTopology = errors.New("r3voronoi: malformed topology")

// Topology is a flat, self-contained description of one cell. Variable
// length groups are addressed through offset arrays: group i of Faces spans
// FaceVertices[FaceOffsets[i]:FaceOffsets[i+1]]. No sentinel values are used.
type Topology struct {
	Volume      float64
	SurfaceArea float64
	MaxRadiusSq float64

	// Absolute vertex coordinates, coordinate j of vertex i at 3*i+j.
	Vertices []float64

	AdjacencyOffsets []int
	Adjacency        []int

	FaceOffsets   []int
	FaceVertices  []int
	FaceNeighbors []int

	// Outward unit normals, one triple per face.
	Normals   []float64
	FaceAreas []float64
}

// Topology encodes the cell as a Topology with vertices translated by site.
func (m *Manager) Topology(ch CellHandle, site r3.Vector) (*Topology, error) {
	cs, err := m.cell(ch)
	if err != nil {
		return nil, err
	}
	return encodeTopology(cs.cell, site)
}

func encodeTopology(c *engine.Cell, site r3.Vector) (*Topology, error) {
	verts, err := vertexPositions(c, site)
	if err != nil {
		return nil, err
	}
	adj, err := vertexAdjacency(c)
	if err != nil {
		return nil, err
	}
	fs, err := faces(c)
	if err != nil {
		return nil, err
	}

	t := &Topology{
		Volume:        c.Volume(),
		SurfaceArea:   c.SurfaceArea(),
		MaxRadiusSq:   c.MaxRadiusSq(),
		Vertices:      make([]float64, 0, 3*len(verts)),
		FaceNeighbors: make([]int, len(fs)),
		Normals:       c.Normals(),
		FaceAreas:     c.FaceAreas(),
	}
	for _, v := range verts {
		t.Vertices = append(t.Vertices, v.X, v.Y, v.Z)
	}
	t.AdjacencyOffsets, t.Adjacency = offsets(adj)
	loops := make([][]int, len(fs))
	for i, f := range fs {
		loops[i] = f.Vertices
		t.FaceNeighbors[i] = f.Neighbor
	}
	t.FaceOffsets, t.FaceVertices = offsets(loops)
	return t, nil
}

func offsets(groups [][]int) ([]int, []int) {
	offs := make([]int, len(groups)+1)
	for i, g := range groups {
		offs[i+1] = offs[i] + len(g)
	}
	flat := make([]int, 0, offs[len(groups)])
	for _, g := range groups {
		flat = append(flat, g...)
	}
	return offs, flat
}

func (t *Topology) NumVertices() int {
	return len(t.Vertices) / 3
}

func (t *Topology) NumFaces() int {
	return len(t.FaceNeighbors)
}

// Vertex returns vertex i. It returns an error if the index is out of range.
func (t *Topology) Vertex(i int) (r3.Vector, error) {
	if i < 0 || i >= t.NumVertices() {
		return r3.Vector{}, fmt.Errorf("Vertex: index %d out of range [0 %d)", i, t.NumVertices())
	}
	return r3.Vector{X: t.Vertices[3*i], Y: t.Vertices[3*i+1], Z: t.Vertices[3*i+2]}, nil
}

// Face returns the vertex loop and neighbour id of face i.
// It returns an error if the index is out of range.
func (t *Topology) Face(i int) (Face, error) {
	if i < 0 || i >= t.NumFaces() {
		return Face{}, fmt.Errorf("Face: index %d out of range [0 %d)", i, t.NumFaces())
	}
	return Face{
		Vertices: t.FaceVertices[t.FaceOffsets[i]:t.FaceOffsets[i+1]],
		Neighbor: t.FaceNeighbors[i],
	}, nil
}

// Adjacent returns the vertices sharing an edge with vertex i.
// It returns an error if the index is out of range.
func (t *Topology) Adjacent(i int) ([]int, error) {
	if i < 0 || i >= t.NumVertices() {
		return nil, fmt.Errorf("Adjacent: index %d out of range [0 %d)", i, t.NumVertices())
	}
	return t.Adjacency[t.AdjacencyOffsets[i]:t.AdjacencyOffsets[i+1]], nil
}

// Validate checks that every offset array and index is consistent.
func (t *Topology) Validate() error {
	if len(t.Vertices)%3 != 0 {
		return fmt.Errorf("%w: %d vertex coordinates", ErrMalformedTopology, len(t.Vertices))
	}
	nv, nf := t.NumVertices(), t.NumFaces()
	if err := checkGroups("adjacency", t.AdjacencyOffsets, t.Adjacency, nv, nv, 0); err != nil {
		return err
	}
	if err := checkGroups("face", t.FaceOffsets, t.FaceVertices, nf, nv, 3); err != nil {
		return err
	}
	if len(t.Normals) != 3*nf || len(t.FaceAreas) != nf {
		return fmt.Errorf("%w: %d faces with %d normal coordinates and %d areas",
			ErrMalformedTopology, nf, len(t.Normals), len(t.FaceAreas))
	}
	if t.Volume < 0 || t.SurfaceArea < 0 || t.MaxRadiusSq < 0 {
		return fmt.Errorf("%w: negative scalar", ErrMalformedTopology)
	}
	return nil
}

func checkGroups(name string, offs, flat []int, groups, numVerts, minLen int) error {
	if len(offs) != groups+1 || offs[0] != 0 || offs[groups] != len(flat) {
		return fmt.Errorf("%w: %s offsets do not cover %d groups of %d indices",
			ErrMalformedTopology, name, groups, len(flat))
	}
	for i := range groups {
		if offs[i+1]-offs[i] < minLen {
			return fmt.Errorf("%w: %s group %d has %d entries", ErrMalformedTopology, name, i, offs[i+1]-offs[i])
		}
	}
	for _, v := range flat {
		if v < 0 || v >= numVerts {
			return fmt.Errorf("%w: %s vertex %d out of range [0 %d)", ErrMalformedTopology, name, v, numVerts)
		}
	}
	return nil
}

// MarshalBinary encodes t little-endian: a magic and version header, the
// three scalars, then every array prefixed with its length.
func (t *Topology) MarshalBinary() ([]byte, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	buf := make([]byte, 0, 64)
	buf = append(buf, topologyMagic...)
	buf = binary.LittleEndian.AppendUint16(buf, topologyVersion)
	for _, f := range []float64{t.Volume, t.SurfaceArea, t.MaxRadiusSq} {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(f))
	}
	buf = appendFloats(buf, t.Vertices)
	for _, ints := range [][]int{t.AdjacencyOffsets, t.Adjacency, t.FaceOffsets, t.FaceVertices, t.FaceNeighbors} {
		buf = appendInts(buf, ints)
	}
	buf = appendFloats(buf, t.Normals)
	buf = appendFloats(buf, t.FaceAreas)
	return buf, nil
}

func appendFloats(buf []byte, fs []float64) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(fs)))
	for _, f := range fs {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(f))
	}
	return buf
}

func appendInts(buf []byte, is []int) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(is)))
	for _, i := range is {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(int64(i)))
	}
	return buf
}

// UnmarshalBinary decodes data written by MarshalBinary and validates it.
func (t *Topology) UnmarshalBinary(data []byte) error {
	r := &reader{buf: data}
	if string(r.next(len(topologyMagic))) != topologyMagic {
		return fmt.Errorf("%w: bad magic", ErrMalformedTopology)
	}
	if v := r.uint16(); v != topologyVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrMalformedTopology, v)
	}
	var out Topology
	out.Volume = r.float64()
	out.SurfaceArea = r.float64()
	out.MaxRadiusSq = r.float64()
	out.Vertices = r.floats()
	out.AdjacencyOffsets = r.ints()
	out.Adjacency = r.ints()
	out.FaceOffsets = r.ints()
	out.FaceVertices = r.ints()
	out.FaceNeighbors = r.ints()
	out.Normals = r.floats()
	out.FaceAreas = r.floats()
	if r.err != nil {
		return r.err
	}
	if len(r.buf) != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrMalformedTopology, len(r.buf))
	}
	if err := out.Validate(); err != nil {
		return err
	}
	*t = out
	return nil
}

type reader struct {
	buf []byte
	err error
}

func (r *reader) next(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > len(r.buf) {
		r.err = fmt.Errorf("%w: truncated", ErrMalformedTopology)
		return nil
	}
	b := r.buf[:n]
	r.buf = r.buf[n:]
	return b
}

func (r *reader) uint16() uint16 {
	if b := r.next(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (r *reader) uint64() uint64 {
	if b := r.next(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func (r *reader) float64() float64 {
	return math.Float64frombits(r.uint64())
}

func (r *reader) length() int {
	b := r.next(4)
	if b == nil {
		return 0
	}
	n := int(binary.LittleEndian.Uint32(b))
	if n > len(r.buf)/8 {
		r.err = fmt.Errorf("%w: array of %d elements exceeds input", ErrMalformedTopology, n)
		return 0
	}
	return n
}

func (r *reader) floats() []float64 {
	n := r.length()
	out := make([]float64, n)
	for i := range out {
		out[i] = r.float64()
	}
	return out
}

func (r *reader) ints() []int {
	n := r.length()
	out := make([]int, n)
	for i := range out {
		out[i] = int(int64(r.uint64()))
	}
	return out
}
