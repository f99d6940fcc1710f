package renderer

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/tessera/engine/core"
	"github.com/spaghettifunk/tessera/engine/renderer/gpu/gputest"
)

func makeVertices(n int, seed float32) []Vertex {
	out := make([]Vertex, n)
	for i := range out {
		f := seed + float32(i)
		out[i] = Vertex{
			Position: mgl32.Vec3{f, f + 1, f + 2},
			Color:    mgl32.Vec3{1, 1, 1},
			UV:       mgl32.Vec2{f / 10, f / 20},
		}
	}
	return out
}

func readIndices(data []byte, first, count uint32) []uint32 {
	out := make([]uint32, count)
	for i := range out {
		off := (first + uint32(i)) * 4
		out[i] = binary.LittleEndian.Uint32(data[off:])
	}
	return out
}

func TestVertexStride(t *testing.T) {
	if VertexStride != 32 {
		t.Fatalf("vertex stride = %d, want 32", VertexStride)
	}
	layout := VertexLayout()
	if layout.Attributes[1].Offset != 12 || layout.Attributes[2].Offset != 24 {
		t.Fatalf("attribute offsets = %+v", layout.Attributes)
	}
}

func TestMeshAggregatorTwoMeshes(t *testing.T) {
	dev := gputest.New()
	alloc := NewAllocator(dev)
	pool, _ := dev.CreateCommandPool()

	a := makeVertices(4, 0)
	aIdx := []uint32{0, 1, 2, 2, 3, 0}
	b := makeVertices(3, 100)
	bIdx := []uint32{0, 1, 2}

	m := NewMeshAggregator()
	if err := m.Consume(MeshCube, a, aIdx); err != nil {
		t.Fatal(err)
	}
	if err := m.Consume(MeshGround, b, bIdx); err != nil {
		t.Fatal(err)
	}

	ra, _ := m.Range(MeshCube)
	rb, _ := m.Range(MeshGround)
	if ra != (MeshRange{FirstVertex: 0, VertexCount: 4, FirstIndex: 0, IndexCount: 6}) {
		t.Fatalf("range A = %+v", ra)
	}
	if rb != (MeshRange{FirstVertex: 4, VertexCount: 3, FirstIndex: 6, IndexCount: 3}) {
		t.Fatalf("range B = %+v", rb)
	}

	if err := m.Finalize(alloc, pool); err != nil {
		t.Fatal(err)
	}
	defer m.Release()

	indices := dev.BufferContents(m.IndexBuffer.Handle)
	gotB := readIndices(indices, rb.FirstIndex, rb.IndexCount)
	for i, idx := range gotB {
		if idx != bIdx[i]+4 {
			t.Fatalf("B index %d = %d, want %d", i, idx, bIdx[i]+4)
		}
	}
	gotA := readIndices(indices, ra.FirstIndex, ra.IndexCount)
	for i, idx := range gotA {
		if idx != aIdx[i] {
			t.Fatalf("A index %d = %d, want %d", i, idx, aIdx[i])
		}
	}

	vertices := dev.BufferContents(m.VertexBuffer.Handle)
	want := append(vertexBytes(a), vertexBytes(b)...)
	if !bytes.Equal(vertices[:len(want)], want) {
		t.Fatal("vertex buffer does not hold the concatenated vertices")
	}

	// staging buffers are gone, only the two aggregate buffers remain
	if n := dev.Live(gputest.KindBuffer); n != 2 {
		t.Fatalf("live buffers = %d, want 2", n)
	}
	if err := m.Consume(MeshSprite, b, bIdx); !errors.Is(err, core.ErrAggregateFinalized) {
		t.Fatalf("consume after finalize err = %v", err)
	}
}

func TestMeshAggregatorRangesAreContiguous(t *testing.T) {
	sizes := []struct{ v, i int }{{8, 36}, {4, 6}, {6, 0}, {3, 3}}
	m := NewMeshAggregator()
	var inputs [][]uint32
	for k, s := range sizes {
		idx := make([]uint32, s.i)
		for i := range idx {
			idx[i] = uint32((i * 7) % s.v)
		}
		inputs = append(inputs, idx)
		if err := m.Consume(MeshKind(k), makeVertices(s.v, float32(k)), idx); err != nil {
			t.Fatal(err)
		}
	}

	var nextIndex, nextVertex, base uint32
	for k, s := range sizes {
		r, ok := m.Range(MeshKind(k))
		if !ok {
			t.Fatalf("no range for %s", MeshKind(k))
		}
		if r.FirstIndex != nextIndex || r.IndexCount != uint32(s.i) {
			t.Fatalf("%s index range = %+v, want first %d count %d", MeshKind(k), r, nextIndex, s.i)
		}
		if r.FirstVertex != nextVertex || r.VertexCount != uint32(s.v) {
			t.Fatalf("%s vertex range = %+v", MeshKind(k), r)
		}
		for i, idx := range m.indices[r.FirstIndex : r.FirstIndex+r.IndexCount] {
			if idx-base != inputs[k][i] {
				t.Fatalf("%s index %d = %d, want %d", MeshKind(k), i, idx-base, inputs[k][i])
			}
		}
		nextIndex += r.IndexCount
		nextVertex += r.VertexCount
		base += uint32(s.v)
	}
}

func TestMeshAggregatorErrors(t *testing.T) {
	m := NewMeshAggregator()
	if err := m.Consume(MeshCube, makeVertices(3, 0), []uint32{0, 1, 2}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		kind    MeshKind
		verts   []Vertex
		indices []uint32
		target  error
	}{
		{"duplicate", MeshCube, makeVertices(3, 0), []uint32{0, 1, 2}, core.ErrDuplicateMesh},
		{"invalid kind", MeshKind(200), makeVertices(3, 0), nil, core.ErrUnknownMeshKind},
		{"index out of range", MeshGround, makeVertices(3, 0), []uint32{0, 1, 3}, nil},
		{"no vertices", MeshSprite, nil, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.Consume(tt.kind, tt.verts, tt.indices)
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Fatalf("err = %v, want %v", err, tt.target)
			}
		})
	}
	if _, ok := m.Range(MeshGround); ok {
		t.Fatal("a rejected mesh must not get a range")
	}
}

func TestMeshAggregatorFinalizeEmpty(t *testing.T) {
	dev := gputest.New()
	pool, _ := dev.CreateCommandPool()
	if err := NewMeshAggregator().Finalize(NewAllocator(dev), pool); err == nil {
		t.Fatal("finalize without meshes should fail")
	}
}

func TestMeshAggregatorWithoutIndices(t *testing.T) {
	dev := gputest.New()
	pool, _ := dev.CreateCommandPool()
	m := NewMeshAggregator()
	if err := m.Consume(MeshSprite, makeVertices(6, 0), nil); err != nil {
		t.Fatal(err)
	}
	if err := m.Finalize(NewAllocator(dev), pool); err != nil {
		t.Fatal(err)
	}
	defer m.Release()
	if m.IndexBuffer != nil {
		t.Fatal("no index buffer expected for vertex-only meshes")
	}
}
