package renderer

import (
	"math"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/tessera/engine/core"
	"github.com/spaghettifunk/tessera/engine/renderer/gpu"
)

// MeshKind identifies one of the meshes known to the engine. The set is
// closed; scene iteration and draw order follow the declaration order.
type MeshKind uint8

const (
	MeshCube MeshKind = iota
	MeshGround
	MeshSprite
	MeshModel

	meshKindCount
)

// MeshKindCount is the number of mesh kinds.
const MeshKindCount = int(meshKindCount)

var meshKindNames = [meshKindCount]string{"cube", "ground", "sprite", "model"}

func (k MeshKind) String() string {
	if !k.Valid() {
		return "invalid"
	}
	return meshKindNames[k]
}

func (k MeshKind) Valid() bool {
	return k < meshKindCount
}

// MeshKinds returns every kind in draw order.
func MeshKinds() []MeshKind {
	kinds := make([]MeshKind, 0, meshKindCount)
	for k := MeshKind(0); k < meshKindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// Vertex is the interleaved layout consumed by the pipeline.
type Vertex struct {
	Position mgl32.Vec3
	Color    mgl32.Vec3
	UV       mgl32.Vec2
}

// VertexStride is the size of one Vertex in bytes.
const VertexStride = uint32(unsafe.Sizeof(Vertex{}))

// VertexLayout describes Vertex to the pipeline: location 0 position,
// location 1 color, location 2 uv.
func VertexLayout() gpu.VertexLayout {
	return gpu.VertexLayout{
		Stride: VertexStride,
		Attributes: []gpu.VertexAttribute{
			{Location: 0, Format: gpu.FormatR32G32B32Sfloat, Offset: uint32(unsafe.Offsetof(Vertex{}.Position))},
			{Location: 1, Format: gpu.FormatR32G32B32Sfloat, Offset: uint32(unsafe.Offsetof(Vertex{}.Color))},
			{Location: 2, Format: gpu.FormatR32G32Sfloat, Offset: uint32(unsafe.Offsetof(Vertex{}.UV))},
		},
	}
}

func vertexBytes(vertices []Vertex) []byte {
	if len(vertices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), len(vertices)*int(VertexStride))
}

func indexBytes(indices []uint32) []byte {
	if len(indices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&indices[0])), len(indices)*4)
}

// MeshRange locates one mesh inside the aggregate buffers.
type MeshRange struct {
	FirstVertex uint32
	VertexCount uint32
	FirstIndex  uint32
	IndexCount  uint32
}

// MeshAggregator concatenates every mesh into one vertex buffer and one index
// buffer. Indices are rebased on the way in so they stay valid after
// concatenation and draws need no vertex offset.
type MeshAggregator struct {
	vertices []Vertex
	indices  []uint32

	ranges    [meshKindCount]MeshRange
	consumed  [meshKindCount]bool
	finalized bool

	VertexBuffer *Buffer
	IndexBuffer  *Buffer
}

func NewMeshAggregator() *MeshAggregator {
	return &MeshAggregator{}
}

// Consume appends a mesh. Each kind may be consumed once, and only before
// Finalize.
func (m *MeshAggregator) Consume(kind MeshKind, vertices []Vertex, indices []uint32) error {
	if m.finalized {
		return errors.Wrapf(core.ErrAggregateFinalized, "cannot consume mesh %s", kind)
	}
	if !kind.Valid() {
		return errors.Wrapf(core.ErrUnknownMeshKind, "mesh kind %d", kind)
	}
	if m.consumed[kind] {
		return errors.Wrapf(core.ErrDuplicateMesh, "mesh %s", kind)
	}
	if len(vertices) == 0 {
		return errors.Newf("mesh %s has no vertices", kind)
	}
	if uint64(len(m.vertices))+uint64(len(vertices)) > math.MaxUint32 {
		return errors.Newf("mesh %s overflows the aggregate vertex count", kind)
	}
	for i, idx := range indices {
		if idx >= uint32(len(vertices)) {
			return errors.Newf("mesh %s index %d at position %d is out of range for %d vertices", kind, idx, i, len(vertices))
		}
	}

	base := uint32(len(m.vertices))
	m.ranges[kind] = MeshRange{
		FirstVertex: base,
		VertexCount: uint32(len(vertices)),
		FirstIndex:  uint32(len(m.indices)),
		IndexCount:  uint32(len(indices)),
	}
	m.consumed[kind] = true

	m.vertices = append(m.vertices, vertices...)
	for _, idx := range indices {
		m.indices = append(m.indices, idx+base)
	}
	return nil
}

// Range returns where kind lives in the aggregate.
func (m *MeshAggregator) Range(kind MeshKind) (MeshRange, bool) {
	if !kind.Valid() || !m.consumed[kind] {
		return MeshRange{}, false
	}
	return m.ranges[kind], true
}

func (m *MeshAggregator) Finalized() bool {
	return m.finalized
}

// Finalize uploads the concatenated lists to device-local buffers through
// staging buffers and a blocking one-time copy, then drops the CPU copies.
func (m *MeshAggregator) Finalize(alloc *Allocator, commandPool gpu.Handle) error {
	if m.finalized {
		return errors.Wrap(core.ErrAggregateFinalized, "finalize called twice")
	}
	if len(m.vertices) == 0 {
		return errors.New("no meshes consumed before finalize")
	}

	var staging Scope
	defer staging.Release()

	vertexData := vertexBytes(m.vertices)
	vertexStaging, err := createStaging(alloc, vertexData)
	if err != nil {
		return err
	}
	staging.Own(vertexStaging)

	vb, err := alloc.CreateBuffer(uint64(len(vertexData)), gpu.BufferUsageVertex|gpu.BufferUsageTransferDst, DeviceLocal)
	if err != nil {
		return errors.Wrap(err, "failed to create aggregate vertex buffer")
	}

	var ib, indexStaging *Buffer
	indexData := indexBytes(m.indices)
	if len(indexData) > 0 {
		if indexStaging, err = createStaging(alloc, indexData); err != nil {
			vb.Release()
			return err
		}
		staging.Own(indexStaging)
		ib, err = alloc.CreateBuffer(uint64(len(indexData)), gpu.BufferUsageIndex|gpu.BufferUsageTransferDst, DeviceLocal)
		if err != nil {
			vb.Release()
			return errors.Wrap(err, "failed to create aggregate index buffer")
		}
	}

	device := alloc.Device()
	err = RunOneTime(device, commandPool, func(cb gpu.Handle) {
		device.CmdCopyBuffer(cb, vertexStaging.Handle, vb.Handle, 0, 0, vertexStaging.Size)
		if ib != nil {
			device.CmdCopyBuffer(cb, indexStaging.Handle, ib.Handle, 0, 0, indexStaging.Size)
		}
	})
	if err != nil {
		vb.Release()
		ib.Release()
		return errors.Wrap(err, "failed to upload mesh aggregate")
	}

	m.VertexBuffer = vb
	m.IndexBuffer = ib
	core.LogDebug("mesh aggregate finalized: %d vertices, %d indices", len(m.vertices), len(m.indices))

	m.vertices = nil
	m.indices = nil
	m.finalized = true
	return nil
}

func (m *MeshAggregator) Release() {
	m.VertexBuffer.Release()
	m.IndexBuffer.Release()
}

// createStaging creates a host-visible transfer source holding data.
func createStaging(alloc *Allocator, data []byte) (*Buffer, error) {
	staging, err := alloc.CreateBuffer(uint64(len(data)), gpu.BufferUsageTransferSrc, HostVisible)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create staging buffer")
	}
	if err := staging.Write(0, data); err != nil {
		staging.Release()
		return nil, errors.Wrap(err, "failed to fill staging buffer")
	}
	return staging, nil
}
