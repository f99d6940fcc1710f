package renderer

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/tessera/engine/math"
	"github.com/spaghettifunk/tessera/engine/renderer/gpu"
)

// Scene maps every mesh kind to the ordered positions of its instances. It is
// mutated between frames and only read while a frame is recorded.
type Scene struct {
	instances [meshKindCount][]mgl32.Vec3
}

func NewScene() *Scene {
	return &Scene{}
}

// Add appends an instance of kind at pos. Invalid kinds are ignored.
func (s *Scene) Add(kind MeshKind, pos mgl32.Vec3) {
	if kind.Valid() {
		s.instances[kind] = append(s.instances[kind], pos)
	}
}

// Set replaces all instances of kind.
func (s *Scene) Set(kind MeshKind, positions []mgl32.Vec3) {
	if kind.Valid() {
		s.instances[kind] = positions
	}
}

func (s *Scene) Positions(kind MeshKind) []mgl32.Vec3 {
	if !kind.Valid() {
		return nil
	}
	return s.instances[kind]
}

func (s *Scene) Clear(kind MeshKind) {
	if kind.Valid() {
		s.instances[kind] = s.instances[kind][:0]
	}
}

// Len returns the total number of instances.
func (s *Scene) Len() int {
	n := 0
	for _, p := range s.instances {
		n += len(p)
	}
	return n
}

// InstanceGroup is one draw: every instance of a kind, located by its first
// slot in the instance buffer.
type InstanceGroup struct {
	Kind          MeshKind
	FirstInstance uint32
	InstanceCount uint32
}

// PlanInstances lays the scene out in the instance buffer in mesh kind order,
// skipping empty kinds. Instances past capacity are left out and counted in
// dropped.
func PlanInstances(s *Scene, capacity int) (groups []InstanceGroup, dropped int) {
	first := 0
	for _, kind := range MeshKinds() {
		n := len(s.instances[kind])
		if n == 0 {
			continue
		}
		if first+n > capacity {
			dropped += first + n - capacity
			n = capacity - first
		}
		if n <= 0 {
			continue
		}
		groups = append(groups, InstanceGroup{
			Kind:          kind,
			FirstInstance: uint32(first),
			InstanceCount: uint32(n),
		})
		first += n
	}
	return groups, dropped
}

// Camera is a perspective camera looking at a target.
type Camera struct {
	Position mgl32.Vec3
	Target   mgl32.Vec3
	Up       mgl32.Vec3
	// FovY in degrees.
	FovY float32
	Near float32
	Far  float32
}

func DefaultCamera() Camera {
	return Camera{
		Position: mgl32.Vec3{2, 2, 2},
		Target:   mgl32.Vec3{0, 0, 0},
		Up:       mgl32.Vec3{0, 1, 0},
		FovY:     45,
		Near:     0.1,
		Far:      100,
	}
}

// CameraUniform is the layout of binding 0 of the per-frame set.
type CameraUniform struct {
	View mgl32.Mat4
	Proj mgl32.Mat4
}

// CameraUniformSize is the size of CameraUniform in bytes.
const CameraUniformSize = uint64(unsafe.Sizeof(CameraUniform{}))

// InstanceStride is the size of one model matrix in the instance buffer.
const InstanceStride = uint64(unsafe.Sizeof(mgl32.Mat4{}))

// Uniform computes the view and projection matrices for extent. The result
// only depends on the camera and the extent.
func (c Camera) Uniform(extent gpu.Extent2D) CameraUniform {
	aspect := float32(1)
	if extent.Height != 0 {
		aspect = float32(extent.Width) / float32(extent.Height)
	}
	proj := mgl32.Perspective(math.DegToRad(c.FovY), aspect, c.Near, c.Far)
	// Vulkan clip space has y pointing down
	proj[5] *= -1
	return CameraUniform{
		View: mgl32.LookAtV(c.Position, c.Target, c.Up),
		Proj: proj,
	}
}

// Bytes returns the uniform in the layout the shader expects.
func (u CameraUniform) Bytes() []byte {
	out := make([]byte, CameraUniformSize)
	copy(out, unsafe.Slice((*byte)(unsafe.Pointer(&u)), CameraUniformSize))
	return out
}

// ModelMatrix returns the model matrix of an instance at pos.
func ModelMatrix(pos mgl32.Vec3) mgl32.Mat4 {
	return mgl32.Translate3D(pos.X(), pos.Y(), pos.Z())
}

func matrixBytes(m *mgl32.Mat4) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(m)), InstanceStride)
}
