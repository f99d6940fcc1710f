package renderer

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

// faceNormal is the normal of a counter clockwise triangle.
func faceNormal(a, b, c Vertex) mgl32.Vec3 {
	return b.Position.Sub(a.Position).Cross(c.Position.Sub(a.Position)).Normalize()
}

func TestGenerateCube(t *testing.T) {
	vertices, indices := GenerateCube(2, 2, 2, 1, 1)
	if len(vertices) != 24 || len(indices) != 36 {
		t.Fatalf("cube has %d vertices and %d indices, want 24 and 36", len(vertices), len(indices))
	}
	for i := 0; i < len(indices); i += 3 {
		a, b, c := vertices[indices[i]], vertices[indices[i+1]], vertices[indices[i+2]]
		n := faceNormal(a, b, c)
		// counter clockwise triangles face away from the center
		center := a.Position.Add(b.Position).Add(c.Position).Mul(1.0 / 3)
		if n.Dot(center) <= 0 {
			t.Fatalf("triangle %d faces inwards (normal %v)", i/3, n)
		}
	}
	for _, v := range vertices {
		for _, c := range v.Position {
			if c != 1 && c != -1 {
				t.Fatalf("vertex %v is not on the unit box", v.Position)
			}
		}
	}
}

func TestGeneratePlane(t *testing.T) {
	vertices, indices := GeneratePlane(10, 10, 2, 3, 4, 4)
	if len(vertices) != 2*3*4 || len(indices) != 2*3*6 {
		t.Fatalf("plane has %d vertices and %d indices", len(vertices), len(indices))
	}
	up := mgl32.Vec3{0, 1, 0}
	for i := 0; i < len(indices); i += 3 {
		n := faceNormal(vertices[indices[i]], vertices[indices[i+1]], vertices[indices[i+2]])
		if !n.ApproxEqual(up) {
			t.Fatalf("triangle %d normal %v, want up", i/3, n)
		}
	}
	for _, v := range vertices {
		if v.Position.Y() != 0 || v.Position.X() < -5 || v.Position.X() > 5 {
			t.Fatalf("vertex %v outside the plane", v.Position)
		}
		if v.UV.X() > 4 || v.UV.Y() > 4 {
			t.Fatalf("uv %v exceeds the tiling", v.UV)
		}
	}
}

func TestGenerateSprite(t *testing.T) {
	vertices := GenerateSprite(1, 0)
	if len(vertices) != 6 {
		t.Fatalf("sprite has %d vertices, want 6", len(vertices))
	}
	toward := mgl32.Vec3{0, 0, 1}
	for i := 0; i < len(vertices); i += 3 {
		if n := faceNormal(vertices[i], vertices[i+1], vertices[i+2]); !n.ApproxEqual(toward) {
			t.Fatalf("triangle %d normal %v, want +z", i/3, n)
		}
	}
	// zero height defaults to one
	if vertices[1].Position.Y() != 0.5 {
		t.Fatalf("top edge at %f, want 0.5", vertices[1].Position.Y())
	}
}

func TestPrimitivesConsume(t *testing.T) {
	m := NewMeshAggregator()
	cv, ci := GenerateCube(1, 1, 1, 1, 1)
	gv, gi := GeneratePlane(10, 10, 1, 1, 1, 1)
	if err := m.Consume(MeshCube, cv, ci); err != nil {
		t.Fatal(err)
	}
	if err := m.Consume(MeshGround, gv, gi); err != nil {
		t.Fatal(err)
	}
	if err := m.Consume(MeshSprite, GenerateSprite(1, 1), nil); err != nil {
		t.Fatal(err)
	}
	r, ok := m.Range(MeshSprite)
	if !ok || r.FirstVertex != 28 || r.VertexCount != 6 || r.IndexCount != 0 {
		t.Fatalf("sprite range = %+v", r)
	}
}
