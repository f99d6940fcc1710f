package testbed

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/tessera/engine/core"
	"github.com/spaghettifunk/tessera/engine/renderer"
)

type fakeHost struct {
	input  *core.Input
	camera *renderer.Camera
}

func (h *fakeHost) Input() *core.Input       { return h.input }
func (h *fakeHost) Camera() *renderer.Camera { return h.camera }

func TestInitializePopulatesScene(t *testing.T) {
	g := NewTestGame(nil)
	scene := renderer.NewScene()
	if err := g.Initialize(scene); err != nil {
		t.Fatal(err)
	}
	want := map[renderer.MeshKind]int{
		renderer.MeshCube:   cubeCount,
		renderer.MeshGround: 1,
		renderer.MeshSprite: 2,
		renderer.MeshModel:  1,
	}
	for kind, n := range want {
		if got := len(scene.Positions(kind)); got != n {
			t.Fatalf("%s has %d instances, want %d", kind, got, n)
		}
	}
}

func TestUpdateKeepsCubesOnOrbit(t *testing.T) {
	g := NewTestGame(nil)
	scene := renderer.NewScene()
	if err := g.Initialize(scene); err != nil {
		t.Fatal(err)
	}
	before := scene.Positions(renderer.MeshCube)[0]
	for i := 0; i < 10; i++ {
		if err := g.Update(0.1, scene); err != nil {
			t.Fatal(err)
		}
	}
	cubes := scene.Positions(renderer.MeshCube)
	if cubes[0] == before {
		t.Fatal("cubes did not move")
	}
	for _, c := range cubes {
		r := math.Hypot(float64(c.X()), float64(c.Z()))
		if math.Abs(r-orbitRadius) > 1e-4 {
			t.Fatalf("cube %v is %f from the center, want %f", c, r, orbitRadius)
		}
	}
}

func TestPauseStopsAnimation(t *testing.T) {
	g := NewTestGame(nil)
	in := core.NewInput(nil)
	g.Bind(&fakeHost{input: in})
	scene := renderer.NewScene()
	if err := g.Initialize(scene); err != nil {
		t.Fatal(err)
	}

	in.ProcessKey(core.KEY_P, true)
	if err := g.Update(0.1, scene); err != nil {
		t.Fatal(err)
	}
	in.Update()
	frozen := scene.Positions(renderer.MeshCube)[0]
	if err := g.Update(0.5, scene); err != nil {
		t.Fatal(err)
	}
	if got := scene.Positions(renderer.MeshCube)[0]; got != frozen {
		t.Fatalf("cube moved from %v to %v while paused", frozen, got)
	}
}

func TestSteerMovesCamera(t *testing.T) {
	g := NewTestGame(nil)
	in := core.NewInput(nil)
	cam := renderer.DefaultCamera()
	g.Bind(&fakeHost{input: in, camera: &cam})
	scene := renderer.NewScene()
	if err := g.Initialize(scene); err != nil {
		t.Fatal(err)
	}

	start := cam.Position
	in.ProcessKey(core.KEY_W, true)
	if err := g.Update(0.5, scene); err != nil {
		t.Fatal(err)
	}
	moved := cam.Position.Sub(start)
	if math.Abs(float64(moved.Len())-cameraSpeed*0.5) > 1e-4 {
		t.Fatalf("camera moved %f, want %f", moved.Len(), cameraSpeed*0.5)
	}
	if moved.Dot(cam.Forward()) <= 0 {
		t.Fatal("W should move the camera forward")
	}

	in.ProcessKey(core.KEY_W, false)
	in.ProcessKey(core.KEY_RIGHT, true)
	dist := cam.Position.Sub(cam.Target).Len()
	if err := g.Update(0.5, scene); err != nil {
		t.Fatal(err)
	}
	if d := cam.Position.Sub(cam.Target).Len(); mgl32.Abs(d-dist) > 1e-4 {
		t.Fatalf("orbit changed the target distance from %f to %f", dist, d)
	}
}
