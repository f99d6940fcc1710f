package testbed

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/tessera/engine"
	"github.com/spaghettifunk/tessera/engine/core"
	"github.com/spaghettifunk/tessera/engine/renderer"
)

const (
	orbitRadius = 3.0
	// radians per second
	orbitSpeed = 0.6
	cubeCount  = 3
	// units and radians per second
	cameraSpeed = 4.0
	turnSpeed   = 1.2
)

// Host is what the game needs from the running engine.
type Host interface {
	Input() *core.Input
	// Camera is nil until the renderer exists.
	Camera() *renderer.Camera
}

// TestGame is a small scene: a ring of cubes orbiting a model over the
// ground, with bobbing sprites. P pauses the animation, WASD moves the
// camera and the arrow keys orbit it.
type TestGame struct {
	*engine.Game
}

type gameState struct {
	host    Host
	elapsed float64
	paused  bool

	cubes   []mgl32.Vec3
	sprites []mgl32.Vec3

	width  uint32
	height uint32
}

func NewTestGame(cfg *engine.Config) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			Config: cfg,
			State: &gameState{
				cubes:   make([]mgl32.Vec3, cubeCount),
				sprites: make([]mgl32.Vec3, 2),
			},
		},
	}
	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown
	return tg
}

// Bind gives the game access to the keyboard and the camera.
func (g *TestGame) Bind(host Host) {
	g.State.(*gameState).host = host
}

func (g *TestGame) Initialize(scene *renderer.Scene) error {
	core.LogDebug("TestGame Initialize fn....")
	state := g.State.(*gameState)

	scene.Add(renderer.MeshGround, mgl32.Vec3{0, -0.5, 0})
	scene.Add(renderer.MeshModel, mgl32.Vec3{0, -0.5, 0})
	state.place(0)
	scene.Set(renderer.MeshCube, state.cubes)
	scene.Set(renderer.MeshSprite, state.sprites)
	return nil
}

func (g *TestGame) Update(deltaTime float64, scene *renderer.Scene) error {
	state := g.State.(*gameState)
	if state.host != nil {
		in := state.host.Input()
		if in.KeyPressed(core.KEY_P) {
			state.paused = !state.paused
			core.LogInfo("animation paused: %t", state.paused)
		}
		if cam := state.host.Camera(); cam != nil {
			steer(in, cam, float32(deltaTime))
		}
	}
	if state.paused {
		return nil
	}
	state.elapsed += deltaTime
	state.place(state.elapsed)
	scene.Set(renderer.MeshCube, state.cubes)
	scene.Set(renderer.MeshSprite, state.sprites)
	return nil
}

// place positions every animated instance for time t, in seconds.
func (s *gameState) place(t float64) {
	for i := range s.cubes {
		angle := t*orbitSpeed + float64(i)*2*math.Pi/float64(len(s.cubes))
		s.cubes[i] = mgl32.Vec3{
			float32(orbitRadius * math.Cos(angle)),
			0.5,
			float32(orbitRadius * math.Sin(angle)),
		}
	}
	for i := range s.sprites {
		side := float32(2*i - 1)
		s.sprites[i] = mgl32.Vec3{side * 1.5, float32(1.5 + 0.25*math.Sin(t*2+float64(i))), -2}
	}
}

func steer(in *core.Input, cam *renderer.Camera, dt float32) {
	step := cameraSpeed * dt
	if in.IsKeyDown(core.KEY_W) {
		cam.MoveForward(step)
	}
	if in.IsKeyDown(core.KEY_S) {
		cam.MoveBackward(step)
	}
	if in.IsKeyDown(core.KEY_A) {
		cam.MoveLeft(step)
	}
	if in.IsKeyDown(core.KEY_D) {
		cam.MoveRight(step)
	}
	if in.IsKeyDown(core.KEY_UP) {
		cam.MoveUp(step)
	}
	if in.IsKeyDown(core.KEY_DOWN) {
		cam.MoveUp(-step)
	}
	if in.IsKeyDown(core.KEY_LEFT) {
		cam.Orbit(-turnSpeed * dt)
	}
	if in.IsKeyDown(core.KEY_RIGHT) {
		cam.Orbit(turnSpeed * dt)
	}
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.State.(*gameState)
	state.width = width
	state.height = height
	return nil
}

func (g *TestGame) Shutdown() error {
	core.LogDebug("TestGame Shutdown fn....")
	return nil
}
