package engine

import "github.com/spaghettifunk/tessera/engine/renderer"

// Game is the application driven by the engine. Only FnUpdate is required.
type Game struct {
	// Config used by the engine. Nil means DefaultConfig.
	Config       *Config
	State        interface{}
	FnInitialize Initialize
	FnUpdate     Update
	FnOnResize   OnResize
	FnShutdown   Shutdown
}

// Initialize populates the scene once every mesh and texture is loaded.
type Initialize func(scene *renderer.Scene) error

// Update mutates the scene before each frame. deltaTime is in seconds.
type Update func(deltaTime float64, scene *renderer.Scene) error
type OnResize func(width uint32, height uint32) error
type Shutdown func() error
