package engine

import (
	"fmt"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/tessera/engine/assets"
	"github.com/spaghettifunk/tessera/engine/assets/loaders"
	"github.com/spaghettifunk/tessera/engine/core"
	"github.com/spaghettifunk/tessera/engine/platform"
	"github.com/spaghettifunk/tessera/engine/renderer"
	"github.com/spaghettifunk/tessera/engine/renderer/vulkan"
	"github.com/spaghettifunk/tessera/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently booting up
	EngineStageBooting
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// titleInterval is how often, in seconds, the window title shows new metrics.
const titleInterval = 1.0

type Engine struct {
	currentStage Stage
	gameInstance *Game
	config       *Config
	isRunning    bool

	bus          *core.EventBus
	input        *core.Input
	platform     *platform.Platform
	device       *vulkan.Device
	assetManager *assets.AssetManager
	jobs         *systems.JobSystem
	renderer     *renderer.Renderer
	scene        *renderer.Scene
	modelTexture string

	clock      *core.Clock
	metrics    *core.Metrics
	lastTime   float64
	titleTimer float64

	// set from the asset watcher goroutine, consumed between frames
	reloadPending atomic.Bool
}

func New(g *Game) (*Engine, error) {
	if g == nil || g.FnUpdate == nil {
		return nil, errors.New("game must provide an update function")
	}
	cfg := g.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	core.SetLogLevel(cfg.LogLevel)

	bus := core.NewEventBus()
	input := core.NewInput(bus)
	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		config:       cfg,
		bus:          bus,
		input:        input,
		platform:     platform.New(bus, input),
		scene:        renderer.NewScene(),
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
	}, nil
}

// Initialize opens the window and the device, loads every asset and hands the
// scene to the game. On error, Shutdown releases whatever was created.
func (e *Engine) Initialize() error {
	e.currentStage = EngineStageBooting
	cfg := e.config

	e.bus.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.bus.Register(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	e.bus.Register(core.EVENT_CODE_RESIZED, e, e.onResized)
	e.bus.Register(core.EVENT_CODE_ASSET_CHANGED, e, e.onAssetChanged)

	if err := e.platform.Startup(cfg.Window.Title, cfg.Window.Width, cfg.Window.Height); err != nil {
		return err
	}

	device, err := vulkan.Open(vulkan.Options{
		AppName:    cfg.Window.Title,
		Validation: cfg.Renderer.Validation,
		Surface:    e.platform,
	})
	if err != nil {
		return errors.Wrap(err, "failed to open the graphics device")
	}
	e.device = device

	if e.assetManager, err = assets.NewAssetManager(cfg.Assets.Root, e.bus); err != nil {
		return err
	}
	if e.jobs, err = systems.NewJobSystem(cfg.Jobs.Workers, renderer.MeshKindCount); err != nil {
		return errors.Wrap(err, "failed to start the job system")
	}

	e.currentStage = EngineStageInitializing
	rcfg, err := cfg.RendererConfig()
	if err != nil {
		return err
	}
	e.renderer, err = renderer.New(renderer.Context{
		Device:  e.device,
		Window:  e.platform,
		Shaders: e.loadShaders,
		Config:  rcfg,
		Jobs:    e.jobs,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create the renderer")
	}
	e.renderer.Camera = cfg.Camera3D()

	kinds, err := e.loadMeshes()
	if err != nil {
		return err
	}
	if err := e.loadTextures(kinds); err != nil {
		return err
	}

	if cfg.Assets.HotReload {
		if err := e.assetManager.Watch(); err != nil {
			// rendering works without it
			core.LogWarn("shader hot reload disabled: %s", err.Error())
		}
	}

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(e.scene); err != nil {
			return errors.Wrap(err, "game initialization failed")
		}
	}

	e.currentStage = EngineStageInitialized
	core.LogInfo("engine initialized")
	return nil
}

// Run drives frames until the window closes or a quit event arrives. Any
// render or update failure stops the loop and is returned.
func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return errors.New("engine is not initialized")
	}
	e.currentStage = EngineStageRunning
	e.isRunning = true

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning {
		e.platform.PollEvents()
		if e.platform.ShouldClose() {
			e.isRunning = false
			break
		}

		if e.reloadPending.Swap(false) {
			if err := e.renderer.ReloadPipeline(); err != nil {
				core.LogError("pipeline reload failed, keeping the previous one: %s", err.Error())
			} else {
				core.LogInfo("pipeline reloaded")
			}
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime

		if err := e.gameInstance.FnUpdate(delta, e.scene); err != nil {
			return errors.Wrap(err, "game update failed")
		}
		if err := e.renderer.Render(e.scene); err != nil {
			return errors.Wrap(err, "failed to render frame")
		}

		e.metrics.Update(delta)
		e.titleTimer += delta
		if e.titleTimer >= titleInterval {
			e.titleTimer = 0
			fps, ms := e.metrics.Frame()
			e.platform.SetTitle(frameTitle(e.config.Window.Title, fps, ms))
		}

		e.input.Update()
		e.lastTime = currentTime
	}
	return nil
}

// Shutdown releases everything in reverse order of creation. It is safe to
// call after a failed Initialize.
func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	e.isRunning = false
	var errs error

	if e.assetManager != nil {
		e.assetManager.Shutdown()
	}
	if e.gameInstance.FnShutdown != nil {
		errs = errors.CombineErrors(errs, e.gameInstance.FnShutdown())
	}
	if e.renderer != nil {
		errs = errors.CombineErrors(errs, e.renderer.Shutdown())
		e.renderer = nil
	}
	if e.jobs != nil {
		errs = errors.CombineErrors(errs, e.jobs.Shutdown())
		e.jobs = nil
	}
	if e.device != nil {
		e.device.Close()
		e.device = nil
	}
	if e.platform.Window != nil {
		errs = errors.CombineErrors(errs, e.platform.Shutdown())
	}
	e.bus.Shutdown()

	e.currentStage = EngineStageUninitialized
	core.LogInfo("engine shut down")
	return errs
}

func (e *Engine) Config() *Config {
	return e.config
}

func (e *Engine) Renderer() *renderer.Renderer {
	return e.renderer
}

func (e *Engine) Input() *core.Input {
	return e.input
}

// Camera is the renderer's camera, or nil before Initialize.
func (e *Engine) Camera() *renderer.Camera {
	if e.renderer == nil {
		return nil
	}
	return &e.renderer.Camera
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, context core.EventContext) bool {
	switch code {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning = false
		return true
	}
	return false
}

func (e *Engine) onKey(code core.SystemEventCode, sender interface{}, context core.EventContext) bool {
	if code != core.EVENT_CODE_KEY_PRESSED {
		return false
	}
	if core.KeyCode(context.Data.U16[0]) == core.KEY_ESCAPE {
		// NOTE: Technically firing an event to itself, but there may be other listeners.
		e.bus.Fire(core.EVENT_CODE_APPLICATION_QUIT, e, core.EventContext{})
		return true
	}
	return false
}

func (e *Engine) onResized(code core.SystemEventCode, sender interface{}, context core.EventContext) bool {
	width, height := context.Data.U32[0], context.Data.U32[1]
	if e.renderer != nil {
		// minimized windows are handled by the swapchain recreation
		e.renderer.Resized(width, height)
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(width, height); err != nil {
			core.LogError("game resize handler failed: %s", err.Error())
		}
	}
	// other listeners may want to know as well
	return false
}

// onAssetChanged runs on the watcher goroutine, so it only flags the reload.
func (e *Engine) onAssetChanged(code core.SystemEventCode, sender interface{}, context core.EventContext) bool {
	if loaders.ResourceType(context.Data.U32[0]) != loaders.ResourceTypeShader {
		return false
	}
	if e.reloadPending.CompareAndSwap(false, true) {
		core.LogDebug("shader changed on disk, reloading pipeline before the next frame")
	}
	return true
}

func frameTitle(base string, fps, frameMS float64) string {
	return fmt.Sprintf("%s (%.0f fps, %.2f ms)", base, fps, frameMS)
}
