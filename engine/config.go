package engine

import (
	"bytes"
	"os"
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/tessera/engine/core"
	"github.com/spaghettifunk/tessera/engine/renderer"
)

// DefaultConfigFile is looked up in the working directory.
const DefaultConfigFile = "tessera.toml"

type Config struct {
	LogLevel core.LogLevel  `toml:"log_level"`
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Assets   AssetsConfig   `toml:"assets"`
	Camera   CameraConfig   `toml:"camera"`
	Jobs     JobsConfig     `toml:"jobs"`
}

type WindowConfig struct {
	Title  string `toml:"title"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type RendererConfig struct {
	// PresentMode is one of "uncapped", "mailbox" or "fifo".
	PresentMode  string     `toml:"present_mode"`
	Depth        bool       `toml:"depth"`
	Indexed      bool       `toml:"indexed"`
	MaxInstances int        `toml:"max_instances"`
	ClearColor   [4]float32 `toml:"clear_color"`
	Validation   bool       `toml:"validation"`
}

type AssetsConfig struct {
	Root      string `toml:"root"`
	HotReload bool   `toml:"hot_reload"`
	// Model is the OBJ file drawn as the "model" mesh. Empty disables it.
	Model string `toml:"model"`
	// Textures maps a mesh kind name to its texture file. Without an entry
	// the model uses the diffuse map of its material library.
	Textures map[string]string `toml:"textures"`
}

type CameraConfig struct {
	Position [3]float32 `toml:"position"`
	Target   [3]float32 `toml:"target"`
	Fov      float32    `toml:"fov"`
	Near     float32    `toml:"near"`
	Far      float32    `toml:"far"`
}

type JobsConfig struct {
	Workers int `toml:"workers"`
}

func DefaultConfig() *Config {
	cam := renderer.DefaultCamera()
	return &Config{
		LogLevel: core.InfoLevel,
		Window: WindowConfig{
			Title:  "tessera",
			Width:  1280,
			Height: 720,
		},
		Renderer: RendererConfig{
			PresentMode:  string(renderer.PresentMailbox),
			Depth:        true,
			Indexed:      true,
			MaxInstances: renderer.DefaultMaxInstances,
			ClearColor:   [4]float32{0.05, 0.05, 0.08, 1},
		},
		Assets: AssetsConfig{
			Root:      "assets",
			HotReload: true,
			Model:     "models/pyramid.obj",
			Textures: map[string]string{
				"cube":   "textures/crate.png",
				"ground": "textures/ground.png",
				"sprite": "textures/sprite.png",
			},
		},
		Camera: CameraConfig{
			Position: cam.Position,
			Target:   cam.Target,
			Fov:      cam.FovY,
			Near:     cam.Near,
			Far:      cam.Far,
		},
		Jobs: JobsConfig{
			Workers: runtime.NumCPU(),
		},
	}
}

// LoadConfig reads path on top of the defaults. A missing file yields the
// defaults; unknown keys and malformed values are errors.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		core.LogInfo("no config at %s, using defaults", path)
		return cfg, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %s", path)
	}

	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, errors.Wrapf(core.ErrInvalidConfig, "%s:%d:%d: %s", path, row, col, derr.Error())
		}
		return nil, errors.Wrapf(core.ErrInvalidConfig, "%s: %s", path, err.Error())
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.LogLevel {
	case core.DebugLevel, core.InfoLevel, core.WarnLevel, core.ErrorLevel:
	default:
		return errors.Wrapf(core.ErrInvalidConfig, "unknown log level %q", c.LogLevel)
	}
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return errors.Wrapf(core.ErrInvalidConfig, "window size %dx%d", c.Window.Width, c.Window.Height)
	}
	if _, err := renderer.ParsePresentPolicy(c.Renderer.PresentMode); err != nil {
		return err
	}
	if c.Renderer.MaxInstances <= 0 {
		return errors.Wrapf(core.ErrInvalidConfig, "max_instances must be positive, got %d", c.Renderer.MaxInstances)
	}
	if c.Assets.Root == "" {
		return errors.Wrap(core.ErrInvalidConfig, "assets root is empty")
	}
	if _, err := c.texturePaths(); err != nil {
		return err
	}
	if c.Camera.Fov <= 0 || c.Camera.Fov >= 180 {
		return errors.Wrapf(core.ErrInvalidConfig, "camera fov %.1f out of range", c.Camera.Fov)
	}
	if c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		return errors.Wrapf(core.ErrInvalidConfig, "camera near %.3f / far %.3f", c.Camera.Near, c.Camera.Far)
	}
	if mgl32.Vec3(c.Camera.Position).ApproxEqual(mgl32.Vec3(c.Camera.Target)) {
		return errors.Wrap(core.ErrInvalidConfig, "camera position equals its target")
	}
	if c.Jobs.Workers <= 0 {
		return errors.Wrapf(core.ErrInvalidConfig, "jobs workers must be positive, got %d", c.Jobs.Workers)
	}
	return nil
}

// RendererConfig converts the file settings to what the renderer takes.
func (c *Config) RendererConfig() (renderer.Config, error) {
	policy, err := renderer.ParsePresentPolicy(c.Renderer.PresentMode)
	if err != nil {
		return renderer.Config{}, err
	}
	return renderer.Config{
		PresentPolicy: policy,
		Depth:         c.Renderer.Depth,
		Indexed:       c.Renderer.Indexed,
		MaxInstances:  c.Renderer.MaxInstances,
		ClearColor:    c.Renderer.ClearColor,
	}, nil
}

func (c *Config) Camera3D() renderer.Camera {
	cam := renderer.DefaultCamera()
	cam.Position = c.Camera.Position
	cam.Target = c.Camera.Target
	cam.FovY = c.Camera.Fov
	cam.Near = c.Camera.Near
	cam.Far = c.Camera.Far
	return cam
}

// texturePaths resolves the texture table keys to mesh kinds.
func (c *Config) texturePaths() (map[renderer.MeshKind]string, error) {
	paths := make(map[renderer.MeshKind]string, len(c.Assets.Textures))
	for name, path := range c.Assets.Textures {
		kind, ok := meshKindByName(name)
		if !ok {
			return nil, errors.Wrapf(core.ErrInvalidConfig, "texture for unknown mesh %q", name)
		}
		paths[kind] = path
	}
	return paths, nil
}

func meshKindByName(name string) (renderer.MeshKind, bool) {
	for _, k := range renderer.MeshKinds() {
		if k.String() == name {
			return k, true
		}
	}
	return 0, false
}
