package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/tessera/engine/core"
	"github.com/spaghettifunk/tessera/engine/renderer"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	def := DefaultConfig()
	if cfg.Window != def.Window || cfg.Renderer != def.Renderer || cfg.Camera != def.Camera {
		t.Fatalf("got %+v, want defaults %+v", cfg, def)
	}
	if err := def.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
log_level = "debug"

[window]
title = "demo"
width = 640
height = 480

[renderer]
present_mode = "fifo"
depth = false
indexed = false
max_instances = 16
clear_color = [1.0, 0.0, 0.0, 1.0]

[assets]
root = "data"
hot_reload = false

[assets.textures]
sprite = "textures/other.png"

[camera]
position = [0.0, 0.0, 5.0]
target = [0.0, 0.0, 0.0]
fov = 60.0
near = 0.5
far = 50.0

[jobs]
workers = 2
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LogLevel != core.DebugLevel || cfg.Window.Title != "demo" || cfg.Window.Width != 640 {
		t.Fatalf("top level and window not applied: %+v", cfg)
	}
	if cfg.Assets.Root != "data" || cfg.Assets.HotReload || cfg.Jobs.Workers != 2 {
		t.Fatalf("assets and jobs not applied: %+v", cfg)
	}
	if cfg.Assets.Textures["sprite"] != "textures/other.png" {
		t.Fatalf("sprite texture = %q", cfg.Assets.Textures["sprite"])
	}

	rc, err := cfg.RendererConfig()
	if err != nil {
		t.Fatalf("RendererConfig: %v", err)
	}
	want := renderer.Config{
		PresentPolicy: renderer.PresentFifo,
		MaxInstances:  16,
		ClearColor:    [4]float32{1, 0, 0, 1},
	}
	if rc != want {
		t.Fatalf("renderer config = %+v, want %+v", rc, want)
	}

	cam := cfg.Camera3D()
	if cam.FovY != 60 || cam.Near != 0.5 || cam.Far != 50 || cam.Position[2] != 5 {
		t.Fatalf("camera = %+v", cam)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed", "[window\nwidth = 1"},
		{"unknown key", "[window]\ncolour = 3"},
		{"wrong type", "[window]\nwidth = \"wide\""},
		{"bad log level", `log_level = "loud"`},
		{"zero width", "[window]\nwidth = 0"},
		{"bad present mode", "[renderer]\npresent_mode = \"vsync-ish\""},
		{"no instances", "[renderer]\nmax_instances = 0"},
		{"unknown texture mesh", "[assets.textures]\nteapot = \"t.png\""},
		{"far before near", "[camera]\nnear = 10.0\nfar = 1.0"},
		{"camera on target", "[camera]\nposition = [0.0, 0.0, 0.0]\ntarget = [0.0, 0.0, 0.0]"},
		{"no workers", "[jobs]\nworkers = 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			if !errors.Is(err, core.ErrInvalidConfig) {
				t.Fatalf("LoadConfig error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestTexturePaths(t *testing.T) {
	cfg := DefaultConfig()
	paths, err := cfg.texturePaths()
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 3 {
		t.Fatalf("got %d texture paths, want 3", len(paths))
	}
	if _, ok := paths[renderer.MeshModel]; ok {
		t.Fatal("the model texture should come from its material library")
	}
	if paths[renderer.MeshGround] != cfg.Assets.Textures["ground"] {
		t.Fatalf("ground texture = %q", paths[renderer.MeshGround])
	}
}
