package platform

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/tessera/engine/core"
)

func TestTranslateKey(t *testing.T) {
	tests := []struct {
		name string
		key  glfw.Key
		want core.KeyCode
		ok   bool
	}{
		{"escape", glfw.KeyEscape, core.KEY_ESCAPE, true},
		{"space", glfw.KeySpace, core.KEY_SPACE, true},
		{"letter", glfw.KeyW, core.KEY_W, true},
		{"first letter", glfw.KeyA, core.KEY_A, true},
		{"digit", glfw.Key7, core.KeyCode('7'), true},
		{"function", glfw.KeyF1, core.KEY_F1, true},
		{"arrow", glfw.KeyDown, core.KEY_DOWN, true},
		{"unmapped", glfw.KeyCapsLock, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := translateKey(tt.key)
			if ok != tt.ok || got != tt.want {
				t.Fatalf("translateKey(%d) = %d, %t; want %d, %t", tt.key, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestFramebufferCallbackFiresResize(t *testing.T) {
	bus := core.NewEventBus()
	var w, h uint32
	bus.Register(core.EVENT_CODE_RESIZED, "test", func(code core.SystemEventCode, sender interface{}, data core.EventContext) bool {
		w, h = data.Data.U32[0], data.Data.U32[1]
		return true
	})
	p := New(bus, core.NewInput(bus))
	p.framebufferSizeCallback(nil, 800, 600)
	if w != 800 || h != 600 {
		t.Fatalf("resize event carried %dx%d, want 800x600", w, h)
	}
}

func TestKeyCallbackUpdatesInput(t *testing.T) {
	bus := core.NewEventBus()
	in := core.NewInput(bus)
	p := New(bus, in)

	p.keyCallback(nil, glfw.KeyEscape, 0, glfw.Press, 0)
	if !in.IsKeyDown(core.KEY_ESCAPE) {
		t.Fatal("escape should be down after a press")
	}
	p.keyCallback(nil, glfw.KeyEscape, 0, glfw.Repeat, 0)
	p.keyCallback(nil, glfw.KeyEscape, 0, glfw.Release, 0)
	if in.IsKeyDown(core.KEY_ESCAPE) {
		t.Fatal("escape should be up after a release")
	}
}
