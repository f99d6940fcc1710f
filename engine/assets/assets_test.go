package assets

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/tessera/engine/assets/loaders"
	"github.com/spaghettifunk/tessera/engine/core"
)

func spirv() []byte {
	code := make([]byte, 20)
	binary.LittleEndian.PutUint32(code, loaders.SpirvMagic)
	return code
}

func newRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "shaders"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "shaders", "vert.spv"), spirv(), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestDetermineAssetType(t *testing.T) {
	tests := map[string]loaders.ResourceType{
		"shaders/frag.spv":   loaders.ResourceTypeShader,
		"textures/Crate.PNG": loaders.ResourceTypeImage,
		"textures/a.webp":    loaders.ResourceTypeImage,
		"models/cube.obj":    loaders.ResourceTypeModel,
		"models/cube.mtl":    loaders.ResourceTypeMaterial,
		"readme.md":          loaders.ResourceTypeNone,
	}
	for path, want := range tests {
		if got := DetermineAssetType(path); got != want {
			t.Errorf("DetermineAssetType(%q) = %s, want %s", path, got, want)
		}
	}
}

func TestAssetManagerLoad(t *testing.T) {
	am, err := NewAssetManager(newRoot(t), nil)
	if err != nil {
		t.Fatal(err)
	}
	if am.Count() != 1 {
		t.Fatalf("indexed %d assets, want 1", am.Count())
	}

	res, err := am.Load("shaders/vert.spv", nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.DataSize != 20 {
		t.Fatalf("size = %d, want 20", res.DataSize)
	}

	if _, err := am.Load("shaders/frag.spv", nil); !errors.Is(err, core.ErrAssetNotFound) {
		t.Fatalf("err = %v, want ErrAssetNotFound", err)
	}
	if _, err := am.Load("notes.txt", nil); err == nil {
		t.Fatal("expected an error for an unknown asset type")
	}
}

func TestAssetManagerMissingRoot(t *testing.T) {
	_, err := NewAssetManager(filepath.Join(t.TempDir(), "nope"), nil)
	if !errors.Is(err, core.ErrAssetNotFound) {
		t.Fatalf("err = %v, want ErrAssetNotFound", err)
	}
}

func TestAssetManagerWatchFiresOnShaderWrite(t *testing.T) {
	root := newRoot(t)
	bus := core.NewEventBus()
	changed := make(chan uint32, 8)
	bus.Register(core.EVENT_CODE_ASSET_CHANGED, "test", func(code core.SystemEventCode, sender interface{}, data core.EventContext) bool {
		changed <- data.Data.U32[0]
		return true
	})

	am, err := NewAssetManager(root, bus)
	if err != nil {
		t.Fatal(err)
	}
	if err := am.Watch(); err != nil {
		t.Fatal(err)
	}
	defer am.Shutdown()

	if err := os.WriteFile(filepath.Join(root, "shaders", "frag.spv"), spirv(), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-changed:
		if loaders.ResourceType(got) != loaders.ResourceTypeShader {
			t.Fatalf("changed type = %d, want shader", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change event within 5s")
	}
}
