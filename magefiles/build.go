//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

const shaderDir = "assets/shaders"

type Build mg.Namespace

// Compiles the GLSL sources under assets/shaders to SPIR-V with glslc.
func (Build) Shaders() error {
	for _, stage := range []struct{ src, out string }{
		{"shader.vert", "vert.spv"},
		{"shader.frag", "frag.spv"},
	} {
		if _, err := executeCmd("glslc", withArgs(stage.src, "-o", stage.out), withDir(shaderDir), withStream()); err != nil {
			return err
		}
	}
	return nil
}

// Builds the shaders and the binary into bin/.
func (Build) Engine() error {
	mg.Deps(Build.Shaders)
	if err := os.MkdirAll("bin", 0o755); err != nil {
		return fmt.Errorf("failed to create bin: %w", err)
	}
	_, err := executeCmd("go", withArgs("build", "-o", filepath.Join("bin", "tessera"), "."), withStream())
	return err
}

// Removes compiled shaders and binaries.
func Clean() error {
	for _, p := range []string{"bin", filepath.Join(shaderDir, "vert.spv"), filepath.Join(shaderDir, "frag.spv")} {
		if err := os.RemoveAll(p); err != nil {
			return err
		}
	}
	return nil
}
