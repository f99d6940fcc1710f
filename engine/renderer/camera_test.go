package renderer

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestCameraDirections(t *testing.T) {
	cam := Camera{Position: mgl32.Vec3{0, 0, 5}, Target: mgl32.Vec3{0, 0, 0}, Up: mgl32.Vec3{0, 1, 0}}
	if f := cam.Forward(); !f.ApproxEqual(mgl32.Vec3{0, 0, -1}) {
		t.Fatalf("forward = %v", f)
	}
	if r := cam.Right(); !r.ApproxEqual(mgl32.Vec3{1, 0, 0}) {
		t.Fatalf("right = %v", r)
	}
	if l := cam.Left(); !l.ApproxEqual(mgl32.Vec3{-1, 0, 0}) {
		t.Fatalf("left = %v", l)
	}
}

func TestCameraMoveKeepsDirection(t *testing.T) {
	tests := []struct {
		name string
		move func(c *Camera)
		want mgl32.Vec3
	}{
		{"forward", func(c *Camera) { c.MoveForward(2) }, mgl32.Vec3{0, 0, 3}},
		{"backward", func(c *Camera) { c.MoveBackward(1) }, mgl32.Vec3{0, 0, 6}},
		{"left", func(c *Camera) { c.MoveLeft(1) }, mgl32.Vec3{-1, 0, 5}},
		{"right", func(c *Camera) { c.MoveRight(1) }, mgl32.Vec3{1, 0, 5}},
		{"up", func(c *Camera) { c.MoveUp(1) }, mgl32.Vec3{0, 1, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam := Camera{Position: mgl32.Vec3{0, 0, 5}, Target: mgl32.Vec3{0, 0, 0}, Up: mgl32.Vec3{0, 1, 0}}
			before := cam.Forward()
			tt.move(&cam)
			if !cam.Position.ApproxEqual(tt.want) {
				t.Fatalf("position = %v, want %v", cam.Position, tt.want)
			}
			if !cam.Forward().ApproxEqual(before) {
				t.Fatalf("forward changed from %v to %v", before, cam.Forward())
			}
		})
	}
}

func TestCameraOrbit(t *testing.T) {
	cam := Camera{Position: mgl32.Vec3{0, 2, 5}, Target: mgl32.Vec3{0, 0, 0}, Up: mgl32.Vec3{0, 1, 0}}
	cam.Orbit(mgl32.DegToRad(90))
	if !cam.Position.ApproxEqualThreshold(mgl32.Vec3{5, 2, 0}, 1e-5) {
		t.Fatalf("position after orbit = %v", cam.Position)
	}
	if cam.Target != (mgl32.Vec3{}) {
		t.Fatalf("orbit moved the target to %v", cam.Target)
	}
}
