package renderer

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Forward is the normalized direction from the camera to its target.
func (c *Camera) Forward() mgl32.Vec3 {
	d := c.Target.Sub(c.Position)
	if d.Len() == 0 {
		return mgl32.Vec3{0, 0, -1}
	}
	return d.Normalize()
}

func (c *Camera) Backward() mgl32.Vec3 {
	return c.Forward().Mul(-1)
}

// Right is perpendicular to Forward and Up.
func (c *Camera) Right() mgl32.Vec3 {
	r := c.Forward().Cross(c.Up)
	if r.Len() == 0 {
		return mgl32.Vec3{1, 0, 0}
	}
	return r.Normalize()
}

func (c *Camera) Left() mgl32.Vec3 {
	return c.Right().Mul(-1)
}

// MoveForward translates both the position and the target, so the view
// direction is kept.
func (c *Camera) MoveForward(amount float32) {
	c.translate(c.Forward().Mul(amount))
}

func (c *Camera) MoveBackward(amount float32) {
	c.translate(c.Backward().Mul(amount))
}

func (c *Camera) MoveLeft(amount float32) {
	c.translate(c.Left().Mul(amount))
}

func (c *Camera) MoveRight(amount float32) {
	c.translate(c.Right().Mul(amount))
}

func (c *Camera) MoveUp(amount float32) {
	c.translate(c.Up.Normalize().Mul(amount))
}

// Orbit rotates the position around the target about the up axis. Positive
// angles, in radians, turn counter clockwise seen from above.
func (c *Camera) Orbit(angle float32) {
	offset := c.Position.Sub(c.Target)
	rot := mgl32.HomogRotate3D(angle, c.Up.Normalize())
	c.Position = c.Target.Add(mgl32.TransformNormal(offset, rot))
}

func (c *Camera) translate(d mgl32.Vec3) {
	c.Position = c.Position.Add(d)
	c.Target = c.Target.Add(d)
}
