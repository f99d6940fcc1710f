package renderer

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/tessera/engine/core"
)

var white = mgl32.Vec3{1, 1, 1}

// GenerateCube builds an axis aligned box centered on the origin with four
// vertices and six indices per face. Faces are tinted so they stay
// distinguishable without lighting.
func GenerateCube(width, height, depth, tileX, tileY float32) ([]Vertex, []uint32) {
	width, height, depth = nonZero("width", width), nonZero("height", height), nonZero("depth", depth)
	tileX, tileY = nonZero("tileX", tileX), nonZero("tileY", tileY)

	minX, maxX := -width*0.5, width*0.5
	minY, maxY := -height*0.5, height*0.5
	minZ, maxZ := -depth*0.5, depth*0.5

	// corners per face in the order bottom-left, top-right, top-left, bottom-right
	faces := [6]struct {
		corners [4]mgl32.Vec3
		shade   float32
	}{
		// front
		{[4]mgl32.Vec3{{minX, minY, maxZ}, {maxX, maxY, maxZ}, {minX, maxY, maxZ}, {maxX, minY, maxZ}}, 1.0},
		// back
		{[4]mgl32.Vec3{{maxX, minY, minZ}, {minX, maxY, minZ}, {maxX, maxY, minZ}, {minX, minY, minZ}}, 0.6},
		// left
		{[4]mgl32.Vec3{{minX, minY, minZ}, {minX, maxY, maxZ}, {minX, maxY, minZ}, {minX, minY, maxZ}}, 0.75},
		// right
		{[4]mgl32.Vec3{{maxX, minY, maxZ}, {maxX, maxY, minZ}, {maxX, maxY, maxZ}, {maxX, minY, minZ}}, 0.85},
		// bottom
		{[4]mgl32.Vec3{{maxX, minY, maxZ}, {minX, minY, minZ}, {maxX, minY, minZ}, {minX, minY, maxZ}}, 0.5},
		// top
		{[4]mgl32.Vec3{{minX, maxY, maxZ}, {maxX, maxY, minZ}, {minX, maxY, minZ}, {maxX, maxY, maxZ}}, 0.95},
	}
	uvs := [4]mgl32.Vec2{{0, 0}, {tileX, tileY}, {0, tileY}, {tileX, 0}}

	vertices := make([]Vertex, 0, 24)
	indices := make([]uint32, 0, 36)
	for i, f := range faces {
		color := white.Mul(f.shade)
		for c := 0; c < 4; c++ {
			vertices = append(vertices, Vertex{Position: f.corners[c], Color: color, UV: uvs[c]})
		}
		indices = append(indices, quadIndices(uint32(i*4))...)
	}
	return vertices, indices
}

// GeneratePlane builds a ground plane on y = 0 facing up, split into
// segments. Every segment has its own four vertices.
func GeneratePlane(width, depth float32, xSegments, zSegments uint32, tileX, tileY float32) ([]Vertex, []uint32) {
	width, depth = nonZero("width", width), nonZero("depth", depth)
	tileX, tileY = nonZero("tileX", tileX), nonZero("tileY", tileY)
	if xSegments < 1 {
		xSegments = 1
	}
	if zSegments < 1 {
		zSegments = 1
	}

	segWidth := width / float32(xSegments)
	segDepth := depth / float32(zSegments)
	vertices := make([]Vertex, 0, xSegments*zSegments*4)
	indices := make([]uint32, 0, xSegments*zSegments*6)
	for y := uint32(0); y < zSegments; y++ {
		for x := uint32(0); x < xSegments; x++ {
			minX := float32(x)*segWidth - width*0.5
			minY := float32(y)*segDepth - depth*0.5
			maxX, maxY := minX+segWidth, minY+segDepth
			minU := float32(x) / float32(xSegments) * tileX
			minV := float32(y) / float32(zSegments) * tileY
			maxU := float32(x+1) / float32(xSegments) * tileX
			maxV := float32(y+1) / float32(zSegments) * tileY

			// the plane is laid out in x/y and folded onto x/-z
			base := uint32(len(vertices))
			vertices = append(vertices,
				Vertex{Position: mgl32.Vec3{minX, 0, -minY}, Color: white, UV: mgl32.Vec2{minU, minV}},
				Vertex{Position: mgl32.Vec3{maxX, 0, -maxY}, Color: white, UV: mgl32.Vec2{maxU, maxV}},
				Vertex{Position: mgl32.Vec3{minX, 0, -maxY}, Color: white, UV: mgl32.Vec2{minU, maxV}},
				Vertex{Position: mgl32.Vec3{maxX, 0, -minY}, Color: white, UV: mgl32.Vec2{maxU, minV}},
			)
			indices = append(indices, quadIndices(base)...)
		}
	}
	return vertices, indices
}

// GenerateSprite builds a camera facing quad of the given size as a plain
// triangle list. It has no indices, so it is always drawn from its vertex
// range.
func GenerateSprite(width, height float32) []Vertex {
	width, height = nonZero("width", width), nonZero("height", height)
	minX, maxX := -width*0.5, width*0.5
	minY, maxY := -height*0.5, height*0.5

	bl := Vertex{Position: mgl32.Vec3{minX, minY, 0}, Color: white, UV: mgl32.Vec2{0, 1}}
	tr := Vertex{Position: mgl32.Vec3{maxX, maxY, 0}, Color: white, UV: mgl32.Vec2{1, 0}}
	tl := Vertex{Position: mgl32.Vec3{minX, maxY, 0}, Color: white, UV: mgl32.Vec2{0, 0}}
	br := Vertex{Position: mgl32.Vec3{maxX, minY, 0}, Color: white, UV: mgl32.Vec2{1, 1}}
	return []Vertex{bl, tr, tl, bl, br, tr}
}

func quadIndices(base uint32) []uint32 {
	return []uint32{base + 0, base + 1, base + 2, base + 0, base + 3, base + 1}
}

func nonZero(name string, v float32) float32 {
	if v == 0 {
		core.LogWarn("%s must be nonzero. Defaulting to one.", name)
		return 1
	}
	return v
}
