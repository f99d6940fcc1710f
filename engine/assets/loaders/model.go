package loaders

import (
	"bufio"
	"bytes"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/tessera/engine/core"
)

type ModelVertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	Color    mgl32.Vec3
	UV       mgl32.Vec2
}

type ModelResourceData struct {
	Vertices  []ModelVertex
	Indices   []uint32
	Materials map[string]*Material
	// DiffuseMap of the first material that has one, if any.
	DiffuseMap string
}

// ModelLoader reads Wavefront OBJ files. Polygons are triangulated as fans and
// vertices sharing the same position/uv/normal/material are merged.
type ModelLoader struct {
	materials MaterialLoader
}

func (ml *ModelLoader) Load(path string, params interface{}) (*Resource, error) {
	data, err := readAsset(path)
	if err != nil {
		return nil, err
	}
	model, err := ml.parseOBJ(data, filepath.Dir(path))
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return &Resource{
		Name:     filepath.Base(path),
		FullPath: path,
		DataSize: uint64(len(model.Vertices)),
		Data:     model,
	}, nil
}

func (ml *ModelLoader) Unload(r *Resource) error {
	r.Data = nil
	return nil
}

type objKey struct {
	v, vt, vn int
	material  string
}

func (ml *ModelLoader) parseOBJ(data []byte, dir string) (*ModelResourceData, error) {
	var (
		positions []mgl32.Vec3
		uvs       []mgl32.Vec2
		normals   []mgl32.Vec3
		material  string
	)
	model := &ModelResourceData{
		Materials: make(map[string]*Material),
	}
	seen := make(map[objKey]uint32)

	malformed := func(line int, format string, args ...interface{}) error {
		return errors.Wrapf(core.ErrMalformedModel, "line %d: %s", line, fmt.Sprintf(format, args...))
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case "v":
			v, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, malformed(lineNo, "%s", err.Error())
			}
			positions = append(positions, mgl32.Vec3{v[0], v[1], v[2]})
		case "vt":
			v, err := parseFloats(fields[1:], 2)
			if err != nil {
				return nil, malformed(lineNo, "%s", err.Error())
			}
			// OBJ has v pointing up, images have rows going down
			uvs = append(uvs, mgl32.Vec2{v[0], 1 - v[1]})
		case "vn":
			v, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, malformed(lineNo, "%s", err.Error())
			}
			normals = append(normals, mgl32.Vec3{v[0], v[1], v[2]})
		case "mtllib":
			if len(fields) < 2 {
				return nil, malformed(lineNo, "mtllib without a file")
			}
			res, err := ml.materials.Load(filepath.Join(dir, fields[1]), nil)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", lineNo)
			}
			for name, m := range res.Data.(map[string]*Material) {
				model.Materials[name] = m
				if model.DiffuseMap == "" && m.DiffuseMap != "" {
					model.DiffuseMap = m.DiffuseMap
				}
			}
		case "usemtl":
			if len(fields) < 2 {
				return nil, malformed(lineNo, "usemtl without a name")
			}
			material = fields[1]
		case "f":
			if len(fields) < 4 {
				return nil, malformed(lineNo, "face needs at least 3 vertices, got %d", len(fields)-1)
			}
			corners := make([]uint32, 0, len(fields)-1)
			for _, tok := range fields[1:] {
				key, err := parseFaceVertex(tok, len(positions), len(uvs), len(normals))
				if err != nil {
					return nil, malformed(lineNo, "%s", err.Error())
				}
				key.material = material

				idx, ok := seen[key]
				if !ok {
					idx = uint32(len(model.Vertices))
					model.Vertices = append(model.Vertices, buildVertex(key, positions, uvs, normals, model.Materials))
					seen[key] = idx
				}
				corners = append(corners, idx)
			}
			for i := 1; i+1 < len(corners); i++ {
				model.Indices = append(model.Indices, corners[0], corners[i], corners[i+1])
			}
		default:
			// o, g, s and l carry nothing the renderer uses.
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to scan model")
	}
	if len(model.Indices) == 0 {
		return nil, errors.Wrap(core.ErrMalformedModel, "model has no faces")
	}
	return model, nil
}

// parseFaceVertex resolves one "v", "v/vt", "v//vn" or "v/vt/vn" token to
// zero based indices, -1 meaning absent. Negative OBJ indices count from the
// end of the lists read so far.
func parseFaceVertex(tok string, nv, nvt, nvn int) (objKey, error) {
	parts := strings.Split(tok, "/")
	if len(parts) > 3 {
		return objKey{}, errors.Newf("bad face vertex %q", tok)
	}
	key := objKey{v: -1, vt: -1, vn: -1}
	counts := []int{nv, nvt, nvn}
	out := []*int{&key.v, &key.vt, &key.vn}
	for i, p := range parts {
		if p == "" {
			if i == 0 {
				return objKey{}, errors.Newf("face vertex %q has no position", tok)
			}
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return objKey{}, errors.Newf("bad index %q in %q", p, tok)
		}
		if n < 0 {
			n = counts[i] + n
		} else {
			n--
		}
		if n < 0 || n >= counts[i] {
			return objKey{}, errors.Newf("index %q in %q is out of range", p, tok)
		}
		*out[i] = n
	}
	return key, nil
}

func buildVertex(key objKey, positions []mgl32.Vec3, uvs []mgl32.Vec2, normals []mgl32.Vec3, materials map[string]*Material) ModelVertex {
	v := ModelVertex{
		Position: positions[key.v],
		Color:    mgl32.Vec3{1, 1, 1},
	}
	if key.vt >= 0 {
		v.UV = uvs[key.vt]
	}
	if key.vn >= 0 {
		v.Normal = normals[key.vn]
	}
	if m, ok := materials[key.material]; ok {
		v.Color = m.Diffuse
	}
	return v
}
