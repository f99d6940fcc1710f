package loaders

import (
	"bufio"
	"bytes"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/tessera/engine/core"
)

// Material is one entry of an MTL library. Only the diffuse terms are used.
type Material struct {
	Name       string
	Diffuse    mgl32.Vec3
	DiffuseMap string // resolved relative to the library file
}

type MaterialLoader struct{}

func (ml *MaterialLoader) Load(path string, params interface{}) (*Resource, error) {
	data, err := readAsset(path)
	if err != nil {
		return nil, err
	}
	materials, err := parseMTL(data, filepath.Dir(path))
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return &Resource{
		Name:     filepath.Base(path),
		FullPath: path,
		DataSize: uint64(len(materials)),
		Data:     materials,
	}, nil
}

func (ml *MaterialLoader) Unload(r *Resource) error {
	r.Data = nil
	return nil
}

func parseMTL(data []byte, dir string) (map[string]*Material, error) {
	materials := make(map[string]*Material)
	var current *Material

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case "newmtl":
			if len(fields) < 2 {
				return nil, errors.Wrapf(core.ErrMalformedModel, "line %d: newmtl without a name", lineNo)
			}
			current = &Material{
				Name:    fields[1],
				Diffuse: mgl32.Vec3{1, 1, 1},
			}
			materials[current.Name] = current
		case "Kd":
			if current == nil {
				return nil, errors.Wrapf(core.ErrMalformedModel, "line %d: Kd before newmtl", lineNo)
			}
			v, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, errors.Wrapf(core.ErrMalformedModel, "line %d: %s", lineNo, err.Error())
			}
			current.Diffuse = mgl32.Vec3{v[0], v[1], v[2]}
		case "map_Kd":
			if current == nil || len(fields) < 2 {
				return nil, errors.Wrapf(core.ErrMalformedModel, "line %d: bad map_Kd", lineNo)
			}
			current.DiffuseMap = filepath.Join(dir, fields[len(fields)-1])
		default:
			// Ka, Ks, Ns, illum and friends do not affect this renderer.
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to scan material library")
	}
	return materials, nil
}

func parseFloats(fields []string, n int) ([]float32, error) {
	if len(fields) < n {
		return nil, errors.Newf("expected %d values, got %d", n, len(fields))
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, errors.Wrapf(err, "value %d", i)
		}
		out[i] = float32(f)
	}
	return out, nil
}
