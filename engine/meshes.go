package engine

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/tessera/engine/assets/loaders"
	"github.com/spaghettifunk/tessera/engine/core"
	"github.com/spaghettifunk/tessera/engine/renderer"
)

const (
	vertexShader   = "shaders/vert.spv"
	fragmentShader = "shaders/frag.spv"
)

// loadShaders reads and validates both SPIR-V modules. The renderer calls it
// on startup and on every pipeline reload.
func (e *Engine) loadShaders() ([]byte, []byte, error) {
	vert, err := e.assetManager.Load(vertexShader, nil)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to load vertex shader")
	}
	frag, err := e.assetManager.Load(fragmentShader, nil)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to load fragment shader")
	}
	return vert.Data.([]byte), frag.Data.([]byte), nil
}

// loadMeshes feeds the built-in meshes and the configured model to the
// aggregator and uploads them. It returns the kinds that were loaded.
func (e *Engine) loadMeshes() ([]renderer.MeshKind, error) {
	meshes := e.renderer.Meshes()
	kinds := make([]renderer.MeshKind, 0, renderer.MeshKindCount)

	cv, ci := renderer.GenerateCube(1, 1, 1, 1, 1)
	if err := meshes.Consume(renderer.MeshCube, cv, ci); err != nil {
		return nil, err
	}
	kinds = append(kinds, renderer.MeshCube)

	gv, gi := renderer.GeneratePlane(20, 20, 4, 4, 8, 8)
	if err := meshes.Consume(renderer.MeshGround, gv, gi); err != nil {
		return nil, err
	}
	kinds = append(kinds, renderer.MeshGround)

	if err := meshes.Consume(renderer.MeshSprite, renderer.GenerateSprite(1, 1), nil); err != nil {
		return nil, err
	}
	kinds = append(kinds, renderer.MeshSprite)

	if name := e.config.Assets.Model; name != "" {
		res, err := e.assetManager.Load(name, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load model %s", name)
		}
		model := res.Data.(*loaders.ModelResourceData)
		if err := meshes.Consume(renderer.MeshModel, modelVertices(model), model.Indices); err != nil {
			return nil, err
		}
		kinds = append(kinds, renderer.MeshModel)
		e.modelTexture = model.DiffuseMap
		core.LogInfo("model %s: %d vertices, %d indices", name, len(model.Vertices), len(model.Indices))
	}

	if err := e.renderer.FinalizeMeshes(); err != nil {
		return nil, errors.Wrap(err, "failed to upload meshes")
	}
	return kinds, nil
}

// loadTextures uploads one material per loaded mesh kind. The model falls
// back to the diffuse map of its material library.
func (e *Engine) loadTextures(kinds []renderer.MeshKind) error {
	configured, err := e.config.texturePaths()
	if err != nil {
		return err
	}
	paths := make(map[renderer.MeshKind]string, len(kinds))
	for _, k := range kinds {
		if name, ok := configured[k]; ok {
			paths[k] = e.assetManager.Path(name)
			continue
		}
		if k == renderer.MeshModel && e.modelTexture != "" {
			paths[k] = e.modelTexture
			continue
		}
		core.LogWarn("no texture configured for mesh %s", k)
	}
	return e.renderer.Textures().LoadAll(paths)
}

// modelVertices converts loaded OBJ vertices to the pipeline layout. Normals
// are dropped since the pipeline is unlit.
func modelVertices(model *loaders.ModelResourceData) []renderer.Vertex {
	out := make([]renderer.Vertex, len(model.Vertices))
	for i, v := range model.Vertices {
		out[i] = renderer.Vertex{
			Position: v.Position,
			Color:    v.Color,
			UV:       v.UV,
		}
	}
	return out
}
