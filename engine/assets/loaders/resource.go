package loaders

type ResourceType int

/** @brief Pre-defined resource types. */
const (
	ResourceTypeNone ResourceType = iota
	/** @brief Raw binary resource type. */
	ResourceTypeBinary
	/** @brief Image resource type, decoded to RGBA8. */
	ResourceTypeImage
	/** @brief SPIR-V shader bytecode. */
	ResourceTypeShader
	/** @brief Wavefront OBJ geometry. */
	ResourceTypeModel
	/** @brief Wavefront MTL material library. */
	ResourceTypeMaterial
)

func (rt ResourceType) String() string {
	switch rt {
	case ResourceTypeBinary:
		return "binary"
	case ResourceTypeImage:
		return "image"
	case ResourceTypeShader:
		return "shader"
	case ResourceTypeModel:
		return "model"
	case ResourceTypeMaterial:
		return "material"
	}
	return "none"
}

// Resource is what every loader returns. Data holds the type specific payload.
type Resource struct {
	Name     string
	FullPath string
	DataSize uint64
	Data     interface{}
}

type Loader interface {
	Load(path string, params interface{}) (*Resource, error)
	Unload(*Resource) error
}
