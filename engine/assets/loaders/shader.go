package loaders

import (
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/tessera/engine/core"
)

// SpirvMagic is the first word of every SPIR-V module.
const SpirvMagic uint32 = 0x07230203

// ShaderLoader reads precompiled SPIR-V. The resource data is the raw byte
// slice, ready to hand to the device.
type ShaderLoader struct{}

func (sl *ShaderLoader) Load(path string, params interface{}) (*Resource, error) {
	data, err := readAsset(path)
	if err != nil {
		return nil, err
	}
	if err := ValidateSpirv(data); err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return &Resource{
		Name:     filepath.Base(path),
		FullPath: path,
		DataSize: uint64(len(data)),
		Data:     data,
	}, nil
}

func (sl *ShaderLoader) Unload(r *Resource) error {
	r.Data = nil
	return nil
}

// ValidateSpirv checks the size and the magic number of a SPIR-V module.
func ValidateSpirv(data []byte) error {
	if len(data) == 0 || len(data)%4 != 0 {
		return errors.Wrapf(core.ErrInvalidBytecode, "size %d is not a positive multiple of 4", len(data))
	}
	if magic := BytesToBytecode(data[:4])[0]; magic != SpirvMagic {
		return errors.Wrapf(core.ErrInvalidBytecode, "bad magic %#08x", magic)
	}
	return nil
}
