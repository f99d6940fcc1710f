package loaders

import (
	"bytes"
	"image"
	"path/filepath"

	// stdlib decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/tessera/engine/core"
	"golang.org/x/image/draw"

	// extra decoders
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

type ImageResourceParams struct {
	FlipY bool
}

type ImageResourceData struct {
	ChannelCount uint8
	Width        uint32
	Height       uint32
	Pixels       []uint8
}

type ImageLoader struct{}

func (il *ImageLoader) Load(path string, params interface{}) (*Resource, error) {
	flip := false
	if p, ok := params.(*ImageResourceParams); ok && p != nil {
		flip = p.FlipY
	}

	data, err := readAsset(path)
	if err != nil {
		return nil, err
	}
	rgba, err := DecodeRGBA(data)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	if flip {
		flipVertical(rgba)
	}

	b := rgba.Bounds()
	return &Resource{
		Name:     filepath.Base(path),
		FullPath: path,
		DataSize: uint64(len(rgba.Pix)),
		Data: &ImageResourceData{
			ChannelCount: 4,
			Width:        uint32(b.Dx()),
			Height:       uint32(b.Dy()),
			Pixels:       rgba.Pix,
		},
	}, nil
}

func (il *ImageLoader) Unload(r *Resource) error {
	r.Data = nil
	return nil
}

// DecodeRGBA decodes any registered format and converts it to tightly packed
// RGBA8 with the origin at the top left.
func DecodeRGBA(data []byte) (*image.RGBA, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(core.ErrImageDecode, "%s", err.Error())
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, errors.Wrapf(core.ErrImageDecode, "%s image has no pixels", format)
	}

	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba, nil
}

func flipVertical(img *image.RGBA) {
	h := img.Bounds().Dy()
	row := make([]byte, img.Stride)
	for y := 0; y < h/2; y++ {
		top := img.Pix[y*img.Stride : (y+1)*img.Stride]
		bottom := img.Pix[(h-1-y)*img.Stride : (h-y)*img.Stride]
		copy(row, top)
		copy(top, bottom)
		copy(bottom, row)
	}
}
