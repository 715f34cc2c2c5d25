package render

import "github.com/pkg/errors"

// TextureInfo describes one uploaded texture. Index is assigned in load
// order starting from 0.
type TextureInfo struct {
	Width  uint32
	Height uint32
	Index  uint32
}

// Uploader receives decoded textures. Upload allocates room for the texture
// and calls fill with a Width*Height RGBA8 buffer to decode into.
type Uploader interface {
	Upload(info TextureInfo, fill func(dst [][4]byte) error) error
}

type TextureType int

const (
	TexUnknown TextureType = iota
	TexOpaque
	TexCutout
	TexTranslucent
)

var textureTypeNames = []string{"unknown", "opaque", "cutout", "translucent"}

func (t TextureType) String() string {
	return textureTypeNames[t]
}

// Classify reports whether pixels are fully opaque, have binary transparency,
// or need blending. A cube with all opaque sides is a definite occluder.
func Classify(pixels [][4]byte) TextureType {
	if len(pixels) == 0 {
		return TexUnknown
	}
	ty := TexOpaque
	for _, p := range pixels {
		switch a := p[3]; {
		case a == 0 && ty == TexOpaque:
			ty = TexCutout
		case a > 0 && a < 255:
			return TexTranslucent
		}
	}
	return ty
}

// MemoryUploader keeps every texture in memory, indexed by TextureInfo.Index.
type MemoryUploader struct {
	Infos  []TextureInfo
	Pixels [][][4]byte
}

func (m *MemoryUploader) Upload(info TextureInfo, fill func([][4]byte) error) error {
	if int(info.Index) != len(m.Infos) {
		return errors.Errorf("texture index %d uploaded out of order, expected %d", info.Index, len(m.Infos))
	}
	buf := make([][4]byte, int(info.Width)*int(info.Height))
	if err := fill(buf); err != nil {
		return err
	}
	m.Infos = append(m.Infos, info)
	m.Pixels = append(m.Pixels, buf)
	return nil
}

// Frame returns the first square frame of texture i.
func (m *MemoryUploader) Frame(i int) [][4]byte {
	w := int(m.Infos[i].Width)
	return m.Pixels[i][:w*min(w, int(m.Infos[i].Height))]
}
