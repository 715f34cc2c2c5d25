package render

import (
	"io/fs"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	rp "github.com/rmmh/blockbake/go/resourcepack"
)

type stackEntry struct {
	loc   rp.Location
	model *RawModel
}

// bakery loads models and textures on demand while the registry is built,
// caching each resolved model and uploaded texture by location.
type bakery struct {
	packs    rp.Packs
	uploader Uploader

	// packIndex is the pack that supplied the blockstate being baked.
	packIndex int

	models     map[rp.Location]*RawModel
	modelStack []stackEntry

	textures     map[rp.Location]TextureInfo
	textureStack []string
	nextTexture  uint32
}

func newBakery(packs rp.Packs, uploader Uploader) *bakery {
	return &bakery{
		packs:    packs,
		uploader: uploader,
		models:   map[rp.Location]*RawModel{},
		textures: map[rp.Location]TextureInfo{},
	}
}

// Entry is one weighted model choice of a selector.
type Entry struct {
	Weight int
	Faces  *Faces
	raw    *RawModel
}

func radians(deg *int, what string) (float32, error) {
	if deg == nil {
		return 0, nil
	}
	if err := checkRightAngle(*deg); err != nil {
		return 0, errors.Wrap(err, what)
	}
	return float32(*deg) * math.Pi / 180, nil
}

func (b *bakery) bakeSpec(spec *rp.ModelSpec) (Entry, error) {
	e := Entry{Weight: 1}
	if spec.Weight != nil {
		if *spec.Weight <= 0 {
			return e, errors.Errorf("weight must be positive, got %d", *spec.Weight)
		}
		e.Weight = *spec.Weight
	}
	x, err := radians(spec.X, "x")
	if err != nil {
		return e, err
	}
	y, err := radians(spec.Y, "y")
	if err != nil {
		return e, err
	}
	loc, err := rp.ParseLocation(spec.Model)
	if err != nil {
		return e, errors.Wrap(err, "model")
	}
	e.raw, err = b.loadRawModel(b.packIndex, loc)
	if err != nil {
		return e, errors.Wrapf(err, "failed to load model `%s`", loc)
	}
	e.Faces, err = b.bakeModel(e.raw, modelRotation(x, y))
	if err != nil {
		return e, errors.Wrapf(err, "failed to load model `%s`", loc)
	}
	return e, nil
}

func (b *bakery) bakeModel(raw *RawModel, rot mgl32.Quat) (*Faces, error) {
	faces := &Faces{}
	for i := range raw.Elements() {
		el := &raw.Elements()[i]
		for d, face := range el.Faces {
			if face == nil {
				continue
			}
			tex, err := b.resolveTexture(raw, face.Texture)
			if err != nil {
				return nil, err
			}
			dir, vs := makeVertices(Direction(d), el, face, rot, tex)
			q := Quad{
				Direction: dir,
				Vertices:  vs,
				Shade:     el.Shade,
				TintIndex: face.TintIndex,
			}
			if face.CullFace != nil {
				cd := face.CullFace.rotate(rot)
				faces.Culled[cd] = append(faces.Culled[cd], q)
			} else {
				faces.Unculled = append(faces.Unculled, q)
			}
		}
	}
	return faces, nil
}

// resolveTexture follows texture variables until one names a location.
func (b *bakery) resolveTexture(raw *RawModel, v string) (TextureInfo, error) {
	defer func() { b.textureStack = b.textureStack[:0] }()
	for {
		e, ok := raw.FindTextureEntry(v)
		if !ok {
			return TextureInfo{}, errors.Errorf("found use of undefined texture variable `%s`", v)
		}
		if e.Variable == "" {
			info, err := b.loadTexture(raw.PackIndex, e.Location)
			if err != nil {
				return info, errors.Wrapf(err, "failed to load texture `%s`", e.Location)
			}
			return info, nil
		}
		b.textureStack = append(b.textureStack, v)
		if lo.Contains(b.textureStack, e.Variable) {
			return TextureInfo{}, errors.Errorf("found dependency cycle while resolving texture variable: %s -> %s",
				strings.Join(b.textureStack, " -> "), e.Variable)
		}
		v = e.Variable
	}
}

func (b *bakery) readModel(packIndex int, loc rp.Location) (*RawModel, error) {
	idx, f, err := b.packs.FindFile(packIndex, loc.Asset("models", "json"))
	if err != nil {
		return nil, err
	}
	var m rp.Model
	if err := f.Decode(&m); err != nil {
		return nil, err
	}
	raw, err := parseRawModel(&m)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", f.Path())
	}
	raw.PackIndex = idx
	return raw, nil
}

// loadRawModel loads loc and every ancestor it doesn't share with an
// already cached model, then links them from the root down so that each
// cached model has its whole parent chain in place.
func (b *bakery) loadRawModel(packIndex int, loc rp.Location) (*RawModel, error) {
	defer func() { b.modelStack = b.modelStack[:0] }()
	var parent *RawModel
	for {
		if m, ok := b.models[loc]; ok {
			parent = m
			break
		}
		m, err := b.readModel(packIndex, loc)
		if err != nil {
			return nil, err
		}
		packIndex = m.PackIndex
		if m.ParentLocation == "" || isBuiltin(m.ParentLocation) {
			b.models[loc] = m
			parent = m
			break
		}
		b.modelStack = append(b.modelStack, stackEntry{loc, m})
		if lo.ContainsBy(b.modelStack, func(e stackEntry) bool { return e.loc == m.ParentLocation }) {
			chain := lo.Map(b.modelStack, func(e stackEntry, _ int) string { return e.loc.String() })
			return nil, errors.Errorf("found dependency cycle in model hierarchy: %s -> %s",
				strings.Join(chain, " -> "), m.ParentLocation)
		}
		loc = m.ParentLocation
	}
	for i := len(b.modelStack) - 1; i >= 0; i-- {
		e := b.modelStack[i]
		e.model.Parent = parent
		b.models[e.loc] = e.model
		parent = e.model
	}
	return parent, nil
}

func (b *bakery) loadTexture(packIndex int, loc rp.Location) (TextureInfo, error) {
	if info, ok := b.textures[loc]; ok {
		return info, nil
	}
	idx, f, err := b.packs.FindFile(packIndex, loc.Asset("textures", "png"))
	if err != nil {
		return TextureInfo{}, err
	}
	data, err := f.ReadAll()
	if err != nil {
		return TextureInfo{}, err
	}
	img, err := decodePNG(data)
	if err != nil {
		return TextureInfo{}, errors.Wrapf(err, "failed to decode %s", f.Path())
	}

	// the sidecar must come from the same pack as the image
	meta, err := b.packs[idx].Open(loc.Asset("textures", "png.mcmeta"))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return TextureInfo{}, err
	default:
		var tm rp.TextureMeta
		if err := meta.Decode(&tm); err != nil {
			return TextureInfo{}, err
		}
		if err := checkAnimation(img, tm.Animation); err != nil {
			return TextureInfo{}, err
		}
	}

	if img.Depth == 16 {
		return TextureInfo{}, errors.Errorf("found unsupported bit depth `%d`, only a bit depth of up to `8` is supported", img.Depth)
	}

	info := TextureInfo{Width: img.Width, Height: img.Height, Index: b.nextTexture}
	b.nextTexture++
	if err := b.uploader.Upload(info, img.normalize); err != nil {
		return TextureInfo{}, err
	}
	b.textures[loc] = info
	return info, nil
}

func checkAnimation(img *pngImage, anim *rp.Animation) error {
	if anim == nil {
		return nil
	}
	if img.Height%img.Width != 0 {
		return errors.New("found animated block texture with non-proportional dimensions")
	}
	frames := int(img.Height / img.Width)
	for _, f := range anim.Frames {
		if f.Index < 0 || f.Index >= frames {
			return errors.Errorf("found invalid frame index `%d`, there are only `%d` frames", f.Index, frames)
		}
	}
	return nil
}
