package render

import (
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	rp "github.com/rmmh/blockbake/go/resourcepack"
)

// DisplayPlace is where an item rendering of a model is shown.
type DisplayPlace int

const (
	ThirdPersonRightHand DisplayPlace = iota
	ThirdPersonLeftHand
	FirstPersonRightHand
	FirstPersonLeftHand
	GUI
	Head
	Ground
	Fixed
	NumDisplayPlaces
)

var displayPlaceNames = [NumDisplayPlaces]string{
	"thirdperson_righthand",
	"thirdperson_lefthand",
	"firstperson_righthand",
	"firstperson_lefthand",
	"gui",
	"head",
	"ground",
	"fixed",
}

func (p DisplayPlace) String() string {
	return displayPlaceNames[p]
}

// ItemTransforms holds one matrix per display place.
type ItemTransforms [NumDisplayPlaces]mgl32.Mat4

func identityTransforms() ItemTransforms {
	var t ItemTransforms
	for i := range t {
		t[i] = mgl32.Ident4()
	}
	return t
}

// ItemTransform is a `display` entry. Rotation is in degrees and Translation
// in model units (1/16 block).
type ItemTransform struct {
	Rotation    mgl32.Vec3
	Translation mgl32.Vec3
	Scale       mgl32.Vec3
}

func clampVec(v mgl32.Vec3, limit float32) mgl32.Vec3 {
	for i := range v {
		v[i] = mgl32.Clamp(v[i], -limit, limit)
	}
	return v
}

// Matrix applies scale, then rotation, then translation, with the same
// limits the game puts on each.
func (t *ItemTransform) Matrix() mgl32.Mat4 {
	tr := clampVec(t.Translation.Mul(1.0/16), 5)
	sc := clampVec(t.Scale, 4)
	rot := mgl32.AnglesToQuat(
		mgl32.DegToRad(t.Rotation[0]),
		mgl32.DegToRad(t.Rotation[1]),
		mgl32.DegToRad(t.Rotation[2]),
		mgl32.XYZ,
	)
	return mgl32.Translate3D(tr[0], tr[1], tr[2]).
		Mul4(rot.Mat4()).
		Mul4(mgl32.Scale3D(sc[0], sc[1], sc[2]))
}

// TextureEntry is a value of a model's `textures` map: either a reference
// to another variable or a texture location.
type TextureEntry struct {
	Variable string
	Location rp.Location
}

func parseTextureEntry(s string) (TextureEntry, error) {
	if v, ok := strings.CutPrefix(s, "#"); ok {
		if v == "" {
			return TextureEntry{}, errors.New("expected a non-empty variable name")
		}
		return TextureEntry{Variable: v}, nil
	}
	loc, err := rp.ParseLocation(s)
	return TextureEntry{Location: loc}, err
}

type ElementRotation struct {
	Origin   mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

type ElementFace struct {
	UV *[4]float32
	// Texture is the variable name without its `#`.
	Texture   string
	CullFace  *Direction
	Rotation  int
	TintIndex int32
}

// Element is one cuboid of a model, in model units.
type Element struct {
	From, To mgl32.Vec3
	Rotation *ElementRotation
	Shade    bool
	Faces    [NumDirections]*ElementFace
}

// RawModel is a parsed model file, linked to its parent once the whole
// chain has been loaded.
type RawModel struct {
	Parent    *RawModel
	PackIndex int
	// ParentLocation is empty for a root model. Parents under
	// `minecraft:builtin/` are never loaded.
	ParentLocation rp.Location
	AO             bool
	Display        [NumDisplayPlaces]*ItemTransform
	Textures       map[string]TextureEntry
	GUILight       string
	elements       []Element
}

func (m *RawModel) root() *RawModel {
	for m.Parent != nil {
		m = m.Parent
	}
	return m
}

// AmbientOcclusion is taken from the root of the hierarchy.
func (m *RawModel) AmbientOcclusion() bool {
	return m.root().AO
}

// Elements returns the elements of the first model in the hierarchy that
// has any.
func (m *RawModel) Elements() []Element {
	for ; m != nil; m = m.Parent {
		if len(m.elements) > 0 {
			return m.elements
		}
	}
	return nil
}

func (m *RawModel) FindTextureEntry(v string) (TextureEntry, bool) {
	for ; m != nil; m = m.Parent {
		if e, ok := m.Textures[v]; ok {
			return e, true
		}
	}
	return TextureEntry{}, false
}

func (m *RawModel) ItemTransform(place DisplayPlace) mgl32.Mat4 {
	for ; m != nil; m = m.Parent {
		if t := m.Display[place]; t != nil {
			return t.Matrix()
		}
	}
	return mgl32.Ident4()
}

func (m *RawModel) ItemTransforms() ItemTransforms {
	var t ItemTransforms
	for p := range t {
		t[p] = m.ItemTransform(DisplayPlace(p))
	}
	return t
}

// GUI3D is false for models rooted at the flat item generator.
func (m *RawModel) GUI3D() bool {
	return m.root().ParentLocation != builtinGenerated
}

// BlockLight reports whether the model is lit like a block in the GUI, as
// opposed to lit from the front like a flat item.
func (m *RawModel) BlockLight() bool {
	for ; m != nil; m = m.Parent {
		if m.GUILight != "" {
			return m.GUILight != "front"
		}
	}
	return true
}

const builtinGenerated = rp.Location("minecraft:builtin/generated")

func isBuiltin(l rp.Location) bool {
	return l.Namespace() == rp.DefaultNamespace && strings.HasPrefix(l.Path(), "builtin/")
}

func vec3(v []float64, what string) (mgl32.Vec3, error) {
	if len(v) != 3 {
		return mgl32.Vec3{}, errors.Errorf("%s must have 3 components, got %d", what, len(v))
	}
	return mgl32.Vec3{float32(v[0]), float32(v[1]), float32(v[2])}, nil
}

func parseRawModel(m *rp.Model) (*RawModel, error) {
	raw := &RawModel{
		AO:       true,
		Textures: map[string]TextureEntry{},
		GUILight: m.GuiLight,
	}
	if m.Parent != "" {
		loc, err := rp.ParseLocation(m.Parent)
		if err != nil {
			return nil, errors.Wrap(err, "parent")
		}
		raw.ParentLocation = loc
	}
	if m.AmbientOcclusion != nil {
		raw.AO = *m.AmbientOcclusion
	}
	switch m.GuiLight {
	case "", "front", "side":
	default:
		return nil, errors.Errorf("unknown gui_light `%s`, expected `front` or `side`", m.GuiLight)
	}
	for name, t := range m.Textures {
		e, err := parseTextureEntry(t)
		if err != nil {
			return nil, errors.Wrapf(err, "texture `%s`", name)
		}
		raw.Textures[name] = e
	}
	for place, t := range m.Display {
		p := -1
		for i, n := range displayPlaceNames {
			if n == place {
				p = i
			}
		}
		// places added by later game versions are ignored
		if p < 0 || t == nil {
			continue
		}
		it, err := parseItemTransform(t)
		if err != nil {
			return nil, errors.Wrapf(err, "display `%s`", place)
		}
		raw.Display[p] = it
	}
	for i, e := range m.Elements {
		el, err := parseElement(e)
		if err != nil {
			return nil, errors.Wrapf(err, "element %d", i)
		}
		raw.elements = append(raw.elements, el)
	}
	return raw, nil
}

func parseItemTransform(t *rp.ModelTransform) (*ItemTransform, error) {
	it := &ItemTransform{Scale: mgl32.Vec3{1, 1, 1}}
	var err error
	if t.Rotation != nil {
		if it.Rotation, err = vec3(t.Rotation, "rotation"); err != nil {
			return nil, err
		}
	}
	if t.Translation != nil {
		if it.Translation, err = vec3(t.Translation, "translation"); err != nil {
			return nil, err
		}
	}
	if t.Scale != nil {
		if it.Scale, err = vec3(t.Scale, "scale"); err != nil {
			return nil, err
		}
	}
	return it, nil
}

func elementPoint(v []float64, what string) (mgl32.Vec3, error) {
	p, err := vec3(v, what)
	if err != nil {
		return p, err
	}
	for _, c := range p {
		if c < -16 || c > 32 {
			return p, errors.New("element points must be between -16.0 and 32.0")
		}
	}
	return p, nil
}

var validAngles = []float64{-45, -22.5, 0, 22.5, 45}

func parseElementRotation(r *rp.ElementRotation) (*ElementRotation, error) {
	origin, err := vec3(r.Origin, "origin")
	if err != nil {
		return nil, err
	}
	found := false
	for _, a := range validAngles {
		found = found || a == r.Angle
	}
	if !found {
		return nil, errors.New("angle must be one of -45.0, -22.5, 0.0, 22.5 or 45.0 deg")
	}
	angle := float32(r.Angle * math.Pi / 180)
	scale := mgl32.Vec3{1, 1, 1}
	if r.Rescale != nil && *r.Rescale {
		s := float32(1 / math.Cos(float64(angle)))
		scale = mgl32.Vec3{s, s, s}
	}
	var axis mgl32.Vec3
	switch r.Axis {
	case "x":
		axis[0], scale[0] = 1, 1
	case "y":
		axis[1], scale[1] = 1, 1
	case "z":
		axis[2], scale[2] = 1, 1
	default:
		return nil, errors.Errorf("unknown rotation axis `%s`, expected `x`, `y` or `z`", r.Axis)
	}
	return &ElementRotation{
		Origin:   origin.Mul(1.0 / 16),
		Rotation: mgl32.QuatRotate(angle, axis),
		Scale:    scale,
	}, nil
}

func checkRightAngle(deg int) error {
	switch deg {
	case 0, 90, 180, 270:
		return nil
	}
	return errors.Errorf("rotation must be 0, 90, 180 or 270 degrees, got %d", deg)
}

func parseElement(e *rp.ModelElement) (Element, error) {
	el := Element{Shade: true}
	var err error
	if el.From, err = elementPoint(e.From, "from"); err != nil {
		return el, err
	}
	if el.To, err = elementPoint(e.To, "to"); err != nil {
		return el, err
	}
	if e.Rotation != nil {
		if el.Rotation, err = parseElementRotation(e.Rotation); err != nil {
			return el, errors.Wrap(err, "rotation")
		}
	}
	if e.Shade != nil {
		el.Shade = *e.Shade
	}
	for name, f := range e.Faces {
		d, err := parseDirection(name)
		if err != nil {
			return el, err
		}
		face, err := parseElementFace(f)
		if err != nil {
			return el, errors.Wrapf(err, "face `%s`", name)
		}
		el.Faces[d] = face
	}
	return el, nil
}

func parseElementFace(f rp.BlockModelFace) (*ElementFace, error) {
	face := &ElementFace{TintIndex: -1}
	v, ok := strings.CutPrefix(f.Texture, "#")
	if !ok {
		return nil, errors.Errorf("texture `%s` must be a variable starting with `#`", f.Texture)
	}
	if v == "" {
		return nil, errors.New("expected a non-empty variable name")
	}
	face.Texture = v
	if f.UV != nil {
		if len(f.UV) != 4 {
			return nil, errors.Errorf("uv must have 4 components, got %d", len(f.UV))
		}
		var uv [4]float32
		for i, c := range f.UV {
			uv[i] = float32(c)
		}
		face.UV = &uv
	}
	if f.CullFace != "" {
		d, err := parseDirection(f.CullFace)
		if err != nil {
			return nil, errors.Wrap(err, "cullface")
		}
		face.CullFace = &d
	}
	if f.Rotation != nil {
		if err := checkRightAngle(*f.Rotation); err != nil {
			return nil, err
		}
		face.Rotation = *f.Rotation
	}
	if f.TintIndex != nil {
		face.TintIndex = int32(*f.TintIndex)
	}
	return face, nil
}
