package render

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rp "github.com/rmmh/blockbake/go/resourcepack"
)

func parseModelJSON(t *testing.T, s string) (*RawModel, error) {
	t.Helper()
	var m rp.Model
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return parseRawModel(&m)
}

func TestParseRawModel(t *testing.T) {
	raw, err := parseModelJSON(t, `{
		"parent": "block/cube",
		"ambientocclusion": false,
		"gui_light": "front",
		"textures": {"all": "block/stone", "particle": "#all", "side": "custom:thing/side"},
		"display": {"gui": {"rotation": [30, 225, 0], "scale": [0.625, 0.625, 0.625]}, "on_shelf": {}},
		"elements": [{
			"from": [0, 0, 0], "to": [16, 8, 16],
			"faces": {
				"bottom": {"texture": "#all", "cullface": "down"},
				"up": {"uv": [0, 0, 16, 16], "texture": "#all", "rotation": 90, "tintindex": 0}
			}
		}]
	}`)
	require.NoError(t, err)
	assert.Equal(t, rp.Location("minecraft:block/cube"), raw.ParentLocation)
	assert.False(t, raw.AO)
	assert.Equal(t, TextureEntry{Location: "minecraft:block/stone"}, raw.Textures["all"])
	assert.Equal(t, TextureEntry{Variable: "all"}, raw.Textures["particle"])
	assert.Equal(t, TextureEntry{Location: "custom:thing/side"}, raw.Textures["side"])
	require.NotNil(t, raw.Display[GUI])
	assert.Equal(t, mgl32.Vec3{0.625, 0.625, 0.625}, raw.Display[GUI].Scale)
	assert.Equal(t, mgl32.Vec3{30, 225, 0}, raw.Display[GUI].Rotation)
	assert.Nil(t, raw.Display[Head])

	els := raw.Elements()
	require.Len(t, els, 1)
	el := els[0]
	assert.True(t, el.Shade)
	assert.Equal(t, mgl32.Vec3{16, 8, 16}, el.To)
	down := el.Faces[Down]
	require.NotNil(t, down)
	assert.Equal(t, "all", down.Texture)
	assert.Equal(t, int32(-1), down.TintIndex)
	require.NotNil(t, down.CullFace)
	assert.Equal(t, Down, *down.CullFace)
	assert.Nil(t, down.UV)
	up := el.Faces[Up]
	require.NotNil(t, up.UV)
	assert.Equal(t, [4]float32{0, 0, 16, 16}, *up.UV)
	assert.Equal(t, 90, up.Rotation)
	assert.Equal(t, int32(0), up.TintIndex)
	assert.Nil(t, el.Faces[North])
}

func TestParseRawModelErrors(t *testing.T) {
	for _, tc := range []struct {
		model, msg string
	}{
		{`{"elements": [{"from": [0, 0, 0], "to": [16, 33, 16]}]}`, "element points must be between -16.0 and 32.0"},
		{`{"elements": [{"from": [-17, 0, 0], "to": [16, 16, 16]}]}`, "element points must be between -16.0 and 32.0"},
		{`{"elements": [{"from": [0, 0], "to": [16, 16, 16]}]}`, "from must have 3 components"},
		{`{"elements": [{"from": [0, 0, 0], "to": [16, 16, 16], "rotation": {"origin": [8, 8, 8], "axis": "y", "angle": 30}}]}`,
			"angle must be one of -45.0, -22.5, 0.0, 22.5 or 45.0 deg"},
		{`{"elements": [{"from": [0, 0, 0], "to": [16, 16, 16], "rotation": {"origin": [8, 8, 8], "axis": "w", "angle": 0}}]}`,
			"unknown rotation axis `w`"},
		{`{"elements": [{"from": [0, 0, 0], "to": [16, 16, 16], "faces": {"up": {"texture": "block/stone"}}}]}`,
			"must be a variable starting with `#`"},
		{`{"elements": [{"from": [0, 0, 0], "to": [16, 16, 16], "faces": {"up": {"texture": "#"}}}]}`,
			"expected a non-empty variable name"},
		{`{"elements": [{"from": [0, 0, 0], "to": [16, 16, 16], "faces": {"up": {"texture": "#a", "rotation": 45}}}]}`,
			"rotation must be 0, 90, 180 or 270 degrees"},
		{`{"elements": [{"from": [0, 0, 0], "to": [16, 16, 16], "faces": {"sideways": {"texture": "#a"}}}]}`,
			"unknown direction `sideways`"},
		{`{"elements": [{"from": [0, 0, 0], "to": [16, 16, 16], "faces": {"up": {"texture": "#a", "cullface": "left"}}}]}`,
			"unknown direction `left`"},
		{`{"elements": [{"from": [0, 0, 0], "to": [16, 16, 16], "faces": {"up": {"texture": "#a", "uv": [0, 0, 16]}}}]}`,
			"uv must have 4 components"},
		{`{"textures": {"all": "#"}}`, "texture `all`: expected a non-empty variable name"},
		{`{"textures": {"all": "Block/Stone"}}`, "illegal character `B`"},
		{`{"parent": ":cube"}`, "resource location namespace is empty"},
		{`{"gui_light": "back"}`, "unknown gui_light `back`"},
		{`{"display": {"gui": {"scale": [1, 1]}}}`, "display `gui`: scale must have 3 components"},
	} {
		_, err := parseModelJSON(t, tc.model)
		require.Error(t, err, tc.model)
		assert.Contains(t, err.Error(), tc.msg, tc.model)
	}
}

func TestElementRotationRescale(t *testing.T) {
	rescale := true
	r, err := parseElementRotation(&rp.ElementRotation{Origin: []float64{8, 0, 8}, Axis: "y", Angle: 45, Rescale: &rescale})
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec3{0.5, 0, 0.5}, r.Origin)
	assert.InDelta(t, math.Sqrt2, r.Scale[0], 1e-5)
	assert.Equal(t, float32(1), r.Scale[1])
	assert.InDelta(t, math.Sqrt2, r.Scale[2], 1e-5)

	r, err = parseElementRotation(&rp.ElementRotation{Origin: []float64{8, 8, 8}, Axis: "x", Angle: -22.5})
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, r.Scale)
	assert.True(t, r.Rotation.ApproxEqualThreshold(mgl32.QuatRotate(mgl32.DegToRad(-22.5), mgl32.Vec3{1, 0, 0}), 1e-6))
}

func TestModelHierarchy(t *testing.T) {
	root := &RawModel{
		AO:       false,
		Textures: map[string]TextureEntry{"a": {Location: "minecraft:block/root"}},
		Display:  [NumDisplayPlaces]*ItemTransform{GUI: {Scale: mgl32.Vec3{2, 2, 2}}},
		elements: []Element{{Shade: true}},
	}
	mid := &RawModel{Parent: root, AO: true, GUILight: "front", Textures: map[string]TextureEntry{"b": {Variable: "a"}}}
	leaf := &RawModel{Parent: mid, AO: true, Textures: map[string]TextureEntry{"a": {Location: "minecraft:block/leaf"}}}

	assert.False(t, leaf.AmbientOcclusion(), "ambient occlusion comes from the root")
	assert.Len(t, leaf.Elements(), 1)
	e, ok := leaf.FindTextureEntry("a")
	require.True(t, ok)
	assert.Equal(t, rp.Location("minecraft:block/leaf"), e.Location)
	e, ok = leaf.FindTextureEntry("b")
	require.True(t, ok)
	assert.Equal(t, "a", e.Variable)
	_, ok = leaf.FindTextureEntry("c")
	assert.False(t, ok)

	assert.False(t, leaf.BlockLight())
	assert.True(t, root.BlockLight())
	assert.True(t, leaf.GUI3D())
	root.ParentLocation = builtinGenerated
	assert.False(t, leaf.GUI3D())

	assert.Equal(t, mgl32.Scale3D(2, 2, 2), leaf.ItemTransform(GUI))
	assert.Equal(t, mgl32.Ident4(), leaf.ItemTransform(Ground))
	all := leaf.ItemTransforms()
	assert.Equal(t, mgl32.Scale3D(2, 2, 2), all[GUI])
	assert.Equal(t, mgl32.Ident4(), all[Fixed])
}

func TestItemTransformMatrix(t *testing.T) {
	it := &ItemTransform{
		Rotation:    mgl32.Vec3{0, 90, 0},
		Translation: mgl32.Vec3{16, 0, 160},
		Scale:       mgl32.Vec3{0.5, 9, 0.5},
	}
	m := it.Matrix()
	// the x axis is scaled, turned to -z, then shifted
	p := m.Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	assert.InDelta(t, 1, p[0], 1e-5)
	assert.InDelta(t, 0, p[1], 1e-5)
	assert.InDelta(t, 5-0.5, p[2], 1e-5, "translation is clamped to 5 blocks")
	// y scale is clamped to 4
	p = m.Mul4x1(mgl32.Vec4{0, 1, 0, 1})
	assert.InDelta(t, 4, p[1], 1e-5)
}

func TestDisplayPlaceNames(t *testing.T) {
	assert.Equal(t, "thirdperson_righthand", ThirdPersonRightHand.String())
	assert.Equal(t, "fixed", Fixed.String())
}
