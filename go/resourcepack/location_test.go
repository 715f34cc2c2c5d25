package resourcepack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocation(t *testing.T) {
	for _, tc := range []struct {
		in, ns, path string
	}{
		{"stone", "minecraft", "stone"},
		{"minecraft:block/stone", "minecraft", "block/stone"},
		{"my_pack:block/fancy-door.v2", "my_pack", "block/fancy-door.v2"},
	} {
		l, err := ParseLocation(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.ns, l.Namespace())
		assert.Equal(t, tc.path, l.Path())
		assert.Equal(t, tc.ns+":"+tc.path, l.String())
	}
}

func TestParseLocationErrors(t *testing.T) {
	for _, tc := range []struct {
		in, msg string
	}{
		{"", "path is empty"},
		{":stone", "namespace is empty"},
		{"minecraft:", "path is empty"},
		{"Minecraft:stone", "namespace contains illegal character `M`"},
		{"my/pack:stone", "namespace contains illegal character `/`"},
		{"minecraft:block/Stone", "path contains illegal character `S`"},
		{"minecraft:block stone", "path contains illegal character ` `"},
	} {
		_, err := ParseLocation(tc.in)
		require.Error(t, err, tc.in)
		assert.Contains(t, err.Error(), tc.msg, tc.in)
	}
}

func TestLocationAsset(t *testing.T) {
	assert.Equal(t, "assets/minecraft/models/block/stone.json", MustParseLocation("block/stone").Asset("models", "json"))
	assert.Equal(t, "assets/foo/textures/block/x.png", MustParseLocation("foo:block/x").Asset("textures", "png"))
	assert.Panics(t, func() { MustParseLocation("a:b:c") })
}
