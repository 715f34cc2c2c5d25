package block

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAirIsZero(t *testing.T) {
	air := ByID(Air)
	require.NotNil(t, air)
	assert.Equal(t, "air", air.Name)
	assert.True(t, air.Behavior.IsAir)
	assert.False(t, air.Behavior.HasCollision)
	assert.Equal(t, air, Block(0).Kind())
}

func TestLookup(t *testing.T) {
	a, ok := Lookup("minecraft:stone")
	require.True(t, ok)
	b, ok := Lookup("stone")
	require.True(t, ok)
	assert.Same(t, a, b)
	assert.Equal(t, "minecraft:stone", a.Location())
	assert.Same(t, a, ByID(a.ID))

	_, ok = Lookup("minecraft:unobtainium")
	assert.False(t, ok)
	assert.Nil(t, ByID(ID(Count())))
}

func TestDefinitionsFit(t *testing.T) {
	require.Greater(t, Count(), 800)
	for i, k := range Kinds() {
		require.Equal(t, ID(i), k.ID)
		assert.LessOrEqual(t, k.Definition.Bits, uint32(32-IDBits), k.Name)
		offset := uint32(IDBits)
		for _, p := range k.Definition.Properties {
			assert.Equal(t, offset, p.Offset, "%s.%s", k.Name, p.Name)
			offset += p.Type.Bits()
		}
		assert.NotNil(t, k.Behavior.Material, k.Name)
		assert.NotNil(t, k.Behavior.Sound, k.Name)
	}

	wire, ok := Lookup("redstone_wire")
	require.True(t, ok)
	assert.Equal(t, uint32(12), wire.Definition.Bits)
	assert.Len(t, wire.States(), 3*3*3*3*16)
}

func TestBehaviorInheritance(t *testing.T) {
	stone, _ := Lookup("stone")
	andesite, _ := Lookup("andesite")
	assert.Equal(t, stone.Behavior, andesite.Behavior)
	assert.Equal(t, float32(1.5), andesite.Behavior.DestroyTime)
	assert.Equal(t, float32(6), andesite.Behavior.ExplosionResistance)
	assert.True(t, andesite.Behavior.RequiresCorrectTool)

	oak, _ := Lookup("oak_door")
	acacia, _ := Lookup("acacia_door")
	assert.Equal(t, Color("color_orange"), acacia.Behavior.Color)
	assert.Same(t, oak.Behavior.Material, acacia.Behavior.Material)
	assert.False(t, acacia.Behavior.CanOcclude)
	assert.Equal(t, "wood", acacia.Behavior.Sound.Name)
	assert.Equal(t, uint32(0xd87f33), acacia.Behavior.Color.RGB())
}

func TestMaterials(t *testing.T) {
	air, _ := Lookup("air")
	m := air.Behavior.Material
	assert.False(t, m.BlocksMotion)
	assert.False(t, m.Solid)
	assert.True(t, m.Replaceable)

	piston, _ := Lookup("piston")
	assert.Equal(t, PushBlock, piston.Behavior.Material.PushReaction)
	assert.Equal(t, "block", piston.Behavior.Material.PushReaction.String())

	grass, _ := Lookup("grass")
	assert.Equal(t, PushDestroy, grass.Behavior.Material.PushReaction)
}

func TestLoadRegistryErrors(t *testing.T) {
	for _, tc := range []struct {
		name, data, msg string
	}{
		{"not air first", `{"blocks":[{"name":"stone","material":"stone","color":"stone"}]}`, "must start with air"},
		{"like cycle", `{"materials":{"air":{"color":"none"}},"sounds":{"stone":{"events":["a","b","c","d","e"]}},
			"blocks":[{"name":"air","material":"air","color":"none"},{"name":"a","like":"b"},{"name":"b","like":"a"}]}`, "inherits its behavior from itself"},
		{"bad type", `{"materials":{"air":{"color":"none"}},"sounds":{"stone":{"events":["a","b","c","d","e"]}},
			"blocks":[{"name":"air","material":"air","color":"none","properties":[["x","nope"]]}]}`, "unknown property type `nope`"},
		{"bad color", `{"materials":{"air":{"color":"plaid"}},"blocks":[{"name":"air","material":"air","color":"none"}]}`, "unknown map color `plaid`"},
		{"too wide", `{"materials":{"air":{"color":"none"}},"sounds":{"stone":{"events":["a","b","c","d","e"]}},
			"blocks":[{"name":"air","material":"air","color":"none","properties":[
				["a","age25"],["b","age25"],["c","age25"],["d","age25"]]}]}`, "only 16 are available"},
	} {
		_, err := loadRegistry([]byte(tc.data))
		require.Error(t, err, tc.name)
		assert.Contains(t, err.Error(), tc.msg, tc.name)
	}
}
