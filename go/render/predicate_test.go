package render

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmmh/blockbake/go/block"
	rp "github.com/rmmh/blockbake/go/resourcepack"
)

func mustKind(t *testing.T, name string) *block.Kind {
	t.Helper()
	k, ok := block.Lookup(name)
	require.True(t, ok, "missing block %s", name)
	return k
}

func mustEncode(t *testing.T, k *block.Kind, props map[string]string) block.Block {
	t.Helper()
	b, err := block.Encode(k, props)
	require.NoError(t, err)
	return b
}

func TestVariantPredicate(t *testing.T) {
	log := mustKind(t, "oak_log")
	def := &log.Definition

	for _, key := range []string{"", "normal"} {
		p, err := ParseVariantPredicate(def, key)
		require.NoError(t, err)
		for _, b := range log.States() {
			assert.True(t, p.Match(b), "%q should match %s", key, b)
		}
	}

	p, err := ParseVariantPredicate(def, "axis=y")
	require.NoError(t, err)
	assert.True(t, p.Match(mustEncode(t, log, map[string]string{"axis": "y"})))
	assert.False(t, p.Match(mustEncode(t, log, map[string]string{"axis": "z"})))
	assert.Zero(t, p.Mask&(1<<block.IDBits-1), "the id bits are never part of the mask")

	door := mustKind(t, "acacia_door")
	p, err = ParseVariantPredicate(&door.Definition, "facing=east,half=lower,hinge=left,open=false")
	require.NoError(t, err)
	matched := 0
	for _, b := range door.States() {
		if p.Match(b) {
			matched++
			v, _ := b.Property("facing")
			assert.Equal(t, "east", v.String())
		}
	}
	assert.Equal(t, 2, matched, "only powered is left free")
}

func TestVariantPredicateErrors(t *testing.T) {
	log := mustKind(t, "oak_log")
	for _, tc := range []struct {
		key, msg string
	}{
		{"axis", "invalid key-value pair `axis`, expected to find an `=`"},
		{"color=red", "unknown property `color`, expected one of `axis`"},
		{"axis=w", "invalid value `w`"},
		{"axis=x,", "expected to find an `=`"},
	} {
		_, err := ParseVariantPredicate(&log.Definition, tc.key)
		require.Error(t, err, tc.key)
		assert.Contains(t, err.Error(), tc.msg, tc.key)
	}

	stone := mustKind(t, "stone")
	_, err := ParseVariantPredicate(&stone.Definition, "snowy=true")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "there are no properties")
}

func parseWhen(t *testing.T, s string) *rp.BlockStateWhenClause {
	t.Helper()
	var w rp.BlockStateWhenClause
	require.NoError(t, json.Unmarshal([]byte(s), &w))
	return &w
}

func countMatches(k *block.Kind, p *PartPredicate) int {
	n := 0
	for _, b := range k.States() {
		if p.Match(b) {
			n++
		}
	}
	return n
}

func TestPartPredicate(t *testing.T) {
	wire := mustKind(t, "redstone_wire")
	fence := mustKind(t, "oak_fence")
	require.Len(t, wire.States(), 1296)

	for _, tc := range []struct {
		kind  *block.Kind
		when  string
		count int
	}{
		{wire, `{"north": "side"}`, 432},
		{wire, `{"north": "side|up"}`, 864},
		{wire, `{"north": "side", "east": "side"}`, 144},
		{wire, `{"OR": [{"north": "side"}, {"east": "side"}]}`, 720},
		{wire, `{"AND": [{"north": "side"}, {"east": "side"}]}`, 144},
		{wire, `{"power": 15}`, 81},
		{wire, `{"AND": [{"OR": [{"power": "1"}, {"power": 2}]}, {"north": "none"}]}`, 54},
		{fence, `{"north": true}`, 16},
		{fence, `{"north": "true", "south": false}`, 8},
		{fence, `{"OR": [{"north": true}, {"north": false}]}`, 32},
	} {
		p, err := NewPartPredicate(&tc.kind.Definition, parseWhen(t, tc.when))
		require.NoError(t, err, tc.when)
		assert.Equal(t, tc.count, countMatches(tc.kind, p), tc.when)
	}
}

func TestPartPredicateAbsentIsDontCare(t *testing.T) {
	wire := mustKind(t, "redstone_wire")
	p, err := NewPartPredicate(&wire.Definition, parseWhen(t, `{"west": "up"}`))
	require.NoError(t, err)
	b := mustEncode(t, wire, map[string]string{"west": "up", "north": "none", "power": "9"})
	assert.True(t, p.Match(b))
	b, err = b.With("west", "side")
	require.NoError(t, err)
	assert.False(t, p.Match(b))
}

func TestPartPredicateAlways(t *testing.T) {
	stone := mustKind(t, "stone")
	p, err := NewPartPredicate(&stone.Definition, nil)
	require.NoError(t, err)
	assert.True(t, p.Match(stone.Default()))

	p, err = NewPartPredicate(&stone.Definition, parseWhen(t, `{}`))
	require.NoError(t, err)
	assert.True(t, p.Match(stone.Default()), "an empty condition constrains nothing")
	assert.Len(t, p.bits, 1)
}

func TestPartPredicateErrors(t *testing.T) {
	wire := mustKind(t, "redstone_wire")
	for _, tc := range []struct {
		when, msg string
	}{
		{`{"north": "sideways"}`, "invalid value `sideways`"},
		{`{"colour": "red"}`, "unknown property `colour`"},
		{`{"power": 1.5}`, "numeric condition"},
		{`{"north": true}`, "boolean condition"},
		{`{"power": [1]}`, "unsupported condition value"},
		{`{"AND": [{"OR": "north"}]}`, "must hold a list"},
	} {
		_, err := NewPartPredicate(&wire.Definition, parseWhen(t, tc.when))
		require.Error(t, err, tc.when)
		assert.Contains(t, err.Error(), tc.msg, tc.when)
	}
}
