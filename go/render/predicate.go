package render

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/rmmh/blockbake/go/block"
	rp "github.com/rmmh/blockbake/go/resourcepack"
)

// VariantPredicate matches the states whose masked bits equal Value. The
// zero value matches everything.
type VariantPredicate struct {
	Mask  uint32
	Value uint32
}

func (p VariantPredicate) Match(b block.Block) bool {
	return uint32(b)&p.Mask == p.Value
}

// ParseVariantPredicate parses a variant key like "facing=east,half=top".
// The empty key and the legacy "normal" key match every state.
func ParseVariantPredicate(def *block.Definition, key string) (VariantPredicate, error) {
	var p VariantPredicate
	if key == "" || key == "normal" {
		return p, nil
	}
	for _, pair := range strings.Split(key, ",") {
		name, text, ok := strings.Cut(pair, "=")
		if !ok {
			return p, errors.Errorf("invalid key-value pair `%s`, expected to find an `=`", pair)
		}
		i, err := def.Index(name)
		if err != nil {
			return p, err
		}
		prop := &def.Properties[i]
		v, err := prop.Type.Parse(text)
		if err != nil {
			return p, errors.Wrapf(err, "property `%s`", name)
		}
		bits := prop.Type.Bits()
		if p.Value, err = block.SetProperty(p.Value, v.Bits(), prop.Offset, bits); err != nil {
			return p, err
		}
		if p.Mask, err = block.SetProperty(p.Mask, 1<<bits-1, prop.Offset, bits); err != nil {
			return p, err
		}
	}
	return p, nil
}

// PartPredicate is a multipart `when` condition flattened into one bit per
// state of a kind, indexed by Block.State().
type PartPredicate struct {
	always bool
	bits   []uint64
}

func (p *PartPredicate) Match(b block.Block) bool {
	if p.always {
		return true
	}
	s := b.State()
	w := s / 64
	if int(w) >= len(p.bits) {
		return false
	}
	return p.bits[w]&(1<<(s%64)) != 0
}

func wordCount(def *block.Definition) int {
	return int((uint64(1)<<def.Bits-1)/64 + 1)
}

// NewPartPredicate builds the bitfield for a multipart condition. A nil
// condition always matches.
func NewPartPredicate(def *block.Definition, when *rp.BlockStateWhenClause) (*PartPredicate, error) {
	if when == nil {
		return &PartPredicate{always: true}, nil
	}
	clauses := make([]any, len(when.Clauses))
	for i, c := range when.Clauses {
		clauses[i] = c
	}
	bits, err := combine(def, clauses, when.IsOr)
	if err != nil {
		return nil, err
	}
	return &PartPredicate{bits: bits}, nil
}

// combine unions (or) or intersects (and) the bitfields of a list of
// condition maps.
func combine(def *block.Definition, clauses []any, or bool) ([]uint64, error) {
	out := make([]uint64, wordCount(def))
	if !or {
		for i := range out {
			out[i] = ^uint64(0)
		}
	}
	for _, c := range clauses {
		cond, ok := c.(map[string]any)
		if !ok {
			return nil, errors.Errorf("expected a condition object, got %T", c)
		}
		bits, err := conditionBits(def, cond)
		if err != nil {
			return nil, err
		}
		for i := range out {
			if or {
				out[i] |= bits[i]
			} else {
				out[i] &= bits[i]
			}
		}
	}
	if !or {
		// mask off codes that aren't valid states
		all, err := conditionBits(def, map[string]any{})
		if err != nil {
			return nil, err
		}
		for i := range out {
			out[i] &= all[i]
		}
	}
	return out, nil
}

func conditionBits(def *block.Definition, cond map[string]any) ([]uint64, error) {
	for _, key := range []string{"OR", "AND"} {
		if nested, ok := cond[key]; ok {
			if len(cond) != 1 {
				return nil, errors.Errorf("`%s` can't be combined with other keys", key)
			}
			list, ok := nested.([]any)
			if !ok {
				return nil, errors.Errorf("`%s` must hold a list of conditions", key)
			}
			return combine(def, list, key == "OR")
		}
	}

	candidates := make([][]uint32, len(def.Properties))
	for i := range def.Properties {
		prop := &def.Properties[i]
		shift := prop.Offset - block.IDBits
		raw, ok := cond[prop.Name]
		if !ok {
			for v := uint32(0); v < prop.Type.Count(); v++ {
				candidates[i] = append(candidates[i], v<<shift)
			}
			continue
		}
		texts, err := conditionTexts(prop.Type, raw)
		if err != nil {
			return nil, errors.Wrapf(err, "property `%s`", prop.Name)
		}
		for _, text := range texts {
			v, err := prop.Type.Parse(text)
			if err != nil {
				return nil, errors.Wrapf(err, "property `%s`", prop.Name)
			}
			candidates[i] = append(candidates[i], v.Bits()<<shift)
		}
	}
	for name := range cond {
		if _, err := def.Index(name); err != nil {
			return nil, err
		}
	}

	bits := make([]uint64, wordCount(def))
	var mark func(i int, s uint32)
	mark = func(i int, s uint32) {
		if i == len(candidates) {
			bits[s/64] |= 1 << (s % 64)
			return
		}
		for _, c := range candidates[i] {
			mark(i+1, s|c)
		}
	}
	mark(0, 0)
	return bits, nil
}

// conditionTexts turns a decoded JSON condition value into property value
// strings. Strings may list alternatives separated by `|`.
func conditionTexts(t *block.PropertyType, raw any) ([]string, error) {
	switch v := raw.(type) {
	case string:
		return strings.Split(v, "|"), nil
	case bool:
		if t.Kind != block.Boolean {
			return nil, errors.Errorf("boolean condition for property type `%s`", t.Name)
		}
		return []string{strconv.FormatBool(v)}, nil
	case float64:
		if t.Kind != block.Integer || v != float64(int64(v)) {
			return nil, errors.Errorf("numeric condition %v for property type `%s`", v, t.Name)
		}
		return []string{strconv.FormatInt(int64(v), 10)}, nil
	default:
		return nil, errors.Errorf("unsupported condition value %v", raw)
	}
}
