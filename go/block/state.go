package block

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// IDBits is the number of low bits of a state word holding the kind ID.
const IDBits = 16

// PropertyDefinition places one named property inside a state word.
type PropertyDefinition struct {
	Name   string
	Type   *PropertyType
	Offset uint32
}

// Mask covers the property's field within a full state word.
func (p *PropertyDefinition) Mask() uint32 {
	return (1<<p.Type.Bits() - 1) << p.Offset
}

// Definition is the ordered property layout of one block kind.
type Definition struct {
	Properties []PropertyDefinition
	// Bits is the total width of all properties above the ID bits.
	Bits uint32
}

func newDefinition(names []string, types []*PropertyType) (Definition, error) {
	def := Definition{}
	offset := uint32(IDBits)
	for i, name := range names {
		if _, err := def.Index(name); err == nil {
			return def, errors.Errorf("duplicate property `%s`", name)
		}
		def.Properties = append(def.Properties, PropertyDefinition{Name: name, Type: types[i], Offset: offset})
		offset += types[i].Bits()
	}
	if offset > 32 {
		return def, errors.Errorf("properties need %d bits, only %d are available", offset-IDBits, 32-IDBits)
	}
	def.Bits = offset - IDBits
	return def, nil
}

// Names lists the property names in definition order.
func (d *Definition) Names() []string {
	return lo.Map(d.Properties, func(p PropertyDefinition, _ int) string { return p.Name })
}

// Index finds a property by name.
func (d *Definition) Index(name string) (int, error) {
	for i := range d.Properties {
		if d.Properties[i].Name == name {
			return i, nil
		}
	}
	if len(d.Properties) == 0 {
		return -1, errors.Errorf("unknown property `%s`, there are no properties", name)
	}
	return -1, errors.Errorf("unknown property `%s`, expected one of `%s`", name, strings.Join(d.Names(), "`, `"))
}

// SetProperty replaces the field of width bits at offset within state.
func SetProperty(state, field, offset, bits uint32) (uint32, error) {
	if offset+bits > 32 {
		return state, errors.Errorf("field at offset %d with %d bits does not fit in a state word", offset, bits)
	}
	if bits < 32 && field>>bits != 0 {
		return state, errors.Errorf("field %#x overflows %d bits", field, bits)
	}
	var mask uint32
	if bits == 32 {
		mask = ^uint32(0)
	} else {
		mask = (1<<bits - 1) << offset
	}
	return state&^mask | field<<offset, nil
}

// Block is a packed block state: the low 16 bits hold the kind ID and the
// rest hold the kind's properties.
type Block uint32

func (b Block) ID() ID { return ID(b & (1<<IDBits - 1)) }

// State is the property part of the word, shifted down to start at bit 0.
func (b Block) State() uint32 { return uint32(b) >> IDBits }

// Kind returns the block's kind, or nil if the ID is not registered.
func (b Block) Kind() *Kind { return ByID(b.ID()) }

// Encode packs textual property values into a state of the given kind.
// Properties that are not mentioned keep their minimum value.
func Encode(kind *Kind, props map[string]string) (Block, error) {
	state := uint32(kind.ID)
	for name, text := range props {
		i, err := kind.Definition.Index(name)
		if err != nil {
			return 0, errors.Wrapf(err, "failed to encode %s", kind.Location())
		}
		p := &kind.Definition.Properties[i]
		v, err := p.Type.Parse(text)
		if err != nil {
			return 0, errors.Wrapf(err, "failed to encode property `%s` of %s", name, kind.Location())
		}
		if state, err = SetProperty(state, v.Bits(), p.Offset, p.Type.Bits()); err != nil {
			return 0, errors.Wrapf(err, "failed to encode property `%s` of %s", name, kind.Location())
		}
	}
	return Block(state), nil
}

// EncodeValues packs already parsed values.
func EncodeValues(kind *Kind, props map[string]Value) (Block, error) {
	state := uint32(kind.ID)
	for name, v := range props {
		i, err := kind.Definition.Index(name)
		if err != nil {
			return 0, errors.Wrapf(err, "failed to encode %s", kind.Location())
		}
		p := &kind.Definition.Properties[i]
		if v.Type != p.Type {
			return 0, errors.Errorf("property `%s` of %s has type `%s`, got a `%s` value", name, kind.Location(), p.Type.Name, v.Type.Name)
		}
		if state, err = SetProperty(state, v.Bits(), p.Offset, p.Type.Bits()); err != nil {
			return 0, errors.Wrapf(err, "failed to encode property `%s` of %s", name, kind.Location())
		}
	}
	return Block(state), nil
}

type NamedValue struct {
	Name  string
	Value Value
}

// Decode unpacks every property of the block in definition order.
func (b Block) Decode() ([]NamedValue, error) {
	kind := b.Kind()
	if kind == nil {
		return nil, errors.Errorf("unknown block id %d", b.ID())
	}
	out := make([]NamedValue, 0, len(kind.Definition.Properties))
	for i := range kind.Definition.Properties {
		p := &kind.Definition.Properties[i]
		v, err := p.Type.FromBits((uint32(b) & p.Mask()) >> p.Offset)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to decode property `%s` of %s", p.Name, kind.Location())
		}
		out = append(out, NamedValue{p.Name, v})
	}
	return out, nil
}

// Property decodes a single property by name.
func (b Block) Property(name string) (Value, error) {
	kind := b.Kind()
	if kind == nil {
		return Value{}, errors.Errorf("unknown block id %d", b.ID())
	}
	i, err := kind.Definition.Index(name)
	if err != nil {
		return Value{}, err
	}
	p := &kind.Definition.Properties[i]
	return p.Type.FromBits((uint32(b) & p.Mask()) >> p.Offset)
}

// With returns a copy of the block with one property changed.
func (b Block) With(name, text string) (Block, error) {
	kind := b.Kind()
	if kind == nil {
		return b, errors.Errorf("unknown block id %d", b.ID())
	}
	i, err := kind.Definition.Index(name)
	if err != nil {
		return b, err
	}
	p := &kind.Definition.Properties[i]
	v, err := p.Type.Parse(text)
	if err != nil {
		return b, err
	}
	state, err := SetProperty(uint32(b), v.Bits(), p.Offset, p.Type.Bits())
	return Block(state), err
}

// Valid reports whether every property field of the block is in range.
func (b Block) Valid() bool {
	_, err := b.Decode()
	return err == nil && b.State()>>b.Kind().Definition.Bits == 0
}

// String formats the block like `minecraft:oak_door[facing=north,half=lower]`.
func (b Block) String() string {
	kind := b.Kind()
	if kind == nil {
		return fmt.Sprintf("unknown#%d", b.ID())
	}
	values, err := b.Decode()
	if err != nil {
		return fmt.Sprintf("%s#%08x", kind.Location(), uint32(b))
	}
	if len(values) == 0 {
		return kind.Location()
	}
	parts := lo.Map(values, func(nv NamedValue, _ int) string { return nv.Name + "=" + nv.Value.String() })
	return kind.Location() + "[" + strings.Join(parts, ",") + "]"
}

// ParseBlock is the inverse of Block.String. The namespace and the bracketed
// property list are optional.
func ParseBlock(s string) (Block, error) {
	name, rest, hasProps := strings.Cut(s, "[")
	kind, ok := Lookup(name)
	if !ok {
		return 0, errors.Errorf("unknown block `%s`", name)
	}
	props := map[string]string{}
	if hasProps {
		if !strings.HasSuffix(rest, "]") {
			return 0, errors.Errorf("missing `]` in `%s`", s)
		}
		rest = strings.TrimSuffix(rest, "]")
		if rest != "" {
			for _, pair := range strings.Split(rest, ",") {
				k, v, ok := strings.Cut(pair, "=")
				if !ok {
					return 0, errors.Errorf("invalid key-value pair `%s`, expected to find an `=`", pair)
				}
				props[strings.TrimSpace(k)] = strings.TrimSpace(v)
			}
		}
	}
	return Encode(kind, props)
}

// States enumerates every valid state of the kind, in increasing order.
func (k *Kind) States() []Block {
	count := 1
	for _, p := range k.Definition.Properties {
		count *= int(p.Type.Count())
	}
	out := make([]Block, 0, count)
	fields := make([]uint32, len(k.Definition.Properties))
	for {
		state := uint32(k.ID)
		for i, p := range k.Definition.Properties {
			state |= fields[i] << p.Offset
		}
		out = append(out, Block(state))

		i := 0
		for ; i < len(fields); i++ {
			fields[i]++
			if fields[i] < k.Definition.Properties[i].Type.Count() {
				break
			}
			fields[i] = 0
		}
		if i == len(fields) {
			break
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
