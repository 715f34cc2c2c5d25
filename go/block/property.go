package block

import (
	"math/bits"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type PropertyKind int

const (
	Boolean PropertyKind = iota
	Integer
	Enum
)

func (k PropertyKind) String() string {
	switch k {
	case Boolean:
		return "boolean"
	case Integer:
		return "integer"
	case Enum:
		return "enum"
	}
	return "unknown"
}

// PropertyType describes how one kind of block property maps to bits and text.
type PropertyType struct {
	Name     string
	Kind     PropertyKind
	Min, Max uint32
	// Variants holds the snake_case names of an Enum, indexed by value.
	Variants []string
}

// Bits is the width of the field this type occupies in a block state.
func (t *PropertyType) Bits() uint32 {
	return uint32(bits.Len32(t.Max - t.Min))
}

// Count is the number of distinct values of the type.
func (t *PropertyType) Count() uint32 {
	return t.Max - t.Min + 1
}

func (t *PropertyType) expected() string {
	switch t.Kind {
	case Boolean:
		return "`true` or `false`"
	case Integer:
		return "an integer between " + strconv.Itoa(int(t.Min)) + " and " + strconv.Itoa(int(t.Max))
	default:
		return "one of `" + strings.Join(t.Variants, "`, `") + "`"
	}
}

// Parse reads the canonical text form of a value.
func (t *PropertyType) Parse(s string) (Value, error) {
	switch t.Kind {
	case Boolean:
		switch s {
		case "true":
			return Value{t, 1}, nil
		case "false":
			return Value{t, 0}, nil
		}
	case Integer:
		n, err := strconv.ParseUint(s, 10, 32)
		if err == nil && uint32(n) >= t.Min && uint32(n) <= t.Max {
			return Value{t, uint32(n)}, nil
		}
	case Enum:
		for i, v := range t.Variants {
			if v == s {
				return Value{t, uint32(i)}, nil
			}
		}
	}
	return Value{}, errors.Errorf("invalid value `%s` for property type `%s`, expected %s", s, t.Name, t.expected())
}

// FromBits decodes a field previously produced by Value.Bits.
func (t *PropertyType) FromBits(field uint32) (Value, error) {
	if field > t.Max-t.Min {
		return Value{}, errors.Errorf("field %d out of range for property type `%s`, expected %s", field, t.Name, t.expected())
	}
	return Value{t, field + t.Min}, nil
}

// Value is a single property value tagged with its type.
type Value struct {
	Type *PropertyType
	raw  uint32
}

// Bits is the value biased by the type's minimum.
func (v Value) Bits() uint32 {
	return v.raw - v.Type.Min
}

func (v Value) Bool() bool { return v.raw != 0 }

func (v Value) Int() int { return int(v.raw) }

func (v Value) String() string {
	if v.Type == nil {
		return ""
	}
	switch v.Type.Kind {
	case Boolean:
		return strconv.FormatBool(v.raw != 0)
	case Integer:
		return strconv.Itoa(int(v.raw))
	default:
		return v.Type.Variants[v.raw]
	}
}

func boolean(name string) *PropertyType {
	return &PropertyType{Name: name, Kind: Boolean, Min: 0, Max: 1}
}

func integer(name string, min, max uint32) *PropertyType {
	return &PropertyType{Name: name, Kind: Integer, Min: min, Max: max}
}

func enum(name string, variants ...string) *PropertyType {
	return &PropertyType{Name: name, Kind: Enum, Min: 0, Max: uint32(len(variants) - 1), Variants: variants}
}

var propertyTypes = buildPropertyTypes()

func buildPropertyTypes() map[string]*PropertyType {
	m := map[string]*PropertyType{}
	for _, t := range []*PropertyType{
		boolean("attached"),
		boolean("berries"),
		boolean("bottom"),
		boolean("conditional"),
		boolean("disarmed"),
		boolean("drag"),
		boolean("enabled"),
		boolean("extended"),
		boolean("eye"),
		boolean("falling"),
		boolean("hanging"),
		boolean("has_bottle0"),
		boolean("has_bottle1"),
		boolean("has_bottle2"),
		boolean("has_record"),
		boolean("has_book"),
		boolean("inverted"),
		boolean("in_wall"),
		boolean("lit"),
		boolean("locked"),
		boolean("occupied"),
		boolean("open"),
		boolean("persistent"),
		boolean("powered"),
		boolean("short"),
		boolean("signal_fire"),
		boolean("snowy"),
		boolean("triggered"),
		boolean("unstable"),
		boolean("waterlogged"),
		boolean("vine_end"),
		boolean("up"),
		boolean("down"),
		boolean("north"),
		boolean("east"),
		boolean("south"),
		boolean("west"),

		integer("age1", 0, 1),
		integer("age2", 0, 2),
		integer("age3", 0, 3),
		integer("age5", 0, 5),
		integer("age7", 0, 7),
		integer("age15", 0, 15),
		integer("age25", 0, 25),
		integer("bites", 0, 6),
		integer("candles", 1, 4),
		integer("delay", 1, 4),
		integer("distance", 1, 7),
		integer("eggs", 1, 4),
		integer("hatch", 0, 2),
		integer("layers", 1, 8),
		integer("level_cauldron", 1, 3),
		integer("level_composter", 0, 8),
		integer("level_honey", 0, 5),
		integer("level", 0, 15),
		integer("moisture", 0, 7),
		integer("note", 0, 24),
		integer("pickles", 1, 4),
		integer("power", 0, 15),
		integer("stage", 0, 1),
		integer("stability_distance", 0, 7),
		integer("respawn_anchor_charges", 0, 4),
		integer("rotation16", 0, 15),

		enum("attach_face", "floor", "wall", "ceiling"),
		enum("axis", "x", "y", "z"),
		enum("bamboo_leaves", "none", "small", "large"),
		enum("bed_part", "head", "foot"),
		enum("bell_attach_type", "floor", "ceiling", "single_wall", "double_wall"),
		enum("chest_type", "single", "right", "left"),
		enum("comparator_mode", "compare", "subtract"),
		enum("door_hinge_side", "left", "right"),
		enum("double_block_half", "upper", "lower"),
		enum("dripstone_thickness", "tip_merge", "tip", "frustum", "middle", "base"),
		enum("facing", "down", "up", "north", "south", "west", "east"),
		enum("front_and_top",
			"down_north", "down_east", "down_south", "down_west",
			"up_north", "up_east", "up_south", "up_west",
			"north_up", "east_up", "south_up", "west_up"),
		enum("half", "top", "bottom"),
		enum("horizontal_axis", "x", "z"),
		enum("hopper_facing", "down", "north", "east", "south", "west"),
		enum("horizontal_facing", "north", "east", "south", "west"),
		enum("note_block_instrument",
			"harp", "basedrum", "snare", "hat", "bass", "flute", "bell", "guitar",
			"chime", "xylophone", "iron_xylophone", "cow_bell", "didgeridoo", "bit", "banjo", "pling"),
		enum("piston_type", "normal", "sticky"),
		enum("rail_shape",
			"north_south", "east_west",
			"ascending_east", "ascending_west", "ascending_north", "ascending_south",
			"south_east", "south_west", "north_west", "north_east"),
		enum("redstone_side", "up", "side", "none"),
		enum("sculk_sensor_phase", "inactive", "active", "cooldown"),
		enum("slab_type", "top", "bottom", "double"),
		enum("stairs_shape", "straight", "inner_left", "inner_right", "outer_left", "outer_right"),
		enum("structure_mode", "save", "load", "corner", "data"),
		enum("tilt", "none", "unstable", "partial", "full"),
		enum("vertical_direction", "up", "down"),
		enum("wall_side", "none", "low", "tall"),
		enum("wood_type", "oak", "spruce", "birch", "acacia", "jungle", "dark_oak", "crimson", "warped"),
	} {
		m[t.Name] = t
	}
	return m
}

// PropertyTypeByName returns the registered property type with the given name.
func PropertyTypeByName(name string) (*PropertyType, bool) {
	t, ok := propertyTypes[name]
	return t, ok
}
