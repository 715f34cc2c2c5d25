package block

import "github.com/pkg/errors"

type PushReaction int

const (
	PushNormal PushReaction = iota
	PushDestroy
	PushBlock
	PushIgnore
	PushOnly
)

var pushReactionNames = []string{"normal", "destroy", "block", "ignore", "push_only"}

func (p PushReaction) String() string {
	return pushReactionNames[p]
}

// Color is a map color, named the way blocks.json names it.
type Color string

var colorRGB = map[Color]uint32{
	"none":                   0x000000,
	"grass":                  0x7fb238,
	"sand":                   0xf7e9a3,
	"wool":                   0xc7c7c7,
	"fire":                   0xff0000,
	"ice":                    0xa0a0ff,
	"metal":                  0xa7a7a7,
	"plant":                  0x007c00,
	"snow":                   0xffffff,
	"clay":                   0xa4a8b8,
	"dirt":                   0x976d4d,
	"stone":                  0x707070,
	"water":                  0x4040ff,
	"wood":                   0x8f7748,
	"quartz":                 0xfffcf5,
	"color_orange":           0xd87f33,
	"color_magenta":          0xb24cd8,
	"color_light_blue":       0x6699d8,
	"color_yellow":           0xe5e533,
	"color_light_green":      0x7fcc19,
	"color_pink":             0xf27fa5,
	"color_gray":             0x4c4c4c,
	"color_light_gray":       0x999999,
	"color_cyan":             0x4c7f99,
	"color_purple":           0x7f3fb2,
	"color_blue":             0x334cb2,
	"color_brown":            0x664c33,
	"color_green":            0x667f33,
	"color_red":              0x993333,
	"color_black":            0x191919,
	"gold":                   0xfaee4d,
	"diamond":                0x5cdbd5,
	"lapis":                  0x4a80ff,
	"emerald":                0x00d93a,
	"podzol":                 0x815631,
	"nether":                 0x700200,
	"terracotta_white":       0xd1b1a1,
	"terracotta_orange":      0x9f5224,
	"terracotta_magenta":     0x95576c,
	"terracotta_light_blue":  0x706c8a,
	"terracotta_yellow":      0xba8524,
	"terracotta_light_green": 0x677535,
	"terracotta_pink":        0xa04d4e,
	"terracotta_gray":        0x392923,
	"terracotta_light_gray":  0x876b62,
	"terracotta_cyan":        0x575c5c,
	"terracotta_purple":      0x7a4958,
	"terracotta_blue":        0x4c3e5c,
	"terracotta_brown":       0x4c3223,
	"terracotta_green":       0x4c522a,
	"terracotta_red":         0x8e3c2e,
	"terracotta_black":       0x251610,
	"crimson_nylium":         0xbd3031,
	"crimson_stem":           0x943f61,
	"crimson_hyphae":         0x5c191d,
	"warped_nylium":          0x167e86,
	"warped_stem":            0x3a8e8c,
	"warped_hyphae":          0x562c3e,
	"warped_wart_block":      0x14b485,
	"deepslate":              0x646464,
	"raw_iron":               0xd8af93,
	"glow_lichen":            0x7fa796,
}

// RGB returns the color as 0xRRGGBB.
func (c Color) RGB() uint32 {
	return colorRGB[c]
}

func parseColor(name string) (Color, error) {
	if _, ok := colorRGB[Color(name)]; !ok {
		return "", errors.Errorf("unknown map color `%s`", name)
	}
	return Color(name), nil
}

type Material struct {
	Name          string
	Color         Color
	BlocksMotion  bool
	SolidBlocking bool
	Solid         bool
	Replaceable   bool
	Flammable     bool
	Liquid        bool
	PushReaction  PushReaction
}

type rawMaterial struct {
	Color            string `json:"color"`
	NoCollider       bool   `json:"no_collider"`
	NonSolidBlocking bool   `json:"non_solid_blocking"`
	NonSolid         bool   `json:"non_solid"`
	Flammable        bool   `json:"flammable"`
	Replaceable      bool   `json:"replaceable"`
	Liquid           bool   `json:"liquid"`
	DestroyOnPush    bool   `json:"destroy_on_push"`
	NotPushable      bool   `json:"not_pushable"`
}

func (r *rawMaterial) build(name string) (*Material, error) {
	color, err := parseColor(r.Color)
	if err != nil {
		return nil, errors.Wrapf(err, "material `%s`", name)
	}
	m := &Material{
		Name:          name,
		Color:         color,
		BlocksMotion:  !r.NoCollider,
		SolidBlocking: !r.NonSolidBlocking,
		Solid:         !r.NonSolid,
		Replaceable:   r.Replaceable,
		Flammable:     r.Flammable,
		Liquid:        r.Liquid,
	}
	switch {
	case r.DestroyOnPush && r.NotPushable:
		return nil, errors.Errorf("material `%s` is both destroyed on push and not pushable", name)
	case r.DestroyOnPush:
		m.PushReaction = PushDestroy
	case r.NotPushable:
		m.PushReaction = PushBlock
	}
	return m, nil
}
