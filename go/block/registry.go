package block

import (
	_ "embed"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

//go:embed blocks.json
var blocksJSON []byte

// ID is the numeric identifier of a block kind. ID 0 is air, so a zeroed
// state word is a valid block.
type ID uint16

const Air ID = 0

const DefaultNamespace = "minecraft"

// Behavior holds the static gameplay properties of a block kind.
type Behavior struct {
	Material            *Material
	Color               Color
	HasCollision        bool
	RequiresCorrectTool bool
	DestroyTime         float32
	ExplosionResistance float32
	Sound               *SoundType
	RandomlyTicking     bool
	Friction            float32
	SpeedFactor         float32
	JumpFactor          float32
	CanOcclude          bool
	DynamicShape        bool
	IsAir               bool
}

// Kind is one registered block type.
type Kind struct {
	ID         ID
	Name       string
	Behavior   Behavior
	Definition Definition
}

// Location is the kind's namespaced resource name.
func (k *Kind) Location() string {
	return DefaultNamespace + ":" + k.Name
}

// Default is the state with every property at its minimum.
func (k *Kind) Default() Block {
	return Block(k.ID)
}

type registry struct {
	kinds  []*Kind
	byName map[string]*Kind
}

var kinds = mustLoadRegistry()

func mustLoadRegistry() *registry {
	r, err := loadRegistry(blocksJSON)
	if err != nil {
		panic(err)
	}
	return r
}

func ByID(id ID) *Kind {
	if int(id) >= len(kinds.kinds) {
		return nil
	}
	return kinds.kinds[id]
}

// Lookup finds a kind by name, with or without the `minecraft:` prefix.
func Lookup(name string) (*Kind, bool) {
	k, ok := kinds.byName[strings.TrimPrefix(name, DefaultNamespace+":")]
	return k, ok
}

func Kinds() []*Kind {
	return kinds.kinds
}

func Count() int {
	return len(kinds.kinds)
}

type rawBehavior struct {
	Like          string   `json:"like"`
	Material      string   `json:"material"`
	Color         string   `json:"color"`
	Sound         string   `json:"sound"`
	Hardness      *float32 `json:"hardness"`
	Resistance    *float32 `json:"resistance"`
	NoCollision   bool     `json:"no_collision"`
	CorrectTool   bool     `json:"correct_tool"`
	TicksRandomly bool     `json:"ticks_randomly"`
	NoOcclusion   bool     `json:"no_occlusion"`
	DynamicShape  bool     `json:"dynamic_shape"`
	Air           bool     `json:"air"`
	Friction      *float32 `json:"friction"`
	SpeedFactor   *float32 `json:"speed_factor"`
	JumpFactor    *float32 `json:"jump_factor"`
}

type rawBlock struct {
	Name       string      `json:"name"`
	Properties [][2]string `json:"properties"`
	rawBehavior
}

type rawRegistry struct {
	Materials map[string]*rawMaterial `json:"materials"`
	Sounds    map[string]*rawSound    `json:"sounds"`
	Blocks    []*rawBlock             `json:"blocks"`
}

func loadRegistry(data []byte) (*registry, error) {
	var raw rawRegistry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "failed to parse block table")
	}
	if len(raw.Blocks) == 0 || raw.Blocks[0].Name != "air" {
		return nil, errors.New("block table must start with air")
	}
	if len(raw.Blocks) > 1<<IDBits {
		return nil, errors.Errorf("%d blocks do not fit in %d id bits", len(raw.Blocks), IDBits)
	}

	materials := map[string]*Material{}
	for name, m := range raw.Materials {
		built, err := m.build(name)
		if err != nil {
			return nil, err
		}
		materials[name] = built
	}
	sounds := map[string]*SoundType{}
	for name, s := range raw.Sounds {
		built, err := s.build(name)
		if err != nil {
			return nil, err
		}
		sounds[name] = built
	}

	r := &registry{byName: map[string]*Kind{}}
	rawByName := map[string]*rawBlock{}
	for _, b := range raw.Blocks {
		if _, dup := rawByName[b.Name]; dup {
			return nil, errors.Errorf("duplicate block `%s`", b.Name)
		}
		rawByName[b.Name] = b
	}

	br := behaviorResolver{
		raw:       rawByName,
		materials: materials,
		sounds:    sounds,
		done:      map[string]Behavior{},
		visiting:  map[string]bool{},
	}
	for i, b := range raw.Blocks {
		names := make([]string, len(b.Properties))
		types := make([]*PropertyType, len(b.Properties))
		for j, p := range b.Properties {
			t, ok := propertyTypes[p[1]]
			if !ok {
				return nil, errors.Errorf("block `%s` uses unknown property type `%s`", b.Name, p[1])
			}
			names[j], types[j] = p[0], t
		}
		def, err := newDefinition(names, types)
		if err != nil {
			return nil, errors.Wrapf(err, "block `%s`", b.Name)
		}
		behavior, err := br.resolve(b.Name)
		if err != nil {
			return nil, err
		}
		kind := &Kind{ID: ID(i), Name: b.Name, Behavior: behavior, Definition: def}
		r.kinds = append(r.kinds, kind)
		r.byName[b.Name] = kind
	}
	return r, nil
}

type behaviorResolver struct {
	raw       map[string]*rawBlock
	materials map[string]*Material
	sounds    map[string]*SoundType
	done      map[string]Behavior
	visiting  map[string]bool
}

func (br *behaviorResolver) resolve(name string) (Behavior, error) {
	if b, ok := br.done[name]; ok {
		return b, nil
	}
	rb, ok := br.raw[name]
	if !ok {
		return Behavior{}, errors.Errorf("unknown block `%s`", name)
	}
	if br.visiting[name] {
		return Behavior{}, errors.Errorf("block `%s` inherits its behavior from itself", name)
	}
	br.visiting[name] = true
	defer delete(br.visiting, name)

	var b Behavior
	if rb.Like != "" {
		base, err := br.resolve(rb.Like)
		if err != nil {
			return b, errors.Wrapf(err, "block `%s` is like `%s`", name, rb.Like)
		}
		b = base
	} else {
		if rb.Material == "" || rb.Color == "" {
			return b, errors.Errorf("block `%s` needs either `like` or a material and color", name)
		}
		b = Behavior{
			HasCollision: true,
			Sound:        br.sounds["stone"],
			Friction:     0.6,
			SpeedFactor:  1,
			JumpFactor:   1,
			CanOcclude:   true,
		}
	}

	if rb.Material != "" {
		m, ok := br.materials[rb.Material]
		if !ok {
			return b, errors.Errorf("block `%s` uses unknown material `%s`", name, rb.Material)
		}
		b.Material = m
	}
	if rb.Color != "" {
		c, err := parseColor(rb.Color)
		if err != nil {
			return b, errors.Wrapf(err, "block `%s`", name)
		}
		b.Color = c
	}
	if rb.Sound != "" {
		s, ok := br.sounds[rb.Sound]
		if !ok {
			return b, errors.Errorf("block `%s` uses unknown sound type `%s`", name, rb.Sound)
		}
		b.Sound = s
	}
	if rb.Hardness != nil {
		b.DestroyTime = *rb.Hardness
	}
	if rb.Resistance != nil {
		b.ExplosionResistance = *rb.Resistance
	}
	if rb.Friction != nil {
		b.Friction = *rb.Friction
	}
	if rb.SpeedFactor != nil {
		b.SpeedFactor = *rb.SpeedFactor
	}
	if rb.JumpFactor != nil {
		b.JumpFactor = *rb.JumpFactor
	}
	if rb.NoCollision {
		b.HasCollision = false
	}
	if rb.CorrectTool {
		b.RequiresCorrectTool = true
	}
	if rb.TicksRandomly {
		b.RandomlyTicking = true
	}
	if rb.NoOcclusion {
		b.CanOcclude = false
	}
	if rb.DynamicShape {
		b.DynamicShape = true
	}
	if rb.Air {
		b.IsAir = true
	}

	br.done[name] = b
	return b, nil
}
