package render

import (
	"log/slog"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/rmmh/blockbake/go/block"
	rp "github.com/rmmh/blockbake/go/resourcepack"
)

type VariantSelector struct {
	When    VariantPredicate
	Entries []Entry
}

type PartSelector struct {
	When    *PartPredicate
	Entries []Entry
}

// Model is the baked model of one block kind. Only one of Variants and
// Multipart is set.
type Model struct {
	AmbientOcclusion bool
	GUI3D            bool
	BlockLight       bool
	ItemTransforms   ItemTransforms

	Variants  []VariantSelector
	Multipart []PartSelector
}

func defaultModel() *Model {
	return &Model{
		AmbientOcclusion: true,
		GUI3D:            true,
		BlockLight:       true,
		ItemTransforms:   identityTransforms(),
	}
}

// Registry holds the baked model of every loaded block kind.
type Registry struct {
	models   []*Model
	kinds    []*block.Kind
	textures int
}

type loadOptions struct {
	kinds []*block.Kind
}

type Option func(*loadOptions)

// WithKinds restricts loading to the given kinds. Other kinds get the
// default model and no faces.
func WithKinds(kinds ...*block.Kind) Option {
	return func(o *loadOptions) {
		o.kinds = kinds
	}
}

// Load bakes the model of every block kind from packs, uploading each
// referenced texture once. Any error aborts the whole load.
func Load(packs rp.Packs, uploader Uploader, opts ...Option) (*Registry, error) {
	o := loadOptions{kinds: block.Kinds()}
	for _, opt := range opts {
		opt(&o)
	}

	b := newBakery(packs, uploader)
	r := &Registry{
		models: make([]*Model, block.Count()),
		kinds:  o.kinds,
	}
	for _, kind := range o.kinds {
		m, err := b.loadKind(kind)
		if err != nil {
			return nil, err
		}
		r.models[kind.ID] = m
	}
	r.textures = int(b.nextTexture)
	slog.Info("baked block models", "kinds", len(o.kinds), "models", len(b.models), "textures", r.textures)
	return r, nil
}

func (b *bakery) loadKind(kind *block.Kind) (*Model, error) {
	path := "assets/minecraft/blockstates/" + kind.Name + ".json"
	idx, f, err := b.packs.FindFile(0, path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load `%s`", path)
	}
	b.packIndex = idx
	var st rp.BlockState
	if err := f.Decode(&st); err != nil {
		return nil, err
	}
	m, err := b.bakeState(kind, &st)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load `%s`", f.Path())
	}
	return m, nil
}

func (b *bakery) bakeEntries(specs []rp.ModelSpec) ([]Entry, error) {
	if len(specs) == 0 {
		return nil, errors.New("expected at least one model")
	}
	entries := make([]Entry, len(specs))
	for i := range specs {
		var err error
		if entries[i], err = b.bakeSpec(&specs[i]); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func (b *bakery) bakeState(kind *block.Kind, st *rp.BlockState) (*Model, error) {
	def := &kind.Definition
	m := defaultModel()
	var first *RawModel
	for _, v := range st.Variants {
		pred, err := ParseVariantPredicate(def, v.Key)
		if err != nil {
			return nil, errors.Wrapf(err, "variant `%s`", v.Key)
		}
		entries, err := b.bakeEntries(v.Apply)
		if err != nil {
			return nil, errors.Wrapf(err, "variant `%s`", v.Key)
		}
		if first == nil {
			first = entries[0].raw
		}
		m.Variants = append(m.Variants, VariantSelector{When: pred, Entries: entries})
	}
	for i, c := range st.Multipart {
		pred, err := NewPartPredicate(def, c.When)
		if err != nil {
			return nil, errors.Wrapf(err, "multipart case %d", i)
		}
		entries, err := b.bakeEntries(c.Apply)
		if err != nil {
			return nil, errors.Wrapf(err, "multipart case %d", i)
		}
		if first == nil {
			first = entries[0].raw
		}
		m.Multipart = append(m.Multipart, PartSelector{When: pred, Entries: entries})
	}
	if first != nil {
		m.AmbientOcclusion = first.AmbientOcclusion()
		m.GUI3D = first.GUI3D()
		m.BlockLight = first.BlockLight()
		m.ItemTransforms = first.ItemTransforms()
	}
	return m, nil
}

// Model returns the baked model of a kind, or a default model for kinds
// that weren't loaded.
func (r *Registry) Model(id block.ID) *Model {
	if int(id) < len(r.models) && r.models[id] != nil {
		return r.models[id]
	}
	return defaultModel()
}

// Kinds lists the kinds that were loaded, in ID order.
func (r *Registry) Kinds() []*block.Kind {
	return r.kinds
}

// TextureCount is the number of textures handed to the uploader.
func (r *Registry) TextureCount() int {
	return r.textures
}

func (r *Registry) model(b block.Block) *Model {
	if int(b.ID()) >= len(r.models) {
		return nil
	}
	return r.models[b.ID()]
}

// FacesOf returns the faces to draw for a state, using the first entry of
// every selector. The result must not be modified.
func (r *Registry) FacesOf(b block.Block) *Faces {
	return r.faces(b, func(entries []Entry) *Faces { return entries[0].Faces })
}

// FacesAt is FacesOf with weighted selections resolved the way the game
// picks them for a block at x, y, z.
func (r *Registry) FacesAt(b block.Block, x, y, z int) *Faces {
	seed := PositionSeed(x, y, z)
	return r.faces(b, func(entries []Entry) *Faces { return pickWeighted(entries, seed).Faces })
}

func (r *Registry) faces(b block.Block, pick func([]Entry) *Faces) *Faces {
	m := r.model(b)
	if m == nil {
		return &Faces{}
	}
	for _, s := range m.Variants {
		if s.When.Match(b) {
			return pick(s.Entries)
		}
	}
	if m.Multipart == nil {
		return &Faces{}
	}
	out := &Faces{}
	for _, s := range m.Multipart {
		if s.When.Match(b) {
			out.add(pick(s.Entries))
		}
	}
	return out
}

// PositionSeed is the game's per-position random seed.
func PositionSeed(x, y, z int) int64 {
	l := int64(int32(x)*3129871) ^ int64(z)*116129781 ^ int64(y)
	l = l*l*42317861 + l*11
	return l >> 16
}

func pickWeighted(entries []Entry, seed int64) Entry {
	total := lo.SumBy(entries, func(e Entry) int { return e.Weight })
	if seed < 0 {
		seed = -seed
	}
	n := int(seed % int64(total))
	for _, e := range entries {
		if n < e.Weight {
			return e
		}
		n -= e.Weight
	}
	return entries[len(entries)-1]
}
