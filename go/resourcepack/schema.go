package resourcepack

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

type ModelSpec struct {
	Model  string `json:"model"`
	X      *int   `json:"x,omitempty"`
	Y      *int   `json:"y,omitempty"`
	UVLock *bool  `json:"uvlock,omitempty"`
	Weight *int   `json:"weight,omitempty"`
}

// SingleOrSlice wraps a slice with custom JSON marshaling/unmarshaling behavior.
// Single-element slices are encoded as that element, otherwise it's encoded as an array.
type SingleOrSlice[T any] []T

func (s *SingleOrSlice[T]) Slice() []T {
	return []T(*s)
}

func (s SingleOrSlice[T]) MarshalJSON() ([]byte, error) {
	if len(s) == 1 {
		return json.Marshal(s.Slice()[0])
	}
	return json.Marshal(s.Slice())
}

func (s *SingleOrSlice[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, (*[]T)(s))
	}
	*s = make([]T, 1)
	return json.Unmarshal(data, &(([]T)(*s))[0])
}

// BlockStateWhenClause is the `when` of a multipart case. Values are kept as
// decoded (string, bool or float64) and interpreted against a block definition
// later.
type BlockStateWhenClause struct {
	IsOr    bool
	Clauses []map[string]any
}

func (c *BlockStateWhenClause) UnmarshalJSON(data []byte) error {
	var temp map[string]json.RawMessage
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}

	if orClauses, ok := temp["OR"]; ok {
		c.IsOr = true
		return json.Unmarshal(orClauses, &c.Clauses)
	} else if andClauses, ok := temp["AND"]; ok {
		return json.Unmarshal(andClauses, &c.Clauses)
	}

	var singleClause map[string]any
	if err := json.Unmarshal(data, &singleClause); err != nil {
		return err
	}
	c.Clauses = append(c.Clauses[:0], singleClause)
	return nil
}

func (c BlockStateWhenClause) MarshalJSON() ([]byte, error) {
	if c.IsOr {
		return json.Marshal(map[string][]map[string]any{
			"OR": c.Clauses,
		})
	} else if len(c.Clauses) != 1 {
		return json.Marshal(map[string][]map[string]any{
			"AND": c.Clauses,
		})
	}
	return json.Marshal(c.Clauses[0])
}

type Variant struct {
	Key   string
	Apply SingleOrSlice[ModelSpec]
}

// Variants keeps the variant keys in file order, since the first matching
// key wins.
type Variants []Variant

func (v *Variants) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.Errorf("variants must be an object, got %v", tok)
	}
	*v = (*v)[:0]
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var apply SingleOrSlice[ModelSpec]
		if err := dec.Decode(&apply); err != nil {
			return errors.Wrapf(err, "variant `%s`", key)
		}
		*v = append(*v, Variant{Key: key, Apply: apply})
	}
	_, err = dec.Token()
	return err
}

func (v Variants) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, variant := range v {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(variant.Key)
		if err != nil {
			return nil, err
		}
		apply, err := json.Marshal(variant.Apply)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(apply)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type MultipartCase struct {
	When  *BlockStateWhenClause    `json:"when,omitempty"`
	Apply SingleOrSlice[ModelSpec] `json:"apply,omitempty"`
}

type BlockState struct {
	Variants  Variants        `json:"variants,omitempty"`
	Multipart []MultipartCase `json:"multipart,omitempty"`
}

type BlockModelFace struct {
	UV        []float64 `json:"uv,omitempty"`
	Texture   string    `json:"texture"`
	Cull      *bool     `json:"cull,omitempty"`
	CullFace  string    `json:"cullface,omitempty"`
	Rotation  *int      `json:"rotation,omitempty"`
	TintIndex *int      `json:"tintindex,omitempty"`
}

type ElementRotation struct {
	Origin  []float64 `json:"origin,omitempty"`
	Axis    string    `json:"axis,omitempty"`
	Angle   float64   `json:"angle"`
	Rescale *bool     `json:"rescale,omitempty"`
}

type ModelElement struct {
	From          []float64                 `json:"from"`
	To            []float64                 `json:"to"`
	Rotation      *ElementRotation          `json:"rotation,omitempty"`
	Shade         *bool                     `json:"shade,omitempty"`
	Faces         map[string]BlockModelFace `json:"faces"`
	Comment       string                    `json:"__comment,omitempty"`
	Name          string                    `json:"name,omitempty"`
	LightEmission int                       `json:"light_emission,omitempty"`
}

type ModelTransform struct {
	Rotation    []float64 `json:"rotation,omitempty"`
	Scale       []float64 `json:"scale,omitempty"`
	Translation []float64 `json:"translation,omitempty"`
}

// Model is a block or item model. Groups and item overrides are kept
// verbatim since baking never reads them.
type Model struct {
	Parent           string                     `json:"parent,omitempty"`
	AmbientOcclusion *bool                      `json:"ambientocclusion,omitempty"`
	Textures         map[string]string          `json:"textures,omitempty"`
	TextureSize      []int                      `json:"texture_size,omitempty"`
	Elements         []*ModelElement            `json:"elements,omitempty"`
	Groups           []json.RawMessage          `json:"groups,omitempty"`
	Display          map[string]*ModelTransform `json:"display,omitempty"`
	GuiLight         string                     `json:"gui_light,omitempty"`
	Overrides        []json.RawMessage          `json:"overrides,omitempty"`
}

// AnimationFrame is either a bare frame index or an {index, time} pair.
type AnimationFrame struct {
	Index int
	Time  *int
}

func (f *AnimationFrame) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var full struct {
			Index *int `json:"index"`
			Time  *int `json:"time"`
		}
		if err := json.Unmarshal(data, &full); err != nil {
			return err
		}
		if full.Index == nil {
			return errors.New("animation frame is missing `index`")
		}
		f.Index, f.Time = *full.Index, full.Time
		return nil
	}
	f.Time = nil
	return json.Unmarshal(data, &f.Index)
}

func (f AnimationFrame) MarshalJSON() ([]byte, error) {
	if f.Time == nil {
		return json.Marshal(f.Index)
	}
	return json.Marshal(map[string]int{"index": f.Index, "time": *f.Time})
}

type Animation struct {
	Interpolate bool             `json:"interpolate,omitempty"`
	Width       *int             `json:"width,omitempty"`
	Height      *int             `json:"height,omitempty"`
	FrameTime   *int             `json:"frametime,omitempty"`
	Frames      []AnimationFrame `json:"frames,omitempty"`
}

type TextureOptions struct {
	Blur  bool `json:"blur,omitempty"`
	Clamp bool `json:"clamp,omitempty"`
}

// TextureMeta is the `.png.mcmeta` sidecar of a texture.
type TextureMeta struct {
	Animation *Animation      `json:"animation,omitempty"`
	Texture   *TextureOptions `json:"texture,omitempty"`
}
