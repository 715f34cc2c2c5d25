package block

import "github.com/pkg/errors"

// SoundType is the set of sounds a block makes.
type SoundType struct {
	Name   string
	Volume float32
	Pitch  float32
	Break  string
	Step   string
	Place  string
	Hit    string
	Fall   string
}

type rawSound struct {
	Volume *float32 `json:"volume"`
	Pitch  *float32 `json:"pitch"`
	Events []string `json:"events"`
}

func (r *rawSound) build(name string) (*SoundType, error) {
	if len(r.Events) != 5 {
		return nil, errors.Errorf("sound type `%s` has %d events, expected break, step, place, hit and fall", name, len(r.Events))
	}
	s := &SoundType{
		Name:   name,
		Volume: 1,
		Pitch:  1,
		Break:  r.Events[0],
		Step:   r.Events[1],
		Place:  r.Events[2],
		Hit:    r.Events[3],
		Fall:   r.Events[4],
	}
	if r.Volume != nil {
		s.Volume = *r.Volume
	}
	if r.Pitch != nil {
		s.Pitch = *r.Pitch
	}
	return s, nil
}
