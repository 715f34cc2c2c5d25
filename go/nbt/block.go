package nbt

import (
	"slices"
	"sort"
	"strconv"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/rmmh/blockbake/go/block"
)

type paletteEntry struct {
	name  string
	props map[string]string
}

func (e *paletteEntry) set(rel []string, ty Type, value []byte) error {
	switch {
	case len(rel) == 1 && rel[0] == "Name":
		if ty != TagString {
			return errors.Errorf("block `Name` must be a string, got %s", ty)
		}
		e.name = string(value)
	case len(rel) == 2 && rel[0] == "Properties":
		if ty != TagString {
			return errors.Errorf("block property `%s` must be a string, got %s", rel[1], ty)
		}
		if e.props == nil {
			e.props = map[string]string{}
		}
		e.props[rel[1]] = string(value)
	}
	return nil
}

func (e *paletteEntry) encode() (block.Block, error) {
	if e.name == "" {
		return 0, errors.New("block compound has no `Name`")
	}
	kind, ok := block.Lookup(e.name)
	if !ok {
		return 0, errors.Errorf("unknown block `%s`", e.name)
	}
	return block.Encode(kind, e.props)
}

// DecodeBlock reads a root compound holding a `Name` string and an optional
// `Properties` compound of strings.
func DecodeBlock(buf []byte) (block.Block, error) {
	var entry paletteEntry
	var bad error
	err := Walk(buf, func(path []string, idxes []int, ty Type, value []byte) {
		if bad == nil {
			bad = entry.set(path, ty, value)
		}
	})
	if err != nil {
		return 0, err
	}
	if bad != nil {
		return 0, bad
	}
	return entry.encode()
}

// DecodePalette decodes the list of block compounds found at path, e.g.
// "sections", "3", "block_states", "palette" in a chunk or "palette" in a
// structure file.
func DecodePalette(buf []byte, path ...string) ([]block.Block, error) {
	entries := map[int]*paletteEntry{}
	found := false
	var bad error
	err := Walk(buf, func(p []string, idxes []int, ty Type, value []byte) {
		if bad != nil || len(p) < len(path) || !slices.Equal(p[:len(path)], path) {
			return
		}
		if len(p) == len(path) {
			found = true
			if ty != TagList {
				bad = errors.Errorf("palette `%s` is a %s, not a list", p[len(p)-1], ty)
			}
			return
		}
		i, err := strconv.Atoi(p[len(path)])
		if err != nil {
			return
		}
		e, ok := entries[i]
		if !ok {
			e = &paletteEntry{}
			entries[i] = e
		}
		bad = errors.Wrapf(e.set(p[len(path)+1:], ty, value), "palette entry %d", i)
	})
	if err != nil {
		return nil, err
	}
	if bad != nil {
		return nil, bad
	}
	if !found && len(entries) == 0 {
		return nil, errors.Errorf("no palette at %v", path)
	}

	idxs := lo.Keys(entries)
	sort.Ints(idxs)
	out := make([]block.Block, len(idxs))
	for j, i := range idxs {
		if i != j {
			return nil, errors.Errorf("palette entry %d is not a compound", j)
		}
		b, err := entries[i].encode()
		if err != nil {
			return nil, errors.Wrapf(err, "palette entry %d", i)
		}
		out[j] = b
	}
	return out, nil
}
