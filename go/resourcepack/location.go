package resourcepack

import (
	"strings"

	"github.com/pkg/errors"
)

const DefaultNamespace = "minecraft"

// Location is a resource location in its canonical `namespace:path` form.
type Location string

func isLegal(c rune) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c == '_' || c == '-' || c == '.'
}

// ParseLocation validates s and fills in the default namespace.
func ParseLocation(s string) (Location, error) {
	ns, path, found := strings.Cut(s, ":")
	if !found {
		ns, path = DefaultNamespace, s
	} else if ns == "" {
		return "", errors.New("resource location namespace is empty")
	}
	for _, c := range ns {
		if !isLegal(c) {
			return "", errors.Errorf("resource location namespace contains illegal character `%c`", c)
		}
	}
	if path == "" {
		return "", errors.New("resource location path is empty")
	}
	for _, c := range path {
		if !isLegal(c) && c != '/' {
			return "", errors.Errorf("resource location path contains illegal character `%c`", c)
		}
	}
	return Location(ns + ":" + path), nil
}

func MustParseLocation(s string) Location {
	l, err := ParseLocation(s)
	if err != nil {
		panic(err)
	}
	return l
}

func (l Location) Namespace() string {
	ns, _, _ := strings.Cut(string(l), ":")
	return ns
}

func (l Location) Path() string {
	_, path, _ := strings.Cut(string(l), ":")
	return path
}

func (l Location) String() string {
	return string(l)
}

// Asset is the pack-relative file holding this resource, e.g.
// Asset("models", "json") for a block model.
func (l Location) Asset(kind, ext string) string {
	return "assets/" + l.Namespace() + "/" + kind + "/" + l.Path() + "." + ext
}
