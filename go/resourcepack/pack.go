package resourcepack

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mholt/archiver"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

var ErrNotInPacks = errors.New("specified file not found in the hierarchy of selected resource packs")

// Pack is a single resource pack: a directory, a zip or jar, or another
// archive format.
type Pack interface {
	Open(name string) (*File, error)
	// List returns the name of every file in the pack.
	List() ([]string, error)
	Path() string
	Close() error
}

// File is a file found in a Pack. Its contents are read lazily.
type File struct {
	Name string
	pack string
	open func() (io.ReadCloser, error)
}

// Path joins the pack path and the file name, for diagnostics.
func (f *File) Path() string {
	return filepath.Join(f.pack, filepath.FromSlash(f.Name))
}

func (f *File) ReadAll() ([]byte, error) {
	rc, err := f.open()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", f.Path())
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", f.Path())
	}
	return data, nil
}

// Decode unmarshals the file as JSON into v.
func (f *File) Decode(v any) error {
	data, err := f.ReadAll()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrapf(err, "failed to parse %s", f.Path())
	}
	return nil
}

// fsPack serves directories and zips, which both implement fs.FS.
type fsPack struct {
	path   string
	fsys   fs.FS
	closer io.Closer
}

// NewFSPack wraps any file system as a pack. path only labels diagnostics.
func NewFSPack(path string, fsys fs.FS) Pack {
	return &fsPack{path: path, fsys: fsys}
}

func (p *fsPack) Open(name string) (*File, error) {
	st, err := fs.Stat(p.fsys, name)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", filepath.Join(p.path, name))
	}
	if st.IsDir() {
		return nil, errors.Wrapf(fs.ErrNotExist, "failed to open %s: is a directory", filepath.Join(p.path, name))
	}
	return &File{
		Name: name,
		pack: p.path,
		open: func() (io.ReadCloser, error) { return p.fsys.Open(name) },
	}, nil
}

func (p *fsPack) List() ([]string, error) {
	var names []string
	err := fs.WalkDir(p.fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			names = append(names, name)
		}
		return nil
	})
	return names, errors.Wrapf(err, "failed to list %s", p.path)
}

func (p *fsPack) Path() string { return p.path }

func (p *fsPack) Close() error {
	if p.closer != nil {
		return p.closer.Close()
	}
	return nil
}

// memPack holds every file of an archive that can't be read randomly.
type memPack struct {
	path  string
	files map[string][]byte
}

func (p *memPack) Open(name string) (*File, error) {
	data, ok := p.files[name]
	if !ok {
		return nil, errors.Wrapf(fs.ErrNotExist, "failed to open %s", filepath.Join(p.path, name))
	}
	return &File{
		Name: name,
		pack: p.path,
		open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}, nil
}

func (p *memPack) List() ([]string, error) {
	names := lo.Keys(p.files)
	sort.Strings(names)
	return names, nil
}

func (p *memPack) Path() string { return p.path }

func (p *memPack) Close() error {
	p.files = nil
	return nil
}

func isZip(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".zip" || ext == ".jar"
}

// OpenPack opens a directory, zip or jar directly, and loads any other
// archive format (tar, tar.gz, tar.xz, ...) into memory.
func OpenPack(p string) (Pack, error) {
	st, err := os.Stat(p)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open resource pack")
	}
	if st.IsDir() {
		return &fsPack{path: p, fsys: os.DirFS(p)}, nil
	}
	if isZip(p) {
		zr, err := zip.OpenReader(p)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open resource pack %s", p)
		}
		return &fsPack{path: p, fsys: zr, closer: zr}, nil
	}
	return loadArchive(p)
}

func loadArchive(p string) (*memPack, error) {
	mp := &memPack{path: p, files: map[string][]byte{}}
	err := archiver.Walk(p, func(f archiver.File) error {
		if f.IsDir() {
			return nil
		}
		name := f.Name()
		if h, ok := f.Header.(*tar.Header); ok {
			name = h.Name
		} else if h, ok := f.Header.(zip.FileHeader); ok {
			name = h.Name
		}
		name = strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(name)), "/")
		data, err := io.ReadAll(f)
		if err != nil {
			return errors.Wrapf(err, "failed to read %s from %s", name, p)
		}
		mp.files[name] = data
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open resource pack %s", p)
	}
	return mp, nil
}

// Packs is a list of packs where lower indices override higher ones.
type Packs []Pack

func OpenPacks(paths []string) (Packs, error) {
	var packs Packs
	for _, p := range paths {
		pack, err := OpenPack(p)
		if err != nil {
			packs.Close()
			return nil, err
		}
		packs = append(packs, pack)
	}
	return packs, nil
}

// FindFile returns the first pack at or after start that contains name,
// along with its index.
func (ps Packs) FindFile(start int, name string) (int, *File, error) {
	for i := start; i < len(ps); i++ {
		f, err := ps[i].Open(name)
		if err == nil {
			return i, f, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return -1, nil, err
		}
	}
	return -1, nil, errors.Wrapf(ErrNotInPacks, "failed to find %s", name)
}

func (ps Packs) Close() error {
	var first error
	for _, p := range ps {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
