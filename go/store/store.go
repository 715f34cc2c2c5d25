// Package store keeps baked block faces in an SQLite database, one
// compressed row per block state.
package store

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"math"

	lz4 "github.com/DataDog/golz4-2"
	"github.com/go-gl/mathgl/mgl32"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/rmmh/blockbake/go/block"
	"github.com/rmmh/blockbake/go/render"
)

const formatQuadsV1 = 1

const schema = `
CREATE TABLE IF NOT EXISTS kinds (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	properties TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS faces (
	state INTEGER PRIMARY KEY,
	quads BLOB NOT NULL
);`

type Store struct {
	db *sql.DB
}

// Create opens or creates the database at path.
func Create(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	for _, stmt := range []string{"PRAGMA journal_mode=MEMORY", "PRAGMA synchronous=OFF", schema} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "failed to initialize %s", path)
		}
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// PutKind records a kind's name and property layout.
func (s *Store) PutKind(k *block.Kind) error {
	props := make([][2]string, len(k.Definition.Properties))
	for i, p := range k.Definition.Properties {
		props[i] = [2]string{p.Name, p.Type.Name}
	}
	buf, err := json.Marshal(props)
	if err != nil {
		return err
	}
	_, err = s.db.Exec("INSERT OR REPLACE INTO kinds (id, name, properties) VALUES (?, ?, ?)", int(k.ID), k.Name, string(buf))
	return errors.Wrapf(err, "failed to store kind %s", k.Name)
}

// KindName looks up a kind stored by PutKind.
func (s *Store) KindName(id block.ID) (string, error) {
	var name string
	err := s.db.QueryRow("SELECT name FROM kinds WHERE id = ?", int(id)).Scan(&name)
	return name, errors.Wrapf(err, "failed to find kind %d", id)
}

func (s *Store) PutFaces(b block.Block, f *render.Faces) error {
	_, err := s.db.Exec("INSERT OR REPLACE INTO faces (state, quads) VALUES (?, ?)", int64(b), compress(encodeFaces(f)))
	return errors.Wrapf(err, "failed to store faces of %s", b)
}

func (s *Store) GetFaces(b block.Block) (*render.Faces, error) {
	var buf []byte
	if err := s.db.QueryRow("SELECT quads FROM faces WHERE state = ?", int64(b)).Scan(&buf); err != nil {
		return nil, errors.Wrapf(err, "failed to load faces of %s", b)
	}
	raw, err := decompress(buf)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load faces of %s", b)
	}
	f, err := decodeFaces(raw)
	return f, errors.Wrapf(err, "failed to load faces of %s", b)
}

// Count is the number of stored states.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM faces").Scan(&n)
	return n, err
}

// compress prefixes the lz4 stream with a format byte.
func compress(buf []byte) []byte {
	comp := make([]byte, lz4.CompressBoundHdr(buf)+1)
	n, err := lz4.CompressHCHdr(comp[1:], buf)
	if err != nil {
		panic(err)
	}
	comp[0] = formatQuadsV1
	return comp[:n+1]
}

func decompress(buf []byte) ([]byte, error) {
	if len(buf) == 0 || buf[0] != formatQuadsV1 {
		return nil, errors.New("unknown faces format")
	}
	return lz4.UncompressAllocHdr(nil, buf[1:])
}

const quadSize = 2 + 4 + 4*(3*4+4+4)

func appendQuad(buf []byte, q *render.Quad) []byte {
	shade := byte(0)
	if q.Shade {
		shade = 1
	}
	buf = append(buf, byte(q.Direction), shade)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(q.TintIndex))
	for _, v := range q.Vertices {
		for _, c := range v.Position {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(c))
		}
		buf = binary.LittleEndian.AppendUint32(buf, v.TexIndex)
		buf = binary.LittleEndian.AppendUint32(buf, v.TexCoords)
	}
	return buf
}

// encodeFaces writes the quad counts of the unculled list and each culled
// direction, followed by every quad in that order.
func encodeFaces(f *render.Faces) []byte {
	buf := binary.AppendUvarint(nil, uint64(len(f.Unculled)))
	for _, c := range f.Culled {
		buf = binary.AppendUvarint(buf, uint64(len(c)))
	}
	for i := range f.Unculled {
		buf = appendQuad(buf, &f.Unculled[i])
	}
	for _, c := range f.Culled {
		for i := range c {
			buf = appendQuad(buf, &c[i])
		}
	}
	return buf
}

func readQuad(buf []byte) render.Quad {
	q := render.Quad{
		Direction: render.Direction(buf[0]),
		Shade:     buf[1] != 0,
		TintIndex: int32(binary.LittleEndian.Uint32(buf[2:])),
	}
	off := 6
	for i := range q.Vertices {
		v := &q.Vertices[i]
		v.Position = mgl32.Vec3{
			math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])),
			math.Float32frombits(binary.LittleEndian.Uint32(buf[off+4:])),
			math.Float32frombits(binary.LittleEndian.Uint32(buf[off+8:])),
		}
		v.TexIndex = binary.LittleEndian.Uint32(buf[off+12:])
		v.TexCoords = binary.LittleEndian.Uint32(buf[off+16:])
		off += 20
	}
	return q
}

func decodeFaces(buf []byte) (*render.Faces, error) {
	var counts [render.NumDirections + 1]int
	for i := range counts {
		n, w := binary.Uvarint(buf)
		if w <= 0 {
			return nil, errors.New("truncated faces header")
		}
		counts[i] = int(n)
		buf = buf[w:]
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	if total*quadSize != len(buf) {
		return nil, errors.Errorf("faces hold %d bytes, expected %d quads", len(buf), total)
	}
	read := func(n int) ([]render.Quad, error) {
		if n == 0 {
			return nil, nil
		}
		qs := make([]render.Quad, n)
		for i := range qs {
			qs[i] = readQuad(buf)
			if qs[i].Direction >= render.NumDirections {
				return nil, errors.Errorf("quad has invalid direction %d", qs[i].Direction)
			}
			buf = buf[quadSize:]
		}
		return qs, nil
	}
	f := &render.Faces{}
	var err error
	if f.Unculled, err = read(counts[0]); err != nil {
		return nil, err
	}
	for d := range f.Culled {
		if f.Culled[d], err = read(counts[d+1]); err != nil {
			return nil, err
		}
	}
	return f, nil
}
