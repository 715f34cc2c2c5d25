package store

import (
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmmh/blockbake/go/block"
	"github.com/rmmh/blockbake/go/render"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Create(filepath.Join(t.TempDir(), "faces.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func quad(d render.Direction, tex uint32) render.Quad {
	q := render.Quad{Direction: d, Shade: true, TintIndex: -1}
	for i := range q.Vertices {
		q.Vertices[i] = render.Vertex{
			Position:  mgl32.Vec3{float32(i) * 0.25, 1, -0.5},
			TexIndex:  tex,
			TexCoords: uint32(i)<<16 | 0xffff,
		}
	}
	return q
}

func TestFacesRoundTrip(t *testing.T) {
	s := testStore(t)
	stairs, ok := block.Lookup("oak_stairs")
	require.True(t, ok)
	b, err := block.Encode(stairs, map[string]string{"facing": "east", "half": "top"})
	require.NoError(t, err)

	f := &render.Faces{Unculled: []render.Quad{quad(render.Up, 3)}}
	f.Culled[render.West] = []render.Quad{quad(render.West, 1), quad(render.West, 2)}
	tinted := quad(render.Down, 7)
	tinted.Shade = false
	tinted.TintIndex = 2
	f.Culled[render.Down] = []render.Quad{tinted}

	require.NoError(t, s.PutFaces(b, f))
	got, err := s.GetFaces(b)
	require.NoError(t, err)
	assert.Equal(t, f, got)

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPutFacesReplaces(t *testing.T) {
	s := testStore(t)
	b := block.Block(1)
	require.NoError(t, s.PutFaces(b, &render.Faces{Unculled: []render.Quad{quad(render.North, 1)}}))
	require.NoError(t, s.PutFaces(b, &render.Faces{}))
	got, err := s.GetFaces(b)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
}

func TestGetFacesMissing(t *testing.T) {
	s := testStore(t)
	_, err := s.GetFaces(block.Block(5))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load faces")
}

func TestKinds(t *testing.T) {
	s := testStore(t)
	door, ok := block.Lookup("acacia_door")
	require.True(t, ok)
	require.NoError(t, s.PutKind(door))
	name, err := s.KindName(door.ID)
	require.NoError(t, err)
	assert.Equal(t, "acacia_door", name)

	var props string
	require.NoError(t, s.db.QueryRow("SELECT properties FROM kinds WHERE id = ?", int(door.ID)).Scan(&props))
	assert.Contains(t, props, `["facing","horizontal_facing"]`)
}

func TestCorruptRows(t *testing.T) {
	s := testStore(t)
	for i, tc := range []struct {
		blob []byte
		msg  string
	}{
		{[]byte{9, 1, 2}, "unknown faces format"},
		{compress([]byte{1, 0, 0, 0, 0, 0, 0, 4}), "faces hold"},
		{compress([]byte{1, 0}), "truncated faces header"},
	} {
		b := block.Block(i + 1)
		_, err := s.db.Exec("INSERT INTO faces (state, quads) VALUES (?, ?)", int64(b), tc.blob)
		require.NoError(t, err)
		_, err = s.GetFaces(b)
		require.Error(t, err, tc.msg)
		assert.Contains(t, err.Error(), tc.msg)
	}
}

func TestEncodeFacesLayout(t *testing.T) {
	f := &render.Faces{}
	f.Culled[render.East] = []render.Quad{quad(render.East, 0)}
	buf := encodeFaces(f)
	assert.Len(t, buf, int(render.NumDirections)+1+quadSize)
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 1}, buf[:7])
}
