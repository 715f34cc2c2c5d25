package resourcepack

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockstateUnmarshal(t *testing.T) {
	var b BlockState
	err := json.Unmarshal([]byte(`
	{
  "multipart": [
    {
      "apply": {
        "model": "minecraft:block/acacia_shelf"
      },
      "when": {
        "facing": "north"
      }
    },
    {
      "apply": {
        "model": "minecraft:block/acacia_shelf_unpowered"
      },
      "when": {
        "AND": [
          {
            "facing": "north"
          },
          {
            "powered": "false"
          }
        ]
      }
    },
    {
      "apply": [{"model": "a"}, {"model": "b", "weight": 3}],
      "when": {"OR": [{"east": "up|side"}, {"up": true}]}
    },
    {
      "apply": {"model": "always", "x": 90, "uvlock": true}
    }
  ]
}`), &b)
	require.NoError(t, err)
	require.Len(t, b.Multipart, 4)
	assert.False(t, b.Multipart[1].When.IsOr)
	assert.Len(t, b.Multipart[1].When.Clauses, 2)
	assert.True(t, b.Multipart[2].When.IsOr)
	assert.Equal(t, true, b.Multipart[2].When.Clauses[1]["up"])
	assert.Equal(t, 3, *b.Multipart[2].Apply[1].Weight)
	assert.Nil(t, b.Multipart[3].When)
	assert.Equal(t, 90, *b.Multipart[3].Apply[0].X)
}

func TestVariantsKeepOrder(t *testing.T) {
	src := `{"variants":{"facing=north":{"model":"n"},"facing=east":[{"model":"e1"},{"model":"e2"}],"":{"model":"any","y":180}}}`
	var b BlockState
	require.NoError(t, json.Unmarshal([]byte(src), &b))
	require.Len(t, b.Variants, 3)
	assert.Equal(t, "facing=north", b.Variants[0].Key)
	assert.Equal(t, "facing=east", b.Variants[1].Key)
	assert.Len(t, b.Variants[1].Apply, 2)
	assert.Equal(t, "", b.Variants[2].Key)

	out, err := json.Marshal(&b)
	require.NoError(t, err)
	assert.JSONEq(t, src, string(out))
	assert.Less(t, strings.Index(string(out), "facing=north"), strings.Index(string(out), "facing=east"))

	assert.Error(t, json.Unmarshal([]byte(`{"variants":[1]}`), &b))
}

func TestTextureMeta(t *testing.T) {
	var meta TextureMeta
	require.NoError(t, json.Unmarshal([]byte(`{"animation":{"frametime":2,"frames":[0,{"index":3,"time":5},1]}}`), &meta))
	require.NotNil(t, meta.Animation)
	assert.Equal(t, 2, *meta.Animation.FrameTime)
	require.Len(t, meta.Animation.Frames, 3)
	assert.Equal(t, 3, meta.Animation.Frames[1].Index)
	assert.Equal(t, 5, *meta.Animation.Frames[1].Time)
	assert.Nil(t, meta.Animation.Frames[2].Time)

	out, err := json.Marshal(&meta)
	require.NoError(t, err)
	assert.JSONEq(t, `{"animation":{"frametime":2,"frames":[0,{"index":3,"time":5},1]}}`, string(out))

	assert.ErrorContains(t, json.Unmarshal([]byte(`{"animation":{"frames":[{"time":1}]}}`), &meta), "missing `index`")
}

func TestVerifyPack(t *testing.T) {
	p := mapPack("test", map[string]string{
		"assets/minecraft/blockstates/dirt.json":           `{"variants":{"":{"model":"block/dirt"}}}`,
		"assets/minecraft/models/block/dirt.json":          `{"parent":"block/cube_all","textures":{"all":"block/dirt"}}`,
		"assets/minecraft/textures/block/fire.png.mcmeta":  `{"animation":{"frametime":1}}`,
		"assets/minecraft/items/dirt.json":                 `{"model":{"type":"minecraft:model","unknown_key":1}}`,
		"assets/minecraft/models/item/bow.json":            `{"parent":"item/generated","overrides":[{"predicate":{"pulling":1},"model":"item/bow_pulling_0"}],"groups":[{"name":"g","children":[0]}]}`,
		"assets/minecraft/models/block/odd.json":           `{"elements":[],"unknown_key":1}`,
		"assets/minecraft/lang/en_us.json":                 `{"block.minecraft.dirt":"Dirt"}`,
		"assets/minecraft/textures/block/not_checked.json": `not json at all`,
	})
	mm, err := VerifyPack(p)
	require.NoError(t, err)
	assert.Equal(t, 1, mm, "only odd.json loses data; item definitions are not checked")

	bad := mapPack("bad", map[string]string{
		"assets/minecraft/blockstates/dirt.json": `{"variants":`,
	})
	_, err = VerifyPack(bad)
	assert.ErrorContains(t, err, "unable to decode")
}

func TestDownloadMinecraftJar(t *testing.T) {
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/manifest", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"latest":{"release":"1.18.2"},"versions":[{"id":"1.18.2","url":"%s/1.18.2.json"}]}`, srv.URL)
	})
	mux.HandleFunc("/1.18.2.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"downloads":{"client":{"url":"%s/client.jar"}}}`, srv.URL)
	})
	mux.HandleFunc("/client.jar", func(w http.ResponseWriter, r *http.Request) {
		zw := zip.NewWriter(w)
		f, _ := zw.Create("pack.mcmeta")
		f.Write([]byte(`{}`))
		zw.Close()
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	old := manifestURL
	manifestURL = srv.URL + "/manifest"
	defer func() { manifestURL = old }()

	dest := filepath.Join(t.TempDir(), "client.jar")
	require.NoError(t, DownloadMinecraftJar(dest, "latest"))
	p, err := OpenPack(dest)
	require.NoError(t, err)
	defer p.Close()
	_, err = p.Open("pack.mcmeta")
	require.NoError(t, err)

	// already present
	require.NoError(t, DownloadMinecraftJar(dest, "0.0.1"))

	err = DownloadMinecraftJar(filepath.Join(t.TempDir(), "x.jar"), "0.0.1")
	assert.ErrorContains(t, err, "unable to find release version 0.0.1")
}

func TestVerifyMinecraftJars(t *testing.T) {
	if os.Getenv("BLOCKBAKE_FETCH_JARS") == "" {
		t.Skip("set BLOCKBAKE_FETCH_JARS to download and verify every major release")
	}
	t.Parallel()
	for _, ver := range MajorMCVersions {
		t.Run(ver, func(t *testing.T) {
			t.Parallel()
			jarPath := "testdata/minecraft-" + ver + ".jar"
			require.NoError(t, os.MkdirAll("testdata", 0o755))
			err := DownloadMinecraftJar(jarPath, ver)
			if err != nil {
				t.Fatal(err)
			}
			p, err := OpenPack(jarPath)
			if err != nil {
				t.Fatal(err)
			}
			defer p.Close()
			if _, err := VerifyPack(p); err != nil {
				t.Fatal(err)
			}
			if _, _, err := (Packs{p}).FindFile(0, "assets/minecraft/blockstates/stone.json"); err != nil {
				t.Errorf("no blockstates found in jar")
			}
		})
	}
}
