package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/kr/pretty"
	"github.com/pkg/errors"

	"github.com/rmmh/blockbake/go/block"
	"github.com/rmmh/blockbake/go/render"
	rp "github.com/rmmh/blockbake/go/resourcepack"
	"github.com/rmmh/blockbake/go/store"
)

var (
	configPath = flag.String("config", "blockbake.toml", "path to the TOML config, created with defaults if missing")
	debugBlock = flag.String("debug", "", "log the baked faces of this block state")
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: blockbake [flags] fetch|bake|serve|verify|dump <block>|state <block>")
	flag.PrintDefaults()
}

// bakeAll loads every pack in the config and bakes every block kind.
func bakeAll(conf *config, uploader render.Uploader, opts ...render.Option) (*render.Registry, error) {
	packs, err := rp.OpenPacks(conf.Packs.Paths)
	if err != nil {
		return nil, err
	}
	defer packs.Close()
	return render.Load(packs, uploader, opts...)
}

func debugFaces(reg *render.Registry) {
	if *debugBlock == "" {
		return
	}
	b, err := block.ParseBlock(*debugBlock)
	if err != nil {
		slog.Warn("bad -debug block", "block", *debugBlock, "err", err)
		return
	}
	f := reg.FacesOf(b)
	slog.Debug("baked faces", "block", b, "quads", f.Len())
	pretty.Println(f)
}

func bake(conf *config, opts ...render.Option) error {
	a := newAtlas(conf.Output.AtlasSize, conf.Output.CellSize)
	reg, err := bakeAll(conf, a, opts...)
	if err != nil {
		return err
	}
	debugFaces(reg)

	if err := os.MkdirAll(conf.Output.Dir, 0755); err != nil {
		return err
	}
	if err := a.writePages(conf.Output.Dir); err != nil {
		return err
	}
	slog.Info("wrote atlas", "pages", len(a.pages), "textures", reg.TextureCount(), "classes", a.classCounts())

	dbPath := filepath.Join(conf.Output.Dir, "faces.sqlite")
	os.Remove(dbPath)
	st, err := store.Create(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()
	states := 0
	for _, k := range reg.Kinds() {
		if err := st.PutKind(k); err != nil {
			return err
		}
		for _, b := range k.States() {
			if err := st.PutFaces(b, reg.FacesOf(b)); err != nil {
				return err
			}
			states++
		}
	}
	slog.Info("wrote faces", "path", dbPath, "kinds", len(reg.Kinds()), "states", states)
	return nil
}

func verify(conf *config) error {
	total := 0
	for _, p := range conf.Packs.Paths {
		pack, err := rp.OpenPack(p)
		if err != nil {
			return err
		}
		mm, err := rp.VerifyPack(pack)
		pack.Close()
		if err != nil {
			return errors.Wrapf(err, "failed to verify %s", p)
		}
		slog.Info("verified pack", "pack", p, "mismatches", mm)
		total += mm
	}
	if total > 0 {
		return errors.Errorf("%d files did not survive a round trip", total)
	}
	return nil
}

// parseState accepts either a block string or a raw state word.
func parseState(s string) (block.Block, error) {
	if n, err := strconv.ParseUint(s, 0, 32); err == nil {
		b := block.Block(n)
		if !b.Valid() {
			return b, errors.Errorf("%#x is not a valid block state", n)
		}
		return b, nil
	}
	return block.ParseBlock(s)
}

func state(arg string) error {
	b, err := parseState(arg)
	if err != nil {
		return err
	}
	values, err := b.Decode()
	if err != nil {
		return err
	}
	fmt.Printf("%s = %#08x\n", b, uint32(b))
	for _, nv := range values {
		fmt.Printf("  %s = %s\n", nv.Name, nv.Value)
	}
	return nil
}

// dump bakes only the named block's kind and prints everything known about
// the state.
func dump(conf *config, arg string) error {
	b, err := parseState(arg)
	if err != nil {
		return err
	}
	values, err := b.Decode()
	if err != nil {
		return err
	}
	var textures render.MemoryUploader
	reg, err := bakeAll(conf, &textures, render.WithKinds(b.Kind()))
	if err != nil {
		return err
	}
	m := reg.Model(b.ID())
	pretty.Println(b.String(), values)
	pretty.Println(map[string]bool{
		"ambient_occlusion": m.AmbientOcclusion,
		"gui_3d":            m.GUI3D,
		"block_light":       m.BlockLight,
	})
	pretty.Println(textures.Infos)
	pretty.Println(reg.FacesOf(b))
	return nil
}

func run(args []string) error {
	conf, err := readConfig(*configPath)
	if err != nil {
		return err
	}
	switch args[0] {
	case "fetch":
		dest := conf.Packs.Paths[len(conf.Packs.Paths)-1]
		return rp.DownloadMinecraftJar(dest, conf.Fetch.Version)
	case "bake":
		return bake(&conf)
	case "serve":
		return serve(&conf)
	case "verify":
		return verify(&conf)
	case "dump", "state":
		if len(args) != 2 {
			return errors.Errorf("%s takes exactly one block", args[0])
		}
		if args[0] == "dump" {
			return dump(&conf, args[1])
		}
		return state(args[1])
	}
	return errors.Errorf("unknown command `%s`", args[0])
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if *debugBlock != "" {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}
	if err := run(args); err != nil {
		log.Fatal(err)
	}
}
