package main

import (
	"encoding/json"
	"image/png"
	"log"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/atomic"

	"github.com/rmmh/blockbake/go/block"
	"github.com/rmmh/blockbake/go/render"
)

type server struct {
	conf     *config
	loadOpts []render.Option

	// reg and atlas are replaced together once a bake completes
	mu    sync.RWMutex
	reg   *render.Registry
	atlas *atlas

	generation atomic.Int64
	bakes      atomic.Int64

	workQueue chan chan error
	waiting   []chan error
	workLock  sync.Mutex
}

func newServer(conf *config, opts ...render.Option) *server {
	return &server{
		conf:      conf,
		loadOpts:  opts,
		workQueue: make(chan chan error),
	}
}

// rebake bakes from scratch and publishes the result. Readers keep seeing
// the previous registry until it is done.
func (s *server) rebake() error {
	start := time.Now()
	s.bakes.Inc()
	a := newAtlas(s.conf.Output.AtlasSize, s.conf.Output.CellSize)
	reg, err := bakeAll(s.conf, a, s.loadOpts...)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.reg, s.atlas = reg, a
	s.mu.Unlock()
	gen := s.generation.Inc()
	slog.Info("published bake", "generation", gen, "textures", reg.TextureCount(), "elapsed", time.Since(start))
	return nil
}

func (s *server) bakeWorker() {
	for done := range s.workQueue {
		s.workLock.Lock()
		running := len(s.waiting) > 0
		s.waiting = append(s.waiting, done)
		s.workLock.Unlock()
		if running {
			// another worker is already baking, and will report to us when ready
			continue
		}
		err := s.rebake()
		if err != nil {
			slog.Warn("bake failed", "err", err)
		}
		s.workLock.Lock()
		for _, wait := range s.waiting {
			wait <- err
		}
		s.waiting = nil
		s.workLock.Unlock()
	}
}

// requestBake queues a bake and waits for it to finish.
func (s *server) requestBake() error {
	done := make(chan error, 1)
	s.workQueue <- done
	return <-done
}

func (s *server) current() (*render.Registry, *atlas) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reg, s.atlas
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Add("Cache-Control", "no-cache")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "err", err)
	}
}

type kindJSON struct {
	Name       string   `json:"name"`
	States     int      `json:"states"`
	Properties []string `json:"properties,omitempty"`
}

func (s *server) blocksHandler(w http.ResponseWriter, r *http.Request) {
	reg, _ := s.current()
	writeJSON(w, lo.Map(reg.Kinds(), func(k *block.Kind, _ int) kindJSON {
		return kindJSON{
			Name:   k.Name,
			States: len(k.States()),
			Properties: lo.Map(k.Definition.Properties, func(p block.PropertyDefinition, _ int) string {
				return p.Name
			}),
		}
	}))
}

type quadJSON struct {
	Direction string        `json:"direction"`
	Shade     bool          `json:"shade"`
	TintIndex int32         `json:"tint_index"`
	Positions [4][3]float32 `json:"positions"`
	Texture   uint32        `json:"texture"`
	UV        [4][2]uint16  `json:"uv"`
}

func quadsJSON(qs []render.Quad) []quadJSON {
	return lo.Map(qs, func(q render.Quad, _ int) quadJSON {
		out := quadJSON{
			Direction: q.Direction.String(),
			Shade:     q.Shade,
			TintIndex: q.TintIndex,
			Texture:   q.Vertices[0].TexIndex,
		}
		for i, v := range q.Vertices {
			out.Positions[i] = v.Position
			out.UV[i] = [2]uint16{v.U(), v.V()}
		}
		return out
	})
}

type facesJSON struct {
	Block            string                `json:"block"`
	Generation       int64                 `json:"generation"`
	AmbientOcclusion bool                  `json:"ambient_occlusion"`
	GUI3D            bool                  `json:"gui_3d"`
	BlockLight       bool                  `json:"block_light"`
	Unculled         []quadJSON            `json:"unculled"`
	Culled           map[string][]quadJSON `json:"culled"`
}

// parsePos parses an "x,y,z" block position.
func parsePos(s string) ([3]int, error) {
	var pos [3]int
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return pos, errors.Errorf("position `%s` must be x,y,z", s)
	}
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return pos, errors.Wrapf(err, "position `%s`", s)
		}
		pos[i] = n
	}
	return pos, nil
}

func (s *server) blockHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if st := r.URL.Query().Get("state"); st != "" {
		name += "[" + st + "]"
	}
	b, err := block.ParseBlock(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	reg, _ := s.current()
	faces := reg.FacesOf(b)
	if p := r.URL.Query().Get("pos"); p != "" {
		pos, err := parsePos(p)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		faces = reg.FacesAt(b, pos[0], pos[1], pos[2])
	}

	m := reg.Model(b.ID())
	out := facesJSON{
		Block:            b.String(),
		Generation:       s.generation.Load(),
		AmbientOcclusion: m.AmbientOcclusion,
		GUI3D:            m.GUI3D,
		BlockLight:       m.BlockLight,
		Unculled:         quadsJSON(faces.Unculled),
		Culled:           map[string][]quadJSON{},
	}
	for _, d := range render.Directions {
		if qs := faces.Culled[d]; len(qs) > 0 {
			out.Culled[d.String()] = quadsJSON(qs)
		}
	}
	writeJSON(w, out)
}

func (s *server) atlasHandler(w http.ResponseWriter, r *http.Request) {
	n, _ := strconv.Atoi(mux.Vars(r)["n"])
	_, a := s.current()
	if n >= len(a.pages) {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Add("Cache-Control", "no-cache")
	if err := png.Encode(w, a.pages[n]); err != nil {
		slog.Warn("failed to write atlas", "page", n, "err", err)
	}
}

func (s *server) reloadHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.requestBake(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]int64{"generation": s.generation.Load(), "bakes": s.bakes.Load()})
}

func (s *server) router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/blocks", s.blocksHandler).Methods(http.MethodGet)
	r.HandleFunc("/blocks/{name}", s.blockHandler).Methods(http.MethodGet)
	r.HandleFunc("/atlas/{n:[0-9]+}.png", s.atlasHandler).Methods(http.MethodGet)
	r.HandleFunc("/reload", s.reloadHandler).Methods(http.MethodPost)
	return r
}

// start launches the bake workers and runs the first bake.
func (s *server) start() error {
	for i := 0; i < s.conf.Serve.Workers; i++ {
		go s.bakeWorker()
	}
	return s.requestBake()
}

func serve(conf *config) error {
	s := newServer(conf)
	if err := s.start(); err != nil {
		return err
	}

	srv := &http.Server{
		Handler:      s.router(),
		Addr:         conf.Serve.Addr,
		WriteTimeout: 120 * time.Second,
		ReadTimeout:  10 * time.Second,
	}

	log.Println("listening on", srv.Addr)

	return srv.ListenAndServe()
}
