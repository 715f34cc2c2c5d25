package main

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"

	"github.com/rmmh/blockbake/go/render"
)

// atlas packs every uploaded texture into fixed-size cells across as many
// square pages as needed. Texture i lands in cell i.
type atlas struct {
	size, cell int
	pages      []*image.RGBA
	classes    []render.TextureType
}

func newAtlas(size, cell int) *atlas {
	return &atlas{size: size, cell: cell}
}

func (a *atlas) perRow() int  { return a.size / a.cell }
func (a *atlas) perPage() int { return a.perRow() * a.perRow() }

// newPage draws a faint checkerboard so that empty cells stand out.
func (a *atlas) newPage() *image.RGBA {
	page := image.NewRGBA(image.Rect(0, 0, a.size, a.size))
	draw.Draw(page, page.Bounds(), &image.Uniform{color.RGBA{255, 255, 255, 64}}, image.Point{}, draw.Src)
	half := a.cell / 2
	for p := 0; p < a.perPage(); p++ {
		x0 := (p % a.perRow()) * a.cell
		y0 := (p / a.perRow()) * a.cell
		draw.Draw(page, image.Rect(x0, y0, x0+half, y0+half), &image.Uniform{color.RGBA{255, 255, 255, 32}},
			image.Point{}, draw.Src)
		draw.Draw(page, image.Rect(x0+half, y0+half, x0+a.cell, y0+a.cell), &image.Uniform{color.RGBA{255, 255, 255, 32}},
			image.Point{}, draw.Src)
	}
	return page
}

// cellRect is where texture index i is drawn, and on which page.
func (a *atlas) cellRect(i int) (int, image.Rectangle) {
	page, p := i/a.perPage(), i%a.perPage()
	x0 := (p % a.perRow()) * a.cell
	y0 := (p / a.perRow()) * a.cell
	return page, image.Rect(x0, y0, x0+a.cell, y0+a.cell)
}

func (a *atlas) Upload(info render.TextureInfo, fill func(dst [][4]byte) error) error {
	if int(info.Index) != len(a.classes) {
		return errors.Errorf("texture index %d uploaded out of order, expected %d", info.Index, len(a.classes))
	}
	buf := make([][4]byte, int(info.Width)*int(info.Height))
	if err := fill(buf); err != nil {
		return err
	}

	// animated textures are a vertical strip of square frames
	w := int(info.Width)
	h := min(w, int(info.Height))
	frame := buf[:w*h]
	a.classes = append(a.classes, render.Classify(frame))

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i, p := range frame {
		copy(img.Pix[i*4:], p[:])
	}
	var tex image.Image = img
	if w != a.cell || h != a.cell {
		tex = resize.Resize(uint(a.cell), uint(a.cell), img, resize.NearestNeighbor)
	}

	page, rect := a.cellRect(int(info.Index))
	for len(a.pages) <= page {
		a.pages = append(a.pages, a.newPage())
	}
	draw.Draw(a.pages[page], rect, tex, tex.Bounds().Min, draw.Src)
	return nil
}

// classCounts tallies how many textures fall in each TextureType.
func (a *atlas) classCounts() map[string]int {
	counts := map[string]int{}
	for _, c := range a.classes {
		counts[c.String()]++
	}
	return counts
}

func pageName(n int) string {
	return fmt.Sprintf("atlas-%d.png", n)
}

func (a *atlas) writePages(dir string) error {
	for i, page := range a.pages {
		p := filepath.Join(dir, pageName(i))
		f, err := os.Create(p)
		if err != nil {
			return errors.Wrapf(err, "failed to write %s", p)
		}
		if err := png.Encode(f, page); err != nil {
			f.Close()
			return errors.Wrapf(err, "failed to encode %s", p)
		}
		if err := f.Close(); err != nil {
			return errors.Wrapf(err, "failed to write %s", p)
		}
	}
	return nil
}
