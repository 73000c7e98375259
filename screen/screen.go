// Package screen implements a tile display driven by intcode output.
//
// Programs draw by emitting triples of x, y and tile id. The triple
// (-1, 0, v) does not draw; it sets the score to v.
package screen

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/draw"
)

// Tile ids used by drawing programs.
const (
	Empty  int64 = 0
	Wall   int64 = 1
	Block  int64 = 2
	Paddle int64 = 3
	Ball   int64 = 4
)

var scorePoint = image.Pt(-1, 0)

// Screen is a sparse grid of tiles.
type Screen struct {
	Score int64

	tiles map[image.Point]int64
	ops   int // total count of draw operations
}

// New returns an empty Screen.
func New() *Screen {
	return &Screen{tiles: make(map[image.Point]int64)}
}

// Ops returns the number of tiles drawn so far.
func (s *Screen) Ops() int { return s.ops }

// Draw applies the triples in out. If len(out) is not a multiple of three
// the complete triples are applied and an error is returned.
func (s *Screen) Draw(out []int64) error {
	n := len(out) - len(out)%3
	for i := 0; i < n; i += 3 {
		p := image.Pt(int(out[i]), int(out[i+1]))
		if p == scorePoint {
			s.Score = out[i+2]
			continue
		}
		s.Set(p, out[i+2])
	}
	if n != len(out) {
		return fmt.Errorf("screen: %d trailing values after %d triples", len(out)-n, n/3)
	}
	return nil
}

// Set sets the tile at p.
func (s *Screen) Set(p image.Point, tile int64) {
	if s.tiles == nil {
		s.tiles = make(map[image.Point]int64)
	}
	s.tiles[p] = tile
	s.ops++
}

// At returns the tile at p. Undrawn tiles are Empty.
func (s *Screen) At(p image.Point) int64 { return s.tiles[p] }

// Count returns the number of tiles with the given id.
func (s *Screen) Count(tile int64) int {
	n := 0
	for _, t := range s.tiles {
		if t == tile {
			n++
		}
	}
	return n
}

// Find returns the position of a tile with the given id.
func (s *Screen) Find(tile int64) (image.Point, bool) {
	for p, t := range s.tiles {
		if t == tile {
			return p, true
		}
	}
	return image.Point{}, false
}

// Bounds returns the smallest rectangle containing every drawn tile.
func (s *Screen) Bounds() image.Rectangle {
	var r image.Rectangle
	first := true
	for p := range s.tiles {
		tr := image.Rectangle{p, p.Add(image.Pt(1, 1))}
		if first {
			r, first = tr, false
		} else {
			r = r.Union(tr)
		}
	}
	return r
}

var glyphs = map[int64]byte{
	Empty:  ' ',
	Wall:   '#',
	Block:  '=',
	Paddle: '-',
	Ball:   'o',
}

// String renders the screen as text, one line per row from top to bottom.
func (s *Screen) String() string {
	var (
		b = s.Bounds()
		w strings.Builder
	)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g, ok := glyphs[s.At(image.Pt(x, y))]
			if !ok {
				g = '?'
			}
			w.WriteByte(g)
		}
		w.WriteByte('\n')
	}
	return w.String()
}

// Palette holds the colour of each tile id. Ids outside the palette are
// drawn in the last colour.
var Palette = []color.RGBA{
	Empty:  {0x10, 0x10, 0x18, 0xff},
	Wall:   {0x80, 0x80, 0x90, 0xff},
	Block:  {0xd0, 0x60, 0x30, 0xff},
	Paddle: {0x40, 0xc0, 0xf0, 0xff},
	Ball:   {0xf0, 0xf0, 0xf0, 0xff},
	{0xff, 0x00, 0xff, 0xff},
}

func tileColor(t int64) color.RGBA {
	if t >= 0 && t < int64(len(Palette)) {
		return Palette[t]
	}
	return Palette[len(Palette)-1]
}

// Image renders the screen with each tile scale pixels square.
// The image origin is the top-left drawn tile.
func (s *Screen) Image(scale int) *image.RGBA {
	if scale < 1 {
		scale = 1
	}
	var (
		b   = s.Bounds()
		src = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			src.SetRGBA(x-b.Min.X, y-b.Min.Y, tileColor(s.At(image.Pt(x, y))))
		}
	}
	if scale == 1 {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}
