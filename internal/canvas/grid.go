package canvas

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/cespare/xxhash/v2"
)

var ErrInvalidDimensions = errors.New("canvas: invalid dimensions")

// Black is the initial value of every slot.
var Black = color.RGBA{A: 0xff}

// Grid is a fixed-size RGBA canvas stored row-major: index = y*width + x.
type Grid struct {
	width  int
	height int
	pixels []color.RGBA
}

// NewGrid allocates a width x height grid filled with opaque black.
func NewGrid(width, height int) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if width > math.MaxInt/height {
		return nil, fmt.Errorf("%w: %dx%d overflows", ErrInvalidDimensions, width, height)
	}
	pixels := make([]color.RGBA, width*height)
	for i := range pixels {
		pixels[i] = Black
	}
	return &Grid{width: width, height: height, pixels: pixels}, nil
}

func (g *Grid) Width() int {
	return g.width
}

func (g *Grid) Height() int {
	return g.height
}

// Contains reports whether (x, y) addresses a slot.
func (g *Grid) Contains(x, y uint32) bool {
	_, ok := g.index(x, y)
	return ok
}

// At returns the pixel at (x, y), or false when out of range.
func (g *Grid) At(x, y uint32) (color.RGBA, bool) {
	i, ok := g.index(x, y)
	if !ok {
		return color.RGBA{}, false
	}
	return g.pixels[i], true
}

// Set overwrites the pixel at (x, y). Out-of-range writes are dropped and
// reported as false.
func (g *Grid) Set(x, y uint32, c color.RGBA) bool {
	i, ok := g.index(x, y)
	if !ok {
		return false
	}
	g.pixels[i] = c
	return true
}

// Checksum hashes every slot, alpha included, in index order.
func (g *Grid) Checksum() uint64 {
	d := xxhash.New()
	var buf [8]byte
	binary.BigEndian.PutUint32(buf[0:4], uint32(g.width))
	binary.BigEndian.PutUint32(buf[4:8], uint32(g.height))
	_, _ = d.Write(buf[:])
	row := make([]byte, 0, 4*g.width)
	for y := 0; y < g.height; y++ {
		row = row[:0]
		for _, p := range g.pixels[y*g.width : (y+1)*g.width] {
			row = append(row, p.R, p.G, p.B, p.A)
		}
		_, _ = d.Write(row)
	}
	return d.Sum64()
}

func (g *Grid) index(x, y uint32) (int, bool) {
	if uint64(x) >= uint64(g.width) || uint64(y) >= uint64(g.height) {
		return 0, false
	}
	return int(y)*g.width + int(x), true
}
