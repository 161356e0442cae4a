package canvas

import (
	"errors"
	"image/color"
	"math"
	"testing"
)

func TestNewGridStartsOpaqueBlack(t *testing.T) {
	g, err := NewGrid(4, 3)
	if err != nil {
		t.Fatalf("new grid: %v", err)
	}
	if g.Width() != 4 || g.Height() != 3 || len(g.pixels) != 12 {
		t.Fatalf("unexpected geometry: %dx%d len=%d", g.Width(), g.Height(), len(g.pixels))
	}
	for i, p := range g.pixels {
		if p != Black {
			t.Fatalf("slot %d not opaque black: %v", i, p)
		}
	}
}

func TestNewGridRejectsBadDimensions(t *testing.T) {
	for _, dims := range [][2]int{{0, 1}, {1, 0}, {-1, 5}, {math.MaxInt, 2}} {
		if _, err := NewGrid(dims[0], dims[1]); !errors.Is(err, ErrInvalidDimensions) {
			t.Fatalf("NewGrid(%d,%d): expected ErrInvalidDimensions, got %v", dims[0], dims[1], err)
		}
	}
}

func TestGridRowMajorAddressing(t *testing.T) {
	g, err := NewGrid(5, 4)
	if err != nil {
		t.Fatalf("new grid: %v", err)
	}
	red := color.RGBA{R: 0xff, A: 0xff}
	if !g.Set(3, 2, red) {
		t.Fatalf("expected in-range set")
	}
	if g.pixels[2*5+3] != red {
		t.Fatalf("slot y*width+x not written")
	}
	got, ok := g.At(3, 2)
	if !ok || got != red {
		t.Fatalf("unexpected read: %v ok=%v", got, ok)
	}
}

func TestGridOutOfRangeIsNoop(t *testing.T) {
	g, err := NewGrid(5, 4)
	if err != nil {
		t.Fatalf("new grid: %v", err)
	}
	before := g.Checksum()
	white := color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

	// (5,0) would alias (0,1) without a per-axis bound check.
	for _, xy := range [][2]uint32{{5, 0}, {0, 4}, {math.MaxUint32, 0}, {0, math.MaxUint32}, {math.MaxUint32, math.MaxUint32}} {
		if g.Set(xy[0], xy[1], white) {
			t.Fatalf("Set(%d,%d) should be out of range", xy[0], xy[1])
		}
		if _, ok := g.At(xy[0], xy[1]); ok {
			t.Fatalf("At(%d,%d) should be out of range", xy[0], xy[1])
		}
		if g.Contains(xy[0], xy[1]) {
			t.Fatalf("Contains(%d,%d) should be false", xy[0], xy[1])
		}
	}
	if g.Checksum() != before {
		t.Fatalf("out-of-range writes changed the canvas")
	}
}

func TestChecksumTracksAlpha(t *testing.T) {
	g, err := NewGrid(2, 2)
	if err != nil {
		t.Fatalf("new grid: %v", err)
	}
	base := g.Checksum()
	g.Set(1, 1, color.RGBA{A: 0x80})
	if g.Checksum() == base {
		t.Fatalf("checksum should change when only alpha changes")
	}
	g.Set(1, 1, Black)
	if g.Checksum() != base {
		t.Fatalf("checksum should return to baseline")
	}
}
