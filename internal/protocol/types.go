package protocol

import (
	"fmt"
	"image/color"
)

// Kind identifies one of the four request shapes.
type Kind int

const (
	KindHelp Kind = iota + 1
	KindSize
	KindGetPixel
	KindSetPixel
)

func (k Kind) String() string {
	switch k {
	case KindHelp:
		return "help"
	case KindSize:
		return "size"
	case KindGetPixel:
		return "px_get"
	case KindSetPixel:
		return "px_set"
	default:
		return "unknown"
	}
}

// Command is one decoded client request. The set is closed: only the types in
// this package implement it.
type Command interface {
	Kind() Kind
	// String renders the command as a request line without the terminator.
	String() string
	command()
}

// Help asks for the fixed acknowledgment line.
type Help struct{}

// Size asks for the canvas dimensions.
type Size struct{}

// GetPixel reads one slot.
type GetPixel struct {
	X uint32
	Y uint32
}

// SetPixel overwrites one slot. Color.A is stored verbatim.
type SetPixel struct {
	X     uint32
	Y     uint32
	Color color.RGBA
}

var (
	_ Command = Help{}
	_ Command = Size{}
	_ Command = GetPixel{}
	_ Command = SetPixel{}
)

func (Help) Kind() Kind     { return KindHelp }
func (Size) Kind() Kind     { return KindSize }
func (GetPixel) Kind() Kind { return KindGetPixel }
func (SetPixel) Kind() Kind { return KindSetPixel }

func (Help) String() string { return "HELP" }
func (Size) String() string { return "SIZE" }

func (c GetPixel) String() string {
	return fmt.Sprintf("PX %d %d", c.X, c.Y)
}

func (c SetPixel) String() string {
	return fmt.Sprintf("PX %d %d %s", c.X, c.Y, FormatColor(c.Color))
}

func (Help) command()     {}
func (Size) command()     {}
func (GetPixel) command() {}
func (SetPixel) command() {}
