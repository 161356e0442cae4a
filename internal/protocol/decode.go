package protocol

import (
	"encoding/hex"
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

const (
	cmdHelp  = "HELP"
	cmdSize  = "SIZE"
	cmdPixel = "PX"

	// maxEchoedToken bounds how much of a bad token ends up in an error message.
	maxEchoedToken = 32
)

// ParseLine decodes one request line. Surrounding whitespace, including the
// line terminator, is insignificant.
func ParseLine(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty line", ErrUnknownCommand)
	}

	switch fields[0] {
	case cmdHelp:
		return Help{}, nil
	case cmdSize:
		return Size{}, nil
	case cmdPixel:
		return parsePixel(fields[1:])
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, clip(fields[0]))
	}
}

func parsePixel(args []string) (Command, error) {
	x, err := parseCoordinate(args, 0, "x")
	if err != nil {
		return nil, err
	}
	y, err := parseCoordinate(args, 1, "y")
	if err != nil {
		return nil, err
	}
	if len(args) < 3 {
		return GetPixel{X: x, Y: y}, nil
	}

	c, err := ParseColor(args[2])
	if err != nil {
		return nil, err
	}
	return SetPixel{X: x, Y: y, Color: c}, nil
}

func parseCoordinate(args []string, i int, name string) (uint32, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("%w: %s", ErrMissingCoordinate, name)
	}
	v, err := strconv.ParseUint(args[i], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidNumber, name, clip(args[i]))
	}
	return uint32(v), nil
}

// ParseColor accepts RRGGBB or RRGGBBAA hex, with or without a leading '#'.
// The six digit form is fully opaque.
func ParseColor(raw string) (color.RGBA, error) {
	s := raw
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	digits := s[1:]
	if len(digits) != 6 && len(digits) != 8 {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, clip(raw))
	}

	b, err := hex.DecodeString(digits)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, clip(raw))
	}
	c := color.RGBA{R: b[0], G: b[1], B: b[2], A: 0xff}
	if len(b) == 4 {
		c.A = b[3]
	}
	return c, nil
}

func clip(s string) string {
	if len(s) <= maxEchoedToken {
		return s
	}
	return s[:maxEchoedToken] + "..."
}
