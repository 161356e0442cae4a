package protocol

import (
	"fmt"
	"image/color"
)

var helpLine = []byte(cmdHelp + "\n")

// EncodeHelp returns the fixed HELP acknowledgment.
func EncodeHelp() []byte {
	out := make([]byte, len(helpLine))
	copy(out, helpLine)
	return out
}

// EncodeSize renders "SIZE <width> <height>\n".
func EncodeSize(width, height int) []byte {
	return fmt.Appendf(nil, "%s %d %d\n", cmdSize, width, height)
}

// EncodePixel renders "PX <x> <y> <rrggbb>\n" in lower-case hex.
// Alpha is not echoed.
func EncodePixel(x, y uint32, c color.RGBA) []byte {
	return fmt.Appendf(nil, "%s %d %d %02x%02x%02x\n", cmdPixel, x, y, c.R, c.G, c.B)
}

// FormatColor renders all four channels as rrggbbaa.
func FormatColor(c color.RGBA) string {
	return fmt.Sprintf("%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}
