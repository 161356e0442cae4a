package protocol

import (
	"errors"
	"fmt"
)

// ErrParse is wrapped by every decode failure.
var ErrParse = errors.New("protocol: parse error")

var (
	ErrUnknownCommand    = fmt.Errorf("%w: unknown command", ErrParse)
	ErrMissingCoordinate = fmt.Errorf("%w: missing coordinate", ErrParse)
	ErrInvalidNumber     = fmt.Errorf("%w: invalid number", ErrParse)
	ErrInvalidColor      = fmt.Errorf("%w: invalid color", ErrParse)
)

// ParseErrorReason maps a decode failure onto a stable label for metrics and logs.
func ParseErrorReason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrUnknownCommand):
		return "unknown_command"
	case errors.Is(err, ErrMissingCoordinate):
		return "missing_coordinate"
	case errors.Is(err, ErrInvalidNumber):
		return "invalid_number"
	case errors.Is(err, ErrInvalidColor):
		return "invalid_color"
	default:
		return "other"
	}
}
