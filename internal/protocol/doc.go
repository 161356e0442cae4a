// Package protocol owns the pixel line protocol.
//
// Ownership boundary:
// - command value types (HELP, SIZE, PX get, PX set)
// - line tokenizing and decoding into commands
// - response encoding
//
// The parser is deliberately lenient in two places: trailing tokens after
// HELP and SIZE are ignored, and tokens after a PX color are ignored.
// Command names are case-sensitive.
//
// The get response carries only the RGB channels. Alpha is stored by the
// canvas but never echoed back to clients.
package protocol
