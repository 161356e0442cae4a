// Package server owns the pixel protocol's network edge.
//
// Ownership boundary:
// - the TCP acceptor (one goroutine per connection)
// - connection workers: read one line, decode, hand off to the canvas owner
// - service lifecycle, heartbeat logging, and the optional admin HTTP surface
//
// A worker owns its connection until canvas.Owner.Submit succeeds. From then
// on only the owner may write to or close it. Workers never touch the grid.
//
// By default a connection that never sends a line holds its worker forever;
// set read_timeout to bound that wait.
package server
