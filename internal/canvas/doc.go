// Package canvas owns the pixel grid and its single owner.
//
// Ownership boundary:
// - grid memory (Grid)
// - the intake queue and the one goroutine allowed to touch the grid (Owner)
// - response writes and connection close for submitted commands
//
// Grid has no internal locking. Once an Owner is running, only Owner.Run may
// call Grid methods other than Width and Height. Correctness rests on that
// single consumer, so no lock should be added around the grid.
package canvas
