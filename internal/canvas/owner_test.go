package canvas

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/color"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/pxcanvas/internal/protocol"
	"github.com/danmuck/pxcanvas/internal/testutil/testlog"
)

type fakeConn struct {
	mu         sync.Mutex
	out        bytes.Buffer
	deadline   time.Time
	failWrites bool
	closed     chan struct{}
	once       sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{closed: make(chan struct{})}
}

func (c *fakeConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWrites {
		return 0, io.ErrClosedPipe
	}
	return c.out.Write(p)
}

func (c *fakeConn) SetWriteDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deadline = t
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// wait blocks until the owner closed the connection and returns what it wrote.
func (c *fakeConn) wait(t *testing.T) string {
	t.Helper()
	select {
	case <-c.closed:
	case <-time.After(2 * time.Second):
		t.Fatalf("connection was never closed")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.String()
}

func newTestOwner(t *testing.T, width, height int, cfg OwnerConfig) *Owner {
	t.Helper()
	grid, err := NewGrid(width, height)
	if err != nil {
		t.Fatalf("new grid: %v", err)
	}
	return NewOwner(grid, cfg)
}

// startOwner runs o until the returned stop func is called; stop returns
// after Run has exited, so the grid may be inspected afterwards.
func startOwner(t *testing.T, o *Owner) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() {
		runErr <- o.Run(ctx)
	}()
	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			select {
			case err := <-runErr:
				if err != nil {
					t.Errorf("owner run: %v", err)
				}
			case <-time.After(2 * time.Second):
				t.Errorf("owner did not stop")
			}
		})
	}
	t.Cleanup(stop)
	return stop
}

func submit(t *testing.T, o *Owner, cmd protocol.Command) *fakeConn {
	t.Helper()
	conn := newFakeConn()
	if err := o.Submit(context.Background(), cmd, conn); err != nil {
		t.Fatalf("submit %s: %v", cmd, err)
	}
	return conn
}

func TestOwnerHelpAndSize(t *testing.T) {
	testlog.Start(t)

	o := newTestOwner(t, 800, 600, DefaultOwnerConfig())
	startOwner(t, o)

	if got := submit(t, o, protocol.Help{}).wait(t); got != "HELP\n" {
		t.Fatalf("unexpected help response: %q", got)
	}
	if got := submit(t, o, protocol.Size{}).wait(t); got != "SIZE 800 600\n" {
		t.Fatalf("unexpected size response: %q", got)
	}
}

func TestOwnerSetThenGetReturnsRGB(t *testing.T) {
	testlog.Start(t)

	o := newTestOwner(t, 16, 16, DefaultOwnerConfig())
	startOwner(t, o)

	if got := submit(t, o, protocol.GetPixel{X: 2, Y: 3}).wait(t); got != "PX 2 3 000000\n" {
		t.Fatalf("unexpected initial pixel: %q", got)
	}
	set := protocol.SetPixel{X: 2, Y: 3, Color: color.RGBA{R: 0xAB, G: 0xCD, B: 0xEF, A: 0x40}}
	if got := submit(t, o, set).wait(t); got != "" {
		t.Fatalf("set must not respond, got %q", got)
	}
	submit(t, o, protocol.SetPixel{X: 9, Y: 9, Color: color.RGBA{R: 1, A: 0xff}}).wait(t)
	submit(t, o, protocol.Size{}).wait(t)

	if got := submit(t, o, protocol.GetPixel{X: 2, Y: 3}).wait(t); got != "PX 2 3 abcdef\n" {
		t.Fatalf("unexpected pixel after set: %q", got)
	}
}

func TestOwnerOutOfBoundsIsSilent(t *testing.T) {
	testlog.Start(t)

	o := newTestOwner(t, 8, 4, DefaultOwnerConfig())
	before := o.grid.Checksum()
	stop := startOwner(t, o)

	for _, xy := range [][2]uint32{{8, 0}, {0, 4}, {100, 100}} {
		if got := submit(t, o, protocol.GetPixel{X: xy[0], Y: xy[1]}).wait(t); got != "" {
			t.Fatalf("out-of-bounds get wrote %q", got)
		}
		white := color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
		if got := submit(t, o, protocol.SetPixel{X: xy[0], Y: xy[1], Color: white}).wait(t); got != "" {
			t.Fatalf("out-of-bounds set wrote %q", got)
		}
	}

	stats := o.Stats()
	if stats.OutOfBounds != 6 || stats.Processed != 6 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	stop()
	if o.grid.Checksum() != before {
		t.Fatalf("out-of-bounds sets mutated the canvas")
	}
}

func TestOwnerLastDequeuedWriteWins(t *testing.T) {
	testlog.Start(t)

	o := newTestOwner(t, 4, 4, OwnerConfig{QueueDepth: 8})
	first := newFakeConn()
	second := newFakeConn()

	// Queue both before the owner starts so arrival order is fixed.
	red := protocol.SetPixel{X: 1, Y: 1, Color: color.RGBA{R: 0xff, A: 0xff}}
	blue := protocol.SetPixel{X: 1, Y: 1, Color: color.RGBA{B: 0xff, A: 0xff}}
	if err := o.Submit(context.Background(), red, first); err != nil {
		t.Fatalf("submit red: %v", err)
	}
	if err := o.Submit(context.Background(), blue, second); err != nil {
		t.Fatalf("submit blue: %v", err)
	}
	if depth := o.Stats().QueueDepth; depth != 2 {
		t.Fatalf("expected two queued commands, got %d", depth)
	}

	startOwner(t, o)
	first.wait(t)
	second.wait(t)

	if got := submit(t, o, protocol.GetPixel{X: 1, Y: 1}).wait(t); got != "PX 1 1 0000ff\n" {
		t.Fatalf("expected last dequeued write to win, got %q", got)
	}
}

func TestOwnerConcurrentDistinctWritesAllPersist(t *testing.T) {
	testlog.Start(t)

	const n = 64
	o := newTestOwner(t, n, n, OwnerConfig{QueueDepth: 4})
	startOwner(t, o)

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn := newFakeConn()
			cmd := protocol.SetPixel{X: uint32(i), Y: uint32(n - 1 - i), Color: color.RGBA{R: uint8(i), G: 0x10, B: 0x20, A: 0xff}}
			if err := o.Submit(context.Background(), cmd, conn); err != nil {
				errs <- err
				return
			}
			<-conn.closed
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent submit: %v", err)
	}

	for i := 0; i < n; i++ {
		want := fmt.Sprintf("PX %d %d %02x1020\n", i, n-1-i, i)
		if got := submit(t, o, protocol.GetPixel{X: uint32(i), Y: uint32(n - 1 - i)}).wait(t); got != want {
			t.Fatalf("lost update at %d: got %q want %q", i, got, want)
		}
	}
}

func TestOwnerIgnoresWriteFailures(t *testing.T) {
	testlog.Start(t)

	o := newTestOwner(t, 4, 4, DefaultOwnerConfig())
	startOwner(t, o)

	broken := newFakeConn()
	broken.failWrites = true
	if err := o.Submit(context.Background(), protocol.Size{}, broken); err != nil {
		t.Fatalf("submit: %v", err)
	}
	broken.wait(t)

	if got := submit(t, o, protocol.Help{}).wait(t); got != "HELP\n" {
		t.Fatalf("owner stopped serving after a failed write: %q", got)
	}
}

func TestOwnerAppliesWriteDeadline(t *testing.T) {
	testlog.Start(t)

	o := newTestOwner(t, 4, 4, OwnerConfig{QueueDepth: 1, WriteTimeout: time.Minute})
	startOwner(t, o)

	conn := submit(t, o, protocol.Help{})
	conn.wait(t)
	conn.mu.Lock()
	deadline := conn.deadline
	conn.mu.Unlock()
	if deadline.IsZero() || time.Until(deadline) < 30*time.Second {
		t.Fatalf("expected write deadline about a minute out, got %v", deadline)
	}
}

func TestOwnerSubmitBackpressure(t *testing.T) {
	testlog.Start(t)

	o := newTestOwner(t, 4, 4, OwnerConfig{QueueDepth: 1})
	queued := newFakeConn()
	if err := o.Submit(context.Background(), protocol.Help{}, queued); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := o.Submit(ctx, protocol.Help{}, newFakeConn()); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected full queue to block until deadline, got %v", err)
	}

	startOwner(t, o)
	if got := queued.wait(t); got != "HELP\n" {
		t.Fatalf("queued command not served: %q", got)
	}
}

func TestOwnerStopDiscardsQueuedAndRejectsSubmit(t *testing.T) {
	testlog.Start(t)

	o := newTestOwner(t, 4, 4, OwnerConfig{QueueDepth: 8})
	stop := startOwner(t, o)

	conns := make([]*fakeConn, 0, 8)
	for i := 0; i < 8; i++ {
		conn := newFakeConn()
		if err := o.Submit(context.Background(), protocol.GetPixel{X: 1, Y: 1}, conn); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		conns = append(conns, conn)
	}
	stop()

	for i, conn := range conns {
		select {
		case <-conn.closed:
		default:
			t.Fatalf("connection %d left open after stop", i)
		}
	}
	stats := o.Stats()
	if stats.Processed+stats.Discarded != 8 || stats.Running {
		t.Fatalf("unexpected stats after stop: %+v", stats)
	}
	select {
	case <-o.Done():
	default:
		t.Fatalf("expected Done to be closed")
	}

	if err := o.Submit(context.Background(), protocol.Help{}, newFakeConn()); !errors.Is(err, ErrOwnerStopped) {
		t.Fatalf("expected ErrOwnerStopped, got %v", err)
	}
}

func TestOwnerRunOnlyOnce(t *testing.T) {
	testlog.Start(t)

	o := newTestOwner(t, 4, 4, DefaultOwnerConfig())
	startOwner(t, o)
	// A served command proves the first Run owns the loop.
	submit(t, o, protocol.Help{}).wait(t)
	if err := o.Run(context.Background()); !errors.Is(err, ErrOwnerRunning) {
		t.Fatalf("expected ErrOwnerRunning, got %v", err)
	}
}

func TestOwnerSubmitRejectsInvalidRequest(t *testing.T) {
	testlog.Start(t)

	o := newTestOwner(t, 4, 4, DefaultOwnerConfig())
	if err := o.Submit(context.Background(), nil, newFakeConn()); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for nil command, got %v", err)
	}
	if err := o.Submit(context.Background(), protocol.Help{}, nil); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for nil conn, got %v", err)
	}
}

func TestNewOwnerNormalizesConfig(t *testing.T) {
	o := newTestOwner(t, 2, 2, OwnerConfig{QueueDepth: 0, WriteTimeout: -time.Second})
	stats := o.Stats()
	if stats.QueueCapacity != DefaultOwnerConfig().QueueDepth {
		t.Fatalf("unexpected queue capacity: %d", stats.QueueCapacity)
	}
	if o.cfg.WriteTimeout != 0 {
		t.Fatalf("negative write timeout should disable deadline, got %v", o.cfg.WriteTimeout)
	}
	if stats.Width != 2 || stats.Height != 2 || stats.Running {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
