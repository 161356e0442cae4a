package canvas

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/pxcanvas/internal/observability"
	"github.com/danmuck/pxcanvas/internal/protocol"
	"github.com/rs/zerolog/log"
)

var (
	ErrOwnerStopped   = errors.New("canvas: owner stopped")
	ErrOwnerRunning   = errors.New("canvas: owner already started")
	ErrInvalidRequest = errors.New("canvas: invalid request")
)

// OwnerConfig tunes the intake queue and response writes.
type OwnerConfig struct {
	// QueueDepth is the intake queue capacity. Submit blocks while it is full.
	QueueDepth int
	// WriteTimeout bounds each response write when the handle supports
	// SetWriteDeadline. Zero disables the deadline.
	WriteTimeout time.Duration
}

// DefaultOwnerConfig is a 32-slot intake with a 2s write deadline.
func DefaultOwnerConfig() OwnerConfig {
	return OwnerConfig{
		QueueDepth:   32,
		WriteTimeout: 2 * time.Second,
	}
}

// Stats is a point-in-time view of owner counters. It never reads the grid.
type Stats struct {
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	QueueDepth    int    `json:"queue_depth"`
	QueueCapacity int    `json:"queue_capacity"`
	Processed     uint64 `json:"processed"`
	OutOfBounds   uint64 `json:"out_of_bounds"`
	Discarded     uint64 `json:"discarded"`
	Running       bool   `json:"running"`
}

type request struct {
	cmd      protocol.Command
	conn     io.WriteCloser
	enqueued time.Time
}

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// Owner is the only goroutine permitted to touch the grid. Commands reach it
// through a bounded FIFO and run one at a time, in dequeue order.
type Owner struct {
	grid   *Grid
	cfg    OwnerConfig
	intake chan request

	// submitMu lets stop wait out in-flight Submit calls before draining the
	// intake. It guards the queue lifecycle only.
	submitMu sync.RWMutex
	done     chan struct{}
	started  atomic.Bool
	running  atomic.Bool

	processed   atomic.Uint64
	outOfBounds atomic.Uint64
	discarded   atomic.Uint64
}

func NewOwner(grid *Grid, cfg OwnerConfig) *Owner {
	if cfg.QueueDepth < 1 {
		cfg.QueueDepth = DefaultOwnerConfig().QueueDepth
	}
	if cfg.WriteTimeout < 0 {
		cfg.WriteTimeout = 0
	}
	observability.RegisterMetrics()
	return &Owner{
		grid:   grid,
		cfg:    cfg,
		intake: make(chan request, cfg.QueueDepth),
		done:   make(chan struct{}),
	}
}

// Submit hands cmd and conn to the owner. On success the owner is
// responsible for conn and will close it; the caller must not touch it again.
// On error the caller keeps ownership of conn.
//
// Submit returns as soon as the request is queued. It blocks only while the
// queue is full.
func (o *Owner) Submit(ctx context.Context, cmd protocol.Command, conn io.WriteCloser) error {
	if cmd == nil || conn == nil {
		return ErrInvalidRequest
	}
	o.submitMu.RLock()
	defer o.submitMu.RUnlock()

	select {
	case <-o.done:
		return ErrOwnerStopped
	default:
	}

	req := request{cmd: cmd, conn: conn, enqueued: time.Now()}
	select {
	case o.intake <- req:
		observability.SetIntakeDepth(len(o.intake))
		return nil
	case <-o.done:
		return ErrOwnerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run consumes the intake until ctx is done. A dequeued command always runs
// to completion. Requests still queued when Run returns are discarded and
// their connections closed. Run may be called once.
func (o *Owner) Run(ctx context.Context) error {
	if !o.started.CompareAndSwap(false, true) {
		return ErrOwnerRunning
	}
	o.running.Store(true)
	defer o.stop()

	log.Info().
		Int("width", o.grid.Width()).
		Int("height", o.grid.Height()).
		Int("queue_depth", o.cfg.QueueDepth).
		Msg("canvas.Owner.Run started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-o.intake:
			o.execute(req)
		}
	}
}

// Done is closed once the owner stops accepting work.
func (o *Owner) Done() <-chan struct{} {
	return o.done
}

func (o *Owner) Stats() Stats {
	return Stats{
		Width:         o.grid.Width(),
		Height:        o.grid.Height(),
		QueueDepth:    len(o.intake),
		QueueCapacity: cap(o.intake),
		Processed:     o.processed.Load(),
		OutOfBounds:   o.outOfBounds.Load(),
		Discarded:     o.discarded.Load(),
		Running:       o.running.Load(),
	}
}

func (o *Owner) execute(req request) {
	start := time.Now()
	defer func() {
		_ = req.conn.Close()
	}()

	kind := req.cmd.Kind()
	switch cmd := req.cmd.(type) {
	case protocol.Help:
		o.reply(req.conn, protocol.EncodeHelp())
	case protocol.Size:
		o.reply(req.conn, protocol.EncodeSize(o.grid.Width(), o.grid.Height()))
	case protocol.GetPixel:
		c, ok := o.grid.At(cmd.X, cmd.Y)
		if !ok {
			o.recordOutOfBounds(kind)
			break
		}
		o.reply(req.conn, protocol.EncodePixel(cmd.X, cmd.Y, c))
	case protocol.SetPixel:
		if !o.grid.Set(cmd.X, cmd.Y, cmd.Color) {
			o.recordOutOfBounds(kind)
		}
	}

	o.processed.Add(1)
	observability.SetIntakeDepth(len(o.intake))
	observability.RecordCommand(kind.String(), start.Sub(req.enqueued), time.Since(start))
}

// reply is best effort: a client that went away only loses its own answer.
func (o *Owner) reply(conn io.WriteCloser, payload []byte) {
	if o.cfg.WriteTimeout > 0 {
		if d, ok := conn.(writeDeadliner); ok {
			_ = d.SetWriteDeadline(time.Now().Add(o.cfg.WriteTimeout))
		}
	}
	if _, err := conn.Write(payload); err != nil {
		log.Debug().Err(err).Msg("canvas.Owner.reply dropped")
	}
}

func (o *Owner) recordOutOfBounds(kind protocol.Kind) {
	o.outOfBounds.Add(1)
	observability.RecordOutOfBounds(kind.String())
}

// stop closes the intake, waits for in-flight Submit calls to observe it,
// then closes every connection still queued.
func (o *Owner) stop() {
	close(o.done)
	o.submitMu.Lock()
	o.running.Store(false)
	o.submitMu.Unlock()

	for {
		select {
		case req := <-o.intake:
			_ = req.conn.Close()
			o.discarded.Add(1)
		default:
			observability.SetIntakeDepth(0)
			log.Info().
				Uint64("processed", o.processed.Load()).
				Uint64("discarded", o.discarded.Load()).
				Uint64("checksum", o.grid.Checksum()).
				Msg("canvas.Owner.Run stopped")
			return
		}
	}
}
