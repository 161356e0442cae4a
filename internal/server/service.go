package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/danmuck/pxcanvas/internal/canvas"
	"github.com/danmuck/pxcanvas/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const adminShutdownTimeout = 5 * time.Second

var ErrAlreadyRunning = errors.New("server: service already started")

// Service runs the pixel listener, the canvas owner, and the optional admin
// HTTP endpoint as one process.
type Service struct {
	cfg      config.ServerConfig
	owner    *canvas.Owner
	admin    *gin.Engine
	appeared time.Time

	ready     chan struct{}
	mu        sync.RWMutex
	addr      net.Addr
	adminAddr net.Addr

	started       atomic.Bool
	pending       *connSet
	workers       sync.WaitGroup
	activeConns   atomic.Int64
	acceptedConns atomic.Uint64
}

// NewService validates cfg and allocates the canvas.
func NewService(cfg config.ServerConfig) (*Service, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	grid, err := canvas.NewGrid(cfg.Width, cfg.Height)
	if err != nil {
		return nil, err
	}
	s := &Service{
		cfg:      cfg,
		owner:    canvas.NewOwner(grid, cfg.OwnerConfig()),
		appeared: time.Now(),
		ready:    make(chan struct{}),
		pending:  newConnSet(),
	}
	s.admin = newAdminRouter(s)
	return s, nil
}

// Run blocks until SIGINT/SIGTERM or a fatal listener error.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.RunContext(ctx)
}

// RunContext serves until ctx is done. Listener bind and accept failures are
// returned; everything else is contained per connection.
func (s *Service) RunContext(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ln, err := listen(s.cfg.Addr)
	if err != nil {
		return err
	}
	var adminLn net.Listener
	if s.cfg.AdminAddr != "" {
		if adminLn, err = listen(s.cfg.AdminAddr); err != nil {
			_ = ln.Close()
			return err
		}
	}
	s.setAddrs(ln, adminLn)

	var wg sync.WaitGroup
	errs := make(chan error, 3)
	spawn := func(fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- fn(ctx)
		}()
	}
	spawn(s.owner.Run)
	spawn(func(ctx context.Context) error { return s.serveCanvas(ctx, ln) })
	if adminLn != nil {
		spawn(func(ctx context.Context) error { return s.serveAdmin(ctx, adminLn) })
	}
	close(s.ready)

	log.Info().
		Str("name", s.cfg.Name).
		Str("addr", ln.Addr().String()).
		Int("width", s.cfg.Width).
		Int("height", s.cfg.Height).
		Dur("read_timeout", s.cfg.ReadTimeout).
		Msg("server.Service.Run ready")

	runErr := s.serve(ctx, errs)
	cancel()
	wg.Wait()
	released := s.pending.closeAll()
	s.workers.Wait()
	log.Info().Int("released_conns", released).Msg("server.Service.Run shutdown")
	return runErr
}

// serve logs a heartbeat until ctx ends or a component fails.
func (s *Service) serve(ctx context.Context, errs <-chan error) error {
	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errs:
			if err != nil {
				log.Error().Err(err).Msg("server.Service.serve fatal")
				return err
			}
			if ctx.Err() == nil {
				log.Warn().Msg("server.Service.serve component exited early")
				return errors.New("server: component exited before shutdown")
			}
		case <-ticker.C:
			stats := s.owner.Stats()
			log.Info().
				Uint64("processed", stats.Processed).
				Uint64("out_of_bounds", stats.OutOfBounds).
				Int("queue_depth", stats.QueueDepth).
				Int64("active_conns", s.activeConns.Load()).
				Uint64("accepted_conns", s.acceptedConns.Load()).
				Msg("server.Service.heartbeat")
		}
	}
}

func (s *Service) serveAdmin(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.admin,
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()
	log.Info().Str("addr", ln.Addr().String()).Msg("server.Service.serveAdmin listening")

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), adminShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("server.Service.serveAdmin shutdown")
		}
		return nil
	}
}

func (s *Service) setAddrs(ln, adminLn net.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addr = ln.Addr()
	if adminLn != nil {
		s.adminAddr = adminLn.Addr()
	}
}

// Ready is closed once the listeners are bound.
func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound pixel protocol address, or nil before Ready.
func (s *Service) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// AdminAddr returns the bound admin HTTP address, or nil when disabled.
func (s *Service) AdminAddr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.adminAddr
}

func (s *Service) AdminRouter() *gin.Engine {
	return s.admin
}

// Stats reports owner counters plus connection counters.
func (s *Service) Stats() ServiceStats {
	return ServiceStats{
		Name:          s.cfg.Name,
		Uptime:        time.Since(s.appeared).Round(time.Millisecond).String(),
		Canvas:        s.owner.Stats(),
		ActiveConns:   s.activeConns.Load(),
		AcceptedConns: s.acceptedConns.Load(),
	}
}

type ServiceStats struct {
	Name          string       `json:"name"`
	Uptime        string       `json:"uptime"`
	Canvas        canvas.Stats `json:"canvas"`
	ActiveConns   int64        `json:"active_conns"`
	AcceptedConns uint64       `json:"accepted_conns"`
}
