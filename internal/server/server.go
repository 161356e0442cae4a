package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/rs/zerolog/log"
)

var (
	ErrListenFailed = errors.New("server: listen failed")
	ErrAcceptFailed = errors.New("server: accept failed")
)

// serveCanvas is the acceptor. It never waits on a connection; each one gets
// its own worker goroutine. Any accept error other than shutdown is fatal.
func (s *Service) serveCanvas(ctx context.Context, ln net.Listener) error {
	defer ln.Close()
	log.Info().Str("addr", ln.Addr().String()).Msg("server.Service.serveCanvas listening")

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%w: %v", ErrAcceptFailed, err)
		}
		s.acceptedConns.Add(1)
		s.pending.add(conn)
		s.workers.Add(1)
		go s.handleConn(ctx, conn)
	}
}

func listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w (%s): %v", ErrListenFailed, addr, err)
	}
	return ln, nil
}
