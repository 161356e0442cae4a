package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/danmuck/pxcanvas/internal/observability"
	"github.com/danmuck/pxcanvas/internal/protocol"
	"github.com/rs/zerolog/log"
)

var (
	ErrLineTooLong    = errors.New("server: request line too long")
	ErrIncompleteLine = errors.New("server: connection closed before end of line")
)

// handleConn is the connection worker: one line in, one hand-off out.
// Failures here stay with this connection and are never reported to the client.
func (s *Service) handleConn(ctx context.Context, conn net.Conn) {
	defer s.workers.Done()
	s.activeConns.Add(1)
	defer s.activeConns.Add(-1)
	observability.RecordConnection(observability.ConnAccepted)

	cmd, err := s.readCommand(conn)
	s.pending.remove(conn)
	if err != nil {
		_ = conn.Close()
		if errors.Is(err, protocol.ErrParse) {
			observability.RecordConnection(observability.ConnParseFailed)
			observability.RecordParseError(protocol.ParseErrorReason(err))
			log.Debug().Str("remote", remoteAddr(conn)).Err(err).Msg("server.Service.handleConn parse failed")
			return
		}
		observability.RecordConnection(observability.ConnReadFailed)
		if !isExpectedCloseError(err) {
			log.Debug().Str("remote", remoteAddr(conn)).Err(err).Msg("server.Service.handleConn read failed")
		}
		return
	}

	if err := s.owner.Submit(ctx, cmd, conn); err != nil {
		_ = conn.Close()
		observability.RecordConnection(observability.ConnRejected)
		log.Debug().Str("remote", remoteAddr(conn)).Err(err).Msg("server.Service.handleConn submit rejected")
		return
	}
	observability.RecordConnection(observability.ConnSubmitted)
}

func (s *Service) readCommand(conn net.Conn) (protocol.Command, error) {
	if s.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	}
	line, err := readLine(conn, s.cfg.MaxLineBytes)
	if err != nil {
		return nil, err
	}
	return protocol.ParseLine(line)
}

// readLine returns one '\n'-terminated line of at most max bytes.
func readLine(r io.Reader, max int) (string, error) {
	br := bufio.NewReaderSize(r, max)
	line, err := br.ReadSlice('\n')
	switch {
	case err == nil:
		return string(line), nil
	case errors.Is(err, bufio.ErrBufferFull):
		return "", fmt.Errorf("%w: limit %d bytes", ErrLineTooLong, max)
	case errors.Is(err, io.EOF):
		if len(line) == 0 {
			return "", io.EOF
		}
		return "", fmt.Errorf("%w: %d bytes", ErrIncompleteLine, len(line))
	default:
		return "", err
	}
}

func remoteAddr(conn net.Conn) string {
	if addr := conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

// connSet tracks connections still owned by workers so shutdown can release
// them. Connections leave the set before they are handed to the owner.
type connSet struct {
	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

func newConnSet() *connSet {
	return &connSet{conns: make(map[net.Conn]struct{})}
}

func (c *connSet) add(conn net.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conns[conn] = struct{}{}
}

func (c *connSet) remove(conn net.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.conns, conn)
}

func (c *connSet) closeAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.conns)
	for conn := range c.conns {
		_ = conn.Close()
		delete(c.conns, conn)
	}
	return n
}
