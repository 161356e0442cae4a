package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/danmuck/pxcanvas/internal/protocol"
)

var ErrDial = errors.New("client: dial failed")

// maxResponseBytes bounds what Send will buffer from a misbehaving server.
const maxResponseBytes = 4096

// SendLine validates line with the protocol codec and sends it.
func SendLine(ctx context.Context, addr, line string) (string, error) {
	cmd, err := protocol.ParseLine(line)
	if err != nil {
		return "", err
	}
	return Send(ctx, addr, cmd)
}

// Send opens one connection, writes cmd, half-closes, and returns whatever the
// server wrote before closing. Sets and out-of-range gets return "".
func Send(ctx context.Context, addr string, cmd protocol.Command) (string, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", fmt.Errorf("%w (%s): %w", ErrDial, addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	if _, err := io.WriteString(conn, cmd.String()+"\n"); err != nil {
		return "", fmt.Errorf("client: write: %w", err)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.CloseWrite()
	}

	resp, err := io.ReadAll(io.LimitReader(conn, maxResponseBytes))
	if err != nil {
		return string(resp), fmt.Errorf("client: read: %w", err)
	}
	return string(resp), nil
}
