package client

import (
	"bufio"
	"context"
	"errors"
	"image/color"
	"net"
	"testing"
	"time"

	"github.com/danmuck/pxcanvas/internal/protocol"
	"github.com/danmuck/pxcanvas/internal/testutil/testlog"
)

// echoOnce accepts one connection, reads one line, writes reply, and closes.
func echoOnce(t *testing.T, reply string) (string, <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	got := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		line, _ := bufio.NewReader(conn).ReadString('\n')
		got <- line
		_, _ = conn.Write([]byte(reply))
	}()
	return ln.Addr().String(), got
}

func TestSendWritesRequestLineAndReadsReply(t *testing.T) {
	testlog.Start(t)

	addr, got := echoOnce(t, "PX 1 2 ff00ff\n")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := Send(ctx, addr, protocol.GetPixel{X: 1, Y: 2})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if resp != "PX 1 2 ff00ff\n" {
		t.Fatalf("unexpected response: %q", resp)
	}
	if line := <-got; line != "PX 1 2\n" {
		t.Fatalf("unexpected request line: %q", line)
	}
}

func TestSendLineEncodesSetWithAlpha(t *testing.T) {
	testlog.Start(t)

	addr, got := echoOnce(t, "")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := SendLine(ctx, addr, "PX 3 4 #AABBCC")
	if err != nil {
		t.Fatalf("send line: %v", err)
	}
	if resp != "" {
		t.Fatalf("expected empty response, got %q", resp)
	}
	want := protocol.SetPixel{X: 3, Y: 4, Color: color.RGBA{R: 0xaa, G: 0xbb, B: 0xcc, A: 0xff}}.String() + "\n"
	if line := <-got; line != want {
		t.Fatalf("unexpected request line: got %q want %q", line, want)
	}
}

func TestSendLineRejectsMalformedBeforeDialing(t *testing.T) {
	testlog.Start(t)

	_, err := SendLine(context.Background(), "127.0.0.1:1", "PX nope 1")
	if !errors.Is(err, protocol.ErrInvalidNumber) {
		t.Fatalf("expected ErrInvalidNumber, got %v", err)
	}
}
