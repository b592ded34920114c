package transport

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/webstation/webstation/pkg/logging"
)

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New("debug", "console", zapcore.AddSync(&buf))
	if err != nil {
		t.Fatalf("logging.New failed: %v", err)
	}

	base, _ := NewTCPTransport(nil)
	wrappedTransport := LoggingMiddleware(logger)(base)

	ln, err := wrappedTransport.Listen(context.Background(), "tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer ln.Close()
	if !strings.Contains(buf.String(), ln.Addr().String()) {
		t.Errorf("Expected log message with listen address, but got: %s", buf.String())
	}
	buf.Reset()

	wrappedTransport.Close()
	if !strings.Contains(buf.String(), "Closing transport") {
		t.Errorf("Expected log message for Close, but got: %s", buf.String())
	}
}

func TestLoggingMiddlewareListenError(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := logging.New("debug", "console", zapcore.AddSync(&buf))

	listenErr := errors.New("address in use")
	mock := &mockTransport{
		listener: func(ctx context.Context, network, address string) (net.Listener, error) {
			return nil, listenErr
		},
	}

	_, err := LoggingMiddleware(logger)(mock).Listen(context.Background(), "tcp", "127.0.0.1:80")
	if !errors.Is(err, listenErr) {
		t.Fatalf("Expected listen error, got: %v", err)
	}
	if !strings.Contains(buf.String(), "Listen failed") {
		t.Errorf("Expected failure to be logged, got: %s", buf.String())
	}
}

func TestChainMiddleware(t *testing.T) {
	var order []string

	// Create two simple middlewares that record their application order
	mw1 := func(base Transport) Transport {
		order = append(order, "mw1_applied")
		return base
	}

	mw2 := func(base Transport) Transport {
		order = append(order, "mw2_applied")
		return base
	}

	// Chain them
	chainedMW := Chain(mw1, mw2)

	// Apply the chained middleware
	chainedMW(&mockTransport{})

	// Middlewares are applied from last to first (wrapping order)
	expectedOrder := "mw2_applied mw1_applied"
	actualOrder := strings.Join(order, " ")

	if actualOrder != expectedOrder {
		t.Errorf("Expected middleware order '%s', but got '%s'", expectedOrder, actualOrder)
	}
}

func TestLimitMiddleware(t *testing.T) {
	base, _ := NewTCPTransport(nil)
	ln, err := LimitMiddleware(1)(base).Listen(context.Background(), "tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 2)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			accepted <- conn
		}
	}()

	c1, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer c1.Close()
	c2, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer c2.Close()

	first := <-accepted
	select {
	case <-accepted:
		t.Fatal("second connection accepted while the first is still open")
	case <-time.After(50 * time.Millisecond):
	}

	first.Close()
	select {
	case second := <-accepted:
		second.Close()
	case <-time.After(time.Second):
		t.Fatal("second connection not accepted after the first closed")
	}
}

func TestLimitMiddlewareDisabled(t *testing.T) {
	base := &mockTransport{}
	if got := LimitMiddleware(0)(base); got != Transport(base) {
		t.Fatal("LimitMiddleware(0) should return the base transport")
	}
}
