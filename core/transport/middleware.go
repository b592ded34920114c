package transport

import (
	"context"
	"net"

	"golang.org/x/net/netutil"

	"github.com/webstation/webstation/pkg/logging"
)

// Chain creates a single Middleware from a series of middlewares.
// The middlewares are applied in the order they are passed.
func Chain(middlewares ...Middleware) Middleware {
	return func(base Transport) Transport {
		for i := len(middlewares) - 1; i >= 0; i-- {
			base = middlewares[i](base)
		}
		return base
	}
}

// loggingTransport is a transport wrapper that logs method calls.
type loggingTransport struct {
	Transport
	logger logging.Logger
}

// Listen logs the listen call and then calls the underlying transport's Listen.
func (t *loggingTransport) Listen(ctx context.Context, network, address string) (net.Listener, error) {
	t.logger.Debug("Listening", "network", network, "address", address)
	listener, err := t.Transport.Listen(ctx, network, address)
	if err != nil {
		t.logger.Error("Listen failed", "network", network, "address", address, "error", err)
		return nil, err
	}
	t.logger.Info("Listening", "address", listener.Addr().String())
	return &loggingListener{Listener: listener, logger: t.logger}, nil
}

// Close logs the close call and then calls the underlying transport's Close.
func (t *loggingTransport) Close() error {
	t.logger.Debug("Closing transport")
	return t.Transport.Close()
}

type loggingListener struct {
	net.Listener
	logger logging.Logger
}

func (l *loggingListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err == nil {
		l.logger.Debug("Accepted connection", "remote", conn.RemoteAddr().String())
	}
	return conn, err
}

// LoggingMiddleware creates a middleware that logs transport operations.
func LoggingMiddleware(logger logging.Logger) Middleware {
	return func(base Transport) Transport {
		return &loggingTransport{
			Transport: base,
			logger:    logger.With("component", "transport"),
		}
	}
}

// limitTransport caps the number of simultaneously open connections.
type limitTransport struct {
	Transport
	n int
}

// Listen wraps the listener so that Accept blocks while n connections are open.
func (t *limitTransport) Listen(ctx context.Context, network, address string) (net.Listener, error) {
	ln, err := t.Transport.Listen(ctx, network, address)
	if err != nil {
		return nil, err
	}
	return netutil.LimitListener(ln, t.n), nil
}

// LimitMiddleware limits every listener to n open sockets. n <= 0 disables
// the limit.
func LimitMiddleware(n int) Middleware {
	return func(base Transport) Transport {
		if n <= 0 {
			return base
		}
		return &limitTransport{Transport: base, n: n}
	}
}
