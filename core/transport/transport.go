package transport

import (
	"context"
	"net"
	"time"
)

// Transport provides the listening sockets the HTTP server accepts on.
type Transport interface {
	// Listen creates a listener on the specified network address.
	Listen(ctx context.Context, network, address string) (net.Listener, error)
	// Close closes the transport, releasing any resources.
	Close() error
}

// Middleware is a function that wraps a Transport to add functionality.
type Middleware func(transport Transport) Transport

// Config holds the socket options shared by transports.
type Config struct {
	KeepAlive time.Duration
}

// Factory is a function that creates a new Transport with the given config.
type Factory func(cfg *Config) (Transport, error)
