package transport

import (
	"context"
	"net"
)

// TCPTransport implements the Transport interface for plain TCP listeners.
type TCPTransport struct {
	lc net.ListenConfig
}

// NewTCPTransport creates a new TCPTransport with the given configuration.
func NewTCPTransport(cfg *Config) (*TCPTransport, error) {
	t := &TCPTransport{}
	if cfg != nil {
		t.lc.KeepAlive = cfg.KeepAlive
	}
	return t, nil
}

// Listen creates a listener on the specified network address.
func (t *TCPTransport) Listen(ctx context.Context, network, address string) (net.Listener, error) {
	return t.lc.Listen(ctx, network, address)
}

// Close is a no-op for TCPTransport as it doesn't hold persistent resources itself.
// The listeners it creates are managed individually.
func (t *TCPTransport) Close() error {
	return nil
}
