// Package ping implements the ICMP echo probe used to check that the
// gateway answers once the station has an address.
package ping

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/time/rate"

	"github.com/webstation/webstation/pkg/logging"
	"github.com/webstation/webstation/pkg/securerandom"
)

// ErrNoReply is returned when none of the echo requests were answered.
var ErrNoReply = errors.New("no echo reply received")

const protocolICMP = 1

// Config controls one probe run. Zero fields take the defaults.
type Config struct {
	Count    int
	Interval time.Duration
	Timeout  time.Duration
	DataSize int
}

// DefaultConfig mirrors the usual embedded ping defaults.
func DefaultConfig() Config {
	return Config{
		Count:    5,
		Interval: time.Second,
		Timeout:  time.Second,
		DataSize: 56,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Count <= 0 {
		c.Count = d.Count
	}
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.DataSize <= 0 {
		c.DataSize = d.DataSize
	}
	return c
}

// Summary is the outcome of one probe run.
type Summary struct {
	Transmitted int
	Received    int
	Elapsed     time.Duration
}

func (s Summary) Loss() float64 {
	if s.Transmitted == 0 {
		return 0
	}
	return float64(s.Transmitted-s.Received) / float64(s.Transmitted)
}

// PacketConn is the subset of *icmp.PacketConn the pinger uses.
type PacketConn interface {
	WriteTo(b []byte, dst net.Addr) (int, error)
	ReadFrom(b []byte) (int, net.Addr, error)
	SetReadDeadline(t time.Time) error
	Close() error
}

// ListenFunc opens an ICMP socket. privileged reports whether the socket is
// raw ("ip4:icmp") rather than datagram ("udp4").
type ListenFunc func() (conn PacketConn, privileged bool, err error)

// Pinger sends ICMP echo requests. It is safe for sequential reuse.
type Pinger struct {
	cfg    Config
	listen ListenFunc
	logger logging.Logger
	id     int
	seq    atomic.Uint32
}

// New creates a Pinger. A nil listen uses the system ICMP socket.
func New(cfg Config, listen ListenFunc, logger logging.Logger) *Pinger {
	if listen == nil {
		listen = ListenSystem
	}
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Pinger{
		cfg:    cfg.withDefaults(),
		listen: listen,
		logger: logger.With("component", "ping"),
		id:     echoID(),
	}
}

// echoID picks the identifier raw sockets match replies on. Datagram
// sockets have theirs assigned by the kernel.
func echoID() int {
	id, err := securerandom.Uint16()
	if err != nil {
		return os.Getpid() & 0xffff
	}
	return int(id)
}

// ListenSystem opens an unprivileged datagram ICMP socket, falling back to a
// raw socket when the kernel does not allow the former.
func ListenSystem() (PacketConn, bool, error) {
	conn, err := icmp.ListenPacket("udp4", "0.0.0.0")
	if err == nil {
		return conn, false, nil
	}
	raw, rawErr := icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	if rawErr != nil {
		return nil, false, fmt.Errorf("failed to open icmp socket: %w", errors.Join(err, rawErr))
	}
	return raw, true, nil
}

// Probe runs Ping and reduces the outcome to an error, logging the summary.
func (p *Pinger) Probe(ctx context.Context, addr netip.Addr) error {
	summary, err := p.Ping(ctx, addr)
	if err != nil {
		return err
	}
	p.logger.Info("Ping summary",
		"target", addr.String(),
		"transmitted", summary.Transmitted,
		"received", summary.Received,
		"elapsed", summary.Elapsed.String(),
	)
	return nil
}

// Ping sends cfg.Count echo requests to addr spaced by cfg.Interval. It
// fails with ErrNoReply when nothing answered.
func (p *Pinger) Ping(ctx context.Context, addr netip.Addr) (Summary, error) {
	if !addr.Is4() {
		return Summary{}, fmt.Errorf("ping target %s is not an IPv4 address", addr)
	}

	conn, privileged, err := p.listen()
	if err != nil {
		return Summary{}, err
	}
	defer conn.Close()

	var dst net.Addr = &net.UDPAddr{IP: addr.AsSlice()}
	if privileged {
		dst = &net.IPAddr{IP: addr.AsSlice()}
	}

	limiter := rate.NewLimiter(rate.Every(p.cfg.Interval), 1)
	payload := make([]byte, p.cfg.DataSize)
	for i := range payload {
		payload[i] = byte(i)
	}

	var summary Summary
	start := time.Now()
	for i := 0; i < p.cfg.Count; i++ {
		if err := limiter.Wait(ctx); err != nil {
			break
		}

		seq := int(p.seq.Add(1) & 0xffff)
		ok, err := p.exchange(ctx, conn, dst, privileged, seq, payload)
		summary.Transmitted++
		if err != nil {
			p.logger.Debug("Echo request failed", "target", addr.String(), "seq", seq, "error", err)
			continue
		}
		if ok {
			summary.Received++
		}
	}
	summary.Elapsed = time.Since(start)

	if summary.Received == 0 {
		return summary, fmt.Errorf("%w from %s (%d sent)", ErrNoReply, addr, summary.Transmitted)
	}
	return summary, nil
}

// exchange sends one request and waits for its reply. A timeout is a lost
// packet, not an error.
func (p *Pinger) exchange(ctx context.Context, conn PacketConn, dst net.Addr, privileged bool, seq int, payload []byte) (bool, error) {
	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{ID: p.id, Seq: seq, Data: payload},
	}
	wire, err := msg.Marshal(nil)
	if err != nil {
		return false, fmt.Errorf("failed to marshal echo request: %w", err)
	}
	if _, err := conn.WriteTo(wire, dst); err != nil {
		return false, fmt.Errorf("failed to send echo request: %w", err)
	}

	deadline := time.Now().Add(p.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return false, err
	}

	buf := make([]byte, 1500)
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return false, nil
			}
			return false, fmt.Errorf("failed to read echo reply: %w", err)
		}
		reply, err := icmp.ParseMessage(protocolICMP, buf[:n])
		if err != nil {
			continue
		}
		if reply.Type != ipv4.ICMPTypeEchoReply {
			continue
		}
		echo, ok := reply.Body.(*icmp.Echo)
		if !ok || echo.Seq != seq {
			continue
		}
		// Datagram sockets get their identifier rewritten by the kernel.
		if privileged && echo.ID != p.id {
			continue
		}
		return true, nil
	}
}
