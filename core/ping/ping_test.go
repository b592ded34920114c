package ping

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"

	"github.com/webstation/webstation/testutils"
)

// echoConn answers echo requests in memory. drop decides which sequence
// numbers go unanswered.
type echoConn struct {
	mu      sync.Mutex
	pending [][]byte
	dsts    []net.Addr
	drop    func(seq int) bool
	closed  bool
}

func (c *echoConn) WriteTo(b []byte, dst net.Addr) (int, error) {
	msg, err := icmp.ParseMessage(protocolICMP, b)
	if err != nil {
		return 0, err
	}
	echo := msg.Body.(*icmp.Echo)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.dsts = append(c.dsts, dst)
	if c.drop != nil && c.drop(echo.Seq) {
		return len(b), nil
	}

	// A stray reply for another sequence precedes the real one.
	stray, _ := (&icmp.Message{Type: ipv4.ICMPTypeEchoReply, Body: &icmp.Echo{ID: echo.ID, Seq: echo.Seq + 1000}}).Marshal(nil)
	reply, _ := (&icmp.Message{Type: ipv4.ICMPTypeEchoReply, Body: &icmp.Echo{ID: echo.ID, Seq: echo.Seq, Data: echo.Data}}).Marshal(nil)
	c.pending = append(c.pending, stray, reply)
	return len(b), nil
}

func (c *echoConn) ReadFrom(b []byte) (int, net.Addr, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) == 0 {
		return 0, nil, os.ErrDeadlineExceeded
	}
	n := copy(b, c.pending[0])
	c.pending = c.pending[1:]
	return n, &net.IPAddr{}, nil
}

func (c *echoConn) SetReadDeadline(time.Time) error { return nil }

func (c *echoConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func fastConfig(count int) Config {
	return Config{Count: count, Interval: time.Millisecond, Timeout: 5 * time.Millisecond, DataSize: 8}
}

func listenOn(conn *echoConn, privileged bool) ListenFunc {
	return func() (PacketConn, bool, error) { return conn, privileged, nil }
}

var gateway = netip.MustParseAddr("192.168.4.1")

func TestPing_AllReplies(t *testing.T) {
	conn := &echoConn{}
	p := New(fastConfig(3), listenOn(conn, false), testutils.NewTestLogger())

	summary, err := p.Ping(context.Background(), gateway)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Transmitted)
	assert.Equal(t, 3, summary.Received)
	assert.Zero(t, summary.Loss())
	assert.True(t, conn.closed)

	require.Len(t, conn.dsts, 3)
	assert.IsType(t, &net.UDPAddr{}, conn.dsts[0])
}

func TestPing_PrivilegedUsesIPAddr(t *testing.T) {
	conn := &echoConn{}
	p := New(fastConfig(1), listenOn(conn, true), testutils.NewTestLogger())

	_, err := p.Ping(context.Background(), gateway)
	require.NoError(t, err)
	require.Len(t, conn.dsts, 1)
	assert.Equal(t, "192.168.4.1", conn.dsts[0].(*net.IPAddr).IP.String())
}

func TestPing_PartialLoss(t *testing.T) {
	conn := &echoConn{drop: func(seq int) bool { return seq%2 == 0 }}
	p := New(fastConfig(4), listenOn(conn, false), testutils.NewTestLogger())

	summary, err := p.Ping(context.Background(), gateway)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Transmitted)
	assert.Equal(t, 2, summary.Received)
	assert.InDelta(t, 0.5, summary.Loss(), 0.001)
}

func TestPing_NoReply(t *testing.T) {
	conn := &echoConn{drop: func(int) bool { return true }}
	p := New(fastConfig(2), listenOn(conn, false), testutils.NewTestLogger())

	summary, err := p.Ping(context.Background(), gateway)
	assert.ErrorIs(t, err, ErrNoReply)
	assert.Equal(t, 2, summary.Transmitted)
	assert.Zero(t, summary.Received)

	assert.ErrorIs(t, p.Probe(context.Background(), gateway), ErrNoReply)
}

func TestPing_ListenFailure(t *testing.T) {
	listenErr := errors.New("operation not permitted")
	p := New(fastConfig(1), func() (PacketConn, bool, error) { return nil, false, listenErr }, testutils.NewTestLogger())

	assert.ErrorIs(t, p.Probe(context.Background(), gateway), listenErr)
}

func TestPing_RejectsIPv6(t *testing.T) {
	p := New(fastConfig(1), listenOn(&echoConn{}, false), testutils.NewTestLogger())
	_, err := p.Ping(context.Background(), netip.MustParseAddr("fe80::1"))
	assert.Error(t, err)
}

func TestPing_CancelledContext(t *testing.T) {
	conn := &echoConn{}
	p := New(Config{Count: 10, Interval: time.Hour, Timeout: time.Millisecond}, listenOn(conn, false), testutils.NewTestLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// The first request goes out immediately; the second would wait an hour.
	summary, err := p.Ping(ctx, gateway)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Transmitted)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, DefaultConfig(), cfg)
}
