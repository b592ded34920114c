package testutils

import (
	"context"
	"errors"
	"net/netip"
	"sync"
	"time"

	"github.com/webstation/webstation/core/eventloop"
	"github.com/webstation/webstation/core/wifi"
)

// TestTimeout is the default timeout for operations in tests.
const TestTimeout = 5 * time.Second

// TestInterval is the default interval for polling in tests.
const TestInterval = 10 * time.Millisecond

// DefaultIPInfo is the assignment a FakeRadio reports unless told otherwise.
var DefaultIPInfo = wifi.IPInfo{
	IP:      netip.MustParseAddr("192.168.4.20"),
	Subnet:  netip.MustParsePrefix("192.168.4.0/24"),
	Gateway: netip.MustParseAddr("192.168.4.1"),
	DNS:     netip.MustParseAddr("192.168.4.1"),
}

// FakeRadio is a wifi.Radio that answers every request by posting the
// matching completion to its event loop, like a well-behaved driver.
type FakeRadio struct {
	Events *eventloop.Loop
	Info   wifi.IPInfo

	// Set to make the corresponding stage fail.
	ConfigErr error
	StartErr  error
	AssocFail wifi.DisconnectReason
	NoAddress bool

	mu      sync.Mutex
	applied []wifi.ClientConfig
	calls   []string
}

// NewFakeRadio returns a radio that succeeds at every stage.
func NewFakeRadio(events *eventloop.Loop) *FakeRadio {
	return &FakeRadio{Events: events, Info: DefaultIPInfo}
}

func (r *FakeRadio) record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

// Calls returns the radio requests in the order they were made.
func (r *FakeRadio) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Applied returns every configuration passed to SetConfiguration.
func (r *FakeRadio) Applied() []wifi.ClientConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]wifi.ClientConfig(nil), r.applied...)
}

func (r *FakeRadio) SetConfiguration(cfg wifi.ClientConfig) error {
	r.record("configure")
	if r.ConfigErr != nil {
		return r.ConfigErr
	}
	r.mu.Lock()
	r.applied = append(r.applied, cfg)
	r.mu.Unlock()
	return nil
}

func (r *FakeRadio) Start() error {
	r.record("start")
	if r.StartErr != nil {
		return r.StartErr
	}
	go func() { _ = r.Events.Post(wifi.StartedEvent()) }()
	return nil
}

func (r *FakeRadio) Connect() error {
	r.record("connect")
	ssid := ""
	if applied := r.Applied(); len(applied) > 0 {
		ssid = applied[len(applied)-1].SSID
	}
	go func() {
		if r.AssocFail != 0 {
			_ = r.Events.Post(wifi.DisconnectedEvent(ssid, r.AssocFail))
			return
		}
		_ = r.Events.Post(wifi.ConnectedEvent())
		if !r.NoAddress {
			_ = r.Events.Post(wifi.GotIPEvent(r.Info))
		}
	}()
	return nil
}

// MemStore is an in-memory wifi.Store.
type MemStore struct {
	mu   sync.Mutex
	data map[string][]byte
	Err  error
}

func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]byte)}
}

func (s *MemStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.data[key] = append([]byte(nil), value...)
	return nil
}

// Get returns a stored value.
func (s *MemStore) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

// ProbeFunc adapts a function to wifi.Pinger.
type ProbeFunc func(addr netip.Addr) error

func (f ProbeFunc) Probe(_ context.Context, addr netip.Addr) error {
	return f(addr)
}

// ErrUnreachable is a canned probe failure.
var ErrUnreachable = errors.New("host unreachable")
