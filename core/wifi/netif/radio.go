// Package netif drives the connection sequencer from a host network
// interface. The interface is treated as the station radio: it is started
// when it exists, associated when it is up, and addressed when it carries an
// IPv4 address.
package netif

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/webstation/webstation/core/eventloop"
	"github.com/webstation/webstation/core/wifi"
	"github.com/webstation/webstation/pkg/logging"
)

// Config configures a Radio.
type Config struct {
	Interface    string
	Poll         time.Duration
	AssocTimeout time.Duration

	// Links and Routes default to the host.
	Links  LinkSource
	Routes afero.Fs
}

func (c Config) withDefaults() Config {
	if c.Interface == "" {
		c.Interface = "wlan0"
	}
	if c.Poll <= 0 {
		c.Poll = 250 * time.Millisecond
	}
	if c.AssocTimeout <= 0 {
		c.AssocTimeout = 30 * time.Second
	}
	if c.Links == nil {
		c.Links = SystemLinks{}
	}
	if c.Routes == nil {
		c.Routes = afero.NewReadOnlyFs(afero.NewOsFs())
	}
	return c
}

// Radio is a wifi.Radio backed by a host interface. Completions are posted
// to the event loop from a watcher goroutine.
type Radio struct {
	cfg    Config
	events *eventloop.Loop
	logger logging.Logger

	mu      sync.Mutex
	client  wifi.ClientConfig
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a radio posting to events.
func New(cfg Config, events *eventloop.Loop, logger logging.Logger) (*Radio, error) {
	if events == nil {
		return nil, errors.New("event loop is required")
	}
	if logger == nil {
		logger = logging.GetLogger()
	}
	cfg = cfg.withDefaults()
	return &Radio{
		cfg:    cfg,
		events: events,
		logger: logger.With("component", "netif", "interface", cfg.Interface),
	}, nil
}

// SetConfiguration records the station configuration. The host manages
// the actual association, so the credentials are only reported back in
// disconnect events.
func (r *Radio) SetConfiguration(cfg wifi.ClientConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.client = cfg
	return nil
}

// Start checks the interface exists and posts STA_START.
func (r *Radio) Start() error {
	if _, err := r.cfg.Links.Link(r.cfg.Interface); err != nil {
		return err
	}
	r.mu.Lock()
	r.started = true
	r.mu.Unlock()

	r.post(wifi.StartedEvent())
	return nil
}

// Connect starts watching the interface. STA_CONNECTED is posted once the
// link is up and STA_GOT_IP once it is addressed; STA_DISCONNECTED is
// posted if AssocTimeout elapses first.
func (r *Radio) Connect() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return errors.New("radio not started")
	}
	if r.cancel != nil {
		r.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.AssocTimeout)
	r.cancel = cancel
	ssid := r.client.SSID

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()
		r.watch(ctx, ssid)
	}()
	return nil
}

// Close stops any watcher.
func (r *Radio) Close() error {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()
	r.wg.Wait()
	return nil
}

func (r *Radio) watch(ctx context.Context, ssid string) {
	ticker := time.NewTicker(r.cfg.Poll)
	defer ticker.Stop()

	connected := false
	for {
		link, err := r.cfg.Links.Link(r.cfg.Interface)
		switch {
		case err != nil:
			r.logger.Debug("Interface lookup failed", "error", err)
		case !connected && link.Up:
			connected = true
			r.post(wifi.ConnectedEvent())
			fallthrough
		case connected:
			if info, ok := r.address(link); ok {
				r.post(wifi.GotIPEvent(info))
				return
			}
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				reason := wifi.ReasonNoAPFound
				if connected {
					reason = wifi.ReasonConnectionFail
				}
				r.logger.Warn("Timed out waiting for interface", "connected", connected, "timeout", r.cfg.AssocTimeout)
				r.post(wifi.DisconnectedEvent(ssid, reason))
			}
			return
		case <-ticker.C:
		}
	}
}

func (r *Radio) address(link Link) (wifi.IPInfo, bool) {
	if !link.Up {
		return wifi.IPInfo{}, false
	}
	prefix, ok := link.IPv4()
	if !ok {
		return wifi.IPInfo{}, false
	}
	info := wifi.IPInfo{IP: prefix.Addr(), Subnet: prefix.Masked()}

	gw, err := DefaultGateway(r.cfg.Routes, RouteTable, r.cfg.Interface)
	if err != nil {
		r.logger.Debug("No gateway from route table", "error", err)
	} else {
		info.Gateway = gw
	}
	return info, true
}

func (r *Radio) post(ev eventloop.Event) {
	if err := r.events.Post(ev); err != nil {
		r.logger.Warn("Dropped event", "event", ev.String(), "error", err)
	}
}

// String describes the radio.
func (r *Radio) String() string {
	return fmt.Sprintf("netif(%s)", r.cfg.Interface)
}

var _ wifi.Radio = (*Radio)(nil)
