package wifi

import (
	"context"

	"github.com/webstation/webstation/core/eventloop"
	"github.com/webstation/webstation/pkg/logging"
)

// Keys written to the Store once a configuration is applied.
const (
	StoreKeySSID = "sta.ssid"
	StoreKeyAuth = "sta.auth"
)

// Credentials identify the access point to join.
type Credentials struct {
	SSID     string
	Password string
}

// Options carries the collaborators of BringUp. Store and Pinger are
// optional.
type Options struct {
	Radio  Radio
	Events *eventloop.Loop
	Store  Store
	Pinger Pinger
	Logger logging.Logger
}

// Connection is the live station link produced by BringUp. It stays valid
// for as long as the owner keeps it; there is no teardown.
type Connection struct {
	wifi  *AsyncWifi
	cfg   ClientConfig
	info  IPInfo
	stage Stage
}

// IPInfo returns the address assignment of the link.
func (c *Connection) IPInfo() IPInfo { return c.info }

// Config returns the applied station configuration.
func (c *Connection) Config() ClientConfig { return c.cfg }

// Stage returns the last stage the sequence reached.
func (c *Connection) Stage() Stage { return c.stage }

// Wifi returns the async control surface of the link.
func (c *Connection) Wifi() *AsyncWifi { return c.wifi }

// BringUp runs the station sequence: configure, start, associate, wait for
// an address, then probe the gateway. The first failing stage is returned
// as a *StageError with no retry. The gateway probe is advisory: its
// failure is logged and the connection is still returned.
func BringUp(ctx context.Context, creds Credentials, opts Options) (*Connection, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetLogger()
	}
	logger = logger.With("component", "wifi", "ssid", creds.SSID)

	cfg, err := NewClientConfig(creds.SSID, creds.Password)
	if err != nil {
		return nil, err
	}

	conn := &Connection{cfg: cfg, stage: StageUnconfigured}
	advance := func(s Stage) {
		conn.stage = s
		logger.Debug("Wifi stage", "stage", s.String())
	}

	w, err := Wrap(opts.Radio, opts.Events)
	if err != nil {
		return nil, stageErr(StageUnconfigured, err)
	}
	conn.wifi = w
	fail := func(stage Stage, err error) (*Connection, error) {
		w.Release()
		return nil, stageErr(stage, err)
	}

	advance(StageConfiguring)
	if err := w.SetConfiguration(cfg); err != nil {
		return fail(StageConfiguring, err)
	}
	persist(opts.Store, cfg, logger)

	advance(StageStarting)
	if err := w.Start(ctx); err != nil {
		return fail(StageStarting, err)
	}
	logger.Info("Wifi started.")

	advance(StageAssociating)
	if err := w.Connect(ctx); err != nil {
		return fail(StageAssociating, err)
	}
	logger.Info("Wifi connected.")

	advance(StageAddressPending)
	info, err := w.WaitNetifUp(ctx)
	if err != nil {
		return fail(StageAddressPending, err)
	}
	conn.info = info
	logger.Info("Wifi netif up.", "ip_info", info.String())

	advance(StageReachable)
	probeGateway(ctx, opts.Pinger, info, logger)

	advance(StageDone)
	return conn, nil
}

func persist(store Store, cfg ClientConfig, logger logging.Logger) {
	if store == nil {
		return
	}
	if err := store.Set(StoreKeySSID, []byte(cfg.SSID)); err != nil {
		logger.Warn("Failed to persist station configuration", "key", StoreKeySSID, "error", err)
		return
	}
	if err := store.Set(StoreKeyAuth, []byte(cfg.AuthMethod.String())); err != nil {
		logger.Warn("Failed to persist station configuration", "key", StoreKeyAuth, "error", err)
	}
}

func probeGateway(ctx context.Context, pinger Pinger, info IPInfo, logger logging.Logger) {
	if pinger == nil {
		logger.Debug("No pinger configured, skipping gateway probe")
		return
	}
	gw, ok := info.GatewayAddr()
	if !ok {
		logger.Warn("No gateway could be derived from the address assignment", "ip_info", info.String())
		return
	}
	if err := pinger.Probe(ctx, gw); err != nil {
		logger.Warn("Gateway is not reachable", "gateway", gw.String(), "error", err)
		return
	}
	logger.Info("Gateway is reachable", "gateway", gw.String())
}
