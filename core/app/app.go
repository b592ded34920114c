// Package app wires the device together: it brings the station up, mounts
// the asset volume and serves the asset until its context ends.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/webstation/webstation/core/asset"
	"github.com/webstation/webstation/core/config"
	"github.com/webstation/webstation/core/eventloop"
	"github.com/webstation/webstation/core/httpd"
	"github.com/webstation/webstation/core/storage"
	"github.com/webstation/webstation/core/transport"
	"github.com/webstation/webstation/core/wifi"
	"github.com/webstation/webstation/pkg/logging"
)

// Deps are the collaborators the application drives.
type Deps struct {
	Radio     wifi.Radio
	Events    *eventloop.Loop
	Store     wifi.Store
	Pinger    wifi.Pinger
	Mounter   storage.Mounter
	Transport transport.Transport
	Logger    logging.Logger
}

// App holds everything the device owns for the lifetime of the process.
type App struct {
	cfg    *config.Config
	deps   Deps
	logger logging.Logger

	mu     sync.Mutex
	conn   *wifi.Connection
	volume *storage.Volume
	server *httpd.Server
}

// New validates cfg and returns an application ready for Setup.
func New(cfg *config.Config, deps Deps) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Radio == nil || deps.Events == nil {
		return nil, errors.New("a radio and an event loop are required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.GetLogger()
	}
	return &App{cfg: cfg, deps: deps, logger: deps.Logger.With("component", "app")}, nil
}

// Setup runs the bootstrap in order: connection, mount, route, serve. A
// failed connection aborts it; a failed mount does not, and the responder is
// registered regardless so that every request answers 404.
func (a *App) Setup(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server != nil {
		return errors.New("already set up")
	}

	conn, err := wifi.BringUp(ctx, wifi.Credentials{
		SSID:     a.cfg.WiFi.SSID,
		Password: a.cfg.WiFi.Password,
	}, wifi.Options{
		Radio:  a.deps.Radio,
		Events: a.deps.Events,
		Store:  a.deps.Store,
		Pinger: a.deps.Pinger,
		Logger: a.deps.Logger,
	})
	if err != nil {
		return fmt.Errorf("wifi bring-up: %w", err)
	}
	a.conn = conn

	volume, err := storage.Mount(a.deps.Mounter, storage.MountConfig{
		BasePath:  a.cfg.Storage.BasePath,
		Partition: a.cfg.Storage.Partition,
		MaxFiles:  a.cfg.Storage.MaxFiles,
	})
	if err != nil {
		a.logger.Error("Failed to mount storage", "partition", a.cfg.Storage.Partition, "error", err)
	} else {
		a.logger.Info("Mounted storage", "partition", a.cfg.Storage.Partition, "base_path", volume.BasePath())
	}
	a.volume = volume

	httpCfg := httpd.DefaultConfig()
	httpCfg.Addr = a.cfg.HTTP.Addr
	httpCfg.MaxOpenSockets = a.cfg.HTTP.MaxOpenSockets
	server := httpd.New(httpCfg, a.deps.Transport, a.deps.Logger)

	responder := asset.NewResponder(volume,
		asset.WithPath(a.cfg.HTTP.Asset),
		asset.WithChunkSize(a.cfg.HTTP.ChunkSize),
		asset.WithLogger(a.deps.Logger),
	)
	if err := server.Handle(a.cfg.HTTP.Route, http.MethodGet, responder.Serve); err != nil {
		return fmt.Errorf("register asset route: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return err
	}
	a.server = server

	a.logger.Info("Serving asset", "addr", server.Addr(), "route", a.cfg.HTTP.Route, "asset", responder.Path())
	return nil
}

// Run sets up the device and then idles, serving, until ctx ends.
func (a *App) Run(ctx context.Context) error {
	if err := a.Setup(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	a.logger.Info("Shutting down")
	return a.Shutdown(context.WithoutCancel(ctx))
}

// Shutdown stops the server. The connection is left as it is.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	server := a.server
	a.mu.Unlock()
	if server == nil {
		return nil
	}
	return server.Stop(ctx)
}

// Connection returns the station connection once Setup succeeded.
func (a *App) Connection() *wifi.Connection {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conn
}

// Volume returns the asset volume, mounted or not.
func (a *App) Volume() *storage.Volume {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.volume
}

// Addr returns the address the server listens on.
func (a *App) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server == nil {
		return ""
	}
	return a.server.Addr()
}

// Status summarises the device state.
func (a *App) Status() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn == nil {
		return "offline"
	}
	mounted := "unmounted"
	if a.volume != nil && a.volume.Mounted() {
		mounted = "mounted"
	}
	addr := ""
	if a.server != nil {
		addr = a.server.Addr()
	}
	return fmt.Sprintf("%s ip=%s storage=%s http=%s", a.conn.Stage(), a.conn.IPInfo().IP, mounted, addr)
}
