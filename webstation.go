package webstation

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/webstation/webstation/core/app"
	"github.com/webstation/webstation/core/config"
	"github.com/webstation/webstation/core/eventloop"
	"github.com/webstation/webstation/core/nvs"
	"github.com/webstation/webstation/core/ping"
	"github.com/webstation/webstation/core/storage"
	"github.com/webstation/webstation/core/wifi/netif"
	"github.com/webstation/webstation/interfaces"
	"github.com/webstation/webstation/pkg/logging"
)

// NVSNamespace is where the station settings are persisted.
const NVSNamespace = "nvs.net80211"

// Device is a station serving one asset over HTTP.
type Device struct {
	app     *app.App
	closers []func() error
}

// NewDevice creates a device driving the host interface named in cfg.
func NewDevice(cfg *config.Config, logger logging.Logger) (interfaces.Device, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.GetLogger()
	}

	events := eventloop.New()
	radio, err := netif.New(netif.Config{
		Interface:    cfg.Netif.Interface,
		Poll:         cfg.Netif.Poll(),
		AssocTimeout: cfg.Netif.AssocTimeout(),
	}, events, logger)
	if err != nil {
		events.Close()
		return nil, err
	}

	store, err := nvs.Open(afero.NewOsFs(), filepath.Join(cfg.Storage.Root, "nvs"), NVSNamespace)
	if err != nil {
		logger.Warn("Persistent storage unavailable", "error", err)
	}

	deps := app.Deps{
		Radio:  radio,
		Events: events,
		Pinger: ping.New(ping.Config{
			Count:    cfg.Ping.Count,
			Interval: cfg.Ping.Interval(),
			Timeout:  cfg.Ping.Timeout(),
			DataSize: cfg.Ping.DataSize,
		}, nil, logger),
		Mounter: storage.DirMounter{Root: cfg.Storage.Root},
		Logger:  logger,
	}
	if store != nil {
		deps.Store = store
	}

	d, err := NewDeviceWithDeps(cfg, deps)
	if err != nil {
		_ = radio.Close()
		events.Close()
		return nil, err
	}
	dev := d.(*Device)
	dev.closers = append(dev.closers, radio.Close, func() error { events.Close(); return nil })
	return dev, nil
}

// NewDeviceWithDeps creates a device from explicit collaborators.
func NewDeviceWithDeps(cfg *config.Config, deps app.Deps) (interfaces.Device, error) {
	a, err := app.New(cfg, deps)
	if err != nil {
		return nil, err
	}
	return &Device{app: a}, nil
}

// Start brings the station up and starts serving.
func (d *Device) Start(ctx context.Context) error {
	return d.app.Setup(ctx)
}

// Stop stops serving and releases the host resources.
func (d *Device) Stop() error {
	errs := []error{d.app.Shutdown(context.Background())}
	for _, c := range d.closers {
		errs = append(errs, c())
	}
	d.closers = nil
	return errors.Join(errs...)
}

// Status returns the current operational status of the device.
func (d *Device) Status() (string, error) {
	return d.app.Status(), nil
}

// App exposes the underlying application.
func (d *Device) App() *app.App { return d.app }
