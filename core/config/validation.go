package config

import (
	"fmt"
	"path"
	"strings"

	"github.com/webstation/webstation/core/wifi"
)

func (c *Config) Validate() error {
	if _, err := wifi.NewClientConfig(c.WiFi.SSID, c.WiFi.Password); err != nil {
		return err
	}

	if !strings.HasPrefix(c.Storage.BasePath, "/") {
		return fmt.Errorf("storage.base_path must be absolute: %q", c.Storage.BasePath)
	}
	if c.Storage.Partition == "" {
		return fmt.Errorf("storage.partition must be set")
	}
	if c.Storage.MaxFiles < 1 {
		return fmt.Errorf("storage.max_files must be at least 1, got %d", c.Storage.MaxFiles)
	}

	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr must be set")
	}
	if !strings.HasPrefix(c.HTTP.Route, "/") {
		return fmt.Errorf("http.route must start with '/': %q", c.HTTP.Route)
	}
	base := path.Clean(c.Storage.BasePath)
	if !strings.HasPrefix(path.Clean(c.HTTP.Asset), base+"/") {
		return fmt.Errorf("http.asset %q is outside storage.base_path %q", c.HTTP.Asset, c.Storage.BasePath)
	}
	if c.HTTP.ChunkSize < 1 {
		return fmt.Errorf("http.chunk_size must be positive, got %d", c.HTTP.ChunkSize)
	}

	if c.Ping.Count < 0 || c.Ping.IntervalMs < 0 || c.Ping.TimeoutMs < 0 || c.Ping.DataSize < 0 {
		return fmt.Errorf("ping values must not be negative")
	}

	if c.Netif.Interface == "" {
		return fmt.Errorf("netif.interface must be set")
	}
	return nil
}
