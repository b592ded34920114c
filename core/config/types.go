package config

import "time"

// Credentials baked in at build time, e.g.
//
//	go build -ldflags "-X github.com/webstation/webstation/core/config.buildSSID=home"
var (
	buildSSID string
	buildPass string
)

const (
	fallbackSSID = "MyDefaultSSID"
	fallbackPass = "MyDefaultPass"
)

// Config is the complete device configuration.
type Config struct {
	WiFi    WiFi    `yaml:"wifi" toml:"wifi"`
	Storage Storage `yaml:"storage" toml:"storage"`
	HTTP    HTTP    `yaml:"http" toml:"http"`
	Ping    Ping    `yaml:"ping" toml:"ping"`
	Netif   Netif   `yaml:"netif" toml:"netif"`
	Log     Log     `yaml:"log" toml:"log"`
}

// WiFi holds the station credentials.
type WiFi struct {
	SSID     string `yaml:"ssid" toml:"ssid"`
	Password string `yaml:"password" toml:"password"`
}

// Storage configures the read-only asset volume.
type Storage struct {
	BasePath  string `yaml:"base_path" toml:"base_path"`
	Partition string `yaml:"partition" toml:"partition"`
	Root      string `yaml:"root" toml:"root"`
	MaxFiles  int    `yaml:"max_files" toml:"max_files"`
}

// HTTP configures the server and the single asset route.
type HTTP struct {
	Addr           string `yaml:"addr" toml:"addr"`
	Route          string `yaml:"route" toml:"route"`
	Asset          string `yaml:"asset" toml:"asset"`
	ChunkSize      int    `yaml:"chunk_size" toml:"chunk_size"`
	MaxOpenSockets int    `yaml:"max_open_sockets" toml:"max_open_sockets"`
}

// Ping configures the gateway reachability probe.
type Ping struct {
	Count      int `yaml:"count" toml:"count"`
	IntervalMs int `yaml:"interval_ms" toml:"interval_ms"`
	TimeoutMs  int `yaml:"timeout_ms" toml:"timeout_ms"`
	DataSize   int `yaml:"data_size" toml:"data_size"`
}

// Interval returns the interval between echo requests.
func (p Ping) Interval() time.Duration { return time.Duration(p.IntervalMs) * time.Millisecond }

// Timeout returns the per-reply timeout.
func (p Ping) Timeout() time.Duration { return time.Duration(p.TimeoutMs) * time.Millisecond }

// Netif configures the host network interface used as the radio.
type Netif struct {
	Interface      string `yaml:"interface" toml:"interface"`
	PollMs         int    `yaml:"poll_ms" toml:"poll_ms"`
	AssocTimeoutMs int    `yaml:"assoc_timeout_ms" toml:"assoc_timeout_ms"`
}

// Poll returns the interface polling period.
func (n Netif) Poll() time.Duration { return time.Duration(n.PollMs) * time.Millisecond }

// AssocTimeout returns how long association may take.
func (n Netif) AssocTimeout() time.Duration {
	return time.Duration(n.AssocTimeoutMs) * time.Millisecond
}

// Log configures the process logger.
type Log struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	ssid, pass := buildSSID, buildPass
	if ssid == "" {
		ssid = fallbackSSID
	}
	if pass == "" {
		pass = fallbackPass
	}
	return &Config{
		WiFi: WiFi{SSID: ssid, Password: pass},
		Storage: Storage{
			BasePath:  "/webapp",
			Partition: "webapp",
			Root:      "/var/lib/webstation",
			MaxFiles:  4,
		},
		HTTP: HTTP{
			Addr:           ":80",
			Route:          "/webapp/*",
			Asset:          "/webapp/build.ts",
			ChunkSize:      128,
			MaxOpenSockets: 7,
		},
		Ping: Ping{
			Count:      5,
			IntervalMs: 1000,
			TimeoutMs:  1000,
			DataSize:   56,
		},
		Netif: Netif{
			Interface:      "wlan0",
			PollMs:         250,
			AssocTimeoutMs: 30000,
		},
		Log: Log{Level: "info", Format: "console"},
	}
}
