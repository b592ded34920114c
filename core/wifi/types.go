//go:generate mockgen -package=mocks -destination=../../mocks/mock_wifi.go github.com/webstation/webstation/core/wifi Radio,Store,Pinger

package wifi

import (
	"context"
	"fmt"
	"net"
	"net/netip"
)

// Field capacities of a station configuration.
const (
	MaxSSIDLen     = 32
	MaxPasswordLen = 64
)

// AuthMethod is the link security the station negotiates.
type AuthMethod int

const (
	AuthNone AuthMethod = iota
	AuthWEP
	AuthWPAPersonal
	AuthWPA2Personal
	AuthWPA3Personal
)

func (a AuthMethod) String() string {
	switch a {
	case AuthNone:
		return "none"
	case AuthWEP:
		return "wep"
	case AuthWPAPersonal:
		return "wpa-personal"
	case AuthWPA2Personal:
		return "wpa2-personal"
	case AuthWPA3Personal:
		return "wpa3-personal"
	default:
		return fmt.Sprintf("auth(%d)", int(a))
	}
}

// ClientConfig is a station-mode configuration. A nil BSSID and a zero
// Channel leave the choice to the driver.
type ClientConfig struct {
	SSID       string
	Password   string
	AuthMethod AuthMethod
	BSSID      net.HardwareAddr
	Channel    uint8
}

// NewClientConfig builds a WPA2-Personal station configuration, rejecting
// credentials that do not fit the fixed-capacity fields.
func NewClientConfig(ssid, password string) (ClientConfig, error) {
	if ssid == "" {
		return ClientConfig{}, fmt.Errorf("%w: ssid is empty", ErrInvalidCredentials)
	}
	if len(ssid) > MaxSSIDLen {
		return ClientConfig{}, fmt.Errorf("%w: ssid is %d bytes, limit is %d", ErrInvalidCredentials, len(ssid), MaxSSIDLen)
	}
	if len(password) > MaxPasswordLen {
		return ClientConfig{}, fmt.Errorf("%w: password is %d bytes, limit is %d", ErrInvalidCredentials, len(password), MaxPasswordLen)
	}
	return ClientConfig{
		SSID:       ssid,
		Password:   password,
		AuthMethod: AuthWPA2Personal,
	}, nil
}

// IPInfo is the address assignment reported once the interface is up.
type IPInfo struct {
	IP      netip.Addr
	Subnet  netip.Prefix
	Gateway netip.Addr
	DNS     netip.Addr
}

// GatewayAddr returns the gateway, falling back to the first host address
// of the subnet when the assignment did not carry one.
func (i IPInfo) GatewayAddr() (netip.Addr, bool) {
	if i.Gateway.IsValid() && !i.Gateway.IsUnspecified() {
		return i.Gateway, true
	}
	if !i.Subnet.IsValid() {
		return netip.Addr{}, false
	}
	first := i.Subnet.Masked().Addr().Next()
	if !first.IsValid() || !i.Subnet.Contains(first) || first == i.IP {
		return netip.Addr{}, false
	}
	return first, true
}

func (i IPInfo) String() string {
	return fmt.Sprintf("ip=%s subnet=%s gateway=%s dns=%s", i.IP, i.Subnet, i.Gateway, i.DNS)
}

// Radio is the link-control surface of a wireless driver. Start and Connect
// only issue requests; completion is reported through the event loop.
type Radio interface {
	SetConfiguration(cfg ClientConfig) error
	Start() error
	Connect() error
}

// Store is the persistent key-value storage a driver keeps its state in.
type Store interface {
	Set(key string, value []byte) error
}

// Pinger checks that a host answers. Outcomes are advisory.
type Pinger interface {
	Probe(ctx context.Context, addr netip.Addr) error
}
