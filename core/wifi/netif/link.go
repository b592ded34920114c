package netif

import (
	"fmt"
	"net"
	"net/netip"
)

// Link is a snapshot of a host interface.
type Link struct {
	Up    bool
	Addrs []netip.Prefix
}

// IPv4 returns the first IPv4 address on the link.
func (l Link) IPv4() (netip.Prefix, bool) {
	for _, p := range l.Addrs {
		if p.Addr().Is4() {
			return p, true
		}
	}
	return netip.Prefix{}, false
}

// LinkSource looks interfaces up by name.
type LinkSource interface {
	Link(name string) (Link, error)
}

// SystemLinks reads interfaces from the host.
type SystemLinks struct{}

func (SystemLinks) Link(name string) (Link, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return Link{}, fmt.Errorf("interface %s: %w", name, err)
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return Link{}, fmt.Errorf("interface %s addresses: %w", name, err)
	}

	l := Link{Up: iface.Flags&net.FlagUp != 0 && iface.Flags&net.FlagRunning != 0}
	for _, a := range addrs {
		ipn, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		ip, ok := netip.AddrFromSlice(ipn.IP)
		if !ok {
			continue
		}
		ones, _ := ipn.Mask.Size()
		l.Addrs = append(l.Addrs, netip.PrefixFrom(ip.Unmap(), ones))
	}
	return l, nil
}
