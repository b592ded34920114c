package netif

import (
	"bufio"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// RouteTable is the kernel routing table exported by procfs.
const RouteTable = "/proc/net/route"

const rtfGateway = 0x2

// ErrNoDefaultRoute is returned when the interface has no default gateway.
var ErrNoDefaultRoute = errors.New("no default route")

// DefaultGateway reads the default IPv4 gateway of iface from the routing
// table at path on fs.
func DefaultGateway(fs afero.Fs, path, iface string) (netip.Addr, error) {
	f, err := fs.Open(path)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("open route table: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Scan() // header
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 || fields[0] != iface || fields[1] != "00000000" {
			continue
		}
		flags, err := strconv.ParseUint(fields[3], 16, 32)
		if err != nil || flags&rtfGateway == 0 {
			continue
		}
		gw, err := parseHexAddr(fields[2])
		if err != nil {
			return netip.Addr{}, err
		}
		return gw, nil
	}
	if err := sc.Err(); err != nil {
		return netip.Addr{}, fmt.Errorf("read route table: %w", err)
	}
	return netip.Addr{}, fmt.Errorf("%s: %w", iface, ErrNoDefaultRoute)
}

// parseHexAddr decodes an address as procfs prints it: host byte order,
// which is little endian on every platform this runs on.
func parseHexAddr(s string) (netip.Addr, error) {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 4 {
		return netip.Addr{}, fmt.Errorf("malformed route address %q", s)
	}
	var a [4]byte
	binary.BigEndian.PutUint32(a[:], binary.LittleEndian.Uint32(b))
	return netip.AddrFrom4(a), nil
}
