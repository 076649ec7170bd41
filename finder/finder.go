// Package finder locates a single bridge by IP (a direct, unicast
// round-trip), by MAC, or by name (scanning a discovery stream).
package finder

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"bridgectl/discovery"
	"bridgectl/logging"
	"bridgectl/wire"
)

// ErrNotFound is returned when a Mac or Name search exhausts the discovery
// stream without a match.
var ErrNotFound = errors.New("finder: bridge not found")

// FindBy is a closed choice of Ip(v4) | Mac(bytes) | Name(string): exactly
// one of the three fields should be set, as produced by ByIP/ByMAC/ByName.
type FindBy struct {
	kind kind
	ip   net.IP
	mac  [6]byte
	name string
}

type kind int

const (
	kindIP kind = iota
	kindMAC
	kindName
)

// ByIP targets a bridge directly by IPv4 address.
func ByIP(ip net.IP) FindBy { return FindBy{kind: kindIP, ip: ip} }

// ByMAC targets a bridge by its 6-byte hardware address.
func ByMAC(mac [6]byte) FindBy { return FindBy{kind: kindMAC, mac: mac} }

// ByName targets a bridge by its announced name.
func ByName(name string) FindBy { return FindBy{kind: kindName, name: name} }

// Find resolves target to a single Identity using the strategy dictated by
// its kind.
func Find(ctx context.Context, target FindBy, port int, deadline time.Duration) (wire.Identity, error) {
	switch target.kind {
	case kindIP:
		return findByIP(ctx, target.ip, port, deadline)
	case kindMAC:
		return scanFor(ctx, port, deadline, func(id wire.Identity) bool {
			return id.MAC == target.mac
		})
	case kindName:
		return scanFor(ctx, port, deadline, func(id wire.Identity) bool {
			return id.Name == target.name
		})
	default:
		return wire.Identity{}, fmt.Errorf("finder: invalid FindBy")
	}
}

// findByIP performs a directed, unicast round-trip: bind to (0.0.0.0, port),
// "connect" the socket to (target, port), send one announcement, and await
// a single reply -- no broadcast, no enumeration.
func findByIP(ctx context.Context, target net.IP, port int, deadline time.Duration) (wire.Identity, error) {
	if port == 0 {
		port = discovery.DefaultPort
	}
	if deadline <= 0 {
		deadline = discovery.DefaultDeadline
	}

	laddr := &net.UDPAddr{IP: net.IPv4zero, Port: port}
	raddr := &net.UDPAddr{IP: target.To4(), Port: port}

	conn, err := net.DialUDP("udp4", laddr, raddr)
	if err != nil {
		return wire.Identity{}, fmt.Errorf("finder: dial %s: %w", raddr, err)
	}
	defer conn.Close()

	logging.DebugConnect("finder", raddr.String())

	if err := conn.SetDeadline(time.Now().Add(deadline)); err != nil {
		return wire.Identity{}, fmt.Errorf("finder: set deadline: %w", err)
	}

	req := wire.EncodeAnnouncement(false)
	if _, err := conn.Write(req); err != nil {
		return wire.Identity{}, fmt.Errorf("finder: write: %w", err)
	}

	buf := make([]byte, 1500)
	n, err := conn.Read(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return wire.Identity{}, fmt.Errorf("finder: %w: timed out waiting for reply from %s", ErrNotFound, target)
		}
		return wire.Identity{}, fmt.Errorf("finder: read: %w", err)
	}

	id, err := wire.DecodeReply(buf[:n], target)
	if err != nil {
		return wire.Identity{}, err
	}
	logging.DebugConnectSuccess("finder", raddr.String(), id.Name)
	return id, nil
}

func scanFor(ctx context.Context, port int, deadline time.Duration, match func(wire.Identity) bool) (wire.Identity, error) {
	results, err := discovery.Stream(ctx, false, port, deadline)
	if err != nil {
		return wire.Identity{}, err
	}
	for r := range results {
		if r.Err != nil {
			continue
		}
		if match(r.Identity) {
			return r.Identity, nil
		}
	}
	return wire.Identity{}, ErrNotFound
}

// Parse maps an arbitrary string to a FindBy by trying MAC, then IPv4, then
// falling back to name.
func Parse(s string) FindBy {
	if mac, ok := parseMAC(s); ok {
		return ByMAC(mac)
	}
	if ip := net.ParseIP(s); ip != nil && ip.To4() != nil {
		return ByIP(ip.To4())
	}
	return ByName(s)
}

// ParseIPOrName tries IPv4 then name only, never attempting a MAC match.
func ParseIPOrName(s string) FindBy {
	if ip := net.ParseIP(s); ip != nil && ip.To4() != nil {
		return ByIP(ip.To4())
	}
	return ByName(s)
}

func parseMAC(s string) ([6]byte, bool) {
	var mac [6]byte
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == ':' })
	if len(parts) != 6 {
		return mac, false
	}
	for i, p := range parts {
		if len(p) != 2 {
			return mac, false
		}
		v, err := strconv.ParseUint(p, 16, 8)
		if err != nil {
			return mac, false
		}
		mac[i] = byte(v)
	}
	return mac, true
}
