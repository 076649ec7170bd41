// Package netiface lists local network interfaces, filters to usable IPv4
// addresses, and computes the broadcast address discovery binds to.
package netiface

import "net"

// Addr pairs a local interface with one of its usable IPv4 addresses and
// that address's computed broadcast address.
type Addr struct {
	Iface     net.Interface
	IP        net.IP
	Broadcast net.IP
}

// AnnounceFunc, when non-nil, is invoked for every private or link-local
// IPv4 address of an up, non-loopback interface -- including ones with no
// broadcast address -- in enumeration order, so
// a CLI wrapper can reproduce its per-interface log lines even though
// addresses without a broadcast are excluded from the returned slice.
type AnnounceFunc func(iface net.Interface, ip net.IP, hasBroadcast bool)

// Enumerate lists every local interface's IPv4 addresses that are private
// or link-local, computes each one's broadcast address, and returns the
// ones with a usable broadcast address. Interfaces that are down or
// loopback, and addresses that are not private or link-local IPv4, are
// skipped entirely and never passed to announce. Addresses on interfaces
// that lack IPv4 broadcast support are left out of the returned slice, but
// still passed to announce (if non-nil).
func Enumerate(announce AnnounceFunc) ([]Addr, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var out []Addr
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, a := range addrs {
			ipnet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			ip := ipnet.IP.To4()
			if ip == nil {
				continue
			}
			if !isPrivateOrLinkLocal(ip) {
				continue
			}

			hasBroadcast := iface.Flags&net.FlagBroadcast != 0
			var bcast net.IP
			if hasBroadcast {
				bcast = broadcastOf(ip, ipnet.Mask)
			}

			if announce != nil {
				announce(iface, ip, hasBroadcast)
			}

			if !hasBroadcast {
				continue
			}
			out = append(out, Addr{Iface: iface, IP: ip, Broadcast: bcast})
		}
	}

	return out, nil
}

func broadcastOf(ip net.IP, mask net.IPMask) net.IP {
	bcast := make(net.IP, len(ip))
	for i := range ip {
		bcast[i] = ip[i] | ^mask[i]
	}
	return bcast
}

func isPrivateOrLinkLocal(ip net.IP) bool {
	if ip.IsLinkLocalUnicast() {
		return true
	}
	return ip.IsPrivate()
}
