package netiface

import (
	"net"
	"testing"
)

func TestBroadcastOf(t *testing.T) {
	cases := []struct {
		ip   string
		mask net.IPMask
		want string
	}{
		{"192.168.1.42", net.CIDRMask(24, 32), "192.168.1.255"},
		{"10.0.5.3", net.CIDRMask(8, 32), "10.255.255.255"},
		{"172.16.0.10", net.CIDRMask(16, 32), "172.16.255.255"},
	}

	for _, c := range cases {
		ip := net.ParseIP(c.ip).To4()
		got := broadcastOf(ip, c.mask)
		if !got.Equal(net.ParseIP(c.want)) {
			t.Errorf("broadcastOf(%s, %v) = %s, want %s", c.ip, c.mask, got, c.want)
		}
	}
}

func TestIsPrivateOrLinkLocal(t *testing.T) {
	cases := []struct {
		ip   string
		want bool
	}{
		{"192.168.1.1", true},
		{"10.0.0.1", true},
		{"172.16.0.1", true},
		{"169.254.1.1", true},
		{"8.8.8.8", false},
		{"1.1.1.1", false},
	}

	for _, c := range cases {
		got := isPrivateOrLinkLocal(net.ParseIP(c.ip).To4())
		if got != c.want {
			t.Errorf("isPrivateOrLinkLocal(%s) = %v, want %v", c.ip, got, c.want)
		}
	}
}

func TestEnumerate_NoPanic(t *testing.T) {
	var seen int
	_, err := Enumerate(func(iface net.Interface, ip net.IP, hasBroadcast bool) {
		seen++
	})
	if err != nil {
		t.Fatalf("Enumerate returned error: %v", err)
	}
}
