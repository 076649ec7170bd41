package main

import "testing"

func TestFormatMAC(t *testing.T) {
	mac := [6]byte{0x00, 0x25, 0x5c, 0xba, 0x5a, 0x01}
	got := formatMAC(mac)
	want := "00:25:5c:ba:5a:01"
	if got != want {
		t.Errorf("formatMAC(%v) = %q, want %q", mac, got, want)
	}
}
