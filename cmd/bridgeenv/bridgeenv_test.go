package bridgeenv

import (
	"testing"
	"time"
)

func TestPortOverride(t *testing.T) {
	t.Setenv("BRIDGE_CONTROL_PORT_OVERRIDE", "9999")
	if got := PortOverride(7978); got != 9999 {
		t.Errorf("PortOverride = %d, want 9999", got)
	}
}

func TestPortOverrideFallback(t *testing.T) {
	if got := PortOverride(7978); got != 7978 {
		t.Errorf("PortOverride (unset) = %d, want 7978", got)
	}

	t.Setenv("BRIDGE_CONTROL_PORT_OVERRIDE", "not-a-number")
	if got := PortOverride(7978); got != 7978 {
		t.Errorf("PortOverride (invalid) = %d, want 7978", got)
	}
}

func TestScanTimeout(t *testing.T) {
	t.Setenv("BRIDGE_SCAN_TIMEOUT_SECONDS", "30")
	if got := ScanTimeout(10 * time.Second); got != 30*time.Second {
		t.Errorf("ScanTimeout = %v, want 30s", got)
	}
}

func TestScanTimeoutFallback(t *testing.T) {
	if got := ScanTimeout(10 * time.Second); got != 10*time.Second {
		t.Errorf("ScanTimeout (unset) = %v, want 10s", got)
	}
}

func TestCurrentBridgePrefersIP(t *testing.T) {
	t.Setenv("BRIDGE_CURRENT_IP_ADDRESS", "10.0.0.9")
	t.Setenv("BRIDGE_CURRENT_NAME", "bay-1")

	target, ok := CurrentBridge()
	if !ok || target != "10.0.0.9" {
		t.Errorf("CurrentBridge() = %q, %v, want 10.0.0.9, true", target, ok)
	}
}

func TestCurrentBridgeFallsBackToName(t *testing.T) {
	t.Setenv("BRIDGE_CURRENT_NAME", "bay-2")

	target, ok := CurrentBridge()
	if !ok || target != "bay-2" {
		t.Errorf("CurrentBridge() = %q, %v, want bay-2, true", target, ok)
	}
}

func TestCurrentBridgeNoneSet(t *testing.T) {
	if _, ok := CurrentBridge(); ok {
		t.Error("CurrentBridge() should report ok=false with nothing set")
	}
}
