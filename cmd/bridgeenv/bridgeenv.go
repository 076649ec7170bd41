// Package bridgeenv reads the environment variables the original Nintendo
// CLI tools honored (cmd/bridgectl/src/knobs/env.rs and the
// BRIDGE_CURRENT_NAME/BRIDGE_CURRENT_IP_ADDRESS pair consumed by
// commands/get_parameters.rs and commands/boot.rs) and feeds them into the
// library's explicit-parameter calls. Kept out of core: apart from
// registry.DefaultPath, which reads BRIDGECTL_BRIDGE_ENV_PATH, APPDATA and
// XDG_CONFIG_HOME, the library does not read the environment.
package bridgeenv

import (
	"os"
	"strconv"
	"time"
)

// PortOverride returns BRIDGE_CONTROL_PORT_OVERRIDE parsed as a port number, or
// fallback if unset or not a valid positive integer.
func PortOverride(fallback int) int {
	v, ok := os.LookupEnv("BRIDGE_CONTROL_PORT_OVERRIDE")
	if !ok {
		return fallback
	}
	p, err := strconv.Atoi(v)
	if err != nil || p <= 0 {
		return fallback
	}
	return p
}

// ScanTimeout returns BRIDGE_SCAN_TIMEOUT_SECONDS as a Duration, or fallback
// if unset or not a valid positive integer.
func ScanTimeout(fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv("BRIDGE_SCAN_TIMEOUT_SECONDS")
	if !ok {
		return fallback
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}

// CurrentBridge returns the host's ambient default bridge target, the way
// commands/get_parameters.rs prefers BRIDGE_CURRENT_IP_ADDRESS over
// BRIDGE_CURRENT_NAME when neither is given explicitly on the command line.
func CurrentBridge() (target string, ok bool) {
	if ip := os.Getenv("BRIDGE_CURRENT_IP_ADDRESS"); ip != "" {
		return ip, true
	}
	if name := os.Getenv("BRIDGE_CURRENT_NAME"); name != "" {
		return name, true
	}
	return "", false
}
