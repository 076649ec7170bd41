// Package logging provides verbose protocol-level debug logging for the
// bridge control library: a dedicated debug.log-style file recording
// connection events, transmitted/received packet hex dumps, and general
// trace messages, filterable by subsystem.
package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// DebugLogger writes timestamped, subsystem-prefixed trace lines to a
// dedicated log file.
type DebugLogger struct {
	file    *os.File
	mu      sync.Mutex
	closed  bool
	filters map[string]bool // empty = log all subsystems
}

var (
	globalDebugLogger *DebugLogger
	globalDebugMu     sync.RWMutex
	installOnce       sync.Once
)

// knownSubsystems lists the bridge subsystems that may be passed as the
// protocol/subsystem argument, used only for documentation purposes by
// callers building a --log-debug style flag; SetFilter accepts any string.
var knownSubsystems = []string{
	"discovery", "finder", "paramspace", "serial", "registry", "cgi",
}

// KnownSubsystems returns the list of bridge subsystem names logging can be
// filtered to.
func KnownSubsystems() []string {
	out := make([]string, len(knownSubsystems))
	copy(out, knownSubsystems)
	return out
}

// NewDebugLogger creates a debug logger writing to path, truncating any
// existing file.
func NewDebugLogger(path string) (*DebugLogger, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("logging: open debug log: %w", err)
	}

	logger := &DebugLogger{file: file, filters: make(map[string]bool)}
	logger.Log("DEBUG", "debug logging started - %s", time.Now().Format(time.RFC3339))
	return logger, nil
}

// SetFilter restricts logging to the given comma-separated subsystem list;
// an empty filter logs everything. Matching is case-insensitive.
func (l *DebugLogger) SetFilter(filter string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.filters = make(map[string]bool)
	if filter == "" {
		return
	}
	for _, p := range strings.Split(filter, ",") {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			l.filters[p] = true
		}
	}
}

func (l *DebugLogger) shouldLog(subsystem string) bool {
	if len(l.filters) == 0 {
		return true
	}
	if l.filters[strings.ToLower(subsystem)] {
		return true
	}
	return strings.EqualFold(subsystem, "debug")
}

// InstallGlobal installs logger as the process-wide debug logger exactly
// once; subsequent calls are no-ops.
func InstallGlobal(logger *DebugLogger) {
	installOnce.Do(func() {
		globalDebugMu.Lock()
		defer globalDebugMu.Unlock()
		globalDebugLogger = logger
	})
}

// GetGlobalDebugLogger returns the installed logger, or nil if none has
// been installed.
func GetGlobalDebugLogger() *DebugLogger {
	globalDebugMu.RLock()
	defer globalDebugMu.RUnlock()
	return globalDebugLogger
}

// Log writes a formatted, subsystem-prefixed line.
func (l *DebugLogger) Log(subsystem, format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || !l.shouldLog(subsystem) {
		return
	}
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(l.file, "%s [%s] %s\n", timestamp, subsystem, msg)
}

// LogTX logs a transmitted packet's hex dump.
func (l *DebugLogger) LogTX(subsystem string, data []byte) { l.logPacket(subsystem, "TX", data) }

// LogRX logs a received packet's hex dump.
func (l *DebugLogger) LogRX(subsystem string, data []byte) { l.logPacket(subsystem, "RX", data) }

func (l *DebugLogger) logPacket(subsystem, direction string, data []byte) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || !l.shouldLog(subsystem) {
		return
	}
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	fmt.Fprintf(l.file, "%s [%s] %s (%d bytes):\n", timestamp, subsystem, direction, len(data))
	fmt.Fprintf(l.file, "%s\n", hexDump(data))
}

// LogConnect logs a connection attempt.
func (l *DebugLogger) LogConnect(subsystem, address string) {
	l.Log(subsystem, "CONNECT to %s", address)
}

// LogConnectSuccess logs a successful connection.
func (l *DebugLogger) LogConnectSuccess(subsystem, address, details string) {
	l.Log(subsystem, "CONNECTED to %s - %s", address, details)
}

// LogConnectError logs a failed connection attempt.
func (l *DebugLogger) LogConnectError(subsystem, address string, err error) {
	l.Log(subsystem, "CONNECT FAILED to %s: %v", address, err)
}

// LogDisconnect logs a disconnection.
func (l *DebugLogger) LogDisconnect(subsystem, address, reason string) {
	l.Log(subsystem, "DISCONNECT from %s: %s", address, reason)
}

// LogError logs an error with context.
func (l *DebugLogger) LogError(subsystem, context string, err error) {
	l.Log(subsystem, "ERROR in %s: %v", context, err)
}

// Close flushes a footer line and closes the underlying file.
func (l *DebugLogger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	fmt.Fprintf(l.file, "%s [DEBUG] debug logging ended\n", time.Now().Format("2006-01-02 15:04:05.000"))
	return l.file.Close()
}

func hexDump(data []byte) string {
	if len(data) == 0 {
		return "    (empty)"
	}
	var sb strings.Builder
	for offset := 0; offset < len(data); offset += 16 {
		sb.WriteString(fmt.Sprintf("    %04X: ", offset))
		for i := 0; i < 8; i++ {
			if offset+i < len(data) {
				sb.WriteString(fmt.Sprintf("%02X ", data[offset+i]))
			} else {
				sb.WriteString("   ")
			}
		}
		sb.WriteString(" ")
		for i := 8; i < 16; i++ {
			if offset+i < len(data) {
				sb.WriteString(fmt.Sprintf("%02X ", data[offset+i]))
			} else {
				sb.WriteString("   ")
			}
		}
		sb.WriteString(" ")
		for i := 0; i < 16; i++ {
			if offset+i < len(data) {
				b := data[offset+i]
				if b >= 32 && b < 127 {
					sb.WriteByte(b)
				} else {
					sb.WriteByte('.')
				}
			}
		}
		sb.WriteString("\n")
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// DebugLog logs through the installed global logger, if any.
func DebugLog(subsystem, format string, args ...interface{}) {
	if l := GetGlobalDebugLogger(); l != nil {
		l.Log(subsystem, format, args...)
	}
}

// DebugTX logs a transmitted packet through the installed global logger.
func DebugTX(subsystem string, data []byte) {
	if l := GetGlobalDebugLogger(); l != nil {
		l.LogTX(subsystem, data)
	}
}

// DebugRX logs a received packet through the installed global logger.
func DebugRX(subsystem string, data []byte) {
	if l := GetGlobalDebugLogger(); l != nil {
		l.LogRX(subsystem, data)
	}
}

// DebugConnect logs a connection attempt through the installed global logger.
func DebugConnect(subsystem, address string) {
	if l := GetGlobalDebugLogger(); l != nil {
		l.LogConnect(subsystem, address)
	}
}

// DebugConnectSuccess logs a successful connection through the installed
// global logger.
func DebugConnectSuccess(subsystem, address, details string) {
	if l := GetGlobalDebugLogger(); l != nil {
		l.LogConnectSuccess(subsystem, address, details)
	}
}

// DebugConnectError logs a connection failure through the installed global
// logger.
func DebugConnectError(subsystem, address string, err error) {
	if l := GetGlobalDebugLogger(); l != nil {
		l.LogConnectError(subsystem, address, err)
	}
}

// DebugDisconnect logs a disconnection through the installed global logger.
func DebugDisconnect(subsystem, address, reason string) {
	if l := GetGlobalDebugLogger(); l != nil {
		l.LogDisconnect(subsystem, address, reason)
	}
}

// DebugError logs an error through the installed global logger.
func DebugError(subsystem, context string, err error) {
	if l := GetGlobalDebugLogger(); l != nil {
		l.LogError(subsystem, context, err)
	}
}
