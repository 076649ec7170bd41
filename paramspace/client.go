// Package paramspace implements the TCP parameter-space client (spec
// component C5): dump and read-modify-write set operations against a
// bridge's 512-byte parameter space, with injectable logging hooks so
// callers can reproduce legacy human-readable traces.
//
// Grounded on eip/client.go's single-timeout-framed transactEncap exchange,
// generalized to the fixed 8-byte header plus 512-byte payload shape.
package paramspace

import (
	"fmt"
	"net"
	"time"

	"bridgectl/logging"
	"bridgectl/wire"
)

// DefaultPort is the TCP parameter-space service port.
const DefaultPort = 7978

// DefaultTimeout bounds a single dump or set exchange.
const DefaultTimeout = 5 * time.Second

// Hooks lets a caller observe each network phase synchronously, in the
// order the phases occur, so CLI wrappers can reproduce exact
// human-readable traces.
type Hooks struct {
	ConnectionEstablished func(addr string)
	BytesWritten          func(n int)
	ExpectedReadSize      func(n int)
	BytesRead             func(n int)
	Mutation              func(loc Location, old, new byte)
}

func (h *Hooks) connectionEstablished(addr string) {
	if h != nil && h.ConnectionEstablished != nil {
		h.ConnectionEstablished(addr)
	}
}
func (h *Hooks) bytesWritten(n int) {
	if h != nil && h.BytesWritten != nil {
		h.BytesWritten(n)
	}
}
func (h *Hooks) expectedReadSize(n int) {
	if h != nil && h.ExpectedReadSize != nil {
		h.ExpectedReadSize(n)
	}
}
func (h *Hooks) bytesRead(n int) {
	if h != nil && h.BytesRead != nil {
		h.BytesRead(n)
	}
}
func (h *Hooks) mutation(loc Location, old, new byte) {
	if h != nil && h.Mutation != nil {
		h.Mutation(loc, old, new)
	}
}

// Conn wraps a live TCP connection to a bridge's parameter-space service so
// a Set following a Dump can reuse it instead of reconnecting.
type Conn struct {
	nc   net.Conn
	addr string
}

// Close releases the underlying TCP connection.
func (c *Conn) Close() error {
	if c == nil || c.nc == nil {
		return nil
	}
	return c.nc.Close()
}

func dialParam(ip net.IP, port int, timeout time.Duration, hooks *Hooks) (*Conn, error) {
	if port == 0 {
		port = DefaultPort
	}
	addr := net.JoinHostPort(ip.String(), fmt.Sprintf("%d", port))
	logging.DebugConnect("paramspace", addr)

	d := net.Dialer{Timeout: timeout}
	nc, err := d.Dial("tcp4", addr)
	if err != nil {
		logging.DebugConnectError("paramspace", addr, err)
		return nil, fmt.Errorf("paramspace: dial %s: %w", addr, err)
	}
	logging.DebugConnectSuccess("paramspace", addr, "")
	hooks.connectionEstablished(addr)
	return &Conn{nc: nc, addr: addr}, nil
}

func readExact(nc net.Conn, n int, hooks *Hooks) ([]byte, error) {
	hooks.expectedReadSize(n)
	buf := make([]byte, n)
	total := 0
	for total < n {
		m, err := nc.Read(buf[total:])
		total += m
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return buf[:total], fmt.Errorf("paramspace: read timed out after %d/%d bytes", total, n)
			}
			return buf[:total], fmt.Errorf("paramspace: read: %w", err)
		}
	}
	hooks.bytesRead(total)
	return buf, nil
}

func writeAll(nc net.Conn, b []byte, hooks *Hooks) error {
	n, err := nc.Write(b)
	if err != nil {
		return fmt.Errorf("paramspace: write: %w", err)
	}
	hooks.bytesWritten(n)
	if n != len(b) {
		return fmt.Errorf("paramspace: short write: wrote %d of %d bytes", n, len(b))
	}
	return nil
}

// Dump opens a TCP connection to ip's parameter-space service, requests the
// full 512-byte dump, and returns the decoded payload along with the live
// connection so a subsequent Set can reuse it. timeout of zero uses
// DefaultTimeout.
func Dump(ip net.IP, port int, timeout time.Duration, hooks *Hooks) (wire.ParamDump, *Conn, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	conn, err := dialParam(ip, port, timeout, hooks)
	if err != nil {
		return wire.ParamDump{}, nil, err
	}

	if err := conn.nc.SetDeadline(time.Now().Add(timeout)); err != nil {
		conn.Close()
		return wire.ParamDump{}, nil, fmt.Errorf("paramspace: set deadline: %w", err)
	}

	req := wire.EncodeDumpRequest()
	if err := writeAll(conn.nc, req, hooks); err != nil {
		conn.Close()
		return wire.ParamDump{}, nil, err
	}

	const dumpResponseLen = 8 + 512
	resp, err := readExact(conn.nc, dumpResponseLen, hooks)
	if err != nil {
		conn.Close()
		return wire.ParamDump{}, nil, err
	}

	dump, err := wire.DecodeDumpResponse(resp)
	if err != nil {
		conn.Close()
		return wire.ParamDump{}, nil, err
	}

	logging.DebugLog("paramspace", "dump from %s complete", conn.addr)
	return dump, conn, nil
}

// Mutation is a single byte to overwrite in the parameter space, located by
// name or index.
type Mutation struct {
	Loc   Location
	Value byte
}

// SetResult reports the device status and the prior value of every mutated
// byte, so callers can produce "was X, now Y" diagnostics.
type SetResult struct {
	Status   wire.SetStatus
	OldValue map[int]byte
}

// Set performs a read-modify-write: dump the current parameter space
// (reusing conn if non-nil, otherwise dialing fresh), apply mutations in
// memory, send a write request, and read the 12-byte response. timeout of
// zero uses DefaultTimeout.
func Set(ip net.IP, port int, timeout time.Duration, conn *Conn, mutations []Mutation, hooks *Hooks) (SetResult, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var err error
	if conn == nil {
		var dump wire.ParamDump
		dump, conn, err = Dump(ip, port, timeout, hooks)
		if err != nil {
			return SetResult{}, err
		}
		return applyAndWrite(conn, dump, mutations, timeout, hooks)
	}

	if err := conn.nc.SetDeadline(time.Now().Add(timeout)); err != nil {
		return SetResult{}, fmt.Errorf("paramspace: set deadline: %w", err)
	}
	req := wire.EncodeDumpRequest()
	if err := writeAll(conn.nc, req, hooks); err != nil {
		return SetResult{}, err
	}
	const dumpResponseLen = 8 + 512
	resp, err := readExact(conn.nc, dumpResponseLen, hooks)
	if err != nil {
		return SetResult{}, err
	}
	dump, err := wire.DecodeDumpResponse(resp)
	if err != nil {
		return SetResult{}, err
	}
	return applyAndWrite(conn, dump, mutations, timeout, hooks)
}

func applyAndWrite(conn *Conn, dump wire.ParamDump, mutations []Mutation, timeout time.Duration, hooks *Hooks) (SetResult, error) {
	old := make(map[int]byte, len(mutations))
	for _, m := range mutations {
		idx, err := m.Loc.Resolve()
		if err != nil {
			return SetResult{}, err
		}
		old[idx] = dump.Bytes[idx]
		hooks.mutation(m.Loc, dump.Bytes[idx], m.Value)
		dump.Bytes[idx] = m.Value
	}

	if err := conn.nc.SetDeadline(time.Now().Add(timeout)); err != nil {
		return SetResult{}, fmt.Errorf("paramspace: set deadline: %w", err)
	}

	req := wire.EncodeSetRequest(dump)
	if err := writeAll(conn.nc, req, hooks); err != nil {
		return SetResult{}, err
	}

	const setResponseLen = 8 + 4
	resp, err := readExact(conn.nc, setResponseLen, hooks)
	if err != nil {
		return SetResult{}, err
	}

	status, err := wire.DecodeSetResponse(resp)
	if err != nil {
		return SetResult{}, err
	}

	logging.DebugLog("paramspace", "set on %s complete, status=%d", conn.addr, status)
	return SetResult{Status: status, OldValue: old}, nil
}
