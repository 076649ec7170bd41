package paramspace

import (
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"bridgectl/wire"
)

// fakeBridge simulates a bridge's parameter-space TCP service: it answers
// exactly one dump request, then (if requested) one set request, using the
// same wire encoding the real client expects.
func fakeBridge(t *testing.T, dump wire.ParamDump, setStatus wire.SetStatus, handleSet bool) (addr string, done chan struct{}) {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	done = make(chan struct{})

	go func() {
		defer close(done)
		defer ln.Close()

		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		req := make([]byte, 8)
		if _, err := io.ReadFull(conn, req); err != nil {
			return
		}
		if err := wire.DecodeDumpRequest(req); err != nil {
			return
		}
		if _, err := conn.Write(wire.EncodeDumpResponse(dump)); err != nil {
			return
		}

		if !handleSet {
			return
		}

		setReq := make([]byte, 520)
		if _, err := io.ReadFull(conn, setReq); err != nil {
			return
		}
		if _, err := wire.DecodeSetRequest(setReq); err != nil {
			return
		}
		conn.Write(wire.EncodeSetResponse(setStatus))
	}()

	return ln.Addr().String(), done
}

func mustParseIP(t *testing.T, host string) net.IP {
	t.Helper()
	ip := net.ParseIP(host)
	if ip == nil {
		t.Fatalf("ParseIP(%q) failed", host)
	}
	return ip
}

func splitHostPort(t *testing.T, addr string) (net.IP, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("SplitHostPort(%q): %v", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parsing port %q: %v", portStr, err)
	}
	return mustParseIP(t, host), port
}

func TestDumpAgainstFakeBridge(t *testing.T) {
	var pd wire.ParamDump
	pd.Bytes[2] = 9
	addr, done := fakeBridge(t, pd, 0, false)
	ip, port := splitHostPort(t, addr)

	var gotAddr string
	var written, expected, read int
	hooks := &Hooks{
		ConnectionEstablished: func(a string) { gotAddr = a },
		BytesWritten:          func(n int) { written = n },
		ExpectedReadSize:      func(n int) { expected = n },
		BytesRead:             func(n int) { read = n },
	}

	got, conn, err := Dump(ip, port, 2*time.Second, hooks)
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	defer conn.Close()

	if got.Bytes != pd.Bytes {
		t.Error("dumped bytes do not match fake bridge response")
	}
	if gotAddr == "" {
		t.Error("ConnectionEstablished hook was not called")
	}
	if written != 8 {
		t.Errorf("BytesWritten = %d, want 8", written)
	}
	if expected != 520 {
		t.Errorf("ExpectedReadSize = %d, want 520", expected)
	}
	if read != 520 {
		t.Errorf("BytesRead = %d, want 520", read)
	}

	<-done
}

func TestSetAgainstFakeBridge(t *testing.T) {
	var pd wire.ParamDump
	pd.Bytes[2] = 9
	addr, done := fakeBridge(t, pd, 0, true)
	ip, port := splitHostPort(t, addr)

	var mutated []Location
	hooks := &Hooks{
		Mutation: func(loc Location, old, newV byte) { mutated = append(mutated, loc) },
	}

	result, err := Set(ip, port, 2*time.Second, nil, []Mutation{{Loc: ByName("nand_mode"), Value: 5}}, hooks)
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !result.Status.Success() {
		t.Errorf("Status = %v, want success", result.Status)
	}
	if result.OldValue[2] != 9 {
		t.Errorf("OldValue[2] = %d, want 9", result.OldValue[2])
	}
	if len(mutated) != 1 {
		t.Errorf("expected one Mutation hook call, got %d", len(mutated))
	}

	<-done
}

func TestDumpDialFailure(t *testing.T) {
	ip := mustParseIP(t, "127.0.0.1")
	if _, _, err := Dump(ip, 1, 200*time.Millisecond, nil); err == nil {
		t.Error("expected error dialing a closed/unused port")
	}
}
