// Package discovery broadcasts an identity announcement on every eligible
// local interface and streams back decoded replies until a deadline,
// cancellation, or early cutoff.
package discovery

import (
	"context"
	"net"
	"sync"
	"time"

	"bridgectl/logging"
	"bridgectl/netiface"
	"bridgectl/wire"
)

// DefaultPort is the UDP identity/control port, overridable by callers the
// way the CLI honors BRIDGE_CONTROL_PORT_OVERRIDE.
const DefaultPort = 7974

// DefaultDeadline bounds a Stream call with no caller-supplied cutoff.
const DefaultDeadline = 10 * time.Second

// Result is either a decoded Identity or the error that prevented decoding
// one datagram; a decode error is logged and dropped by Collect but
// surfaced individually by Stream so callers can choose their own policy.
type Result struct {
	Identity wire.Identity
	Err      error
}

// Stream broadcasts one identity announcement (with the requested detail
// bit) on every eligible local interface and returns a channel of results.
// The stream terminates -- closing the channel -- no later than deadline
// (DefaultDeadline if unset, i.e. negative) or when ctx is cancelled,
// whichever is sooner. A deadline of exactly zero is an early-exit scan:
// no announcement is sent and an already-closed, empty channel is
// returned. Cancelling ctx (or letting deadline elapse) causes every
// per-interface goroutine to notice at its next read and unwind; the
// caller does not need to drain the channel to completion.
func Stream(ctx context.Context, detail bool, port int, deadline time.Duration) (<-chan Result, error) {
	if port == 0 {
		port = DefaultPort
	}
	if deadline == 0 {
		out := make(chan Result)
		close(out)
		return out, nil
	}
	if deadline < 0 {
		deadline = DefaultDeadline
	}

	addrs, err := netiface.Enumerate(nil)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, deadline)

	conns := make([]*net.UDPConn, 0, len(addrs))
	localIPs := make(map[string]bool, len(addrs))
	req := wire.EncodeAnnouncement(detail)

	for _, a := range addrs {
		laddr := &net.UDPAddr{IP: a.IP, Port: port}
		conn, err := net.ListenUDP("udp4", laddr)
		if err != nil {
			for _, c := range conns {
				c.Close()
			}
			cancel()
			return nil, err
		}
		localIPs[a.IP.String()] = true

		raddr := &net.UDPAddr{IP: a.Broadcast, Port: port}
		if _, err := conn.WriteToUDP(req, raddr); err != nil {
			conn.Close()
			for _, c := range conns {
				c.Close()
			}
			cancel()
			return nil, err
		}
		logging.DebugLog("discovery", "sent announcement via %s to %s", a.IP, raddr)
		conns = append(conns, conn)
	}

	out := make(chan Result, 32)
	var wg sync.WaitGroup
	wg.Add(len(conns))

	for _, conn := range conns {
		go func(c *net.UDPConn) {
			defer wg.Done()
			defer c.Close()
			recvLoop(ctx, c, localIPs, out)
		}(conn)
	}

	go func() {
		wg.Wait()
		cancel()
		close(out)
	}()

	return out, nil
}

func recvLoop(ctx context.Context, conn *net.UDPConn, localIPs map[string]bool, out chan<- Result) {
	buf := make([]byte, 1500)
	for {
		if ctx.Err() != nil {
			return
		}

		deadline, ok := ctx.Deadline()
		if ok {
			conn.SetReadDeadline(deadline)
		}

		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			return
		}

		if localIPs[from.IP.String()] {
			continue
		}
		if from.IP.To4() == nil {
			continue
		}

		id, err := wire.DecodeReply(buf[:n], from.IP)
		if err != nil {
			logging.DebugLog("discovery", "decode reply from %s: %v", from, err)
			select {
			case out <- Result{Err: err}:
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case out <- Result{Identity: id}:
		case <-ctx.Done():
			return
		}
	}
}

// Collect runs Stream to completion and returns every identity found,
// de-duplicated by value equality, discarding decode errors after logging
// them.
func Collect(ctx context.Context, detail bool, port int, deadline time.Duration) ([]wire.Identity, error) {
	results, err := Stream(ctx, detail, port, deadline)
	if err != nil {
		return nil, err
	}

	var out []wire.Identity
	for r := range results {
		if r.Err != nil {
			continue
		}
		dup := false
		for _, existing := range out {
			if existing.Equal(r.Identity) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, r.Identity)
		}
	}
	return out, nil
}
