package ssh

import (
	"io"
	"sync"

	"github.com/gdamore/tcell/v2"
	gossh "golang.org/x/crypto/ssh"
)

// bridgeSessionTty adapts one SSH channel to tcell.Tty, so a remote session
// can host its own tview-driven bridge TUI over SSH exactly as if it were a
// local terminal.
type bridgeSessionTty struct {
	channel  gossh.Channel
	term     string
	width    int
	height   int
	mu       sync.RWMutex
	resizeCb func()
	resizeMu sync.Mutex
	stopped  bool
}

// newBridgeSessionTty wraps channel, defaulting the terminal type when the
// client didn't negotiate one.
func newBridgeSessionTty(channel gossh.Channel, term string, initialWidth, initialHeight int) *bridgeSessionTty {
	if term == "" {
		term = "xterm-256color"
	}
	return &bridgeSessionTty{
		channel: channel,
		term:    term,
		width:   initialWidth,
		height:  initialHeight,
	}
}

func (t *bridgeSessionTty) Term() string {
	return t.term
}

// Start is a no-op: the SSH channel is already in raw mode by the time a
// session's tty is constructed.
func (t *bridgeSessionTty) Start() error {
	return nil
}

// Stop marks the tty so Read returns io.EOF on its next call. The channel
// itself is left open so the tcell screen can still send its terminal
// restore sequences before the session tears down.
func (t *bridgeSessionTty) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	return nil
}

func (t *bridgeSessionTty) Drain() error {
	return nil
}

// NotifyResize registers cb to run whenever the client sends a
// window-change request (see the window-change case in
// Server.handleSession).
func (t *bridgeSessionTty) NotifyResize(cb func()) {
	t.resizeMu.Lock()
	t.resizeCb = cb
	t.resizeMu.Unlock()
}

func (t *bridgeSessionTty) WindowSize() (tcell.WindowSize, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return tcell.WindowSize{Width: t.width, Height: t.height}, nil
}

// SetWindowSize updates the window size and fires the resize callback, if
// any is registered.
func (t *bridgeSessionTty) SetWindowSize(width, height int) {
	t.mu.Lock()
	t.width = width
	t.height = height
	t.mu.Unlock()

	t.resizeMu.Lock()
	cb := t.resizeCb
	t.resizeMu.Unlock()

	if cb != nil {
		cb()
	}
}

func (t *bridgeSessionTty) Read(b []byte) (int, error) {
	t.mu.RLock()
	stopped := t.stopped
	t.mu.RUnlock()
	if stopped {
		return 0, io.EOF
	}
	n, err := t.channel.Read(b)
	if err != nil {
		t.mu.RLock()
		stopped = t.stopped
		t.mu.RUnlock()
		if stopped {
			return 0, io.EOF
		}
	}
	return n, err
}

func (t *bridgeSessionTty) Write(b []byte) (int, error) {
	return t.channel.Write(b)
}

func (t *bridgeSessionTty) Close() error {
	t.Stop()
	return t.channel.Close()
}

var _ tcell.Tty = (*bridgeSessionTty)(nil)
var _ io.ReadWriteCloser = (*bridgeSessionTty)(nil)
