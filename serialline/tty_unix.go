//go:build linux

package serialline

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// TTY is a raw-mode serial device opened at the fixed 57600 8N1 setting the
// spec requires for the bridge's serial console (no arbitrary baud table,
// unlike the general-purpose termios plumbing this is adapted from).
type TTY struct {
	fd int
}

// OpenTTY opens path, puts it into raw mode, and configures 57600 8N1 with
// no flow control, following Daedaluz-goserial's GetAttr/MakeRaw/SetAttr
// ioctl sequence (adapted to golang.org/x/sys/unix's Termios).
func OpenTTY(path string) (*TTY, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, fmt.Errorf("serialline: open %s: %w", path, err)
	}

	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("serialline: get termios: %w", err)
	}

	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB | unix.CSTOPB | unix.CRTSCTS
	t.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0

	t.Cflag &^= unix.CBAUD
	t.Cflag |= unix.B57600
	t.Ispeed = unix.B57600
	t.Ospeed = unix.B57600

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, t); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("serialline: set termios: %w", err)
	}

	return &TTY{fd: fd}, nil
}

// Read implements io.Reader so a TTY can feed a Reader directly.
func (t *TTY) Read(p []byte) (int, error) {
	return unix.Read(t.fd, p)
}

// Write implements io.Writer.
func (t *TTY) Write(p []byte) (int, error) {
	return unix.Write(t.fd, p)
}

// Close closes the underlying file descriptor.
func (t *TTY) Close() error {
	return unix.Close(t.fd)
}
