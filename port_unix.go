//go:build linux || darwin

package osp3

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Port is a Transport over a file descriptor: a serial device opened with
// OpenPort, or any pollable file wrapped with NewFilePort.
//
// Close may be called from another goroutine to unblock a pending read.
type Port struct {
	fd        int
	file      *os.File
	tty       bool
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
	pipeR     int // self-pipe read fd
	pipeW     int // self-pipe write fd
}

// OpenPort opens a serial device read-only and configures it for raw
// operation at cfg.BaudRate. The device must be a character device.
// Pending input is discarded once the port is configured.
func OpenPort(cfg Config) (*Port, error) {
	if cfg.Device == "" {
		return nil, fmt.Errorf("%w: empty device path", ErrInvalidArgument)
	}
	baud := cfg.BaudRate
	if baud == 0 {
		baud = BaudDefault
	}
	if !ValidBaud(baud) {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBaud, baud)
	}
	bc := cfg.BaudConfigurer
	if bc == nil {
		bc = DefaultBaudConfigurer
	}

	var st unix.Stat_t
	if err := unix.Stat(cfg.Device, &st); err != nil {
		return nil, &TransportError{Op: "stat " + cfg.Device, Err: err}
	}
	if st.Mode&unix.S_IFMT != unix.S_IFCHR {
		return nil, &TransportError{Op: "open " + cfg.Device, Err: unix.ENOTTY}
	}

	fd, err := unix.Open(cfg.Device, unix.O_RDONLY|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &TransportError{Op: "open " + cfg.Device, Err: err}
	}
	if err := bc.Configure(fd, baud); err != nil {
		unix.Close(fd)
		return nil, err
	}
	// Blocking again now that configuration is done; reads are gated by poll.
	if err := unix.SetNonblock(fd, false); err != nil {
		unix.Close(fd)
		return nil, &TransportError{Op: "set blocking", Err: err}
	}
	if err := tcflush(fd); err != nil {
		unix.Close(fd)
		return nil, &TransportError{Op: "flush", Err: err}
	}

	p, err := newPort(os.NewFile(uintptr(fd), cfg.Device), true)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	return p, nil
}

// NewFilePort wraps an open file, such as a pipe on stdin, so that log
// entries can be read from sources other than the device. The Port takes
// ownership of f. Flush only affects the Conn's own buffer for such ports.
func NewFilePort(f *os.File) (*Port, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: nil file", ErrInvalidArgument)
	}
	return newPort(f, false)
}

func newPort(f *os.File, tty bool) (*Port, error) {
	pipeFds := make([]int, 2)
	if err := unix.Pipe(pipeFds); err != nil {
		return nil, &TransportError{Op: "pipe", Err: err}
	}
	return &Port{
		fd:    int(f.Fd()),
		file:  f,
		tty:   tty,
		done:  make(chan struct{}),
		pipeR: pipeFds[0],
		pipeW: pipeFds[1],
	}, nil
}

// Name returns the path the port was opened with.
func (p *Port) Name() string { return p.file.Name() }

// MaxPacketSize implements Transport.
func (p *Port) MaxPacketSize() int { return MaxPacketSize }

// ReadTimeout implements Transport. It waits for the descriptor to become
// readable, then issues a single read. End of file is reported as a
// *TransportError wrapping io.EOF.
func (p *Port) ReadTimeout(b []byte, timeout time.Duration) (int, error) {
	select {
	case <-p.done:
		return 0, ErrClosed
	default:
	}
	pfd := []unix.PollFd{
		{Fd: int32(p.fd), Events: unix.POLLIN},
		{Fd: int32(p.pipeR), Events: unix.POLLIN},
	}
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		ms := -1
		if timeout > 0 {
			left := time.Until(deadline)
			if left <= 0 {
				return 0, ErrTimeout
			}
			ms = int((left + time.Millisecond - 1) / time.Millisecond)
		}
		n, err := unix.Poll(pfd, ms)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, &TransportError{Op: "poll", Err: err}
		}
		if n == 0 {
			return 0, ErrTimeout
		}
		break
	}

	if pfd[1].Revents != 0 {
		return 0, ErrClosed
	}
	select {
	case <-p.done:
		return 0, ErrClosed
	default:
	}
	if pfd[0].Revents&unix.POLLNVAL != 0 {
		return 0, &TransportError{Op: "poll", Err: unix.EBADF}
	}
	n, err := unix.Read(p.fd, b)
	if err != nil {
		return 0, &TransportError{Op: "read", Err: err}
	}
	if n == 0 && len(b) > 0 {
		return 0, &TransportError{Op: "read", Err: io.EOF}
	}
	return n, nil
}

// Flush discards input received by the terminal but not yet read.
func (p *Port) Flush() error {
	if !p.tty {
		return nil
	}
	if err := tcflush(p.fd); err != nil {
		return &TransportError{Op: "flush", Err: err}
	}
	return nil
}

// Close closes the port and unblocks any pending ReadTimeout.
// Safe to call multiple times; subsequent calls are no-ops.
func (p *Port) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)
		// Wake up poll using self-pipe
		unix.Write(p.pipeW, []byte{1})
		p.closeErr = p.file.Close()
		unix.Close(p.pipeR)
		unix.Close(p.pipeW)
	})
	return p.closeErr
}

// makeRaw is cfmakeraw(3): no echo, no line editing, no signal characters,
// no input or output translation, 8 data bits. Reads return as soon as a
// byte is available.
func makeRaw(t *unix.Termios) {
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB
	t.Cflag |= unix.CS8
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0
}
