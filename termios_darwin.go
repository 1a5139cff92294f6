package osp3

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DefaultBaudConfigurer sets the rate with the IOSSIOSPEED ioctl, since the
// termios speed constants stop at 230400 on Darwin.
var DefaultBaudConfigurer BaudConfigurer = IOSSBaud{}

const (
	iossiospeed = 0x80085402 // _IOW('T', 2, speed_t)
	fread       = 0x1
)

// IOSSBaud configures raw mode with TIOCGETA/TIOCSETA, then the rate with
// IOSSIOSPEED. The ioctl must come after TIOCSETA or it is overridden.
type IOSSBaud struct{}

func (IOSSBaud) Configure(fd int, baud int) error {
	if !ValidBaud(baud) {
		return fmt.Errorf("%w: %d", ErrUnsupportedBaud, baud)
	}
	t, err := unix.IoctlGetTermios(fd, unix.TIOCGETA)
	if err != nil {
		return &TransportError{Op: "get termios", Err: err}
	}
	makeRaw(t)
	if err := unix.IoctlSetTermios(fd, unix.TIOCSETA, t); err != nil {
		return &TransportError{Op: "set termios", Err: err}
	}
	speed := uint64(baud)
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), iossiospeed, uintptr(unsafe.Pointer(&speed))); errno != 0 {
		return &TransportError{Op: "set speed", Err: errno}
	}
	return nil
}

func tcflush(fd int) error {
	return unix.IoctlSetPointerInt(fd, unix.TIOCFLUSH, fread)
}
