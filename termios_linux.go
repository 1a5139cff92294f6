package osp3

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// DefaultBaudConfigurer sets the rate through the termios speed fields.
var DefaultBaudConfigurer BaudConfigurer = TermiosBaud{}

var termiosSpeeds = map[int]uint32{
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
	230400: unix.B230400,
	460800: unix.B460800,
	500000: unix.B500000,
	576000: unix.B576000,
	921600: unix.B921600,
}

// TermiosBaud configures raw mode and the rate with TCGETS/TCSETS.
type TermiosBaud struct{}

func (TermiosBaud) Configure(fd int, baud int) error {
	speed, ok := termiosSpeeds[baud]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnsupportedBaud, baud)
	}
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return &TransportError{Op: "get termios", Err: err}
	}
	makeRaw(t)
	t.Cflag &^= unix.CBAUD
	t.Cflag |= speed
	t.Ispeed = speed
	t.Ospeed = speed
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, t); err != nil {
		return &TransportError{Op: "set termios", Err: err}
	}
	return nil
}

func tcflush(fd int) error {
	return unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIFLUSH)
}
