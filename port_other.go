//go:build !linux && !darwin

package osp3

import (
	"errors"
	"os"
	"time"
)

var errUnsupportedPlatform = errors.New("osp3: serial ports are not supported on this platform")

// DefaultBaudConfigurer always fails on this platform.
var DefaultBaudConfigurer BaudConfigurer = BaudConfigurerFunc(func(int, int) error {
	return errUnsupportedPlatform
})

// Port is unavailable on this platform; use NewConn with another Transport.
type Port struct{}

func OpenPort(Config) (*Port, error) { return nil, errUnsupportedPlatform }

func NewFilePort(*os.File) (*Port, error) { return nil, errUnsupportedPlatform }

func (*Port) Name() string       { return "" }
func (*Port) MaxPacketSize() int { return MaxPacketSize }

func (*Port) ReadTimeout([]byte, time.Duration) (int, error) { return 0, errUnsupportedPlatform }

func (*Port) Flush() error { return errUnsupportedPlatform }
func (*Port) Close() error { return nil }
