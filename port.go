package osp3

// Config holds parameters for opening a device.
type Config struct {
	Device   string
	BaudRate int // 0 selects BaudDefault

	// BaudConfigurer overrides the platform's way of putting the terminal
	// into raw mode at BaudRate. Nil selects DefaultBaudConfigurer.
	BaudConfigurer BaudConfigurer
}

// BaudConfigurer puts the terminal open on fd into raw mode at baud.
// Each supported platform provides one as DefaultBaudConfigurer.
type BaudConfigurer interface {
	Configure(fd int, baud int) error
}

// BaudConfigurerFunc adapts a function to BaudConfigurer.
type BaudConfigurerFunc func(fd int, baud int) error

func (f BaudConfigurerFunc) Configure(fd int, baud int) error { return f(fd, baud) }
