package osp3

import (
	"strings"
	"time"
)

const (
	// BaudMin is the lowest serial rate the device offers.
	BaudMin = 9600
	// BaudMax is the highest serial rate the device offers.
	BaudMax = 921600
	// BaudDefault is the device UI default.
	BaudDefault = 115200

	// IntervalMin is the shortest serial logging interval.
	IntervalMin = 5 * time.Millisecond
	// IntervalMax is the longest serial logging interval.
	IntervalMax = 1000 * time.Millisecond
	// IntervalDefault is the device UI default.
	IntervalDefault = 10 * time.Millisecond

	// MaxPacketSize is the largest transfer the device delivers in one read.
	// A log entry is longer, so several reads are needed per entry.
	MaxPacketSize = 64
)

// BaudRates lists the serial rates supported by the device, ascending.
// Not every platform can configure all of them.
var BaudRates = []int{9600, 19200, 38400, 57600, 115200, 230400, 460800, 500000, 576000, 921600}

// Intervals lists the logging intervals the device can be configured with.
// Short intervals are only usable at higher baud rates.
var Intervals = []time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	500 * time.Millisecond,
	1000 * time.Millisecond,
}

// ValidBaud reports whether baud is one of BaudRates.
func ValidBaud(baud int) bool {
	for _, b := range BaudRates {
		if b == baud {
			return true
		}
	}
	return false
}

// Interrupts is the per-channel interrupt bitmask reported in a log entry.
type Interrupts uint8

const (
	IntrOvervoltageProt         Interrupts = 1 << iota // overvoltage protection
	IntrConstantCurrentFunc                            // constant current function
	IntrShortCircuitProt                               // short-circuit protection
	IntrPowerOn                                        // power-on
	IntrWatchdog                                       // watchdog
	IntrOvertemperatureProt                            // junction temperature 165 C
	IntrOvertemperatureWarn                            // junction temperature 145 C
	IntrInductorPeakCurrentProt                        // inductor peak current protection
)

var interruptNames = [8]string{
	"overvoltage-protection",
	"constant-current",
	"short-circuit-protection",
	"power-on",
	"watchdog",
	"overtemperature-protection",
	"overtemperature-warning",
	"inductor-peak-current-protection",
}

// Has reports whether all bits in flag are set.
func (i Interrupts) Has(flag Interrupts) bool { return i&flag == flag }

func (i Interrupts) String() string {
	if i == 0 {
		return "none"
	}
	var names []string
	for bit, name := range interruptNames {
		if i&(1<<bit) != 0 {
			names = append(names, name)
		}
	}
	return strings.Join(names, "|")
}
