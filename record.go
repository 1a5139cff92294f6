package osp3

import (
	"fmt"
	"strconv"
)

// A log entry is 79 printable characters followed by "\r\n":
//
//	0000815169,15296,0036,00550,0,00000,0000,00000,0,00,00000,0000,00000,0,00,14,12\r\n
//
// ms, input mV/mA/mW/on-off, channel 0 mV/mA/mW/on-off/interrupts,
// channel 1 mV/mA/mW/on-off/interrupts, CheckSum8 2s complement, CheckSum8 XOR.
const (
	// RecordSize is the length of a log entry including its "\r\n" terminator.
	RecordSize = 81
	// RecordBodySize is the length of a log entry without its terminator.
	RecordBodySize = RecordSize - 2
	// ChecksumOffset is where the checksum fields start. Every byte before it
	// is covered by both checksums.
	ChecksumOffset = 74
	// FieldCount is the number of comma-separated fields in a log entry.
	FieldCount = 17
)

// Power is one measured rail.
type Power struct {
	MilliVolts uint32
	MilliAmps  uint32
	MilliWatts uint32
	OnOff      uint8
}

// Channel is an output channel: its rail plus its interrupt bits.
type Channel struct {
	Power
	Interrupts Interrupts
}

// LogEntry is a decoded log entry.
type LogEntry struct {
	Ms       uint64
	Input    Power
	Channel0 Channel
	Channel1 Channel
	// Checksum holds the values claimed by the record, not computed ones.
	Checksum ChecksumPair
}

type field struct {
	name  string
	off   int
	width int
	base  int
	set   func(e *LogEntry, v uint64)
}

var fields = [FieldCount]field{
	{"ms", 0, 10, 10, func(e *LogEntry, v uint64) { e.Ms = v }},
	{"mV_in", 11, 5, 10, func(e *LogEntry, v uint64) { e.Input.MilliVolts = uint32(v) }},
	{"mA_in", 17, 4, 10, func(e *LogEntry, v uint64) { e.Input.MilliAmps = uint32(v) }},
	{"mW_in", 22, 5, 10, func(e *LogEntry, v uint64) { e.Input.MilliWatts = uint32(v) }},
	{"onoff_in", 28, 1, 10, func(e *LogEntry, v uint64) { e.Input.OnOff = uint8(v) }},
	{"mV_0", 30, 5, 10, func(e *LogEntry, v uint64) { e.Channel0.MilliVolts = uint32(v) }},
	{"mA_0", 36, 4, 10, func(e *LogEntry, v uint64) { e.Channel0.MilliAmps = uint32(v) }},
	{"mW_0", 41, 5, 10, func(e *LogEntry, v uint64) { e.Channel0.MilliWatts = uint32(v) }},
	{"onoff_0", 47, 1, 10, func(e *LogEntry, v uint64) { e.Channel0.OnOff = uint8(v) }},
	{"interrupts_0", 49, 2, 16, func(e *LogEntry, v uint64) { e.Channel0.Interrupts = Interrupts(v) }},
	{"mV_1", 52, 5, 10, func(e *LogEntry, v uint64) { e.Channel1.MilliVolts = uint32(v) }},
	{"mA_1", 58, 4, 10, func(e *LogEntry, v uint64) { e.Channel1.MilliAmps = uint32(v) }},
	{"mW_1", 63, 5, 10, func(e *LogEntry, v uint64) { e.Channel1.MilliWatts = uint32(v) }},
	{"onoff_1", 69, 1, 10, func(e *LogEntry, v uint64) { e.Channel1.OnOff = uint8(v) }},
	{"interrupts_1", 71, 2, 16, func(e *LogEntry, v uint64) { e.Channel1.Interrupts = Interrupts(v) }},
	{"checksum8_2s", ChecksumOffset, 2, 16, func(e *LogEntry, v uint64) { e.Checksum.TwosComplement = uint8(v) }},
	{"checksum8_xor", ChecksumOffset + 3, 2, 16, func(e *LogEntry, v uint64) { e.Checksum.XOR = uint8(v) }},
}

// recordBody strips the optional terminator from record and checks that
// exactly RecordBodySize bytes remain. "\r\n", a bare "\n" (input that did
// not come from the serial port) and no terminator at all are accepted.
func recordBody(record []byte) ([]byte, error) {
	if len(record) < RecordBodySize {
		return nil, fmt.Errorf("%w: record is %d bytes, need at least %d", ErrInvalidArgument, len(record), RecordBodySize)
	}
	switch string(record[RecordBodySize:]) {
	case "", "\n", "\r\n":
		return record[:RecordBodySize], nil
	}
	if len(record) > RecordSize {
		return nil, fmt.Errorf("%w: record is %d bytes, want at most %d", ErrMalformedRecord, len(record), RecordSize)
	}
	return nil, fmt.Errorf("%w: bad terminator %q", ErrMalformedRecord, record[RecordBodySize:])
}

// Parse decodes a log entry. The field layout is checked exactly: every
// field must have its fixed width and be followed by a comma.
//
// A *ParseError is returned when a field fails to decode. It matches
// ErrIncompleteRecord when some fields were decoded before the failure.
func Parse(record []byte) (LogEntry, error) {
	var e LogEntry
	body, err := recordBody(record)
	if err != nil {
		return e, err
	}
	for i, f := range fields {
		end := f.off + f.width
		if end < len(body) && body[end] != ',' {
			return e, &ParseError{Parsed: i, Field: f.name, Err: fmt.Errorf("expected ',' at offset %d, got %q", end, body[end])}
		}
		v, err := parseDigits(body[f.off:end], f.base)
		if err != nil {
			return e, &ParseError{Parsed: i, Field: f.name, Err: err}
		}
		f.set(&e, v)
	}
	return e, nil
}

// parseDigits converts a fixed-width field, naming the offending byte on
// failure.
func parseDigits(b []byte, base int) (uint64, error) {
	for _, c := range b {
		switch {
		case c >= '0' && c <= '9':
		case base == 16 && (c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'):
		default:
			return 0, fmt.Errorf("invalid digit %q in %q", c, b)
		}
	}
	return strconv.ParseUint(string(b), base, 64)
}

// Decode parses record and verifies both of its checksums.
func Decode(record []byte) (LogEntry, error) {
	e, err := Parse(record)
	if err != nil {
		return e, err
	}
	if _, err := VerifyChecksum(record); err != nil {
		return e, err
	}
	return e, nil
}
