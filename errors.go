package osp3

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for absent required input or a record
	// too short for the requested operation to index into.
	ErrInvalidArgument = errors.New("osp3: invalid argument")

	// ErrTimeout is returned when no data became ready within the read timeout.
	ErrTimeout = errors.New("osp3: read timeout expired")

	// ErrBufferOverflow is returned by ReadLine when the destination buffer
	// fills before a newline is found.
	ErrBufferOverflow = errors.New("osp3: line exceeds buffer")

	// ErrChecksumMismatch is matched by every *ChecksumError.
	ErrChecksumMismatch = errors.New("osp3: checksum mismatch")

	// ErrMalformedRecord is returned for records outside the expected length
	// window or whose fields cannot all be decoded.
	ErrMalformedRecord = errors.New("osp3: malformed record")

	// ErrIncompleteRecord is matched by a *ParseError that decoded some, but
	// not all, fields.
	ErrIncompleteRecord = errors.New("osp3: incomplete record")

	// ErrTransport is matched by every *TransportError.
	ErrTransport = errors.New("osp3: transport failure")

	// ErrClosed is returned by reads on a closed port.
	ErrClosed = errors.New("osp3: port closed")

	// ErrUnsupportedBaud is returned when opening a port at a rate the device
	// or the platform does not support.
	ErrUnsupportedBaud = errors.New("osp3: unsupported baud rate")
)

// TransportError wraps a lower-level I/O failure.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("osp3: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// ChecksumError reports a record whose claimed checksums do not both match
// the computed ones.
type ChecksumError struct {
	Computed ChecksumPair
	Claimed  ChecksumPair
	Result   ChecksumResult
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("osp3: checksum mismatch (cs8_2s=%02x, cs8_xor=%02x; record has %02x, %02x)",
		e.Computed.TwosComplement, e.Computed.XOR, e.Claimed.TwosComplement, e.Claimed.XOR)
}

func (e *ChecksumError) Is(target error) bool { return target == ErrChecksumMismatch }

// ParseError reports a record whose fields could not all be decoded.
// Parsed is the number of fields decoded before the failure.
type ParseError struct {
	Parsed int
	Field  string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("osp3: parse %s: %d of %d fields decoded", e.Field, e.Parsed, FieldCount)
	}
	return fmt.Sprintf("osp3: parse %s: %d of %d fields decoded: %v", e.Field, e.Parsed, FieldCount, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool {
	switch target {
	case ErrMalformedRecord:
		return true
	case ErrIncompleteRecord:
		return e.Parsed > 0
	}
	return false
}
