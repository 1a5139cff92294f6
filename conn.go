package osp3

import (
	"bytes"
	"context"
	"fmt"
	"time"
)

// Transport is a byte source with bounded-time reads, such as a *Port.
type Transport interface {
	// ReadTimeout waits up to timeout for data to become ready, then reads
	// at most len(p) bytes. A zero timeout blocks indefinitely. When nothing
	// becomes ready in time the error matches ErrTimeout.
	ReadTimeout(p []byte, timeout time.Duration) (int, error)
	// MaxPacketSize is the largest transfer a single read delivers.
	MaxPacketSize() int
	// Flush discards data received but not yet read.
	Flush() error
	Close() error
}

// carryBuffer holds bytes read past the end of a line, served before the
// transport on the next read. idx is only meaningful while rem > 0.
type carryBuffer struct {
	buf []byte
	idx int
	rem int
}

func (b *carryBuffer) advance(n int) {
	b.rem -= n
	if b.rem > 0 {
		b.idx += n
	} else {
		b.idx = 0
	}
}

// take copies buffered bytes into p.
func (b *carryBuffer) take(p []byte) int {
	n := copy(p, b.buf[b.idx:b.idx+b.rem])
	b.advance(n)
	return n
}

// takeLine copies buffered bytes into p up to and including the first
// newline. It reports whether a newline was copied.
func (b *carryBuffer) takeLine(p []byte) (int, bool) {
	n, complete := copyLine(p, b.buf[b.idx:b.idx+b.rem])
	b.advance(n)
	return n, complete
}

// store replaces the (empty) buffer contents with p.
func (b *carryBuffer) store(p []byte) {
	if b.rem != 0 {
		panic("osp3: carry-over buffer overwritten while holding data")
	}
	b.idx = 0
	b.rem = copy(b.buf, p)
}

func (b *carryBuffer) reset() {
	b.idx = 0
	b.rem = 0
}

// copyLine copies src into dst, stopping after the first newline.
func copyLine(dst, src []byte) (int, bool) {
	if i := bytes.IndexByte(src, '\n'); i >= 0 && i < len(dst) {
		return copy(dst, src[:i+1]), true
	}
	return copy(dst, src), false
}

// Conn reassembles log entries from a Transport, however the transport
// fragments them. It owns the transport: closing the Conn closes it.
//
// A Conn is not safe for concurrent use, except that Close may be called
// to abort a blocked read when the transport allows it (a *Port does).
type Conn struct {
	t      Transport
	rbuf   carryBuffer
	packet []byte
}

// NewConn returns a Conn reading from t.
func NewConn(t Transport) *Conn {
	size := t.MaxPacketSize()
	if size <= 0 {
		size = MaxPacketSize
	}
	return &Conn{
		t:      t,
		rbuf:   carryBuffer{buf: make([]byte, size)},
		packet: make([]byte, size),
	}
}

// Open opens the device described by cfg and returns a Conn reading from it.
func Open(cfg Config) (*Conn, error) {
	p, err := OpenPort(cfg)
	if err != nil {
		return nil, err
	}
	return NewConn(p), nil
}

// Buffered returns the number of bytes held over from a previous ReadLine.
func (c *Conn) Buffered() int { return c.rbuf.rem }

// Read fills p with buffered bytes first, then with at most one transport
// read for the remainder. The caller loops if it wants more; the timeout
// applies to that single read.
//
// On error n still counts the buffered bytes already copied into p.
func (c *Conn) Read(p []byte, timeout time.Duration) (int, error) {
	n := c.rbuf.take(p)
	if n == len(p) {
		return n, nil
	}
	m, err := c.t.ReadTimeout(p[n:], timeout)
	if m > 0 {
		n += m
	}
	return n, err
}

// ReadLine reads one line into p, including its terminating '\n', and
// returns its length. Bytes read past the newline are kept for the next
// Read or ReadLine.
//
// The transport is read one packet at a time with the same timeout for
// each read, so in the worst case ReadLine blocks for about
// len(p)/MaxPacketSize timeouts. The device writes whole entries at once,
// so after the first read the following ones return as soon as the next
// packet arrives and an 81-byte entry takes two reads.
//
// ctx is checked between transport reads; a read in progress is not
// interrupted. If p fills before a newline is found, ErrBufferOverflow is
// returned and the bytes read so far are left in p.
func (c *Conn) ReadLine(ctx context.Context, p []byte, timeout time.Duration) (int, error) {
	n, complete := c.rbuf.takeLine(p)
	for !complete {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		size := min(len(c.packet), len(p)-n)
		if size == 0 {
			return n, fmt.Errorf("%w: %d bytes without newline", ErrBufferOverflow, n)
		}
		m, err := c.t.ReadTimeout(c.packet[:size], timeout)
		if err != nil {
			return n, err
		}
		var w int
		w, complete = copyLine(p[n:], c.packet[:m])
		n += w
		if w < m {
			c.rbuf.store(c.packet[w:m])
		}
	}
	return n, nil
}

// Flush drops buffered bytes and anything received but not yet read.
func (c *Conn) Flush() error {
	c.rbuf.reset()
	return c.t.Flush()
}

// Close closes the underlying transport.
func (c *Conn) Close() error {
	return c.t.Close()
}
