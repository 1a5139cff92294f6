package poll

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	osp3 "github.com/luhtfiimanal/go-osp3"
	"github.com/luhtfiimanal/go-osp3/internal/metrics"
	"github.com/stretchr/testify/require"
)

const (
	entry1 = "0000815169,15296,0036,00550,0,00000,0000,00000,0,00,00000,0000,00000,0,00,14,12\r\n"
	entry2 = "0343732187,15321,0072,01103,0,00000,0000,00000,0,00,00000,0000,00000,0,00,1c,12\r\n"
	entry3 = "0343732197,15332,0084,01287,0,00000,0000,00000,0,00,00000,0000,00000,0,00,09,17\r\n"
)

// streamTransport serves a byte stream in fixed-size pieces, then fails
// with err.
type streamTransport struct {
	data  []byte
	piece int
	err   error
	reads int
}

func (s *streamTransport) ReadTimeout(p []byte, _ time.Duration) (int, error) {
	s.reads++
	if len(s.data) == 0 {
		return 0, s.err
	}
	n := copy(p, s.data[:min(len(s.data), s.piece)])
	s.data = s.data[n:]
	return n, nil
}

func (s *streamTransport) MaxPacketSize() int { return osp3.MaxPacketSize }
func (s *streamTransport) Flush() error       { return nil }
func (s *streamTransport) Close() error       { return nil }

func newConn(stream string) (*osp3.Conn, *streamTransport) {
	tr := &streamTransport{data: []byte(stream), piece: 23, err: osp3.ErrTimeout}
	return osp3.NewConn(tr), tr
}

type countObserver struct {
	results map[string]int
	errors  int
	bytes   int
}

func (c *countObserver) Record(r string) {
	if c.results == nil {
		c.results = map[string]int{}
	}
	c.results[r]++
}
func (c *countObserver) ReadError()      { c.errors++ }
func (c *countObserver) BytesRead(n int) { c.bytes += n }

func TestRun_FiltersEntries(t *testing.T) {
	lf := strings.TrimSuffix(entry2, "\r\n") + "\n"
	badChecksum := strings.Replace(entry3, ",09,17", ",09,18", 1)
	badParse := strings.Replace(entry1, "15296", "15x96", 1)
	stream := entry1 + "0000815169,15296\r\n" + entry1[:60] + entry1 + badChecksum + badParse + lf

	conn, _ := newConn(stream)
	var out, logs bytes.Buffer
	obs := &countObserver{}
	err := Run(context.Background(), conn, &out, Options{
		Timeout:  time.Second,
		Logger:   slog.New(slog.NewTextHandler(&logs, nil)),
		Observer: obs,
	})
	require.ErrorIs(t, err, osp3.ErrTimeout)

	require.Equal(t, Header+"\n"+entry1+lf, out.String())
	require.Equal(t, map[string]int{
		metrics.ResultAccepted: 2,
		metrics.ResultShort:    1,
		metrics.ResultLong:     1,
		metrics.ResultChecksum: 1,
		metrics.ResultParse:    1,
	}, obs.results)
	require.Equal(t, 1, obs.errors)
	require.Equal(t, len(stream), obs.bytes)

	require.Contains(t, logs.String(), "dropping shorter line than expected")
	require.Contains(t, logs.String(), "dropping longer line than expected")
	require.Contains(t, logs.String(), "log entry parsing failed")
	require.Contains(t, logs.String(), "log entry checksum failed")
	require.Contains(t, logs.String(), "cs8_2s=09 cs8_xor=17")
}

func TestRun_Count(t *testing.T) {
	conn, tr := newConn(entry1 + entry2 + entry3)
	var out bytes.Buffer
	err := Run(context.Background(), conn, &out, Options{Timeout: time.Second, Count: 2})
	require.NoError(t, err)
	require.Equal(t, Header+"\n"+entry1+entry2, out.String())
	require.NotEmpty(t, tr.data, "no reads past the last counted entry")
}

func TestRun_ChecksDisabled(t *testing.T) {
	badChecksum := strings.Replace(entry3, ",09,17", ",09,18", 1)
	badParse := strings.Replace(entry1, "15296", "15x96", 1)

	conn, _ := newConn(badChecksum + badParse)
	var out bytes.Buffer
	err := Run(context.Background(), conn, &out, Options{Timeout: time.Second, Count: 1, NoChecksum: true})
	require.NoError(t, err)
	require.Equal(t, Header+"\n"+badChecksum, out.String())

	// badParse still fails its checksum, so both checks must be off.
	conn, _ = newConn(badParse)
	out.Reset()
	err = Run(context.Background(), conn, &out, Options{Timeout: time.Second, Count: 1, NoParse: true, NoChecksum: true})
	require.NoError(t, err)
	require.Equal(t, Header+"\n"+badParse, out.String())
}

func TestRun_Cancelled(t *testing.T) {
	conn, tr := newConn(entry1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	require.NoError(t, Run(ctx, conn, &out, Options{}))
	require.Equal(t, Header+"\n", out.String())
	require.Equal(t, 0, tr.reads)
}

func TestRun_Overflow(t *testing.T) {
	conn, _ := newConn(strings.Repeat("0", LineMax+10))
	var out bytes.Buffer
	err := Run(context.Background(), conn, &out, Options{Timeout: time.Second})
	require.ErrorIs(t, err, osp3.ErrBufferOverflow)
}
