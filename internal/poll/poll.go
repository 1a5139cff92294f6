// Package poll reads log entries from a device, drops the ones that fail
// validation and writes the rest as CSV.
package poll

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	osp3 "github.com/luhtfiimanal/go-osp3"
	"github.com/luhtfiimanal/go-osp3/internal/metrics"
)

// Header is the CSV header written before the first entry.
const Header = "ms," +
	"mV_in,mA_in,mW_in,onoff_in," +
	"mV_0,mA_0,mW_0,onoff_0,interrupts_0," +
	"mV_1,mA_1,mW_1,onoff_1,interrupts_1," +
	"CheckSum8_2s_Complement,CheckSum8_Xor"

// LineMax is much bigger than anything the device should produce.
const LineMax = 1024

// LineReader is satisfied by *osp3.Conn.
type LineReader interface {
	ReadLine(ctx context.Context, p []byte, timeout time.Duration) (int, error)
}

// Observer is told about every entry and read failure.
type Observer interface {
	Record(result string)
	ReadError()
	BytesRead(n int)
}

type nopObserver struct{}

func (nopObserver) Record(string) {}
func (nopObserver) ReadError()    {}
func (nopObserver) BytesRead(int) {}

type Options struct {
	Timeout    time.Duration
	Count      int // stop after Count accepted entries; 0 => until cancelled
	NoParse    bool
	NoChecksum bool
	Logger     *slog.Logger
	Observer   Observer
}

// Run writes Header and then every accepted entry, verbatim, to w.
//
// Entries outside the length window or failing parse or checksum checks
// are logged and skipped. Read failures end the loop and are returned,
// except when ctx is done, which ends it cleanly.
func Run(ctx context.Context, r LineReader, w io.Writer, opts Options) error {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	obs := opts.Observer
	if obs == nil {
		obs = nopObserver{}
	}

	if _, err := fmt.Fprintln(w, Header); err != nil {
		return err
	}

	buf := make([]byte, LineMax)
	accepted := 0
	for opts.Count == 0 || accepted < opts.Count {
		n, err := r.ReadLine(ctx, buf, opts.Timeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			obs.ReadError()
			return fmt.Errorf("read line: %w", err)
		}
		line := buf[:n]
		obs.BytesRead(n)

		result, computed, err := check(line, opts)
		obs.Record(result)
		switch result {
		case metrics.ResultAccepted:
			if _, err := w.Write(line); err != nil {
				return err
			}
			accepted++
		case metrics.ResultShort:
			log.Warn("dropping shorter line than expected", slog.Int("len", n), slog.String("line", string(line)))
		case metrics.ResultLong:
			log.Warn("dropping longer line than expected", slog.Int("len", n), slog.String("line", string(line)))
		case metrics.ResultParse:
			log.Warn("log entry parsing failed", slog.Any("error", err), slog.String("line", string(line)))
		case metrics.ResultChecksum:
			log.Warn("log entry checksum failed",
				slog.String("cs8_2s", fmt.Sprintf("%02x", computed.TwosComplement)),
				slog.String("cs8_xor", fmt.Sprintf("%02x", computed.XOR)),
				slog.Any("error", err),
				slog.String("line", string(line)))
		}
	}
	return nil
}

// check classifies a line read by ReadLine. A missing carriage return is
// tolerated, so the window is one byte wide.
func check(line []byte, opts Options) (string, osp3.ChecksumPair, error) {
	switch {
	case len(line) < osp3.RecordSize-1:
		return metrics.ResultShort, osp3.ChecksumPair{}, nil
	case len(line) > osp3.RecordSize:
		return metrics.ResultLong, osp3.ChecksumPair{}, nil
	}
	if !opts.NoParse {
		if _, err := osp3.Parse(line); err != nil {
			return metrics.ResultParse, osp3.ChecksumPair{}, err
		}
	}
	if !opts.NoChecksum {
		if computed, err := osp3.VerifyChecksum(line); err != nil {
			return metrics.ResultChecksum, computed, err
		}
	}
	return metrics.ResultAccepted, osp3.ChecksumPair{}, nil
}
