// Package dump copies the raw serial stream to a writer.
package dump

import (
	"context"
	"fmt"
	"io"
	"time"

	osp3 "github.com/luhtfiimanal/go-osp3"
)

// Reader is satisfied by *osp3.Conn.
type Reader interface {
	Read(p []byte, timeout time.Duration) (int, error)
}

// Run copies packets from r to w until ctx is done or a read fails.
// Bytes delivered by a failing read are still written.
func Run(ctx context.Context, r Reader, w io.Writer, timeout time.Duration) error {
	var packet [osp3.MaxPacketSize]byte
	for ctx.Err() == nil {
		n, err := r.Read(packet[:], timeout)
		if n > 0 {
			if _, werr := w.Write(packet[:n]); werr != nil {
				return werr
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
	}
	return nil
}
