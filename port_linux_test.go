package osp3

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func openPTY(t *testing.T, baud int) (*os.File, *Conn) {
	t.Helper()
	master, slave, err := pty.Open()
	require.NoError(t, err)
	t.Cleanup(func() { master.Close(); slave.Close() })

	conn, err := Open(Config{Device: slave.Name(), BaudRate: baud})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return master, conn
}

func TestPort_ReadLine(t *testing.T) {
	master, conn := openPTY(t, 0)

	_, err := master.Write([]byte(entry1 + entry2))
	require.NoError(t, err)

	buf := make([]byte, 1024)
	for _, want := range []string{entry1, entry2} {
		n, err := conn.ReadLine(context.Background(), buf, time.Second)
		require.NoError(t, err)
		require.Equal(t, want, string(buf[:n]))

		_, err = Decode(buf[:n])
		require.NoError(t, err)
	}
}

func TestPort_Fragmented(t *testing.T) {
	master, conn := openPTY(t, 0)

	lines := make(chan string, 1)
	errs := make(chan error, 1)
	go func() {
		buf := make([]byte, 1024)
		n, err := conn.ReadLine(context.Background(), buf, time.Second)
		if err != nil {
			errs <- err
			return
		}
		lines <- string(buf[:n])
	}()

	for _, part := range []string{entry3[:7], entry3[7:50], entry3[50:]} {
		_, err := master.Write([]byte(part))
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case l := <-lines:
		require.Equal(t, entry3, l)
	case err := <-errs:
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for line")
	}
}

func TestPort_TerminalSettings(t *testing.T) {
	master, slave, err := pty.Open()
	require.NoError(t, err)
	t.Cleanup(func() { master.Close(); slave.Close() })

	var gotBaud int
	cfg := Config{
		Device:   slave.Name(),
		BaudRate: 9600,
		BaudConfigurer: BaudConfigurerFunc(func(fd int, baud int) error {
			gotBaud = baud
			return DefaultBaudConfigurer.Configure(fd, baud)
		}),
	}
	p, err := OpenPort(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	require.Equal(t, 9600, gotBaud)
	require.Equal(t, slave.Name(), p.Name())

	tio, err := unix.IoctlGetTermios(int(slave.Fd()), unix.TCGETS)
	require.NoError(t, err)
	require.Equal(t, uint32(unix.B9600), tio.Cflag&unix.CBAUD)
	require.Zero(t, tio.Lflag&(unix.ICANON|unix.ECHO|unix.ISIG))
	require.Zero(t, tio.Iflag&(unix.ICRNL|unix.IXON))
	require.Equal(t, uint32(unix.CS8), tio.Cflag&unix.CSIZE)
}

func TestPort_Timeout(t *testing.T) {
	_, conn := openPTY(t, 0)

	buf := make([]byte, 1024)
	start := time.Now()
	n, err := conn.ReadLine(context.Background(), buf, 50*time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)
	require.Equal(t, 0, n)
	require.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestPort_Killability(t *testing.T) {
	_, conn := openPTY(t, 0)

	done := make(chan error, 1)
	go func() {
		buf := make([]byte, 1024)
		_, err := conn.ReadLine(context.Background(), buf, 0)
		done <- err
	}()

	// Give the goroutine a chance to block
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, conn.Close())

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrClosed)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for ReadLine to return after Close")
	}

	// Should be a no-op due to closeOnce
	require.NoError(t, conn.Close())
}

func TestPort_ErrorPropagation(t *testing.T) {
	master, conn := openPTY(t, 0)

	errs := make(chan error, 1)
	go func() {
		buf := make([]byte, 1024)
		_, err := conn.ReadLine(context.Background(), buf, 0)
		errs <- err
	}()

	// Simulate device disconnect by closing master
	require.NoError(t, master.Close())

	select {
	case err := <-errs:
		require.ErrorIs(t, err, ErrTransport)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for error after device disconnect")
	}
}

func TestPort_Flush(t *testing.T) {
	master, conn := openPTY(t, 0)

	_, err := master.Write([]byte(entry1))
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, conn.Flush())

	buf := make([]byte, 1024)
	_, err = conn.Read(buf, 50*time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestOpenPort_Errors(t *testing.T) {
	_, err := OpenPort(Config{})
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = OpenPort(Config{Device: "/dev/ttyUSB0", BaudRate: 14400})
	require.ErrorIs(t, err, ErrUnsupportedBaud)

	_, err = OpenPort(Config{Device: filepath.Join(t.TempDir(), "missing")})
	require.ErrorIs(t, err, ErrTransport)
	require.ErrorIs(t, err, os.ErrNotExist)

	regular := filepath.Join(t.TempDir(), "log")
	require.NoError(t, os.WriteFile(regular, []byte(entry1), 0o644))
	_, err = OpenPort(Config{Device: regular})
	require.ErrorIs(t, err, unix.ENOTTY)
}

func TestNewFilePort_Pipe(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	p, err := NewFilePort(r)
	require.NoError(t, err)
	conn := NewConn(p)
	t.Cleanup(func() { conn.Close() })

	lf := entry1[:RecordBodySize] + "\n"
	_, err = w.Write([]byte(lf + entry2))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	buf := make([]byte, 1024)
	for _, want := range []string{lf, entry2} {
		n, err := conn.ReadLine(context.Background(), buf, time.Second)
		require.NoError(t, err)
		require.Equal(t, want, string(buf[:n]))
	}

	_, err = conn.ReadLine(context.Background(), buf, time.Second)
	require.ErrorIs(t, err, io.EOF)
	require.NoError(t, conn.Flush())

	_, err = NewFilePort(nil)
	require.ErrorIs(t, err, ErrInvalidArgument)
}
