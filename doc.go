// Package osp3 reads log entries from an ODROID Smart Power 3 (OSP3) over
// its USB serial port.
//
// The device must first be configured to perform serial logging. It then
// writes one fixed-format entry per logging interval (5, 10, 50, 100, 500
// or 1000 ms). Entries are longer than the largest packet the port
// delivers, so an entry arrives across several reads; Conn.ReadLine puts
// them back together and keeps whatever it read past the newline for the
// next call.
//
// Features:
//   - Raw termios setup at any supported baud rate (Linux and macOS)
//   - poll-based reads with a per-read timeout, no bufio
//   - Line reassembly independent of read fragmentation
//   - Both device checksums (CheckSum8 2s complement and XOR)
//   - Strict fixed-width entry parsing
//   - Self-pipe mechanism for killability
//
// Example usage:
//
//	conn, err := osp3.Open(osp3.Config{Device: "/dev/ttyUSB0"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conn.Close()
//
//	line := make([]byte, 1024)
//	for {
//	    n, err := conn.ReadLine(ctx, line, 2*time.Second)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    entry, err := osp3.Decode(line[:n])
//	    if err != nil {
//	        log.Println("dropping entry:", err)
//	        continue
//	    }
//	    fmt.Println(entry.Ms, entry.Input.MilliWatts)
//	}
//
// Any other byte source can be used through the Transport interface, and
// NewFilePort wraps pipes and other pollable files.
package osp3
