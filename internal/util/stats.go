package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"
)

// ──────────────────────────────────────────────────────────────────────────────
// Global stats singleton
// ──────────────────────────────────────────────────────────────────────────────

// Stats is the process-wide traffic counter.
var Stats = &stats{}

type stats struct {
	PacketsSent   atomic.Int64 // frames written to the control socket
	PacketsRecv   atomic.Int64 // frames decoded from the control socket
	BytesSent     atomic.Int64 // bytes written to the control socket
	BytesRecv     atomic.Int64 // bytes framed from the control socket
	DatagramsRecv atomic.Int64 // UDP datagrams received
	DecodeErrors  atomic.Int64 // frames or datagrams that failed to decode
}

func (s *stats) AddSent(n int) {
	s.PacketsSent.Add(1)
	s.BytesSent.Add(int64(n))
}

func (s *stats) AddRecv(n int) {
	s.PacketsRecv.Add(1)
	s.BytesRecv.Add(int64(n))
}

func (s *stats) AddDatagram()    { s.DatagramsRecv.Add(1) }
func (s *stats) AddDecodeError() { s.DecodeErrors.Add(1) }

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	PacketsSent, PacketsRecv int64
	BytesSent, BytesRecv     int64
	DatagramsRecv            int64
	DecodeErrors             int64
}

func (s *stats) Snapshot() Snapshot {
	return Snapshot{
		PacketsSent:   s.PacketsSent.Load(),
		PacketsRecv:   s.PacketsRecv.Load(),
		BytesSent:     s.BytesSent.Load(),
		BytesRecv:     s.BytesRecv.Load(),
		DatagramsRecv: s.DatagramsRecv.Load(),
		DecodeErrors:  s.DecodeErrors.Load(),
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Periodic reporter
// ──────────────────────────────────────────────────────────────────────────────

// StartStatsReporter launches a goroutine that logs traffic rates every
// interval while there is traffic. It stops when ctx is cancelled.
func StartStatsReporter(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		prev := Stats.Snapshot()
		for {
			select {
			case <-ticker.C:
				cur := Stats.Snapshot()
				secs := interval.Seconds()

				line := formatStats(
					float64(cur.BytesRecv-prev.BytesRecv)/secs,
					float64(cur.BytesSent-prev.BytesSent)/secs,
					cur.DatagramsRecv-prev.DatagramsRecv,
					cur.DecodeErrors-prev.DecodeErrors,
				)
				if cur != prev {
					pterm.DefaultLogger.Info(line)
				}
				prev = cur

			case <-ctx.Done():
				return
			}
		}
	}()
}

// byteUnits defines the units for formatting byte counts in a human-readable way.
var byteUnits = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}

// formatBytes formats a byte count into a fixed 8-char string,
// for example: "99.0   B", " 1.5 KiB", "98.9 GiB".
func formatBytes(b float64) string {
	unitIdx := 0

	// to prevent "100.0 KiB", which is 9 chars
	for b > 99 && unitIdx < 5 {
		b /= 1024
		unitIdx++
	}

	return fmt.Sprintf("%4.1f %3s", b, byteUnits[unitIdx])
}

func formatStats(inS, outS float64, datagrams, decodeErrs int64) string {
	return fmt.Sprintf("In: %s/s | Out: %s/s | UDP: %4d | Errors: %d",
		formatBytes(inS),
		formatBytes(outS),
		datagrams,
		decodeErrs,
	)
}
