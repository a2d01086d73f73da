// Package format renders byte counts and transfer rates for terminal output.
package format

import "fmt"

// Decimal unit thresholds. Transfer tooling reports network rates in
// decimal units, not binary ones.
const (
	kb = 1e3
	mb = 1e6
	gb = 1e9
)

// Size formats a byte count with two decimal places above 1 KB.
func Size(bytes int64) string {
	b := float64(bytes)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.2f GB", b/gb)
	case b >= mb:
		return fmt.Sprintf("%.2f MB", b/mb)
	case b >= kb:
		return fmt.Sprintf("%.2f KB", b/kb)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// Speed formats a transfer rate in bytes per second with two decimal places.
func Speed(bytesPerSec float64) string {
	switch {
	case bytesPerSec >= gb:
		return fmt.Sprintf("%.2f GB/s", bytesPerSec/gb)
	case bytesPerSec >= mb:
		return fmt.Sprintf("%.2f MB/s", bytesPerSec/mb)
	case bytesPerSec >= kb:
		return fmt.Sprintf("%.2f KB/s", bytesPerSec/kb)
	default:
		return fmt.Sprintf("%.2f B/s", bytesPerSec)
	}
}
