package dbclient

import (
	"fmt"

	"dbconsole/internal/domain"
)

// FormatBytes renders a byte count with base-1024 units and one decimal place.
// Sub-kilobyte values keep their exact integer form; zero is "0 B".
func FormatBytes(n int64) string {
	if n == 0 {
		return "0 B"
	}
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	v := float64(n)
	for _, unit := range []string{"kB", "MB", "GB", "TB"} {
		v /= 1024
		if v < 1024 || unit == "TB" {
			return fmt.Sprintf("%.1f %s", v, unit)
		}
	}
	return fmt.Sprintf("%d B", n) // unreachable
}

// metadataSentinel is the best-effort fallback when every metadata source for
// a table has failed.
func metadataSentinel(table string) domain.TableMetadata {
	return domain.TableMetadata{Name: table, RowCount: 0, SizeBytes: 0, Size: "Unknown"}
}
