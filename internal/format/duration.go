package format

import (
	"fmt"
	"strings"
	"time"
)

// Elapsed renders a duration for CLI summaries: "Xms" under a second,
// otherwise seconds with up to two decimals. Negative durations render as 0ms.
func Elapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return trimTrailingZeros(fmt.Sprintf("%.2f", d.Seconds())) + "s"
}

// trimTrailingZeros removes trailing zeros after the decimal point,
// e.g. "1.50" -> "1.5" and "2.00" -> "2".
func trimTrailingZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
