package util

import (
	"fmt"
	"time"
)

func FormatNumber(n int) string {
	switch {
	case n < 1000:
		return fmt.Sprintf("%d", n)
	case n < 1000000:
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	default:
		return fmt.Sprintf("%.1fM", float64(n)/1000000)
	}
}

// FormatBytes renders a byte count with binary units.
func FormatBytes(n int) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	value, suffix := float64(n)/unit, "KB"
	for _, s := range []string{"MB", "GB"} {
		if value < unit {
			break
		}
		value, suffix = value/unit, s
	}
	return fmt.Sprintf("%.1f %s", value, suffix)
}

// FormatPercent renders part/total as a percentage; zero totals give "0.0%".
func FormatPercent(part, total int) string {
	if total <= 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(part)*100/float64(total))
}

// FormatOffset renders a millisecond offset from the start of a recording,
// e.g. "+1.250s" or "+2m05.000s".
func FormatOffset(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	sign := "+"
	if d < 0 {
		sign, d = "-", -d
	}
	minutes := int(d / time.Minute)
	seconds := float64(d%time.Minute) / float64(time.Second)
	if minutes > 0 {
		return fmt.Sprintf("%s%dm%06.3fs", sign, minutes, seconds)
	}
	return fmt.Sprintf("%s%.3fs", sign, seconds)
}
