package transcript

import (
	"fmt"
	"strings"
	"time"
)

// FormatClock renders a duration as m:ss, the form used for live timers.
func FormatClock(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// FormatLong renders a duration as "00h 00m 00s".
func FormatLong(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	return fmt.Sprintf("%02dh %02dm %02ds", total/3600, (total%3600)/60, total%60)
}

// SectionTitle returns the library day header for a creation timestamp:
// "TODAY" for the current local day, otherwise "02 JAN".
func SectionTitle(createdAtMs int64, now time.Time) string {
	t := time.UnixMilli(createdAtMs).In(now.Location())
	y1, m1, d1 := t.Date()
	y2, m2, d2 := now.Date()
	if y1 == y2 && m1 == m2 && d1 == d2 {
		return "TODAY"
	}
	return strings.ToUpper(t.Format("02 Jan"))
}
