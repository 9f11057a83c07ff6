package transcript

import (
	"testing"
	"time"
)

func TestFormatClock(t *testing.T) {
	cases := map[int64]string{0: "0:00", 999: "0:00", 61_000: "1:01", 3_600_000: "60:00", -5: "0:00"}
	for ms, want := range cases {
		if got := FormatClock(ms); got != want {
			t.Errorf("FormatClock(%d) = %q, want %q", ms, got, want)
		}
	}
}

func TestFormatLong(t *testing.T) {
	if got := FormatLong(3_723_000); got != "01h 02m 03s" {
		t.Errorf("FormatLong = %q, want %q", got, "01h 02m 03s")
	}
}

func TestSectionTitle(t *testing.T) {
	now := time.Date(2024, time.March, 5, 15, 0, 0, 0, time.UTC)
	if got := SectionTitle(now.Add(-2*time.Hour).UnixMilli(), now); got != "TODAY" {
		t.Errorf("SectionTitle(today) = %q, want TODAY", got)
	}
	earlier := time.Date(2024, time.January, 2, 9, 0, 0, 0, time.UTC)
	if got := SectionTitle(earlier.UnixMilli(), now); got != "02 JAN" {
		t.Errorf("SectionTitle = %q, want %q", got, "02 JAN")
	}
}
