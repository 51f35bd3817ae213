package runs

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// InvalidDate is rendered for a date string no layout accepts.
const InvalidDate = "Invalid Date"

// Layouts with an explicit zone. Go's RFC3339 parse already accepts
// fractional seconds, so the nano variant is only listed for clarity.
var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
}

// Layouts without a zone are read as host-local time.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseDate reads a date string the way a standard date constructor does:
// zoned ISO timestamps keep their zone, zone-less date-times are local, and a
// bare YYYY-MM-DD is midnight UTC.
func ParseDate(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.UTC); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// FormatDate renders s as "DD.MM.YYYY HH:MM" in host-local time.
func FormatDate(s string) string {
	return FormatDateIn(s, time.Local)
}

// FormatDateIn renders s as "DD.MM.YYYY HH:MM" in loc. Unparseable input
// renders InvalidDate instead of failing.
func FormatDateIn(s string, loc *time.Location) string {
	t, ok := ParseDate(s, loc)
	if !ok {
		return InvalidDate
	}
	return t.In(loc).Format("02.01.2006 15:04")
}

// maxEpochMillis is the widest instant a date value may name, 10^8 days
// either side of the epoch.
const maxEpochMillis = 8.64e15

// FormatDateValue renders a stored date field in host-local time.
func FormatDateValue(v Verbatim) string {
	return FormatDateValueIn(v, time.Local)
}

// FormatDateValueIn renders a stored date field in loc. Strings are parsed as by
// FormatDateIn; numbers are milliseconds since the Unix epoch. Anything else
// renders InvalidDate.
func FormatDateValueIn(v Verbatim, loc *time.Location) string {
	if v.IsNumber() {
		ms, ok := v.Float()
		if !ok || math.Abs(ms) > maxEpochMillis {
			return InvalidDate
		}
		return time.UnixMilli(int64(ms)).In(loc).Format("02.01.2006 15:04")
	}
	if v.kind != kindString {
		return InvalidDate
	}
	return FormatDateIn(v.String(), loc)
}

// FormatNumber prints a float the shortest way that round-trips: 5 -> "5",
// 5.25 -> "5.25".
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FormatDistance renders a total distance for the footer: one decimal.
func FormatDistance(km float64) string {
	return fmt.Sprintf("%.1f km", km)
}

// ParseClock reads a duration written as "h:mm:ss", "mm:ss" or a plain
// number of seconds.
func ParseClock(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, false
	}
	var total float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || v < 0 {
			return 0, false
		}
		// Only the leading field may exceed 59.
		if i > 0 && v >= 60 {
			return 0, false
		}
		total = total*60 + v
	}
	return time.Duration(total * float64(time.Second)), true
}

// AverageSpeed returns km/h, rounded to two decimals, for distanceKm covered
// in the clock duration. ok is false when duration is unreadable or zero.
func AverageSpeed(distanceKm float64, duration string) (float64, bool) {
	d, ok := ParseClock(duration)
	if !ok || d <= 0 {
		return 0, false
	}
	kmh := distanceKm / d.Hours()
	return math.Round(kmh*100) / 100, true
}
