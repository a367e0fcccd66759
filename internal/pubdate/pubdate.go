// Package pubdate normalizes the free-form publication dates found in feeds.
package pubdate

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Layout is the canonical stored form of pub_date, always in UTC.
const Layout = "2006-01-02 15:04:05"

// zoneOffsets maps the abbreviations US feeds use to their UTC offsets in
// seconds. Go's parser accepts these names but only knows their offsets when
// the host's local zone happens to use them.
var zoneOffsets = map[string]int{
	"UT":  0,
	"UTC": 0,
	"GMT": 0,
	"Z":   0,
	"EST": -5 * 3600,
	"EDT": -4 * 3600,
	"CST": -6 * 3600,
	"CDT": -5 * 3600,
	"MST": -7 * 3600,
	"MDT": -6 * 3600,
	"PST": -8 * 3600,
	"PDT": -7 * 3600,
}

// Parse leniently parses a feed date string. Named timezone abbreviations in
// zoneOffsets are honoured even when the host zone does not define them.
func Parse(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparsable date %q: %w", raw, err)
	}

	name, offset := t.Zone()
	if want, ok := zoneOffsets[strings.ToUpper(name)]; ok && offset != want {
		t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(),
			time.FixedZone(name, want))
	}

	return t, nil
}

// Normalize converts raw into the canonical UTC form. When raw is empty or
// cannot be parsed it returns now in canonical form and false, so an item is
// never dropped over its date.
func Normalize(raw string, now time.Time) (string, bool) {
	t, err := Parse(raw)
	if err != nil {
		return Format(now), false
	}
	return Format(t), true
}

// Format renders t in the canonical stored form.
func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}

// IsCanonical reports whether value is already in the stored form.
func IsCanonical(value string) bool {
	_, err := time.Parse(Layout, value)
	return err == nil
}
