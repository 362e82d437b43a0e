package notify

import (
	"fmt"
	"strings"
	"time"
)

// weekdays are the single-character Japanese weekday names, indexed by
// time.Weekday (Sunday first).
var weekdays = [...]string{"日", "月", "火", "水", "木", "金", "土"}

// dateTimeLayouts are tried in order for values carrying a time part.
var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ParseWhen parses a Notion date start. Date-only values are placed at
// midnight in loc; the returned flag reports whether a time part was
// present. Values with an offset keep their instant.
func ParseWhen(raw string, loc *time.Location) (time.Time, bool, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "T") {
		t, err := time.ParseInLocation(time.DateOnly, raw, loc)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("parsing date %q: %w", raw, err)
		}
		return t, false, nil
	}

	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t.In(loc), true, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("parsing date-time %q: unsupported format", raw)
}

// FormatWhen renders a Notion date start for humans, e.g.
// "2025/06/01 (日)" or "2025/06/01 (日) 14:00". With tokens set a Discord
// timestamp token follows, which clients render in the viewer's
// own time zone: <t:unix:D> for dates, <t:unix:F> for date-times.
func FormatWhen(raw string, loc *time.Location, tokens bool) (string, error) {
	t, hasTime, err := ParseWhen(raw, loc)
	if err != nil {
		return "", err
	}

	s := fmt.Sprintf("%s (%s)", t.Format("2006/01/02"), weekdays[t.Weekday()])
	style := "D"
	if hasTime {
		s += " " + t.Format("15:04")
		style = "F"
	}
	if tokens {
		s += fmt.Sprintf(" <t:%d:%s>", t.Unix(), style)
	}
	return s, nil
}
