package features

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp normalises a stored timestamp. BSON datetimes, time.Time
// values and the string layouts above are accepted; anything else, including
// nil and the zero time, reports false. Results are in UTC.
func ParseTimestamp(v any) (time.Time, bool) {
	var t time.Time
	switch x := v.(type) {
	case nil:
		return time.Time{}, false
	case primitive.DateTime:
		t = x.Time()
	case time.Time:
		t = x
	case *time.Time:
		if x == nil {
			return time.Time{}, false
		}
		t = *x
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return time.Time{}, false
		}
		parsed := false
		for _, layout := range timestampLayouts {
			if p, err := time.Parse(layout, s); err == nil {
				t, parsed = p, true
				break
			}
		}
		if !parsed {
			return time.Time{}, false
		}
	default:
		return time.Time{}, false
	}
	if t.IsZero() {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// DelayMinutes returns actual minus scheduled in minutes. If either timestamp
// is missing or unparsable the delay is 0.
func DelayMinutes(scheduled, actual any) float64 {
	s, ok := ParseTimestamp(scheduled)
	if !ok {
		return 0
	}
	a, ok := ParseTimestamp(actual)
	if !ok {
		return 0
	}
	return a.Sub(s).Minutes()
}

// DayOfWeek numbers days from Monday = 0 to Sunday = 6.
func DayOfWeek(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
