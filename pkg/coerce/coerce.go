// Package coerce converts loosely typed values from the upstream JSON
// payload into Go types. All functions degrade to nil on malformed
// input instead of returning an error: a single bad field must never
// abort an extraction.
package coerce

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// sentinel strings meaning "missing" in upstream payloads
func isMissing(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "nan", "none", "null", "nat":
		return true
	}
	return false
}

// String returns the value as trimmed string, nil for missing values
// and sentinel literals.
func String(v any) *string {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		if isMissing(val) {
			return nil
		}
		s := strings.TrimSpace(val)
		return &s
	case float64:
		if math.IsNaN(val) {
			return nil
		}
		// whole numbers shouldn't render as "47.000000"
		if val == math.Trunc(val) {
			s := strconv.FormatInt(int64(val), 10)
			return &s
		}
		s := strconv.FormatFloat(val, 'f', -1, 64)
		return &s
	case int64:
		s := strconv.FormatInt(val, 10)
		return &s
	case bool:
		s := strconv.FormatBool(val)
		return &s
	}
	return nil
}

func Int(v any) *int {
	switch val := v.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(val) {
			return nil
		}
		i := int(val)
		return &i
	case int64:
		i := int(val)
		return &i
	case int:
		return &val
	case string:
		if isMissing(val) {
			return nil
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			i := int(f)
			return &i
		}
	}
	return nil
}

func Float(v any) *float64 {
	switch val := v.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(val) {
			return nil
		}
		return &val
	case int64:
		f := float64(val)
		return &f
	case int:
		f := float64(val)
		return &f
	case string:
		if isMissing(val) {
			return nil
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return &f
		}
	}
	return nil
}

func Bool(v any) *bool {
	switch val := v.(type) {
	case nil:
		return nil
	case bool:
		return &val
	case string:
		if isMissing(val) {
			return nil
		}
		if b, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(val))); err == nil {
			return &b
		}
	}
	return nil
}

// DurationMS converts a duration-like value to integer milliseconds.
// Accepted shapes: numeric seconds, Go duration strings ("1m30.5s") and
// colon notations ("1:30.500", "0:01:30.500", "0 days 00:01:30.500000").
func DurationMS(v any) *int64 {
	switch val := v.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(val) {
			return nil
		}
		ms := int64(val * 1000)
		return &ms
	case int64:
		ms := val * 1000
		return &ms
	case int:
		ms := int64(val) * 1000
		return &ms
	case string:
		if isMissing(val) {
			return nil
		}
		return parseDurationString(strings.TrimSpace(val))
	}
	return nil
}

func parseDurationString(s string) *int64 {
	// "0 days 00:01:30.5" style
	if idx := strings.Index(s, "days"); idx >= 0 {
		days, err := strconv.Atoi(strings.TrimSpace(s[:idx]))
		if err != nil {
			return nil
		}
		rest := parseDurationString(strings.TrimSpace(s[idx+len("days"):]))
		if rest == nil {
			return nil
		}
		ms := int64(days)*24*3600*1000 + *rest
		return &ms
	}
	if strings.Contains(s, ":") {
		return parseColonNotation(s)
	}
	if d, err := time.ParseDuration(s); err == nil {
		ms := d.Milliseconds()
		return &ms
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		ms := int64(f * 1000)
		return &ms
	}
	return nil
}

// parseColonNotation handles "MM:SS.fff" and "HH:MM:SS.fff".
func parseColonNotation(s string) *int64 {
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return nil
	}
	var total float64
	for _, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil
		}
		total = total*60 + f
	}
	ms := int64(total * 1000)
	if neg {
		ms = -ms
	}
	return &ms
}

// TimeUTC parses an absolute timestamp, normalized to UTC.
func TimeUTC(v any) *time.Time {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		t := val.UTC()
		return &t
	case string:
		if isMissing(val) {
			return nil
		}
		for _, layout := range []string{
			time.RFC3339Nano,
			time.RFC3339,
			"2006-01-02 15:04:05.999999999Z07:00",
			"2006-01-02 15:04:05",
			"2006-01-02",
		} {
			if t, err := time.Parse(layout, strings.TrimSpace(val)); err == nil {
				t = t.UTC()
				return &t
			}
		}
	}
	return nil
}
