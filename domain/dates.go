package domain

import "time"

// ISODate is the wire and key format for calendar dates.
const ISODate = "2006-01-02"

// ParseISODate parses a YYYY-MM-DD string. The zero time and false are
// returned for empty or malformed input.
func ParseISODate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(ISODate, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ISODateStr formats t as YYYY-MM-DD.
func ISODateStr(t time.Time) string {
	return t.Format(ISODate)
}

// DaysInRange returns every ISO date from start through end inclusive.
// Start and end must already be ISO dates; an empty end yields just start.
func DaysInRange(startISO, endISO string) []string {
	start, ok := ParseISODate(startISO)
	if !ok {
		return nil
	}
	end := start
	if endISO != "" {
		if e, ok := ParseISODate(endISO); ok {
			end = e
		}
	}
	if end.Before(start) {
		return nil
	}
	days := []string{}
	for cursor := start; !cursor.After(end); cursor = cursor.AddDate(0, 0, 1) {
		days = append(days, ISODateStr(cursor))
	}
	return days
}
