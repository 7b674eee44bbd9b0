package parser

import "time"

// Combat-log timestamps look like "5/7/2025 21:13:45.123-4": month,
// day and hour may be one or two digits, the fractional second is
// optional, and a trailing numeric UTC-offset suffix may follow the
// seconds (or fraction) and must be ignored. Times are treated as
// naive wall-clock values in UTC, matching the metadata source.

// ParseTimestamp parses a timestamp byte slice using direct byte
// inspection. Returns the zero time and false on malformed input.
func ParseTimestamp(b []byte) (time.Time, bool) {
	// Month
	month, i := parseNum(b, 0, 2)
	if month < 1 || month > 12 || i >= len(b) || b[i] != '/' {
		return time.Time{}, false
	}

	// Day
	day, i := parseNum(b, i+1, 2)
	if day < 1 || day > 31 || i >= len(b) || b[i] != '/' {
		return time.Time{}, false
	}

	// Year
	year, i := parseNum(b, i+1, 4)
	if year < 1000 || i >= len(b) || b[i] != ' ' {
		return time.Time{}, false
	}

	// Skip run of spaces between date and time
	for i < len(b) && b[i] == ' ' {
		i++
	}

	hour, i := parseNum(b, i, 2)
	if hour < 0 || hour > 23 || i >= len(b) || b[i] != ':' {
		return time.Time{}, false
	}
	minute, i := parseNum(b, i+1, 2)
	if minute < 0 || minute > 59 || i >= len(b) || b[i] != ':' {
		return time.Time{}, false
	}
	second, i := parseNum(b, i+1, 2)
	if second < 0 || second > 60 {
		return time.Time{}, false
	}

	// Optional fractional seconds
	nsec := 0
	if i < len(b) && b[i] == '.' {
		start := i + 1
		j := start
		mult := 100000000
		for j < len(b) && b[j] >= '0' && b[j] <= '9' {
			if mult > 0 {
				nsec += int(b[j]-'0') * mult
				mult /= 10
			}
			j++
		}
		if j == start {
			return time.Time{}, false
		}
		i = j
	}

	// Optional trailing timezone suffix ("-4", "+5", "-4.5"): accepted
	// and discarded. Anything else trailing is malformed.
	if i < len(b) {
		if b[i] != '-' && b[i] != '+' {
			return time.Time{}, false
		}
		j := i + 1
		for j < len(b) && (b[j] >= '0' && b[j] <= '9' || b[j] == '.') {
			j++
		}
		if j == i+1 || j != len(b) {
			return time.Time{}, false
		}
	}

	return time.Date(year, time.Month(month), day, hour, minute, second, nsec, time.UTC), true
}

// parseNum reads up to max digits starting at i. Returns -1 and i when
// no digit is present.
func parseNum(b []byte, i, max int) (int, int) {
	n := 0
	start := i
	for i < len(b) && i-start < max && b[i] >= '0' && b[i] <= '9' {
		n = n*10 + int(b[i]-'0')
		i++
	}
	if i == start {
		return -1, i
	}
	return n, i
}
