package parser

import (
	"testing"
	"time"
)

func TestParseTimestamp_Valid(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Time
	}{
		{"5/7/2025 21:13:45.123-4", time.Date(2025, 5, 7, 21, 13, 45, 123000000, time.UTC)},
		{"12/31/2025 23:59:59", time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC)},
		{"1/1/2025 0:00:00.000", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"5/7/2025 21:13:45", time.Date(2025, 5, 7, 21, 13, 45, 0, time.UTC)},
		{"5/7/2025 21:13:45+5", time.Date(2025, 5, 7, 21, 13, 45, 0, time.UTC)},
		{"5/7/2025 21:13:45.5-4.5", time.Date(2025, 5, 7, 21, 13, 45, 500000000, time.UTC)},
		{"10/07/2025 09:08:07.001", time.Date(2025, 10, 7, 9, 8, 7, 1000000, time.UTC)},
	}

	for _, tt := range tests {
		got, ok := ParseTimestamp([]byte(tt.input))
		if !ok {
			t.Errorf("ParseTimestamp(%q) failed, want %v", tt.input, tt.expected)
			continue
		}
		if !got.Equal(tt.expected) {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestParseTimestamp_Invalid(t *testing.T) {
	inputs := []string{
		"",
		"not a timestamp",
		"13/7/2025 21:13:45",
		"5/32/2025 21:13:45",
		"5/7/2025 24:13:45",
		"5/7/2025 21:61:45",
		"5/7/2025 21:13:45.",
		"5/7/2025 21:13:45-",
		"5/7/2025 21:13:45x",
		"5/7/25 21:13:45",
		"5/7/2025",
	}

	for _, input := range inputs {
		if _, ok := ParseTimestamp([]byte(input)); ok {
			t.Errorf("ParseTimestamp(%q) succeeded, want failure", input)
		}
	}
}

func TestParseTimestamp_FractionTruncation(t *testing.T) {
	// Extra fractional digits beyond nanosecond precision are dropped,
	// not rejected.
	got, ok := ParseTimestamp([]byte("5/7/2025 21:13:45.1234567890123"))
	if !ok {
		t.Fatal("ParseTimestamp failed on long fraction")
	}
	want := time.Date(2025, 5, 7, 21, 13, 45, 123456789, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
