package resolve

import "testing"

func TestLocationName(t *testing.T) {
	tests := []struct {
		id       int
		expected string
	}{
		{1505, "Nagrand"},
		{980, "Tol'viron"},
		{572, "Ruins of Lordaeron"},
		{99999, ""},
		{0, ""},
	}

	for _, tt := range tests {
		if got := LocationName(tt.id); got != tt.expected {
			t.Errorf("LocationName(%d) = %q, want %q", tt.id, got, tt.expected)
		}
	}
}

func TestCategoryCompatible(t *testing.T) {
	tests := []struct {
		declared string
		marker   string
		expected bool
	}{
		{"3v3", "3v3", true},
		{"3v3", "2v2", false},
		{"Solo Shuffle", "Rated Solo Shuffle", true},
		{"Solo Shuffle", "Solo Shuffle", true},
		{"Solo Shuffle", "3v3", false},
		{"Skirmish", "2v2", true},
		{"Skirmish", "3v3", true},
		{"Skirmish", "Skirmish", true},
		{"2v2", "Skirmish", false},
	}

	for _, tt := range tests {
		got := CategoryCompatible(tt.declared, tt.marker)
		if got != tt.expected {
			t.Errorf("CategoryCompatible(%q, %q) = %v, want %v", tt.declared, tt.marker, got, tt.expected)
		}
	}
}

func TestLocationMatches(t *testing.T) {
	tests := []struct {
		declared string
		marker   string
		expected bool
	}{
		{"Nagrand", "Nagrand", true},
		{"nagrand", "Nagrand Arena", true},
		{"Nagrand Arena", "Nagrand", true},
		{"Nagrand", "Robodrome", false},
		{"undefined", "Nagrand", false},
		{"unknown", "Nagrand", false},
		{"", "Nagrand", false},
		{"Nagrand", "", false},
	}

	for _, tt := range tests {
		got := LocationMatches(tt.declared, tt.marker)
		if got != tt.expected {
			t.Errorf("LocationMatches(%q, %q) = %v, want %v", tt.declared, tt.marker, got, tt.expected)
		}
	}
}
