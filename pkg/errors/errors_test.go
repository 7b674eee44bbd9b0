package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Format(t *testing.T) {
	err := New(CodeNoBoundaryMarkers, "no session boundary markers in search window").
		WithContext("record", "match.mp4")

	msg := err.Error()
	if !strings.HasPrefix(msg, "[E201]") {
		t.Errorf("Error() = %q, want E201 prefix", msg)
	}
	if !strings.Contains(msg, "record=match.mp4") {
		t.Errorf("Error() = %q, want record context", msg)
	}
}

func TestWrap(t *testing.T) {
	cause := fmt.Errorf("disk on fire")
	err := Wrap(cause, CodeLogUnreadable, "combat log unreadable")

	if !stderrors.Is(err, cause) {
		t.Error("wrapped error does not unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "disk on fire") {
		t.Errorf("Error() = %q, want cause text", err.Error())
	}

	if Wrap(nil, CodeLogUnreadable, "x") != nil {
		t.Error("Wrap(nil) != nil")
	}
}

func TestIs_MatchesByCode(t *testing.T) {
	a := NoBoundaryMarkers("a.mp4")
	b := NoBoundaryMarkers("b.mp4")
	if !stderrors.Is(a, b) {
		t.Error("two E201 errors do not match by code")
	}
	if stderrors.Is(a, NoConfidentMatch("a.mp4", 2)) {
		t.Error("E201 matches E202")
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		err      error
		expected Code
	}{
		{NoBoundaryMarkers("x"), CodeNoBoundaryMarkers},
		{NoConfidentMatch("x", 3), CodeNoConfidentMatch},
		{LogUnreadable("/log", fmt.Errorf("nope")), CodeLogUnreadable},
		{ContextCanceled("scan"), CodeContextCanceled},
		{fmt.Errorf("plain"), CodeUnknown},
		{fmt.Errorf("wrapped: %w", NoConfidentMatch("x", 1)), CodeNoConfidentMatch},
	}

	for _, tt := range tests {
		if got := GetCode(tt.err); got != tt.expected {
			t.Errorf("GetCode(%v) = %v, want %v", tt.err, got, tt.expected)
		}
	}
}

func TestIsUnresolved(t *testing.T) {
	tests := []struct {
		err      error
		expected bool
	}{
		{NoBoundaryMarkers("x"), true},
		{NoConfidentMatch("x", 0), true},
		{LogUnreadable("/log", fmt.Errorf("nope")), true},
		{ContextCanceled("scan"), false},
		{New(CodeSinkFailed, "write failed"), false},
		{fmt.Errorf("plain"), false},
	}

	for _, tt := range tests {
		if got := IsUnresolved(tt.err); got != tt.expected {
			t.Errorf("IsUnresolved(%v) = %v, want %v", tt.err, got, tt.expected)
		}
	}
}
