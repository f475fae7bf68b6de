package utils

import (
	"strings"
	"testing"
)

func TestTruncateString(t *testing.T) {
	short := TruncateString("abc", 10)
	if short != "abc" {
		t.Errorf("short strings must pass through unchanged, got %q", short)
	}

	long := TruncateString(strings.Repeat("x", 600), 100)
	if !strings.HasPrefix(long, strings.Repeat("x", 100)) {
		t.Error("expected truncated prefix to be preserved")
	}
	if !strings.Contains(long, "total: 600 chars") {
		t.Errorf("expected truncation suffix with original length, got %q", long)
	}
}

func TestJSONToString(t *testing.T) {
	compact := JSONToString(map[string]int{"a": 1})
	if compact != `{"a":1}` {
		t.Errorf("expected compact JSON, got %q", compact)
	}

	indented := JSONToString(map[string]int{"a": 1}, true)
	if !strings.Contains(indented, "\n") {
		t.Errorf("expected indented JSON, got %q", indented)
	}

	// Unmarshalable values must produce a JSON error string, not a panic.
	errOutput := JSONToString(make(chan int))
	if !strings.Contains(errOutput, "error") {
		t.Errorf("expected error payload for unmarshalable value, got %q", errOutput)
	}
}

func TestPtr(t *testing.T) {
	value := Ptr(7)
	if *value != 7 {
		t.Errorf("expected pointer to 7, got %d", *value)
	}
}
