package utils

import (
	"io"
	"strings"
	"testing"
)

// TestSSEScanner_BasicEvents verifies data lines are extracted in order and
// the [DONE] sentinel terminates the scan.
func TestSSEScanner_BasicEvents(t *testing.T) {
	input := "data: {\"a\":1}\n\ndata: {\"b\":2}\n\ndata: [DONE]\n\n"
	scanner := NewSSEScanner(strings.NewReader(input))

	first, err := scanner.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != `{"a":1}` {
		t.Errorf("expected first payload %q, got %q", `{"a":1}`, first)
	}

	second, err := scanner.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second != `{"b":2}` {
		t.Errorf("expected second payload %q, got %q", `{"b":2}`, second)
	}

	if _, err = scanner.Next(); err != io.EOF {
		t.Errorf("expected io.EOF at [DONE], got %v", err)
	}
}

// TestSSEScanner_SkipsCommentsAndEmptyLines verifies keep-alive comments are
// transparent to the caller.
func TestSSEScanner_SkipsCommentsAndEmptyLines(t *testing.T) {
	input := ": keep-alive\n\n\ndata: {\"x\":true}\n\n"
	scanner := NewSSEScanner(strings.NewReader(input))

	payload, err := scanner.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload != `{"x":true}` {
		t.Errorf("expected payload %q, got %q", `{"x":true}`, payload)
	}
}

// TestSSEScanner_MultiLineData verifies consecutive data lines are joined into
// one payload.
func TestSSEScanner_MultiLineData(t *testing.T) {
	input := "data: line1\ndata: line2\n\n"
	scanner := NewSSEScanner(strings.NewReader(input))

	payload, err := scanner.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload != "line1\nline2" {
		t.Errorf("expected joined payload, got %q", payload)
	}
}

// TestSSEScanner_TrailingDataWithoutBlankLine verifies a final event without a
// terminating blank line is still delivered.
func TestSSEScanner_TrailingDataWithoutBlankLine(t *testing.T) {
	scanner := NewSSEScanner(strings.NewReader("data: tail"))

	payload, err := scanner.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload != "tail" {
		t.Errorf("expected payload %q, got %q", "tail", payload)
	}

	if _, err = scanner.Next(); err != io.EOF {
		t.Errorf("expected io.EOF after final event, got %v", err)
	}
}
