package utils

import "testing"

// TestParseStringAs_Primitives covers direct conversion for primitive targets.
func TestParseStringAs_Primitives(t *testing.T) {
	str, err := ParseStringAs[string]("plain text")
	if err != nil || str != "plain text" {
		t.Errorf("string: got %q, err %v", str, err)
	}

	num, err := ParseStringAs[int]("42")
	if err != nil || num != 42 {
		t.Errorf("int: got %d, err %v", num, err)
	}

	flag, err := ParseStringAs[bool]("true")
	if err != nil || !flag {
		t.Errorf("bool: got %v, err %v", flag, err)
	}

	ratio, err := ParseStringAs[float64]("0.5")
	if err != nil || ratio != 0.5 {
		t.Errorf("float: got %v, err %v", ratio, err)
	}
}

// TestParseStringAs_RepairsSloppyJSON verifies that vendor payloads with
// single quotes and unquoted keys are repaired before unmarshaling.
func TestParseStringAs_RepairsSloppyJSON(t *testing.T) {
	type citationDoc struct {
		Title string `json:"title"`
		Page  int    `json:"page"`
	}

	parsed, err := ParseStringAs[citationDoc](`{title: 'Annual Report', page: 12}`)
	if err != nil {
		t.Fatalf("expected sloppy JSON to be repaired, got error: %v", err)
	}
	if parsed.Title != "Annual Report" || parsed.Page != 12 {
		t.Errorf("unexpected parse result: %+v", parsed)
	}
}

// TestParseStringAs_InvalidPrimitive verifies primitive conversion failures
// are reported as errors.
func TestParseStringAs_InvalidPrimitive(t *testing.T) {
	if _, err := ParseStringAs[int]("not a number"); err == nil {
		t.Error("expected an error parsing a non-numeric string as int")
	}
}
