package core

import "testing"

func TestNewRunID_Unique(t *testing.T) {
	seen := make(map[RunID]bool)
	for i := 0; i < 100; i++ {
		id := NewRunID()
		if id.String() == "" {
			t.Fatal("empty run ID generated")
		}
		if seen[id] {
			t.Fatalf("duplicate run ID %s", id)
		}
		seen[id] = true
	}
}

func TestParseRunID(t *testing.T) {
	id, err := ParseRunID("run-abc")
	if err != nil {
		t.Fatalf("ParseRunID: %v", err)
	}
	if id.String() != "run-abc" {
		t.Errorf("got %q", id)
	}
	if _, err := ParseRunID("   "); err == nil {
		t.Error("blank run ID must be rejected")
	}
}

func TestErrorTaxonomyHelpers(t *testing.T) {
	if !IsDataError(NewDataError("x")) {
		t.Error("NewDataError must satisfy IsDataError")
	}
	if !IsConfigError(NewConfigError("field", "reason")) {
		t.Error("NewConfigError must satisfy IsConfigError")
	}
	if !IsNumericError(NewNumericError("discrete")) {
		t.Error("NewNumericError must satisfy IsNumericError")
	}
	if IsDataError(NewConfigError("field", "reason")) {
		t.Error("config errors must not read as data errors")
	}
}
