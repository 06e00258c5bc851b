package core

import (
	"encoding/json"
	"testing"
)

func TestNewStroke(t *testing.T) {
	s := NewStroke("pen", map[string]any{"color": "red", StrokeIDKey: "ignored"})

	if len(s.ID) != 26 {
		t.Errorf("NewStroke() returned invalid ID length: got %d, want 26", len(s.ID))
	}
	if s.Brush != "pen" {
		t.Errorf("Brush mismatch: got %q", s.Brush)
	}
	if s.Attributes["color"] != "red" {
		t.Errorf("Attribute color mismatch: got %v", s.Attributes["color"])
	}
	if _, ok := s.Attributes[StrokeIDKey]; ok {
		t.Error("Reserved key leaked into attributes")
	}
}

func TestNewStroke_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewStroke("pen", nil).ID
		if seen[id] {
			t.Fatalf("Duplicate stroke ID %s", id)
		}
		seen[id] = true
	}
}

func TestRestoreStroke_Verbatim(t *testing.T) {
	record := map[string]any{
		StrokeIDKey:    "stroke-1",
		StrokeBrushKey: "marker",
		"x":            float64(10),
		"points":       []any{float64(1), float64(2)},
	}

	s, err := RestoreStroke(record)
	if err != nil {
		t.Fatalf("RestoreStroke() failed: %v", err)
	}
	if s.ID != "stroke-1" || s.Brush != "marker" {
		t.Errorf("Identity mismatch: got %q/%q", s.ID, s.Brush)
	}
	if s.Attributes["x"] != float64(10) {
		t.Errorf("Attribute x mismatch: got %v", s.Attributes["x"])
	}
}

func TestRestoreStroke_AssignsMissingID(t *testing.T) {
	s, err := RestoreStroke(map[string]any{"x": 1})
	if err != nil {
		t.Fatalf("RestoreStroke() failed: %v", err)
	}
	if s.ID == "" {
		t.Error("RestoreStroke() did not assign an ID")
	}
}

func TestRestoreStroke_InvalidID(t *testing.T) {
	if _, err := RestoreStroke(map[string]any{StrokeIDKey: 42}); err == nil {
		t.Error("RestoreStroke() should reject a non-string strokeId")
	}
}

func TestStrokeJSONRoundTrip(t *testing.T) {
	s := NewStroke("pen", map[string]any{"color": "blue"})

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded Stroke
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.ID != s.ID || decoded.Brush != "pen" || decoded.Attributes["color"] != "blue" {
		t.Errorf("Round trip mismatch: got %+v", decoded)
	}
}
