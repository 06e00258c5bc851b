package canvas

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"whiteboard/core"
	"whiteboard/events"
)

func collectUpdates(bus *events.Bus) *[]*events.CanvasUpdated {
	updates := &[]*events.CanvasUpdated{}
	events.On(bus, func(ctx context.Context, e *events.CanvasUpdated) error {
		*updates = append(*updates, e)
		return nil
	})
	return updates
}

func TestNew(t *testing.T) {
	c := New(events.NewBus(), "Sketch")

	if c.ID() == "" {
		t.Error("New canvas should have an ID")
	}
	if c.Name() != "Sketch" {
		t.Errorf("Name mismatch: got %q", c.Name())
	}
	if len(c.Strokes()) != 0 {
		t.Error("New canvas should have no strokes")
	}
	if New(nil, "Sketch").ID() == c.ID() {
		t.Error("Canvas IDs should be unique")
	}
}

func TestSet_EmitsUpdate(t *testing.T) {
	bus := events.NewBus()
	updates := collectUpdates(bus)
	c := New(bus, "Sketch")
	c.Upsert(&core.Stroke{ID: "s1"})

	if err := c.Set(context.Background(), "color", "red"); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	if len(*updates) != 1 {
		t.Fatalf("Emitted %d updates, want 1", len(*updates))
	}
	e := (*updates)[0]
	if e.CanvasID != c.ID() || e.Key != "color" || e.Canvas != c {
		t.Errorf("Update mismatch: %+v", e)
	}
	if v, ok := c.Attr("color"); !ok || v != "red" {
		t.Errorf("Attr(color) = %v, %v", v, ok)
	}
	if len(c.Strokes()) != 1 {
		t.Error("Set should not change strokes")
	}
}

func TestSet_Rejected(t *testing.T) {
	bus := events.NewBus()
	updates := collectUpdates(bus)
	c := New(bus, "Sketch")
	ctx := context.Background()

	for _, key := range []string{"id", "name", "strokes"} {
		if err := c.Set(ctx, key, "x"); !errors.Is(err, ErrReservedAttribute) {
			t.Errorf("Set(%q) error = %v, want ErrReservedAttribute", key, err)
		}
	}
	if err := c.Set(ctx, "callback", func() {}); !errors.Is(err, ErrUnserializableAttribute) {
		t.Errorf("Set(func) error = %v, want ErrUnserializableAttribute", err)
	}
	if len(*updates) != 0 {
		t.Errorf("Rejected sets emitted %d updates", len(*updates))
	}
	if c.Name() != "Sketch" {
		t.Error("Reserved key should not overwrite the name")
	}
}

func TestSet_CopiesValue(t *testing.T) {
	bus := events.NewBus()
	updates := collectUpdates(bus)
	c := New(bus, "Sketch")
	ctx := context.Background()

	style := map[string]any{"stroke": "red", "dash": []any{1, 2}}
	if err := c.Set(ctx, "style", style); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	style["stroke"] = "blue"
	style["dash"].([]any)[0] = 9

	v, _ := c.Attr("style")
	stored, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("Attr(style) = %T, want map", v)
	}
	if stored["stroke"] != "red" {
		t.Errorf("Mutating the argument changed the canvas: %v", stored)
	}
	if dash, _ := stored["dash"].([]any); len(dash) != 2 || dash[0] != float64(1) {
		t.Errorf("Nested value mismatch: %v", stored["dash"])
	}
	if len(*updates) != 1 {
		t.Errorf("Emitted %d updates, want 1", len(*updates))
	}

	if err := c.Set(ctx, "width", 3); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if v, _ := c.Attr("width"); v != float64(3) {
		t.Errorf("Attr(width) = %v (%T), want float64 3", v, v)
	}
}

func TestUpsert(t *testing.T) {
	c := New(nil, "Sketch")

	if !c.Upsert(&core.Stroke{ID: "s1", Attributes: map[string]any{"x": "1"}}) {
		t.Error("First upsert should insert")
	}
	c.Upsert(&core.Stroke{ID: "s2"})
	if c.Upsert(&core.Stroke{ID: "s1", Attributes: map[string]any{"x": "2"}}) {
		t.Error("Second upsert of s1 should replace")
	}

	strokes := c.Strokes()
	if len(strokes) != 2 || strokes[0].ID != "s1" || strokes[1].ID != "s2" {
		t.Fatalf("Strokes mismatch: %v", strokes)
	}
	if strokes[0].Attributes["x"] != "2" {
		t.Error("Last write should win")
	}
	if c.Upsert(nil) || c.Upsert(&core.Stroke{}) {
		t.Error("Strokes without an ID should be ignored")
	}
}

func TestUpsert_Idempotent(t *testing.T) {
	c := New(nil, "Sketch")
	s := &core.Stroke{ID: "s1"}
	c.Upsert(s)
	before, _ := json.Marshal(c)
	c.Upsert(s)
	after, _ := json.Marshal(c)

	if string(before) != string(after) {
		t.Errorf("Repeated upsert changed the canvas: %s != %s", before, after)
	}
}

func TestSnapshot(t *testing.T) {
	c := New(nil, "Sketch")
	c.Upsert(&core.Stroke{ID: "s2"})
	c.Upsert(&core.Stroke{ID: "s1"})
	c.Set(context.Background(), "color", "red")

	snap := c.Snapshot()
	if snap.ID != c.ID() || snap.Name != "Sketch" {
		t.Errorf("Snapshot identity mismatch: %+v", snap)
	}
	if len(snap.Strokes) != 2 || snap.Strokes[0] != "s2" || snap.Strokes[1] != "s1" {
		t.Errorf("Snapshot strokes mismatch: %v", snap.Strokes)
	}

	snap.Attributes["color"] = "blue"
	snap.Strokes[0] = "zz"
	if v, _ := c.Attr("color"); v != "red" {
		t.Error("Snapshot should not alias canvas attributes")
	}
	if c.Strokes()[0].ID != "s2" {
		t.Error("Snapshot should not alias canvas strokes")
	}
}

func TestRestore_RoundTrip(t *testing.T) {
	strokes := map[string]*core.Stroke{
		"s1": {ID: "s1", Brush: "pen"},
		"s2": {ID: "s2", Brush: "marker"},
	}
	lookup := func(id string) (*core.Stroke, bool) {
		s, ok := strokes[id]
		return s, ok
	}

	c := New(nil, "Sketch")
	c.Upsert(strokes["s2"])
	c.Upsert(strokes["s1"])
	c.Set(context.Background(), "color", "red")

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var record core.CanvasRecord
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	restored := Restore(nil, &record, lookup)
	again, err := json.Marshal(restored)
	if err != nil {
		t.Fatalf("Marshal restored failed: %v", err)
	}
	if string(again) != string(data) {
		t.Errorf("Round trip mismatch:\n got %s\nwant %s", again, data)
	}
}

func TestRestore_SkipsUnresolved(t *testing.T) {
	record := &core.CanvasRecord{ID: "c1", Name: "Sketch", Strokes: []string{"s1", "gone"}}
	lookup := func(id string) (*core.Stroke, bool) {
		if id == "s1" {
			return &core.Stroke{ID: "s1"}, true
		}
		return nil, false
	}

	c := Restore(nil, record, lookup)
	if c.ID() != "c1" {
		t.Errorf("ID mismatch: got %q", c.ID())
	}
	if strokes := c.Strokes(); len(strokes) != 1 || strokes[0].ID != "s1" {
		t.Errorf("Strokes mismatch: %v", strokes)
	}
	if len(Restore(nil, record, nil).Strokes()) != 0 {
		t.Error("Restore without lookup should drop every stroke")
	}
}
