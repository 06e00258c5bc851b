package app

import (
	"context"
	"testing"

	"whiteboard/brush"
	"whiteboard/core"
	"whiteboard/events"
	"whiteboard/stores/memory"
)

func newTestApp(t *testing.T) (*App, *[]*events.StrokeCommitted) {
	t.Helper()
	a, err := New(context.Background(), Options{Store: memory.NewStore(), CanvasName: "Untitled"})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	commits := &[]*events.StrokeCommitted{}
	events.On(a.Bus, func(ctx context.Context, e *events.StrokeCommitted) error {
		*commits = append(*commits, e)
		return nil
	})
	return a, commits
}

func TestNew_RequiresStore(t *testing.T) {
	if _, err := New(context.Background(), Options{}); err == nil {
		t.Error("New() should require a store")
	}
}

func TestNew_DefaultPalette(t *testing.T) {
	a, _ := newTestApp(t)

	names := a.BrushNames()
	if len(names) != 3 {
		t.Errorf("BrushNames() = %v, want the default palette", names)
	}
	c, ok := a.ActiveCanvas()
	if !ok || c.Name() != "Untitled" {
		t.Errorf("Active canvas mismatch: %v, %v", c, ok)
	}
}

func TestPaint_WithoutSustain(t *testing.T) {
	a, commits := newTestApp(t)
	ctx := context.Background()

	if !a.Select(ctx, "pen", &brush.Pointer{}) {
		t.Fatal("Select(pen) failed")
	}
	if state := a.Input(ctx, &brush.Pointer{}); state != brush.Idle {
		t.Errorf("State after paint = %v, want idle", state)
	}
	if _, ok := a.ActiveBrush(); ok {
		t.Error("Active brush should be cleared after the stroke commits")
	}

	if len(*commits) != 1 {
		t.Fatalf("Committed %d strokes, want 1", len(*commits))
	}
	c, _ := a.ActiveCanvas()
	strokes := c.Strokes()
	if len(strokes) != 1 || strokes[0].ID != (*commits)[0].Stroke.ID {
		t.Errorf("Canvas strokes mismatch: %v", strokes)
	}
}

func TestPaint_WithSustain(t *testing.T) {
	a, commits := newTestApp(t)
	ctx := context.Background()

	a.Select(ctx, "pen", &brush.Pointer{})
	if state := a.Input(ctx, &brush.Pointer{Shift: true}); state != brush.Armed {
		t.Errorf("State after sustained paint = %v, want armed", state)
	}
	if name, _ := a.ActiveBrush(); name != "pen" {
		t.Errorf("Active brush = %q, want pen", name)
	}

	a.Input(ctx, &brush.Pointer{})
	if len(*commits) != 2 {
		t.Errorf("Committed %d strokes, want 2", len(*commits))
	}
	c, _ := a.ActiveCanvas()
	if len(c.Strokes()) != 2 {
		t.Errorf("Canvas has %d strokes, want 2", len(c.Strokes()))
	}
}

func TestPaint_NonQualifyingInput(t *testing.T) {
	a, commits := newTestApp(t)
	ctx := context.Background()

	a.Select(ctx, "pen", &brush.Pointer{})
	a.Input(ctx, &brush.Pointer{InStroke: true})
	a.Input(ctx, &brush.Pointer{InToolbox: true})

	if len(*commits) != 0 {
		t.Errorf("Non-qualifying inputs committed %d strokes", len(*commits))
	}
	if name, _ := a.ActiveBrush(); name != "pen" {
		t.Error("Pen should remain active")
	}
}

func TestCommitStrokeAction(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()

	a.CommitStrokeAction(ctx, "update", &core.Stroke{ID: "s1", Attributes: map[string]any{"x": "1"}})
	a.CommitStrokeAction(ctx, "update", &core.Stroke{ID: "s1", Attributes: map[string]any{"x": "2"}})

	c, _ := a.ActiveCanvas()
	strokes := c.Strokes()
	if len(strokes) != 1 || strokes[0].Attributes["x"] != "2" {
		t.Errorf("Canvas strokes mismatch: %v", strokes)
	}

	saved, err := a.Store.Get(ctx, c.ID())
	if err != nil {
		t.Fatalf("Canvas not persisted: %v", err)
	}
	if len(saved.Strokes) != 1 {
		t.Errorf("Persisted strokes mismatch: %v", saved.Strokes)
	}
	if len(a.Bindings()) != 1 {
		t.Errorf("Expected one binding, got %d", len(a.Bindings()))
	}
}

func TestNew_RestoresFromStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	store.SaveStroke(ctx, &core.Stroke{ID: "s1", Brush: "pen"})
	store.Save(ctx, &core.CanvasRecord{ID: "c1", Name: "Saved", Strokes: []string{"s1"}})

	a, err := New(ctx, Options{Store: store, CanvasName: "Untitled"})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	c, _ := a.ActiveCanvas()
	if c.ID() != "c1" || c.Name() != "Saved" || len(c.Strokes()) != 1 {
		t.Errorf("Restored canvas mismatch: %s %s %d", c.ID(), c.Name(), len(c.Strokes()))
	}
}

func TestNew_SkipsBadTemplates(t *testing.T) {
	a, err := New(context.Background(), Options{
		Store:     memory.NewStore(),
		Templates: []brush.Attributes{{brush.NameAttribute: "pen"}, {"color": "red"}},
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if names := a.BrushNames(); len(names) != 1 || names[0] != "pen" {
		t.Errorf("BrushNames() = %v, want [pen]", names)
	}
}
