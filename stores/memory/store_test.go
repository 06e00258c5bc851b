package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"whiteboard/core"
)

func TestSaveAndGet(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	record := &core.CanvasRecord{ID: "c1", Name: "Sketch", Strokes: []string{"s1"}, Attributes: map[string]any{"color": "red"}}
	if err := store.Save(ctx, record); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	got, err := store.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Name != "Sketch" || len(got.Strokes) != 1 || got.Attributes["color"] != "red" {
		t.Errorf("Get() mismatch: %+v", got)
	}

	// Stored records are copies
	record.Strokes[0] = "changed"
	got.Attributes["color"] = "blue"
	again, _ := store.Get(ctx, "c1")
	if again.Strokes[0] != "s1" || again.Attributes["color"] != "red" {
		t.Errorf("Store aliases caller data: %+v", again)
	}
}

func TestGet_NotFound(t *testing.T) {
	_, err := NewStore().Get(context.Background(), "missing")
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestSave_Invalid(t *testing.T) {
	store := NewStore()
	if err := store.Save(context.Background(), &core.CanvasRecord{}); err == nil {
		t.Error("Save() should reject records without an ID")
	}
	if err := store.Save(context.Background(), nil); err == nil {
		t.Error("Save() should reject nil records")
	}
}

func TestList_InsertionOrder(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	for _, id := range []string{"c2", "c1", "c3"} {
		store.Save(ctx, &core.CanvasRecord{ID: id})
	}
	store.Save(ctx, &core.CanvasRecord{ID: "c2", Name: "Updated"})

	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("List() returned %d records, want 3", len(records))
	}
	for i, want := range []string{"c2", "c1", "c3"} {
		if records[i].ID != want {
			t.Errorf("records[%d] = %s, want %s", i, records[i].ID, want)
		}
	}
	if records[0].Name != "Updated" {
		t.Error("Save should replace an existing canvas")
	}
}

func TestStrokes(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if _, err := store.FindStroke(ctx, "s1"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("FindStroke() error = %v, want ErrNotFound", err)
	}

	stroke := &core.Stroke{ID: "s1", Brush: "pen", Attributes: map[string]any{"color": "red"}}
	if err := store.SaveStroke(ctx, stroke); err != nil {
		t.Fatalf("SaveStroke() failed: %v", err)
	}
	stroke.Attributes["color"] = "blue"

	got, err := store.FindStroke(ctx, "s1")
	if err != nil {
		t.Fatalf("FindStroke() failed: %v", err)
	}
	if got.Brush != "pen" || got.Attributes["color"] != "red" {
		t.Errorf("FindStroke() mismatch: %+v", got)
	}
	if err := store.SaveStroke(ctx, &core.Stroke{}); err == nil {
		t.Error("SaveStroke() should reject strokes without an ID")
	}
}

func TestConcurrentAccess(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i))
			store.SaveStroke(ctx, &core.Stroke{ID: id})
			store.Save(ctx, &core.CanvasRecord{ID: id, Strokes: []string{id}})
			store.List(ctx)
		}(i)
	}
	wg.Wait()

	records, _ := store.List(ctx)
	if len(records) != 20 {
		t.Errorf("List() returned %d records, want 20", len(records))
	}
}
