package core

import (
	"encoding/json"
	"fmt"
)

const (
	CanvasIDKey      = "id"
	CanvasNameKey    = "name"
	CanvasStrokesKey = "strokes"
)

// CanvasRecord is the persisted shape of a canvas:
//
//	{"id": "...", "name": "...", "strokes": ["<strokeId>", ...], ...attributes}
//
// Strokes hold identifiers only; the strokes themselves live in a StrokeStore.
type CanvasRecord struct {
	ID         string
	Name       string
	Strokes    []string
	Attributes map[string]any
}

// IsReservedCanvasKey reports whether key is one of the structural record keys.
func IsReservedCanvasKey(key string) bool {
	switch key {
	case CanvasIDKey, CanvasNameKey, CanvasStrokesKey:
		return true
	}
	return false
}

// Clone returns a deep enough copy for a snapshot to be held independently of its source.
func (r *CanvasRecord) Clone() *CanvasRecord {
	c := &CanvasRecord{
		ID:         r.ID,
		Name:       r.Name,
		Strokes:    append([]string{}, r.Strokes...),
		Attributes: make(map[string]any, len(r.Attributes)),
	}
	for k, v := range r.Attributes {
		c.Attributes[k] = v
	}
	return c
}

// Flat returns the record as a single JSON-ready object, attributes inlined.
func (r *CanvasRecord) Flat() map[string]any {
	flat := make(map[string]any, len(r.Attributes)+3)
	for k, v := range r.Attributes {
		flat[k] = v
	}
	strokes := r.Strokes
	if strokes == nil {
		strokes = []string{}
	}
	flat[CanvasIDKey] = r.ID
	flat[CanvasNameKey] = r.Name
	flat[CanvasStrokesKey] = strokes
	return flat
}

func (r *CanvasRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Flat())
}

func (r *CanvasRecord) UnmarshalJSON(data []byte) error {
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}

	record := CanvasRecord{
		Strokes:    []string{},
		Attributes: make(map[string]any),
	}
	for k, raw := range flat {
		var err error
		switch k {
		case CanvasIDKey:
			err = json.Unmarshal(raw, &record.ID)
		case CanvasNameKey:
			err = json.Unmarshal(raw, &record.Name)
		case CanvasStrokesKey:
			err = json.Unmarshal(raw, &record.Strokes)
		default:
			var v any
			err = json.Unmarshal(raw, &v)
			record.Attributes[k] = v
		}
		if err != nil {
			return fmt.Errorf("canvas record: invalid %q: %w", k, err)
		}
	}
	if record.Strokes == nil {
		record.Strokes = []string{}
	}
	*r = record
	return nil
}
