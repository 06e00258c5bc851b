package core

import (
	"encoding/json"
	"fmt"

	"github.com/oklog/ulid/v2"
)

const (
	// StrokeIDKey is the record key holding a stroke's identifier.
	StrokeIDKey = "strokeId"
	// StrokeBrushKey is the record key holding the name of the brush that painted a stroke.
	StrokeBrushKey = "brush"
)

// Stroke is one applied mark on a canvas. The core only relies on ID; the
// remaining attributes belong to the rendering surface and are carried verbatim.
type Stroke struct {
	ID         string
	Brush      string
	Attributes map[string]any
}

// NewStroke creates a fresh stroke painted by brush, with a newly generated ID.
// Attribute keys colliding with StrokeIDKey or StrokeBrushKey are ignored.
func NewStroke(brush string, attrs map[string]any) *Stroke {
	s := &Stroke{
		ID:         ulid.Make().String(),
		Brush:      brush,
		Attributes: make(map[string]any, len(attrs)),
	}
	for k, v := range attrs {
		if k == StrokeIDKey || k == StrokeBrushKey {
			continue
		}
		s.Attributes[k] = v
	}
	return s
}

// RestoreStroke rebuilds a stroke from a previously serialized record. The ID
// and every attribute are restored verbatim; a record without an ID gets a new one.
func RestoreStroke(record map[string]any) (*Stroke, error) {
	s := &Stroke{Attributes: make(map[string]any, len(record))}
	for k, v := range record {
		switch k {
		case StrokeIDKey:
			id, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("stroke record: %s must be a string, got %T", k, v)
			}
			s.ID = id
		case StrokeBrushKey:
			name, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("stroke record: %s must be a string, got %T", k, v)
			}
			s.Brush = name
		default:
			s.Attributes[k] = v
		}
	}
	if s.ID == "" {
		s.ID = ulid.Make().String()
	}
	return s, nil
}

// Record returns the flat serialized form of the stroke.
func (s *Stroke) Record() map[string]any {
	record := make(map[string]any, len(s.Attributes)+2)
	for k, v := range s.Attributes {
		record[k] = v
	}
	record[StrokeIDKey] = s.ID
	if s.Brush != "" {
		record[StrokeBrushKey] = s.Brush
	}
	return record
}

func (s *Stroke) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Record())
}

func (s *Stroke) UnmarshalJSON(data []byte) error {
	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		return err
	}
	restored, err := RestoreStroke(record)
	if err != nil {
		return err
	}
	*s = *restored
	return nil
}
