// Package canvas implements the canvas aggregate and the registry of canvas
// bindings that keeps it in step with stroke commit events.
package canvas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"whiteboard/core"
	"whiteboard/events"
)

var (
	// ErrReservedAttribute is returned by Set for id, name and strokes.
	ErrReservedAttribute = errors.New("reserved canvas attribute")
	// ErrUnserializableAttribute is returned by Set for values that cannot be encoded as JSON.
	ErrUnserializableAttribute = errors.New("canvas attribute is not serializable")
)

// StrokeLookup resolves a stroke ID against a side-channel stroke store.
type StrokeLookup func(id string) (*core.Stroke, bool)

// Canvas owns a set of strokes, keyed by stroke ID and kept in insertion
// order, plus a bag of arbitrary attributes.
type Canvas struct {
	mu      sync.RWMutex
	bus     *events.Bus
	id      string
	name    string
	order   []string
	strokes map[string]*core.Stroke
	attrs   map[string]any
}

// New creates an empty canvas with a fresh ID.
func New(bus *events.Bus, name string) *Canvas {
	return &Canvas{
		bus:     bus,
		id:      ulid.Make().String(),
		name:    name,
		strokes: make(map[string]*core.Stroke),
		attrs:   make(map[string]any),
	}
}

// Restore rebuilds a canvas from its record. Stroke IDs that lookup cannot
// resolve are dropped.
func Restore(bus *events.Bus, record *core.CanvasRecord, lookup StrokeLookup) *Canvas {
	c := &Canvas{
		bus:     bus,
		id:      record.ID,
		name:    record.Name,
		strokes: make(map[string]*core.Stroke, len(record.Strokes)),
		attrs:   make(map[string]any, len(record.Attributes)),
	}
	if c.id == "" {
		c.id = ulid.Make().String()
	}
	for k, v := range record.Attributes {
		c.attrs[k] = v
	}
	for _, id := range record.Strokes {
		var stroke *core.Stroke
		if lookup != nil {
			stroke, _ = lookup(id)
		}
		if stroke == nil {
			logrus.WithFields(logrus.Fields{
				"canvas_id": c.id,
				"stroke_id": id,
			}).Warn("Stroke referenced by canvas not found, skipping")
			continue
		}
		c.upsert(stroke)
	}
	return c
}

func (c *Canvas) ID() string {
	return c.id
}

func (c *Canvas) Name() string {
	return c.name
}

// Attr returns an attribute previously assigned with Set.
func (c *Canvas) Attr(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.attrs[key]
	return v, ok
}

// Stroke returns the stroke with the given ID.
func (c *Canvas) Stroke(id string) (*core.Stroke, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.strokes[id]
	return s, ok
}

// Strokes returns the strokes in insertion order.
func (c *Canvas) Strokes() []*core.Stroke {
	c.mu.RLock()
	defer c.mu.RUnlock()
	strokes := make([]*core.Stroke, 0, len(c.order))
	for _, id := range c.order {
		strokes = append(strokes, c.strokes[id])
	}
	return strokes
}

// Set assigns an attribute and emits a CanvasUpdated event. The canvas keeps
// the JSON-decoded copy of value, so numbers become float64 and later changes
// to a map or slice passed in do not reach the canvas.
func (c *Canvas) Set(ctx context.Context, key string, value any) error {
	if core.IsReservedCanvasKey(key) {
		return fmt.Errorf("set %q: %w", key, ErrReservedAttribute)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("set %q: %w: %v", key, ErrUnserializableAttribute, err)
	}
	var copied any
	if err := json.Unmarshal(data, &copied); err != nil {
		return fmt.Errorf("set %q: %w: %v", key, ErrUnserializableAttribute, err)
	}

	c.mu.Lock()
	c.attrs[key] = copied
	c.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"canvas_id": c.id,
		"key":       key,
	}).Debug("Canvas attribute set")

	if c.bus != nil {
		c.bus.Emit(ctx, &events.CanvasUpdated{CanvasID: c.id, Key: key, Canvas: c})
	}
	return nil
}

// Upsert inserts stroke, or replaces the stroke already stored under its ID
// in place. It reports whether the stroke was new.
func (c *Canvas) Upsert(stroke *core.Stroke) bool {
	if stroke == nil || stroke.ID == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.upsert(stroke)
}

func (c *Canvas) upsert(stroke *core.Stroke) bool {
	_, exists := c.strokes[stroke.ID]
	c.strokes[stroke.ID] = stroke
	if !exists {
		c.order = append(c.order, stroke.ID)
	}
	return !exists
}

// Snapshot returns the canvas as a plain record, strokes reduced to their IDs.
func (c *Canvas) Snapshot() *core.CanvasRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	record := &core.CanvasRecord{
		ID:         c.id,
		Name:       c.name,
		Strokes:    append([]string{}, c.order...),
		Attributes: make(map[string]any, len(c.attrs)),
	}
	for k, v := range c.attrs {
		record.Attributes[k] = v
	}
	return record
}

func (c *Canvas) MarshalJSON() ([]byte, error) {
	return c.Snapshot().MarshalJSON()
}
