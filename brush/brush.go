// Package brush holds the brush registry and the tool-selection state machine.
//
// A Brush is a named stroke factory: it knows the template it paints and
// emits a commit event on the bus for every stroke it produces.
package brush

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"whiteboard/core"
	"whiteboard/events"
)

// NameAttribute is the template attribute carrying a brush's unique name.
const NameAttribute = "data-brush-name"

// Template is the rendering surface's description of what a brush paints.
// Brushes never mutate their template.
type Template interface {
	Attr(key string) (string, bool)
	Attrs() map[string]string
}

// Attributes is a Template backed by a plain map.
type Attributes map[string]string

func (a Attributes) Attr(key string) (string, bool) {
	v, ok := a[key]
	return v, ok
}

func (a Attributes) Attrs() map[string]string {
	return a
}

type Brush struct {
	template Template
	name     string
	bus      *events.Bus
}

func (b *Brush) Name() string {
	return b.name
}

func (b *Brush) Template() Template {
	return b.template
}

// PaintStroke produces a stroke and commits it on the bus. A non-nil record
// is restored as-is; otherwise a fresh stroke is created from the template.
func (b *Brush) PaintStroke(ctx context.Context, record map[string]any) (*core.Stroke, error) {
	var stroke *core.Stroke
	if record != nil {
		restored, err := core.RestoreStroke(record)
		if err != nil {
			return nil, fmt.Errorf("brush %s: %w", b.name, err)
		}
		stroke = restored
	} else {
		stroke = core.NewStroke(b.name, b.strokeAttributes())
	}

	logrus.WithFields(logrus.Fields{
		"brush":     b.name,
		"stroke_id": stroke.ID,
	}).Debug("Painting stroke")

	if b.bus != nil {
		b.bus.Emit(ctx, events.BrushPainted(b, stroke))
	}
	return stroke, nil
}

func (b *Brush) strokeAttributes() map[string]any {
	src := b.template.Attrs()
	attrs := make(map[string]any, len(src))
	for k, v := range src {
		if k == NameAttribute {
			continue
		}
		attrs[k] = v
	}
	return attrs
}

// Registry maps brush names to brushes. Registering an existing name replaces
// the previous brush.
type Registry struct {
	mu      sync.RWMutex
	bus     *events.Bus
	brushes map[string]*Brush
}

func NewRegistry(bus *events.Bus) *Registry {
	return &Registry{
		bus:     bus,
		brushes: make(map[string]*Brush),
	}
}

// Add registers the brush described by template. A template without a
// NameAttribute yields a *core.ConfigurationError and leaves the registry untouched.
func (r *Registry) Add(template Template) (*Brush, error) {
	name, ok := templateName(template)
	if !ok {
		return nil, &core.ConfigurationError{Subject: "brush template", Attribute: NameAttribute}
	}

	b := &Brush{template: template, name: name, bus: r.bus}

	r.mu.Lock()
	_, replaced := r.brushes[name]
	r.brushes[name] = b
	r.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"brush":    name,
		"replaced": replaced,
	}).Debug("Brush registered")
	return b, nil
}

// Get returns the brush registered under name.
func (r *Registry) Get(name string) (*Brush, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.brushes[name]
	return b, ok
}

// Names returns the registered brush names in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.brushes))
	for name := range r.brushes {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

func templateName(t Template) (string, bool) {
	if t == nil {
		return "", false
	}
	name, ok := t.Attr(NameAttribute)
	if !ok || name == "" {
		return "", false
	}
	return name, true
}
