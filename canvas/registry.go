package canvas

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"whiteboard/core"
	"whiteboard/events"
)

// Binding pairs a store with the last snapshot it holds for a canvas. Target
// may lag the live canvas until the next commit has been persisted.
type Binding struct {
	Source core.Store
	Target *core.CanvasRecord
}

// Registry owns the active canvas and the ordered, append-only list of
// canvas bindings discovered by hydration.
type Registry struct {
	mu         sync.RWMutex
	bus        *events.Bus
	active     *Canvas
	all        []Binding
	subscribed bool
}

func NewRegistry(bus *events.Bus) *Registry {
	return &Registry{bus: bus}
}

// Bind appends a binding.
func (r *Registry) Bind(source core.Store, target *core.CanvasRecord) {
	r.mu.Lock()
	r.all = append(r.all, Binding{Source: source, Target: target})
	r.mu.Unlock()
}

// All returns a copy of the bindings in discovery order.
func (r *Registry) All() []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Binding{}, r.all...)
}

// Binding returns the binding for a canvas ID.
func (r *Registry) Binding(id string) (Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.all {
		if b.Target != nil && b.Target.ID == id {
			return b, true
		}
	}
	return Binding{}, false
}

// UpdateTarget replaces the snapshot held by the binding of record.ID.
func (r *Registry) UpdateTarget(record *core.CanvasRecord) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.all {
		if r.all[i].Target != nil && r.all[i].Target.ID == record.ID {
			r.all[i].Target = record
			return true
		}
	}
	return false
}

// Active returns the canvas receiving committed strokes.
func (r *Registry) Active() (*Canvas, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active, r.active != nil
}

// Init establishes the active canvas and subscribes to stroke commits. The
// first hydrated binding is restored through its source; with no bindings a
// new canvas named name is created. Calling Init again keeps the existing
// active canvas and subscription.
func (r *Registry) Init(ctx context.Context, name string) {
	r.mu.RLock()
	active := r.active
	var first *Binding
	if len(r.all) > 0 && r.all[0].Target != nil {
		b := r.all[0]
		first = &b
	}
	r.mu.RUnlock()

	// Restore may query the store; r.mu is not held.
	var candidate *Canvas
	if active == nil {
		if first != nil {
			candidate = Restore(r.bus, first.Target, strokeLookup(ctx, first.Source))
		} else {
			candidate = New(r.bus, name)
		}
	}

	r.mu.Lock()
	if r.active == nil {
		r.active = candidate
	}
	active = r.active
	subscribe := !r.subscribed
	r.subscribed = true
	r.mu.Unlock()

	if subscribe {
		events.On(r.bus, r.handleStrokeCommitted)
	}

	logrus.WithFields(logrus.Fields{
		"canvas_id": active.ID(),
		"strokes":   len(active.Strokes()),
		"bindings":  len(r.All()),
	}).Info("Active canvas established")
}

func (r *Registry) handleStrokeCommitted(ctx context.Context, e *events.StrokeCommitted) error {
	c, ok := r.Active()
	if !ok || e.Stroke == nil {
		logrus.WithField("event", e.Name()).Debug("Dropping stroke commit without active canvas")
		return nil
	}

	inserted := c.Upsert(e.Stroke)
	logrus.WithFields(logrus.Fields{
		"event":     e.Name(),
		"canvas_id": c.ID(),
		"stroke_id": e.Stroke.ID,
		"inserted":  inserted,
	}).Debug("Stroke committed to canvas")

	r.bus.Emit(ctx, &events.CanvasUpdated{CanvasID: c.ID(), Canvas: c})
	return nil
}

func strokeLookup(ctx context.Context, source core.StrokeStore) StrokeLookup {
	if source == nil {
		return nil
	}
	return func(id string) (*core.Stroke, bool) {
		stroke, err := source.FindStroke(ctx, id)
		if err != nil {
			if !errors.Is(err, core.ErrNotFound) {
				logrus.WithField("stroke_id", id).WithError(err).Warn("Failed to load stroke")
			}
			return nil, false
		}
		return stroke, true
	}
}
