package stores

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"whiteboard/canvas"
	"whiteboard/core"
	"whiteboard/events"
)

// Hydrate appends one binding per canvas found in each source, in source
// order and then store listing order.
func Hydrate(ctx context.Context, registry *canvas.Registry, sources ...core.Store) error {
	for _, source := range sources {
		records, err := source.List(ctx)
		if err != nil {
			return fmt.Errorf("hydrate from %s: %w", source.Name(), err)
		}
		for _, record := range records {
			registry.Bind(source, record)
		}
		logrus.WithFields(logrus.Fields{
			"store":    source.Name(),
			"canvases": len(records),
		}).Info("Hydrated canvases")
	}
	return nil
}

// Persister writes committed strokes and canvas snapshots to the store bound
// to their canvas. Canvases without a binding are bound to fallback on first write.
type Persister struct {
	registry *canvas.Registry
	fallback core.Store
}

func NewPersister(registry *canvas.Registry, fallback core.Store) *Persister {
	return &Persister{registry: registry, fallback: fallback}
}

// Subscribe registers the persister on bus. It must be called after the
// canvas registry has been initialized so snapshots include the upserted stroke.
func (p *Persister) Subscribe(bus *events.Bus) {
	events.On(bus, p.handleStrokeCommitted)
	events.On(bus, p.handleCanvasUpdated)
}

func (p *Persister) sourceFor(canvasID string) core.Store {
	if b, ok := p.registry.Binding(canvasID); ok && b.Source != nil {
		return b.Source
	}
	return p.fallback
}

func (p *Persister) handleStrokeCommitted(ctx context.Context, e *events.StrokeCommitted) error {
	c, ok := p.registry.Active()
	if !ok || e.Stroke == nil {
		return nil
	}
	source := p.sourceFor(c.ID())
	if source == nil {
		return nil
	}
	if err := source.SaveStroke(ctx, e.Stroke); err != nil {
		return fmt.Errorf("persist stroke %s to %s: %w", e.Stroke.ID, source.Name(), err)
	}
	return nil
}

func (p *Persister) handleCanvasUpdated(ctx context.Context, e *events.CanvasUpdated) error {
	if e.Canvas == nil {
		return nil
	}
	record := e.Canvas.Snapshot()

	binding, bound := p.registry.Binding(record.ID)
	source := binding.Source
	if !bound || source == nil {
		source = p.fallback
	}
	if source == nil {
		return nil
	}

	if err := source.Save(ctx, record); err != nil {
		return fmt.Errorf("persist canvas %s to %s: %w", record.ID, source.Name(), err)
	}

	if bound {
		p.registry.UpdateTarget(record)
	} else {
		p.registry.Bind(source, record)
	}

	logrus.WithFields(logrus.Fields{
		"event":     e.Name(),
		"canvas_id": record.ID,
		"store":     source.Name(),
		"strokes":   len(record.Strokes),
	}).Debug("Canvas snapshot persisted")
	return nil
}
