package core

import "context"

type (
	// CanvasStore persists canvas snapshots.
	CanvasStore interface {
		// List returns the snapshots of every canvas the store knows about.
		List(ctx context.Context) ([]*CanvasRecord, error)

		// Get returns a single snapshot by canvas ID.
		Get(ctx context.Context, id string) (*CanvasRecord, error)

		// Save creates or replaces a snapshot.
		Save(ctx context.Context, record *CanvasRecord) error
	}

	// StrokeStore is the side channel holding full stroke payloads referenced
	// by CanvasRecord.Strokes.
	StrokeStore interface {
		FindStroke(ctx context.Context, id string) (*Stroke, error)
		SaveStroke(ctx context.Context, stroke *Stroke) error
	}

	// Store is a named durable backend for canvases and their strokes.
	Store interface {
		Name() string
		CanvasStore
		StrokeStore
	}
)
