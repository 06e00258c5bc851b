package events

import (
	"strings"

	"whiteboard/core"
)

// Kind tags one variant of the closed event set.
type Kind int

const (
	KindStrokeCommitted Kind = iota + 1
	KindCanvasUpdated
)

func (k Kind) String() string {
	switch k {
	case KindStrokeCommitted:
		return "stroke-committed"
	case KindCanvasUpdated:
		return "canvas-updated"
	default:
		return "unknown"
	}
}

const (
	ModuleBrush        = "Brush"
	ModuleStrokeAction = "StrokeAction"
	ModuleCanvas       = "Canvas"

	ActionPaint  = "paint"
	ActionUpdate = "update"

	StepCommit = "commit"
)

// Event is implemented by every variant the bus carries.
type Event interface {
	Kind() Kind
	// Name returns the dotted wire name, e.g. "Brush.pen.paint.commit".
	Name() string
}

// Painter identifies the brush that produced a stroke.
type Painter interface {
	Name() string
}

// Snapshotter is a canvas as seen by persistence listeners.
type Snapshotter interface {
	ID() string
	Snapshot() *core.CanvasRecord
}

// StrokeCommitted signals that a stroke action reached its commit step.
// Brush is nil for actions that were not produced by painting.
type StrokeCommitted struct {
	Module string
	Source string
	Action string
	Step   string
	Stroke *core.Stroke
	Brush  Painter
}

func (*StrokeCommitted) Kind() Kind { return KindStrokeCommitted }

func (e *StrokeCommitted) Name() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{e.Module, e.Source, e.Action, e.Step} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ".")
}

// BrushPainted builds the commit event emitted when brush paints stroke.
func BrushPainted(brush Painter, stroke *core.Stroke) *StrokeCommitted {
	return &StrokeCommitted{
		Module: ModuleBrush,
		Source: brush.Name(),
		Action: ActionPaint,
		Step:   StepCommit,
		Stroke: stroke,
		Brush:  brush,
	}
}

// StrokeAction builds the commit event for an edit applied to an existing stroke.
func StrokeAction(action string, stroke *core.Stroke) *StrokeCommitted {
	return &StrokeCommitted{
		Module: ModuleStrokeAction,
		Action: action,
		Step:   StepCommit,
		Stroke: stroke,
	}
}

// CanvasUpdated signals a committed change to a canvas. Key names the
// attribute that changed; it is empty when strokes changed.
type CanvasUpdated struct {
	CanvasID string
	Key      string
	Canvas   Snapshotter
}

func (*CanvasUpdated) Kind() Kind { return KindCanvasUpdated }

func (*CanvasUpdated) Name() string {
	return ModuleCanvas + "." + ActionUpdate + "." + StepCommit
}
