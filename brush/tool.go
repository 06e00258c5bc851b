package brush

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"whiteboard/core"
)

// State is the tool-selection state.
type State int

const (
	// Idle means no brush is selected.
	Idle State = iota
	// Armed means a brush is selected and the next qualifying input paints.
	Armed
)

func (s State) String() string {
	if s == Armed {
		return "armed"
	}
	return "idle"
}

// Toolbox owns the single brush selection.
type Toolbox struct {
	mu      sync.Mutex
	brushes *Registry
	active  *Brush
}

func NewToolbox(brushes *Registry) *Toolbox {
	return &Toolbox{brushes: brushes}
}

// Init registers every template of the surface, wires tool selectors to
// Select and wires the surface input to HandleInput. Misconfigured templates
// or selectors are skipped; their errors are joined into the result.
func (t *Toolbox) Init(surface Surface) error {
	var errs []error

	for _, tmpl := range surface.Templates() {
		if _, err := t.brushes.Add(tmpl); err != nil {
			logrus.WithError(err).Warn("Skipping brush template")
			errs = append(errs, err)
		}
	}

	for _, sel := range surface.Selectors() {
		name, ok := sel.Attr(NameAttribute)
		if !ok || name == "" {
			err := &core.ConfigurationError{Subject: "tool selector", Attribute: NameAttribute}
			logrus.WithError(err).Warn("Skipping tool selector")
			errs = append(errs, err)
			continue
		}
		sel.OnActivate(func(_ context.Context, in Input) {
			t.Select(in, name)
		})
	}

	surface.OnInput(func(ctx context.Context, in Input) {
		if _, err := t.HandleInput(ctx, in); err != nil {
			logrus.WithError(err).Warn("Failed to paint stroke")
		}
	})

	logrus.WithField("brushes", t.brushes.Names()).Info("Toolbox initialized")
	return errors.Join(errs...)
}

// Select arms the toolbox with the named brush and suppresses the input's
// default action. Unknown names leave the selection unchanged.
func (t *Toolbox) Select(in Input, name string) bool {
	if in != nil {
		in.PreventDefault()
	}
	b, ok := t.brushes.Get(name)
	if !ok {
		logrus.WithField("brush", name).Debug("Ignoring selection of unknown brush")
		return false
	}

	t.mu.Lock()
	t.active = b
	t.mu.Unlock()

	logrus.WithField("brush", name).Debug("Brush selected")
	return true
}

// Active returns the selected brush, if any.
func (t *Toolbox) Active() (*Brush, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active, t.active != nil
}

func (t *Toolbox) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active != nil {
		return Armed
	}
	return Idle
}

// ShouldPaint reports whether in qualifies for painting in the current state.
func (t *Toolbox) ShouldPaint(in Input) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.qualifies(in)
}

func (t *Toolbox) qualifies(in Input) bool {
	return t.active != nil && in != nil &&
		!in.DefaultPrevented() &&
		!in.WithinStroke() &&
		!in.WithinToolbox()
}

// HandleInput paints a stroke with the active brush when in qualifies, then
// returns to Idle unless the sustain modifier is held. A non-qualifying input
// returns a nil stroke. The transition is decided before painting, so commit
// handlers already observe the post-paint state.
func (t *Toolbox) HandleInput(ctx context.Context, in Input) (*core.Stroke, error) {
	t.mu.Lock()
	if !t.qualifies(in) {
		t.mu.Unlock()
		return nil, nil
	}
	b := t.active
	if !in.Sustain() {
		t.active = nil
	}
	t.mu.Unlock()

	return b.PaintStroke(ctx, nil)
}
