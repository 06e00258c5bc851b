// Package app wires the bus, the brush toolbox, the canvas registry and the
// store binding into one coordinator that owns all shared drawing state.
package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"whiteboard/brush"
	"whiteboard/canvas"
	"whiteboard/core"
	"whiteboard/events"
	"whiteboard/stores"
)

type Options struct {
	// Store hydrates the canvas registry and receives every commit.
	Store core.Store
	// Templates describe the brushes on the palette; nil uses brush.DefaultTemplates.
	Templates []brush.Attributes
	// CanvasName names the canvas created when the store holds none.
	CanvasName string
}

type App struct {
	Bus      *events.Bus
	Brushes  *brush.Registry
	Tools    *brush.Toolbox
	Palette  *brush.Palette
	Canvases *canvas.Registry
	Store    core.Store
}

// New hydrates the canvas registry from opts.Store, establishes the active
// canvas and initializes the toolbox. Subscription order is fixed: the canvas
// registry first, then the persister.
func New(ctx context.Context, opts Options) (*App, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("app: store is required")
	}
	templates := opts.Templates
	if templates == nil {
		templates = brush.DefaultTemplates()
	}

	bus := events.NewBus()
	brushes := brush.NewRegistry(bus)
	a := &App{
		Bus:      bus,
		Brushes:  brushes,
		Tools:    brush.NewToolbox(brushes),
		Palette:  brush.NewPalette(templates...),
		Canvases: canvas.NewRegistry(bus),
		Store:    opts.Store,
	}

	if err := stores.Hydrate(ctx, a.Canvases, opts.Store); err != nil {
		return nil, err
	}
	a.Canvases.Init(ctx, opts.CanvasName)
	stores.NewPersister(a.Canvases, opts.Store).Subscribe(bus)

	if err := a.Tools.Init(a.Palette); err != nil {
		logrus.WithError(err).Warn("Some brush templates could not be registered")
	}
	return a, nil
}

// ActiveCanvas returns the canvas receiving strokes.
func (a *App) ActiveCanvas() (*canvas.Canvas, bool) {
	return a.Canvases.Active()
}

func (a *App) Bindings() []canvas.Binding {
	return a.Canvases.All()
}

func (a *App) BrushNames() []string {
	return a.Brushes.Names()
}

// ActiveBrush returns the name of the selected brush.
func (a *App) ActiveBrush() (string, bool) {
	b, ok := a.Tools.Active()
	if !ok {
		return "", false
	}
	return b.Name(), true
}

// Select activates the palette's tool selector for name.
func (a *App) Select(ctx context.Context, name string, in brush.Input) bool {
	return a.Palette.Select(ctx, name, in)
}

// Input delivers a surface input and returns the resulting tool state.
func (a *App) Input(ctx context.Context, in brush.Input) brush.State {
	a.Palette.Input(ctx, in)
	return a.Tools.State()
}

// CommitStrokeAction commits an edit of an existing stroke.
func (a *App) CommitStrokeAction(ctx context.Context, action string, stroke *core.Stroke) {
	a.Bus.Emit(ctx, events.StrokeAction(action, stroke))
}
