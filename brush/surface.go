package brush

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Input is a pointer or keyboard event delivered by the rendering surface.
// Containment in stroke and toolbox regions is decided by the surface.
type Input interface {
	DefaultPrevented() bool
	PreventDefault()
	// Sustain reports whether the modifier keeping the tool armed is held.
	Sustain() bool
	WithinStroke() bool
	WithinToolbox() bool
}

// Selector is a tool-selection control on the rendering surface.
type Selector interface {
	Attr(key string) (string, bool)
	OnActivate(fn func(ctx context.Context, in Input))
}

// Surface is the rendering-surface collaborator scanned by Toolbox.Init.
type Surface interface {
	Templates() []Template
	Selectors() []Selector
	OnInput(fn func(ctx context.Context, in Input))
}

// Pointer is a plain Input, used by adapters that receive input over the wire.
type Pointer struct {
	Handled   bool `json:"defaultPrevented"`
	Shift     bool `json:"sustain"`
	InStroke  bool `json:"withinStroke"`
	InToolbox bool `json:"withinToolbox"`
}

func (p *Pointer) DefaultPrevented() bool { return p.Handled }
func (p *Pointer) PreventDefault()        { p.Handled = true }
func (p *Pointer) Sustain() bool          { return p.Shift }
func (p *Pointer) WithinStroke() bool     { return p.InStroke }
func (p *Pointer) WithinToolbox() bool    { return p.InToolbox }

// Palette is an in-process Surface: a fixed set of templates with one tool
// selector per named template. Network adapters drive it through Select and Input.
type Palette struct {
	mu        sync.RWMutex
	templates []Template
	selectors map[string]*paletteSelector
	order     []*paletteSelector
	inputs    []func(ctx context.Context, in Input)
}

type paletteSelector struct {
	attrs     Attributes
	mu        sync.RWMutex
	listeners []func(ctx context.Context, in Input)
}

func (s *paletteSelector) Attr(key string) (string, bool) {
	return s.attrs.Attr(key)
}

func (s *paletteSelector) OnActivate(fn func(ctx context.Context, in Input)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *paletteSelector) activate(ctx context.Context, in Input) {
	s.mu.RLock()
	listeners := s.listeners
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(ctx, in)
	}
}

// NewPalette builds a palette from templates. Templates without a name still
// reach the registry scan (and fail there) but get no selector.
func NewPalette(templates ...Attributes) *Palette {
	p := &Palette{selectors: make(map[string]*paletteSelector)}
	for _, attrs := range templates {
		p.templates = append(p.templates, attrs)
		name, ok := templateName(attrs)
		if !ok {
			continue
		}
		if _, exists := p.selectors[name]; exists {
			continue
		}
		sel := &paletteSelector{attrs: Attributes{NameAttribute: name}}
		p.selectors[name] = sel
		p.order = append(p.order, sel)
	}
	return p
}

// DefaultTemplates is the palette used when no template file is configured.
func DefaultTemplates() []Attributes {
	return []Attributes{
		{NameAttribute: "pen", "class": "stroke pen", "color": "#1e1e1e", "width": "2"},
		{NameAttribute: "marker", "class": "stroke marker", "color": "#e03131", "width": "6"},
		{NameAttribute: "note", "class": "stroke note", "color": "#fab005"},
	}
}

// LoadTemplates reads a JSON array of template attribute objects.
func LoadTemplates(path string) ([]Attributes, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read brush templates: %w", err)
	}
	var templates []Attributes
	if err := json.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("parse brush templates %s: %w", path, err)
	}
	return templates, nil
}

func (p *Palette) Templates() []Template {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Template{}, p.templates...)
}

func (p *Palette) Selectors() []Selector {
	p.mu.RLock()
	defer p.mu.RUnlock()
	selectors := make([]Selector, 0, len(p.order))
	for _, s := range p.order {
		selectors = append(selectors, s)
	}
	return selectors
}

func (p *Palette) OnInput(fn func(ctx context.Context, in Input)) {
	p.mu.Lock()
	p.inputs = append(p.inputs, fn)
	p.mu.Unlock()
}

// Select activates the tool selector for name. It reports whether such a selector exists.
func (p *Palette) Select(ctx context.Context, name string, in Input) bool {
	p.mu.RLock()
	sel, ok := p.selectors[name]
	p.mu.RUnlock()
	if !ok {
		return false
	}
	sel.activate(ctx, in)
	return true
}

// Input delivers a global input event to every input listener.
func (p *Palette) Input(ctx context.Context, in Input) {
	p.mu.RLock()
	inputs := p.inputs
	p.mu.RUnlock()
	for _, fn := range inputs {
		fn(ctx, in)
	}
}
