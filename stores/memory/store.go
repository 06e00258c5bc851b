package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"whiteboard/core"
)

// Name is the name the in-memory store is addressed by.
const Name = "Memory"

// memStore keeps canvases and strokes in process memory. Canvases are listed
// in the order they were first saved.
type memStore struct {
	mu       sync.RWMutex
	canvases map[string]*core.CanvasRecord
	order    []string
	strokes  map[string]*core.Stroke
}

// NewStore creates a new in-memory store.
func NewStore() *memStore {
	return &memStore{
		canvases: make(map[string]*core.CanvasRecord),
		strokes:  make(map[string]*core.Stroke),
	}
}

func (s *memStore) Name() string {
	return Name
}

func (s *memStore) List(ctx context.Context) ([]*core.CanvasRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*core.CanvasRecord, 0, len(s.order))
	for _, id := range s.order {
		records = append(records, s.canvases[id].Clone())
	}

	logrus.Debugf("Listed %d canvases", len(records))
	return records, nil
}

func (s *memStore) Get(ctx context.Context, id string) (*core.CanvasRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := logrus.WithField("canvas_id", id)
	record, ok := s.canvases[id]
	if !ok {
		log.Warn("Canvas with specified ID not found")
		return nil, fmt.Errorf("canvas with id %s %w", id, core.ErrNotFound)
	}

	log.Debug("Canvas retrieved successfully")
	return record.Clone(), nil
}

func (s *memStore) Save(ctx context.Context, record *core.CanvasRecord) error {
	if record == nil || record.ID == "" {
		return fmt.Errorf("canvas ID cannot be empty for save operation")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.canvases[record.ID]; !exists {
		s.order = append(s.order, record.ID)
	}
	s.canvases[record.ID] = record.Clone()

	logrus.WithFields(logrus.Fields{
		"canvas_id": record.ID,
		"strokes":   len(record.Strokes),
	}).Debug("Canvas saved successfully")
	return nil
}

func (s *memStore) FindStroke(ctx context.Context, id string) (*core.Stroke, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stroke, ok := s.strokes[id]
	if !ok {
		return nil, fmt.Errorf("stroke with id %s %w", id, core.ErrNotFound)
	}
	return copyStroke(stroke), nil
}

func (s *memStore) SaveStroke(ctx context.Context, stroke *core.Stroke) error {
	if stroke == nil || stroke.ID == "" {
		return fmt.Errorf("stroke ID cannot be empty for save operation")
	}

	s.mu.Lock()
	s.strokes[stroke.ID] = copyStroke(stroke)
	s.mu.Unlock()

	logrus.WithField("stroke_id", stroke.ID).Debug("Stroke saved successfully")
	return nil
}

func copyStroke(s *core.Stroke) *core.Stroke {
	c := &core.Stroke{
		ID:         s.ID,
		Brush:      s.Brush,
		Attributes: make(map[string]any, len(s.Attributes)),
	}
	for k, v := range s.Attributes {
		c.Attributes[k] = v
	}
	return c
}
