package filesystem

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"whiteboard/core"
)

// Name is the name the filesystem store is addressed by.
const Name = "Local"

const (
	canvasDir = "canvases"
	strokeDir = "strokes"
	fileExt   = ".json"
)

// fsStore keeps one JSON file per canvas and per stroke under basePath.
type fsStore struct {
	basePath string
}

// NewStore creates a new filesystem-based store rooted at basePath.
func NewStore(basePath string) (*fsStore, error) {
	for _, dir := range []string{canvasDir, strokeDir} {
		if err := os.MkdirAll(filepath.Join(basePath, dir), 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", dir, err)
		}
	}
	return &fsStore{basePath: basePath}, nil
}

func (s *fsStore) Name() string {
	return Name
}

// entityPath resolves the file for id inside dir, rejecting ids that would
// escape it.
func (s *fsStore) entityPath(dir, id string) (string, error) {
	if id == "" || id == "." || id == ".." || filepath.Base(id) != id {
		return "", fmt.Errorf("invalid id %q: must be a plain name", id)
	}
	root, err := filepath.Abs(filepath.Join(s.basePath, dir))
	if err != nil {
		return "", err
	}
	path, err := filepath.Abs(filepath.Join(root, id+fileExt))
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(path, root+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid path: access denied")
	}
	return path, nil
}

// List returns every canvas, ordered by ID. Generated IDs are ULIDs, so this
// is creation order. Unreadable files are skipped.
func (s *fsStore) List(ctx context.Context) ([]*core.CanvasRecord, error) {
	dirPath := filepath.Join(s.basePath, canvasDir)
	log := logrus.WithField("path", dirPath)

	files, err := os.ReadDir(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info("Canvas directory does not exist, returning empty list.")
			return []*core.CanvasRecord{}, nil
		}
		log.WithError(err).Error("Failed to read canvas directory")
		return nil, err
	}

	names := make([]string, 0, len(files))
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != fileExt {
			continue
		}
		names = append(names, file.Name())
	}
	sort.Strings(names)

	records := make([]*core.CanvasRecord, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dirPath, name))
		if err != nil {
			log.WithError(err).Warnf("Failed to read canvas file %s, skipping", name)
			continue
		}
		var record core.CanvasRecord
		if err := json.Unmarshal(data, &record); err != nil {
			log.WithError(err).Warnf("Failed to unmarshal canvas file %s, skipping", name)
			continue
		}
		records = append(records, &record)
	}

	log.Debugf("Listed %d canvases", len(records))
	return records, nil
}

func (s *fsStore) Get(ctx context.Context, id string) (*core.CanvasRecord, error) {
	path, err := s.entityPath(canvasDir, id)
	if err != nil {
		return nil, err
	}
	log := logrus.WithFields(logrus.Fields{"canvas_id": id, "path": path})

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn("Canvas file not found")
			return nil, fmt.Errorf("canvas with id %s %w", id, core.ErrNotFound)
		}
		log.WithError(err).Error("Failed to read canvas file")
		return nil, err
	}

	var record core.CanvasRecord
	if err := json.Unmarshal(data, &record); err != nil {
		log.WithError(err).Error("Failed to unmarshal canvas data")
		return nil, err
	}

	log.Debug("Canvas retrieved successfully")
	return &record, nil
}

func (s *fsStore) Save(ctx context.Context, record *core.CanvasRecord) error {
	if record == nil {
		return fmt.Errorf("canvas record cannot be nil")
	}
	path, err := s.entityPath(canvasDir, record.ID)
	if err != nil {
		return err
	}
	log := logrus.WithFields(logrus.Fields{"canvas_id": record.ID, "path": path})

	data, err := json.Marshal(record)
	if err != nil {
		log.WithError(err).Error("Failed to marshal canvas for saving")
		return err
	}
	if err := writeFile(path, data); err != nil {
		log.WithError(err).Error("Failed to write canvas file")
		return err
	}

	log.Debug("Canvas saved successfully")
	return nil
}

func (s *fsStore) FindStroke(ctx context.Context, id string) (*core.Stroke, error) {
	path, err := s.entityPath(strokeDir, id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("stroke with id %s %w", id, core.ErrNotFound)
		}
		logrus.WithField("stroke_id", id).WithError(err).Error("Failed to read stroke file")
		return nil, err
	}

	var stroke core.Stroke
	if err := json.Unmarshal(data, &stroke); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stroke %s: %w", id, err)
	}
	return &stroke, nil
}

func (s *fsStore) SaveStroke(ctx context.Context, stroke *core.Stroke) error {
	if stroke == nil {
		return fmt.Errorf("stroke cannot be nil")
	}
	path, err := s.entityPath(strokeDir, stroke.ID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(stroke)
	if err != nil {
		return fmt.Errorf("failed to marshal stroke %s: %w", stroke.ID, err)
	}
	if err := writeFile(path, data); err != nil {
		logrus.WithField("stroke_id", stroke.ID).WithError(err).Error("Failed to write stroke file")
		return err
	}
	return nil
}

// writeFile writes through a temporary file and renames it over path.
func writeFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
