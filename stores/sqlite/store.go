package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"whiteboard/core"
)

// Name is the name the SQLite store is addressed by.
const Name = "SQLite"

type sqliteStore struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database and its tables.
func NewStore(dataSourceName string) (*sqliteStore, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// Canvas snapshots, one row per canvas
	canvasTableStmt := `
	CREATE TABLE IF NOT EXISTS canvases (
		id TEXT PRIMARY KEY,
		name TEXT,
		data BLOB NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);`
	if _, err = db.Exec(canvasTableStmt); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create canvases table: %w", err)
	}

	// Stroke payloads referenced by canvas snapshots
	strokeTableStmt := `
	CREATE TABLE IF NOT EXISTS strokes (
		id TEXT PRIMARY KEY,
		brush TEXT,
		data BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	);`
	if _, err = db.Exec(strokeTableStmt); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create strokes table: %w", err)
	}

	return &sqliteStore{db}, nil
}

func (s *sqliteStore) Name() string {
	return Name
}

// Close releases the database handle.
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func (s *sqliteStore) List(ctx context.Context) ([]*core.CanvasRecord, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, data FROM canvases ORDER BY created_at ASC, rowid ASC")
	if err != nil {
		logrus.WithError(err).Error("Failed to list canvases")
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			logrus.WithError(cerr).Warn("Failed to close canvas rows")
		}
	}()

	records := []*core.CanvasRecord{}
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		var record core.CanvasRecord
		if err := json.Unmarshal(data, &record); err != nil {
			logrus.WithField("canvas_id", id).WithError(err).Warn("Failed to unmarshal canvas, skipping")
			continue
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	logrus.Debugf("Listed %d canvases", len(records))
	return records, nil
}

func (s *sqliteStore) Get(ctx context.Context, id string) (*core.CanvasRecord, error) {
	log := logrus.WithField("canvas_id", id)
	log.Debug("Retrieving canvas by ID")

	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM canvases WHERE id = ?", id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Warn("Canvas with specified ID not found")
			return nil, fmt.Errorf("canvas with id %s %w", id, core.ErrNotFound)
		}
		log.WithError(err).Error("Failed to retrieve canvas")
		return nil, err
	}

	var record core.CanvasRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal canvas %s: %w", id, err)
	}
	return &record, nil
}

func (s *sqliteStore) Save(ctx context.Context, record *core.CanvasRecord) error {
	if record == nil || record.ID == "" {
		return fmt.Errorf("canvas ID cannot be empty for save operation")
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal canvas %s: %w", record.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // Rollback on any error

	var exists bool
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM canvases WHERE id = ?", record.ID).Scan(&exists)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	now := time.Now().UnixMilli()
	if exists {
		_, err = tx.ExecContext(ctx, "UPDATE canvases SET name = ?, data = ?, updated_at = ? WHERE id = ?", record.Name, data, now, record.ID)
	} else {
		_, err = tx.ExecContext(ctx, "INSERT INTO canvases (id, name, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)", record.ID, record.Name, data, now, now)
	}
	if err != nil {
		logrus.WithField("canvas_id", record.ID).WithError(err).Error("Failed to save canvas")
		return err
	}

	return tx.Commit()
}

func (s *sqliteStore) FindStroke(ctx context.Context, id string) (*core.Stroke, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM strokes WHERE id = ?", id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("stroke with id %s %w", id, core.ErrNotFound)
		}
		logrus.WithField("stroke_id", id).WithError(err).Error("Failed to retrieve stroke")
		return nil, err
	}

	var stroke core.Stroke
	if err := json.Unmarshal(data, &stroke); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stroke %s: %w", id, err)
	}
	return &stroke, nil
}

func (s *sqliteStore) SaveStroke(ctx context.Context, stroke *core.Stroke) error {
	if stroke == nil || stroke.ID == "" {
		return fmt.Errorf("stroke ID cannot be empty for save operation")
	}
	data, err := json.Marshal(stroke)
	if err != nil {
		return fmt.Errorf("failed to marshal stroke %s: %w", stroke.ID, err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO strokes (id, brush, data, updated_at) VALUES (?, ?, ?, ?) ON CONFLICT(id) DO UPDATE SET brush = excluded.brush, data = excluded.data, updated_at = excluded.updated_at",
		stroke.ID, stroke.Brush, data, time.Now().UnixMilli())
	if err != nil {
		logrus.WithField("stroke_id", stroke.ID).WithError(err).Error("Failed to save stroke")
		return err
	}
	return nil
}
