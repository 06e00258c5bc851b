package canvases

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"

	"whiteboard/brush"
	"whiteboard/canvas"
	"whiteboard/core"
)

type (
	// Board is the drawing state the handlers operate on.
	Board interface {
		ActiveCanvas() (*canvas.Canvas, bool)
		Bindings() []canvas.Binding
		BrushNames() []string
		ActiveBrush() (string, bool)
		Select(ctx context.Context, name string, in brush.Input) bool
		Input(ctx context.Context, in brush.Input) brush.State
		CommitStrokeAction(ctx context.Context, action string, stroke *core.Stroke)
	}

	BindingResponse struct {
		Source string             `json:"source"`
		Target *core.CanvasRecord `json:"target"`
	}

	BrushesResponse struct {
		Brushes []string `json:"brushes"`
		Active  string   `json:"active,omitempty"`
	}

	InputResponse struct {
		State  string             `json:"state"`
		Active string             `json:"active,omitempty"`
		Canvas *core.CanvasRecord `json:"canvas,omitempty"`
	}
)

func renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": msg})
}

// HandleGetCanvas returns the snapshot of the active canvas.
func HandleGetCanvas(board Board) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := board.ActiveCanvas()
		if !ok {
			renderError(w, r, http.StatusNotFound, "No active canvas")
			return
		}
		render.JSON(w, r, c.Snapshot())
	}
}

// HandleListCanvases returns every canvas binding with the name of its store.
func HandleListCanvases(board Board) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bindings := board.Bindings()
		resp := make([]BindingResponse, 0, len(bindings))
		for _, b := range bindings {
			entry := BindingResponse{Target: b.Target}
			if b.Source != nil {
				entry.Source = b.Source.Name()
			}
			resp = append(resp, entry)
		}
		render.JSON(w, r, resp)
	}
}

// HandleSetAttribute assigns the JSON request body to an attribute of the active canvas.
func HandleSetAttribute(board Board) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		if key == "" {
			renderError(w, r, http.StatusBadRequest, "Attribute key is required")
			return
		}

		var value any
		if err := json.NewDecoder(r.Body).Decode(&value); err != nil {
			logrus.WithField("error", err).Warn("Failed to decode attribute value")
			renderError(w, r, http.StatusBadRequest, "Invalid request body")
			return
		}

		c, ok := board.ActiveCanvas()
		if !ok {
			renderError(w, r, http.StatusNotFound, "No active canvas")
			return
		}

		if err := c.Set(r.Context(), key, value); err != nil {
			logrus.WithFields(logrus.Fields{
				"error":     err,
				"canvas_id": c.ID(),
				"key":       key,
			}).Warn("Failed to set canvas attribute")
			if errors.Is(err, canvas.ErrReservedAttribute) || errors.Is(err, canvas.ErrUnserializableAttribute) {
				renderError(w, r, http.StatusBadRequest, err.Error())
				return
			}
			renderError(w, r, http.StatusInternalServerError, "Failed to set attribute")
			return
		}

		render.JSON(w, r, c.Snapshot())
	}
}

// HandleListBrushes lists registered brushes and the current selection.
func HandleListBrushes(board Board) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := BrushesResponse{Brushes: board.BrushNames()}
		if name, ok := board.ActiveBrush(); ok {
			resp.Active = name
		}
		render.JSON(w, r, resp)
	}
}

// HandleSelectTool activates the tool selector of the named brush.
func HandleSelectTool(board Board) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if !board.Select(r.Context(), name, &brush.Pointer{}) {
			renderError(w, r, http.StatusNotFound, "Brush not found")
			return
		}
		render.JSON(w, r, BrushesResponse{Brushes: board.BrushNames(), Active: name})
	}
}

// HandleInput delivers a pointer input described by the request body.
func HandleInput(board Board) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// An empty body is a plain input with no modifiers
		var in brush.Pointer
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil && !errors.Is(err, io.EOF) {
			logrus.WithField("error", err).Warn("Failed to decode input")
			renderError(w, r, http.StatusBadRequest, "Invalid request body")
			return
		}

		state := board.Input(r.Context(), &in)

		resp := InputResponse{State: state.String()}
		if name, ok := board.ActiveBrush(); ok {
			resp.Active = name
		}
		if c, ok := board.ActiveCanvas(); ok {
			resp.Canvas = c.Snapshot()
		}
		render.JSON(w, r, resp)
	}
}

// HandleUpdateStroke commits an edit of the stroke named in the URL. The
// body is the full stroke record; its strokeId is forced to the URL id.
func HandleUpdateStroke(board Board) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			renderError(w, r, http.StatusBadRequest, "Stroke id is required")
			return
		}

		var record map[string]any
		if err := json.NewDecoder(r.Body).Decode(&record); err != nil || record == nil {
			renderError(w, r, http.StatusBadRequest, "Invalid request body")
			return
		}
		record[core.StrokeIDKey] = id

		stroke, err := core.RestoreStroke(record)
		if err != nil {
			renderError(w, r, http.StatusBadRequest, err.Error())
			return
		}

		board.CommitStrokeAction(r.Context(), "update", stroke)
		render.JSON(w, r, stroke.Record())
	}
}
