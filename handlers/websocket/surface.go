package websocket

import (
	"context"
	"fmt"
	"reflect"
	"regexp"

	"github.com/sirupsen/logrus"
	"github.com/zishang520/engine.io/v2/types"
	socketio "github.com/zishang520/socket.io/v2/socket"

	"whiteboard/brush"
	"whiteboard/canvas"
	"whiteboard/events"
)

// surfaceRoom is joined by every connected rendering surface.
const surfaceRoom = socketio.Room("surface")

type ackInvoker func(err error, payload map[string]any)

// Board is the drawing state driven by connected surfaces.
type Board interface {
	ActiveCanvas() (*canvas.Canvas, bool)
	BrushNames() []string
	Select(ctx context.Context, name string, in brush.Input) bool
	Input(ctx context.Context, in brush.Input) brush.State
}

// SetupSocketIO serves rendering surfaces: tool selections and inputs come
// in, committed strokes and canvas updates are pushed out.
func SetupSocketIO(board Board, bus *events.Bus) *socketio.Server {
	opts := socketio.DefaultServerOptions()
	opts.SetMaxHttpBufferSize(5000000)
	opts.SetPath("/socket.io")
	opts.SetAllowEIO3(true)
	localhostOrigin := regexp.MustCompile(`^https?://(localhost|127\.0\.0\.1|\[::1\])(:\d+)?$`)
	opts.SetCors(&types.Cors{
		Origin: []any{
			"tauri://localhost",
			localhostOrigin,
		},
		Credentials: true,
	})
	srv := socketio.NewServer(nil, opts)

	forwardCommits(srv, bus)

	//nolint:errcheck // Socket.IO event handlers do not return useful errors
	srv.On("connection", func(clients ...any) {
		socket, ok := clients[0].(*socketio.Socket)
		if !ok {
			return
		}
		log := logrus.WithField("socket_id", socket.Id())

		socket.Join(surfaceRoom)
		_ = socket.Emit("init-surface", initPayload(board))
		log.Debug("Surface connected")

		//nolint:errcheck // Socket.IO event handlers do not return useful errors
		socket.On("tool-select", func(datas ...any) {
			ack, args := extractAck(datas)
			name, _ := firstString(args)
			if name == "" {
				respondWithAck(socket, ack, "tool-select-ack", errorPayload(fmt.Errorf("brush name is required")))
				return
			}
			if !board.Select(context.Background(), name, &brush.Pointer{}) {
				respondWithAck(socket, ack, "tool-select-ack", errorPayload(fmt.Errorf("unknown brush %q", name)))
				return
			}
			log.WithField("brush", name).Debug("Tool selected")
			respondWithAck(socket, ack, "tool-select-ack", map[string]any{"status": "ok", "brush": name})
		})

		//nolint:errcheck // Socket.IO event handlers do not return useful errors
		socket.On("input", func(datas ...any) {
			ack, args := extractAck(datas)
			var raw any
			if len(args) > 0 {
				raw = args[0]
			}
			in, err := parseInput(raw)
			if err != nil {
				respondWithAck(socket, ack, "input-ack", errorPayload(err))
				return
			}
			state := board.Input(context.Background(), in)
			respondWithAck(socket, ack, "input-ack", map[string]any{"status": "ok", "state": state.String()})
		})

		socket.On("disconnect", func(datas ...any) {
			log.Debug("Surface disconnected")
			socket.RemoveAllListeners("")
		})
	})

	return srv
}

// forwardCommits pushes every commit event to the connected surfaces.
func forwardCommits(srv *socketio.Server, bus *events.Bus) {
	events.On(bus, func(_ context.Context, e *events.StrokeCommitted) error {
		if e.Stroke == nil {
			return nil
		}
		return srv.To(surfaceRoom).Emit("stroke-commit", strokePayload(e))
	})
	events.On(bus, func(_ context.Context, e *events.CanvasUpdated) error {
		if e.Canvas == nil {
			return nil
		}
		return srv.To(surfaceRoom).Emit("canvas-update", map[string]any{
			"event":  e.Name(),
			"key":    e.Key,
			"canvas": e.Canvas.Snapshot().Flat(),
		})
	})
}

func initPayload(board Board) map[string]any {
	payload := map[string]any{"brushes": board.BrushNames()}
	if c, ok := board.ActiveCanvas(); ok {
		payload["canvas"] = c.Snapshot().Flat()
	}
	return payload
}

func strokePayload(e *events.StrokeCommitted) map[string]any {
	payload := map[string]any{
		"event":  e.Name(),
		"module": e.Module,
		"action": e.Action,
		"step":   e.Step,
		"stroke": e.Stroke.Record(),
	}
	if e.Brush != nil {
		payload["brush"] = e.Brush.Name()
	}
	return payload
}

// parseInput converts a decoded input message into a brush.Pointer. A missing
// message is a plain input with no modifiers.
func parseInput(raw any) (*brush.Pointer, error) {
	in := &brush.Pointer{}
	if raw == nil {
		return in, nil
	}
	fields, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("input must be an object, got %T", raw)
	}
	for key, dst := range map[string]*bool{
		"defaultPrevented": &in.Handled,
		"sustain":          &in.Shift,
		"withinStroke":     &in.InStroke,
		"withinToolbox":    &in.InToolbox,
	} {
		v, present := fields[key]
		if !present || v == nil {
			continue
		}
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("input field %s must be a boolean, got %T", key, v)
		}
		*dst = b
	}
	return in, nil
}

func firstString(args []any) (string, bool) {
	if len(args) == 0 {
		return "", false
	}
	s, ok := args[0].(string)
	return s, ok
}

func errorPayload(err error) map[string]any {
	return map[string]any{
		"status": "error",
		"error":  err.Error(),
	}
}

func extractAck(datas []any) (ack ackInvoker, args []any) {
	if len(datas) == 0 {
		return nil, datas
	}

	ack = wrapAck(datas[len(datas)-1])
	if ack == nil {
		return nil, datas
	}
	return ack, datas[:len(datas)-1]
}

// wrapAck adapts a client acknowledgement callback of any shape. Single
// parameter callbacks receive the error if any, else the payload; two
// parameter callbacks receive (error, payload).
func wrapAck(candidate any) ackInvoker {
	if candidate == nil {
		return nil
	}
	value := reflect.ValueOf(candidate)
	if value.Kind() != reflect.Func {
		return nil
	}

	typ := value.Type()
	return func(err error, payload map[string]any) {
		args := make([]reflect.Value, typ.NumIn())
		for i := range args {
			var arg any
			switch {
			case typ.NumIn() == 1 && err != nil:
				arg = err
			case typ.NumIn() == 1:
				arg = payload
			case i == 0:
				arg = err
			case i == 1:
				arg = payload
			}
			args[i] = coerceValue(arg, typ.In(i))
		}
		value.Call(args)
	}
}

func coerceValue(value any, targetType reflect.Type) reflect.Value {
	if value == nil {
		return reflect.Zero(targetType)
	}
	rv := reflect.ValueOf(value)
	switch {
	case rv.Type().AssignableTo(targetType):
		return rv
	case rv.Type().ConvertibleTo(targetType):
		return rv.Convert(targetType)
	case targetType.Kind() == reflect.String:
		return reflect.ValueOf(fmt.Sprint(value)).Convert(targetType)
	}
	return reflect.Zero(targetType)
}

func respondWithAck(socket *socketio.Socket, ack ackInvoker, event string, payload map[string]any) {
	if ack != nil {
		var ackErr error
		if msg, ok := payload["error"].(string); ok {
			ackErr = fmt.Errorf("%s", msg)
		}
		ack(ackErr, payload)
	}
	_ = socket.Emit(event, payload)
}
