package window

import (
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/roomview/internal/engine/input"
)

// EventType classifies non-pointer events.
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventWindowResize
	EventKeyDown
	EventKeyUp
)

// Event represents a processed keyboard or window event.
type Event struct {
	Type   EventType
	Key    sdl.Scancode
	Width  int
	Height int
}

// Input pumps SDL events. Keyboard and window events are buffered per
// frame; pointer events go straight to Pointer listeners.
type Input struct {
	Pointer *input.Pointer

	events  []Event
	cursors map[input.Cursor]*sdl.Cursor
	log     *zap.Logger
}

// NewInput creates an input handler for a surface of the given size.
func NewInput(width, height int, log *zap.Logger) *Input {
	i := &Input{
		Pointer: input.NewPointer(input.Rect{Width: float32(width), Height: float32(height)}),
		events:  make([]Event, 0, 16),
		cursors: make(map[input.Cursor]*sdl.Cursor),
		log:     log,
	}
	i.Pointer.SetCursorBackend(i.applyCursor)
	return i
}

// Update polls SDL events. Returns true if the viewer should quit.
func (i *Input) Update() bool {
	i.events = i.events[:0]

	for ev := sdl.PollEvent(); ev != nil; ev = sdl.PollEvent() {
		switch e := ev.(type) {
		case *sdl.QuitEvent:
			i.events = append(i.events, Event{Type: EventQuit})
			return true

		case *sdl.WindowEvent:
			if e.Event == sdl.WINDOWEVENT_RESIZED || e.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
				i.Pointer.SetBounds(input.Rect{Width: float32(e.Data1), Height: float32(e.Data2)})
				i.events = append(i.events, Event{
					Type:   EventWindowResize,
					Width:  int(e.Data1),
					Height: int(e.Data2),
				})
			}

		case *sdl.KeyboardEvent:
			if e.Repeat != 0 {
				continue
			}
			if e.Type == sdl.KEYDOWN {
				i.events = append(i.events, Event{Type: EventKeyDown, Key: e.Keysym.Scancode})
			} else if e.Type == sdl.KEYUP {
				i.events = append(i.events, Event{Type: EventKeyUp, Key: e.Keysym.Scancode})
			}

		case *sdl.MouseMotionEvent:
			i.Pointer.Dispatch(input.PointerEvent{
				Kind: input.PointerMove,
				X:    float32(e.X),
				Y:    float32(e.Y),
				DX:   float32(e.XRel),
				DY:   float32(e.YRel),
			})

		case *sdl.MouseButtonEvent:
			kind := input.PointerDown
			if e.Type == sdl.MOUSEBUTTONUP {
				kind = input.PointerUp
			}
			i.Pointer.Dispatch(input.PointerEvent{
				Kind:   kind,
				X:      float32(e.X),
				Y:      float32(e.Y),
				Button: e.Button,
			})

		case *sdl.MouseWheelEvent:
			i.Pointer.Dispatch(input.PointerEvent{Kind: input.PointerWheel, Wheel: float32(e.Y)})
		}
	}

	return false
}

// Events returns the events from the last Update.
func (i *Input) Events() []Event {
	return i.events
}

// IsKeyPressed checks if a specific key was pressed this frame.
func (i *Input) IsKeyPressed(scancode sdl.Scancode) bool {
	for _, e := range i.events {
		if e.Type == EventKeyDown && e.Key == scancode {
			return true
		}
	}
	return false
}

func (i *Input) applyCursor(c input.Cursor) {
	cur, ok := i.cursors[c]
	if !ok {
		id := sdl.SystemCursor(sdl.SYSTEM_CURSOR_ARROW)
		switch c {
		case input.CursorPointer:
			id = sdl.SystemCursor(sdl.SYSTEM_CURSOR_HAND)
		case input.CursorMove:
			id = sdl.SystemCursor(sdl.SYSTEM_CURSOR_SIZEALL)
		}
		cur = sdl.CreateSystemCursor(id)
		if cur == nil {
			i.log.Warn("system cursor unavailable", zap.Stringer("cursor", c))
			return
		}
		i.cursors[c] = cur
	}
	sdl.SetCursor(cur)
}

// Close frees the system cursors.
func (i *Input) Close() {
	for c, cur := range i.cursors {
		sdl.FreeCursor(cur)
		delete(i.cursors, c)
	}
}
