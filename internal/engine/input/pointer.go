// Package input is the platform-independent pointer surface used by picking
// and the transform gizmo. Platform event pumps feed it through Dispatch.
package input

import (
	"strconv"

	"github.com/Faultbox/roomview/internal/event"
)

// PointerKind classifies pointer events.
type PointerKind int

const (
	PointerMove PointerKind = iota
	PointerDown
	PointerUp
	// PointerClick follows a PointerUp whose press did not travel further
	// than the click slop.
	PointerClick
	PointerWheel
)

func (k PointerKind) topic() string {
	return strconv.Itoa(int(k))
}

// Mouse buttons, numbered as SDL numbers them.
const (
	ButtonLeft   uint8 = 1
	ButtonMiddle uint8 = 2
	ButtonRight  uint8 = 3
)

// PointerEvent is one pointer event in surface pixel coordinates.
type PointerEvent struct {
	Kind   PointerKind
	X, Y   float32
	DX, DY float32 // Movement since the previous event
	Wheel  float32
	Button uint8
	// Buttons held during a move, as a bit set (1 << button).
	Buttons uint32
}

// Held reports whether button was held during the event.
func (e PointerEvent) Held(button uint8) bool {
	return e.Buttons&(1<<button) != 0
}

// Rect is the pointer surface in pixels.
type Rect struct {
	X, Y, Width, Height float32
}

// Cursor is the pointer shape shown over the surface.
type Cursor int

const (
	CursorDefault Cursor = iota
	CursorPointer
	CursorMove
)

func (c Cursor) String() string {
	switch c {
	case CursorPointer:
		return "pointer"
	case CursorMove:
		return "move"
	default:
		return "default"
	}
}

// PointerSource is the surface interactive controllers listen on.
type PointerSource interface {
	AddPointerListener(kind PointerKind, fn func(PointerEvent)) event.Token
	RemovePointerListener(tok event.Token)
	Bounds() Rect
	SetCursor(c Cursor)
}

// DefaultClickSlop is how far, in pixels, a press may travel and still click.
const DefaultClickSlop = 4

// Pointer is a PointerSource fed by Dispatch.
type Pointer struct {
	ClickSlop float32

	listeners *event.Channel[PointerEvent]
	bounds    Rect
	cursor    Cursor
	backend   func(Cursor)

	pressed       bool
	downX, downY  float32
	travel        float32
	lastX, lastY  float32
	buttons       uint32
	haveLastPoint bool
}

// NewPointer creates a pointer with the given surface bounds.
func NewPointer(bounds Rect) *Pointer {
	return &Pointer{
		ClickSlop: DefaultClickSlop,
		listeners: event.NewChannel[PointerEvent](),
		bounds:    bounds,
	}
}

// AddPointerListener implements PointerSource.
func (p *Pointer) AddPointerListener(kind PointerKind, fn func(PointerEvent)) event.Token {
	return p.listeners.Subscribe(kind.topic(), fn)
}

// RemovePointerListener implements PointerSource.
func (p *Pointer) RemovePointerListener(tok event.Token) {
	p.listeners.Unsubscribe(tok)
}

// Listeners returns the number of listeners for kind.
func (p *Pointer) Listeners(kind PointerKind) int {
	return p.listeners.Len(kind.topic())
}

// Bounds implements PointerSource.
func (p *Pointer) Bounds() Rect {
	return p.bounds
}

// SetBounds updates the surface after a resize.
func (p *Pointer) SetBounds(r Rect) {
	p.bounds = r
}

// SetCursor implements PointerSource.
func (p *Pointer) SetCursor(c Cursor) {
	if c == p.cursor {
		return
	}
	p.cursor = c
	if p.backend != nil {
		p.backend(c)
	}
}

// Cursor returns the last cursor set.
func (p *Pointer) Cursor() Cursor {
	return p.cursor
}

// SetCursorBackend installs the function that actually changes the cursor.
func (p *Pointer) SetCursorBackend(fn func(Cursor)) {
	p.backend = fn
}

// Dispatch delivers e to listeners, tracking press travel to synthesize
// PointerClick after PointerUp.
func (p *Pointer) Dispatch(e PointerEvent) {
	if p.haveLastPoint && e.DX == 0 && e.DY == 0 && e.Kind == PointerMove {
		e.DX, e.DY = e.X-p.lastX, e.Y-p.lastY
	}
	if e.Kind != PointerWheel {
		p.lastX, p.lastY, p.haveLastPoint = e.X, e.Y, true
	}

	switch e.Kind {
	case PointerDown:
		p.pressed = true
		p.downX, p.downY, p.travel = e.X, e.Y, 0
		p.buttons |= 1 << e.Button
	case PointerMove:
		if p.pressed {
			dx, dy := e.X-p.downX, e.Y-p.downY
			p.travel = max(p.travel, dx*dx+dy*dy)
		}
		e.Buttons = p.buttons
	case PointerUp:
		p.buttons &^= 1 << e.Button
	}

	p.listeners.Publish(e.Kind.topic(), e)

	if e.Kind == PointerUp && p.pressed {
		p.pressed = p.buttons != 0
		if p.travel <= p.ClickSlop*p.ClickSlop {
			click := e
			click.Kind = PointerClick
			p.listeners.Publish(PointerClick.topic(), click)
		}
	}
}
