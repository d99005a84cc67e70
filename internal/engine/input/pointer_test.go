package input

import (
	"go/parser"
	"go/token"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func collect(p *Pointer, kind PointerKind) *[]PointerEvent {
	var got []PointerEvent
	p.AddPointerListener(kind, func(e PointerEvent) { got = append(got, e) })
	return &got
}

func TestClickSynthesized(t *testing.T) {
	p := NewPointer(Rect{Width: 800, Height: 600})
	clicks := collect(p, PointerClick)

	p.Dispatch(PointerEvent{Kind: PointerDown, X: 100, Y: 100, Button: 1})
	p.Dispatch(PointerEvent{Kind: PointerMove, X: 102, Y: 101})
	p.Dispatch(PointerEvent{Kind: PointerUp, X: 102, Y: 101, Button: 1})

	if len(*clicks) != 1 {
		t.Fatalf("expected 1 click, got %d", len(*clicks))
	}
	if c := (*clicks)[0]; c.X != 102 || c.Y != 101 || c.Kind != PointerClick {
		t.Errorf("click = %+v", c)
	}
}

func TestDragSuppressesClick(t *testing.T) {
	p := NewPointer(Rect{Width: 800, Height: 600})
	clicks := collect(p, PointerClick)
	ups := collect(p, PointerUp)

	p.Dispatch(PointerEvent{Kind: PointerDown, X: 100, Y: 100, Button: 1})
	p.Dispatch(PointerEvent{Kind: PointerMove, X: 160, Y: 100})
	p.Dispatch(PointerEvent{Kind: PointerMove, X: 101, Y: 100})
	p.Dispatch(PointerEvent{Kind: PointerUp, X: 101, Y: 100, Button: 1})

	if len(*clicks) != 0 {
		t.Errorf("drag should not click, got %d clicks", len(*clicks))
	}
	if len(*ups) != 1 {
		t.Errorf("expected the up event, got %d", len(*ups))
	}
}

func TestMoveCarriesHeldButtonsAndDelta(t *testing.T) {
	p := NewPointer(Rect{Width: 800, Height: 600})
	moves := collect(p, PointerMove)

	p.Dispatch(PointerEvent{Kind: PointerMove, X: 10, Y: 10})
	p.Dispatch(PointerEvent{Kind: PointerDown, X: 10, Y: 10, Button: 1})
	p.Dispatch(PointerEvent{Kind: PointerMove, X: 15, Y: 8})

	last := (*moves)[len(*moves)-1]
	if !last.Held(1) {
		t.Error("left button should be held")
	}
	if last.DX != 5 || last.DY != -2 {
		t.Errorf("delta = (%v, %v), want (5, -2)", last.DX, last.DY)
	}

	p.Dispatch(PointerEvent{Kind: PointerUp, X: 15, Y: 8, Button: 1})
	p.Dispatch(PointerEvent{Kind: PointerMove, X: 16, Y: 8})
	if (*moves)[len(*moves)-1].Held(1) {
		t.Error("button released but still reported held")
	}
}

func TestRemoveListener(t *testing.T) {
	p := NewPointer(Rect{})
	var calls int
	tok := p.AddPointerListener(PointerMove, func(PointerEvent) { calls++ })
	if p.Listeners(PointerMove) != 1 {
		t.Fatal("listener not registered")
	}
	p.RemovePointerListener(tok)
	p.Dispatch(PointerEvent{Kind: PointerMove})
	if calls != 0 || p.Listeners(PointerMove) != 0 {
		t.Errorf("calls=%d listeners=%d", calls, p.Listeners(PointerMove))
	}
}

func TestSetCursorCallsBackendOnChange(t *testing.T) {
	p := NewPointer(Rect{})
	var applied []Cursor
	p.SetCursorBackend(func(c Cursor) { applied = append(applied, c) })

	p.SetCursor(CursorPointer)
	p.SetCursor(CursorPointer)
	p.SetCursor(CursorDefault)

	if len(applied) != 2 || applied[0] != CursorPointer || applied[1] != CursorDefault {
		t.Errorf("applied = %v", applied)
	}
	if p.Cursor() != CursorDefault {
		t.Errorf("Cursor() = %v", p.Cursor())
	}
}

// Picking and the gizmo depend on this package, so it must build without
// cgo or platform libraries.
func TestNoPlatformImports(t *testing.T) {
	files, err := filepath.Glob("*.go")
	if err != nil {
		t.Fatal(err)
	}
	fset := token.NewFileSet()
	for _, name := range files {
		f, err := parser.ParseFile(fset, name, nil, parser.ImportsOnly)
		if err != nil {
			t.Fatalf("parse %s: %v", name, err)
		}
		for _, imp := range f.Imports {
			path, _ := strconv.Unquote(imp.Path.Value)
			if path == "C" || strings.Contains(path, "go-sdl2") || strings.Contains(path, "go-gl") {
				t.Errorf("%s imports %s", name, path)
			}
		}
	}
}
