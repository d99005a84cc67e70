package assets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/roomview/pkg/grf"
)

func setup(t *testing.T) *Manager {
	t.Helper()
	dir := t.TempDir()

	if err := os.MkdirAll(filepath.Join(dir, "textures"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "textures", "wall.png"), []byte("disk"), 0644); err != nil {
		t.Fatal(err)
	}

	archivePath := filepath.Join(dir, "room.grf")
	f, err := os.Create(archivePath)
	if err != nil {
		t.Fatal(err)
	}
	files := []grf.File{
		{Name: "video/screen.mp4", Data: []byte("archived video")},
		{Name: "models/desk.glb", Data: []byte("v1")},
	}
	if err := grf.Write(f, files); err != nil {
		t.Fatal(err)
	}
	f.Close()

	m := NewManager(dir, nil)
	if err := m.AddArchive(archivePath); err != nil {
		t.Fatalf("AddArchive: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

func TestFetch(t *testing.T) {
	m := setup(t)
	ctx := context.Background()

	tests := []struct {
		source string
		want   string
	}{
		{"textures/wall.png", "disk"},
		{"grf://video/screen.mp4", "archived video"},
		{`grf://MODELS\desk.glb`, "v1"},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			got, err := m.Fetch(ctx, tt.source)
			if err != nil {
				t.Fatalf("Fetch: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Fetch = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFetchMissing(t *testing.T) {
	m := setup(t)
	for _, source := range []string{"nope.png", "grf://nope.png"} {
		if _, err := m.Fetch(context.Background(), source); !errors.Is(err, ErrNotFound) {
			t.Errorf("Fetch(%q) error = %v, want ErrNotFound", source, err)
		}
	}
}

func TestFetchCanceled(t *testing.T) {
	m := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Fetch(ctx, "textures/wall.png"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestFetchCaches(t *testing.T) {
	m := setup(t)
	ctx := context.Background()

	if _, err := m.Fetch(ctx, "textures/wall.png"); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(m.Path("textures/wall.png")); err != nil {
		t.Fatal(err)
	}
	got, err := m.Fetch(ctx, "textures/wall.png")
	if err != nil || string(got) != "disk" {
		t.Errorf("cached Fetch = %q, %v", got, err)
	}
	hits, misses := m.cache.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("Stats() = %d hits, %d misses", hits, misses)
	}
}

func TestArchivePriority(t *testing.T) {
	m := setup(t)

	override := filepath.Join(t.TempDir(), "patch.grf")
	f, err := os.Create(override)
	if err != nil {
		t.Fatal(err)
	}
	if err := grf.Write(f, []grf.File{{Name: "models/desk.glb", Data: []byte("v2")}}); err != nil {
		t.Fatal(err)
	}
	f.Close()
	if err := m.AddArchive(override); err != nil {
		t.Fatal(err)
	}

	got, err := m.Fetch(context.Background(), "grf://models/desk.glb")
	if err != nil || string(got) != "v2" {
		t.Errorf("Fetch = %q, %v; want the last mounted archive to win", got, err)
	}
}

func TestLocalize(t *testing.T) {
	m := setup(t)
	ctx := context.Background()

	p, cleanup, err := m.Localize(ctx, "textures/wall.png")
	if err != nil {
		t.Fatalf("Localize: %v", err)
	}
	cleanup()
	if p != m.Path("textures/wall.png") {
		t.Errorf("Localize path = %s", p)
	}
	if _, err := os.Stat(p); err != nil {
		t.Errorf("plain source removed by cleanup: %v", err)
	}

	p, cleanup, err = m.Localize(ctx, "grf://video/screen.mp4")
	if err != nil {
		t.Fatalf("Localize: %v", err)
	}
	data, err := os.ReadFile(p)
	if err != nil || string(data) != "archived video" {
		t.Errorf("extracted = %q, %v", data, err)
	}
	if filepath.Ext(p) != ".mp4" {
		t.Errorf("extension lost: %s", p)
	}
	cleanup()
	if _, err := os.Stat(p); !os.IsNotExist(err) {
		t.Errorf("temp file still present after cleanup")
	}

	if _, _, err := m.Localize(ctx, "missing.mp4"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
