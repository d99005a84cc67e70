package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const testManifest = `
groups:
  - name: base
    items:
      - { name: roomModel, source: roomModel.glb, type: model }
      - { name: bakedDayTexture, source: bakedDay.jpg, type: texture }
  - name: screens
    data: { loop: true }
    items:
      - { name: pcScreenVideo, source: videoStream.mp4, type: video }
`

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest([]byte(testManifest))
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}

	items := m.Items()
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}

	wantOrder := []string{"roomModel", "bakedDayTexture", "pcScreenVideo"}
	for i, name := range wantOrder {
		if items[i].Name != name {
			t.Errorf("item %d: expected %s, got %s", i, name, items[i].Name)
		}
	}
	if items[2].Type != "video" {
		t.Errorf("expected video type, got %s", items[2].Type)
	}

	g, ok := m.Group("screens")
	if !ok {
		t.Fatal("group screens not found")
	}
	if g.Data["loop"] != true {
		t.Errorf("expected group data loop=true, got %v", g.Data["loop"])
	}
	if _, ok := m.Group("missing"); ok {
		t.Error("unexpected group found")
	}
}

func TestParseManifestRejectsIncompleteItems(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no name", "groups:\n  - name: a\n    items:\n      - { source: a.png, type: texture }\n"},
		{"no source", "groups:\n  - name: a\n    items:\n      - { name: a, type: texture }\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.yaml))
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestParseManifestKeepsUnknownType(t *testing.T) {
	m, err := ParseManifest([]byte("groups:\n  - name: a\n    items:\n      - { name: a, source: a.ogg, type: audio }\n"))
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if m.Items()[0].Type != "audio" {
		t.Errorf("expected type preserved, got %s", m.Items()[0].Type)
	}
}

func TestLoadManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	if err := os.WriteFile(path, []byte(testManifest), 0644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if len(m.Groups) != 2 {
		t.Errorf("expected 2 groups, got %d", len(m.Groups))
	}

	if _, err := LoadManifest(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Error("expected error for missing manifest")
	}
}
