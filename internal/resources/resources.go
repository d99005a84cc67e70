// Package resources loads textures, models and videos concurrently, reports
// progress and owns the loaded payloads until Dispose.
package resources

import (
	"errors"
	"fmt"

	"github.com/Faultbox/roomview/internal/config"
)

// Kind selects the loader for a descriptor.
type Kind string

const (
	KindTexture Kind = "texture"
	KindModel   Kind = "model"
	KindVideo   Kind = "video"
)

// ErrUnknownKind is the cause of a LoadFailure for descriptors whose kind has
// no loader.
var ErrUnknownKind = errors.New("unknown resource kind")

// ParseKind validates a manifest type string.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindTexture, KindModel, KindVideo:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Descriptor names an asset and where to load it from.
type Descriptor struct {
	Name   string
	Source string
	Kind   Kind
}

// FromManifest converts manifest items in order. Unknown types are kept so the
// store reports them as per-item failures.
func FromManifest(items []config.ManifestItem) []Descriptor {
	out := make([]Descriptor, len(items))
	for i, it := range items {
		out[i] = Descriptor{Name: it.Name, Source: it.Source, Kind: Kind(it.Type)}
	}
	return out
}

// Payload is a loaded asset. Dispose releases GPU or media handles.
type Payload interface {
	Dispose()
}

// Resource is one successfully loaded descriptor.
type Resource struct {
	Name    string
	Kind    Kind
	Payload Payload
}

// Progress is published on every settle and once at the start of a load.
type Progress struct {
	Loaded  int
	Total   int
	Percent float64
	// Item is the descriptor that just settled, nil for the start and ready
	// events.
	Item *Descriptor
}

// LoadFailure reports one descriptor that could not be loaded.
type LoadFailure struct {
	Name   string
	Source string
	Cause  error
}

func (e *LoadFailure) Error() string {
	return fmt.Sprintf("loading %s from %s: %v", e.Name, e.Source, e.Cause)
}

func (e *LoadFailure) Unwrap() error { return e.Cause }
