package resources

import (
	"context"

	"github.com/Faultbox/roomview/internal/engine/model"
	"github.com/Faultbox/roomview/internal/engine/texture"
	"github.com/Faultbox/roomview/internal/engine/video"
)

// Loader produces the payload for one descriptor.
type Loader interface {
	Load(ctx context.Context, d Descriptor) (Payload, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, d Descriptor) (Payload, error)

func (f LoaderFunc) Load(ctx context.Context, d Descriptor) (Payload, error) {
	return f(ctx, d)
}

// Loaders maps each kind to its loader.
type Loaders map[Kind]Loader

type disposer interface {
	Dispose()
}

// TextureLoader adapts a texture loader.
func TextureLoader(l *texture.Loader) Loader {
	return LoaderFunc(func(ctx context.Context, d Descriptor) (Payload, error) {
		t, err := l.Load(ctx, d.Name, d.Source)
		if err != nil {
			return nil, err
		}
		return t, nil
	})
}

// modelLoader keeps the model loader reachable for Dispose, which releases
// the geometry decoder.
type modelLoader struct {
	l *model.Loader
}

// ModelLoader adapts a model loader.
func ModelLoader(l *model.Loader) Loader {
	return modelLoader{l: l}
}

func (m modelLoader) Load(ctx context.Context, d Descriptor) (Payload, error) {
	mdl, err := m.l.Load(ctx, d.Name, d.Source)
	if err != nil {
		return nil, err
	}
	return mdl, nil
}

func (m modelLoader) Dispose() { m.l.Dispose() }

// VideoLoader adapts a video loader.
func VideoLoader(l *video.Loader) Loader {
	return LoaderFunc(func(ctx context.Context, d Descriptor) (Payload, error) {
		v, err := l.Load(ctx, d.Name, d.Source)
		if err != nil {
			return nil, err
		}
		return v, nil
	})
}
