package video

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/roomview/internal/logger"
)

// Localizer maps a source to a local file path. cleanup releases any
// temporary copy.
type Localizer interface {
	Localize(ctx context.Context, source string) (path string, cleanup func(), err error)
}

// Loader opens videos and starts them playing.
type Loader struct {
	localizer Localizer
	open      Opener
	autoplay  bool
	log       *zap.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithOpener replaces the media decoder.
func WithOpener(open Opener) LoaderOption {
	return func(l *Loader) { l.open = open }
}

// WithAutoplay controls whether loaded videos start playing. Default true.
func WithAutoplay(on bool) LoaderOption {
	return func(l *Loader) { l.autoplay = on }
}

// WithLogger sets the loader's logger.
func WithLogger(log *zap.Logger) LoaderOption {
	return func(l *Loader) { l.log = log }
}

// NewLoader creates a video loader.
func NewLoader(localizer Localizer, opts ...LoaderOption) *Loader {
	l := &Loader{localizer: localizer, open: OpenMedia, autoplay: true}
	for _, opt := range opts {
		opt(l)
	}
	l.log = logger.OrNop(l.log)
	return l
}

// Load opens source and returns once its first frame is decoded.
func (l *Loader) Load(ctx context.Context, name, source string) (*Video, error) {
	path, cleanup, err := l.localizer.Localize(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("locating %s: %w", source, err)
	}

	src, err := l.open(path)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("opening %s: %w", source, err)
	}

	v, err := Open(ctx, name, src, cleanup, l.log)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", source, err)
	}
	if l.autoplay {
		v.Play()
	}
	return v, nil
}
