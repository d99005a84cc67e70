// Package video plays muted, looping videos into textures.
package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/roomview/internal/engine/texture"
	"github.com/Faultbox/roomview/internal/logger"
)

// Video streams decoded frames into a texture. Playback runs on its own
// goroutine; the texture uploads the latest frame the next time it is bound.
type Video struct {
	Name string

	tex     *texture.Texture
	src     Source
	cleanup func()
	log     *zap.Logger
	period  time.Duration

	mu       sync.Mutex
	playing  bool
	started  bool
	disposed bool
	frames   int
	stop     chan struct{}
	done     chan struct{}
}

// Open decodes the first frame of src and returns a paused video showing it.
// Open fails when no frame can be decoded. cleanup runs on Dispose, or
// immediately on failure.
func Open(ctx context.Context, name string, src Source, cleanup func(), log *zap.Logger) (*Video, error) {
	if cleanup == nil {
		cleanup = func() {}
	}

	first, err := firstFrame(ctx, src)
	if err != nil {
		src.Close()
		cleanup()
		return nil, err
	}

	fps := src.FrameRate()
	if fps <= 0 {
		fps = defaultFrameRate
	}

	tex := texture.New(name, first)
	return &Video{
		Name:    name,
		tex:     tex,
		src:     src,
		cleanup: cleanup,
		log:     logger.OrNop(log),
		period:  time.Duration(float64(time.Second) / fps),
		frames:  1,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}, nil
}

func firstFrame(ctx context.Context, src Source) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := src.NextFrame()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("no video frames")
	}
	if err != nil {
		return nil, fmt.Errorf("decoding first frame: %w", err)
	}
	return img, nil
}

// Texture returns the texture receiving frames.
func (v *Video) Texture() *texture.Texture { return v.tex }

// Bind uploads the latest frame and returns the texture handle.
func (v *Video) Bind(u texture.Uploader) (uint32, error) {
	return v.tex.Bind(u)
}

// Muted is always true; audio is never decoded.
func (v *Video) Muted() bool { return true }

// Play starts or resumes playback.
func (v *Video) Play() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.disposed {
		return
	}
	v.playing = true
	if !v.started {
		v.started = true
		go v.run()
	}
}

// Pause stops advancing frames; the current frame stays on the texture.
func (v *Video) Pause() {
	v.mu.Lock()
	v.playing = false
	v.mu.Unlock()
}

// Playing reports whether frames are advancing.
func (v *Video) Playing() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.playing
}

// Frames returns how many frames have been decoded, the first one included.
func (v *Video) Frames() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.frames
}

func (v *Video) run() {
	defer close(v.done)

	ticker := time.NewTicker(v.period)
	defer ticker.Stop()

	for {
		select {
		case <-v.stop:
			return
		case <-ticker.C:
		}
		if !v.Playing() {
			continue
		}

		img, err := v.src.NextFrame()
		if errors.Is(err, io.EOF) {
			if err := v.src.Rewind(); err != nil {
				v.log.Warn("video rewind failed, pausing", zap.String("name", v.Name), zap.Error(err))
				v.Pause()
			}
			continue
		}
		if err != nil {
			v.log.Warn("video decode failed, pausing", zap.String("name", v.Name), zap.Error(err))
			v.Pause()
			continue
		}

		v.tex.SetImage(img)
		v.mu.Lock()
		v.frames++
		v.mu.Unlock()
	}
}

// Dispose pauses playback, stops the decoder and releases the texture. Safe to
// call repeatedly.
func (v *Video) Dispose() {
	v.mu.Lock()
	if v.disposed {
		v.mu.Unlock()
		return
	}
	v.disposed = true
	v.playing = false
	started := v.started
	v.mu.Unlock()

	close(v.stop)
	if started {
		<-v.done
	}

	if err := v.src.Close(); err != nil {
		v.log.Warn("closing video source", zap.String("name", v.Name), zap.Error(err))
	}
	v.tex.Dispose()
	v.cleanup()
}
