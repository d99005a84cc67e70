package video

import (
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/zergon321/reisen"
)

// ErrNoVideoStream is returned for media without a video stream.
var ErrNoVideoStream = errors.New("media has no video stream")

// Source decodes frames from a media file. A Source is used by one goroutine
// at a time.
type Source interface {
	// FrameRate returns frames per second.
	FrameRate() float64
	// NextFrame returns the next decoded frame or io.EOF at the end.
	NextFrame() (*image.RGBA, error)
	Rewind() error
	Close() error
}

// Opener opens a Source for a local file.
type Opener func(path string) (Source, error)

const defaultFrameRate = 30

// mediaSource reads the first video stream of a file through FFmpeg. Audio
// streams are never opened, so playback is always muted.
type mediaSource struct {
	media  *reisen.Media
	stream *reisen.VideoStream
	fps    float64
}

// OpenMedia opens path for video decoding.
func OpenMedia(path string) (Source, error) {
	media, err := reisen.NewMedia(path)
	if err != nil {
		return nil, fmt.Errorf("opening media: %w", err)
	}

	streams := media.VideoStreams()
	if len(streams) == 0 {
		media.Close()
		return nil, ErrNoVideoStream
	}

	if err := media.OpenDecode(); err != nil {
		media.Close()
		return nil, fmt.Errorf("starting decode: %w", err)
	}

	stream := streams[0]
	if err := stream.Open(); err != nil {
		media.CloseDecode()
		media.Close()
		return nil, fmt.Errorf("opening video stream: %w", err)
	}

	fps := float64(defaultFrameRate)
	if num, den := stream.FrameRate(); num > 0 && den > 0 {
		fps = float64(num) / float64(den)
	}

	return &mediaSource{media: media, stream: stream, fps: fps}, nil
}

func (s *mediaSource) FrameRate() float64 { return s.fps }

func (s *mediaSource) NextFrame() (*image.RGBA, error) {
	for {
		packet, gotPacket, err := s.media.ReadPacket()
		if err != nil {
			return nil, err
		}
		if !gotPacket {
			return nil, io.EOF
		}
		if packet.Type() != reisen.StreamVideo {
			continue
		}

		vs, ok := s.media.Streams()[packet.StreamIndex()].(*reisen.VideoStream)
		if !ok || vs != s.stream {
			continue
		}

		frame, gotFrame, err := vs.ReadVideoFrame()
		if err != nil {
			return nil, err
		}
		if !gotFrame {
			return nil, io.EOF
		}
		if frame == nil {
			continue
		}
		return frame.Image(), nil
	}
}

func (s *mediaSource) Rewind() error {
	return s.stream.Rewind(time.Duration(0))
}

func (s *mediaSource) Close() error {
	s.stream.Close()
	s.media.CloseDecode()
	s.media.Close()
	return nil
}
