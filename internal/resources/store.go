package resources

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/roomview/internal/engine/model"
	"github.com/Faultbox/roomview/internal/engine/texture"
	"github.com/Faultbox/roomview/internal/engine/video"
	"github.com/Faultbox/roomview/internal/event"
	"github.com/Faultbox/roomview/internal/logger"
)

// Event topics.
const (
	TopicProgress = "progress"
	TopicReady    = "ready"
)

// Store loads descriptors and holds the results by name.
type Store struct {
	loaders     Loaders
	log         *zap.Logger
	concurrency int
	events      *event.Channel[Progress]

	mu       sync.RWMutex
	items    map[string]*Resource
	retired  []Payload
	disposed bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Store) { s.log = log }
}

// WithConcurrency limits how many items load at once. 0 means unbounded.
func WithConcurrency(n int) Option {
	return func(s *Store) { s.concurrency = n }
}

// New creates a store using loaders keyed by kind.
func New(loaders Loaders, opts ...Option) *Store {
	s := &Store{
		loaders: loaders,
		events:  event.NewChannel[Progress](),
		items:   make(map[string]*Resource),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logger.OrNop(s.log)
	return s
}

// OnProgress subscribes to per-item progress, including the initial 0 event.
// It does nothing after Dispose.
func (s *Store) OnProgress(fn func(Progress)) event.Token {
	return s.subscribe(TopicProgress, fn)
}

// OnReady subscribes to the event published once every item has settled.
// It does nothing after Dispose.
func (s *Store) OnReady(fn func(Progress)) event.Token {
	return s.subscribe(TopicReady, fn)
}

// ReadyChan delivers ready events to a goroutine that polls, such as a frame
// loop. A ready event is dropped when the previous one has not been
// received yet. Remove the subscription with Off.
func (s *Store) ReadyChan() (<-chan Progress, event.Token) {
	ch := make(chan Progress, 1)
	tok := s.OnReady(func(p Progress) {
		select {
		case ch <- p:
		default:
		}
	})
	return ch, tok
}

func (s *Store) subscribe(topic string, fn func(Progress)) event.Token {
	if s.Disposed() {
		return 0
	}
	return s.events.Subscribe(topic, fn)
}

// Disposed reports whether Dispose has run.
func (s *Store) Disposed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.disposed
}

// Off removes a subscription made with OnProgress or OnReady.
func (s *Store) Off(tok event.Token) {
	s.events.Unsubscribe(tok)
}

// Load loads every descriptor concurrently and returns once all have settled.
// Failures are logged and left out of the result; Load itself never fails.
// The returned map holds every resource the store owns, including those from
// earlier loads.
func (s *Store) Load(ctx context.Context, descs []Descriptor) map[string]*Resource {
	if s.Disposed() {
		s.log.Warn("load called on disposed resource store", zap.Int("items", len(descs)))
		return map[string]*Resource{}
	}

	total := len(descs)
	s.events.Publish(TopicProgress, Progress{Total: total})

	var (
		progressMu sync.Mutex
		loaded     int
		failed     int
	)
	var g errgroup.Group
	if s.concurrency > 0 {
		g.SetLimit(s.concurrency)
	}

	for i := range descs {
		d := descs[i]
		g.Go(func() error {
			res, err := s.loadItem(ctx, d)
			if err != nil {
				s.log.Error("resource load failed",
					zap.String("name", d.Name),
					zap.String("source", d.Source),
					zap.String("kind", string(d.Kind)),
					zap.Error(err))
			} else {
				s.put(res)
			}

			// Serialized so Loaded increases by one per event.
			progressMu.Lock()
			defer progressMu.Unlock()
			loaded++
			if err != nil {
				failed++
			}
			s.events.Publish(TopicProgress, Progress{
				Loaded:  loaded,
				Total:   total,
				Percent: float64(loaded) / float64(total) * 100,
				Item:    &d,
			})
			return nil
		})
	}
	g.Wait()

	s.log.Info("resources loaded", zap.Int("total", total), zap.Int("failed", failed))
	s.events.Publish(TopicReady, Progress{Loaded: total, Total: total, Percent: 100})
	return s.snapshot()
}

func (s *Store) loadItem(ctx context.Context, d Descriptor) (res *Resource, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &LoadFailure{Name: d.Name, Source: d.Source, Cause: fmt.Errorf("loader panic: %v", r)}
		}
	}()

	l, ok := s.loaders[d.Kind]
	if !ok || l == nil {
		return nil, &LoadFailure{Name: d.Name, Source: d.Source, Cause: fmt.Errorf("%w: %q", ErrUnknownKind, d.Kind)}
	}

	p, err := l.Load(ctx, d)
	if err != nil {
		return nil, &LoadFailure{Name: d.Name, Source: d.Source, Cause: err}
	}
	return &Resource{Name: d.Name, Kind: d.Kind, Payload: p}, nil
}

// put stores res, or disposes it when the store was disposed while it
// loaded. A late payload was never handed out, so it holds no GPU handle and
// may be disposed here on the loader goroutine. A replaced payload may have
// been bound already and is queued for ReleaseRetired instead.
func (s *Store) put(res *Resource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		s.log.Debug("discarding resource loaded after dispose", zap.String("name", res.Name))
		res.Payload.Dispose()
		return
	}
	if old := s.items[res.Name]; old != nil && old.Payload != res.Payload {
		s.retired = append(s.retired, old.Payload)
	}
	s.items[res.Name] = res
}

// ReleaseRetired disposes payloads replaced by reloads and returns how many
// it released. Call it from the goroutine that owns the graphics context.
func (s *Store) ReleaseRetired() int {
	s.mu.Lock()
	retired := s.retired
	s.retired = nil
	s.mu.Unlock()

	for _, p := range retired {
		p.Dispose()
	}
	return len(retired)
}

func (s *Store) snapshot() map[string]*Resource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*Resource, len(s.items))
	for k, v := range s.items {
		out[k] = v
	}
	return out
}

// Resource returns the named resource.
func (s *Store) Resource(name string) (*Resource, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.items[name]
	return r, ok
}

// Get returns the payload of name as T. It reports false when the name is
// absent or holds another type.
func Get[T any](s *Store, name string) (T, bool) {
	var zero T
	r, ok := s.Resource(name)
	if !ok {
		return zero, false
	}
	p, ok := r.Payload.(T)
	return p, ok
}

// Texture returns a loaded texture.
func (s *Store) Texture(name string) (*texture.Texture, bool) {
	return Get[*texture.Texture](s, name)
}

// Model returns a loaded model.
func (s *Store) Model(name string) (*model.Model, bool) {
	return Get[*model.Model](s, name)
}

// Video returns a loaded video.
func (s *Store) Video(name string) (*video.Video, bool) {
	return Get[*video.Video](s, name)
}

// Has reports whether name is loaded.
func (s *Store) Has(name string) bool {
	_, ok := s.Resource(name)
	return ok
}

// Names returns the loaded names, sorted.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.items))
	for n := range s.items {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Dispose releases every payload, including retired ones, and loader
// resources, and drops all subscriptions. Like ReleaseRetired it must run on
// the goroutine that owns the graphics context. Later calls do nothing.
func (s *Store) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	items := s.items
	s.items = make(map[string]*Resource)
	retired := s.retired
	s.retired = nil
	s.mu.Unlock()

	for _, r := range items {
		r.Payload.Dispose()
	}
	for _, p := range retired {
		p.Dispose()
	}
	for _, l := range s.loaders {
		if d, ok := l.(disposer); ok {
			d.Dispose()
		}
	}
	s.events.Clear()
	s.log.Debug("resource store disposed", zap.Int("released", len(items)))
}
