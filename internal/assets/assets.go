// Package assets resolves asset sources to bytes, from the filesystem or from
// mounted GRF archives.
package assets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/roomview/internal/logger"
	"github.com/Faultbox/roomview/pkg/grf"
)

// ArchiveScheme prefixes sources stored inside mounted archives.
const ArchiveScheme = "grf://"

// ErrNotFound is returned when no archive or root directory holds a source.
var ErrNotFound = errors.New("asset not found")

// Fetcher resolves a source string to its contents.
type Fetcher interface {
	Fetch(ctx context.Context, source string) ([]byte, error)
}

// Manager handles asset loading from a root directory and GRF archives.
type Manager struct {
	root     string
	archives []*grf.Archive
	cache    *Cache
	mu       sync.RWMutex
	log      *zap.Logger
}

// NewManager creates an asset manager reading plain sources relative to root.
func NewManager(root string, log *zap.Logger) *Manager {
	return &Manager{
		root:  root,
		cache: NewCache(),
		log:   logger.OrNop(log),
	}
}

// AddArchive adds a GRF archive to the manager.
// Archives are searched in reverse order (last added = highest priority).
func (m *Manager) AddArchive(path string) error {
	archive, err := grf.Open(path)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", path, err)
	}

	m.mu.Lock()
	m.archives = append(m.archives, archive)
	m.mu.Unlock()

	m.log.Info("archive mounted", zap.String("path", path), zap.Int("files", len(archive.List())))
	return nil
}

// Fetch returns the contents of source. Results are cached for the lifetime
// of the manager.
func (m *Manager) Fetch(ctx context.Context, source string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if data, ok := m.cache.Get(source); ok {
		return data, nil
	}

	var data []byte
	var err error
	if name, ok := strings.CutPrefix(source, ArchiveScheme); ok {
		data, err = m.readArchive(name)
	} else {
		data, err = os.ReadFile(m.Path(source))
		if errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("%w: %s", ErrNotFound, source)
		}
	}
	if err != nil {
		return nil, err
	}

	m.cache.Set(source, data)
	return data, nil
}

func (m *Manager) readArchive(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.archives) - 1; i >= 0; i-- {
		if !m.archives[i].Contains(name) {
			continue
		}
		return m.archives[i].Read(name)
	}
	return nil, fmt.Errorf("%w: %s%s", ErrNotFound, ArchiveScheme, name)
}

// Path resolves a filesystem source against the root directory.
func (m *Manager) Path(source string) string {
	if filepath.IsAbs(source) || m.root == "" {
		return source
	}
	return filepath.Join(m.root, filepath.FromSlash(source))
}

// Localize returns a filesystem path holding source. Archive entries are
// extracted to a temporary file that cleanup removes; for plain sources
// cleanup is a no-op.
func (m *Manager) Localize(ctx context.Context, source string) (string, func(), error) {
	if !strings.HasPrefix(source, ArchiveScheme) {
		p := m.Path(source)
		if _, err := os.Stat(p); err != nil {
			return "", nil, fmt.Errorf("%w: %s", ErrNotFound, source)
		}
		return p, func() {}, nil
	}

	data, err := m.Fetch(ctx, source)
	if err != nil {
		return "", nil, err
	}

	f, err := os.CreateTemp("", "roomview-*"+path.Ext(source))
	if err != nil {
		return "", nil, fmt.Errorf("extracting %s: %w", source, err)
	}
	cleanup := func() { os.Remove(f.Name()) }
	if _, err := f.Write(data); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("extracting %s: %w", source, err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("extracting %s: %w", source, err)
	}
	return f.Name(), cleanup, nil
}

// Close closes all archives.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, archive := range m.archives {
		if err := archive.Close(); err != nil {
			m.log.Warn("closing archive", zap.Error(err))
		}
	}
	m.archives = nil
	m.cache.Clear()
}

// Cache is a simple in-memory cache for loaded assets.
type Cache struct {
	data map[string][]byte
	mu   sync.Mutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string][]byte),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return data, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
