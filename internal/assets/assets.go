// Package assets handles model loading and caching.
package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Faultbox/knightfall/internal/engine/model"
	"github.com/Faultbox/knightfall/internal/logger"
	"github.com/Faultbox/knightfall/pkg/formats"
)

// ErrNotFound is returned when a path exists in none of the search roots.
var ErrNotFound = errors.New("asset not found")

// Manager loads models from asset roots. A loaded model is frozen and
// immutable, so one instance is shared by every character using the file;
// each character still gets its own animator.
type Manager struct {
	roots []string
	opts  model.Options
	cache *Cache
	group singleflight.Group
	mu    sync.RWMutex
	log   *zap.Logger
}

// NewManager creates a new asset manager. opts apply to every model it loads.
func NewManager(opts model.Options) *Manager {
	return &Manager{
		opts:  opts,
		cache: NewCache(),
		log:   logger.Named("assets"),
	}
}

// AddRoot adds a directory to search.
// Roots are searched in reverse order (last added = highest priority).
func (m *Manager) AddRoot(dir string) {
	m.mu.Lock()
	m.roots = append(m.roots, dir)
	m.mu.Unlock()
}

// Resolve maps path to a file on disk. Absolute paths and paths that exist
// relative to the working directory are used as is.
func (m *Manager) Resolve(path string) (string, error) {
	if filepath.IsAbs(path) || fileExists(path) {
		return filepath.Clean(path), nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.roots) - 1; i >= 0; i-- {
		candidate := filepath.Join(m.roots[i], path)
		if fileExists(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, path)
}

// Model returns the model stored at path, importing it on first use.
// Concurrent callers asking for the same file share one import.
func (m *Manager) Model(path string) (*model.Model, error) {
	resolved, err := m.Resolve(path)
	if err != nil {
		return nil, err
	}

	if mdl, ok := m.cache.Get(resolved); ok {
		return mdl, nil
	}

	v, err, _ := m.group.Do(resolved, func() (interface{}, error) {
		if mdl, ok := m.cache.Peek(resolved); ok {
			return mdl, nil
		}
		sc, err := formats.LoadGLTF(resolved)
		if err != nil {
			return nil, err
		}
		mdl, err := model.Load(modelName(resolved), sc, m.opts)
		if err != nil {
			return nil, err
		}
		m.cache.Set(resolved, mdl)
		m.log.Debug("model cached", zap.String("path", resolved))
		return mdl, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Model), nil
}

// Close drops every cached model.
func (m *Manager) Close() {
	m.cache.Clear()
}

// Stats returns cache statistics.
func (m *Manager) Stats() (hits, misses int) {
	return m.cache.Stats()
}

func modelName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Cache is a simple in-memory cache for loaded models.
type Cache struct {
	data map[string]*model.Model
	mu   sync.Mutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string]*model.Model),
	}
}

// Get retrieves an item from cache and counts the lookup.
func (c *Cache) Get(key string) (*model.Model, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	mdl, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return mdl, ok
}

// Peek retrieves an item without touching the stats.
func (c *Cache) Peek(key string) (*model.Model, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	mdl, ok := c.data[key]
	return mdl, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, mdl *model.Model) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = mdl
}

// Len returns the number of cached models.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]*model.Model)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
