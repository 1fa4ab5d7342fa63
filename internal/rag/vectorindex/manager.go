package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/patrickmn/go-cache"
	"github.com/twinlyai/bot-backend/internal/entity"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Lookup is the outcome of acquiring a bot's index
type Lookup struct {
	State entity.IndexState
	Index *Index
	Err   error
}

// Guard is checked under the bot's write lock right before a new index is
// swapped in. A non-nil error discards the build.
type Guard func(ctx context.Context) error

// Manager owns the on-disk index directories under root, laid out as
// <root>/<owner_id>/<bot_id>/. Loaded indices are cached in memory.
//
// Each bot has its own RWMutex: replacing or removing an index takes the write
// lock, loading it from disk takes the read lock, so a load never observes a
// half swapped directory and bots never contend with each other.
type Manager struct {
	root  string
	cache *cache.Cache
	group singleflight.Group

	mu    sync.Mutex
	locks map[string]*botLock
}

// botLock is shared by everyone working on one bot and dropped from the map
// when the last of them lets go
type botLock struct {
	sync.RWMutex
	refs int
}

func NewManager(root string, ttl time.Duration) *Manager {
	return &Manager{
		root:  root,
		cache: cache.New(ttl, 2*ttl),
		locks: make(map[string]*botLock),
	}
}

// Dir returns the directory holding the bot's index and source document
func (m *Manager) Dir(key entity.BotKey) (string, error) {
	if err := validSegment(key.OwnerID); err != nil {
		return "", fmt.Errorf("owner id: %w", err)
	}
	if err := validSegment(key.BotID); err != nil {
		return "", fmt.Errorf("bot id: %w", err)
	}
	return filepath.Join(m.root, key.OwnerID, key.BotID), nil
}

// Acquire returns the bot's current index, loading it from disk on a cache miss.
// Concurrent misses for the same bot share a single load.
func (m *Manager) Acquire(ctx context.Context, key entity.BotKey) Lookup {
	ck := cacheKey(key)
	if v, ok := m.cache.Get(ck); ok {
		return Lookup{State: entity.IndexStateReady, Index: v.(*Index)}
	}

	dir, err := m.Dir(key)
	if err != nil {
		return Lookup{State: entity.IndexStateNotIndexed, Err: err}
	}

	v, err, _ := m.group.Do(ck, func() (any, error) {
		lock := m.lock(ck)
		lock.RLock()
		defer m.unlock(ck, lock, lock.RUnlock)

		ix, found, err := Load(dir)
		if err != nil {
			return nil, err
		}
		if !found {
			return (*Index)(nil), nil
		}

		m.cache.SetDefault(ck, ix)
		ctxzap.Debug(ctx, "index loaded from disk", zap.Int("chunks", ix.Len()))
		return ix, nil
	})
	if err != nil {
		return Lookup{State: entity.IndexStateLoadError, Err: err}
	}

	ix := v.(*Index)
	if ix == nil {
		return Lookup{State: entity.IndexStateNotIndexed}
	}
	return Lookup{State: entity.IndexStateReady, Index: ix}
}

func (m *Manager) Status(ctx context.Context, key entity.BotKey) entity.IndexState {
	return m.Acquire(ctx, key).State
}

// Replace runs build against a fresh temporary directory and, when it
// succeeds, swaps that directory in for the bot's current one. A failed build
// leaves the current index untouched, and so does a guard error. Searches
// already holding the previous index keep using it.
func (m *Manager) Replace(ctx context.Context, key entity.BotKey, build func(tmpDir string) error, guard Guard) error {
	dir, err := m.Dir(key)
	if err != nil {
		return err
	}

	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("create owner dir: %w", err)
	}

	tmp, err := os.MkdirTemp(parent, "."+key.BotID+".build-")
	if err != nil {
		return fmt.Errorf("create build dir: %w", err)
	}

	if err := build(tmp); err != nil {
		if rmErr := os.RemoveAll(tmp); rmErr != nil {
			ctxzap.Warn(ctx, "failed to remove build dir", zap.String("dir", tmp), zap.Error(rmErr))
		}
		return err
	}

	ck := cacheKey(key)
	lock := m.lock(ck)
	lock.Lock()
	defer m.unlock(ck, lock, lock.Unlock)

	if guard != nil {
		if err := guard(ctx); err != nil {
			if rmErr := os.RemoveAll(tmp); rmErr != nil {
				ctxzap.Warn(ctx, "failed to remove build dir", zap.String("dir", tmp), zap.Error(rmErr))
			}
			return err
		}
	}

	old := ""
	if _, err := os.Stat(dir); err == nil {
		old = filepath.Join(parent, "."+key.BotID+".old-"+strconv.FormatInt(time.Now().UnixNano(), 10))
		if err := os.Rename(dir, old); err != nil {
			os.RemoveAll(tmp)
			return fmt.Errorf("move previous index aside: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		os.RemoveAll(tmp)
		return fmt.Errorf("stat index dir: %w", err)
	}

	if err := os.Rename(tmp, dir); err != nil {
		if old != "" {
			if rbErr := os.Rename(old, dir); rbErr != nil {
				ctxzap.Error(ctx, "failed to restore previous index", zap.String("dir", dir), zap.Error(rbErr))
			}
		}
		os.RemoveAll(tmp)
		return fmt.Errorf("move new index into place: %w", err)
	}

	m.cache.Delete(ck)

	if old != "" {
		if err := os.RemoveAll(old); err != nil {
			ctxzap.Warn(ctx, "failed to remove previous index", zap.String("dir", old), zap.Error(err))
		}
	}

	ctxzap.Info(ctx, "index replaced", zap.String("dir", dir))
	return nil
}

// Remove deletes the bot's directory tree and forgets any cached index
func (m *Manager) Remove(ctx context.Context, key entity.BotKey) error {
	dir, err := m.Dir(key)
	if err != nil {
		return err
	}

	ck := cacheKey(key)
	lock := m.lock(ck)
	lock.Lock()
	defer m.unlock(ck, lock, lock.Unlock)

	m.cache.Delete(ck)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove bot dir: %w", err)
	}

	ctxzap.Info(ctx, "index removed", zap.String("dir", dir))
	return nil
}

// lock returns the bot's lock with a reference taken; pair it with unlock
func (m *Manager) lock(ck string) *botLock {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.locks[ck]
	if !ok {
		l = &botLock{}
		m.locks[ck] = l
	}
	l.refs++
	return l
}

// unlock releases l with release and drops the reference taken by lock
func (m *Manager) unlock(ck string, l *botLock, release func()) {
	release()

	m.mu.Lock()
	defer m.mu.Unlock()

	l.refs--
	if l.refs == 0 {
		delete(m.locks, ck)
	}
}

func cacheKey(key entity.BotKey) string {
	return key.OwnerID + "/" + key.BotID
}

// validSegment rejects ids that would escape their directory
func validSegment(s string) error {
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) || strings.HasPrefix(s, ".") {
		return fmt.Errorf("%w: %q is not a valid path segment", entity.ErrInvalidParameter, s)
	}
	return nil
}
