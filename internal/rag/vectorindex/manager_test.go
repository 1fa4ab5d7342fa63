package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/twinlyai/bot-backend/internal/entity"
)

var testKey = entity.BotKey{OwnerID: "owner-1", BotID: "bot-1"}

func persistBuild(chunks ...string) func(string) error {
	return func(dir string) error {
		vectors := make([][]float32, len(chunks))
		for i := range chunks {
			vectors[i] = []float32{1, 0}
		}
		ix, err := Build(chunks, vectors)
		if err != nil {
			return err
		}
		return Persist(ix, dir)
	}
}

func TestManagerLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewManager(t.TempDir(), time.Minute)

	if got := m.Status(ctx, testKey); got != entity.IndexStateNotIndexed {
		t.Fatalf("Status() before upload = %v, want not_indexed", got)
	}

	if err := m.Replace(ctx, testKey, persistBuild("resume A"), nil); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	lookup := m.Acquire(ctx, testKey)
	if lookup.State != entity.IndexStateReady || lookup.Index.chunks[0] != "resume A" {
		t.Fatalf("Acquire() = %+v, want resume A", lookup)
	}

	if err := m.Replace(ctx, testKey, persistBuild("resume B", "more B"), nil); err != nil {
		t.Fatalf("second Replace() error = %v", err)
	}

	after := m.Acquire(ctx, testKey)
	if after.Index.Len() != 2 || after.Index.chunks[0] != "resume B" {
		t.Fatalf("Acquire() after re-upload = %q, want resume B", after.Index.chunks)
	}
	// the index acquired earlier is untouched
	if lookup.Index.chunks[0] != "resume A" {
		t.Errorf("previously acquired index changed to %q", lookup.Index.chunks)
	}

	if err := m.Remove(ctx, testKey); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if got := m.Status(ctx, testKey); got != entity.IndexStateNotIndexed {
		t.Errorf("Status() after remove = %v, want not_indexed", got)
	}
	dir, _ := m.Dir(testKey)
	if _, err := os.Stat(dir); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("bot dir still exists after Remove(): %v", err)
	}
}

func TestManagerFailedBuildKeepsPreviousIndex(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	m := NewManager(root, time.Minute)

	if err := m.Replace(ctx, testKey, persistBuild("resume A"), nil); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	buildErr := errors.New("extraction failed")
	var tmpDir string
	err := m.Replace(ctx, testKey, func(dir string) error {
		tmpDir = dir
		if err := os.WriteFile(filepath.Join(dir, "source.pdf"), []byte("partial"), 0o600); err != nil {
			return err
		}
		return buildErr
	}, nil)
	if !errors.Is(err, buildErr) {
		t.Fatalf("Replace() error = %v, want %v", err, buildErr)
	}

	if _, err := os.Stat(tmpDir); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("build dir %s was not cleaned up", tmpDir)
	}

	lookup := m.Acquire(ctx, testKey)
	if lookup.State != entity.IndexStateReady || lookup.Index.chunks[0] != "resume A" {
		t.Errorf("Acquire() = %+v, want previous index", lookup)
	}

	entries, err := os.ReadDir(filepath.Join(root, testKey.OwnerID))
	if err != nil {
		t.Fatalf("read owner dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != testKey.BotID {
		t.Errorf("owner dir has leftovers: %v", entries)
	}
}

func TestManagerLoadError(t *testing.T) {
	ctx := context.Background()
	m := NewManager(t.TempDir(), time.Minute)

	dir, err := m.Dir(testKey)
	if err != nil {
		t.Fatalf("Dir() error = %v", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("garbage"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	lookup := m.Acquire(ctx, testKey)
	if lookup.State != entity.IndexStateLoadError {
		t.Fatalf("Acquire() state = %v, want load_error", lookup.State)
	}
	if !errors.Is(lookup.Err, entity.ErrIndexLoad) {
		t.Errorf("Acquire() err = %v, want ErrIndexLoad", lookup.Err)
	}

	// a fresh upload recovers the bot
	if err := m.Replace(ctx, testKey, persistBuild("fixed"), nil); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if got := m.Status(ctx, testKey); got != entity.IndexStateReady {
		t.Errorf("Status() after re-upload = %v, want ready", got)
	}
}

func TestManagerDamagedIndexIsLoadError(t *testing.T) {
	ctx := context.Background()
	m := NewManager(t.TempDir(), time.Minute)

	dir, err := m.Dir(testKey)
	if err != nil {
		t.Fatalf("Dir() error = %v", err)
	}
	damageIndex(t, persistLarge(t, dir), fillFrom(0))

	lookup := m.Acquire(ctx, testKey)
	if lookup.State != entity.IndexStateLoadError {
		t.Fatalf("Acquire() state = %v, want load_error", lookup.State)
	}
	if !errors.Is(lookup.Err, entity.ErrIndexLoad) {
		t.Errorf("Acquire() err = %v, want ErrIndexLoad", lookup.Err)
	}
	if got := m.Status(ctx, testKey); got != entity.IndexStateLoadError {
		t.Errorf("Status() = %v, want load_error", got)
	}
}

func TestManagerGuardStopsSwap(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	m := NewManager(root, time.Minute)

	if err := m.Replace(ctx, testKey, persistBuild("resume A"), nil); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	var tmpDir string
	build := func(dir string) error {
		tmpDir = dir
		return persistBuild("resume B")(dir)
	}
	err := m.Replace(ctx, testKey, build, func(context.Context) error {
		return entity.ErrBotNotFound
	})
	if !errors.Is(err, entity.ErrBotNotFound) {
		t.Fatalf("Replace() error = %v, want ErrBotNotFound", err)
	}
	if _, err := os.Stat(tmpDir); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("build dir %s was not cleaned up", tmpDir)
	}

	lookup := m.Acquire(ctx, testKey)
	if lookup.State != entity.IndexStateReady || lookup.Index.chunks[0] != "resume A" {
		t.Errorf("Acquire() = %+v, want previous index", lookup)
	}
}

func TestManagerGuardAfterRemove(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	m := NewManager(root, time.Minute)

	deleted := false
	guard := func(context.Context) error {
		if deleted {
			return entity.ErrBotNotFound
		}
		return nil
	}

	// the bot is removed while its document is still being built
	build := func(dir string) error {
		if err := m.Remove(ctx, testKey); err != nil {
			return err
		}
		deleted = true
		return persistBuild("late")(dir)
	}
	if err := m.Replace(ctx, testKey, build, guard); !errors.Is(err, entity.ErrBotNotFound) {
		t.Fatalf("Replace() error = %v, want ErrBotNotFound", err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("read root: %v", err)
	}
	for _, e := range entries {
		sub, _ := os.ReadDir(filepath.Join(root, e.Name()))
		if len(sub) != 0 {
			t.Errorf("owner dir %s still holds %d entries", e.Name(), len(sub))
		}
	}
	if got := m.Status(ctx, testKey); got != entity.IndexStateNotIndexed {
		t.Errorf("Status() = %v, want not_indexed", got)
	}
}

func TestManagerLocksAreReleased(t *testing.T) {
	ctx := context.Background()
	m := NewManager(t.TempDir(), time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		key := entity.BotKey{OwnerID: testKey.OwnerID, BotID: fmt.Sprintf("bot-%d", i)}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.Replace(ctx, key, persistBuild("resume"), nil); err != nil {
				t.Errorf("Replace(%s) error = %v", key.BotID, err)
			}
			m.Acquire(ctx, key)
			if err := m.Remove(ctx, key); err != nil {
				t.Errorf("Remove(%s) error = %v", key.BotID, err)
			}
		}()
	}
	wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.locks) != 0 {
		t.Errorf("%d bot locks left after all work finished", len(m.locks))
	}
}

func TestManagerBotsAreIsolated(t *testing.T) {
	ctx := context.Background()
	m := NewManager(t.TempDir(), time.Minute)
	other := entity.BotKey{OwnerID: testKey.OwnerID, BotID: "bot-2"}

	if err := m.Replace(ctx, testKey, persistBuild("first bot"), nil); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if got := m.Status(ctx, other); got != entity.IndexStateNotIndexed {
		t.Errorf("Status(other) = %v, want not_indexed", got)
	}
}

func TestManagerConcurrentAcquireAndReplace(t *testing.T) {
	ctx := context.Background()
	m := NewManager(t.TempDir(), time.Minute)

	if err := m.Replace(ctx, testKey, persistBuild("v0"), nil); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				lookup := m.Acquire(ctx, testKey)
				if lookup.State != entity.IndexStateReady {
					errs <- errors.New("index observed in state " + lookup.State.String())
					return
				}
				if _, err := lookup.Index.Search([]float32{1, 0}, 1); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.Replace(ctx, testKey, persistBuild("next"), nil); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestManagerRejectsUnsafeIDs(t *testing.T) {
	m := NewManager(t.TempDir(), time.Minute)
	for _, key := range []entity.BotKey{
		{OwnerID: "..", BotID: "bot"},
		{OwnerID: "owner", BotID: "../etc"},
		{OwnerID: "", BotID: "bot"},
	} {
		if _, err := m.Dir(key); !errors.Is(err, entity.ErrInvalidParameter) {
			t.Errorf("Dir(%+v) error = %v, want ErrInvalidParameter", key, err)
		}
	}
}
