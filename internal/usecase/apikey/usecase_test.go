package apikey

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/twinlyai/bot-backend/internal/entity"
	"github.com/twinlyai/bot-backend/internal/pkg/security"
)

type memoryKeys struct {
	mu   sync.Mutex
	keys []entity.APIKey
}

func (m *memoryKeys) Create(_ context.Context, key entity.APIKey) (*entity.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, key)
	return &key, nil
}

func (m *memoryKeys) GetByHash(_ context.Context, hashedKey string) (*entity.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range m.keys {
		if k.HashedKey == hashedKey {
			return &k, nil
		}
	}
	return nil, entity.ErrAPIKeyNotFound
}

func (m *memoryKeys) ListByUser(_ context.Context, userID string) ([]*entity.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*entity.APIKey{}
	for _, k := range m.keys {
		if k.UserID == userID {
			out = append(out, &k)
		}
	}
	return out, nil
}

func (m *memoryKeys) DeleteForUser(_ context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, k := range m.keys {
		if k.ID == id && k.UserID == userID {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			return nil
		}
	}
	return entity.ErrAPIKeyNotFound
}

func TestCreateAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	repo := &memoryKeys{}
	uc := NewUsecase(repo)

	created, err := uc.Create(ctx, "user-1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !strings.HasPrefix(created.APIKey, security.APIKeyPrefix) {
		t.Errorf("Create() key = %q", created.APIKey)
	}
	if !strings.Contains(created.Message, "will not see it again") {
		t.Errorf("Create() message = %q", created.Message)
	}

	stored := repo.keys[0]
	if stored.HashedKey == created.APIKey || stored.HashedKey != security.HashAPIKey(created.APIKey) {
		t.Error("stored key is not the sha256 of the plaintext")
	}
	if stored.Prefix != created.APIKey[:5] {
		t.Errorf("stored prefix = %q", stored.Prefix)
	}

	identity, err := uc.Authenticate(ctx, created.APIKey)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if identity.UserID != "user-1" || identity.Kind != entity.CredentialAPIKey || identity.KeyID != stored.ID {
		t.Errorf("Authenticate() = %+v", identity)
	}
}

func TestAuthenticateRejects(t *testing.T) {
	uc := NewUsecase(&memoryKeys{})

	for _, key := range []string{"", "ta_unknown"} {
		if _, err := uc.Authenticate(context.Background(), key); !errors.Is(err, entity.ErrUnauthorized) {
			t.Errorf("Authenticate(%q) error = %v, want ErrUnauthorized", key, err)
		}
	}
}

func TestListAndDeleteAreScopedToOwner(t *testing.T) {
	ctx := context.Background()
	uc := NewUsecase(&memoryKeys{})

	if _, err := uc.Create(ctx, "user-1"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := uc.Create(ctx, "user-2"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	keys, err := uc.List(ctx, "user-1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("List() returned %d keys, want 1", len(keys))
	}

	otherKeys, _ := uc.List(ctx, "user-2")
	if err := uc.Delete(ctx, "user-1", otherKeys[0].ID); !errors.Is(err, entity.ErrAPIKeyNotFound) {
		t.Errorf("Delete(other user's key) error = %v, want ErrAPIKeyNotFound", err)
	}

	if err := uc.Delete(ctx, "user-1", keys[0].ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if keys, _ := uc.List(ctx, "user-1"); len(keys) != 0 {
		t.Errorf("List() after delete returned %d keys", len(keys))
	}
}
