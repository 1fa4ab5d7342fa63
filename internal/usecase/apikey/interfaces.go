package apikey

import (
	"context"

	"github.com/twinlyai/bot-backend/internal/entity"
)

type APIKeyRepository interface {
	Create(ctx context.Context, key entity.APIKey) (*entity.APIKey, error)
	GetByHash(ctx context.Context, hashedKey string) (*entity.APIKey, error)
	ListByUser(ctx context.Context, userID string) ([]*entity.APIKey, error)
	DeleteForUser(ctx context.Context, id, userID string) error
}
