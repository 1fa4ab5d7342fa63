package apikey

import (
	"context"

	"github.com/twinlyai/bot-backend/internal/entity"
)

type APIKeyUsecase interface {
	Create(ctx context.Context, userID string) (*entity.APIKeyCreateResponse, error)
	List(ctx context.Context, userID string) ([]*entity.APIKey, error)
	Delete(ctx context.Context, userID, keyID string) error
}
