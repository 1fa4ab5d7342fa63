package apikey

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/twinlyai/bot-backend/internal/entity"
	"github.com/twinlyai/bot-backend/internal/pkg/security"
	"go.uber.org/zap"
)

const createdMessage = "Key created successfully. Please save it securely as you will not see it again."

// APIKeyUsecase manages the API keys a user embeds their bots with
type APIKeyUsecase struct {
	keyRepo APIKeyRepository
}

func NewUsecase(keyRepo APIKeyRepository) *APIKeyUsecase {
	return &APIKeyUsecase{keyRepo: keyRepo}
}

// Create generates a key for the user. The plaintext is returned only here.
func (uc *APIKeyUsecase) Create(ctx context.Context, userID string) (*entity.APIKeyCreateResponse, error) {
	plaintext, hash, prefix, err := security.GenerateAPIKey()
	if err != nil {
		return nil, err
	}

	key, err := uc.keyRepo.Create(ctx, entity.APIKey{
		ID:        uuid.New().String(),
		UserID:    userID,
		HashedKey: hash,
		Prefix:    prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("store api key: %w", err)
	}

	ctxzap.Info(ctx, "api key created", zap.String("api_key_id", key.ID))

	return &entity.APIKeyCreateResponse{
		APIKey:  plaintext,
		Message: createdMessage,
	}, nil
}

func (uc *APIKeyUsecase) List(ctx context.Context, userID string) ([]*entity.APIKey, error) {
	return uc.keyRepo.ListByUser(ctx, userID)
}

// Delete removes one of the user's keys, keys of other users are reported as not found
func (uc *APIKeyUsecase) Delete(ctx context.Context, userID, keyID string) error {
	if err := uc.keyRepo.DeleteForUser(ctx, keyID, userID); err != nil {
		return err
	}

	ctxzap.Info(ctx, "api key deleted", zap.String("api_key_id", keyID))
	return nil
}

// Authenticate resolves a plaintext key to the identity of its owner
func (uc *APIKeyUsecase) Authenticate(ctx context.Context, plaintext string) (*entity.Identity, error) {
	if plaintext == "" {
		return nil, fmt.Errorf("%w: API Key is missing", entity.ErrUnauthorized)
	}

	key, err := uc.keyRepo.GetByHash(ctx, security.HashAPIKey(plaintext))
	if err != nil {
		if errors.Is(err, entity.ErrAPIKeyNotFound) {
			return nil, fmt.Errorf("%w: Invalid API Key", entity.ErrUnauthorized)
		}
		return nil, err
	}

	return &entity.Identity{
		UserID: key.UserID,
		Kind:   entity.CredentialAPIKey,
		KeyID:  key.ID,
	}, nil
}
