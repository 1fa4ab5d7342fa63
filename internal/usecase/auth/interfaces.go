package auth

import (
	"context"

	"github.com/twinlyai/bot-backend/internal/entity"
	"github.com/twinlyai/bot-backend/internal/pkg/security"
)

type UserRepository interface {
	Create(ctx context.Context, user entity.User) (*entity.User, error)
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
}

type TokenIssuer interface {
	Issue(userID, email string) (string, error)
	Parse(token string) (*security.Claims, error)
}
