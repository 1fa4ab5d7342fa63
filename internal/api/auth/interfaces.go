package auth

import (
	"context"

	"github.com/twinlyai/bot-backend/internal/entity"
)

type AuthUsecase interface {
	Signup(ctx context.Context, req *entity.SignupRequest) (*entity.User, error)
	Login(ctx context.Context, req *entity.LoginRequest) (*entity.TokenResponse, error)
	GetUser(ctx context.Context, id string) (*entity.User, error)
}
