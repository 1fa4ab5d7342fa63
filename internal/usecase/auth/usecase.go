package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/twinlyai/bot-backend/internal/entity"
	"github.com/twinlyai/bot-backend/internal/pkg/security"
	"github.com/twinlyai/bot-backend/internal/pkg/validator"
	"go.uber.org/zap"
)

const tokenTypeBearer = "bearer"

// AuthUsecase implements signup, login and session token checks
type AuthUsecase struct {
	userRepo  UserRepository
	tokens    TokenIssuer
	validator *validator.Validator
}

func NewUsecase(userRepo UserRepository, tokens TokenIssuer, validator *validator.Validator) *AuthUsecase {
	return &AuthUsecase{
		userRepo:  userRepo,
		tokens:    tokens,
		validator: validator,
	}
}

// Signup registers a new user, emails are unique
func (uc *AuthUsecase) Signup(ctx context.Context, req *entity.SignupRequest) (*entity.User, error) {
	if err := uc.validator.ValidateSignup(req); err != nil {
		return nil, err
	}

	hashed, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", entity.ErrInvalidParameter, err)
	}

	user, err := uc.userRepo.Create(ctx, entity.User{
		ID:             uuid.New().String(),
		Email:          req.Email,
		HashedPassword: hashed,
	})
	if err != nil {
		return nil, err
	}

	ctxzap.Info(ctx, "user signed up", zap.String("user_id", user.ID))

	return user, nil
}

// Login checks the credentials and issues a session token
func (uc *AuthUsecase) Login(ctx context.Context, req *entity.LoginRequest) (*entity.TokenResponse, error) {
	if err := uc.validator.ValidateLogin(req); err != nil {
		return nil, err
	}

	user, err := uc.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, entity.ErrUserNotFound) {
			return nil, entity.ErrInvalidCredentials
		}
		return nil, err
	}

	if !security.CheckPassword(user.HashedPassword, req.Password) {
		ctxzap.Info(ctx, "login rejected, wrong password", zap.String("user_id", user.ID))
		return nil, entity.ErrInvalidCredentials
	}

	token, err := uc.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	ctxzap.Info(ctx, "user logged in", zap.String("user_id", user.ID))

	return &entity.TokenResponse{
		AccessToken: token,
		TokenType:   tokenTypeBearer,
	}, nil
}

// Authenticate resolves a session token to the identity of an existing user
func (uc *AuthUsecase) Authenticate(ctx context.Context, token string) (*entity.Identity, error) {
	if token == "" {
		return nil, entity.ErrUnauthorized
	}

	claims, err := uc.tokens.Parse(token)
	if err != nil {
		ctxzap.Debug(ctx, "session token rejected", zap.Error(err))
		return nil, entity.ErrUnauthorized
	}

	user, err := uc.userRepo.GetByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, entity.ErrUserNotFound) {
			return nil, entity.ErrUnauthorized
		}
		return nil, err
	}
	if user.ID != claims.UserID {
		return nil, entity.ErrUnauthorized
	}

	return &entity.Identity{
		UserID: user.ID,
		Email:  user.Email,
		Kind:   entity.CredentialSession,
	}, nil
}

func (uc *AuthUsecase) GetUser(ctx context.Context, id string) (*entity.User, error) {
	return uc.userRepo.GetByID(ctx, id)
}
