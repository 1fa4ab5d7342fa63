package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/twinlyai/bot-backend/internal/entity"
)

// UserRepository defines the interface for user persistence
type UserRepository interface {
	Create(ctx context.Context, user entity.User) (*entity.User, error)
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
}

var _ UserRepository = &UserPostgres{}

const userColumns = `id, email, hashed_password, created_at`

// UserPostgres implements UserRepository using PostgreSQL
type UserPostgres struct {
	db *pgxpool.Pool
}

func NewUserPostgres(db *pgxpool.Pool) *UserPostgres {
	return &UserPostgres{db: db}
}

func (r *UserPostgres) Create(ctx context.Context, user entity.User) (*entity.User, error) {
	id, ok := parseUUID(user.ID)
	if !ok {
		return nil, fmt.Errorf("parse user ID %q", user.ID)
	}

	row, err := scanUser(r.db.QueryRow(ctx,
		`INSERT INTO users (id, email, hashed_password)
		VALUES ($1, $2, $3)
		RETURNING `+userColumns,
		id, user.Email, user.HashedPassword,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, entity.ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return toEntityUser(row), nil
}

func (r *UserPostgres) GetByID(ctx context.Context, id string) (*entity.User, error) {
	userID, ok := parseUUID(id)
	if !ok {
		return nil, entity.ErrUserNotFound
	}

	row, err := scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return toEntityUser(row), nil
}

func (r *UserPostgres) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	row, err := scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	return toEntityUser(row), nil
}

func scanUser(row pgx.Row) (*userRow, error) {
	var u userRow
	if err := row.Scan(&u.ID, &u.Email, &u.HashedPassword, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}
