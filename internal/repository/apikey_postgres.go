package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/twinlyai/bot-backend/internal/entity"
)

// APIKeyRepository defines the interface for API key persistence.
// Keys are only ever stored and looked up by their hash.
type APIKeyRepository interface {
	Create(ctx context.Context, key entity.APIKey) (*entity.APIKey, error)
	GetByHash(ctx context.Context, hashedKey string) (*entity.APIKey, error)
	ListByUser(ctx context.Context, userID string) ([]*entity.APIKey, error)
	DeleteForUser(ctx context.Context, id, userID string) error
}

var _ APIKeyRepository = &APIKeyPostgres{}

const apiKeyColumns = `id, user_id, hashed_key, prefix, created_at`

// APIKeyPostgres implements APIKeyRepository using PostgreSQL
type APIKeyPostgres struct {
	db *pgxpool.Pool
}

func NewAPIKeyPostgres(db *pgxpool.Pool) *APIKeyPostgres {
	return &APIKeyPostgres{db: db}
}

func (r *APIKeyPostgres) Create(ctx context.Context, key entity.APIKey) (*entity.APIKey, error) {
	id, ok := parseUUID(key.ID)
	if !ok {
		return nil, fmt.Errorf("parse api key ID %q", key.ID)
	}
	userID, ok := parseUUID(key.UserID)
	if !ok {
		return nil, fmt.Errorf("parse user ID %q", key.UserID)
	}

	row, err := scanAPIKey(r.db.QueryRow(ctx,
		`INSERT INTO api_keys (id, user_id, hashed_key, prefix)
		VALUES ($1, $2, $3, $4)
		RETURNING `+apiKeyColumns,
		id, userID, key.HashedKey, key.Prefix,
	))
	if err != nil {
		return nil, fmt.Errorf("create api key: %w", err)
	}

	return toEntityAPIKey(row), nil
}

func (r *APIKeyPostgres) GetByHash(ctx context.Context, hashedKey string) (*entity.APIKey, error) {
	row, err := scanAPIKey(r.db.QueryRow(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE hashed_key = $1`, hashedKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("get api key: %w", err)
	}

	return toEntityAPIKey(row), nil
}

func (r *APIKeyPostgres) ListByUser(ctx context.Context, userID string) ([]*entity.APIKey, error) {
	ownerID, ok := parseUUID(userID)
	if !ok {
		return []*entity.APIKey{}, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE user_id = $1 ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	keys := make([]*entity.APIKey, 0)
	for rows.Next() {
		row, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, toEntityAPIKey(row))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}

	return keys, nil
}

// DeleteForUser deletes the key only when it belongs to userID
func (r *APIKeyPostgres) DeleteForUser(ctx context.Context, id, userID string) error {
	keyID, ok := parseUUID(id)
	if !ok {
		return entity.ErrAPIKeyNotFound
	}
	ownerID, ok := parseUUID(userID)
	if !ok {
		return entity.ErrAPIKeyNotFound
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM api_keys WHERE id = $1 AND user_id = $2`, keyID, ownerID)
	if err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrAPIKeyNotFound
	}

	return nil
}

func scanAPIKey(row pgx.Row) (*apiKeyRow, error) {
	var k apiKeyRow
	if err := row.Scan(&k.ID, &k.UserID, &k.HashedKey, &k.Prefix, &k.CreatedAt); err != nil {
		return nil, err
	}
	return &k, nil
}
