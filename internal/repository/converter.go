package repository

import (
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/twinlyai/bot-backend/internal/entity"
)

const uniqueViolationCode = "23505"

type userRow struct {
	ID             pgtype.UUID
	Email          string
	HashedPassword string
	CreatedAt      pgtype.Timestamptz
}

type botRow struct {
	ID        pgtype.UUID
	UserID    pgtype.UUID
	Name      string
	CreatedAt pgtype.Timestamptz
	UpdatedAt pgtype.Timestamptz
}

type apiKeyRow struct {
	ID        pgtype.UUID
	UserID    pgtype.UUID
	HashedKey string
	Prefix    string
	CreatedAt pgtype.Timestamptz
}

func toEntityUser(row *userRow) *entity.User {
	return &entity.User{
		ID:             uuidString(row.ID),
		Email:          row.Email,
		HashedPassword: row.HashedPassword,
		CreatedAt:      row.CreatedAt.Time,
	}
}

func toEntityBot(row *botRow) *entity.Bot {
	return &entity.Bot{
		ID:        uuidString(row.ID),
		UserID:    uuidString(row.UserID),
		Name:      row.Name,
		CreatedAt: row.CreatedAt.Time,
		UpdatedAt: row.UpdatedAt.Time,
	}
}

func toEntityAPIKey(row *apiKeyRow) *entity.APIKey {
	return &entity.APIKey{
		ID:        uuidString(row.ID),
		UserID:    uuidString(row.UserID),
		HashedKey: row.HashedKey,
		Prefix:    row.Prefix,
		CreatedAt: row.CreatedAt.Time,
	}
}

func uuidString(id pgtype.UUID) string {
	return uuid.UUID(id.Bytes).String()
}

// parseUUID converts an id from the API into a query parameter.
// Malformed ids cannot match any row, callers treat them as not found.
func parseUUID(id string) (pgtype.UUID, bool) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return pgtype.UUID{}, false
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}, true
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
