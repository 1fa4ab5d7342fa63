package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/twinlyai/bot-backend/internal/entity"
)

// BotRepository defines the interface for bot persistence
type BotRepository interface {
	Create(ctx context.Context, bot entity.Bot) (*entity.Bot, error)
	Get(ctx context.Context, id string) (*entity.Bot, error)
	ListByUser(ctx context.Context, userID string) ([]*entity.Bot, error)
	UpdateName(ctx context.Context, id, name string) (*entity.Bot, error)
	Delete(ctx context.Context, id string) error
}

var _ BotRepository = &BotPostgres{}

const botColumns = `id, user_id, name, created_at, updated_at`

// BotPostgres implements BotRepository using PostgreSQL
type BotPostgres struct {
	db *pgxpool.Pool
}

func NewBotPostgres(db *pgxpool.Pool) *BotPostgres {
	return &BotPostgres{db: db}
}

func (r *BotPostgres) Create(ctx context.Context, bot entity.Bot) (*entity.Bot, error) {
	id, ok := parseUUID(bot.ID)
	if !ok {
		return nil, fmt.Errorf("parse bot ID %q", bot.ID)
	}
	userID, ok := parseUUID(bot.UserID)
	if !ok {
		return nil, fmt.Errorf("parse user ID %q", bot.UserID)
	}

	row, err := scanBot(r.db.QueryRow(ctx,
		`INSERT INTO bots (id, user_id, name)
		VALUES ($1, $2, $3)
		RETURNING `+botColumns,
		id, userID, bot.Name,
	))
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	return toEntityBot(row), nil
}

func (r *BotPostgres) Get(ctx context.Context, id string) (*entity.Bot, error) {
	botID, ok := parseUUID(id)
	if !ok {
		return nil, entity.ErrBotNotFound
	}

	row, err := scanBot(r.db.QueryRow(ctx,
		`SELECT `+botColumns+` FROM bots WHERE id = $1`, botID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrBotNotFound
		}
		return nil, fmt.Errorf("get bot: %w", err)
	}

	return toEntityBot(row), nil
}

func (r *BotPostgres) ListByUser(ctx context.Context, userID string) ([]*entity.Bot, error) {
	ownerID, ok := parseUUID(userID)
	if !ok {
		return []*entity.Bot{}, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+botColumns+` FROM bots WHERE user_id = $1 ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list bots: %w", err)
	}
	defer rows.Close()

	bots := make([]*entity.Bot, 0)
	for rows.Next() {
		row, err := scanBot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bot: %w", err)
		}
		bots = append(bots, toEntityBot(row))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bots: %w", err)
	}

	return bots, nil
}

func (r *BotPostgres) UpdateName(ctx context.Context, id, name string) (*entity.Bot, error) {
	botID, ok := parseUUID(id)
	if !ok {
		return nil, entity.ErrBotNotFound
	}

	row, err := scanBot(r.db.QueryRow(ctx,
		`UPDATE bots SET name = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+botColumns,
		botID, name,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrBotNotFound
		}
		return nil, fmt.Errorf("update bot: %w", err)
	}

	return toEntityBot(row), nil
}

func (r *BotPostgres) Delete(ctx context.Context, id string) error {
	botID, ok := parseUUID(id)
	if !ok {
		return entity.ErrBotNotFound
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM bots WHERE id = $1`, botID)
	if err != nil {
		return fmt.Errorf("delete bot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrBotNotFound
	}

	return nil
}

func scanBot(row pgx.Row) (*botRow, error) {
	var b botRow
	if err := row.Scan(&b.ID, &b.UserID, &b.Name, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}
