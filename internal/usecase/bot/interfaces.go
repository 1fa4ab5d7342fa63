package bot

import (
	"context"
	"io"

	"github.com/twinlyai/bot-backend/internal/entity"
	"github.com/twinlyai/bot-backend/internal/rag"
	"github.com/twinlyai/bot-backend/internal/rag/vectorindex"
)

type BotRepository interface {
	Create(ctx context.Context, bot entity.Bot) (*entity.Bot, error)
	Get(ctx context.Context, id string) (*entity.Bot, error)
	ListByUser(ctx context.Context, userID string) ([]*entity.Bot, error)
	UpdateName(ctx context.Context, id, name string) (*entity.Bot, error)
	Delete(ctx context.Context, id string) error
}

// Pipeline is the per-bot RAG flow
type Pipeline interface {
	IndexDocument(ctx context.Context, key entity.BotKey, filename string, r io.Reader, guard vectorindex.Guard) (int, error)
	Answer(ctx context.Context, q rag.Question) (string, error)
	AnswerStream(ctx context.Context, q rag.Question) (<-chan entity.StreamChunk, error)
	IndexStatus(ctx context.Context, key entity.BotKey) entity.IndexState
	DeleteIndex(ctx context.Context, key entity.BotKey) error
}
