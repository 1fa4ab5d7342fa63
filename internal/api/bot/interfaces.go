package bot

import (
	"context"
	"mime/multipart"

	"github.com/twinlyai/bot-backend/internal/entity"
)

type BotUsecase interface {
	Create(ctx context.Context, userID, name string) (*entity.Bot, error)
	List(ctx context.Context, userID string) ([]*entity.Bot, error)
	GetPublic(ctx context.Context, botID string) (*entity.Bot, error)
	Rename(ctx context.Context, userID, botID, name string) (*entity.Bot, error)
	Delete(ctx context.Context, userID, botID string) error
	Upload(ctx context.Context, userID string, req *entity.UploadRequest) (*entity.UploadResponse, error)
	Status(ctx context.Context, userID, botID string) (*entity.IndexStatusResponse, error)
	Chat(ctx context.Context, identity *entity.Identity, botID string, req *entity.ChatRequest) (*entity.ChatResponse, error)
	ChatStream(ctx context.Context, identity *entity.Identity, botID string, req *entity.ChatRequest) (<-chan entity.StreamChunk, error)
	ExportTranscript(ctx context.Context, identity *entity.Identity, botID string, format entity.ExportFormat, req *entity.ExportRequest) (*entity.ExportedTranscript, error)
}

type UploadValidator interface {
	ValidateUpload(fh *multipart.FileHeader) error
}
