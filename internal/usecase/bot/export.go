package bot

import (
	"context"
	"fmt"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/twinlyai/bot-backend/internal/entity"
	"github.com/twinlyai/bot-backend/internal/pkg/formatter"
	"github.com/twinlyai/bot-backend/internal/pkg/logger"
	"go.uber.org/zap"
)

// ExportTranscript renders a conversation with the bot as a downloadable file.
// Access is the same as for chat.
func (uc *BotUsecase) ExportTranscript(ctx context.Context, identity *entity.Identity, botID string, format entity.ExportFormat, req *entity.ExportRequest) (*entity.ExportedTranscript, error) {
	fmtr, err := formatter.New(format)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	bot, err := uc.botRepo.Get(ctx, botID)
	if err != nil {
		return nil, err
	}
	ctx = logger.WithBot(ctx, bot.Key())

	if bot.UserID != identity.UserID {
		return nil, entity.ErrForbidden
	}

	content, err := fmtr.Format(&formatter.Transcript{BotName: bot.Name, Turns: req.ChatHistory})
	if err != nil {
		return nil, fmt.Errorf("format transcript: %w", err)
	}

	ctxzap.Info(ctx, "transcript exported",
		zap.String("format", string(format)),
		zap.Int("turns", len(req.ChatHistory)),
		zap.Int("bytes", len(content)),
	)

	return &entity.ExportedTranscript{
		Content:     content,
		ContentType: fmtr.ContentType(),
		Filename:    fmt.Sprintf("conversation-%s%s", bot.ID, fmtr.FileExtension()),
	}, nil
}
