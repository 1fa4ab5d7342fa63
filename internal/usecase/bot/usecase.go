package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/twinlyai/bot-backend/internal/entity"
	"github.com/twinlyai/bot-backend/internal/pkg/logger"
	"github.com/twinlyai/bot-backend/internal/pkg/validator"
	"github.com/twinlyai/bot-backend/internal/rag"
	"go.uber.org/zap"
)

// BotUsecase implements bot management, resume uploads and chat
type BotUsecase struct {
	botRepo   BotRepository
	pipeline  Pipeline
	validator *validator.Validator
}

func NewUsecase(botRepo BotRepository, pipeline Pipeline, validator *validator.Validator) *BotUsecase {
	return &BotUsecase{
		botRepo:   botRepo,
		pipeline:  pipeline,
		validator: validator,
	}
}

func (uc *BotUsecase) Create(ctx context.Context, userID, name string) (*entity.Bot, error) {
	if err := uc.validator.ValidateBotName(name); err != nil {
		return nil, err
	}

	bot, err := uc.botRepo.Create(ctx, entity.Bot{
		ID:     uuid.New().String(),
		UserID: userID,
		Name:   strings.TrimSpace(name),
	})
	if err != nil {
		return nil, err
	}

	ctxzap.Info(ctx, "bot created", zap.String("bot_id", bot.ID))

	return bot, nil
}

func (uc *BotUsecase) List(ctx context.Context, userID string) ([]*entity.Bot, error) {
	return uc.botRepo.ListByUser(ctx, userID)
}

// GetPublic returns a bot to anyone who knows its id
func (uc *BotUsecase) GetPublic(ctx context.Context, botID string) (*entity.Bot, error) {
	return uc.botRepo.Get(ctx, botID)
}

func (uc *BotUsecase) Rename(ctx context.Context, userID, botID, name string) (*entity.Bot, error) {
	if err := uc.validator.ValidateBotName(name); err != nil {
		return nil, err
	}

	if _, err := uc.ownedBot(ctx, userID, botID); err != nil {
		return nil, err
	}

	bot, err := uc.botRepo.UpdateName(ctx, botID, strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}

	ctxzap.Info(ctx, "bot renamed", zap.String("bot_id", bot.ID))

	return bot, nil
}

// Delete removes the bot record and its index directory
func (uc *BotUsecase) Delete(ctx context.Context, userID, botID string) error {
	bot, err := uc.ownedBot(ctx, userID, botID)
	if err != nil {
		return err
	}
	ctx = logger.WithBot(ctx, bot.Key())

	if err := uc.botRepo.Delete(ctx, bot.ID); err != nil {
		return err
	}

	if err := uc.pipeline.DeleteIndex(ctx, bot.Key()); err != nil {
		// the record is gone already, the directory is only orphaned disk space
		ctxzap.Error(ctx, "failed to remove bot directory", zap.Error(err))
	}

	ctxzap.Info(ctx, "bot deleted")
	return nil
}

// Upload replaces the bot's resume and rebuilds its index
func (uc *BotUsecase) Upload(ctx context.Context, userID string, req *entity.UploadRequest) (*entity.UploadResponse, error) {
	bot, err := uc.ownedBot(ctx, userID, req.BotID)
	if err != nil {
		return nil, err
	}
	ctx = logger.WithBot(ctx, bot.Key())

	ctxzap.Info(ctx, "indexing uploaded document",
		zap.String("filename", validator.SanitizeFilename(req.Filename)),
		zap.Int64("size", req.Size),
	)

	// a bot deleted while its document was indexing must not get its directory back
	stillExists := func(ctx context.Context) error {
		_, err := uc.botRepo.Get(ctx, bot.ID)
		return err
	}

	chunks, err := uc.pipeline.IndexDocument(ctx, bot.Key(), req.Filename, req.File, stillExists)
	if err != nil {
		return nil, err
	}

	return &entity.UploadResponse{
		Message: fmt.Sprintf("Successfully uploaded and indexed for bot %s", bot.Name),
		Chunks:  chunks,
	}, nil
}

func (uc *BotUsecase) Status(ctx context.Context, userID, botID string) (*entity.IndexStatusResponse, error) {
	bot, err := uc.ownedBot(ctx, userID, botID)
	if err != nil {
		return nil, err
	}

	state := uc.pipeline.IndexStatus(logger.WithBot(ctx, bot.Key()), bot.Key())

	return &entity.IndexStatusResponse{
		BotID: bot.ID,
		State: state.String(),
	}, nil
}

// Chat answers one message. The caller must own the bot, through a session or one of their API keys.
func (uc *BotUsecase) Chat(ctx context.Context, identity *entity.Identity, botID string, req *entity.ChatRequest) (*entity.ChatResponse, error) {
	ctx, q, err := uc.question(ctx, identity, botID, req)
	if err != nil {
		return nil, err
	}

	reply, err := uc.pipeline.Answer(ctx, q)
	if err != nil {
		return nil, err
	}

	return &entity.ChatResponse{Reply: reply}, nil
}

// ChatStream is Chat delivered as a stream of chunks
func (uc *BotUsecase) ChatStream(ctx context.Context, identity *entity.Identity, botID string, req *entity.ChatRequest) (<-chan entity.StreamChunk, error) {
	ctx, q, err := uc.question(ctx, identity, botID, req)
	if err != nil {
		return nil, err
	}

	return uc.pipeline.AnswerStream(ctx, q)
}

// question checks the request and the caller's permission and builds the pipeline input
func (uc *BotUsecase) question(ctx context.Context, identity *entity.Identity, botID string, req *entity.ChatRequest) (context.Context, rag.Question, error) {
	if err := req.Validate(); err != nil {
		return ctx, rag.Question{}, err
	}

	bot, err := uc.botRepo.Get(ctx, botID)
	if err != nil {
		return ctx, rag.Question{}, err
	}
	ctx = logger.WithBot(ctx, bot.Key())

	if bot.UserID != identity.UserID {
		ctxzap.Warn(ctx, "chat rejected, caller does not own the bot")
		return ctx, rag.Question{}, entity.ErrForbidden
	}

	return ctx, rag.Question{
		Key:     bot.Key(),
		BotName: bot.Name,
		Message: req.Message,
		History: req.ChatHistory,
	}, nil
}

// ownedBot loads a bot for owner-only operations. Bots of other users are reported as not found.
func (uc *BotUsecase) ownedBot(ctx context.Context, userID, botID string) (*entity.Bot, error) {
	bot, err := uc.botRepo.Get(ctx, botID)
	if err != nil {
		return nil, err
	}
	if bot.UserID != userID {
		return nil, entity.ErrBotNotFound
	}
	return bot, nil
}
