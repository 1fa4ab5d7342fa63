package logger

import (
	"context"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/twinlyai/bot-backend/internal/entity"
	"go.uber.org/zap"
)

// AddFields adds fields to the logger in context and returns new context
func AddFields(ctx context.Context, fields ...zap.Field) context.Context {
	logger := ctxzap.Extract(ctx)
	return ctxzap.ToContext(ctx, logger.With(fields...))
}

// WithAction adds "action" field to context logger to describe the flow
func WithAction(ctx context.Context, action string) context.Context {
	return AddFields(ctx, zap.String("action", action))
}

// WithBot adds the bot and its owner to the context logger
func WithBot(ctx context.Context, key entity.BotKey) context.Context {
	return AddFields(ctx,
		zap.String("bot_id", key.BotID),
		zap.String("owner_id", key.OwnerID),
	)
}

// WithIdentity adds the authenticated caller to the context logger
func WithIdentity(ctx context.Context, identity *entity.Identity) context.Context {
	fields := []zap.Field{
		zap.String("user_id", identity.UserID),
		zap.String("credential", string(identity.Kind)),
	}
	if identity.KeyID != "" {
		fields = append(fields, zap.String("api_key_id", identity.KeyID))
	}
	return AddFields(ctx, fields...)
}
