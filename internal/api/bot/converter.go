package bot

import "github.com/twinlyai/bot-backend/internal/entity"

func toBotResponse(b *entity.Bot) *entity.BotResponse {
	return &entity.BotResponse{
		ID:     b.ID,
		Name:   b.Name,
		UserID: b.UserID,
	}
}

func toPublicBotResponse(b *entity.Bot) *entity.PublicBotResponse {
	return &entity.PublicBotResponse{
		ID:   b.ID,
		Name: b.Name,
	}
}
