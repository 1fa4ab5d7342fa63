package apikey

import "github.com/twinlyai/bot-backend/internal/entity"

func toAPIKeySummary(k *entity.APIKey) *entity.APIKeySummary {
	return &entity.APIKeySummary{
		ID:     k.ID,
		Prefix: k.Prefix,
	}
}
