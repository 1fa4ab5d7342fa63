package auth

import "github.com/twinlyai/bot-backend/internal/entity"

func toUserResponse(u *entity.User) *entity.UserResponse {
	return &entity.UserResponse{
		ID:    u.ID,
		Email: u.Email,
	}
}
