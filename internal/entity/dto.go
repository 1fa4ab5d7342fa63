package entity

import "mime/multipart"

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Auth

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// API keys

type APIKeyCreateResponse struct {
	APIKey  string `json:"api_key"`
	Message string `json:"message"`
}

type APIKeySummary struct {
	ID     string `json:"id"`
	Prefix string `json:"prefix"`
}

// Bots

type CreateBotRequest struct {
	Name string `json:"name"`
}

type UpdateBotRequest struct {
	Name string `json:"name"`
}

type BotResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	UserID string `json:"user_id"`
}

type PublicBotResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type UploadRequest struct {
	BotID string
	File  multipart.File
	// Filename is the declared name of the upload, the extension is taken from it
	Filename string
	Size     int64
}

type UploadResponse struct {
	Message string `json:"message"`
	Chunks  int    `json:"chunks"`
}

type IndexStatusResponse struct {
	BotID string `json:"bot_id"`
	State string `json:"state"`
}
