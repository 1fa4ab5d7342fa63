package entity

import "time"

type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

type Bot struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BotKey addresses the on-disk artifacts of a bot.
type BotKey struct {
	OwnerID string
	BotID   string
}

func (b *Bot) Key() BotKey {
	return BotKey{OwnerID: b.UserID, BotID: b.ID}
}

type APIKey struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	HashedKey string    `json:"-"`
	Prefix    string    `json:"prefix"`
	CreatedAt time.Time `json:"created_at"`
}

// CredentialKind tells how a request was authenticated
type CredentialKind string

const (
	CredentialSession CredentialKind = "session"
	CredentialAPIKey  CredentialKind = "api_key"
)

// Identity is the resolved caller of a request
type Identity struct {
	UserID string
	Email  string
	Kind   CredentialKind
	// KeyID is set only for API key credentials
	KeyID string
}
