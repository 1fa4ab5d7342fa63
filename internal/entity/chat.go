package entity

import "fmt"

type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

func (r Role) Validate() error {
	switch r {
	case RoleUser, RoleBot:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownRole, string(r))
	}
}

type ChatTurn struct {
	Role    Role   `json:"type"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Message     string     `json:"message"`
	ChatHistory []ChatTurn `json:"chat_history"`
}

func (r *ChatRequest) Validate() error {
	if r.Message == "" {
		return ErrEmptyMessage
	}
	for i, turn := range r.ChatHistory {
		if err := turn.Role.Validate(); err != nil {
			return fmt.Errorf("chat_history[%d]: %w", i, err)
		}
	}
	return nil
}

type ChatResponse struct {
	Reply string `json:"reply"`
}

// StreamChunk is one unit of a streamed reply. A chunk with Err set is terminal.
type StreamChunk struct {
	Text string
	Err  error
}

type StreamEvent struct {
	Text string `json:"text"`
}

// ExportFormat is the file format of an exported conversation
type ExportFormat string

const (
	ExportMarkdown ExportFormat = "markdown"
	ExportDOCX     ExportFormat = "docx"
	ExportPDF      ExportFormat = "pdf"
)

// ExportRequest carries the client-held conversation to render
type ExportRequest struct {
	ChatHistory []ChatTurn `json:"chat_history"`
}

func (r *ExportRequest) Validate() error {
	if len(r.ChatHistory) == 0 {
		return fmt.Errorf("%w: chat_history", ErrMissingField)
	}
	for i, turn := range r.ChatHistory {
		if err := turn.Role.Validate(); err != nil {
			return fmt.Errorf("chat_history[%d]: %w", i, err)
		}
	}
	return nil
}

// ExportedTranscript is a rendered conversation file
type ExportedTranscript struct {
	Content     []byte
	ContentType string
	Filename    string
}
