package formatter

import (
	"fmt"

	"github.com/twinlyai/bot-backend/internal/entity"
)

// Transcript is a conversation with a bot as the client holds it
type Transcript struct {
	BotName string
	Turns   []entity.ChatTurn
}

func (t *Transcript) Title() string {
	return fmt.Sprintf("Conversation with %s", t.BotName)
}

// Speaker names the author of a turn
func (t *Transcript) Speaker(turn entity.ChatTurn) string {
	if turn.Role == entity.RoleBot {
		return t.BotName
	}
	return "You"
}

type Formatter interface {
	Format(t *Transcript) ([]byte, error)
	ContentType() string
	FileExtension() string
}

// New returns the formatter for an export format
func New(format entity.ExportFormat) (Formatter, error) {
	switch format {
	case entity.ExportMarkdown:
		return NewMarkdownFormatter(), nil
	case entity.ExportDOCX:
		return NewDOCXFormatter(), nil
	case entity.ExportPDF:
		return NewPDFFormatter(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported export format %q", entity.ErrInvalidParameter, format)
	}
}
