// Package prompt renders the persona prompt and the message list sent to the chat model.
package prompt

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"github.com/twinlyai/bot-backend/internal/entity"
)

const (
	varBotName = "bot_name"
	varContext = "context"
	varHistory = "chat_history"
	varInput   = "input"
)

// DefaultSystemTemplate is used unless a template is loaded from RAG_PROMPT_FILE.
// It is an FString template over {bot_name} and {context}.
const DefaultSystemTemplate = `You are "{bot_name}," a professional AI assistant. Your task is to answer questions about a person based on their resume provided in the context.

**Persona & Introduction:**
- Your name is "{bot_name}".
- **Introduce yourself ONLY IF it is the first turn of the conversation or if asked "who are you?".**
- Your introduction should be: "Hello, I am {bot_name}, an AI assistant for [Person's Name]. I can answer questions based on their resume. How can I help?"
- You must extract the [Person's Name] from the context.
- Always speak about the person in the third person (e.g., "He has experience in...").

**Response Guidelines:**
- Answer exclusively from the <context>.
- If the information isn't in the context, politely state that.
- Use Markdown (bolding, bullet points) for clarity.
- For personal or off-topic questions, state that you can only answer professional questions based on the resume.

<context>
{context}
</context>`

type Builder struct {
	system   string
	template *prompt.DefaultChatTemplate
}

// NewBuilder returns a builder using systemTemplate, or the default one when it is empty
func NewBuilder(systemTemplate string) (*Builder, error) {
	if strings.TrimSpace(systemTemplate) == "" {
		systemTemplate = DefaultSystemTemplate
	}

	b := &Builder{
		system: systemTemplate,
		template: prompt.FromMessages(schema.FString,
			schema.SystemMessage(systemTemplate),
			schema.MessagesPlaceholder(varHistory, true),
			schema.UserMessage("{"+varInput+"}"),
		),
	}

	// catch malformed templates at startup rather than on the first chat
	if _, err := b.Messages(context.Background(), "bot", "", nil, "ping"); err != nil {
		return nil, fmt.Errorf("invalid system prompt template: %w", err)
	}

	return b, nil
}

// BuildSystemPrompt renders the persona prompt for botName, leaving the
// {context} placeholder in place
func (b *Builder) BuildSystemPrompt(botName string) string {
	msgs, err := schema.SystemMessage(b.system).Format(context.Background(), map[string]any{
		varBotName: botName,
		varContext: "{" + varContext + "}",
	}, schema.FString)
	if err != nil || len(msgs) == 0 {
		return b.system
	}
	return msgs[0].Content
}

// Messages produces the system segment with the retrieved context, then the
// prior turns, then the current user message
func (b *Builder) Messages(ctx context.Context, botName, contextText string, history []entity.ChatTurn, input string) ([]*schema.Message, error) {
	historyMsgs, err := ConvertHistory(history)
	if err != nil {
		return nil, err
	}

	msgs, err := b.template.Format(ctx, map[string]any{
		varBotName: botName,
		varContext: contextText,
		varHistory: historyMsgs,
		varInput:   input,
	})
	if err != nil {
		return nil, fmt.Errorf("format prompt: %w", err)
	}

	return msgs, nil
}

// ConvertHistory maps chat turns onto model messages
func ConvertHistory(history []entity.ChatTurn) ([]*schema.Message, error) {
	msgs := make([]*schema.Message, 0, len(history))
	for i, turn := range history {
		switch turn.Role {
		case entity.RoleUser:
			msgs = append(msgs, schema.UserMessage(turn.Content))
		case entity.RoleBot:
			msgs = append(msgs, schema.AssistantMessage(turn.Content, nil))
		default:
			return nil, fmt.Errorf("chat_history[%d]: %w: %q", i, entity.ErrUnknownRole, turn.Role)
		}
	}
	return msgs, nil
}

// JoinContext renders retrieved chunks as the context block content
func JoinContext(results []entity.SearchResult) string {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
	}
	return strings.Join(texts, "\n\n")
}
