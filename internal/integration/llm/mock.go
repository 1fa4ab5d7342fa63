package llm

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	mockFragmentSize = 8
	mockNoAnswer     = "I'm sorry, the resume does not contain that information."
)

var _ model.BaseChatModel = &MockChatModel{}

// MockChatModel answers from the <context> block of the system message.
// Like reasoning models it prefixes every reply with a <think> block.
type MockChatModel struct {
	logger *zap.Logger
}

func NewMockChatModel(logger *zap.Logger) *MockChatModel {
	return &MockChatModel{
		logger: logger,
	}
}

// Generate - returns the whole reply as one message
func (m *MockChatModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reply := m.reply(input)

	ctxzap.Info(ctx, "[MOCK] generating answer",
		zap.Int("message_count", len(input)),
		zap.Int("reply_length", len(reply)),
	)

	return schema.AssistantMessage(reply, nil), nil
}

// Stream - returns the reply split into small fragments, markers included
func (m *MockChatModel) Stream(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reply := m.reply(input)
	runes := []rune(reply)

	fragments := make([]*schema.Message, 0, len(runes)/mockFragmentSize+1)
	for start := 0; start < len(runes); start += mockFragmentSize {
		end := min(start+mockFragmentSize, len(runes))
		fragments = append(fragments, schema.AssistantMessage(string(runes[start:end]), nil))
	}

	ctxzap.Info(ctx, "[MOCK] streaming answer",
		zap.Int("message_count", len(input)),
		zap.Int("fragment_count", len(fragments)),
	)

	return schema.StreamReaderFromArray(fragments), nil
}

func (m *MockChatModel) reply(input []*schema.Message) string {
	var system, question string
	for _, msg := range input {
		switch msg.Role {
		case schema.System:
			system = msg.Content
		case schema.User:
			question = msg.Content
		}
	}

	answer := bestLine(extractContext(system), question)
	if answer == "" {
		answer = mockNoAnswer
	} else {
		answer = "Based on the resume: " + answer
	}

	return fmt.Sprintf("<think>\nThe user asked %q. Answer from the context only.\n</think>\n\n%s", question, answer)
}

// extractContext returns the last <context> block, the persona text may mention the tag earlier
func extractContext(system string) string {
	start := strings.LastIndex(system, "<context>")
	end := strings.LastIndex(system, "</context>")
	if start < 0 || end < start {
		return ""
	}
	return system[start+len("<context>") : end]
}

// bestLine picks the context line sharing the most words with the question, first line on ties
func bestLine(contextText, question string) string {
	questionWords := make(map[string]bool)
	for _, w := range words(question) {
		questionWords[w] = true
	}

	best, bestScore := "", -1
	for _, line := range strings.Split(contextText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		score := 0
		for _, w := range words(line) {
			if questionWords[w] {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = line, score
		}
	}
	return best
}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
