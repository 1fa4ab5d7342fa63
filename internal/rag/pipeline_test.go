package rag

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/twinlyai/bot-backend/internal/entity"
	"github.com/twinlyai/bot-backend/internal/integration/embedder"
	"github.com/twinlyai/bot-backend/internal/integration/llm"
	pkgRetry "github.com/twinlyai/bot-backend/internal/pkg/retry"
	"github.com/twinlyai/bot-backend/internal/rag/chunker"
	"github.com/twinlyai/bot-backend/internal/rag/embedding"
	"github.com/twinlyai/bot-backend/internal/rag/extractor"
	"github.com/twinlyai/bot-backend/internal/rag/prompt"
	"github.com/twinlyai/bot-backend/internal/rag/vectorindex"
	pkghttp "github.com/twinlyai/bot-backend/pkg/http"
	"go.uber.org/zap"
)

const adaResume = "Name: Ada Lovelace\nOccupation: Mathematician\nKnown for: first published algorithm for the Analytical Engine\n"

var adaKey = entity.BotKey{OwnerID: "owner-1", BotID: "bot-1"}

type testEnv struct {
	pipeline *Pipeline
	indexes  *vectorindex.Manager
	root     string
}

func newTestEnv(t *testing.T, chatModel model.BaseChatModel) *testEnv {
	t.Helper()

	root := t.TempDir()
	indexes := vectorindex.NewManager(root, time.Minute)

	retryCfg := pkgRetry.RetryConfig{Attempts: 3, Delay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	emb, err := embedding.NewService(embedder.NewHashEmbedder(64), embedding.Config{
		Dimension: 64,
		BatchSize: 4,
		Retry:     retryCfg,
	})
	if err != nil {
		t.Fatalf("embedding.NewService() error = %v", err)
	}

	prompts, err := prompt.NewBuilder("")
	if err != nil {
		t.Fatalf("prompt.NewBuilder() error = %v", err)
	}

	if chatModel == nil {
		chatModel = llm.NewMockChatModel(zap.NewNop())
	}

	splitter, err := chunker.NewDefault()
	if err != nil {
		t.Fatalf("chunker.NewDefault() error = %v", err)
	}

	return &testEnv{
		pipeline: NewPipeline(indexes, splitter, emb, chatModel, prompts, Config{
			TopK:              4,
			GenerationTimeout: 2 * time.Second,
			Retry:             retryCfg,
		}),
		indexes: indexes,
		root:    root,
	}
}

func (e *testEnv) upload(t *testing.T, key entity.BotKey, filename, content string) int {
	t.Helper()
	n, err := e.pipeline.IndexDocument(context.Background(), key, filename, strings.NewReader(content), nil)
	if err != nil {
		t.Fatalf("IndexDocument(%s) error = %v", filename, err)
	}
	return n
}

func ask(message string) Question {
	return Question{Key: adaKey, BotName: "ResumeBot", Message: message}
}

func TestAnswerFromUploadedResume(t *testing.T) {
	env := newTestEnv(t, nil)

	if n := env.upload(t, adaKey, "resume.txt", adaResume); n != 1 {
		t.Fatalf("IndexDocument() chunks = %d, want 1", n)
	}

	answer, err := env.pipeline.Answer(context.Background(), ask("What is her name?"))
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if !strings.Contains(answer, "Ada Lovelace") {
		t.Errorf("Answer() = %q, want it to mention Ada Lovelace", answer)
	}
	if strings.Contains(answer, "<think>") || strings.Contains(answer, "</think>") {
		t.Errorf("Answer() leaked reasoning markup: %q", answer)
	}

	sourcePath := filepath.Join(env.root, adaKey.OwnerID, adaKey.BotID, "source.txt")
	if data, err := os.ReadFile(sourcePath); err != nil || string(data) != adaResume {
		t.Errorf("stored source = %q, %v", data, err)
	}
}

func TestAnswerNotIndexed(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.pipeline.Answer(context.Background(), ask("What is her name?"))
	if !errors.Is(err, entity.ErrBotNotIndexed) {
		t.Errorf("Answer() error = %v, want ErrBotNotIndexed", err)
	}

	if _, err := env.pipeline.AnswerStream(context.Background(), ask("hi")); !errors.Is(err, entity.ErrBotNotIndexed) {
		t.Errorf("AnswerStream() error = %v, want ErrBotNotIndexed", err)
	}
}

func TestAnswerEmptyMessage(t *testing.T) {
	env := newTestEnv(t, nil)
	env.upload(t, adaKey, "resume.txt", adaResume)

	if _, err := env.pipeline.Answer(context.Background(), ask("")); !errors.Is(err, entity.ErrEmptyMessage) {
		t.Errorf("Answer() error = %v, want ErrEmptyMessage", err)
	}
	if _, err := env.pipeline.AnswerStream(context.Background(), ask("")); !errors.Is(err, entity.ErrEmptyMessage) {
		t.Errorf("AnswerStream() error = %v, want ErrEmptyMessage", err)
	}
}

func TestReuploadReplacesIndex(t *testing.T) {
	env := newTestEnv(t, nil)

	env.upload(t, adaKey, "resume.txt", adaResume)
	if _, err := env.pipeline.Answer(context.Background(), ask("What is her name?")); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	env.upload(t, adaKey, "resume.json", `{"name": "Grace Hopper", "occupation": "Computer scientist"}`)

	answer, err := env.pipeline.Answer(context.Background(), ask("What is her name?"))
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if !strings.Contains(answer, "Grace Hopper") || strings.Contains(answer, "Ada") {
		t.Errorf("Answer() = %q, want only the second resume", answer)
	}

	// the previous source document does not linger
	if _, err := os.Stat(filepath.Join(env.root, adaKey.OwnerID, adaKey.BotID, "source.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("old source file still present: %v", err)
	}
}

func TestFailedUploadKeepsPreviousIndex(t *testing.T) {
	env := newTestEnv(t, nil)
	env.upload(t, adaKey, "resume.txt", adaResume)

	tests := []struct {
		name     string
		filename string
		content  string
		wantErr  error
	}{
		{name: "malformed json", filename: "resume.json", content: `{"name": `, wantErr: entity.ErrExtractionFailed},
		{name: "empty text", filename: "resume.txt", content: "  \n\t ", wantErr: entity.ErrEmptyDocument},
		{name: "unsupported type", filename: "resume.xlsx", content: "cells", wantErr: entity.ErrUnsupportedFileType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.pipeline.IndexDocument(context.Background(), adaKey, tt.filename, strings.NewReader(tt.content), nil)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("IndexDocument() error = %v, want %v", err, tt.wantErr)
			}

			answer, err := env.pipeline.Answer(context.Background(), ask("What is her name?"))
			if err != nil {
				t.Fatalf("Answer() error = %v", err)
			}
			if !strings.Contains(answer, "Ada Lovelace") {
				t.Errorf("Answer() = %q, want the previous resume", answer)
			}
		})
	}
}

func TestUnsupportedTypeCarriesExtension(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.pipeline.IndexDocument(context.Background(), adaKey, "Resume.XLSX", strings.NewReader("x"), nil)
	var typeErr *extractor.UnsupportedFileTypeError
	if !errors.As(err, &typeErr) || typeErr.Ext != ".xlsx" {
		t.Errorf("IndexDocument() error = %v, want unsupported .xlsx", err)
	}
}

func TestAnswerStreamMatchesAnswer(t *testing.T) {
	env := newTestEnv(t, nil)
	env.upload(t, adaKey, "resume.txt", adaResume)

	want, err := env.pipeline.Answer(context.Background(), ask("What is her occupation?"))
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	ch, err := env.pipeline.AnswerStream(context.Background(), ask("What is her occupation?"))
	if err != nil {
		t.Fatalf("AnswerStream() error = %v", err)
	}

	var sb strings.Builder
	for chunk := range ch {
		if chunk.Err != nil {
			t.Fatalf("stream chunk error = %v", chunk.Err)
		}
		sb.WriteString(chunk.Text)
	}

	if got := sb.String(); got != want {
		t.Errorf("streamed text = %q, want %q", got, want)
	}
	if strings.Contains(sb.String(), "think>") {
		t.Errorf("streamed text leaked reasoning markup: %q", sb.String())
	}
}

func TestAnswerStreamCancellation(t *testing.T) {
	env := newTestEnv(t, nil)
	env.upload(t, adaKey, "resume.txt", adaResume)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := env.pipeline.AnswerStream(ctx, ask("What is her name?"))
	if err != nil {
		t.Fatalf("AnswerStream() error = %v", err)
	}
	cancel()

	done := make(chan struct{})
	go func() {
		for range ch {
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream channel was not closed after cancellation")
	}

	// the index is unaffected
	if state := env.pipeline.IndexStatus(context.Background(), adaKey); state != entity.IndexStateReady {
		t.Errorf("IndexStatus() = %v, want ready", state)
	}
}

type blockingModel struct{}

func (blockingModel) Generate(ctx context.Context, _ []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingModel) Stream(ctx context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestAnswerGenerationTimeout(t *testing.T) {
	env := newTestEnv(t, blockingModel{})
	env.pipeline.cfg.GenerationTimeout = 20 * time.Millisecond
	env.upload(t, adaKey, "resume.txt", adaResume)

	_, err := env.pipeline.Answer(context.Background(), ask("What is her name?"))
	if !errors.Is(err, entity.ErrGenerationTimeout) {
		t.Errorf("Answer() error = %v, want ErrGenerationTimeout", err)
	}

	_, err = env.pipeline.AnswerStream(context.Background(), ask("What is her name?"))
	if !errors.Is(err, entity.ErrGenerationTimeout) {
		t.Errorf("AnswerStream() error = %v, want ErrGenerationTimeout", err)
	}
}

type flakyModel struct {
	calls    atomic.Int32
	failures int32
	err      error
}

func (m *flakyModel) Generate(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	if m.calls.Add(1) <= m.failures {
		return nil, m.err
	}
	return schema.AssistantMessage("<think>ok</think>Recovered answer", nil), nil
}

func (m *flakyModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func TestAnswerRetriesTransientFailures(t *testing.T) {
	fm := &flakyModel{failures: 2, err: &pkghttp.HTTPError{StatusCode: 503, Message: "overloaded"}}
	env := newTestEnv(t, fm)
	env.upload(t, adaKey, "resume.txt", adaResume)

	answer, err := env.pipeline.Answer(context.Background(), ask("anything"))
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer != "Recovered answer" {
		t.Errorf("Answer() = %q", answer)
	}
	if got := fm.calls.Load(); got != 3 {
		t.Errorf("model called %d times, want 3", got)
	}
}

func TestAnswerGenerationUnavailable(t *testing.T) {
	fm := &flakyModel{failures: 100, err: errors.New("invalid api key")}
	env := newTestEnv(t, fm)
	env.upload(t, adaKey, "resume.txt", adaResume)

	_, err := env.pipeline.Answer(context.Background(), ask("anything"))
	if !errors.Is(err, entity.ErrGenerationUnavailable) {
		t.Errorf("Answer() error = %v, want ErrGenerationUnavailable", err)
	}
	if got := fm.calls.Load(); got != 1 {
		t.Errorf("model called %d times, want 1 for a permanent error", got)
	}
}

func TestCorruptIndexReportsNotIndexed(t *testing.T) {
	env := newTestEnv(t, nil)

	dir := filepath.Join(env.root, adaKey.OwnerID, adaKey.BotID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, vectorindex.FileName), []byte("garbage"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := env.pipeline.Answer(context.Background(), ask("hi")); !errors.Is(err, entity.ErrBotNotIndexed) {
		t.Errorf("Answer() error = %v, want ErrBotNotIndexed", err)
	}
	if state := env.pipeline.IndexStatus(context.Background(), adaKey); state != entity.IndexStateLoadError {
		t.Errorf("IndexStatus() = %v, want load_error", state)
	}
}

func TestDeleteIndex(t *testing.T) {
	env := newTestEnv(t, nil)
	env.upload(t, adaKey, "resume.txt", adaResume)

	if err := env.pipeline.DeleteIndex(context.Background(), adaKey); err != nil {
		t.Fatalf("DeleteIndex() error = %v", err)
	}
	if _, err := env.pipeline.Answer(context.Background(), ask("hi")); !errors.Is(err, entity.ErrBotNotIndexed) {
		t.Errorf("Answer() after delete error = %v, want ErrBotNotIndexed", err)
	}
}

func TestBotsDoNotShareIndices(t *testing.T) {
	env := newTestEnv(t, nil)
	env.upload(t, adaKey, "resume.txt", adaResume)

	other := Question{Key: entity.BotKey{OwnerID: "owner-2", BotID: "bot-9"}, BotName: "Other", Message: "What is her name?"}
	if _, err := env.pipeline.Answer(context.Background(), other); !errors.Is(err, entity.ErrBotNotIndexed) {
		t.Errorf("Answer(other bot) error = %v, want ErrBotNotIndexed", err)
	}
}
