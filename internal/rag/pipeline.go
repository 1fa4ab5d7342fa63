// Package rag runs the per-bot retrieval augmented generation flow:
// extract, chunk, embed and index on upload; retrieve, generate and sanitize on chat.
package rag

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/twinlyai/bot-backend/internal/entity"
	pkgRetry "github.com/twinlyai/bot-backend/internal/pkg/retry"
	"github.com/twinlyai/bot-backend/internal/rag/chunker"
	"github.com/twinlyai/bot-backend/internal/rag/embedding"
	"github.com/twinlyai/bot-backend/internal/rag/extractor"
	"github.com/twinlyai/bot-backend/internal/rag/prompt"
	"github.com/twinlyai/bot-backend/internal/rag/sanitize"
	"github.com/twinlyai/bot-backend/internal/rag/vectorindex"
	pkghttp "github.com/twinlyai/bot-backend/pkg/http"
	"go.uber.org/zap"
)

// sourceBaseName is the stored copy of the uploaded document, next to the index
const sourceBaseName = "source"

type Config struct {
	TopK              int
	GenerationTimeout time.Duration
	Retry             pkgRetry.RetryConfig
}

// Question is a single chat request against a bot's index
type Question struct {
	Key     entity.BotKey
	BotName string
	Message string
	History []entity.ChatTurn
}

type Pipeline struct {
	indexes  *vectorindex.Manager
	splitter *chunker.Splitter
	embedder *embedding.Service
	model    model.BaseChatModel
	prompts  *prompt.Builder
	cfg      Config
}

func NewPipeline(
	indexes *vectorindex.Manager,
	splitter *chunker.Splitter,
	embedder *embedding.Service,
	chatModel model.BaseChatModel,
	prompts *prompt.Builder,
	cfg Config,
) *Pipeline {
	if cfg.TopK <= 0 {
		cfg.TopK = vectorindex.DefaultTopK
	}
	return &Pipeline{
		indexes:  indexes,
		splitter: splitter,
		embedder: embedder,
		model:    chatModel,
		prompts:  prompts,
		cfg:      cfg,
	}
}

// IndexDocument replaces the bot's index with one built from the document in r.
// The previous index stays in place when any step fails. A non-nil guard is
// checked right before the swap, with the bot locked.
func (p *Pipeline) IndexDocument(ctx context.Context, key entity.BotKey, filename string, r io.Reader, guard vectorindex.Guard) (int, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !extractor.IsSupported(ext) {
		return 0, &extractor.UnsupportedFileTypeError{Ext: ext}
	}

	started := time.Now()
	var chunkCount int

	err := p.indexes.Replace(ctx, key, func(dir string) error {
		sourcePath := filepath.Join(dir, sourceBaseName+ext)
		if err := writeSource(sourcePath, r); err != nil {
			return err
		}

		text, err := extractor.Extract(sourcePath, ext)
		if err != nil {
			return err
		}
		if strings.TrimSpace(text) == "" {
			return entity.ErrEmptyDocument
		}

		chunks, err := p.splitter.Split(ctx, text)
		if err != nil {
			return err
		}
		if len(chunks) == 0 {
			return entity.ErrEmptyDocument
		}

		vectors, err := p.embedder.EmbedBatch(ctx, chunks)
		if err != nil {
			return fmt.Errorf("%w: embed chunks: %w", entity.ErrGenerationUnavailable, err)
		}

		ix, err := vectorindex.Build(chunks, vectors)
		if err != nil {
			return fmt.Errorf("build index: %w", err)
		}

		if err := vectorindex.Persist(ix, dir); err != nil {
			return fmt.Errorf("persist index: %w", err)
		}

		chunkCount = len(chunks)
		return nil
	}, guard)
	if err != nil {
		return 0, err
	}

	ctxzap.Info(ctx, "document indexed",
		zap.String("extension", ext),
		zap.Int("chunks", chunkCount),
		zap.Duration("duration", time.Since(started)),
	)

	return chunkCount, nil
}

// Answer retrieves context for the question and returns the sanitized model reply
func (p *Pipeline) Answer(ctx context.Context, q Question) (string, error) {
	msgs, err := p.prepare(ctx, q)
	if err != nil {
		return "", err
	}

	genCtx, cancel := context.WithTimeout(ctx, p.cfg.GenerationTimeout)
	defer cancel()

	reply, err := retry.DoWithData(
		func() (*schema.Message, error) {
			return p.model.Generate(genCtx, msgs)
		},
		p.retryOptions(genCtx)...,
	)
	if err != nil {
		return "", p.generationError(ctx, genCtx, err)
	}

	answer := sanitize.Sanitize(reply.Content)

	ctxzap.Info(ctx, "answer generated",
		zap.Int("raw_length", len(reply.Content)),
		zap.Int("answer_length", len(answer)),
	)

	return answer, nil
}

// AnswerStream is Answer delivered over a channel. Errors detected before
// generation starts are returned directly; later ones arrive as a final chunk
// with Err set. The reply is buffered and sanitized as a whole, so its text is
// identical to Answer's. Cancelling ctx stops the producer and closes the channel.
func (p *Pipeline) AnswerStream(ctx context.Context, q Question) (<-chan entity.StreamChunk, error) {
	msgs, err := p.prepare(ctx, q)
	if err != nil {
		return nil, err
	}

	genCtx, cancel := context.WithTimeout(ctx, p.cfg.GenerationTimeout)

	stream, err := retry.DoWithData(
		func() (*schema.StreamReader[*schema.Message], error) {
			return p.model.Stream(genCtx, msgs)
		},
		p.retryOptions(genCtx)...,
	)
	if err != nil {
		cancel()
		return nil, p.generationError(ctx, genCtx, err)
	}

	out := make(chan entity.StreamChunk, 1)

	go func() {
		defer close(out)
		defer cancel()
		defer stream.Close()

		send := func(chunk entity.StreamChunk) {
			select {
			case out <- chunk:
			case <-ctx.Done():
			}
		}

		var sb strings.Builder
		for {
			if ctx.Err() != nil {
				ctxzap.Debug(ctx, "stream cancelled by caller")
				return
			}

			msg, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				send(entity.StreamChunk{Err: p.generationError(ctx, genCtx, err)})
				return
			}
			sb.WriteString(msg.Content)
		}

		answer := sanitize.Sanitize(sb.String())
		ctxzap.Info(ctx, "streamed answer generated",
			zap.Int("raw_length", sb.Len()),
			zap.Int("answer_length", len(answer)),
		)

		send(entity.StreamChunk{Text: answer})
	}()

	return out, nil
}

func (p *Pipeline) IndexStatus(ctx context.Context, key entity.BotKey) entity.IndexState {
	return p.indexes.Status(ctx, key)
}

// DeleteIndex removes the bot's directory, including the stored source document
func (p *Pipeline) DeleteIndex(ctx context.Context, key entity.BotKey) error {
	return p.indexes.Remove(ctx, key)
}

// prepare validates the question, retrieves context and renders the model input
func (p *Pipeline) prepare(ctx context.Context, q Question) ([]*schema.Message, error) {
	if q.Message == "" {
		return nil, entity.ErrEmptyMessage
	}

	lookup := p.indexes.Acquire(ctx, q.Key)
	switch lookup.State {
	case entity.IndexStateReady:
	case entity.IndexStateLoadError:
		ctxzap.Error(ctx, "failed to load bot index", zap.Error(lookup.Err))
		return nil, entity.ErrBotNotIndexed
	default:
		return nil, entity.ErrBotNotIndexed
	}

	queryVec, err := p.embedder.Embed(ctx, q.Message)
	if err != nil {
		return nil, fmt.Errorf("%w: embed question: %w", entity.ErrGenerationUnavailable, err)
	}

	results, err := lookup.Index.Search(queryVec, p.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	ctxzap.Debug(ctx, "context retrieved",
		zap.Int("results", len(results)),
		zap.Int("history_turns", len(q.History)),
	)

	msgs, err := p.prompts.Messages(ctx, q.BotName, prompt.JoinContext(results), q.History, q.Message)
	if err != nil {
		return nil, err
	}

	return msgs, nil
}

func (p *Pipeline) retryOptions(ctx context.Context) []retry.Option {
	return append(p.cfg.Retry.Options(ctx, isTransient),
		retry.OnRetry(func(n uint, err error) {
			ctxzap.Warn(ctx, "generation request failed, retrying",
				zap.Uint("attempt", n+1),
				zap.Error(err),
			)
		}),
	)
}

// generationError classifies a model failure. Caller cancellation is passed
// through as is, an expired generation deadline becomes ErrGenerationTimeout
// and anything else ErrGenerationUnavailable.
func (p *Pipeline) generationError(ctx, genCtx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(genCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		ctxzap.Warn(ctx, "generation timed out",
			zap.Duration("timeout", p.cfg.GenerationTimeout),
			zap.Error(err),
		)
		return fmt.Errorf("%w after %s", entity.ErrGenerationTimeout, p.cfg.GenerationTimeout)
	}

	ctxzap.Error(ctx, "generation failed", zap.Error(err))
	return fmt.Errorf("%w: %w", entity.ErrGenerationUnavailable, err)
}

// isTransient accepts outbound errors worth repeating: typed HTTP errors
// classified by pkg/http and raw network errors from SDK clients
func isTransient(err error) bool {
	if pkghttp.IsRetryable(err) {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func writeSource(path string, r io.Reader) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create source file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("write source file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close source file: %w", err)
	}
	return nil
}
