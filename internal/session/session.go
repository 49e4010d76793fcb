// Package session owns the active document snapshot and the chat history of
// one conversation, and runs the upload and question pipelines over them.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"docqa/internal/assistant"
	"docqa/internal/chunker"
	"docqa/internal/dense"
	"docqa/internal/fusion"
	"docqa/internal/lexical"
	"docqa/internal/loader"
	"docqa/internal/metrics"
)

var (
	// ErrNoDocument marks a question asked before any upload. Such questions
	// are still answered, with no snippets.
	ErrNoDocument = errors.New("no document uploaded")
	ErrIndexBuild = errors.New("failed to build index")
)

type Config struct {
	Chunking         chunker.Config
	BM25             lexical.Params
	Weights          fusion.Weights
	TopK             int
	EmbedConcurrency int
}

type Deps struct {
	Embed     chromem.EmbeddingFunc
	Assembler *assistant.Assembler
	Logger    *zap.Logger
}

// Snapshot is an immutable indexed document. A new upload replaces it as a
// whole; readers keep using the snapshot they loaded.
type Snapshot struct {
	ID        string
	FileName  string
	Chunks    []chunker.Chunk
	CreatedAt time.Time

	lexical *lexical.Index
	dense   *dense.Index
}

type UploadSummary struct {
	SnapshotID string `json:"snapshot_id"`
	FileName   string `json:"file_name"`
	Pages      int    `json:"pages"`
	Chunks     int    `json:"chunks"`
}

type Session struct {
	id        string
	cfg       Config
	chunker   *chunker.Chunker
	embed     chromem.EmbeddingFunc
	assembler *assistant.Assembler
	logger    *zap.Logger

	active atomic.Pointer[Snapshot]

	mu      sync.Mutex
	history []assistant.Message
}

func New(cfg Config, deps Deps) *Session {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	id := uuid.NewString()
	logger = logger.With(zap.String("session", id))

	return &Session{
		id:        id,
		cfg:       cfg,
		chunker:   chunker.New(cfg.Chunking, logger),
		embed:     deps.Embed,
		assembler: deps.Assembler,
		logger:    logger,
	}
}

func (s *Session) ID() string {
	return s.id
}

// Snapshot returns the active snapshot, or nil before the first upload.
func (s *Session) Snapshot() *Snapshot {
	return s.active.Load()
}

// Upload extracts, chunks and indexes a file, then publishes it as the
// active snapshot. On failure the previous snapshot stays active.
func (s *Session) Upload(ctx context.Context, name string, r io.ReaderAt, size int64) (UploadSummary, error) {
	log := s.logger.With(zap.String("file", name))

	if !loader.Supported(name) {
		metrics.UploadsTotal.WithLabelValues("unsupported").Inc()
		log.Warn("unsupported file type")
		return UploadSummary{}, fmt.Errorf("%w: %s", loader.ErrUnsupportedFileType, name)
	}

	pages, err := loader.Load(name, r, size)
	if err != nil {
		status := "invalid"
		if errors.Is(err, loader.ErrUnsupportedFileType) {
			status = "unsupported"
		}
		metrics.UploadsTotal.WithLabelValues(status).Inc()
		log.Error("failed to extract document", zap.Error(err))
		return UploadSummary{}, err
	}

	chunks := s.chunker.Chunk(pages)

	lex := lexical.Build(chunks, s.cfg.BM25)
	vec, err := dense.Build(ctx, chunks, s.embed, s.cfg.EmbedConcurrency, log)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("index_error").Inc()
		log.Error("failed to build dense index", zap.Error(err))
		return UploadSummary{}, fmt.Errorf("%w: %w", ErrIndexBuild, err)
	}

	snap := &Snapshot{
		ID:        uuid.NewString(),
		FileName:  name,
		Chunks:    chunks,
		CreatedAt: time.Now(),
		lexical:   lex,
		dense:     vec,
	}
	s.active.Store(snap)

	metrics.UploadsTotal.WithLabelValues("ok").Inc()
	metrics.ActiveChunks.Set(float64(len(chunks)))
	log.Info("vector data created",
		zap.String("snapshot", snap.ID),
		zap.Int("pages", len(pages)),
		zap.Int("chunks", len(chunks)),
	)

	return UploadSummary{
		SnapshotID: snap.ID,
		FileName:   name,
		Pages:      len(pages),
		Chunks:     len(chunks),
	}, nil
}

// Retrieve runs the lexical and dense queries in parallel over the active
// snapshot and fuses them. Before any upload, and for a blank question, it
// returns nothing.
func (s *Session) Retrieve(ctx context.Context, question string) ([]fusion.Result, error) {
	return s.retrieve(ctx, s.active.Load(), question)
}

func (s *Session) retrieve(ctx context.Context, snap *Snapshot, question string) ([]fusion.Result, error) {
	if snap == nil {
		s.logger.Warn("query before upload", zap.Error(ErrNoDocument))
		return nil, nil
	}
	if strings.TrimSpace(question) == "" {
		return nil, nil
	}
	k := s.cfg.TopK

	var lexResults, denseResults []fusion.Ranked
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		lexResults = snap.lexical.Query(question, k)
		metrics.RetrievalDuration.WithLabelValues("lexical").Observe(time.Since(start).Seconds())
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		res, err := snap.dense.Query(gctx, question, k)
		metrics.RetrievalDuration.WithLabelValues("dense").Observe(time.Since(start).Seconds())
		if err != nil {
			return fmt.Errorf("dense query: %w", err)
		}
		denseResults = res
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	start := time.Now()
	results := fusion.Fuse(lexResults, denseResults, s.cfg.Weights, k)
	metrics.RetrievalDuration.WithLabelValues("fusion").Observe(time.Since(start).Seconds())

	s.logger.Debug("retrieved",
		zap.String("snapshot", snap.ID),
		zap.Int("lexical", len(lexResults)),
		zap.Int("dense", len(denseResults)),
		zap.Int("fused", len(results)),
	)
	return results, nil
}

// Ask answers a question from the active snapshot and the chat history. The
// snapshot is loaded once, so the answer's file name always matches its
// citations. The turn is appended to the history only when the model answered.
func (s *Session) Ask(ctx context.Context, question string) (assistant.Answer, error) {
	snap := s.active.Load()

	results, err := s.retrieve(ctx, snap, question)
	if err != nil {
		return assistant.Answer{}, err
	}

	ans, err := s.assembler.Answer(ctx, question, s.History(), results)
	if err != nil {
		return assistant.Answer{}, err
	}
	if snap != nil {
		ans.FileName = snap.FileName
	}

	s.mu.Lock()
	s.history = append(s.history,
		assistant.Message{Role: assistant.RoleUser, Content: question},
		assistant.Message{Role: assistant.RoleAssistant, Content: ans.Text},
	)
	s.mu.Unlock()

	return ans, nil
}

// History returns a copy of the chat history.
func (s *Session) History() []assistant.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]assistant.Message, len(s.history))
	copy(out, s.history)
	return out
}

// Reset clears the chat history. The active document stays.
func (s *Session) Reset() {
	s.mu.Lock()
	s.history = nil
	s.mu.Unlock()
	s.logger.Info("chat history cleared")
}
