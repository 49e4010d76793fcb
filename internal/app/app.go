// Package app is the interactive console front end: a line-oriented REPL
// over one session, with an optional Markdown transcript on exit.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"docqa/internal/assistant"
	"docqa/internal/session"
)

type App struct {
	session    *session.Session
	in         io.Reader
	out        io.Writer
	logger     *zap.Logger
	outputPath string

	mu    sync.Mutex
	turns []Turn
}

// Turn is one answered question kept for the transcript.
type Turn struct {
	Question string
	Answer   assistant.Answer
	FileName string
	AskedAt  time.Time
}

type Options struct {
	In         io.Reader // defaults to os.Stdin
	Out        io.Writer // defaults to os.Stdout
	OutputPath string    // transcript written on exit when set
	Logger     *zap.Logger
}

func New(sess *session.Session, opts Options) *App {
	a := &App{
		session:    sess,
		in:         opts.In,
		out:        opts.Out,
		logger:     opts.Logger,
		outputPath: opts.OutputPath,
	}
	if a.in == nil {
		a.in = os.Stdin
	}
	if a.out == nil {
		a.out = os.Stdout
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	return a
}

// UploadFile indexes the file at path as the active document.
func (a *App) UploadFile(ctx context.Context, path string) (session.UploadSummary, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return session.UploadSummary{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return session.UploadSummary{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return session.UploadSummary{}, fmt.Errorf("%s is a directory", path)
	}

	return a.session.Upload(ctx, filepath.Base(path), f, info.Size())
}

// Turns returns the answered questions so far.
func (a *App) Turns() []Turn {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Turn, len(a.turns))
	copy(out, a.turns)
	return out
}

func (a *App) record(t Turn) {
	a.mu.Lock()
	a.turns = append(a.turns, t)
	a.mu.Unlock()
}
