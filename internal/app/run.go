package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"docqa/internal/assistant"
	"docqa/internal/session"
)

const help = `Commands:
  /upload <path>   index a document (pdf, txt, docx, pptx, xlsx, csv, md)
  /reset           clear the chat history
  /quit            exit
Anything else is a question about the uploaded document.`

var errQuit = errors.New("quit")

// Run reads commands and questions line by line until EOF, /quit or
// context cancellation. The transcript is saved on the way out.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("application started")
	fmt.Fprintln(a.out, help)

	scanner := bufio.NewScanner(a.in)
	const maxLineSize = 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	err := a.loop(ctx, scanner)

	if a.outputPath != "" {
		if serr := a.SaveTranscript(a.outputPath); serr != nil {
			a.logger.Warn("failed to save transcript", zap.Error(serr))
		} else {
			fmt.Fprintf(a.out, "Transcript saved to: %s\n", a.outputPath)
		}
	}
	return err
}

func (a *App) loop(ctx context.Context, scanner *bufio.Scanner) error {
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("shutting down application")
			return nil
		default:
		}

		fmt.Fprint(a.out, "> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("stdin error: %w", err)
			}
			a.logger.Info("stdin closed")
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := a.handleLine(ctx, line); errors.Is(err, errQuit) {
			return nil
		}
	}
}

func (a *App) handleLine(ctx context.Context, line string) error {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit":
		return errQuit
	case "/help":
		fmt.Fprintln(a.out, help)
	case "/reset":
		a.session.Reset()
		fmt.Fprintln(a.out, "Chat history cleared.")
	case "/upload":
		a.handleUpload(ctx, arg)
	default:
		a.handleQuestion(ctx, line)
	}
	return nil
}

func (a *App) handleUpload(ctx context.Context, path string) {
	if path == "" {
		fmt.Fprintln(a.out, "Usage: /upload <path>")
		return
	}

	fmt.Fprintln(a.out, "Creating vector data...")
	sum, err := a.UploadFile(ctx, path)
	if err != nil {
		a.logger.Error("upload failed", zap.String("path", path), zap.Error(err))
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(a.out, "File not found: %s\n", path)
			return
		}
		fmt.Fprintln(a.out, session.UserMessage(err))
		return
	}
	fmt.Fprintf(a.out, "Vector data created successfully. %s: %d pages, %d chunks.\n",
		sum.FileName, sum.Pages, sum.Chunks)
}

func (a *App) handleQuestion(ctx context.Context, question string) {
	if a.session.Snapshot() == nil {
		fmt.Fprintln(a.out, session.UserMessage(session.ErrNoDocument))
	}

	ans, err := a.session.Ask(ctx, question)
	if err != nil {
		a.logger.Error("question failed", zap.Error(err))
		fmt.Fprintln(a.out, session.UserMessage(err))
		return
	}

	fileName := ans.FileName
	fmt.Fprintf(a.out, "\n%s\n", ans.Text)
	if ans.ShowCitations {
		fmt.Fprintln(a.out, "\n## Citations")
		for i, c := range ans.Citations {
			fmt.Fprintf(a.out, "\n%s\n- Preview:\n%s\n", assistant.CitationTitle(i+1, fileName, c.Locator), c.Content)
		}
	}
	fmt.Fprintln(a.out)

	a.record(Turn{Question: question, Answer: ans, FileName: fileName, AskedAt: time.Now()})
}
