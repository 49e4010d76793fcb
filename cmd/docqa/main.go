package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"docqa/internal/app"
	"docqa/internal/assistant"
	"docqa/internal/chunker"
	"docqa/internal/config"
	"docqa/internal/dense"
	"docqa/internal/fusion"
	"docqa/internal/lexical"
	"docqa/internal/llm"
	"docqa/internal/logger"
	"docqa/internal/metrics"
	"docqa/internal/session"
	"docqa/internal/transport/httpapi"
)

var (
	cfgFile        string
	verbose        bool
	skipModelCheck bool

	referenceDoc string
	outputFile   string
	addr         string
)

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Ask questions about a document",
	Long: `docqa indexes one uploaded document with BM25 and embeddings and answers
questions about it with a local or OpenAI-compatible chat model, citing the
pages, slides or rows it used.`,
	SilenceUsage: true,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive console session",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runChat(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	cobra.OnInitialize(initEnv)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (overrides CONFIG_FILE)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&skipModelCheck, "skip-model-check", false, "do not check or pull ollama models on start")

	chatCmd.Flags().StringVarP(&referenceDoc, "file", "f", "", "document to upload before the first prompt")
	chatCmd.Flags().StringVarP(&outputFile, "output", "o", "", "save the chat transcript to this Markdown file on exit")

	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides HTTP_ADDR)")

	rootCmd.AddCommand(chatCmd, serveCmd)

	// Without a subcommand, chat.
	rootCmd.RunE = chatCmd.RunE
}

func initEnv() {
	_ = godotenv.Load()

	if cfgFile != "" {
		_ = os.Setenv("CONFIG_FILE", cfgFile)
	}
	if verbose {
		_ = os.Setenv("LOG_LEVEL", "debug")
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// bootstrap loads config and logger and wires one session.
func bootstrap(ctx context.Context) (config.Config, *zap.Logger, *session.Session, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	metrics.Register()

	if cfg.EmbedProvider == "ollama" && !skipModelCheck {
		models := []string{cfg.OllamaEmbedModel}
		if strings.HasPrefix(cfg.LLMBaseURL, strings.TrimSuffix(cfg.OllamaURL, "/")) {
			models = append(models, cfg.LLMModel)
		}
		if err := dense.EnsureOllamaModels(ctx, nil, cfg.OllamaURL, log, models...); err != nil {
			log.Warn("ollama model check failed", zap.Error(err))
		}
	}

	embed, err := dense.NewEmbeddingFunc(dense.EmbedConfig{
		Provider:      cfg.EmbedProvider,
		OllamaURL:     cfg.OllamaURL,
		OllamaModel:   cfg.OllamaEmbedModel,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIModel:   cfg.OpenAIEmbedModel,
		Timeout:       cfg.LLMTimeout,
	}, log)
	if err != nil {
		return config.Config{}, nil, nil, err
	}

	client := llm.New(llm.Config{
		BaseURL:     cfg.LLMBaseURL,
		APIKey:      cfg.LLMAPIKey,
		Model:       cfg.LLMModel,
		Temperature: cfg.LLMTemperature,
		Timeout:     cfg.LLMTimeout,
		MaxRetries:  cfg.LLMMaxRetries,
		Logger:      log,
	})

	assembler := assistant.NewAssembler(client, cfg.SystemPrompt, assistant.NewHedgeDetector(cfg.HedgePhrases), log)

	sess := session.New(session.Config{
		Chunking: chunker.Config{
			Size:      cfg.ChunkSize,
			Overlap:   cfg.ChunkOverlap,
			Separator: cfg.ChunkSeparator,
		},
		BM25:             lexical.Params{K1: cfg.BM25K1, B: cfg.BM25B, Epsilon: cfg.BM25Epsilon},
		Weights:          fusion.Weights{Lexical: cfg.WeightLexical, Dense: cfg.WeightDense},
		TopK:             cfg.TopK,
		EmbedConcurrency: cfg.EmbedConcurrency,
	}, session.Deps{
		Embed:     embed,
		Assembler: assembler,
		Logger:    log,
	})

	log.Info("session ready",
		zap.String("session", sess.ID()),
		zap.String("llm_model", cfg.LLMModel),
		zap.String("embed_provider", cfg.EmbedProvider),
	)
	return cfg, log, sess, nil
}

func runChat(ctx context.Context) error {
	_, log, sess, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	a := app.New(sess, app.Options{OutputPath: outputFile, Logger: log})

	if referenceDoc != "" {
		sum, err := a.UploadFile(ctx, referenceDoc)
		if err != nil {
			log.Error("failed to upload reference document", zap.String("path", referenceDoc), zap.Error(err))
			fmt.Fprintln(os.Stderr, session.UserMessage(err))
		} else {
			fmt.Printf("Vector data created successfully. %s: %d pages, %d chunks.\n", sum.FileName, sum.Pages, sum.Chunks)
		}
	}

	return a.Run(ctx)
}

func runServe(ctx context.Context) error {
	cfg, log, sess, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	listen := cfg.HTTPAddr
	if addr != "" {
		listen = addr
	}

	srv := &http.Server{
		Addr:              listen,
		Handler:           httpapi.NewRouter(sess, log, httpapi.WithMaxUploadBytes(cfg.MaxUploadBytes)),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.LLMTimeout*time.Duration(cfg.LLMMaxRetries+1) + 30*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server", zap.String("addr", listen))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("received shutdown signal")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("error during shutdown", zap.Error(err))
	}
	log.Info("server stopped gracefully")
	return nil
}
