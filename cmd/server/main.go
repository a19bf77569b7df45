package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"sermonflow/internal/api"
	"sermonflow/internal/config"
	"sermonflow/internal/engine"
	"sermonflow/internal/notify"
	"sermonflow/internal/quota"
	"sermonflow/internal/store"
	"sermonflow/internal/transcribe"
	"sermonflow/internal/worker"
)

func main() {
	// Load .env if present; real environment variables win.
	godotenv.Load()
	cfg := config.Load()

	// Open SQLite.
	db, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	// Initialize store.
	s, err := store.New(db)
	if err != nil {
		log.Fatalf("init store: %v", err)
	}

	// Reset jobs left in flight by a previous run.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if n, err := s.ResetStaleJobs(ctx); err != nil {
		log.Printf("warning: reset stale jobs: %v", err)
	} else if n > 0 {
		log.Printf("reset %d stale jobs to PROCESSING", n)
	}

	// Build pipeline dependencies.
	prompts, err := engine.LoadPrompts()
	if err != nil {
		log.Fatalf("load prompts: %v", err)
	}

	var generator engine.ContentClient
	if cfg.UseGenerationStub() {
		log.Println("GROQ_API_KEY not set, using stub generation")
		generator = &engine.StubContentClient{}
	} else {
		log.Printf("using Groq model %s", cfg.GroqModel)
		generator, err = engine.NewGroqGenerator(cfg.GroqKey, cfg.GroqModel, prompts, cfg.MaxGenTokens, cfg.MaxTranscriptRunes)
		if err != nil {
			log.Fatalf("init generator: %v", err)
		}
	}

	var media transcribe.Client
	if cfg.UseTranscriptionStub() {
		log.Println("OPENAI_API_KEY not set, using stub transcription")
		media = &transcribe.StubClient{}
	} else {
		log.Println("using Whisper transcription")
		media = transcribe.NewWhisperClient(cfg.OpenAIKey, cfg.MinTranscriptChars, cfg.HTTPTimeout)
	}
	transcriber := &transcribe.Router{
		Media:    media,
		Document: transcribe.NewArticleClient(cfg.MinTranscriptChars, cfg.HTTPTimeout),
	}

	notifiers := notify.Multi{notify.LogNotifier{}}
	if cfg.NotifyWebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhookNotifier(cfg.NotifyWebhookURL, cfg.HTTPTimeout))
	}

	pipeline := engine.NewPipeline(s, transcriber, generator, notifiers,
		engine.WithRetries(cfg.StepRetries),
		engine.WithMinTranscriptChars(cfg.MinTranscriptChars),
	)

	// Start worker in background.
	w := worker.New(s, pipeline, cfg.WorkerInterval)
	go w.Start(ctx)

	// Start API server.
	admitter := quota.New(s, cfg.FreeTierLimit, cfg.TrialLimit)
	srv := api.New(s, admitter, pipeline, cfg.CORSOrigin)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: srv.Handler(),
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("shutting down...")
		cancel()
		httpServer.Shutdown(context.Background())
	}()

	fmt.Printf("sermonflow server listening on http://localhost:%s\n", cfg.Port)
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
