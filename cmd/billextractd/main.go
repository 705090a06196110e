package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/joho/godotenv"

	"github.com/skaul-dev/billextract/internal/async"
	"github.com/skaul-dev/billextract/internal/common"
	"github.com/skaul-dev/billextract/internal/export"
	"github.com/skaul-dev/billextract/internal/extract"
	"github.com/skaul-dev/billextract/internal/ingest"
	"github.com/skaul-dev/billextract/internal/ocr"
	"github.com/skaul-dev/billextract/internal/parser"
	"github.com/skaul-dev/billextract/internal/pipeline"
	"github.com/skaul-dev/billextract/internal/repository"
	"github.com/skaul-dev/billextract/internal/server"
	"github.com/skaul-dev/billextract/internal/vision/gemini"
)

func main() {
	_ = godotenv.Load()

	logger := newLogger()
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(ctx, repository.Config{Path: cfg.Database.Path}, logger)
	if err != nil {
		logger.Error("open job store failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("close job store failed", "error", err)
		}
	}()
	jobs := repository.NewJobRepository(db, logger)

	extractor := ocr.NewExtractor(ocr.Config{
		Pdftotext:     cfg.OCR.Pdftotext,
		Pdftoppm:      cfg.OCR.Pdftoppm,
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.TesseractLang,
		DPI:           cfg.OCR.DPI,
		PSM:           cfg.OCR.PSM,
		MaxPages:      cfg.OCR.MaxPages,
	}, logger)

	resolver := ingest.NewResolver(ingest.Config{
		ArtifactCacheDir: cfg.OCR.ArtifactCacheDir,
	}, logger)

	engines := []extract.Engine{
		extract.NewHeuristicEngine(extractor, parser.Options{}, logger),
	}
	if cfg.Vision.APIKey != "" {
		gc := gemini.NewClient(gemini.Config{
			APIKey:      cfg.Vision.APIKey,
			BaseURL:     cfg.Vision.BaseURL,
			Model:       cfg.Vision.Model,
			Temperature: cfg.Vision.Temperature,
			Timeout:     cfg.Vision.Timeout,
		}, logger)
		engines = append(engines, extract.NewVisionEngine(extractor, gc, extract.VisionConfig{
			Concurrency:   cfg.Pipeline.Concurrency,
			DispatchDelay: cfg.Pipeline.DispatchDelay,
			MaxAttempts:   cfg.Pipeline.MaxAttempts,
			RetryDelay:    cfg.Pipeline.RetryDelay,
		}, logger))
	}

	processor := pipeline.NewProcessor(resolver, engines, jobs, cfg.Pipeline.Engine, logger)
	queue := async.NewQueue(processor, logger, async.WithWorkers(cfg.Pipeline.QueueWorkers))

	scheduler := startJanitor(cfg, jobs, logger)
	defer scheduler.Stop()

	if cfg.Pipeline.WatchDir != "" {
		startInboxWatcher(ctx, cfg, jobs, queue, logger)
	}

	srv := server.NewServer(server.Config{
		Addr:      cfg.Server.Addr,
		UploadDir: cfg.Server.UploadDir,
	}, processor, queue, jobs, export.NewService(logger), logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	queue.Shutdown(shutdownCtx)
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// startJanitor prunes finished jobs past retention and stale staged files.
func startJanitor(cfg *common.Config, jobs repository.JobRepository, logger *slog.Logger) *gocron.Scheduler {
	s := gocron.NewScheduler(time.UTC)

	_, err := s.Every(1).Hour().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		cutoff := time.Now().Add(-cfg.Database.JobRetention)
		if _, err := jobs.DeleteOlderThan(ctx, cutoff); err != nil {
			logger.Error("janitor.jobs.prune_failed", "error", err)
		}
		pruneDir(cfg.Server.UploadDir, cutoff, logger)
		pruneDir(cfg.OCR.ArtifactCacheDir, cutoff, logger)
	})
	if err != nil {
		logger.Error("janitor.schedule_failed", "error", err)
	}

	s.StartAsync()
	return s
}

func pruneDir(dir string, cutoff time.Time, logger *slog.Logger) {
	if dir == "" {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := os.Remove(path); err != nil {
			logger.Warn("janitor.file.remove_failed", "path", path, "error", err)
		}
	}
}

// startInboxWatcher queues every bill document that lands in the watch dir.
func startInboxWatcher(ctx context.Context, cfg *common.Config, jobs repository.JobRepository, queue *async.Queue, logger *slog.Logger) {
	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{cfg.Pipeline.WatchDir},
		InitialScan: true,
		Debounce:    2 * time.Second,
	}, logger)
	if err != nil {
		logger.Error("inbox watcher start failed", "dir", cfg.Pipeline.WatchDir, "error", err)
		return
	}
	logger.Info("inbox watcher started", "dir", cfg.Pipeline.WatchDir)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case path, ok := <-events:
				if !ok {
					return
				}
				job, err := jobs.Create(ctx, path, cfg.Pipeline.Engine)
				if err != nil {
					logger.Error("inbox job create failed", "path", path, "error", err)
					continue
				}
				_ = queue.Enqueue(ctx, async.Job{
					JobID:       job.ID,
					Source:      path,
					Engine:      cfg.Pipeline.Engine,
					SubmittedAt: time.Now(),
				})
			case err, ok := <-errs:
				if ok && err != nil {
					logger.Error("inbox watcher error", "error", err)
				}
			}
		}
	}()
}
