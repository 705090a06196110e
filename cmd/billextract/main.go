// Command billextract runs one extraction from the command line and writes
// the reconciled document as JSON, without a server or job store.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/skaul-dev/billextract/internal/bill"
	"github.com/skaul-dev/billextract/internal/common"
	"github.com/skaul-dev/billextract/internal/export"
	"github.com/skaul-dev/billextract/internal/extract"
	"github.com/skaul-dev/billextract/internal/ingest"
	"github.com/skaul-dev/billextract/internal/ocr"
	"github.com/skaul-dev/billextract/internal/parser"
	"github.com/skaul-dev/billextract/internal/vision/gemini"
)

func main() {
	_ = godotenv.Load()

	var (
		source     = flag.String("source", "", "bill document: local path or http(s) URL (required)")
		engineName = flag.String("engine", "", "extraction engine: heuristic or vision (default from EXTRACTION_ENGINE)")
		xlsxPath   = flag.String("xlsx", "", "also write the line items as an XLSX workbook to this path")
		timeout    = flag.Duration("timeout", 5*time.Minute, "overall extraction timeout")
		verbose    = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	if *source == "" {
		flag.Usage()
		os.Exit(2)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if *engineName == "" {
		*engineName = cfg.Pipeline.Engine
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	if err := run(ctx, cfg, *source, strings.ToLower(*engineName), *xlsxPath, logger); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *common.Config, source, engineName, xlsxPath string, logger *slog.Logger) error {
	extractor := ocr.NewExtractor(ocr.Config{
		Pdftotext:     cfg.OCR.Pdftotext,
		Pdftoppm:      cfg.OCR.Pdftoppm,
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.TesseractLang,
		DPI:           cfg.OCR.DPI,
		PSM:           cfg.OCR.PSM,
		MaxPages:      cfg.OCR.MaxPages,
	}, logger)

	var engine extract.Engine
	switch engineName {
	case extract.EngineHeuristic:
		engine = extract.NewHeuristicEngine(extractor, parser.Options{}, logger)
	case extract.EngineVision:
		if cfg.Vision.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the vision engine")
		}
		gc := gemini.NewClient(gemini.Config{
			APIKey:      cfg.Vision.APIKey,
			BaseURL:     cfg.Vision.BaseURL,
			Model:       cfg.Vision.Model,
			Temperature: cfg.Vision.Temperature,
			Timeout:     cfg.Vision.Timeout,
		}, logger)
		engine = extract.NewVisionEngine(extractor, gc, extract.VisionConfig{
			Concurrency:   cfg.Pipeline.Concurrency,
			DispatchDelay: cfg.Pipeline.DispatchDelay,
			MaxAttempts:   cfg.Pipeline.MaxAttempts,
			RetryDelay:    cfg.Pipeline.RetryDelay,
		}, logger)
	default:
		return fmt.Errorf("unknown engine %q", engineName)
	}

	resolver := ingest.NewResolver(ingest.Config{ArtifactCacheDir: cfg.OCR.ArtifactCacheDir}, logger)
	src, err := resolver.Resolve(ctx, source)
	if err != nil {
		return err
	}
	defer src.Cleanup()

	pages, usage, err := engine.ExtractPages(ctx, src.Path)
	if err != nil {
		return err
	}
	doc := bill.RepairDocument(bill.Aggregate(pages))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	if usage.TotalTokens > 0 {
		fmt.Fprintf(os.Stderr, "tokens: total=%d input=%d output=%d\n",
			usage.TotalTokens, usage.InputTokens, usage.OutputTokens)
	}

	if xlsxPath != "" {
		b, err := export.NewService(logger).BillItemsXLSX(doc)
		if err != nil {
			return err
		}
		if err := os.WriteFile(xlsxPath, b, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", xlsxPath, err)
		}
		fmt.Fprintln(os.Stderr, "wrote", xlsxPath)
	}
	return nil
}
