package extract

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/skaul-dev/billextract/internal/entity"
	"github.com/skaul-dev/billextract/internal/ocr"
	"github.com/skaul-dev/billextract/internal/parser"
)

// PageSource yields raw text pages from a document. *ocr.Extractor satisfies it.
type PageSource interface {
	ExtractPages(ctx context.Context, path string) ([]ocr.PageText, error)
}

// HeuristicEngine parses OCR'd text lines with positional rules. It never
// calls out to a model, so extraction is free and deterministic.
type HeuristicEngine struct {
	src    PageSource
	parser *parser.LineParser
	logger *slog.Logger
}

func NewHeuristicEngine(src PageSource, opts parser.Options, logger *slog.Logger) *HeuristicEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &HeuristicEngine{src: src, parser: parser.New(opts), logger: logger}
}

func (e *HeuristicEngine) Name() string { return EngineHeuristic }

func (e *HeuristicEngine) ExtractPages(ctx context.Context, path string) ([]entity.Page, entity.TokenUsage, error) {
	start := time.Now()

	texts, err := e.src.ExtractPages(ctx, path)
	if err != nil {
		return nil, entity.TokenUsage{}, fmt.Errorf("extract text pages: %w", err)
	}

	pages := make([]entity.Page, 0, len(texts))
	var items int
	for _, t := range texts {
		p := e.parser.ParsePage(t.PageNo, t.Lines)
		items += len(p.Items)
		pages = append(pages, p)
	}

	e.logger.Info("extract.heuristic.ok",
		"path", path,
		"pages", len(pages),
		"items", items,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return pages, entity.TokenUsage{}, nil
}
