package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/skaul-dev/billextract/constants"
	"github.com/skaul-dev/billextract/internal/common"
	"github.com/skaul-dev/billextract/internal/entity"
	"github.com/skaul-dev/billextract/internal/vision"
)

// Renderer rasterizes a document to one image per page. *ocr.Extractor
// satisfies it.
type Renderer interface {
	RenderPages(ctx context.Context, path string) ([][]byte, error)
}

type VisionConfig struct {
	Concurrency   int           // concurrent page requests, default 3
	DispatchDelay time.Duration // minimum spacing between request starts, default 2s
	MaxAttempts   int           // attempts per page when rate limited, default 2
	RetryDelay    time.Duration // pause before a rate-limited retry, default 2s
}

// VisionEngine sends each page image to an external extractor. Pages are
// processed concurrently but dispatch is paced so the provider's rate limits
// are respected; a page that still fails after retries degrades to an empty
// page rather than failing the document.
type VisionEngine struct {
	renderer Renderer
	pages    vision.PageExtractor
	cfg      VisionConfig
	limiter  *rate.Limiter
	logger   *slog.Logger
}

func NewVisionEngine(renderer Renderer, pages vision.PageExtractor, cfg VisionConfig, logger *slog.Logger) *VisionEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 3
	}
	if cfg.DispatchDelay <= 0 {
		cfg.DispatchDelay = 2 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 2
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	return &VisionEngine{
		renderer: renderer,
		pages:    pages,
		cfg:      cfg,
		limiter:  rate.NewLimiter(rate.Every(cfg.DispatchDelay), 1),
		logger:   logger,
	}
}

func (e *VisionEngine) Name() string { return EngineVision }

func (e *VisionEngine) ExtractPages(ctx context.Context, path string) ([]entity.Page, entity.TokenUsage, error) {
	start := time.Now()

	images, err := e.renderer.RenderPages(ctx, path)
	if err != nil {
		return nil, entity.TokenUsage{}, fmt.Errorf("render pages: %w", err)
	}

	pages := make([]entity.Page, len(images))
	var (
		mu    sync.Mutex
		usage entity.TokenUsage
		wg    sync.WaitGroup
	)
	sem := make(chan struct{}, e.cfg.Concurrency)

	for i, img := range images {
		wg.Add(1)
		go func(pageNo int, img []byte) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			page, u, err := e.extractOnePage(ctx, pageNo, img)
			mu.Lock()
			usage.Add(u)
			mu.Unlock()
			if err != nil {
				e.logger.Warn("extract.vision.page_failed",
					"path", path, "page_no", pageNo, "error", err)
				page = emptyPage(pageNo)
			}
			pages[pageNo-1] = page
		}(i+1, img)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, usage, err
	}

	var items int
	for _, p := range pages {
		items += len(p.Items)
	}
	e.logger.Info("extract.vision.ok",
		"path", path,
		"pages", len(pages),
		"items", items,
		"total_tokens", usage.TotalTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return pages, usage, nil
}

func (e *VisionEngine) extractOnePage(ctx context.Context, pageNo int, img []byte) (entity.Page, entity.TokenUsage, error) {
	var usage entity.TokenUsage
	var lastErr error

	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		if err := e.limiter.Wait(ctx); err != nil {
			return entity.Page{}, usage, err
		}

		page, u, err := e.pages.ExtractPage(ctx, vision.PageRequest{
			PageNo:   pageNo,
			Image:    img,
			MimeType: "image/png",
		})
		usage.Add(u)
		if err == nil {
			return page, usage, nil
		}
		lastErr = err

		if !common.IsRateLimited(err) || attempt == e.cfg.MaxAttempts {
			break
		}
		e.logger.Warn("extract.vision.rate_limited",
			"page_no", pageNo, "attempt", attempt, "retry_in", e.cfg.RetryDelay)
		select {
		case <-ctx.Done():
			return entity.Page{}, usage, ctx.Err()
		case <-time.After(e.cfg.RetryDelay):
		}
	}
	return entity.Page{}, usage, lastErr
}

func emptyPage(pageNo int) entity.Page {
	return entity.Page{
		PageNo:   strconv.Itoa(pageNo),
		PageType: constants.BillDetail,
		Items:    []entity.LineItem{},
	}
}
