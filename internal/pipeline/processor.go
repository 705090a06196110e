package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/skaul-dev/billextract/internal/bill"
	"github.com/skaul-dev/billextract/internal/common"
	"github.com/skaul-dev/billextract/internal/entity"
	"github.com/skaul-dev/billextract/internal/extract"
	"github.com/skaul-dev/billextract/internal/ingest"
	"github.com/skaul-dev/billextract/internal/metrics"
	"github.com/skaul-dev/billextract/internal/repository"
)

// SourceResolver turns a submitted source (path or URL) into a local file.
// *ingest.Resolver satisfies it.
type SourceResolver interface {
	Resolve(ctx context.Context, source string) (ingest.ResolvedSource, error)
}

// Processor runs one bill through resolve -> extract -> repair -> aggregate,
// recording progress in the job store.
type Processor struct {
	resolver      SourceResolver
	engines       map[string]extract.Engine
	jobs          repository.JobRepository
	defaultEngine string
	logger        *slog.Logger
}

func NewProcessor(resolver SourceResolver, engines []extract.Engine, jobs repository.JobRepository, defaultEngine string, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	byName := make(map[string]extract.Engine, len(engines))
	for _, e := range engines {
		byName[e.Name()] = e
	}
	if defaultEngine == "" {
		defaultEngine = extract.EngineHeuristic
	}
	return &Processor{
		resolver:      resolver,
		engines:       byName,
		jobs:          jobs,
		defaultEngine: defaultEngine,
		logger:        logger,
	}
}

// Engine returns the engine registered under name; empty selects the default.
func (p *Processor) Engine(name string) (extract.Engine, error) {
	if name == "" {
		name = p.defaultEngine
	}
	e, ok := p.engines[name]
	if !ok {
		return nil, fmt.Errorf("unknown engine %q: %w", name, common.ErrInvalidInput)
	}
	return e, nil
}

// ExtractDocument runs the full extraction on source and returns the
// reconciled document. It does not touch the job store.
func (p *Processor) ExtractDocument(ctx context.Context, source, engineName string) (entity.Document, entity.TokenUsage, error) {
	engine, err := p.Engine(engineName)
	if err != nil {
		return entity.Document{}, entity.TokenUsage{}, err
	}
	start := time.Now()

	src, err := p.resolver.Resolve(ctx, source)
	if err != nil {
		metrics.ObserveExtraction(engine.Name(), "error", 0, time.Since(start))
		return entity.Document{}, entity.TokenUsage{}, err
	}
	defer src.Cleanup()

	pages, usage, err := engine.ExtractPages(ctx, src.Path)
	if err != nil {
		metrics.ObserveExtraction(engine.Name(), "error", 0, time.Since(start))
		return entity.Document{}, usage, err
	}

	doc := bill.RepairDocument(bill.Aggregate(pages))

	metrics.ObserveExtraction(engine.Name(), "ok", doc.TotalItemCount, time.Since(start))
	p.logger.Info("pipeline.extract.ok",
		"source", source,
		"engine", engine.Name(),
		"pages", len(doc.Pages),
		"items", doc.TotalItemCount,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return doc, usage, nil
}

// RunJob executes a previously created job and persists its outcome. Errors
// are recorded on the job; the returned error reflects the extraction result.
func (p *Processor) RunJob(ctx context.Context, jobID uuid.UUID, source, engineName string) error {
	if err := p.jobs.MarkRunning(ctx, jobID); err != nil {
		return err
	}

	doc, usage, err := p.ExtractDocument(ctx, source, engineName)
	if err != nil {
		if ferr := p.jobs.FinishFailed(ctx, jobID, err.Error()); ferr != nil {
			p.logger.Error("pipeline.job.record_failure_failed", "job_id", jobID, "error", ferr)
		}
		return err
	}

	result, err := json.Marshal(doc)
	if err != nil {
		_ = p.jobs.FinishFailed(ctx, jobID, err.Error())
		return fmt.Errorf("encode result: %w", err)
	}
	return p.jobs.FinishOK(ctx, jobID, repository.JobOutcome{
		Pages:      len(doc.Pages),
		ItemCount:  doc.TotalItemCount,
		Usage:      usage,
		ResultJSON: result,
	})
}
