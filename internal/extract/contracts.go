package extract

import (
	"context"

	"github.com/skaul-dev/billextract/internal/entity"
)

// Engine turns a local bill document into per-page line items.
type Engine interface {
	Name() string
	ExtractPages(ctx context.Context, path string) ([]entity.Page, entity.TokenUsage, error)
}

// Engine names accepted in configuration and requests.
const (
	EngineHeuristic = "heuristic"
	EngineVision    = "vision"
)
