package vision

import (
	"context"

	"github.com/skaul-dev/billextract/internal/entity"
)

// PageRequest carries one rasterized page to the external extractor.
type PageRequest struct {
	PageNo   int    // 1-based
	Image    []byte // rendered page bytes
	MimeType string // e.g. "image/png"
}

// PageExtractor is the interface the pipeline depends on for the external
// vision extraction call. Implementations return the validated, typed page;
// loosely-typed payloads never cross this boundary.
type PageExtractor interface {
	ExtractPage(ctx context.Context, req PageRequest) (entity.Page, entity.TokenUsage, error)
}
