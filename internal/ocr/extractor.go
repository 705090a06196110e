package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/skaul-dev/billextract/constants"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	DPI           int    // rasterization DPI for scanned PDFs, default 300
	PSM           int    // tesseract page segmentation mode, 6 suits tabular bills
	MaxPages      int    // 0 = no limit
}

// PageText is one page of the source document, already split into lines.
type PageText struct {
	PageNo int
	Lines  []string
}

// minTextPerPage is the average character count below which a PDF's embedded
// text layer is treated as absent and the page images are OCR'd instead.
const minTextPerPage = 32

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Extractor{cfg: cfg, runner: execRunner{}, logger: logger}
}

// ExtractPages returns the text of every page of the document at path,
// picking a strategy by file extension. PDFs with an embedded text layer use
// pdftotext directly; scanned PDFs are rasterized and OCR'd page by page.
func (e *Extractor) ExtractPages(ctx context.Context, path string) ([]PageText, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))

	var pages []PageText
	var method string
	var err error

	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		pages, method, err = e.extractPDF(ctx, path)
	case constants.IMAGE:
		pages, method, err = e.extractImage(ctx, path)
	default:
		return nil, fmt.Errorf("unsupported extension: %q", ext)
	}
	if err != nil {
		return nil, err
	}

	if e.cfg.MaxPages > 0 && len(pages) > e.cfg.MaxPages {
		pages = pages[:e.cfg.MaxPages]
	}

	e.logger.Info("ocr.extract.ok",
		"path", path,
		"method", method,
		"pages", len(pages),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return pages, nil
}

func (e *Extractor) extractPDF(ctx context.Context, path string) ([]PageText, string, error) {
	text, err := e.pdfToText(ctx, path)
	if err != nil {
		return nil, "", err
	}

	rawPages := strings.Split(text, "\f")
	// trailing \f leaves an empty last element
	if n := len(rawPages); n > 1 && strings.TrimSpace(rawPages[n-1]) == "" {
		rawPages = rawPages[:n-1]
	}

	if textLayerDensity(rawPages) >= minTextPerPage {
		pages := make([]PageText, 0, len(rawPages))
		for i, p := range rawPages {
			pages = append(pages, PageText{PageNo: i + 1, Lines: splitLines(p)})
		}
		return pages, "pdf-text", nil
	}

	e.logger.Debug("ocr.pdf.no_text_layer", "path", path)
	pages, err := e.pdfToOCR(ctx, path)
	if err != nil {
		return nil, "", err
	}
	return pages, "pdf-ocr", nil
}

func (e *Extractor) extractImage(ctx context.Context, path string) ([]PageText, string, error) {
	txt, err := e.tesseractOCR(ctx, path)
	if err != nil {
		return nil, "", err
	}
	return []PageText{{PageNo: 1, Lines: splitLines(txt)}}, "image-ocr", nil
}

func textLayerDensity(rawPages []string) int {
	if len(rawPages) == 0 {
		return 0
	}
	var total int
	for _, p := range rawPages {
		total += len(strings.TrimSpace(p))
	}
	return total / len(rawPages)
}

// splitLines normalizes line endings and trims each line; blank lines are
// kept so downstream noise filtering sees the page as OCR produced it.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, ln := range raw {
		lines = append(lines, strings.TrimRight(ln, " \t"))
	}
	// drop trailing blanks
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
