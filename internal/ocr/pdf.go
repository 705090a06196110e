package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/skaul-dev/billextract/constants"
)

func (e *Extractor) pdfToText(ctx context.Context, path string) (string, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w: %s", err, truncate(string(errb), 1<<10))
	}
	return string(out), nil
}

func (e *Extractor) pdfToOCR(ctx context.Context, path string) ([]PageText, error) {
	images, tmpDir, err := e.rasterize(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			e.logger.Warn("ocr.tmpdir.remove_failed", "dir", tmpDir, "error", err)
		}
	}()

	pages := make([]PageText, 0, len(images))
	for i, img := range images {
		txt, err := e.tesseractOCR(ctx, img)
		if err != nil {
			e.logger.Warn("ocr.page.failed", "path", path, "page_no", i+1, "error", err)
			pages = append(pages, PageText{PageNo: i + 1})
			continue
		}
		pages = append(pages, PageText{PageNo: i + 1, Lines: splitLines(txt)})
	}
	return pages, nil
}

// RenderPages rasterizes every page of a PDF to PNG bytes, in page order.
// Single images are returned as-is as a one-page document.
func (e *Extractor) RenderPages(ctx context.Context, path string) ([][]byte, error) {
	if constants.MapExtToFormat(constants.NormalizeExt(filepath.Ext(path))) != constants.PDF {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return [][]byte{b}, nil
	}

	images, tmpDir, err := e.rasterize(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			e.logger.Warn("ocr.tmpdir.remove_failed", "dir", tmpDir, "error", err)
		}
	}()

	out := make([][]byte, 0, len(images))
	for _, img := range images {
		b, err := os.ReadFile(img)
		if err != nil {
			return nil, fmt.Errorf("read rendered page: %w", err)
		}
		out = append(out, b)
	}
	return out, nil
}

var rePageNum = regexp.MustCompile(`-(\d+)\.png$`)

// rasterize renders the PDF at path to per-page PNGs in a fresh temp dir.
// The caller removes tmpDir when done with the images.
func (e *Extractor) rasterize(ctx context.Context, path string) (images []string, tmpDir string, err error) {
	tmpDir, err = os.MkdirTemp("", "be-pp-*")
	if err != nil {
		return nil, "", err
	}

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", strconv.Itoa(e.cfg.DPI), "-png", path, prefix)
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return nil, "", fmt.Errorf("pdftoppm: %w: %s", err, truncate(string(errb), 1<<10))
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	// pdftoppm numbers pages without zero padding, so a lexical sort would
	// put page-10 before page-2
	sort.Slice(matches, func(i, j int) bool {
		return pageFileNum(matches[i]) < pageFileNum(matches[j])
	})
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		_ = os.RemoveAll(tmpDir)
		return nil, "", fmt.Errorf("pdftoppm produced no images")
	}
	return matches, tmpDir, nil
}

func pageFileNum(path string) int {
	m := rePageNum.FindStringSubmatch(path)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}
