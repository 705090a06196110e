package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/skaul-dev/billextract/constants"
	"github.com/skaul-dev/billextract/internal/common"
)

// Some document hosts refuse requests without a browser-looking agent.
const downloadUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

type Config struct {
	ArtifactCacheDir string        // where downloaded documents land; default os.TempDir()
	DownloadTimeout  time.Duration // default 30s
	MaxDownloadBytes int64         // 0 = no limit
}

// ResolvedSource is a bill document ready for extraction on the local disk.
type ResolvedSource struct {
	Path       string
	FileExt    string // normalized, without dot
	HashHex    string // sha256 of content
	Downloaded bool
	// Cleanup removes the downloaded artifact; a no-op for local sources.
	Cleanup func()
}

type Resolver struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewResolver(cfg Config, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ArtifactCacheDir == "" {
		cfg.ArtifactCacheDir = os.TempDir()
	}
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = 30 * time.Second
	}
	return &Resolver{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.DownloadTimeout},
		logger: logger,
	}
}

// Resolve accepts either a local file path or an http(s) URL and returns a
// local file to extract from. URLs are downloaded into the artifact cache.
func (r *Resolver) Resolve(ctx context.Context, source string) (ResolvedSource, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return ResolvedSource{}, fmt.Errorf("source is required: %w", common.ErrInvalidInput)
	}
	if isURL(source) {
		return r.download(ctx, source)
	}
	return r.resolveLocal(source)
}

func isURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https")
}

func (r *Resolver) resolveLocal(path string) (ResolvedSource, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return ResolvedSource{}, fmt.Errorf("abs path: %w", err)
	}

	ext := constants.NormalizeExt(filepath.Ext(abs))
	if _, ok := constants.AllowedExtensions[ext]; !ok {
		return ResolvedSource{}, fmt.Errorf("unsupported extension %q: %w", ext, common.ErrInvalidInput)
	}

	f, err := os.Open(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return ResolvedSource{}, fmt.Errorf("source %q: %w", path, common.ErrNotFound)
		}
		return ResolvedSource{}, fmt.Errorf("open: %w", err)
	}
	defer func(f *os.File) {
		if err := f.Close(); err != nil {
			r.logger.Warn("ingest.close_failed", "path", abs, "error", err)
		}
	}(f)

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return ResolvedSource{}, fmt.Errorf("hash: %w", err)
	}

	return ResolvedSource{
		Path:    abs,
		FileExt: ext,
		HashHex: hex.EncodeToString(h.Sum(nil)),
		Cleanup: func() {},
	}, nil
}

func (r *Resolver) download(ctx context.Context, rawURL string) (ResolvedSource, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return ResolvedSource{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", downloadUserAgent)

	resp, err := r.http.Do(req)
	if err != nil {
		return ResolvedSource{}, fmt.Errorf("download %q: %w: %w", rawURL, common.ErrUnavailable, err)
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			r.logger.Warn("ingest.body_close_failed", "error", err)
		}
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return ResolvedSource{}, fmt.Errorf("download %q: status %d: %w", rawURL, resp.StatusCode, common.ErrUnavailable)
	}

	ext := extFromResponse(rawURL, resp.Header.Get("Content-Type"))
	if _, ok := constants.AllowedExtensions[ext]; !ok {
		return ResolvedSource{}, fmt.Errorf("unsupported content type %q: %w", resp.Header.Get("Content-Type"), common.ErrInvalidInput)
	}

	if err := os.MkdirAll(r.cfg.ArtifactCacheDir, 0o755); err != nil {
		return ResolvedSource{}, fmt.Errorf("artifact dir: %w", err)
	}
	tmp, err := os.CreateTemp(r.cfg.ArtifactCacheDir, "bill-*."+ext)
	if err != nil {
		return ResolvedSource{}, fmt.Errorf("create artifact: %w", err)
	}

	var body io.Reader = resp.Body
	if r.cfg.MaxDownloadBytes > 0 {
		body = io.LimitReader(resp.Body, r.cfg.MaxDownloadBytes)
	}
	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), body)
	closeErr := tmp.Close()
	if err != nil || closeErr != nil {
		_ = os.Remove(tmp.Name())
		if err == nil {
			err = closeErr
		}
		return ResolvedSource{}, fmt.Errorf("write artifact: %w", err)
	}

	path := tmp.Name()
	r.logger.Info("ingest.download.ok",
		"url", rawURL,
		"path", path,
		"bytes", n,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return ResolvedSource{
		Path:       path,
		FileExt:    ext,
		HashHex:    hex.EncodeToString(h.Sum(nil)),
		Downloaded: true,
		Cleanup: func() {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				r.logger.Warn("ingest.artifact_remove_failed", "path", path, "error", err)
			}
		},
	}, nil
}

// extFromResponse prefers the URL path's extension and falls back to the
// Content-Type header for extension-less download links.
func extFromResponse(rawURL, contentType string) string {
	if u, err := url.Parse(rawURL); err == nil {
		if ext := constants.NormalizeExt(filepath.Ext(u.Path)); ext != "" {
			return ext
		}
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	switch mt {
	case "application/pdf":
		return "pdf"
	case "image/png":
		return "png"
	case "image/jpeg":
		return "jpg"
	default:
		return ""
	}
}
