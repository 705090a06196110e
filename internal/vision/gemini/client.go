package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/skaul-dev/billextract/internal/common"
	"github.com/skaul-dev/billextract/internal/entity"
	"github.com/skaul-dev/billextract/internal/vision"
)

var reFence = regexp.MustCompile("```(?:json)?")

// ExtractPage implements vision.PageExtractor against the generateContent
// endpoint. The image and prompt go up together; the JSON payload that comes
// back is sanitized and schema-validated before it becomes a typed page.
func (c *Client) ExtractPage(ctx context.Context, req vision.PageRequest) (entity.Page, entity.TokenUsage, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("vision.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"page_no", req.PageNo,
		"image_bytes", len(req.Image),
	)

	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = "image/png"
	}

	body := map[string]any{
		"contents": []map[string]any{{
			"parts": []map[string]any{
				{"text": vision.BuildPagePrompt(req.PageNo)},
				{"inline_data": map[string]any{
					"mime_type": mimeType,
					"data":      base64.StdEncoding.EncodeToString(req.Image),
				}},
			},
		}},
		"generationConfig": map[string]any{
			"temperature":        c.cfg.Temperature,
			"response_mime_type": "application/json",
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/models/" + c.cfg.Model + ":generateContent"
	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		c.logger.Error("vision.extract.http_error",
			"req_id", rid, "page_no", req.PageNo, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.Page{}, entity.TokenUsage{}, err
	}

	var gc struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
		UsageMetadata struct {
			PromptTokenCount     int `json:"promptTokenCount"`
			CandidatesTokenCount int `json:"candidatesTokenCount"`
			TotalTokenCount      int `json:"totalTokenCount"`
		} `json:"usageMetadata"`
	}
	if err := json.Unmarshal(raw, &gc); err != nil {
		c.logger.Error("vision.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.Page{}, entity.TokenUsage{}, fmt.Errorf("decode gemini response: %w", err)
	}
	if len(gc.Candidates) == 0 || len(gc.Candidates[0].Content.Parts) == 0 {
		c.logger.Error("vision.extract.no_candidates", "req_id", rid, "page_no", req.PageNo)
		return entity.Page{}, entity.TokenUsage{}, fmt.Errorf("no candidates in gemini response")
	}

	usage := entity.TokenUsage{
		TotalTokens:  gc.UsageMetadata.TotalTokenCount,
		InputTokens:  gc.UsageMetadata.PromptTokenCount,
		OutputTokens: gc.UsageMetadata.CandidatesTokenCount,
	}

	content := strings.TrimSpace(gc.Candidates[0].Content.Parts[0].Text)
	content = strings.TrimSpace(reFence.ReplaceAllString(content, ""))

	cleaned, _, err := vision.NormalizePagePayload([]byte(content), req.PageNo, c.logger)
	if err != nil {
		c.logger.Error("vision.extract.sanitize_failed",
			"req_id", rid, "page_no", req.PageNo, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.Page{}, usage, fmt.Errorf("sanitize page %d: %w", req.PageNo, err)
	}
	if err := vision.ValidateJSONAgainstSchema(vision.BuildPageJSONSchema(), cleaned); err != nil {
		c.logger.Error("vision.extract.schema_validation_failed",
			"req_id", rid, "page_no", req.PageNo, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.Page{}, usage, fmt.Errorf("schema validation failed: %w: %w", common.ErrInvalidInput, err)
	}

	var page entity.Page
	if err := json.Unmarshal(cleaned, &page); err != nil {
		return entity.Page{}, usage, fmt.Errorf("unmarshal page: %w", err)
	}

	c.logger.Info("vision.extract.ok",
		"req_id", rid,
		"page_no", req.PageNo,
		"page_type", page.PageType,
		"items", len(page.Items),
		"total_tokens", usage.TotalTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return page, usage, nil
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini http error: %w", err)
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.logger.Warn("gemini response body close error", "error", err)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("gemini status 429: %w", common.ErrRateLimited)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gemini status %d: %s", resp.StatusCode, truncate(string(raw), 2<<10))
	}
	return raw, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
