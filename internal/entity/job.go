package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ExtractionJob represents one document extraction for transfer between layers.
type ExtractionJob struct {
	ID           uuid.UUID       `json:"id"`
	Source       string          `json:"source"` // URL or local path as submitted
	Engine       string          `json:"engine"` // "heuristic" | "vision"
	Status       string          `json:"status"`
	Pages        int             `json:"pages"`
	ItemCount    int             `json:"item_count"`
	TotalTokens  int             `json:"total_tokens"`
	InputTokens  int             `json:"input_tokens"`
	OutputTokens int             `json:"output_tokens"`
	ResultJSON   json.RawMessage `json:"result_json,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   *time.Time      `json:"finished_at,omitempty"`
}
