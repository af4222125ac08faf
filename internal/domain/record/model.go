package record

import "time"

// Record describes a downloadable file submitted by the mini app. The original
// client payload is preserved verbatim alongside the normalized fields.
type Record struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Date      string         `json:"date"`
	FileURL   string         `json:"file_url"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}
