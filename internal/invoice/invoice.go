// Package invoice persists and serves invoices created from scanned
// documents. Field values come from the extraction engine in
// internal/extract; the status field is always entered manually.
package invoice

import (
	"time"

	"github.com/ozbill/invoice-ocr/internal/extract"
)

// Invoice is a stored invoice record with the extraction output that
// produced it.
type Invoice struct {
	ID string `json:"id"`

	// Fields is the full extraction result including per-field confidences.
	Fields extract.Result `json:"fields"`
	// Prefill is the threshold-filtered snapshot considered safe for
	// form auto-fill at the time of extraction.
	Prefill extract.PrefillValues `json:"prefill"`
	// OcrConfidence is the document-level recognition confidence the
	// extraction was calibrated against.
	OcrConfidence float64 `json:"ocr_confidence"`

	Status      string    `json:"status,omitempty"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
