package invoice

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/ozbill/invoice-ocr/internal/extract"
	"github.com/ozbill/invoice-ocr/internal/ocr"
)

// DocumentReader resolves uploaded bytes to recognized text plus a
// document-level recognition confidence.
type DocumentReader interface {
	ReadDocument(ctx context.Context, data []byte, contentType string) (ocr.Document, error)
}

// IDGenerator generates unique IDs for invoices
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates IDs using UnixNano timestamp
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles invoice operations
type Service struct {
	db               DB
	reader           DocumentReader
	storage          Storage
	idGenerator      IDGenerator
	timeSource       TimeSource
	prefillThreshold float64
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, reader DocumentReader, storage Storage, prefillThreshold float64) *Service {
	return &Service{
		db:               db,
		reader:           reader,
		storage:          storage,
		idGenerator:      &defaultIDGenerator{},
		timeSource:       &defaultTimeSource{},
		prefillThreshold: prefillThreshold,
	}
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, reader DocumentReader, storage Storage, prefillThreshold float64, idGen IDGenerator, timeSrc TimeSource) *Service {
	s := NewService(db, reader, storage, prefillThreshold)
	s.idGenerator = idGen
	s.timeSource = timeSrc
	return s
}

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	reg := regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	base = reg.ReplaceAllString(base, "")

	reg = regexp.MustCompile(`\s+`)
	base = reg.ReplaceAllString(base, " ")

	base = strings.TrimSpace(base)

	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}

	if base == "" {
		base = "invoice"
	}

	return base + ext
}

// ExtractFields recognizes text in the uploaded document and extracts
// invoice fields from it. Acquisition failures never surface as errors:
// a document the OCR pipeline cannot read produces an all-empty result so
// the caller falls back to manual entry.
func (s *Service) ExtractFields(ctx context.Context, data []byte, contentType string) (extract.Result, float64) {
	doc, err := s.reader.ReadDocument(ctx, data, contentType)
	if err != nil {
		slog.Warn("Document recognition failed, returning empty fields",
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		return extract.Result{}, 0
	}

	base := doc.Confidence
	if base == 0 {
		base = extract.DefaultBaseConfidence
	}
	return extract.ParseInvoiceText(doc.Text, base), doc.Confidence
}

// ParseText extracts invoice fields from raw OCR text the caller already
// holds, using the nominal base confidence when none is supplied.
func (s *Service) ParseText(text string, baseConfidence float64) (extract.Result, extract.PrefillValues) {
	if baseConfidence == 0 {
		baseConfidence = extract.DefaultBaseConfidence
	}
	result := extract.ParseInvoiceText(text, baseConfidence)
	return result, result.PrefillValues(s.prefillThreshold)
}

// CreateInvoice stores the uploaded document, extracts invoice fields from
// it, and saves the resulting record.
func (s *Service) CreateInvoice(ctx context.Context, filename string, data []byte, contentType string) (*Invoice, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	cleanFilename := sanitizeFilename(filename)

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, cleanFilename), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	fields, ocrConfidence := s.ExtractFields(ctx, data, contentType)

	invoice := &Invoice{
		ID:            id,
		Fields:        fields,
		Prefill:       fields.PrefillValues(s.prefillThreshold),
		OcrConfidence: ocrConfidence,
		Filename:      savedPath,
		ContentType:   contentType,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.db.SaveInvoice(invoice); err != nil {
		// Clean up file if database save fails
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("saving invoice to database: %w", err)
	}

	return invoice, nil
}

// GetInvoice retrieves an invoice by ID
func (s *Service) GetInvoice(id string) (*Invoice, error) {
	invoice, err := s.db.GetInvoice(id)
	if err != nil {
		return nil, fmt.Errorf("getting invoice: %w", err)
	}
	return invoice, nil
}

// ListInvoices returns all invoices
func (s *Service) ListInvoices() ([]*Invoice, error) {
	invoices, err := s.db.ListInvoices()
	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}
	return invoices, nil
}

// UpdateStatus sets the manually-entered status of an invoice
func (s *Service) UpdateStatus(id string, status string) (*Invoice, error) {
	invoice, err := s.db.GetInvoice(id)
	if err != nil {
		return nil, fmt.Errorf("getting invoice for update: %w", err)
	}

	invoice.Status = status
	invoice.UpdatedAt = s.timeSource.Now()
	if err := s.db.SaveInvoice(invoice); err != nil {
		return nil, fmt.Errorf("updating invoice: %w", err)
	}
	return invoice, nil
}

// DeleteInvoice removes an invoice and its stored document
func (s *Service) DeleteInvoice(id string) error {
	invoice, err := s.db.GetInvoice(id)
	if err != nil {
		return fmt.Errorf("getting invoice for deletion: %w", err)
	}

	if err := s.storage.Delete(invoice.Filename); err != nil {
		// Log error but continue with database deletion
		slog.Warn("Failed to delete file", "filename", invoice.Filename, "error", err)
	}

	if err := s.db.DeleteInvoice(id); err != nil {
		return fmt.Errorf("deleting invoice from database: %w", err)
	}
	return nil
}

// GetInvoiceFile retrieves the stored document for an invoice
func (s *Service) GetInvoiceFile(id string) ([]byte, string, error) {
	invoice, err := s.db.GetInvoice(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting invoice: %w", err)
	}

	data, err := s.storage.Get(invoice.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting invoice file: %w", err)
	}

	return data, invoice.ContentType, nil
}
