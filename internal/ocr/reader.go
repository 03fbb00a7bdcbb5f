package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// plainTextConfidence is assigned when the uploaded bytes are already text
// and no recognition ran over them.
const plainTextConfidence = 70

// Document is the recognized text of a whole uploaded document with the
// averaged recognition confidence across its pages.
type Document struct {
	Text       string
	Confidence float64
	Pages      int
}

// Reader resolves uploaded bytes to plain text. PDFs are rasterized and
// recognized page by page, images are converted to PNG and recognized
// directly, and anything else is treated as already being text.
type Reader struct {
	recognizer Recognizer
	logger     *slog.Logger
}

// NewReader creates a Reader backed by the given recognition engine.
func NewReader(recognizer Recognizer, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{recognizer: recognizer, logger: logger}
}

// ReadDocument recognizes text in the uploaded document.
func (r *Reader) ReadDocument(ctx context.Context, data []byte, contentType string) (Document, error) {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))

	switch {
	case isPDF(data, mimeType):
		return r.readPDF(ctx, data)
	case strings.HasPrefix(mimeType, "image/") || isHEICFormat(data):
		return r.readImage(ctx, data, mimeType)
	default:
		if !utf8.Valid(data) {
			return Document{}, fmt.Errorf("unsupported content type: %q", contentType)
		}
		return Document{Text: string(data), Confidence: plainTextConfidence, Pages: 1}, nil
	}
}

// readPDF rasterizes and recognizes every page sequentially. Per-page
// confidences are arithmetic-averaged into the document confidence.
func (r *Reader) readPDF(ctx context.Context, data []byte) (Document, error) {
	pages, err := pdfPageImages(data)
	if err != nil {
		return Document{}, err
	}
	if len(pages) == 0 {
		return Document{}, fmt.Errorf("pdf has no pages")
	}

	texts := make([]string, 0, len(pages))
	var confidenceTotal float64
	for pageIndex, pngData := range pages {
		page, err := r.recognizer.RecognizeImage(ctx, pngData)
		if err != nil {
			return Document{}, fmt.Errorf("recognizing page %d: %w", pageIndex+1, err)
		}
		r.logger.Debug("recognized pdf page", "page", pageIndex+1, "confidence", page.Confidence, "chars", len(page.Text))
		texts = append(texts, page.Text)
		confidenceTotal += page.Confidence
	}

	return Document{
		Text:       strings.Join(texts, "\n"),
		Confidence: confidenceTotal / float64(len(pages)),
		Pages:      len(pages),
	}, nil
}

func (r *Reader) readImage(ctx context.Context, data []byte, mimeType string) (Document, error) {
	pngData, err := toPNG(data, mimeType)
	if err != nil {
		return Document{}, err
	}

	page, err := r.recognizer.RecognizeImage(ctx, pngData)
	if err != nil {
		return Document{}, fmt.Errorf("recognizing image: %w", err)
	}

	return Document{Text: page.Text, Confidence: page.Confidence, Pages: 1}, nil
}
