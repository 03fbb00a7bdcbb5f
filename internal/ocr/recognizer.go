// Package ocr acquires raw text from invoice documents. It rasterizes PDFs
// page by page, converts images to PNG, and hands each page to a pluggable
// recognition backend that returns plain text plus a recognition confidence.
package ocr

import "context"

// PageText is the recognized text of a single page with the engine's own
// 0-100 estimate of recognition quality.
type PageText struct {
	Text       string
	Confidence float64
}

// Recognizer turns a PNG image into text. Implementations wrap an external
// OCR engine and must be safe to call sequentially.
type Recognizer interface {
	// RecognizeImage runs text recognition over PNG image data
	RecognizeImage(ctx context.Context, pngData []byte) (PageText, error)
	// Close releases any resources held by the engine
	Close() error
}
