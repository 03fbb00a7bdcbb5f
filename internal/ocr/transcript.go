package ocr

import (
	"regexp"
	"strings"
)

var (
	datePattern     = regexp.MustCompile(`\b\d{1,4}[./-]\d{1,2}[./-]\d{2,4}\b`)
	currencyPattern = regexp.MustCompile(`(?i)\b(?:aud|usd|nzd|eur|gbp)\b|[$£€]`)
	amountPattern   = regexp.MustCompile(`\b\d{1,3}(?:,\d{3})*\.\d{2}\b|\b\d+\.\d{2}\b`)
)

// cleanTranscript strips the markdown fences vision models like to wrap
// their transcriptions in.
func cleanTranscript(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```text")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// estimateTextConfidence scores a transcription by how much it looks like an
// invoice, for backends that report no recognition confidence of their own.
// Dates, currency markers, amount tokens and sheer volume each add a little.
func estimateTextConfidence(text string) float64 {
	score := 40.0
	if datePattern.MatchString(text) {
		score += 20
	}
	if currencyPattern.MatchString(text) {
		score += 15
	}
	if amountPattern.MatchString(text) {
		score += 15
	}
	if len(text) > 120 {
		score += 5
	}
	if score > 95 {
		score = 95
	}
	return score
}
