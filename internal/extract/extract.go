// Package extract recovers structured invoice fields from raw OCR text.
//
// Every function in this package is pure and total: arbitrary input text
// produces a Result, never an error. A field the heuristics cannot find is
// represented as an empty value with confidence zero.
package extract

import (
	"math"
	"regexp"
	"strings"
)

const (
	// DefaultBaseConfidence is the nominal OCR recognition confidence used
	// when the caller has no better estimate.
	DefaultBaseConfidence = 75

	// DefaultPrefillThreshold is the minimum calibrated confidence a field
	// needs before it is considered safe for form auto-fill.
	DefaultPrefillThreshold = 80
)

// Field is one extracted datum paired with a calibrated 0-100 confidence.
// An empty Value always carries confidence zero.
type Field struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Result holds the six fields recovered from one invoice document.
// InvoiceStatus is never inferred from OCR and stays empty for manual entry.
type Result struct {
	InvoiceNumber Field `json:"invoice_number"`
	CustomerName  Field `json:"customer_name"`
	CustomerABN   Field `json:"customer_abn"`
	IssueDate     Field `json:"issue_date"`
	DueDate       Field `json:"due_date"`
	InvoiceAmount Field `json:"invoice_amount"`
	InvoiceStatus Field `json:"invoice_status"`
}

// PrefillValues is the flattened, threshold-filtered projection of a Result,
// the only output intended to populate form inputs directly.
type PrefillValues struct {
	InvoiceNumber string `json:"invoice_number"`
	CustomerName  string `json:"customer_name"`
	CustomerABN   string `json:"customer_abn"`
	IssueDate     string `json:"issue_date"`
	DueDate       string `json:"due_date"`
	InvoiceAmount string `json:"invoice_amount"`
	InvoiceStatus string `json:"invoice_status"`
}

// parsedValue is a per-strategy intermediate: the extractor's own certainty
// before blending with the caller's base confidence.
type parsedValue struct {
	value      string
	confidence float64
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// cleanLine collapses whitespace runs to a single space and trims the ends,
// making substring matches resilient to OCR line-wrap artifacts.
func cleanLine(value string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(value, " "))
}

func splitLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if cleaned := cleanLine(line); cleaned != "" {
			lines = append(lines, cleaned)
		}
	}
	return lines
}

func clampConfidence(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return math.Max(0, math.Min(100, value))
}

func toField(value string, confidence float64) Field {
	if value == "" {
		return Field{}
	}
	return Field{Value: value, Confidence: clampConfidence(confidence)}
}

var invoiceNumberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)invoice(?:\s*(?:no|number|#))?\s*[:\-]\s*([A-Z]{2,6}[- ]?\d{3,10})`),
	regexp.MustCompile(`(?i)\b(INV[- ]?\d{3,10})\b`),
}

var abnPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)abn\s*[:\-]?\s*(\d{2}\s?\d{3}\s?\d{3}\s?\d{3})`),
	regexp.MustCompile(`\b(\d{2}\s\d{3}\s\d{3}\s\d{3})\b`),
}

// matchValue returns the first non-empty capture from the ordered patterns.
func matchValue(text string, patterns []*regexp.Regexp) string {
	for _, pattern := range patterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			if value := cleanLine(m[1]); value != "" {
				return value
			}
		}
	}
	return ""
}

func normalizeInvoiceNumber(value string) string {
	return strings.ToUpper(whitespaceRun.ReplaceAllString(value, ""))
}

var nonDigit = regexp.MustCompile(`\D`)

// normalizeABN reformats an 11-digit ABN to the canonical XX XXX XXX XXX grouping.
func normalizeABN(value string) string {
	digits := nonDigit.ReplaceAllString(value, "")
	if len(digits) != 11 {
		return ""
	}
	return digits[0:2] + " " + digits[2:5] + " " + digits[5:8] + " " + digits[8:]
}

// ParseInvoiceText runs every field extractor over the raw OCR text and
// calibrates each heuristic confidence against the caller-supplied base
// confidence (nominally the OCR engine's own recognition estimate).
//
// Tiered extractors blend as clamp(base + tier - 75, 0, 100) so a weak OCR
// pass cannot produce falsely high field confidence. Invoice number and ABN
// have no tiered heuristic and instead add a small fixed bonus to the base.
func ParseInvoiceText(text string, baseConfidence float64) Result {
	invoiceNumber := normalizeInvoiceNumber(matchValue(text, invoiceNumberPatterns))
	abn := normalizeABN(matchValue(text, abnPatterns))

	customerName := findCustomerName(text)
	issueDate := findIssueDateValue(text)
	dueDate := findDueDateValue(text, issueDate.value)
	amount := findAmountValue(text)

	return Result{
		InvoiceNumber: toField(invoiceNumber, baseConfidence+8),
		CustomerName:  toField(customerName.value, baseConfidence+customerName.confidence-75),
		CustomerABN:   toField(abn, baseConfidence+6),
		IssueDate:     toField(issueDate.value, baseConfidence+issueDate.confidence-75),
		DueDate:       toField(dueDate.value, baseConfidence+dueDate.confidence-75),
		InvoiceAmount: toField(amount.value, baseConfidence+amount.confidence-75),
		InvoiceStatus: Field{},
	}
}

// PrefillValues filters the result by a confidence threshold: fields below
// it become empty strings so low-confidence extractions never silently
// populate a form.
func (r Result) PrefillValues(threshold float64) PrefillValues {
	threshold = clampConfidence(threshold)
	fieldValue := func(field Field) string {
		if field.Value != "" && field.Confidence >= threshold {
			return field.Value
		}
		return ""
	}

	return PrefillValues{
		InvoiceNumber: fieldValue(r.InvoiceNumber),
		CustomerName:  fieldValue(r.CustomerName),
		CustomerABN:   fieldValue(r.CustomerABN),
		IssueDate:     fieldValue(r.IssueDate),
		DueDate:       fieldValue(r.DueDate),
		InvoiceAmount: fieldValue(r.InvoiceAmount),
		InvoiceStatus: fieldValue(r.InvoiceStatus),
	}
}
