package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// amountTokenPattern matches currency amounts with optional currency code or
// dollar sign, thousands separators, and exactly two decimal digits.
var amountTokenPattern = regexp.MustCompile(`(?i)\b(?:AUD|USD|NZD)?\s*\$?\s*[0-9]{1,3}(?:,[0-9]{3})*(?:\.[0-9]{2})\b`)

var (
	taxTokenPattern     = regexp.MustCompile(`(?i)\b(?:gst|tax)\b`)
	taxLinePattern      = regexp.MustCompile(`(?i)\b(?:subtotal|sub total|gst|tax|withholding|wht)\b`)
	taxNextLinePattern  = regexp.MustCompile(`(?i)\b(?:subtotal|gst|tax)\b`)
	nonAmountCharacters = regexp.MustCompile(`[^\d.,-]`)
)

// amountTier pairs a keyword group with the confidence awarded when any line
// carrying one of the keywords yields a valid amount. Tiers are evaluated
// top-down and the first tier with a candidate wins.
type amountTier struct {
	keywords   []string
	confidence float64
}

var amountTiers = []amountTier{
	{keywords: []string{"amount due"}, confidence: 95},
	{keywords: []string{"total aud"}, confidence: 94},
	{keywords: []string{"amount inc gst", "amount incl gst"}, confidence: 93},
	{keywords: []string{"total inc gst", "total incl gst"}, confidence: 91},
	{keywords: []string{"total due", "balance due"}, confidence: 90},
	{keywords: []string{"invoice amount"}, confidence: 88},
	{keywords: []string{"total"}, confidence: 82},
}

const amountFallbackConfidence = 72

// getAmountTokens extracts amount-shaped tokens from a line, dropping tokens
// that name a tax component.
func getAmountTokens(line string) []string {
	matches := amountTokenPattern.FindAllString(line, -1)
	tokens := make([]string, 0, len(matches))
	for _, match := range matches {
		token := cleanLine(match)
		if taxTokenPattern.MatchString(token) {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}

// normalizeAmount strips currency decoration and formats to two decimal
// places. Amounts that do not parse or are not positive are rejected.
func normalizeAmount(value string) string {
	normalized := nonAmountCharacters.ReplaceAllString(value, "")
	normalized = strings.TrimSpace(strings.ReplaceAll(normalized, ",", ""))
	parsed, err := strconv.ParseFloat(normalized, 64)
	if err != nil || parsed <= 0 {
		return ""
	}
	return fmt.Sprintf("%.2f", parsed)
}

// bestAmount picks the numerically largest valid candidate.
func bestAmount(candidates []string) string {
	best := ""
	bestNumber := -1.0
	for _, token := range candidates {
		normalized := normalizeAmount(token)
		if normalized == "" {
			continue
		}
		numeric, err := strconv.ParseFloat(normalized, 64)
		if err != nil {
			continue
		}
		if numeric > bestNumber {
			bestNumber = numeric
			best = normalized
		}
	}
	return best
}

// findAmountValue resolves the invoice total through the ordered keyword
// tiers. A matched keyword line contributes candidates from itself and,
// unless it names a tax component, the following line. If no tier yields a
// candidate the largest amount token anywhere in the document is used.
func findAmountValue(text string) parsedValue {
	lines := splitLines(text)

	for _, tier := range amountTiers {
		var candidates []string
		for index, line := range lines {
			if !lineHasKeyword(line, tier.keywords) {
				continue
			}
			if taxLinePattern.MatchString(line) {
				continue
			}

			candidates = append(candidates, getAmountTokens(line)...)
			if index+1 < len(lines) {
				nextLine := lines[index+1]
				if !taxNextLinePattern.MatchString(nextLine) {
					candidates = append(candidates, getAmountTokens(nextLine)...)
				}
			}
		}

		if best := bestAmount(candidates); best != "" {
			return parsedValue{value: best, confidence: tier.confidence}
		}
	}

	var fallback []string
	for _, line := range lines {
		fallback = append(fallback, getAmountTokens(line)...)
	}
	if best := bestAmount(fallback); best != "" {
		return parsedValue{value: best, confidence: amountFallbackConfidence}
	}

	return parsedValue{}
}
