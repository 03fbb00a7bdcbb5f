package extract

import (
	"regexp"
	"strings"
)

// Customer-name scoring weights. Kept together so tuning stays localized.
const (
	scoreLegalSuffix        = 4
	scoreCleanCharacters    = 1
	scoreAdjacentWords      = 2
	scoreFewDigits          = 1
	scoreDigitRunPenalty    = -2
	scoreComfortableLength  = 1
	scoreNearCustomerAnchor = 5
	scoreNearSupplierAnchor = -6
	scoreBeforeFirstAnchor  = -3
	scoreInvoiceKeyword     = -4
	scoreEarlyUnanchored    = -2
	scoreDomainSuffixBonus  = 3
	scoreRejected           = -1

	acceptScoreFloor   = 5
	freeScanLineLimit  = 45
	labelLookaheadMax  = 8
	anchorLookaheadMax = 5
	lookaheadPenalty   = 0.15

	nearCustomerAnchorDistance = 4
	nearSupplierAnchorDistance = 3
)

var customerLabelTokens = []string{
	"customer", "customername", "billto", "billedto", "invoiceto",
	"soldto", "recipient", "client", "customerto", "shipto",
}

var supplierLabelTokens = []string{
	"from", "supplier", "seller", "vendor", "remitto", "issuer", "ourdetails", "payee",
}

// Structural field labels that must not be mistaken for a customer block
// while looking ahead from a customer anchor.
var nonCustomerFieldLabelTokens = []string{
	"invoice", "invoicenumber", "amount", "amountdue", "total",
	"duedate", "issuedate", "date", "abn", "acn",
	"paymentadvice", "accountnumber", "accountno", "remittanceadvice",
}

var genericNameTokens = []string{
	"customer", "customername", "billto", "billedto", "invoiceto", "soldto",
	"recipient", "client", "company", "name", "to", "from", "supplier",
	"vendor", "payee",
}

var (
	surroundingQuotes  = regexp.MustCompile("^[\"'`]+|[\"'`]+$")
	trailingABNClause  = regexp.MustCompile(`(?i)\b(?:abn|acn)\b.*$`)
	trailingPunct      = regexp.MustCompile(`[,;:.\-]+$`)
	mergedLabelPrefix  = regexp.MustCompile(`(?i)^(?:(?:customer(?:\s+name)?)|(?:bill\s*to)|(?:billed\s*to)|(?:invoice\s*to)|(?:sold\s*to)|recipient|client|company|to)\s*[:\-]?\s+`)
	nonLetters         = regexp.MustCompile(`[^a-z]`)
	labeledValueShape  = regexp.MustCompile(`^(.{1,40}?)(?:[:\-]| {2,}|\t+)(.+)$`)
	domainSuffixShape  = regexp.MustCompile(`(?i)\.[a-z]{2,}(?:\.[a-z]{2,})?$`)
	legalEntitySuffix  = regexp.MustCompile(`(?i)\b(?:pty|limited|ltd|llc|inc|group|co|company)\b`)
	upperCaseOnlyShape = regexp.MustCompile(`^[A-Z0-9 '&.\-]+$`)
	adjacentWordsShape = regexp.MustCompile(`[A-Za-z]{4,}\s+[A-Za-z]{3,}`)
	digitRun3          = regexp.MustCompile(`\d{3,}`)
	digitRun4          = regexp.MustCompile(`\d{4,}`)
	anyLetter          = regexp.MustCompile(`[A-Za-z]`)
	noLettersAtAll     = regexp.MustCompile(`^[^A-Za-z]*$`)
	anyDigit           = regexp.MustCompile(`\d`)
)

var (
	emailOrURLShape  = regexp.MustCompile(`(?i)@|\b(?:www\.|http)`)
	metaLinePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:invoice|total|amount|due|date|abn|acn|tax|gst|phone|mobile|email|statement|balance)\b`),
		regexp.MustCompile(`(?i)\b(?:payment\s*advice|remittance\s*advice)\b`),
		regexp.MustCompile(`(?i)\b(?:account\s*(?:number|no))\b`),
		regexp.MustCompile(`(?i)\bpo\s*box\b`),
		regexp.MustCompile(`(?i)\b(?:suburb|state|postcode|post\s*code)\b`),
	}
	addressWordPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:street|road|avenue|drive|lane|boulevard)\b`),
		regexp.MustCompile(`(?i)\b(?:st|rd|ave|dr|ln|blvd)\.?\b`),
	}
	streetNumberPrefix = regexp.MustCompile(`^\d{1,5}\s+\w+`)
	rejectedNameShape  = regexp.MustCompile(`(?i)\b(?:payment\s*advice|remittance|account\s*(?:number|no)|statement)\b`)
)

// normalizeCustomerName strips decoration OCR tends to attach to a name:
// quotes, trailing ABN/ACN clauses, trailing punctuation, and a label the
// OCR merged into the value ("Customer ACME Pty Ltd" -> "ACME Pty Ltd").
func normalizeCustomerName(value string) string {
	normalized := cleanLine(value)
	normalized = surroundingQuotes.ReplaceAllString(normalized, "")
	normalized = trailingABNClause.ReplaceAllString(normalized, "")
	normalized = trailingPunct.ReplaceAllString(normalized, "")
	normalized = strings.TrimSpace(normalized)
	normalized = mergedLabelPrefix.ReplaceAllString(normalized, "")
	return strings.TrimSpace(normalized)
}

// normalizeLabelToken reduces a line to a bare label token, folding the OCR
// confusions that commonly garble labels (0/o, 1/l, |/l, 5/s).
func normalizeLabelToken(value string) string {
	token := strings.ToLower(cleanLine(value))
	token = strings.ReplaceAll(token, "0", "o")
	token = strings.ReplaceAll(token, "1", "l")
	token = strings.ReplaceAll(token, "|", "l")
	token = strings.ReplaceAll(token, "5", "s")
	return nonLetters.ReplaceAllString(token, "")
}

func tokenMatchesAny(token string, labels []string) bool {
	if token == "" {
		return false
	}
	for _, label := range labels {
		if strings.Contains(token, label) {
			return true
		}
	}
	return false
}

func isCustomerLabelToken(token string) bool {
	return tokenMatchesAny(token, customerLabelTokens)
}

func isSupplierLabelToken(token string) bool {
	return tokenMatchesAny(token, supplierLabelTokens)
}

func isNonCustomerFieldLabelToken(token string) bool {
	return tokenMatchesAny(token, nonCustomerFieldLabelTokens)
}

// extractLabeledValue splits a "label: value" shaped line. Both parts are
// empty when the line does not carry a separator.
func extractLabeledValue(line string) (labelToken, value string) {
	m := labeledValueShape.FindStringSubmatch(cleanLine(line))
	if m == nil || m[1] == "" || m[2] == "" {
		return "", ""
	}
	return normalizeLabelToken(m[1]), cleanLine(m[2])
}

// isAddressOrMetaLine classifies lines that look like addresses, contact
// details or invoice metadata rather than a party name.
func isAddressOrMetaLine(value string) bool {
	line := cleanLine(value)
	if line == "" {
		return true
	}
	if emailOrURLShape.MatchString(line) {
		return true
	}

	for _, pattern := range metaLinePatterns {
		if pattern.MatchString(line) {
			return true
		}
	}

	if streetNumberPrefix.MatchString(line) {
		for _, pattern := range addressWordPatterns {
			if pattern.MatchString(line) {
				return true
			}
		}
	}

	digits := len(anyDigit.FindAllString(line, -1))
	return digits >= 6 || noLettersAtAll.MatchString(line)
}

// isLikelyCustomerName gates candidates: generic label words, payment-advice
// metadata, digit-heavy strings and address lines are never names.
func isLikelyCustomerName(value string) bool {
	cleaned := normalizeCustomerName(value)
	if cleaned == "" || len(cleaned) < 3 || len(cleaned) > 90 {
		return false
	}

	compact := nonLetters.ReplaceAllString(strings.ToLower(cleaned), "")
	for _, token := range genericNameTokens {
		if compact == token {
			return false
		}
	}
	if rejectedNameShape.MatchString(cleaned) {
		return false
	}
	if !anyLetter.MatchString(cleaned) {
		return false
	}
	if digitRun4.MatchString(cleaned) {
		return false
	}
	return !isAddressOrMetaLine(cleaned)
}

// scoreCustomerNameCandidate ranks a plausible name. scoreRejected marks a
// candidate that failed the gate and must never be selected.
func scoreCustomerNameCandidate(value string) float64 {
	cleaned := normalizeCustomerName(value)
	if !isLikelyCustomerName(cleaned) {
		return scoreRejected
	}

	score := 0.0
	if legalEntitySuffix.MatchString(cleaned) {
		score += scoreLegalSuffix
	}
	if upperCaseOnlyShape.MatchString(cleaned) {
		score += scoreCleanCharacters
	}
	if adjacentWordsShape.MatchString(cleaned) {
		score += scoreAdjacentWords
	}
	if digitRun3.MatchString(cleaned) {
		score += scoreDigitRunPenalty
	} else {
		score += scoreFewDigits
	}
	if len(cleaned) >= 10 && len(cleaned) <= 60 {
		score += scoreComfortableLength
	}

	return score
}

// findCustomerName separates the buyer from the seller and returns the most
// plausible buyer name, surviving garbled labels and merged label/value
// lines. Strategies run in priority order and the first success wins.
func findCustomerName(text string) parsedValue {
	lines := splitLines(text)

	var customerAnchors, supplierAnchors []int

	for index, line := range lines {
		labelToken, labeledValue := extractLabeledValue(line)
		if isCustomerLabelToken(labelToken) {
			customerAnchors = append(customerAnchors, index)
			directName := normalizeCustomerName(labeledValue)
			if isLikelyCustomerName(directName) {
				return parsedValue{value: directName, confidence: 92}
			}
		}
		if isSupplierLabelToken(labelToken) {
			supplierAnchors = append(supplierAnchors, index)
		}

		token := normalizeLabelToken(line)
		if isCustomerLabelToken(token) {
			customerAnchors = append(customerAnchors, index)
			inlineCandidate := normalizeCustomerName(line)
			if isLikelyCustomerName(inlineCandidate) {
				return parsedValue{value: inlineCandidate, confidence: 93}
			}

			bestNearby := ""
			bestNearbyScore := 0.0
			for lookahead := 1; lookahead <= labelLookaheadMax; lookahead++ {
				if index+lookahead >= len(lines) {
					break
				}
				candidateLine := lines[index+lookahead]
				candidateToken := normalizeLabelToken(candidateLine)
				if isNonCustomerFieldLabelToken(candidateToken) && !isCustomerLabelToken(candidateToken) {
					continue
				}

				candidateName := normalizeCustomerName(candidateLine)
				if !isLikelyCustomerName(candidateName) {
					continue
				}

				score := scoreCustomerNameCandidate(candidateName) - float64(lookahead)*lookaheadPenalty
				if domainSuffixShape.MatchString(candidateName) {
					score += scoreDomainSuffixBonus
				}

				if bestNearby == "" || score > bestNearbyScore {
					bestNearby = candidateName
					bestNearbyScore = score
				}
			}

			if bestNearby != "" {
				return parsedValue{value: bestNearby, confidence: 89}
			}
		}
		if isSupplierLabelToken(token) {
			supplierAnchors = append(supplierAnchors, index)
		}
	}

	hasCustomerAnchor := len(customerAnchors) > 0
	firstCustomerAnchor := -1
	if hasCustomerAnchor {
		firstCustomerAnchor = customerAnchors[0]
		for _, anchor := range customerAnchors {
			if anchor < firstCustomerAnchor {
				firstCustomerAnchor = anchor
			}
		}
	}

	nearSupplierAnchor := func(lineIndex int) bool {
		for _, supplierIndex := range supplierAnchors {
			if abs(supplierIndex-lineIndex) <= nearSupplierAnchorDistance {
				return true
			}
		}
		return false
	}

	nearCustomerAnchor := func(lineIndex int) bool {
		for _, customerIndex := range customerAnchors {
			if abs(customerIndex-lineIndex) <= nearCustomerAnchorDistance {
				return true
			}
		}
		return false
	}

	bestCandidate := ""
	bestScore := -1.0
	scanLimit := len(lines)
	if scanLimit > freeScanLineLimit {
		scanLimit = freeScanLineLimit
	}
	for index := 0; index < scanLimit; index++ {
		candidate := normalizeCustomerName(lines[index])
		score := scoreCustomerNameCandidate(candidate)
		if score < 0 {
			continue
		}

		if nearCustomerAnchor(index) {
			score += scoreNearCustomerAnchor
		}
		if nearSupplierAnchor(index) {
			score += scoreNearSupplierAnchor
		}
		if hasCustomerAnchor && index < firstCustomerAnchor {
			score += scoreBeforeFirstAnchor
		}
		if lineHasKeyword(candidate, []string{"tax invoice", "invoice"}) {
			score += scoreInvoiceKeyword
		}
		if index <= 3 && !nearCustomerAnchor(index) {
			score += scoreEarlyUnanchored
		}

		if score > bestScore {
			bestScore = score
			bestCandidate = candidate
		}
	}

	if bestCandidate != "" && bestScore >= acceptScoreFloor {
		if hasCustomerAnchor {
			return parsedValue{value: bestCandidate, confidence: 82}
		}
		return parsedValue{value: bestCandidate, confidence: 76}
	}

	if hasCustomerAnchor {
		for _, anchorIndex := range customerAnchors {
			for lookahead := 1; lookahead <= anchorLookaheadMax; lookahead++ {
				if anchorIndex+lookahead >= len(lines) {
					break
				}
				candidate := normalizeCustomerName(lines[anchorIndex+lookahead])
				if isLikelyCustomerName(candidate) && !nearSupplierAnchor(anchorIndex+lookahead) {
					return parsedValue{value: candidate, confidence: 79}
				}
			}
		}
	}

	return parsedValue{}
}

func abs(value int) int {
	if value < 0 {
		return -value
	}
	return value
}
