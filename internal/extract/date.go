package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

var monthIndex = map[string]int{
	"jan": 1, "january": 1,
	"feb": 2, "february": 2,
	"mar": 3, "march": 3,
	"apr": 4, "april": 4,
	"may": 5,
	"jun": 6, "june": 6,
	"jul": 7, "july": 7,
	"aug": 8, "august": 8,
	"sep": 9, "sept": 9, "september": 9,
	"oct": 10, "october": 10,
	"nov": 11, "november": 11,
	"dec": 12, "december": 12,
}

// The three textual date shapes OCR output is expected to carry: numeric with
// separators, "day MonthName year" and "MonthName day, year".
var dateTokenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{1,4}[./-]\d{1,2}[./-]\d{2,4}\b`),
	regexp.MustCompile(`\b\d{1,2}\s+[A-Za-z]{3,9}\s*,?\s*\d{2,4}\b`),
	regexp.MustCompile(`\b[A-Za-z]{3,9}\s+\d{1,2},?\s*\d{2,4}\b`),
}

var (
	ymdPattern          = regexp.MustCompile(`^(\d{4})/(\d{1,2})/(\d{1,2})$`)
	dmyPattern          = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2,4})$`)
	dayMonthTextPattern = regexp.MustCompile(`^(\d{1,2})\s+([A-Za-z]{3,9})\s*,?\s*(\d{2,4})$`)
	monthDayTextPattern = regexp.MustCompile(`^([A-Za-z]{3,9})\s+(\d{1,2}),?\s*(\d{2,4})$`)
)

func promoteYear(year string) string {
	if len(year) == 2 {
		return "20" + year
	}
	return year
}

// normalizeDate reduces any recognized date token to ISO "YYYY-MM-DD".
// Validation stops at month 1-12 and day 1-31; there is no days-in-month
// calendar check.
func normalizeDate(value string) string {
	raw := cleanLine(value)
	raw = strings.ReplaceAll(raw, ".", "/")
	raw = strings.ReplaceAll(raw, "-", "/")
	if raw == "" {
		return ""
	}

	var year, month, day string

	switch {
	case ymdPattern.MatchString(raw):
		m := ymdPattern.FindStringSubmatch(raw)
		year, month, day = m[1], m[2], m[3]
	case dmyPattern.MatchString(raw):
		m := dmyPattern.FindStringSubmatch(raw)
		day, month, year = m[1], m[2], promoteYear(m[3])
	case dayMonthTextPattern.MatchString(raw):
		m := dayMonthTextPattern.FindStringSubmatch(raw)
		monthValue, ok := monthIndex[strings.ToLower(m[2])]
		if !ok {
			return ""
		}
		day, month, year = m[1], strconv.Itoa(monthValue), promoteYear(m[3])
	case monthDayTextPattern.MatchString(raw):
		m := monthDayTextPattern.FindStringSubmatch(raw)
		monthValue, ok := monthIndex[strings.ToLower(m[1])]
		if !ok {
			return ""
		}
		day, month, year = m[2], strconv.Itoa(monthValue), promoteYear(m[3])
	default:
		return ""
	}

	numericYear, err := strconv.Atoi(year)
	if err != nil {
		return ""
	}
	numericMonth, err := strconv.Atoi(month)
	if err != nil {
		return ""
	}
	numericDay, err := strconv.Atoi(day)
	if err != nil {
		return ""
	}
	if numericMonth < 1 || numericMonth > 12 || numericDay < 1 || numericDay > 31 {
		return ""
	}

	return fmt.Sprintf("%04d-%02d-%02d", numericYear, numericMonth, numericDay)
}

type dateToken struct {
	index      int
	normalized string
}

// getDateTokens collects every normalizable date token in the document,
// ordered by position.
func getDateTokens(text string) []dateToken {
	var tokens []dateToken
	for _, pattern := range dateTokenPatterns {
		for _, loc := range pattern.FindAllStringIndex(text, -1) {
			normalized := normalizeDate(text[loc[0]:loc[1]])
			if normalized == "" {
				continue
			}
			tokens = append(tokens, dateToken{index: loc[0], normalized: normalized})
		}
	}
	sort.SliceStable(tokens, func(i, j int) bool { return tokens[i].index < tokens[j].index })
	return tokens
}

func lineHasKeyword(line string, keywords []string) bool {
	lower := strings.ToLower(line)
	for _, keyword := range keywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

func extractDateFromLine(line string) string {
	for _, pattern := range dateTokenPatterns {
		if match := pattern.FindString(line); match != "" {
			if normalized := normalizeDate(match); normalized != "" {
				return normalized
			}
		}
	}
	return ""
}

// findDateByKeywords anchors on the first line carrying one of the keywords
// and reads the date inline, or from the next line at reduced confidence.
func findDateByKeywords(text string, keywords []string, inlineConfidence, nextLineConfidence float64) parsedValue {
	lines := strings.Split(text, "\n")
	for index, raw := range lines {
		line := cleanLine(raw)
		if line == "" || !lineHasKeyword(line, keywords) {
			continue
		}

		if inlineDate := extractDateFromLine(line); inlineDate != "" {
			return parsedValue{value: inlineDate, confidence: inlineConfidence}
		}

		if index+1 < len(lines) {
			if nextLineDate := extractDateFromLine(cleanLine(lines[index+1])); nextLineDate != "" {
				return parsedValue{value: nextLineDate, confidence: nextLineConfidence}
			}
		}
	}

	return parsedValue{}
}

// findIssueDateValue resolves the issue date by strict anchors first, then a
// generic "date" line, then the earliest date token anywhere in the document.
func findIssueDateValue(text string) parsedValue {
	strict := findDateByKeywords(text, []string{"issue date", "invoice date", "date issued", "issued on"}, 94, 90)
	if strict.value != "" {
		return strict
	}

	generic := findDateByKeywords(text, []string{"date"}, 84, 80)
	if generic.value != "" {
		return generic
	}

	if tokens := getDateTokens(text); len(tokens) > 0 {
		return parsedValue{value: tokens[0].normalized, confidence: 70}
	}

	return parsedValue{}
}

var netTermsPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:payment\s+terms?|terms?)\s*[:\-]?\s*net\s*(\d{1,3})\b`),
	regexp.MustCompile(`(?i)\bnet\s*(\d{1,3})\b`),
	regexp.MustCompile(`(?i)(?:payment\s+terms?|terms?)\s*[:\-]?\s*(\d{1,3})\s*days?\b`),
}

// parseNetTermsDays finds a "Net N" or "Payment Terms: N days" clause.
// Zero or implausibly long terms are ignored.
func parseNetTermsDays(text string) int {
	for _, pattern := range netTermsPatterns {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		days, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if days > 0 && days <= 365 {
			return days
		}
	}
	return 0
}

func parseISODate(value string) (time.Time, bool) {
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

func addDaysToISODate(isoDate string, days int) string {
	date, ok := parseISODate(isoDate)
	if !ok {
		return ""
	}
	return date.AddDate(0, 0, days).Format("2006-01-02")
}

const maxDueWindowDays = 365

// findDueDateValue resolves the due date: explicit anchors, then net payment
// terms applied to the issue date, then the latest plausible date token.
// With a known issue date the fallback only accepts tokens strictly after it
// and within a year of it.
func findDueDateValue(text string, issueDate string) parsedValue {
	strict := findDateByKeywords(text, []string{"due date", "payment due", "pay by", "due on", "balance due", "please pay by", "due"}, 94, 90)
	if strict.value != "" {
		return strict
	}

	if issueDate != "" {
		if netDays := parseNetTermsDays(text); netDays > 0 {
			if computed := addDaysToISODate(issueDate, netDays); computed != "" {
				return parsedValue{value: computed, confidence: 86}
			}
		}
	}

	tokens := getDateTokens(text)
	if len(tokens) == 0 {
		return parsedValue{}
	}

	if issueDate == "" {
		return parsedValue{value: tokens[len(tokens)-1].normalized, confidence: 72}
	}

	issue, ok := parseISODate(issueDate)
	if !ok {
		return parsedValue{}
	}

	var afterIssue []string
	for _, token := range tokens {
		candidate, ok := parseISODate(token.normalized)
		if !ok {
			continue
		}
		diff := candidate.Sub(issue)
		if diff > 0 && diff <= maxDueWindowDays*24*time.Hour {
			afterIssue = append(afterIssue, token.normalized)
		}
	}

	if len(afterIssue) > 0 {
		return parsedValue{value: afterIssue[len(afterIssue)-1], confidence: 74}
	}

	return parsedValue{}
}
