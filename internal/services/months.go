package services

import (
	"fmt"
	"strings"
	"time"
)

// MonthTokens are the canonical month tokens in calendar order.
var MonthTokens = []string{"Jan", "Fev", "Mar", "Abr", "Mai", "Jun", "Jul", "Ago", "Set", "Out", "Nov", "Dez"}

var monthIndex = func() map[string]int {
	m := make(map[string]int, len(MonthTokens))
	for i, tok := range MonthTokens {
		m[tok] = i + 1
	}
	return m
}()

// English spellings accepted from query strings and CLI flags.
var monthAliases = map[string]string{
	"feb": "Fev",
	"apr": "Abr",
	"may": "Mai",
	"aug": "Ago",
	"sep": "Set",
	"oct": "Out",
	"dec": "Dez",
}

// MonthIndex returns the 1-based calendar position of a canonical token.
// Unknown tokens return 0 so they sort ahead of January instead of failing.
func MonthIndex(token string) int {
	return monthIndex[token]
}

// MonthToken returns the canonical token for a 1-based month number.
func MonthToken(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return MonthTokens[month-1]
}

// NormalizeMonth maps user input onto a canonical token, case-insensitively.
func NormalizeMonth(input string) (string, bool) {
	s := strings.TrimSpace(input)
	for _, tok := range MonthTokens {
		if strings.EqualFold(tok, s) {
			return tok, true
		}
	}
	if tok, ok := monthAliases[strings.ToLower(s)]; ok {
		return tok, true
	}
	return "", false
}

// SortKey builds the canonical "YYYY-MM" key. Lexicographic order on keys
// matches chronological order.
func SortKey(year int, month string) string {
	return fmt.Sprintf("%04d-%02d", year, MonthIndex(month))
}

// MonthLabel renders "Mon/YY".
func MonthLabel(year int, month string) string {
	return fmt.Sprintf("%s/%02d", month, year%100)
}

// addMonths advances a (year, 1-based month) pair, rolling over years.
func addMonths(year, month, offset int) (int, int) {
	t := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).AddDate(0, offset, 0)
	return t.Year(), int(t.Month())
}
