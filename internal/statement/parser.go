package statement

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vchukka/finsense/internal/domain"
)

// Statement exports carry one transaction per line in the form
//
//	03.04.2025  REWE SAGT DANKE 44312  -54,30 €
//
// with a German date and a comma decimal amount, optionally with thousands
// separators.
var lineRe = regexp.MustCompile(`^(\d{2}\.\d{2}\.\d{4})\s+(.+?)\s+(-?\d+(?:\.\d{3})*,\d{2})\s*€`)

// ParseText extracts transaction lines from raw statement text. Lines that do
// not match the expected shape are skipped rather than failing the batch.
func ParseText(text string) []domain.RawLine {
	var out []domain.RawLine
	for _, line := range strings.Split(text, "\n") {
		if raw, ok := ParseLine(line); ok {
			out = append(out, raw)
		}
	}
	return out
}

// ParseLine parses a single statement line. The second return value reports
// whether the line matched the statement format.
func ParseLine(line string) (domain.RawLine, bool) {
	m := lineRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return domain.RawLine{}, false
	}

	date, err := time.Parse("02.01.2006", m[1])
	if err != nil {
		return domain.RawLine{}, false
	}
	amount, err := parseAmount(m[3])
	if err != nil {
		return domain.RawLine{}, false
	}

	return domain.RawLine{
		Date:        date,
		Description: strings.TrimSpace(m[2]),
		Amount:      amount,
	}, true
}

// parseAmount converts the German decimal notation ("-1.234,56") into a
// decimal value.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	return decimal.NewFromString(s)
}

// TextExtractor feeds plain-text statement exports into the import pipeline.
type TextExtractor struct{}

func (TextExtractor) Extract(_ context.Context, data []byte) ([]domain.RawLine, error) {
	return ParseText(string(data)), nil
}
