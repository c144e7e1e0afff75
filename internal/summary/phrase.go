package summary

import (
	"regexp"
	"strings"
	"time"

	"github.com/vchukka/finsense/internal/domain"
)

var isoMonthRe = regexp.MustCompile(`(\d{4})[-/](\d{2})`)

// ParsePhrase resolves a {category, month} filter from a query phrase
// without the model. It understands relative terms ("last month", "this
// month"), English month names, and ISO YYYY-MM; anything else defaults to
// the current month. The category is taken from a known category name
// appearing in the text, or from an "on <something>" tail.
func ParsePhrase(text string, now time.Time) domain.Filter {
	lowered := strings.ToLower(strings.TrimSpace(text))
	month := now.Format("2006-01")
	rest := lowered

	switch {
	case strings.Contains(lowered, "last month"):
		month = now.AddDate(0, 0, -now.Day()).Format("2006-01")
		rest = strings.ReplaceAll(lowered, "last month", " ")
	case strings.Contains(lowered, "this month"):
		rest = strings.ReplaceAll(lowered, "this month", " ")
	default:
		if m := isoMonthRe.FindStringSubmatch(lowered); m != nil {
			month = m[1] + "-" + m[2]
			rest = strings.Replace(lowered, m[0], " ", 1)
		} else {
			for i := time.January; i <= time.December; i++ {
				name := strings.ToLower(i.String())
				if strings.Contains(lowered, name) {
					month = time.Date(now.Year(), i, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
					rest = strings.Replace(lowered, name, " ", 1)
					break
				}
			}
		}
	}

	return domain.Filter{Category: phraseCategory(rest), Month: month}
}

// phraseCategory picks the category out of what is left once the month
// tokens are gone.
func phraseCategory(rest string) string {
	for _, name := range domain.Categories() {
		if strings.Contains(rest, strings.ToLower(name)) {
			return name
		}
	}
	if strings.Contains(rest, strings.ToLower(domain.CategoryUncategorized)) {
		return domain.CategoryUncategorized
	}

	// "how much did I spend on food" keeps "food" as the filter even though
	// it is not a known category; the store simply returns no rows for it.
	if idx := strings.LastIndex(rest, " on "); idx != -1 {
		tail := strings.Trim(rest[idx+len(" on "):], "?!. ")
		words := strings.Fields(tail)
		for len(words) > 0 && isFiller(words[len(words)-1]) {
			words = words[:len(words)-1]
		}
		if len(words) > 0 {
			return titleWords(strings.Join(words, " "))
		}
	}
	return ""
}

func isFiller(word string) bool {
	switch word {
	case "in", "for", "during", "of", "the":
		return true
	}
	return false
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
