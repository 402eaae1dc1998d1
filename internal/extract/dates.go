package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"callscribe/internal/domain"
)

var isoDateRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// dateTextRe finds date-shaped text in free page copy.
var dateTextRe = regexp.MustCompile(`(?i)\b(?:\d{4}-\d{2}-\d{2}|` +
	`(?:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.? \d{1,2},? \d{4}|` +
	`\d{1,2} (?:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]* \d{4})\b`)

var dateLayouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"Jan. 2, 2006",
	"January 2 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
}

// ParseCallDate normalizes s to a YYYY-MM-DD calendar date. Unparseable
// input yields now's date.
func ParseCallDate(s string, now time.Time) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return now.Format(domain.CallDateLayout)
	}

	if m := isoDateRe.FindString(s); m != "" {
		if t, err := time.Parse(domain.CallDateLayout, m); err == nil {
			return t.Format(domain.CallDateLayout)
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(domain.CallDateLayout)
		}
	}
	if t, err := dateparse.ParseAny(s); err == nil {
		return t.Format(domain.CallDateLayout)
	}
	return now.Format(domain.CallDateLayout)
}

// FindDateText returns the first date-shaped substring of s, or "".
func FindDateText(s string) string {
	return dateTextRe.FindString(s)
}
