// Package normalizer converts raw statement fields into typed values:
// flexible date parsing, amount normalization across regional formats, and
// description cleanup.
package normalizer

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// DateFormat hints for ambiguous numeric dates
const (
	DateFormatDMY = "DD/MM/YYYY"
	DateFormatMDY = "MM/DD/YYYY"
	DateFormatYMD = "YYYY-MM-DD"
)

// dateLayouts maps a detected format hint to candidate Go layouts, tried in order
var dateLayouts = map[string][]string{
	DateFormatYMD: {"2006-01-02", "2006/01/02", "2006.01.02"},
	DateFormatDMY: {"02/01/2006", "02-01-2006", "02.01.2006", "02/01/06", "2 Jan 2006", "02 Jan 2006"},
	DateFormatMDY: {"01/02/2006", "01-02-2006", "01.02.2006", "01/02/06", "Jan 2, 2006", "Jan 02, 2006"},
}

// fallbackLayouts are tried when the hinted layouts all fail
var fallbackLayouts = []string{
	"2006-01-02", "02/01/2006", "01/02/2006", "2006/01/02",
	"02-01-2006", "2 Jan 2006", "02 Jan 2006", "Jan 2, 2006",
	"January 2, 2006", "2 January 2006", "02.01.2006",
}

// ParseDate parses a statement date using the format hint first, then the
// fallback layout list.
func ParseDate(raw string, formatHint string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	if layouts, ok := dateLayouts[formatHint]; ok {
		for _, layout := range layouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %q", raw)
}

// DetectDateFormat inspects sample date strings and infers the dominant
// format. Unambiguous samples (a component > 12) decide; otherwise DD/MM wins
// only when nothing contradicts it, matching European statement conventions.
func DetectDateFormat(samples []string) string {
	dmy := 0
	mdy := 0
	for _, raw := range samples {
		s := strings.TrimSpace(raw)
		if len(s) >= 10 && s[4] == '-' {
			return DateFormatYMD
		}
		first, second, ok := splitNumericDate(s)
		if !ok {
			continue
		}
		if first > 12 && second <= 12 {
			dmy++
		}
		if second > 12 && first <= 12 {
			mdy++
		}
	}
	if mdy > dmy {
		return DateFormatMDY
	}
	return DateFormatDMY
}

func splitNumericDate(s string) (int, int, bool) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '/' || r == '-' || r == '.'
	})
	if len(fields) != 3 {
		return 0, 0, false
	}
	first, ok1 := atoi(fields[0])
	second, ok2 := atoi(fields[1])
	if !ok1 || !ok2 {
		return 0, 0, false
	}
	return first, second, true
}

func atoi(s string) (int, bool) {
	n := 0
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}

// ParseAmount normalizes a statement amount string into a decimal. It strips
// currency symbols and grouping separators, and understands parenthesized and
// trailing negatives. When european is true a comma is the decimal separator.
func ParseAmount(raw string, european bool) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	if strings.HasSuffix(s, "-") {
		negative = true
		s = s[:len(s)-1]
	}
	if strings.HasSuffix(strings.ToUpper(s), "DR") {
		negative = true
		s = s[:len(s)-2]
	} else if strings.HasSuffix(strings.ToUpper(s), "CR") {
		s = s[:len(s)-2]
	}

	// Keep digits, separators and sign; drop currency symbols and spacing.
	s = strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) || r == ',' || r == '.' || r == '-' {
			return r
		}
		return -1
	}, s)
	if s == "" || s == "-" {
		return decimal.Zero, fmt.Errorf("no digits in amount: %q", raw)
	}
	if strings.HasPrefix(s, "-") {
		negative = true
		s = strings.TrimPrefix(s, "-")
	}

	if european {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	if negative {
		amount = amount.Neg()
	}
	return amount, nil
}

// DetectEuropeanFormat inspects amount samples and reports whether the comma
// is the decimal separator. The second return is false when the samples give
// no usable signal.
func DetectEuropeanFormat(samples []string) (bool, bool) {
	europeanHints := 0
	usHints := 0

	for _, raw := range samples {
		cleaned := strings.Map(func(r rune) rune {
			if unicode.IsDigit(r) || r == ',' || r == '.' {
				return r
			}
			return -1
		}, raw)
		if cleaned == "" {
			continue
		}

		hasComma := strings.Contains(cleaned, ",")
		hasDot := strings.Contains(cleaned, ".")

		switch {
		case hasComma && hasDot:
			if strings.LastIndex(cleaned, ",") > strings.LastIndex(cleaned, ".") {
				europeanHints++
			} else {
				usHints++
			}
		case hasComma:
			if hasDecimalSuffix(cleaned, ',') {
				europeanHints++
			}
		case hasDot:
			if hasDecimalSuffix(cleaned, '.') {
				usHints++
			}
		}
	}

	if europeanHints == usHints {
		return false, false
	}
	return europeanHints > usHints, true
}

func hasDecimalSuffix(value string, sep rune) bool {
	idx := strings.LastIndex(value, string(sep))
	if idx == -1 || idx == len(value)-1 {
		return false
	}
	digits := 0
	for _, r := range value[idx+1:] {
		if !unicode.IsDigit(r) {
			return false
		}
		digits++
		if digits > 2 {
			return false
		}
	}
	return digits > 0
}

// CleanDescription collapses whitespace and strips control characters from a
// raw statement description.
func CleanDescription(raw string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range raw {
		if unicode.IsControl(r) {
			continue
		}
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteRune(' ')
			}
			lastSpace = true
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return strings.TrimSpace(b.String())
}
