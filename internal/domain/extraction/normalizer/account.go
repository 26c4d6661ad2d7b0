package normalizer

import (
	"regexp"
	"strings"
)

// accountPatterns match account identifiers in statement header text.
// Masked digits (****1234) and grouped digits (12-3456-7890) both count.
var accountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)account\s*(?:no\.?|number|#)?\s*[:.]?\s*([*Xx\d][-*Xx\d ]{3,30}\d)`),
	regexp.MustCompile(`(?i)\bIBAN\s*[:.]?\s*([A-Z]{2}\d{2}[A-Z0-9 ]{11,30})`),
	regexp.MustCompile(`(?i)conta\s*(?:n\.?[oº]?)?\s*[:.]?\s*([*\d][-*\d ]{3,30}\d)`),
}

// DetectAccountNumber scans statement text for an account identifier. It
// returns nil when nothing convincing is found.
func DetectAccountNumber(text string) *string {
	for _, pattern := range accountPatterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		account := strings.TrimSpace(match[1])
		// Require at least four digits so dates and page numbers don't match.
		digits := 0
		for _, r := range account {
			if r >= '0' && r <= '9' {
				digits++
			}
		}
		if digits < 4 {
			continue
		}
		account = strings.Join(strings.Fields(account), " ")
		return &account
	}
	return nil
}
