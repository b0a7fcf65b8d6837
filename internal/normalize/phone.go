// Package normalize provides pure canonicalization helpers for untrusted
// inbound lead data. Nothing here returns an error: malformed input degrades
// to a safe default so ingestion never aborts on a bad field.
package normalize

import "strings"

// Domestic subscriber numbers are 10 digits (landline) or 11 (mobile with the
// ninth digit) before the country prefix is applied.
const (
	domesticLandlineLen = 10
	domesticMobileLen   = 11
)

// DefaultCountryCode is used when the account has no override configured.
const DefaultCountryCode = "55"

// Phone canonicalizes a free-form phone string to digits only:
// non-digits stripped, leading zeros stripped, the country prefix enforced on
// domestic-length numbers, and a redundant zero right after the prefix
// removed. Empty or unparseable input yields "" — which must never match an
// existing canonical phone, so callers guard lookups on empty output.
//
// Phone is idempotent: Phone(Phone(s, cc), cc) == Phone(s, cc).
func Phone(raw, countryCode string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := strings.TrimLeft(b.String(), "0")
	if digits == "" {
		return ""
	}
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}

	switch {
	case !strings.HasPrefix(digits, countryCode):
		if len(digits) == domesticLandlineLen || len(digits) == domesticMobileLen {
			digits = countryCode + digits
		}
	case strings.HasPrefix(digits, countryCode+"0"):
		// Carrier dial prefixes leak a zero between country code and area
		// code: 55 0 11 9xxxx.
		rest := strings.TrimLeft(digits[len(countryCode):], "0")
		if rest == "" {
			return ""
		}
		digits = countryCode + rest
	}

	return digits
}
