// Package phone converts locally formatted Zimbabwean numbers into the
// international form expected by messaging providers.
package phone

import "strings"

const (
	// DialCode is the country calling code prepended to local numbers.
	DialCode = "263"

	trunkPrefix = '0'
	minDigits   = 9
)

// Normalize strips formatting from raw and returns the number prefixed with
// DialCode. ok is false when the input has too few digits to be dialable.
func Normalize(raw string) (canonical string, ok bool) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	if len(digits) > 0 && digits[0] == trunkPrefix {
		digits = digits[1:]
	}
	if strings.HasPrefix(digits, DialCode) {
		return digits, true
	}
	if len(digits) >= minDigits {
		return DialCode + digits, true
	}
	return "", false
}
