package points

import "strings"

const documentLength = 11

// DocumentDigits keeps only the ASCII digits of a CPF as typed in a sheet.
func DocumentDigits(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		if c := raw[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// ValidDocument rejects anything that is not 11 digits or is a single digit
// repeated. When verifyCheckDigits is set both CPF check digits must match.
func ValidDocument(digits string, verifyCheckDigits bool) bool {
	if len(digits) != documentLength || DocumentDigits(digits) != digits {
		return false
	}
	if strings.Count(digits, digits[:1]) == documentLength {
		return false
	}
	if !verifyCheckDigits {
		return true
	}
	return checkDigit(digits[:9]) == digits[9] && checkDigit(digits[:10]) == digits[10]
}

func checkDigit(prefix string) byte {
	weight := len(prefix) + 1
	sum := 0
	for i := 0; i < len(prefix); i++ {
		sum += int(prefix[i]-'0') * (weight - i)
	}
	rest := (sum * 10) % 11
	if rest == 10 {
		rest = 0
	}
	return byte('0' + rest)
}

// FormatDocument renders 11 digits as ddd.ddd.ddd-dd, the form accounts are
// stored under.
func FormatDocument(digits string) string {
	if len(digits) != documentLength {
		return digits
	}
	return digits[0:3] + "." + digits[3:6] + "." + digits[6:9] + "-" + digits[9:11]
}

// TemporaryPassword is the first-access credential of an account created by
// an import: the last six digits of its CPF.
func TemporaryPassword(digits string) string {
	if len(digits) < 6 {
		return digits
	}
	return digits[len(digits)-6:]
}
