package service

import "strings"

// CleanBarcode strips everything but digits from a raw barcode. Scanner
// widgets and manual entry both produce noise around the digits; lookups
// are always keyed by the cleaned form.
func CleanBarcode(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidEANCheckDigit reports whether a cleaned barcode carries a valid
// EAN/UPC check digit. Entries never gate on this (mis-scanned codes still
// get stored), it only feeds a debug log on the lookup path.
func ValidEANCheckDigit(code string) bool {
	switch len(code) {
	case 8, 12, 13, 14:
	default:
		return false
	}

	sum := 0
	weightThree := true

	// Weights alternate 3,1,3,... walking left from the check digit.
	for i := len(code) - 2; i >= 0; i-- {
		digit := int(code[i] - '0')
		if weightThree {
			digit *= 3
		}
		sum += digit
		weightThree = !weightThree
	}

	check := (10 - sum%10) % 10
	return int(code[len(code)-1]-'0') == check
}
