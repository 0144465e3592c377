package domain

import "strings"

// CountryCode is prepended to bare 10-digit national numbers.
const CountryCode = "91"

// NormalizeMobile trims the input and prefixes the country code when the
// number is given without it. Callers validate the shape beforehand.
func NormalizeMobile(mobile string) string {
	m := strings.TrimSpace(mobile)
	if len(m) == 10 {
		return CountryCode + m
	}
	return m
}
