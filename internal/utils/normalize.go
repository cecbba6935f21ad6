package utils

import "strings"

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// NormalizeCompanyName collapses inner whitespace and uppercases the name.
func NormalizeCompanyName(raw string) string {
	return strings.ToUpper(strings.Join(strings.Fields(raw), " "))
}

// NormalizePhone drops spaces and dashes from a phone number.
func NormalizePhone(raw string) string {
	normalized := strings.TrimSpace(raw)
	normalized = strings.ReplaceAll(normalized, " ", "")
	normalized = strings.ReplaceAll(normalized, "-", "")
	return normalized
}
