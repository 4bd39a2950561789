package util

import (
	"strings"
	"unicode"
)

// SanitizeString trims whitespace and removes control characters from s.
func SanitizeString(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// SanitizeEnvValue cleans an environment variable value by removing surrounding
// quotes and trimming whitespace.
func SanitizeEnvValue(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			s = s[1 : len(s)-1]
		}
	}
	return strings.TrimSpace(s)
}

// MaskCredential hides the secret part of a credential for logs. For an
// "id:secret" pair the id stays visible; a bare key keeps its first four
// characters.
func MaskCredential(s string) string {
	if s == "" {
		return ""
	}
	if id, _, ok := strings.Cut(s, ":"); ok {
		return id + ":***"
	}
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "***"
}
