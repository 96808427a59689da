// Package security provides log redaction for model provider credentials.
package security

import (
	"regexp"
)

// sensitivePatterns matches credential material that must never reach the
// operational log: key=value pairs and bare provider API keys.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key|api[_-]?secret|secret[_-]?key|access[_-]?token|auth[_-]?token|bearer|password)[=:\s]+["']?([^\s"']+)["']?`),
	regexp.MustCompile(`sk-[A-Za-z0-9_-]{20,}`),
}

// MaskSensitive replaces credential material in a string with a redaction
// marker. Prompts and error messages pass through here before logging
// because provider errors sometimes echo the offending header back.
func MaskSensitive(s string) string {
	masked := s
	for _, pattern := range sensitivePatterns {
		masked = pattern.ReplaceAllStringFunc(masked, func(m string) string {
			sub := pattern.FindStringSubmatch(m)
			if len(sub) >= 2 && sub[1] != "" {
				return sub[1] + "=***"
			}
			return "***"
		})
	}
	return masked
}

// RedactKey keeps enough of an API key to identify it in configuration
// listings without exposing it.
func RedactKey(key string) string {
	if len(key) <= 8 {
		if key == "" {
			return ""
		}
		return "***"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
