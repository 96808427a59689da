package signal

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencedJSON = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]+?)\\s*```")

// extractJSON pulls a JSON object out of a model response, accepting either
// raw JSON or a fenced code block. Returns false when nothing parseable is
// found; the caller treats that as a hard parse failure, never a default.
func extractJSON(text string, target interface{}) bool {
	cleaned := strings.TrimSpace(text)

	if json.Unmarshal([]byte(cleaned), target) == nil {
		return true
	}

	if m := fencedJSON.FindStringSubmatch(cleaned); m != nil {
		if json.Unmarshal([]byte(m[1]), target) == nil {
			return true
		}
	}

	// Last resort: the outermost brace-delimited span.
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		if json.Unmarshal([]byte(cleaned[start:end+1]), target) == nil {
			return true
		}
	}

	return false
}
