package llm

import (
	"encoding/json"
	"strings"
)

// candidateContent is the object form of a candidate's content field
type candidateContent struct {
	Parts []Part `json:"parts"`
	Text  string `json:"text"`
}

// extractStrategy probes one known response shape and returns the text it
// found, or "" when the shape does not match.
type extractStrategy func(*GenerateResponse) string

// extractStrategies are tried in order; the first non-empty result wins.
// The API has shipped content as an array of entries, as a single object
// with parts, and as flat output/text fields, so every shape is probed.
var extractStrategies = []extractStrategy{
	extractFromContentEntries,
	extractFromContentObject,
	extractFromCandidateFlat,
	extractFromTopLevel,
}

// ExtractText pulls the first usable text out of a generation response.
// The second return value is false when no strategy matched; callers must
// treat that as "no usable text", not as a transport error.
func ExtractText(resp *GenerateResponse) (string, bool) {
	if resp == nil {
		return "", false
	}

	for _, strategy := range extractStrategies {
		if text := strategy(resp); text != "" {
			return text, true
		}
	}
	return "", false
}

// extractFromContentEntries handles content shipped as an array of entries,
// each carrying either parts or a flat text field
func extractFromContentEntries(resp *GenerateResponse) string {
	for _, cand := range resp.Candidates {
		if len(cand.Content) == 0 {
			continue
		}

		var entries []candidateContent
		if err := json.Unmarshal(cand.Content, &entries); err != nil {
			continue
		}

		for _, entry := range entries {
			for _, part := range entry.Parts {
				if text := strings.TrimSpace(part.Text); text != "" {
					return text
				}
			}
			if text := strings.TrimSpace(entry.Text); text != "" {
				return text
			}
		}
	}
	return ""
}

// extractFromContentObject handles the documented shape: a single content
// object whose parts are joined in order
func extractFromContentObject(resp *GenerateResponse) string {
	for _, cand := range resp.Candidates {
		if len(cand.Content) == 0 {
			continue
		}

		var content candidateContent
		if err := json.Unmarshal(cand.Content, &content); err != nil {
			continue
		}

		var parts []string
		for _, part := range content.Parts {
			if part.Text != "" {
				parts = append(parts, part.Text)
			}
		}
		if text := strings.TrimSpace(strings.Join(parts, "\n")); text != "" {
			return text
		}
		if text := strings.TrimSpace(content.Text); text != "" {
			return text
		}
	}
	return ""
}

// extractFromCandidateFlat handles candidates carrying flat output/message fields
func extractFromCandidateFlat(resp *GenerateResponse) string {
	for _, cand := range resp.Candidates {
		if text := strings.TrimSpace(cand.Output); text != "" {
			return text
		}
		if text := strings.TrimSpace(cand.Message); text != "" {
			return text
		}
	}
	return ""
}

// extractFromTopLevel handles legacy top-level output/text fields
func extractFromTopLevel(resp *GenerateResponse) string {
	if text := strings.TrimSpace(resp.Output); text != "" {
		return text
	}
	return strings.TrimSpace(resp.Text)
}
