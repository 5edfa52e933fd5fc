package semantic

import (
	"strings"
)

// EmbeddingDim is the dimension of the locally computed embeddings
const EmbeddingDim = 384

// studyKeywords are terms common in student questions; their presence forms
// part of the embedding so questions about the same topic land close together
var studyKeywords = []string{
	"assignment", "homework", "essay", "report", "project", "exam", "quiz",
	"question", "answer", "explain", "summary", "summarize", "define",
	"requirement", "rubric", "marks", "grade", "deadline", "due", "submit",
	"research", "reference", "source", "cite", "citation", "plagiarism",
	"math", "science", "history", "english", "physics", "chemistry",
	"biology", "code", "program", "algorithm", "function", "equation",
	"paragraph", "thesis", "argument", "analysis", "structure", "outline",
	"start", "begin", "finish", "improve", "review", "feedback", "example",
	"help", "stuck", "understand", "difficult", "easy", "topic", "chapter",
}

// Embed creates a basic vector representation of a question for similarity
// matching. This is a placeholder until a proper embedding model is wired in.
func Embed(text string) []float32 {
	embedding := make([]float32, EmbeddingDim)

	text = strings.ToLower(text)
	if len(text) == 0 {
		return embedding
	}

	// Feature 1-50: Character frequencies
	charCounts := make(map[rune]int)
	for _, char := range text {
		charCounts[char]++
	}

	chars := "abcdefghijklmnopqrstuvwxyz0123456789 "
	for i, char := range chars {
		if i < 50 {
			if count, exists := charCounts[char]; exists {
				embedding[i] = float32(count) / float32(len(text))
			}
		}
	}

	// Feature 51-150: Study domain keywords
	for i, keyword := range studyKeywords {
		if i+50 < EmbeddingDim {
			if strings.Contains(text, keyword) {
				embedding[i+50] = 1.0
			}
		}
	}

	// Feature 151-155: Text length and structure features
	embedding[150] = float32(len(text)) / 1000.0                            // Normalized text length
	embedding[151] = float32(strings.Count(text, " ")) / float32(len(text)) // Word density
	embedding[152] = float32(strings.Count(text, "?"))                      // Question marks
	embedding[153] = float32(strings.Count(text, "!"))                      // Exclamation marks
	embedding[154] = float32(strings.Count(text, "\n"))                     // Line breaks

	// Normalize the embedding vector
	var magnitude float32
	for _, val := range embedding {
		magnitude += val * val
	}
	if magnitude > 0 {
		magnitude = float32(1.0 / (magnitude + 0.001)) // Add small epsilon to avoid division by zero
		for i := range embedding {
			embedding[i] *= magnitude
		}
	}

	return embedding
}
