// Package tags extracts topical labels from note content via an LLM.
// Extraction is best-effort and never blocks a note write.
package tags

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/finbrief/finbrief/plugin/ai"
	"github.com/finbrief/finbrief/plugin/ai/timeout"
)

const (
	// MaxTags is the maximum number of tags kept per note.
	MaxTags = 5
	// MaxTagLength is the maximum length of a single tag in characters.
	MaxTagLength = 12

	maxContentChars = 2000
)

const extractSystemPrompt = `You label personal investment notes about company earnings events.
Given a note, respond with up to 5 short topical tags.
Rules:
1. Each tag is at most 12 characters, lowercase, no "#" prefix.
2. Prefer finance terms (guidance, margins, revenue, buyback, risk).
3. Respond with a JSON object only: {"tags": ["tag1", "tag2"]}`

// Extractor turns note content into a short list of topical labels.
type Extractor struct {
	llm     ai.LLMService
	timeout time.Duration
	logger  *slog.Logger
}

// NewExtractor creates a new Extractor. A nil llm yields an extractor
// that always returns an empty set.
func NewExtractor(llm ai.LLMService, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		llm:     llm,
		timeout: timeout.TaggingTimeout,
		logger:  logger,
	}
}

// Extract returns up to MaxTags deduplicated tags for the content.
// Any provider failure degrades to an empty set.
func (e *Extractor) Extract(ctx context.Context, content string) []string {
	if e.llm == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if utf8.RuneCountInString(content) > maxContentChars {
		runes := []rune(content)
		content = string(runes[:maxContentChars]) + "..."
	}

	messages := []ai.Message{
		ai.SystemPrompt(extractSystemPrompt),
		ai.UserMessage(content),
	}

	response, err := e.llm.Chat(ctx, messages)
	if err != nil {
		e.logger.Warn("tag extraction failed",
			slog.String("error", err.Error()),
			slog.Duration("timeout", e.timeout),
		)
		return nil
	}

	tags := Normalize(parseTagsFromJSON(response))
	if len(tags) == 0 {
		e.logger.Warn("tag extraction returned no parseable tags",
			slog.String("response", truncateLog(response, 100)),
		)
	}
	return tags
}

// Normalize trims, strips "#" prefixes, drops oversized and duplicate
// entries, and caps the result at MaxTags, preserving order.
func Normalize(raw []string) []string {
	var tags []string
	seen := make(map[string]bool)
	for _, tag := range raw {
		tag = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
		if tag == "" || utf8.RuneCountInString(tag) > MaxTagLength {
			continue
		}
		key := strings.ToLower(tag)
		if seen[key] {
			continue
		}
		seen[key] = true
		tags = append(tags, tag)
		if len(tags) == MaxTags {
			break
		}
	}
	return tags
}

// parseTagsFromJSON parses the structured LLM response. Accepts either
// {"tags": [...]} or a bare JSON array, with or without code fences.
func parseTagsFromJSON(response string) []string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	var wrapped struct {
		Tags []string `json:"tags"`
	}
	if err := json.Unmarshal([]byte(response), &wrapped); err == nil && len(wrapped.Tags) > 0 {
		return wrapped.Tags
	}

	// Fall back to extracting the first JSON array in the response.
	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start >= 0 && end > start {
		var tags []string
		if err := json.Unmarshal([]byte(response[start:end+1]), &tags); err == nil {
			return tags
		}
	}

	return nil
}

// truncateLog truncates string for logging.
func truncateLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
