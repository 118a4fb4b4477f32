package scripting

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"newsreel/internal/logging"
	"newsreel/internal/services/llm"
)

// Preview is the material shown to the editor model when ranking
// stories for a digest.
type Preview struct {
	ID      string
	Snippet string
}

// previewRunes bounds how much of each article the ranking prompt sees.
const previewRunes = 280

// NewPreview trims an article down to ranking material.
func NewPreview(id, article string) Preview {
	cleaned := strings.Join(strings.Fields(article), " ")
	runes := []rune(cleaned)
	if len(runes) > previewRunes {
		cleaned = string(runes[:previewRunes]) + "..."
	}
	return Preview{ID: id, Snippet: cleaned}
}

// SelectTop asks the model for the n most newsworthy stories. On any
// model failure it falls back to the first n previews in order, so story
// selection never blocks a run.
func SelectTop(ctx context.Context, client Generator, previews []Preview, n int, logger *slog.Logger) []string {
	logger = logging.WithComponent(logger, "script")
	if n <= 0 || n > len(previews) {
		n = len(previews)
	}
	firstN := make([]string, 0, n)
	for _, preview := range previews[:n] {
		firstN = append(firstN, preview.ID)
	}
	if client == nil || len(previews) <= n {
		return firstN
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Pick the %d best stories.\n\n", n)
	for i, preview := range previews {
		fmt.Fprintf(&sb, "%d. id=%s: %s\n", i+1, preview.ID, preview.Snippet)
	}

	content, err := client.CompleteJSON(ctx, RankSystemPrompt, sb.String())
	if err != nil {
		logger.Warn("story ranking failed, using first stories", logging.Error(err))
		return firstN
	}

	var parsed struct {
		IDs []string `json:"ids"`
	}
	if err := llm.DecodeLLMJSON(content, &parsed); err != nil {
		logger.Warn("story ranking unparseable, using first stories", logging.Error(err))
		return firstN
	}

	known := make(map[string]struct{}, len(previews))
	for _, preview := range previews {
		known[preview.ID] = struct{}{}
	}
	selected := make([]string, 0, n)
	seen := make(map[string]struct{}, n)
	for _, id := range parsed.IDs {
		id = strings.TrimSpace(id)
		if _, ok := known[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		selected = append(selected, id)
		if len(selected) == n {
			break
		}
	}
	if len(selected) < n {
		logger.Warn("story ranking incomplete, using first stories",
			logging.Int("selected", len(selected)),
			logging.Int("wanted", n),
		)
		return firstN
	}
	return selected
}
