package scripting

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"newsreel/internal/logging"
	"newsreel/internal/pipeline"
	"newsreel/internal/services"
	"newsreel/internal/services/llm"
)

// secondsPerImage is the target dwell used to size scripts.
const secondsPerImage = 6.0

// Generator is the completion surface the stage needs from the LLM
// client.
type Generator interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Stage writes a narration script and headline for every part.
type Stage struct {
	client         Generator
	wordsPerSecond float64
	logger         *slog.Logger
}

// NewStage builds the script stage. The client may be nil only for runs
// that always take the mock path.
func NewStage(client Generator, wordsPerSecond float64, logger *slog.Logger) *Stage {
	if wordsPerSecond <= 0 {
		wordsPerSecond = 2.5
	}
	return &Stage{
		client:         client,
		wordsPerSecond: wordsPerSecond,
		logger:         logging.WithComponent(logger, "script"),
	}
}

func (s *Stage) ID() string { return "script" }

// Execute fills Script and Headline on every part.
func (s *Stage) Execute(ctx context.Context, state pipeline.State) (pipeline.State, error) {
	for i, part := range state.Parts {
		if strings.TrimSpace(part.RawText) == "" {
			return pipeline.State{}, services.Wrap(services.ErrValidation, "script", "", fmt.Sprintf("story %s has no article text", part.StoryID), nil)
		}

		var (
			script   string
			headline string
			err      error
		)
		if state.Mock {
			script, headline = mockScript(part.RawText)
		} else {
			script, headline, err = s.generate(ctx, part)
			if err != nil {
				return pipeline.State{}, err
			}
		}

		state.Parts[i].Script = script
		state.Parts[i].Headline = NormalizeHeadline(headline)

		s.logger.Info("script written",
			logging.String(logging.FieldStoryID, part.StoryID),
			logging.Int("words", len(strings.Fields(script))),
			logging.String("headline", state.Parts[i].Headline),
			logging.Bool("mock", state.Mock),
		)
	}
	return state, nil
}

func (s *Stage) generate(ctx context.Context, part pipeline.Part) (string, string, error) {
	if s.client == nil {
		return "", "", services.Wrap(services.ErrConfiguration, "script", "", "llm client not configured", nil)
	}

	targetWords := s.targetWords(len(part.AssetPaths))
	userPrompt := fmt.Sprintf(
		"Target length: about %d words (between %d and %d).\n\nArticle:\n%s",
		targetWords, targetWords*8/10, targetWords*12/10, part.RawText,
	)

	content, err := s.client.CompleteJSON(ctx, ScriptSystemPrompt, userPrompt)
	if err != nil {
		if llm.IsAuthError(err) {
			return "", "", services.Wrap(services.ErrFatalProvider, "script", "generate", "authentication rejected", err)
		}
		return "", "", services.Wrap(services.ErrTransient, "script", "generate", "completion failed", err)
	}

	var parsed struct {
		Script   string `json:"script"`
		Headline string `json:"headline"`
	}
	if err := llm.DecodeLLMJSON(content, &parsed); err != nil {
		return "", "", services.Wrap(services.ErrTransient, "script", "generate", "parse response", err)
	}
	script := strings.TrimSpace(parsed.Script)
	if script == "" {
		return "", "", services.Wrap(services.ErrTransient, "script", "generate", "model returned empty script", nil)
	}
	return script, parsed.Headline, nil
}

func (s *Stage) targetWords(imageCount int) int {
	if imageCount < 1 {
		imageCount = 1
	}
	words := int(s.wordsPerSecond * secondsPerImage * float64(imageCount))
	if words < 30 {
		words = 30
	}
	return words
}

// mockScript derives a deterministic script from the article so mock runs
// never touch a provider: the first few sentences, trimmed of markup.
func mockScript(article string) (string, string) {
	sentences := SplitSentences(article)
	limit := 4
	if len(sentences) < limit {
		limit = len(sentences)
	}
	script := strings.Join(sentences[:limit], " ")

	headline := ""
	if len(sentences) > 0 {
		words := strings.Fields(sentences[0])
		if len(words) > 8 {
			words = words[:8]
		}
		headline = strings.TrimRight(strings.Join(words, " "), ".!?,;:")
	}
	return script, headline
}
