package analyze

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/sightlinehq/sightline/internal/audit"
)

const defaultModel = "claude-sonnet-4-5"

const reportSystemPrompt = `You are an accessibility auditor. You receive accessibility scan data for a web page: a list of rule violations, each with an impact level (minor, moderate, serious or critical), help text and the affected elements. Respond with a single JSON object and no other text:
{"summary": "one-paragraph plain-language summary", "recommendations": ["up to five concrete fixes, most impactful first"], "severity": "low" | "medium" | "high", "score": 0-100}

Base the severity and score on the impact levels present. Only respond with the JSON object.`

// claudeReport asks the model for a report over the raw prompt. Any
// failure returns an error so the pipeline can fall back to the
// heuristic; the user-facing path never sees a model error directly.
func (p *Pipeline) claudeReport(ctx context.Context, prompt string) (*audit.Report, error) {
	if p.client == nil {
		return nil, fmt.Errorf("model not configured")
	}

	message, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: reportSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("model call: %w", err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("empty model response")
	}

	return parseJSONReport(text.String())
}

// newClaudeClient returns nil when no API key is configured; the
// pipeline then runs heuristic-only.
func newClaudeClient(apiKey string) *anthropic.Client {
	if apiKey == "" {
		return nil
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &client
}
