package engine

import (
	"context"
	"fmt"

	"github.com/conneroisu/groq-go"
)

// GroqGenerator implements ContentClient using the Groq chat completion API.
type GroqGenerator struct {
	client             *groq.Client
	model              groq.ChatModel
	prompts            *Prompts
	maxTokens          int
	maxTranscriptRunes int
}

// NewGroqGenerator creates a Groq-backed content client. maxTokens is the
// completion ceiling; responses that hit it are flagged as truncated.
func NewGroqGenerator(apiKey, model string, p *Prompts, maxTokens, maxTranscriptRunes int) (*GroqGenerator, error) {
	client, err := groq.NewClient(apiKey)
	if err != nil {
		return nil, fmt.Errorf("create groq client: %w", err)
	}
	return &GroqGenerator{
		client:             client,
		model:              groq.ChatModel(model),
		prompts:            p,
		maxTokens:          maxTokens,
		maxTranscriptRunes: maxTranscriptRunes,
	}, nil
}

// Generate renders the task's instruction template and runs one chat
// completion. It returns raw text; parsing is the extractor's job.
func (g *GroqGenerator) Generate(ctx context.Context, contentType, transcript string, gc GenerationContext) (*GenerationResult, error) {
	prompt, err := g.prompts.RenderTask(contentType, TaskParams{
		Title:      gc.Title,
		Language:   gc.Language,
		Transcript: truncateRunes(transcript, g.maxTranscriptRunes),
	})
	if err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}

	resp, err := g.client.ChatCompletion(ctx, groq.ChatCompletionRequest{
		Model: g.model,
		Messages: []groq.ChatCompletionMessage{
			{Role: groq.RoleSystem, Content: g.prompts.System},
			{Role: groq.RoleUser, Content: prompt},
		},
		MaxTokens: g.maxTokens,
		ResponseFormat: &groq.ChatResponseFormat{
			Type: "json_object",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", contentType, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("generate %s: no response", contentType)
	}
	choice := resp.Choices[0]
	if choice.Message.Content == "" {
		return nil, fmt.Errorf("generate %s: empty response", contentType)
	}

	return &GenerationResult{
		Text:      choice.Message.Content,
		Truncated: string(choice.FinishReason) == "length",
	}, nil
}
