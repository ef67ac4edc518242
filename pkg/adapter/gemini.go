package adapter

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

// Narrator turns a memory title into a short spoken-style introduction
type Narrator interface {
	Narrate(ctx context.Context, title string) (string, error)
}

const narrationPrompt = "You are an AR narrator. Given a short note title, craft a creative one or two sentence voiceover that invites curiosity. Keep it friendly and vivid. Title: "

type GeminiNarrator struct {
	client *genai.Client
	model  string
}

type GeminiOption func(*GeminiNarrator)

func WithGenerativeModel(model string) GeminiOption {
	return func(g *GeminiNarrator) {
		g.model = model
	}
}

// GeminiConfig selects the backend. APIKey takes precedence over Vertex AI
// project and location.
type GeminiConfig struct {
	APIKey   string
	Project  string
	Location string
}

func NewGeminiNarrator(ctx context.Context, cfg GeminiConfig, opts ...GeminiOption) (*GeminiNarrator, error) {
	cc := &genai.ClientConfig{
		Project:  cfg.Project,
		Location: cfg.Location,
		Backend:  genai.BackendVertexAI,
	}
	if cfg.APIKey != "" {
		cc = &genai.ClientConfig{
			APIKey:  cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create genai client")
	}

	g := &GeminiNarrator{
		client: client,
		model:  "gemini-2.5-flash",
	}

	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

func (g *GeminiNarrator) Narrate(ctx context.Context, title string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(narrationPrompt+title), nil)
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate narration", goerr.V("title", title))
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", goerr.New("empty narration response", goerr.V("title", title))
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", goerr.New("empty narration text", goerr.V("title", title))
	}
	return text, nil
}
