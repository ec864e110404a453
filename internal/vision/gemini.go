package vision

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const geminiModel = "gemini-2.0-flash-001"

const describePrompt = `Describe the item in this photo for a lost-and-found
registry. Name the kind of item, its colour, brand or model if readable, and
any distinctive marks (stickers, scratches, engravings). Answer with a single
short paragraph of plain text, no lists and no speculation about the owner.`

// Gemini describes item photos with a Gemini vision model.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGemini(ctx context.Context, apiKey string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Gemini{
		client: client,
		model:  client.GenerativeModel(geminiModel),
	}, nil
}

func (g *Gemini) Describe(ctx context.Context, image []byte, mime string) (string, error) {
	resp, err := g.model.GenerateContent(ctx,
		genai.ImageData(imageFormat(mime), image),
		genai.Text(describePrompt),
	)
	if err != nil {
		return "", fmt.Errorf("describing image: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil ||
		len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from gemini")
	}
	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", fmt.Errorf("unexpected response type from gemini")
	}
	return strings.TrimSpace(string(text)), nil
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

// imageFormat maps a MIME type to the bare format name genai expects.
func imageFormat(mime string) string {
	return strings.TrimPrefix(mime, "image/")
}
