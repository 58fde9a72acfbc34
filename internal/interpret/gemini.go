package interpret

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini implements the Interpreter and ImageExtractor interfaces using
// Google Gemini
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini instance
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

// generate sends the parts to the model and returns the concatenated text
// response. The call is bounded by a timeout so a slow backend never blocks
// the caller indefinitely.
func (g *Gemini) generate(ctx context.Context, parts ...genai.Part) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from gemini")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	return strings.TrimSpace(text.String()), nil
}

// InterpretEntries extracts ledger entry drafts from free-form text
func (g *Gemini) InterpretEntries(ctx context.Context, text string) ([]EntryData, error) {
	response, err := g.generate(ctx, genai.Text(entriesPrompt+text))
	if err != nil {
		return nil, err
	}

	items, err := parseEntriesJSON(response, time.Now())
	if err != nil {
		return nil, fmt.Errorf("parsing entries response: %w", err)
	}
	return items, nil
}

// InterpretRecurring extracts a recurring definition draft from free-form text
func (g *Gemini) InterpretRecurring(ctx context.Context, text string) (*RecurringData, error) {
	response, err := g.generate(ctx, genai.Text(recurringPrompt+text))
	if err != nil {
		return nil, err
	}

	data, err := parseRecurringJSON(response, time.Now())
	if err != nil {
		return nil, fmt.Errorf("parsing recurring response: %w", err)
	}
	return data, nil
}

// ExtractEntries extracts ledger entry drafts from a receipt image or PDF
func (g *Gemini) ExtractEntries(imageData []byte, contentType string) ([]EntryData, error) {
	// Normalize to PNG first; genai.ImageData expects just the format suffix
	pngData, err := normalizeToPNG(imageData, contentType)
	if err != nil {
		return nil, err
	}

	response, err := g.generate(context.Background(),
		genai.ImageData("png", pngData),
		genai.Text(imagePrompt),
	)
	if err != nil {
		return nil, err
	}

	items, err := parseEntriesJSON(response, time.Now())
	if err != nil {
		return nil, fmt.Errorf("parsing image response: %w", err)
	}
	return items, nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
