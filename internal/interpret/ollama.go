package interpret

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Ollama implements the Interpreter and ImageExtractor interfaces against a
// local Ollama server. Text interpretation works with any instruct model;
// image extraction needs a vision model such as llava or qwen2-vl.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllama creates a new Ollama instance
func NewOllama(baseURL string, modelName string) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if modelName == "" {
		modelName = "llama3.1"
	}

	return &Ollama{
		baseURL: baseURL,
		model:   modelName,
		client: &http.Client{
			// Local models can be slow, especially vision ones
			Timeout: 120 * time.Second,
		},
	}, nil
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// chat sends one user message to the chat API and returns the response text
func (o *Ollama) chat(ctx context.Context, prompt string, images []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 120*time.Second)
	defer cancel()

	reqBody := ollamaChatRequest{
		Model:  o.model,
		Stream: false,
		Messages: []ollamaMessage{
			{
				Role:    "system",
				Content: "You are a household ledger assistant. You respond with strict JSON only.",
			},
			{
				Role:    "user",
				Content: prompt,
				Images:  images,
			},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/api/chat", o.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling ollama API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, string(body))
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	return strings.TrimSpace(chatResp.Message.Content), nil
}

// InterpretEntries extracts ledger entry drafts from free-form text
func (o *Ollama) InterpretEntries(ctx context.Context, text string) ([]EntryData, error) {
	response, err := o.chat(ctx, entriesPrompt+text, nil)
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
func (o *Ollama) InterpretRecurring(ctx context.Context, text string) (*RecurringData, error) {
	response, err := o.chat(ctx, recurringPrompt+text, nil)
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
func (o *Ollama) ExtractEntries(imageData []byte, contentType string) ([]EntryData, error) {
	pngData, err := normalizeToPNG(imageData, contentType)
	if err != nil {
		return nil, err
	}

	imageBase64 := base64.StdEncoding.EncodeToString(pngData)
	response, err := o.chat(context.Background(), imagePrompt, []string{imageBase64})
	if err != nil {
		return nil, err
	}

	items, err := parseEntriesJSON(response, time.Now())
	if err != nil {
		return nil, fmt.Errorf("parsing image response: %w", err)
	}
	return items, nil
}

// Close closes the Ollama client (no-op for HTTP client)
func (o *Ollama) Close() error {
	return nil
}
