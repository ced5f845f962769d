package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"answer-orchestrator/internal/domain"
)

const generationTemperature = 0.2

const answerSystemPrompt = "You are a helpful assistant that answers questions using only the provided sources. " +
	"If the sources do not contain the answer, say so. " +
	"Cite sources as [Source N] where relevant."

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// Generator implements domain.Generator via Ollama's chat endpoint.
type Generator struct {
	BaseURL string
	Model   string
	Client  *http.Client
}

func NewGenerator(baseURL, model string, timeout time.Duration, client ...*http.Client) *Generator {
	var c *http.Client
	if len(client) > 0 && client[0] != nil {
		c = client[0]
	} else {
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		c = &http.Client{Timeout: timeout}
	}
	return &Generator{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		Client:  c,
	}
}

// Generate builds a grounded prompt from the ranked passages and returns the
// assistant message.
func (g *Generator) Generate(ctx context.Context, query string, passages []string) (string, error) {
	reqBody := chatRequest{
		Model: g.Model,
		Messages: []chatMessage{
			{Role: "system", Content: answerSystemPrompt},
			{Role: "user", Content: buildAnswerPrompt(query, passages)},
		},
		Stream: false,
		Options: map[string]any{
			"temperature": generationTemperature,
		},
	}

	jsonPayload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	url := fmt.Sprintf("%s/api/chat", g.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonPayload))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call generation endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("generation endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode generation response: %w", err)
	}

	return strings.TrimSpace(chatResp.Message.Content), nil
}

// buildAnswerPrompt numbers each passage so citations in the answer can point
// back at a specific source. Passage order follows the final ranking.
func buildAnswerPrompt(query string, passages []string) string {
	var b strings.Builder
	b.WriteString("Answer the question using the sources below.\n\nSources:\n")
	for i, passage := range passages {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		fmt.Fprintf(&b, "[Source %d] %s", i+1, passage)
	}
	b.WriteString("\n\nQuestion: ")
	b.WriteString(query)
	return b.String()
}

// Version returns the wrapped model name.
func (g *Generator) Version() string {
	return g.Model
}

func (g *Generator) Close(_ context.Context) error {
	g.Client.CloseIdleConnections()
	return nil
}

var _ domain.Generator = (*Generator)(nil)
