package convo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// OllamaClient talks to a local Ollama server's /api/chat endpoint.
// Responses are requested non-streaming; the whole reply arrives in one
// JSON document.
type OllamaClient struct {
	host   string
	client *http.Client
}

// NewOllamaClient takes the server base URL, e.g. http://127.0.0.1:11434.
// No request timeout is set on the underlying client; callers bound
// inference with the context instead.
func NewOllamaClient(host string) *OllamaClient {
	return &OllamaClient{
		host:   strings.TrimRight(host, "/"),
		client: &http.Client{},
	}
}

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []Message     `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Message Message `json:"message"`
	Error   string  `json:"error"`
}

func (c *OllamaClient) Chat(ctx context.Context, messages []Message, opts Options) (Message, error) {
	body, err := json.Marshal(ollamaChatRequest{
		Model:    opts.Model,
		Messages: messages,
		Stream:   false,
		Options: ollamaOptions{
			Temperature: opts.Temperature,
			NumPredict:  opts.MaxTokens,
		},
	})
	if err != nil {
		return Message{}, fmt.Errorf("encoding chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return Message{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Message{}, fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Message{}, fmt.Errorf("ollama returned %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}

	var out ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Message{}, fmt.Errorf("decoding chat response: %w", err)
	}
	if out.Error != "" {
		return Message{}, fmt.Errorf("ollama: %s", out.Error)
	}
	if out.Message.Role == "" {
		out.Message.Role = RoleAssistant
	}
	out.Message.Content = strings.TrimSpace(out.Message.Content)
	return out.Message, nil
}
