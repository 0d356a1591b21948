// Package ollama provides a model.TextStreamModel backed by the Ollama chat
// API (/api/chat). Streaming replies are read as newline-delimited JSON.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hupe1980/dreamer/model"
)

// DefaultBaseURL is the address of a local Ollama server.
const DefaultBaseURL = "http://localhost:11434"

// Options configure the Ollama model adapter.
type Options struct {
	Model   string
	BaseURL string

	// Temperature, MaxTokens (num_predict) and Seed are sent as model
	// options when non-zero.
	Temperature float64
	MaxTokens   int
	Seed        int
	Stop        []string

	HTTPClient *http.Client
}

// Model talks to an Ollama server over HTTP.
type Model struct {
	client *http.Client
	opts   Options
}

var _ model.TextStreamModel = (*Model)(nil)

// NewModel creates an Ollama model. Defaults target llama3.1 on a local
// server.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:       "llama3.1",
		BaseURL:     DefaultBaseURL,
		Temperature: 0.7,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	return &Model{client: client, opts: opts}
}

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
	Model   string      `json:"model"`
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error,omitempty"`
}

// Prompt implements model.TextModel.
func (m *Model) Prompt(ctx context.Context, p model.Prompt) (string, error) {
	resp, err := m.do(ctx, p, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode ollama response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("ollama error: %s", out.Error)
	}
	return out.Message.Content, nil
}

// PromptStream implements model.TextStreamModel.
func (m *Model) PromptStream(ctx context.Context, p model.Prompt) (<-chan string, <-chan error) {
	out := make(chan string, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		resp, err := m.do(ctx, p, true)
		if err != nil {
			errCh <- err
			return
		}
		defer resp.Body.Close()

		reader := bufio.NewReader(resp.Body)
		for {
			line, err := reader.ReadBytes('\n')
			if len(bytes.TrimSpace(line)) > 0 {
				var event chatResponse
				if jsonErr := json.Unmarshal(line, &event); jsonErr != nil {
					errCh <- fmt.Errorf("failed to decode ollama stream chunk: %w", jsonErr)
					return
				}
				if event.Error != "" {
					errCh <- fmt.Errorf("ollama error: %s", event.Error)
					return
				}
				if event.Message.Content != "" {
					select {
					case <-ctx.Done():
						errCh <- ctx.Err()
						return
					case out <- event.Message.Content:
					}
				}
				if event.Done {
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					errCh <- fmt.Errorf("ollama stream: %w", err)
				}
				return
			}
		}
	}()

	return out, errCh
}

// Info returns metadata describing this Ollama model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:              m.opts.Model,
		Provider:          "ollama",
		SupportsStreaming: true,
	}
}

func (m *Model) do(ctx context.Context, p model.Prompt, stream bool) (*http.Response, error) {
	body, err := json.Marshal(m.buildRequest(p, stream))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.opts.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama api call failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ollama api returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return resp, nil
}

func (m *Model) buildRequest(p model.Prompt, stream bool) chatRequest {
	req := chatRequest{
		Model:    m.opts.Model,
		Messages: make([]chatMessage, 0, p.Len()),
		Stream:   stream,
	}
	for _, msg := range p.Messages {
		req.Messages = append(req.Messages, chatMessage{Role: string(msg.Role), Content: msg.Content})
	}

	options := map[string]any{}
	if m.opts.Temperature != 0 {
		options["temperature"] = m.opts.Temperature
	}
	if m.opts.MaxTokens > 0 {
		options["num_predict"] = m.opts.MaxTokens
	}
	if m.opts.Seed != 0 {
		options["seed"] = m.opts.Seed
	}
	if len(m.opts.Stop) > 0 {
		options["stop"] = m.opts.Stop
	}
	if len(options) > 0 {
		req.Options = options
	}
	return req
}
