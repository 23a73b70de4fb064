package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"docsage/internal/service"
)

// Client is a client for an OpenAI-compatible chat completions API.
// The provider may answer with a single JSON object or with a Server-Sent
// Events stream; both transports produce the same final completion text.
type Client struct {
	BaseURL string
	APIKey  string
	Model   string
	client  *http.Client
}

// NewClient creates a new LLM client.
func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		client:  http.DefaultClient,
	}
}

// Message represents a single role-tagged message in a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatParams holds per-request generation parameters.
// Zero values fall back to the client defaults.
type ChatParams struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// chatRequest represents the request payload for chat completions.
type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

// chatResponse represents a non-streaming chat completions response.
type chatResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Complete sends a chat completion request and returns the full completion
// text, regardless of whether the provider answered with a JSON object or
// an event stream. Fragments of a streamed response are concatenated in
// arrival order.
//
// Error kinds: service.ErrUnauthorized for a rejected credential,
// service.ErrEmptyCompletion for a completion with no content, and
// service.ErrProvider for transport or protocol failures.
func (c *Client) Complete(ctx context.Context, messages []Message, params ChatParams) (string, error) {
	url := fmt.Sprintf("%s/v1/chat/completions", c.BaseURL)

	model := params.Model
	if model == "" {
		model = c.Model
	}

	payload := chatRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: failed to marshal request: %w", service.ErrProvider, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %w", service.ErrProvider, err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.APIKey))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: failed to send request: %w", service.ErrProvider, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusUnauthorized {
		return "", fmt.Errorf("%w: generation provider rejected credentials", service.ErrUnauthorized)
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: bad status %d: %s", service.ErrProvider, resp.StatusCode, string(raw))
	}

	// Both transports are consumed through the same fragment abstraction;
	// the Content-Type header decides which producer parses the body.
	var stream fragmentStream
	if strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream") {
		stream = newSSEFragments(resp.Body)
	} else {
		stream = newJSONFragments(resp.Body)
	}

	var builder strings.Builder
	for {
		fragment, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: failed to read completion: %w", service.ErrProvider, err)
		}
		builder.WriteString(fragment)
	}

	completion := strings.TrimSpace(builder.String())
	if completion == "" {
		return "", fmt.Errorf("%w: provider returned no content", service.ErrEmptyCompletion)
	}

	return completion, nil
}

// fragmentStream yields completion text fragments in arrival order.
// Next returns io.EOF when the stream is exhausted.
type fragmentStream interface {
	Next() (string, error)
}

// jsonFragments produces a single fragment from a full JSON response body.
type jsonFragments struct {
	body io.Reader
	done bool
}

func newJSONFragments(body io.Reader) *jsonFragments {
	return &jsonFragments{body: body}
}

func (f *jsonFragments) Next() (string, error) {
	if f.done {
		return "", io.EOF
	}
	f.done = true

	var resp chatResponse
	if err := json.NewDecoder(f.body).Decode(&resp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// sseFragments produces fragments from a Server-Sent Events body.
// It accepts both delta-style events (choices[0].delta.content) and
// full-message events (choices[0].message.content), ending at the
// [DONE] sentinel or a finish reason.
type sseFragments struct {
	scanner  *bufio.Scanner
	finished bool
}

func newSSEFragments(body io.Reader) *sseFragments {
	return &sseFragments{scanner: bufio.NewScanner(body)}
}

func (f *sseFragments) Next() (string, error) {
	const dataPrefix = "data: "
	const doneSentinel = "[DONE]"

	if f.finished {
		return "", io.EOF
	}

	for f.scanner.Scan() {
		line := f.scanner.Text()
		if line == "" || !strings.HasPrefix(line, dataPrefix) {
			continue
		}

		data := strings.TrimPrefix(line, dataPrefix)
		if data == doneSentinel {
			f.finished = true
			return "", io.EOF
		}

		var event struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
				FinishReason string `json:"finish_reason"`
			} `json:"choices"`
		}

		if err := json.Unmarshal([]byte(data), &event); err != nil {
			// Skip malformed JSON chunks
			continue
		}

		if len(event.Choices) == 0 {
			continue
		}

		choice := event.Choices[0]
		if choice.FinishReason != "" {
			f.finished = true
		}

		fragment := choice.Delta.Content
		if fragment == "" {
			fragment = choice.Message.Content
		}
		if fragment != "" {
			return fragment, nil
		}
		if f.finished {
			return "", io.EOF
		}
	}

	f.finished = true
	if err := f.scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read stream: %w", err)
	}
	return "", io.EOF
}
