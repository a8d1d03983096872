// Package classifier talks to a local Ollama instance for the two-stage
// semantic match: a coarse plausibility score over label+definition, then a
// fine score with per-term-category evidence. Every failure degrades to a
// zero score so the lexical and rule scores still produce a ranking.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Options configures the Ollama connection.
type Options struct {
	BaseURL        string
	Model          string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	Retry          int
	SnippetChars   int
}

// Client is a thin Ollama HTTP client.
type Client struct {
	base    string
	model   string
	http    *http.Client
	connect time.Duration
	retry   int
	logger  *zap.Logger
}

func NewClient(opts Options, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		base:    strings.TrimRight(opts.BaseURL, "/"),
		model:   opts.Model,
		http:    &http.Client{Timeout: opts.ReadTimeout},
		connect: opts.ConnectTimeout,
		retry:   opts.Retry,
		logger:  logger,
	}
}

// Model returns the configured model name, used in cache keys.
func (c *Client) Model() string { return c.model }

// Available reports whether the Ollama endpoint answers at all.
func (c *Client) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.connect)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

type chatRequest struct {
	Model    string        `json:"model"`
	Stream   bool          `json:"stream"`
	Options  modelOptions  `json:"options"`
	Messages []chatMessage `json:"messages"`
}

type generateRequest struct {
	Model   string       `json:"model"`
	Prompt  string       `json:"prompt"`
	Stream  bool         `json:"stream"`
	Options modelOptions `json:"options"`
}

type modelOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Message  *chatMessage `json:"message,omitempty"`
	Response string       `json:"response,omitempty"`
}

// chat sends a system+user exchange and returns the raw completion text.
// Older Ollama builds lack /api/chat, so a 404 falls back to /api/generate
// with the two roles folded into one prompt.
func (c *Client) chat(ctx context.Context, system, user string, numPredict int) (string, error) {
	opts := modelOptions{Temperature: 0.2, NumPredict: numPredict}
	body, status, err := c.post(ctx, "/api/chat", chatRequest{
		Model:   c.model,
		Options: opts,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err == nil && status == http.StatusNotFound {
		prompt := fmt.Sprintf("### System\n%s\n\n### User\n%s\n", system, user)
		body, status, err = c.post(ctx, "/api/generate", generateRequest{
			Model: c.model, Prompt: prompt, Options: opts,
		})
	}
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("ollama returned status %d", status)
	}
	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode ollama response: %w", err)
	}
	if parsed.Message != nil {
		return parsed.Message.Content, nil
	}
	return parsed.Response, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, int, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(raw))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

// askJSON runs the exchange with retries and decodes the first JSON object
// found in the completion. Models often wrap the object in prose, so the
// text between the first "{" and the last "}" is tried before giving up.
func (c *Client) askJSON(ctx context.Context, system, user string, numPredict int, out any) error {
	var lastErr error
	for attempt := 0; attempt <= c.retry; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(300 * time.Millisecond * time.Duration(attempt)):
			}
		}
		txt, err := c.chat(ctx, system, user, numPredict)
		if err != nil {
			lastErr = err
			continue
		}
		if err := json.Unmarshal([]byte(extractJSON(txt)), out); err != nil {
			lastErr = fmt.Errorf("unparsable completion: %w", err)
			continue
		}
		return nil
	}
	return lastErr
}

func extractJSON(txt string) string {
	i := strings.Index(txt, "{")
	j := strings.LastIndex(txt, "}")
	if i >= 0 && j > i {
		return txt[i : j+1]
	}
	return txt
}
