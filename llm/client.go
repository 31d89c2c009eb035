package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/lexflow/config"
	"github.com/BaSui01/lexflow/types"
)

const completionsPath = "/v1/chat/completions"

// Client calls an OpenAI-compatible chat completions endpoint. It satisfies
// the planner's CompletionClient.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	logger  *zap.Logger
}

// NewClient builds a completion client from config.
func NewClient(cfg config.LLMConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With(zap.String("component", "llm_client")),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends a single-turn prompt and returns the model's reply text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", types.NewError(types.ErrProviderUnavailable, "llm api key not configured")
	}

	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	var resp chatResponse
	if err := c.post(ctx, c.baseURL+completionsPath, body, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", types.NewError(types.ErrProviderUnavailable, resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", types.NewError(types.ErrProviderUnavailable, "completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// post sends an authenticated JSON request and decodes the response into out.
// 5xx and 429 statuses come back retryable.
func (c *Client) post(ctx context.Context, url string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build llm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	httpResp, err := c.client.Do(req)
	if err != nil {
		return types.NewError(types.ErrProviderUnavailable, "llm endpoint unreachable").
			WithCause(err).WithRetryable(true)
	}
	defer httpResp.Body.Close()

	c.logger.Debug("llm call",
		zap.String("url", url),
		zap.Int("status", httpResp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if httpResp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(httpResp.Body, 4096))
		retryable := httpResp.StatusCode >= 500 || httpResp.StatusCode == http.StatusTooManyRequests
		return types.NewError(types.ErrProviderUnavailable,
			fmt.Sprintf("llm endpoint returned %d: %s", httpResp.StatusCode, types.TruncateText(string(data), 200))).
			WithRetryable(retryable)
	}
	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode llm response: %w", err)
	}
	return nil
}
