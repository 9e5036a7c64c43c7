package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
)

// OpenAIConfig configures a transport for any OpenAI-compatible
// chat-completions endpoint, OpenRouter included.
type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Referer string
	Title   string
}

type openAITransport struct {
	client *resty.Client
}

// NewOpenAITransport posts to {BaseURL}/chat/completions. Retries are left to
// the Gateway, so resty's own retry support stays disabled.
func NewOpenAITransport(cfg OpenAIConfig) Transport {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	if cfg.Referer != "" {
		client.SetHeader("HTTP-Referer", cfg.Referer)
	}
	if cfg.Title != "" {
		client.SetHeader("X-Title", cfg.Title)
	}
	return &openAITransport{client: client}
}

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (t *openAITransport) Complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	body := chatCompletionRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	var out chatCompletionResponse
	var apiErr apiErrorResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&apiErr).
		Post("/chat/completions")
	if err != nil {
		// Network failures, resets and context deadlines.
		return nil, &TransportError{Transient: true, Err: err}
	}

	if resp.IsError() {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = resp.Status()
		}
		return nil, &TransportError{
			StatusCode: resp.StatusCode(),
			Transient:  StatusTransient(resp.StatusCode()),
			Err:        errors.New(msg),
		}
	}

	if len(out.Choices) == 0 {
		return nil, &TransportError{StatusCode: resp.StatusCode(), Err: fmt.Errorf("response has no choices")}
	}
	return &ChatResponse{Text: out.Choices[0].Message.Content, Model: out.Model}, nil
}
