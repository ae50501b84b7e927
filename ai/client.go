// Package ai asks an OpenAI-compatible chat completions gateway for a reply
// suggestion to a lead.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	tekio "github.com/tekio-be/leads"
	"github.com/tekio-be/leads/metrics"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://ai.gateway.lovable.dev/v1"
	DefaultModel   = "google/gemini-2.5-flash"
)

// Kind classifies a generation failure.
type Kind string

const (
	KindRateLimited    Kind = "rate_limited"
	KindQuotaExhausted Kind = "quota_exhausted"
	KindGeneric        Kind = "generic_failure"
)

// Error is a classified generation failure. A rate_limited error means the
// caller may try again later.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or KindGeneric when err is not an *Error.
func KindOf(err error) Kind {
	var aerr *Error
	if errors.As(err, &aerr) {
		return aerr.Kind
	}
	return KindGeneric
}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type Client struct {
	apiKey string
	model  string
	http   *resty.Client
	log    *zap.SugaredLogger
}

func NewClient(cfg Config, log *zap.SugaredLogger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		http:   client,
		log:    log,
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
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// GenerateReply returns the generated text verbatim. The summary, plan and email
// sections are not parsed.
func (c *Client) GenerateReply(ctx context.Context, lead tekio.Lead) (string, error) {
	reply, err := c.generate(ctx, lead)
	if err != nil {
		metrics.RecordGeneration(string(KindOf(err)))
		c.log.Errorw("GenerateReply", "lead_id", lead.ID, "kind", KindOf(err), "error", err.Error())
		return "", err
	}

	metrics.RecordGeneration("ok")
	c.log.Infow("GenerateReply", "status", "reply generated", "lead_id", lead.ID)
	return reply, nil
}

func (c *Client) generate(ctx context.Context, lead tekio.Lead) (string, error) {
	if c.apiKey == "" {
		return "", &Error{Kind: KindGeneric, Message: "AI API key is not configured"}
	}

	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(lead)},
		},
	}

	var result chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.apiKey).
		SetBody(req).
		SetResult(&result).
		Post("/chat/completions")
	if err != nil {
		return "", &Error{Kind: KindGeneric, Message: "AI gateway unreachable", Err: err}
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusTooManyRequests:
		return "", &Error{Kind: KindRateLimited, Message: "Rate limit exceeded. Please try again later."}
	case code == http.StatusPaymentRequired:
		return "", &Error{Kind: KindQuotaExhausted, Message: "AI credits exhausted. Please add credits to continue."}
	case code < 200 || code > 299:
		return "", &Error{Kind: KindGeneric, Message: fmt.Sprintf("AI gateway error: %d", code)}
	}

	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return "", &Error{Kind: KindGeneric, Message: "AI gateway returned no content"}
	}

	return result.Choices[0].Message.Content, nil
}
