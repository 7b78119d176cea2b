package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/logicloom/pkg/ports"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// OpenAI talks to any OpenAI-compatible chat completion endpoint.
type OpenAI struct {
	api     *openai.Client
	limiter *rate.Limiter
}

// OpenAIOption configures an OpenAI client.
type OpenAIOption func(*OpenAI)

// WithRateLimit caps outbound requests per second. Zero or negative disables limiting.
func WithRateLimit(rps float64) OpenAIOption {
	return func(o *OpenAI) {
		if rps > 0 {
			burst := int(rps)
			if burst < 1 {
				burst = 1
			}
			o.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// NewOpenAI creates a client for apiKey. An empty baseURL keeps the library default.
func NewOpenAI(apiKey, baseURL string, opts ...OpenAIOption) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	o := &OpenAI{api: openai.NewClientWithConfig(cfg)}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Factory returns a registry factory binding this client to each model configuration.
func (o *OpenAI) Factory() Factory {
	return func(cfg ports.ModelConfig) (Model, error) {
		return &openAIModel{client: o, cfg: cfg}, nil
	}
}

func (o *OpenAI) wait(ctx context.Context) error {
	if o.limiter == nil {
		return nil
	}
	return o.limiter.Wait(ctx)
}

type openAIModel struct {
	client *OpenAI
	cfg    ports.ModelConfig
}

func (m *openAIModel) request(system, user string) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:       m.cfg.Model,
		Temperature: m.cfg.Temperature,
		MaxTokens:   m.cfg.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}
}

func (m *openAIModel) Complete(ctx context.Context, system, user string) (string, error) {
	if err := m.client.wait(ctx); err != nil {
		return "", err
	}
	resp, err := m.client.api.CreateChatCompletion(ctx, m.request(system, user))
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (m *openAIModel) Stream(ctx context.Context, system, user string, onFragment func(string) error) (string, error) {
	if err := m.client.wait(ctx); err != nil {
		return "", err
	}
	stream, err := m.client.api.CreateChatCompletionStream(ctx, m.request(system, user))
	if err != nil {
		return "", fmt.Errorf("chat completion stream: %w", err)
	}
	defer stream.Close()

	var full strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return full.String(), nil
		}
		if err != nil {
			return full.String(), fmt.Errorf("chat completion stream: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		fragment := resp.Choices[0].Delta.Content
		if fragment == "" {
			continue
		}
		full.WriteString(fragment)
		if err := onFragment(fragment); err != nil {
			return full.String(), err
		}
	}
}
