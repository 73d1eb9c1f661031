package ai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/felixlab/polysin/core"
)

// Config holds the oracle model parameters. Endpoint, credentials and
// model id are opaque configuration; nothing in the core depends on
// their values.
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
}

// DefaultConfig returns the standard oracle configuration.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:      apiKey,
		Model:       openai.GPT4oMini,
		MaxTokens:   4096,
		Temperature: 0.3,
	}
}

// OpenAIOracle is the production Oracle backed by the OpenAI chat API.
type OpenAIOracle struct {
	client *openai.Client
	config Config
}

// NewOpenAIOracle builds an oracle from the given configuration.
func NewOpenAIOracle(config Config) (*OpenAIOracle, error) {
	if config.APIKey == "" {
		return nil, errors.New("oracle API key is not set")
	}
	if config.Model == "" {
		config.Model = openai.GPT4oMini
	}
	return &OpenAIOracle{
		client: openai.NewClient(config.APIKey),
		config: config,
	}, nil
}

// Analyze sends one classification request and parses the reply. The
// call is made exactly once; retry policy belongs to the caller's
// transport contract, not here.
func (o *OpenAIOracle) Analyze(ctx context.Context, digest string, answers []core.AnswerRecord) (*Response, error) {
	prompt, err := buildPrompt(digest, answers)
	if err != nil {
		return nil, err
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   o.config.MaxTokens,
		Temperature: o.config.Temperature,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", core.ErrOracleTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", core.ErrOracleFailed, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", core.ErrMalformedResponse)
	}

	return ParseResponse(resp.Choices[0].Message.Content)
}
