// Package provider wraps the OpenAI API behind a lazily initialized
// client. Initialization happens once, on first use: with a usable API
// key the client is built, otherwise the client stays in a sticky
// not-configured state that callers observe through [Client.Available]
// and [ErrNotConfigured]. The rest of the system decides how to degrade;
// this package only reports.
package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/eloquentai/finchat/internal/log"
)

// placeholderKey is the dummy key shipped in example configuration.
// A client configured with it counts as not configured.
const placeholderKey = "sk-your-openai-api-key-here"

// Sentinel errors distinguishing configuration problems from upstream
// call failures.
var (
	// ErrNotConfigured indicates the API key is missing or the
	// placeholder value. The condition is permanent for the lifetime
	// of the client.
	ErrNotConfigured = errors.New("openai api key not configured")

	// ErrEmptyCompletion indicates the model returned no choices.
	ErrEmptyCompletion = errors.New("completion returned no choices")
)

// Message is a chat message sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Config carries the provider settings.
type Config struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	EmbeddingModel string
}

// Client is a lazily initialized OpenAI client. All methods are safe
// for concurrent use.
type Client struct {
	cfg    Config
	logger log.Logger

	once    sync.Once
	client  *openai.Client
	initErr error
}

// New creates a Client. No connection is made and no key validation
// happens until the first call.
func New(cfg Config, logger log.Logger) *Client {
	if cfg.ChatModel == "" {
		cfg.ChatModel = openai.GPT3Dot5Turbo
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = string(openai.AdaEmbeddingV2)
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Client{cfg: cfg, logger: logger}
}

// init builds the underlying client exactly once. The outcome, ready
// or ErrNotConfigured, is memoized for every later call.
func (c *Client) init() error {
	c.once.Do(func() {
		if c.cfg.APIKey == "" || c.cfg.APIKey == placeholderKey {
			c.initErr = ErrNotConfigured
			c.logger.Warn("openai api key missing or placeholder, model calls disabled")
			return
		}

		conf := openai.DefaultConfig(c.cfg.APIKey)
		if c.cfg.BaseURL != "" {
			conf.BaseURL = c.cfg.BaseURL
		}
		c.client = openai.NewClientWithConfig(conf)
		c.logger.Info("openai client initialized",
			"chat_model", c.cfg.ChatModel,
			"embedding_model", c.cfg.EmbeddingModel)
	})
	return c.initErr
}

// Available reports whether the client is configured for model calls.
func (c *Client) Available() bool {
	return c.init() == nil
}

// ChatModel returns the model used for completions.
func (c *Client) ChatModel() string {
	return c.cfg.ChatModel
}

// Complete requests a chat completion with the configured model.
func (c *Client) Complete(ctx context.Context, messages []Message, maxTokens int, temperature float32) (string, error) {
	if err := c.init(); err != nil {
		return "", err
	}

	reqMsgs := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		reqMsgs[i] = openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.ChatModel,
		Messages:    reqMsgs,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

// Embed generates a vector embedding for the text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := c.init(); err != nil {
		return nil, err
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.cfg.EmbeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding returned")
	}
	return resp.Data[0].Embedding, nil
}
