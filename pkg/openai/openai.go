package openai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/igolaizola/sonicforge/pkg/lyrics"
	"github.com/sashabaranov/go-openai"
)

const DefaultModel = "gpt-4o-mini"

type Config struct {
	Token   string
	Model   string
	BaseURL string
	Client  *http.Client
	Debug   bool
}

type Client struct {
	client *openai.Client
	model  string
	debug  bool
}

func New(cfg *Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, errors.New("openai: token is empty")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	c := openai.DefaultConfig(cfg.Token)
	if cfg.BaseURL != "" {
		c.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	c.HTTPClient = cfg.Client
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{
			Timeout: 2 * time.Minute,
		}
	}
	return &Client{
		client: openai.NewClientWithConfig(c),
		model:  model,
		debug:  cfg.Debug,
	}, nil
}

func (c *Client) log(format string, args ...any) {
	if c.debug {
		format += "\n"
		log.Printf(format, args...)
	}
}

const systemPrompt = `You are a songwriter. Answer only with a JSON object with the keys %s.
Every value is a string. "style" is a brief description of the musical style/mood.`

// Generate implements lyrics.Generator using a JSON object response.
func (c *Client) Generate(ctx context.Context, useCase, genre string) (*lyrics.Lyrics, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf(systemPrompt, strings.Join(lyrics.Fields, ", ")),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: lyrics.Prompt(useCase, genre),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
	start := time.Now()
	c.log("openai: chat completion (model %s)", c.model)
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai: couldn't create chat completion: %w", err)
	}
	c.log("openai: response received in %s", time.Since(start))
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai: no choices in response")
	}
	return lyrics.Decode(resp.Choices[0].Message.Content)
}
