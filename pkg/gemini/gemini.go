package gemini

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/igolaizola/sonicforge/pkg/lyrics"
	"google.golang.org/genai"
)

const DefaultModel = "gemini-3-flash-preview"

type Config struct {
	Key    string
	Model  string
	Client *http.Client
	Debug  bool
}

type Client struct {
	client *genai.Client
	model  string
	debug  bool
}

func New(ctx context.Context, cfg *Config) (*Client, error) {
	if cfg.Key == "" {
		return nil, errors.New("gemini: api key is empty")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	httpClient := cfg.Client
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 2 * time.Minute,
		}
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.Key,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: couldn't create client: %w", err)
	}
	return &Client{
		client: client,
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

// Generate implements lyrics.Generator using a structured JSON response.
func (c *Client) Generate(ctx context.Context, useCase, genre string) (*lyrics.Lyrics, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: lyrics.Prompt(useCase, genre)}},
		},
	}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema(),
	}

	start := time.Now()
	c.log("gemini: generate content (model %s)", c.model)
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini: couldn't generate content: %w", err)
	}
	c.log("gemini: response received in %s", time.Since(start))

	text, err := responseText(resp)
	if err != nil {
		return nil, err
	}
	return lyrics.Decode(text)
}

func responseSchema() *genai.Schema {
	props := map[string]*genai.Schema{}
	for _, f := range lyrics.Fields {
		props[f] = &genai.Schema{
			Type:        genai.TypeString,
			Description: lyrics.FieldDescriptions[f],
		}
	}
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: props,
		Required:   lyrics.Fields,
	}
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("gemini: no candidates in response")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", errors.New("gemini: no parts in response")
	}
	var text string
	for _, p := range candidate.Content.Parts {
		text += p.Text
	}
	if text == "" {
		return "", errors.New("gemini: no response text")
	}
	return text, nil
}
