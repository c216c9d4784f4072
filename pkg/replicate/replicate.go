package replicate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	replicatego "github.com/replicate/replicate-go"
)

// MusicGenModel is Meta's MusicGen model.
const MusicGenModel = "meta/musicgen:671ac645ce5e552cc63a54a2bb959550fea9bd976194843d75cd2d12337499d7"

// APIError is an error reported by the replicate API.
type APIError = replicatego.APIError

type Config struct {
	Token   string
	BaseURL string
	Client  *http.Client
	Debug   bool
}

type Client struct {
	client *replicatego.Client
	debug  bool
}

func New(cfg *Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, errors.New("replicate: token is empty")
	}
	httpClient := cfg.Client
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 2 * time.Minute,
		}
	}
	opts := []replicatego.ClientOption{
		replicatego.WithToken(cfg.Token),
		replicatego.WithHTTPClient(httpClient),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, replicatego.WithBaseURL(cfg.BaseURL))
	}
	client, err := replicatego.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("replicate: couldn't create client: %w", err)
	}
	return &Client{
		client: client,
		debug:  cfg.Debug,
	}, nil
}

func (c *Client) log(format string, args ...any) {
	if c.debug {
		format += "\n"
		log.Printf(format, args...)
	}
}

// MusicGen generates a track for the prompt and returns its address.
func (c *Client) MusicGen(ctx context.Context, prompt string, duration int) (string, error) {
	input := replicatego.PredictionInput{
		"prompt":                 prompt,
		"duration":               duration,
		"model_version":          "stereo-large",
		"output_format":          "mp3",
		"normalization_strategy": "peak",
	}
	c.log("replicate: running %s %v", MusicGenModel, input)
	output, err := c.client.Run(ctx, MusicGenModel, input, nil)
	if err != nil {
		return "", err
	}
	c.log("replicate: output %v", output)
	return outputURL(output)
}

// outputURL returns the address of an output that is either a string or a
// list of strings.
func outputURL(output replicatego.PredictionOutput) (string, error) {
	switch v := output.(type) {
	case string:
		if v != "" {
			return v, nil
		}
	case []any:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok && s != "" {
				return s, nil
			}
		}
	case []string:
		if len(v) > 0 && v[0] != "" {
			return v[0], nil
		}
	}
	return "", fmt.Errorf("replicate: unexpected output %v", output)
}
