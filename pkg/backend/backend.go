package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultURL      = "http://localhost:8000"
	DefaultDuration = 30
)

type Config struct {
	URL string
	// Duration in seconds requested for generated music.
	Duration int
	Client   *http.Client
	Debug    bool
}

// Client talks to the music and vocal services. Every call issues exactly
// one request; there are no retries.
type Client struct {
	url      string
	duration int
	client   *http.Client
	debug    bool
}

func New(cfg *Config) *Client {
	u := strings.TrimSuffix(cfg.URL, "/")
	if u == "" {
		u = DefaultURL
	}
	duration := cfg.Duration
	if duration <= 0 {
		duration = DefaultDuration
	}
	client := cfg.Client
	if client == nil {
		// Requests have no hard timeout, cold starts can take a minute.
		client = &http.Client{}
	}
	return &Client{
		url:      u,
		duration: duration,
		client:   client,
		debug:    cfg.Debug,
	}
}

func (c *Client) log(format string, args ...any) {
	if c.debug {
		format += "\n"
		log.Printf(format, args...)
	}
}

// URL returns the base address of the backend.
func (c *Client) URL() string {
	return c.url
}

// IsLocal reports whether the backend runs on a local address.
func (c *Client) IsLocal() bool {
	return IsLocalURL(c.url)
}

// Health checks that the backend is up.
func (c *Client) Health(ctx context.Context) (*StatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.url+"/", nil)
	if err != nil {
		return nil, fmt.Errorf("backend: couldn't create request: %w", err)
	}
	var out StatusResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateMusic asks the backend for a track for the lyrics.
func (c *Client) GenerateMusic(ctx context.Context, lyrics, genre string) (*MusicResponse, error) {
	body, err := json.Marshal(&MusicRequest{
		Lyrics:   lyrics,
		Genre:    genre,
		Duration: c.duration,
	})
	if err != nil {
		return nil, fmt.Errorf("backend: couldn't marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.url+"/generate-music", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("backend: couldn't create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	var out MusicResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	if out.URL == "" {
		return nil, &StatusError{Code: http.StatusOK, Message: unexpectedResponse}
	}
	return &out, nil
}

// ConvertVocals uploads an audio file to be sung with the target voice.
func (c *Client) ConvertVocals(ctx context.Context, name string, r io.Reader, voice string) (*VocalResponse, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("backend: couldn't create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("backend: couldn't read %s: %w", name, err)
	}
	if err := w.WriteField("target_voice", voice); err != nil {
		return nil, fmt.Errorf("backend: couldn't write field: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("backend: couldn't close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url+"/convert-vocals", &buf)
	if err != nil {
		return nil, fmt.Errorf("backend: couldn't create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	var out VocalResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, &StatusError{Code: http.StatusOK, Message: unexpectedResponse}
	}
	return &out, nil
}

func (c *Client) do(req *http.Request, out any) error {
	start := time.Now()
	c.log("backend: do %s %s", req.Method, req.URL)
	resp, err := c.client.Do(req)
	if err != nil {
		return &TransportError{Method: req.Method, URL: req.URL.String(), Err: err}
	}
	defer resp.Body.Close()
	c.log("backend: response %s %s %d (%s)", req.Method, req.URL.Path, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, Message: ExtractErrorMessage(resp)}
	}
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Method: req.Method, URL: req.URL.String(), Err: err}
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		c.log("backend: couldn't unmarshal response body (%T): %v", out, err)
		return &StatusError{Code: resp.StatusCode, Message: unexpectedResponse}
	}
	return nil
}
