package music

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/igolaizola/sonicforge/pkg/backend"
	"github.com/igolaizola/sonicforge/pkg/lyrics"
	"github.com/oklog/ulid/v2"
)

type Status string

const (
	Processing Status = "processing"
	Completed  Status = "completed"
	Failed     Status = "failed"
)

const (
	PlaceholderURL       = "https://www.soundhelix.com/examples/mp3/SoundHelix-Song-1.mp3"
	DemoDuration         = 120
	DefaultFallbackDelay = 2 * time.Second
)

var (
	ErrBusy     = errors.New("music: generation already in progress")
	ErrNoLyrics = errors.New("music: no confirmed lyrics")
	ErrNoSong   = errors.New("music: no song generated")
)

type Song struct {
	ID       string  `json:"id"`
	Title    string  `json:"title,omitempty"`
	Style    string  `json:"style,omitempty"`
	URL      string  `json:"url"`
	Status   Status  `json:"status"`
	Duration float64 `json:"duration"`
	IsDemo   bool    `json:"is_demo,omitempty"`
}

// Service is the remote music synthesis service.
type Service interface {
	GenerateMusic(ctx context.Context, lyrics, genre string) (*backend.MusicResponse, error)
	URL() string
}

type Config struct {
	Service       Service
	Fallback      backend.Fallback
	FallbackDelay time.Duration
	Debug         bool
}

// Orchestrator turns confirmed lyrics into a song.
type Orchestrator struct {
	service  Service
	fallback backend.Fallback
	delay    time.Duration
	debug    bool
}

func NewOrchestrator(cfg *Config) *Orchestrator {
	fallback := cfg.Fallback
	if fallback == "" {
		fallback = backend.FallbackLocal
	}
	delay := cfg.FallbackDelay
	if delay <= 0 {
		delay = DefaultFallbackDelay
	}
	return &Orchestrator{
		service:  cfg.Service,
		fallback: fallback,
		delay:    delay,
		debug:    cfg.Debug,
	}
}

// Generate sends the flattened lyrics to the music service. When the fallback
// policy applies to the error, a demo song is returned after a delay.
func (o *Orchestrator) Generate(ctx context.Context, l *lyrics.Lyrics) (*Song, error) {
	if l == nil {
		return nil, ErrNoLyrics
	}
	prompt := lyrics.Flatten(l)
	if o.debug {
		log.Printf("music: generating %q (%s)\n", l.Title, l.Style)
	}
	resp, err := o.service.GenerateMusic(ctx, prompt, l.Style)
	if err != nil {
		if !o.fallback.Applies(o.service.URL(), err) {
			return nil, err
		}
		log.Printf("music: backend unavailable, using demo track: %v\n", err)
		t := time.NewTimer(o.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("music: fallback cancelled: %w", ctx.Err())
		case <-t.C:
		}
		return &Song{
			ID:       ulid.Make().String(),
			Title:    l.Title,
			Style:    l.Style,
			URL:      PlaceholderURL,
			Status:   Completed,
			Duration: DemoDuration,
			IsDemo:   true,
		}, nil
	}
	status := Status(resp.Status)
	if status == "" {
		status = Completed
	}
	return &Song{
		ID:       resp.ID,
		Title:    l.Title,
		Style:    l.Style,
		URL:      resp.URL,
		Status:   status,
		Duration: resp.Duration,
	}, nil
}
