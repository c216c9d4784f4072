package sonicforge

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/igolaizola/sonicforge/pkg/backend"
	"github.com/igolaizola/sonicforge/pkg/gemini"
	"github.com/igolaizola/sonicforge/pkg/lyrics"
	"github.com/igolaizola/sonicforge/pkg/music"
	"github.com/igolaizola/sonicforge/pkg/openai"
	"github.com/igolaizola/sonicforge/pkg/session"
	"github.com/igolaizola/sonicforge/pkg/storage"
	"github.com/igolaizola/sonicforge/pkg/vocal"
	"github.com/oklog/ulid/v2"
	"github.com/pkg/browser"
)

type Config struct {
	// Backend is the base address of the music and vocal service.
	Backend string
	// APIKey is the credential of the lyrics provider.
	APIKey   string
	Provider string
	Model    string
	// Base address of an OpenAI compatible API.
	ProviderURL string

	MusicFallback string
	VocalFallback string
	ColdStart     time.Duration
	MusicDelay    time.Duration
	VocalDelay    time.Duration
	Duration      int

	// Optional history database.
	DBType string
	DBConn string

	Debug bool
	Proxy string

	// Generator overrides the lyrics provider.
	Generator lyrics.Generator
	Client    *http.Client
	Open      music.Opener
	// OnWakingUp is called when the backend takes long to answer.
	OnWakingUp func()
}

// App is a single user session with its three workflow panels.
type App struct {
	Session *session.Store
	Lyrics  *lyrics.Workflow
	Music   *music.Panel
	Vocals  *vocal.Panel
	Backend *backend.Client

	store *storage.Store
}

// New builds every component of the application from the config.
func New(ctx context.Context, cfg *Config) (*App, error) {
	musicFallback, err := parseFallback(cfg.MusicFallback)
	if err != nil {
		return nil, err
	}
	// A configured remote backend must never be replaced by demo songs
	if musicFallback == backend.FallbackAlways {
		return nil, fmt.Errorf("sonicforge: music fallback %q is not allowed, use %q or %q", musicFallback, backend.FallbackLocal, backend.FallbackNever)
	}
	vocalFallback, err := parseFallback(cfg.VocalFallback)
	if err != nil {
		return nil, err
	}

	httpClient := cfg.Client
	if httpClient == nil && cfg.Proxy != "" {
		u, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("sonicforge: invalid proxy %s: %w", cfg.Proxy, err)
		}
		httpClient = &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyURL(u),
			},
		}
	}

	gen := cfg.Generator
	if gen == nil {
		genCfg := *cfg
		genCfg.Client = httpClient
		candidate, err := NewGenerator(ctx, &genCfg)
		if err != nil {
			log.Printf("sonicforge: lyrics generation disabled: %v\n", err)
		} else {
			gen = candidate
		}
	}

	var store *storage.Store
	if cfg.DBType != "" {
		store, err = storage.New(cfg.DBType, cfg.DBConn, cfg.Debug)
		if err != nil {
			return nil, fmt.Errorf("sonicforge: couldn't create orm store: %w", err)
		}
		if err := store.Start(ctx); err != nil {
			return nil, fmt.Errorf("sonicforge: couldn't start orm store: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Stop()
			return nil, fmt.Errorf("sonicforge: couldn't migrate orm store: %w", err)
		}
	}

	client := backend.New(&backend.Config{
		URL:      cfg.Backend,
		Duration: cfg.Duration,
		Client:   httpClient,
		Debug:    cfg.Debug,
	})
	sess := session.New()

	app := &App{
		Session: sess,
		Backend: client,
		store:   store,
	}
	var musicRecorder music.Recorder
	var vocalRecorder vocal.Recorder
	if store != nil {
		h := &history{store: store}
		musicRecorder = h
		vocalRecorder = h
	}

	app.Lyrics = lyrics.NewWorkflow(&lyrics.Config{
		Generator: gen,
		Confirm: func(l *lyrics.Lyrics) {
			sess.SetConfirmedLyrics(l)
			sess.SetActiveStep(session.Music)
		},
		Debug: cfg.Debug,
	})
	app.Music = music.NewPanel(&music.PanelConfig{
		Orchestrator: music.NewOrchestrator(&music.Config{
			Service:       client,
			Fallback:      musicFallback,
			FallbackDelay: cfg.MusicDelay,
			Debug:         cfg.Debug,
		}),
		Session:    sess,
		Recorder:   musicRecorder,
		Open:       cfg.Open,
		ColdStart:  cfg.ColdStart,
		OnWakingUp: cfg.OnWakingUp,
		Debug:      cfg.Debug,
	})
	app.Vocals = vocal.NewPanel(&vocal.PanelConfig{
		Orchestrator: vocal.NewOrchestrator(&vocal.Config{
			Service:       client,
			Fallback:      vocalFallback,
			FallbackDelay: cfg.VocalDelay,
			Debug:         cfg.Debug,
		}),
		Recorder: vocalRecorder,
	})
	return app, nil
}

// Close releases the history database.
func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Stop()
}

func parseFallback(s string) (backend.Fallback, error) {
	if s == "" {
		return "", nil
	}
	f, err := backend.ParseFallback(s)
	if err != nil {
		return "", fmt.Errorf("sonicforge: %w", err)
	}
	return f, nil
}

// NewGenerator returns the lyrics provider selected in the config.
func NewGenerator(ctx context.Context, cfg *Config) (lyrics.Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("sonicforge: api key is empty")
	}
	switch strings.ToLower(cfg.Provider) {
	case "", "gemini":
		c, err := gemini.New(ctx, &gemini.Config{
			Key:    cfg.APIKey,
			Model:  cfg.Model,
			Client: cfg.Client,
			Debug:  cfg.Debug,
		})
		if err != nil {
			return nil, fmt.Errorf("sonicforge: %w", err)
		}
		return c, nil
	case "openai":
		c, err := openai.New(&openai.Config{
			Token:   cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.ProviderURL,
			Client:  cfg.Client,
			Debug:   cfg.Debug,
		})
		if err != nil {
			return nil, fmt.Errorf("sonicforge: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("sonicforge: unknown provider %q", cfg.Provider)
	}
}

// history records songs and vocal jobs in the database.
type history struct {
	store *storage.Store

	lck     sync.Mutex
	last    lyrics.Lyrics
	lastID  string
	hasLast bool
}

func (h *history) RecordSong(ctx context.Context, l *lyrics.Lyrics, s *music.Song) error {
	var lyricsID *string
	if l != nil {
		id, err := h.recordLyrics(ctx, l)
		if err != nil {
			return err
		}
		lyricsID = &id
	}
	if err := h.store.SetSong(ctx, &storage.Song{
		ID:       s.ID,
		LyricsID: lyricsID,
		Title:    s.Title,
		Style:    s.Style,
		URL:      s.URL,
		Status:   string(s.Status),
		Duration: s.Duration,
		Demo:     s.IsDemo,
	}); err != nil {
		return fmt.Errorf("sonicforge: couldn't record song: %w", err)
	}
	return nil
}

// recordLyrics stores the lyrics once for consecutive songs generated from
// the same confirmed lyrics.
func (h *history) recordLyrics(ctx context.Context, l *lyrics.Lyrics) (string, error) {
	h.lck.Lock()
	defer h.lck.Unlock()
	if h.hasLast && h.last == *l {
		return h.lastID, nil
	}
	id := ulid.Make().String()
	if err := h.store.SetLyrics(ctx, &storage.Lyrics{
		ID:      id,
		Title:   l.Title,
		Style:   l.Style,
		Source:  string(l.Source),
		Content: l.Content,
		Verse1:  l.Verse1,
		Chorus:  l.Chorus,
		Verse2:  l.Verse2,
		Bridge:  l.Bridge,
		Outro:   l.Outro,
	}); err != nil {
		return "", fmt.Errorf("sonicforge: couldn't record lyrics: %w", err)
	}
	h.last = *l
	h.lastID = id
	h.hasLast = true
	return id, nil
}

func (h *history) RecordJob(ctx context.Context, j *vocal.Job) error {
	if err := h.store.SetVocalJob(ctx, &storage.VocalJob{
		ID:           j.ID,
		OriginalURL:  j.OriginalURL,
		ConvertedURL: j.ConvertedURL,
		TargetVoice:  j.TargetVoice,
		Status:       string(j.Status),
		Demo:         j.IsDemo,
	}); err != nil {
		return fmt.Errorf("sonicforge: couldn't record vocal job: %w", err)
	}
	return nil
}

// BrowserOpener plays songs in the default browser. Pausing and stopping
// are left to the browser.
func BrowserOpener(u string) (music.Player, error) {
	return &browserPlayer{url: u}, nil
}

type browserPlayer struct {
	url    string
	opened bool
}

func (p *browserPlayer) Play() error {
	if p.opened {
		return nil
	}
	if err := browser.OpenURL(p.url); err != nil {
		return fmt.Errorf("sonicforge: couldn't open %s: %w", p.url, err)
	}
	p.opened = true
	return nil
}

func (p *browserPlayer) Pause() error { return nil }
func (p *browserPlayer) Stop() error  { return nil }
