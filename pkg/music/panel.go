package music

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/igolaizola/sonicforge/pkg/lyrics"
)

const DefaultColdStart = 3 * time.Second

// Session is where the panel reads lyrics from and stores songs to.
type Session interface {
	ConfirmedLyrics() *lyrics.Lyrics
	SetGeneratedSong(*Song)
}

// Recorder keeps a history of generated songs.
type Recorder interface {
	RecordSong(ctx context.Context, l *lyrics.Lyrics, s *Song) error
}

// Player plays a song.
type Player interface {
	Play() error
	Pause() error
	Stop() error
}

// Opener returns a player for an audio address.
type Opener func(url string) (Player, error)

type PanelConfig struct {
	Orchestrator *Orchestrator
	Session      Session
	Recorder     Recorder
	Open         Opener
	ColdStart    time.Duration
	// OnWakingUp is called when a request is still pending after the cold
	// start duration.
	OnWakingUp func()
	Debug      bool
}

// State is a snapshot of the panel.
type State struct {
	Generating bool   `json:"generating"`
	WakingUp   bool   `json:"waking_up"`
	Playing    bool   `json:"playing"`
	Song       *Song  `json:"song,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Panel holds the state of the music panel.
type Panel struct {
	orchestrator *Orchestrator
	session      Session
	recorder     Recorder
	open         Opener
	coldStart    time.Duration
	onWakingUp   func()
	debug        bool

	lck        sync.Mutex
	seq        uint64
	generating bool
	wakingUp   bool
	playing    bool
	song       *Song
	err        string
	player     Player
}

func NewPanel(cfg *PanelConfig) *Panel {
	coldStart := cfg.ColdStart
	if coldStart <= 0 {
		coldStart = DefaultColdStart
	}
	open := cfg.Open
	if open == nil {
		open = func(string) (Player, error) { return nopPlayer{}, nil }
	}
	onWakingUp := cfg.OnWakingUp
	if onWakingUp == nil {
		onWakingUp = func() {}
	}
	return &Panel{
		orchestrator: cfg.Orchestrator,
		session:      cfg.Session,
		recorder:     cfg.Recorder,
		open:         open,
		coldStart:    coldStart,
		onWakingUp:   onWakingUp,
		debug:        cfg.Debug,
	}
}

func (p *Panel) State() State {
	p.lck.Lock()
	defer p.lck.Unlock()
	var song *Song
	if p.song != nil {
		s := *p.song
		song = &s
	}
	return State{
		Generating: p.generating,
		WakingUp:   p.wakingUp,
		Playing:    p.playing,
		Song:       song,
		Error:      p.err,
	}
}

// Generate creates a song from the confirmed lyrics of the session.
func (p *Panel) Generate(ctx context.Context) (*Song, error) {
	l := p.session.ConfirmedLyrics()
	if l == nil {
		return nil, ErrNoLyrics
	}

	p.lck.Lock()
	if p.generating {
		p.lck.Unlock()
		return nil, ErrBusy
	}
	p.discard()
	p.generating = true
	p.seq++
	seq := p.seq
	timer := time.AfterFunc(p.coldStart, func() {
		p.lck.Lock()
		if !p.generating || p.seq != seq {
			p.lck.Unlock()
			return
		}
		p.wakingUp = true
		p.lck.Unlock()
		if p.debug {
			log.Println("music: backend is waking up")
		}
		p.onWakingUp()
	})
	p.lck.Unlock()

	song, err := p.orchestrator.Generate(ctx, l)

	p.lck.Lock()
	timer.Stop()
	p.generating = false
	p.wakingUp = false
	if err != nil {
		p.err = err.Error()
	} else {
		p.song = song
	}
	p.lck.Unlock()

	if err != nil {
		return nil, err
	}
	p.session.SetGeneratedSong(song)
	if p.recorder != nil {
		if err := p.recorder.RecordSong(ctx, l, song); err != nil {
			log.Printf("music: couldn't record song %s: %v\n", song.ID, err)
		}
	}
	return song, nil
}

// GenerateAnother discards the current song, error and playback.
func (p *Panel) GenerateAnother() {
	p.lck.Lock()
	defer p.lck.Unlock()
	p.discard()
}

func (p *Panel) discard() {
	if p.player != nil {
		if err := p.player.Stop(); err != nil {
			log.Printf("music: couldn't stop player: %v\n", err)
		}
	}
	p.player = nil
	p.playing = false
	p.song = nil
	p.err = ""
}

// TogglePlay starts or pauses the playback of the current song and returns
// whether it is playing.
func (p *Panel) TogglePlay() (bool, error) {
	p.lck.Lock()
	defer p.lck.Unlock()
	if p.song == nil {
		return false, ErrNoSong
	}
	if p.player == nil {
		player, err := p.open(p.song.URL)
		if err != nil {
			return false, fmt.Errorf("music: couldn't open %s: %w", p.song.URL, err)
		}
		p.player = player
	}
	if p.playing {
		if err := p.player.Pause(); err != nil {
			return true, fmt.Errorf("music: couldn't pause: %w", err)
		}
		p.playing = false
		return false, nil
	}
	if err := p.player.Play(); err != nil {
		return false, fmt.Errorf("music: couldn't play: %w", err)
	}
	p.playing = true
	return true, nil
}

type nopPlayer struct{}

func (nopPlayer) Play() error  { return nil }
func (nopPlayer) Pause() error { return nil }
func (nopPlayer) Stop() error  { return nil }
