package lyrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
)

// Mode is the way lyrics are acquired.
type Mode string

const (
	ModeAI     Mode = "ai"
	ModeManual Mode = "manual"
)

var ErrBusy = errors.New("lyrics: generation already in progress")

type Config struct {
	Generator Generator
	// Confirm is called with every confirmed result.
	Confirm func(*Lyrics)
	Debug   bool
}

// Workflow holds the state of the lyrics panel.
type Workflow struct {
	generator Generator
	confirm   func(*Lyrics)
	debug     bool

	lck     sync.Mutex
	mode    Mode
	useCase string
	genre   string
	loading bool
	pending *Lyrics

	manualTitle string
	manualStyle string
	manualBody  string
}

// State is a snapshot of the workflow.
type State struct {
	Mode        Mode    `json:"mode"`
	UseCase     string  `json:"use_case"`
	Genre       string  `json:"genre"`
	Loading     bool    `json:"loading"`
	Generated   *Lyrics `json:"generated,omitempty"`
	ManualTitle string  `json:"manual_title"`
	ManualStyle string  `json:"manual_style"`
	ManualBody  string  `json:"manual_body"`
}

func NewWorkflow(cfg *Config) *Workflow {
	confirm := cfg.Confirm
	if confirm == nil {
		confirm = func(*Lyrics) {}
	}
	return &Workflow{
		generator:   cfg.Generator,
		confirm:     confirm,
		debug:       cfg.Debug,
		mode:        ModeAI,
		genre:       DefaultGenre,
		manualStyle: DefaultManualGenre,
	}
}

func (w *Workflow) log(format string, args ...any) {
	if w.debug {
		format += "\n"
		log.Printf(format, args...)
	}
}

// SetMode switches between AI and manual mode. Each mode keeps its own inputs.
func (w *Workflow) SetMode(m Mode) error {
	switch m {
	case ModeAI, ModeManual:
	default:
		return fmt.Errorf("lyrics: unknown mode %q", m)
	}
	w.lck.Lock()
	defer w.lck.Unlock()
	w.mode = m
	return nil
}

func (w *Workflow) State() State {
	w.lck.Lock()
	defer w.lck.Unlock()
	return State{
		Mode:        w.mode,
		UseCase:     w.useCase,
		Genre:       w.genre,
		Loading:     w.loading,
		Generated:   clone(w.pending),
		ManualTitle: w.manualTitle,
		ManualStyle: w.manualStyle,
		ManualBody:  w.manualBody,
	}
}

// Generate asks the generator for new lyrics. The result is kept for review
// and is not confirmed until ConfirmGenerated is called.
func (w *Workflow) Generate(ctx context.Context, useCase, genre string) (*Lyrics, error) {
	if useCase == "" {
		return nil, fmt.Errorf("%w: use case is empty", ErrMissingInput)
	}
	if genre == "" {
		genre = DefaultGenre
	}
	if !ValidGenre(genre) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidGenre, genre)
	}
	if w.generator == nil {
		log.Println("lyrics: no generator configured")
		return nil, ErrGeneration
	}

	w.lck.Lock()
	if w.loading {
		w.lck.Unlock()
		return nil, ErrBusy
	}
	w.loading = true
	w.useCase = useCase
	w.genre = genre
	w.lck.Unlock()

	defer func() {
		w.lck.Lock()
		w.loading = false
		w.lck.Unlock()
	}()

	w.log("lyrics: generating %q (%s)", useCase, genre)
	result, err := w.generator.Generate(ctx, useCase, genre)
	if err != nil {
		log.Printf("lyrics: couldn't generate lyrics: %v\n", err)
		return nil, ErrGeneration
	}
	if result == nil {
		log.Println("lyrics: generator returned an empty response")
		return nil, ErrGeneration
	}
	l := *result
	l.Source = SourceAI

	w.lck.Lock()
	w.pending = &l
	w.lck.Unlock()
	return clone(&l), nil
}

// ConfirmGenerated confirms the last generated lyrics.
func (w *Workflow) ConfirmGenerated() (*Lyrics, error) {
	w.lck.Lock()
	l := clone(w.pending)
	w.lck.Unlock()
	if l == nil {
		return nil, fmt.Errorf("%w: no generated lyrics", ErrMissingInput)
	}
	w.confirm(clone(l))
	return l, nil
}

func (w *Workflow) SetManualTitle(title string) {
	w.lck.Lock()
	defer w.lck.Unlock()
	w.manualTitle = title
}

func (w *Workflow) SetManualStyle(style string) error {
	if !ValidGenre(style) {
		return fmt.Errorf("%w: %q", ErrInvalidGenre, style)
	}
	w.lck.Lock()
	defer w.lck.Unlock()
	w.manualStyle = style
	return nil
}

func (w *Workflow) SetManualBody(body string) {
	w.lck.Lock()
	defer w.lck.Unlock()
	w.manualBody = body
}

// LoadFile reads a plain text file as the manual lyrics body. When the title
// is empty it is taken from the file name.
func (w *Workflow) LoadFile(name string, r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("lyrics: couldn't read %s: %w", name, err)
	}
	w.lck.Lock()
	defer w.lck.Unlock()
	w.manualBody = string(b)
	if w.manualTitle == "" {
		w.manualTitle = TitleFromFilename(name)
	}
	return nil
}

// SubmitManual confirms the manual lyrics.
func (w *Workflow) SubmitManual() (*Lyrics, error) {
	w.lck.Lock()
	l := &Lyrics{
		Title:   w.manualTitle,
		Style:   w.manualStyle,
		Content: w.manualBody,
		Source:  SourceManual,
	}
	w.lck.Unlock()
	if l.Title == "" || l.Content == "" {
		return nil, fmt.Errorf("%w: title and lyrics are required", ErrMissingInput)
	}
	w.confirm(clone(l))
	return l, nil
}

func clone(l *Lyrics) *Lyrics {
	if l == nil {
		return nil
	}
	c := *l
	return &c
}
