package vocal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/igolaizola/sonicforge/pkg/backend"
	"github.com/oklog/ulid/v2"
)

// Voices are the available target voice models.
var Voices = []string{"Ariana_Vibe", "Drake_Style", "Jazz_Singer", "Robot_FX"}

const DefaultVoice = "Ariana_Vibe"

const (
	PlaceholderURL       = "https://www.soundhelix.com/examples/mp3/SoundHelix-Song-2.mp3"
	DefaultFallbackDelay = 3 * time.Second
	MaxFileSize          = 10 << 20
)

// Extensions are the recommended upload formats.
var Extensions = []string{".mp3", ".wav"}

var (
	ErrInvalidVoice = errors.New("vocal: invalid voice")
	ErrNoFile       = errors.New("vocal: no file selected")
	ErrBusy         = errors.New("vocal: conversion already in progress")
)

type Status string

const (
	Processing Status = "processing"
	Completed  Status = "completed"
	Failed     Status = "failed"
)

type Job struct {
	ID           string `json:"id"`
	OriginalURL  string `json:"original_url"`
	ConvertedURL string `json:"converted_url,omitempty"`
	TargetVoice  string `json:"target_voice"`
	Status       Status `json:"status"`
	IsDemo       bool   `json:"is_demo,omitempty"`
}

// File is an audio file selected for conversion.
type File struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	// URL is a local reference to the file.
	URL  string `json:"url"`
	open func() (io.ReadCloser, error)
}

// OpenFile selects a file from disk.
func OpenFile(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("vocal: couldn't get absolute path of %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("vocal: couldn't stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("vocal: %s is a directory", path)
	}
	u := &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return &File{
		Name: filepath.Base(abs),
		Size: info.Size(),
		URL:  u.String(),
		open: func() (io.ReadCloser, error) { return os.Open(abs) },
	}, nil
}

// NewFile selects a file held in memory. The URL is where the caller serves
// it locally.
func NewFile(name string, data []byte, u string) *File {
	return &File{
		Name: name,
		Size: int64(len(data)),
		URL:  u,
		open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

func (f *File) Open() (io.ReadCloser, error) {
	if f.open == nil {
		return nil, fmt.Errorf("vocal: %s can't be opened", f.Name)
	}
	return f.open()
}

// CheckFile returns hints about the file. They are only advisory.
func CheckFile(f *File) []string {
	var hints []string
	ext := strings.ToLower(filepath.Ext(f.Name))
	known := false
	for _, e := range Extensions {
		if e == ext {
			known = true
			break
		}
	}
	if !known {
		hints = append(hints, fmt.Sprintf("%s is not an MP3 or WAV file", f.Name))
	}
	if f.Size > MaxFileSize {
		hints = append(hints, fmt.Sprintf("%s is larger than 10MB", f.Name))
	}
	return hints
}

func ValidVoice(voice string) bool {
	for _, v := range Voices {
		if v == voice {
			return true
		}
	}
	return false
}

// Service is the remote voice conversion service.
type Service interface {
	ConvertVocals(ctx context.Context, name string, r io.Reader, voice string) (*backend.VocalResponse, error)
	URL() string
}

type Config struct {
	Service       Service
	Fallback      backend.Fallback
	FallbackDelay time.Duration
	Debug         bool
}

type Orchestrator struct {
	service  Service
	fallback backend.Fallback
	delay    time.Duration
	debug    bool
}

func NewOrchestrator(cfg *Config) *Orchestrator {
	fallback := cfg.Fallback
	if fallback == "" {
		fallback = backend.FallbackAlways
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

// Convert uploads the file to be sung with the target voice. When the
// fallback policy applies to the error, a demo job is returned after a delay.
func (o *Orchestrator) Convert(ctx context.Context, f *File, voice string) (*Job, error) {
	if f == nil {
		return nil, ErrNoFile
	}
	if voice == "" {
		voice = DefaultVoice
	}
	if !ValidVoice(voice) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVoice, voice)
	}
	if o.debug {
		log.Printf("vocal: converting %s to %s\n", f.Name, voice)
	}
	job, err := o.convert(ctx, f, voice)
	if err == nil {
		return job, nil
	}
	if !o.fallback.Applies(o.service.URL(), err) {
		return nil, err
	}
	log.Printf("vocal: conversion failed, using demo track: %v\n", err)
	t := time.NewTimer(o.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("vocal: fallback cancelled: %w", ctx.Err())
	case <-t.C:
	}
	return &Job{
		ID:           ulid.Make().String(),
		OriginalURL:  f.URL,
		ConvertedURL: PlaceholderURL,
		TargetVoice:  voice,
		Status:       Completed,
		IsDemo:       true,
	}, nil
}

func (o *Orchestrator) convert(ctx context.Context, f *File, voice string) (*Job, error) {
	r, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("vocal: couldn't open %s: %w", f.Name, err)
	}
	defer r.Close()
	resp, err := o.service.ConvertVocals(ctx, f.Name, r, voice)
	if err != nil {
		return nil, err
	}
	return &Job{
		ID:           resp.ID,
		OriginalURL:  resp.OriginalURL,
		ConvertedURL: resp.ConvertedURL,
		TargetVoice:  resp.TargetVoice,
		Status:       Status(resp.Status),
	}, nil
}
