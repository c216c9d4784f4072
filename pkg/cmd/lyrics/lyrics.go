package lyrics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/igolaizola/sonicforge"
	"github.com/igolaizola/sonicforge/pkg/lyrics"
	"gopkg.in/yaml.v3"
)

type Config struct {
	sonicforge.Config

	UseCase string
	Genre   string

	Input string
	Title string
	Style string

	Format string
	Output string
}

// Run generates or loads lyrics and prints them.
func Run(ctx context.Context, cfg *Config) error {
	app, err := sonicforge.New(ctx, &cfg.Config)
	if err != nil {
		return fmt.Errorf("lyrics: %w", err)
	}
	defer func() { _ = app.Close() }()

	l, err := Acquire(ctx, app, cfg)
	if err != nil {
		return err
	}

	format := cfg.Format
	if format == "" && cfg.Output != "" {
		format = FormatFromPath(cfg.Output)
	}
	b, err := Marshal(l, format)
	if err != nil {
		return err
	}
	fmt.Print(string(b))
	if cfg.Output != "" {
		if err := os.WriteFile(cfg.Output, b, 0644); err != nil {
			return fmt.Errorf("lyrics: couldn't write %s: %w", cfg.Output, err)
		}
		log.Printf("lyrics: saved to %s\n", cfg.Output)
	}
	return nil
}

// Acquire confirms lyrics in the app, from a file when an input is set or
// generated from the use case otherwise.
func Acquire(ctx context.Context, app *sonicforge.App, cfg *Config) (*lyrics.Lyrics, error) {
	w := app.Lyrics
	if cfg.Input == "" {
		genre := cfg.Genre
		if genre == "" {
			genre = lyrics.DefaultGenre
		}
		log.Printf("lyrics: generating %s lyrics\n", genre)
		if _, err := w.Generate(ctx, cfg.UseCase, genre); err != nil {
			return nil, err
		}
		return w.ConfirmGenerated()
	}

	if err := w.SetMode(lyrics.ModeManual); err != nil {
		return nil, err
	}
	f, err := os.Open(cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("lyrics: couldn't open %s: %w", cfg.Input, err)
	}
	defer f.Close()
	w.SetManualTitle(cfg.Title)
	if cfg.Style != "" {
		if err := w.SetManualStyle(cfg.Style); err != nil {
			return nil, err
		}
	}
	if err := w.LoadFile(filepath.Base(cfg.Input), f); err != nil {
		return nil, err
	}
	return w.SubmitManual()
}

// FormatFromPath returns the output format matching a file extension.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "text"
	}
}

// Marshal encodes lyrics as text, json or yaml.
func Marshal(l *lyrics.Lyrics, format string) ([]byte, error) {
	switch format {
	case "json":
		b, err := json.MarshalIndent(l, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("lyrics: couldn't marshal json: %w", err)
		}
		return append(b, '\n'), nil
	case "yaml":
		b, err := yaml.Marshal(l)
		if err != nil {
			return nil, fmt.Errorf("lyrics: couldn't marshal yaml: %w", err)
		}
		return b, nil
	case "", "text":
		var buf bytes.Buffer
		fmt.Fprintf(&buf, "%s\n", l.Title)
		if l.Style != "" {
			fmt.Fprintf(&buf, "Style: %s\n", l.Style)
		}
		for _, s := range l.Sections() {
			fmt.Fprintf(&buf, "\n[%s]\n%s\n", s.Label, strings.TrimSpace(s.Text))
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("lyrics: unknown format %q", format)
	}
}

// Load reads lyrics saved as json or yaml. Any other file is read as manual
// lyrics titled after the file name.
func Load(path string) (*lyrics.Lyrics, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lyrics: couldn't read %s: %w", path, err)
	}
	var l lyrics.Lyrics
	switch FormatFromPath(path) {
	case "json":
		if err := json.Unmarshal(b, &l); err != nil {
			return nil, fmt.Errorf("lyrics: couldn't unmarshal %s: %w", path, err)
		}
	case "yaml":
		if err := yaml.Unmarshal(b, &l); err != nil {
			return nil, fmt.Errorf("lyrics: couldn't unmarshal %s: %w", path, err)
		}
	default:
		l = lyrics.Lyrics{
			Title:   lyrics.TitleFromFilename(path),
			Style:   lyrics.DefaultManualGenre,
			Content: string(b),
			Source:  lyrics.SourceManual,
		}
	}
	if l.Source == "" {
		l.Source = lyrics.SourceAI
		if l.Content != "" {
			l.Source = lyrics.SourceManual
		}
	}
	if l.Title == "" {
		return nil, fmt.Errorf("lyrics: %s has no title", path)
	}
	return &l, nil
}
