package song

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/igolaizola/sonicforge"
	lyricscmd "github.com/igolaizola/sonicforge/pkg/cmd/lyrics"
	"github.com/igolaizola/sonicforge/pkg/music"
	"github.com/igolaizola/sonicforge/pkg/session"
	"github.com/igolaizola/sonicforge/pkg/sound"
)

type Config struct {
	sonicforge.Config

	Input  string
	Output string
	Wave   string
	Volume string
	Play   bool
}

// Run generates a song from a lyrics file.
func Run(ctx context.Context, cfg *Config) error {
	if cfg.Input == "" {
		return errors.New("song: input is required")
	}
	l, err := lyricscmd.Load(cfg.Input)
	if err != nil {
		return err
	}

	appCfg := cfg.Config
	appCfg.OnWakingUp = func() {
		log.Println("song: the backend is waking up, this may take a while...")
	}
	if cfg.Play {
		appCfg.Open = sonicforge.BrowserOpener
	}
	app, err := sonicforge.New(ctx, &appCfg)
	if err != nil {
		return fmt.Errorf("song: %w", err)
	}
	defer func() { _ = app.Close() }()

	app.Session.SetConfirmedLyrics(l)
	app.Session.SetActiveStep(session.Music)

	log.Printf("song: generating %q (%s)\n", l.Title, l.Style)
	s, err := app.Music.Generate(ctx)
	if err != nil {
		return fmt.Errorf("song: couldn't generate song: %w", err)
	}
	printSong(s)

	if cfg.Output != "" || cfg.Wave != "" || cfg.Volume != "" {
		if err := inspect(ctx, s, cfg); err != nil {
			return err
		}
	}
	if cfg.Play {
		if _, err := app.Music.TogglePlay(); err != nil {
			return fmt.Errorf("song: %w", err)
		}
	}
	return nil
}

func printSong(s *music.Song) {
	title := s.Title
	if s.IsDemo {
		title += " (demo)"
	}
	fmt.Println("id:", s.ID)
	fmt.Println("title:", title)
	fmt.Println("url:", s.URL)
	fmt.Println("status:", s.Status)
	if s.Duration > 0 {
		fmt.Printf("duration: %.fs\n", s.Duration)
	}
}

// inspect downloads the track, saves it and reports what it sounds like.
func inspect(ctx context.Context, s *music.Song, cfg *Config) error {
	data, err := sound.Load(ctx, nil, s.URL)
	if err != nil {
		return fmt.Errorf("song: %w", err)
	}
	if cfg.Output != "" {
		if err := os.WriteFile(cfg.Output, data, 0644); err != nil {
			return fmt.Errorf("song: couldn't write %s: %w", cfg.Output, err)
		}
		log.Printf("song: saved to %s\n", cfg.Output)
	}
	a, err := sound.NewAnalyzer(data)
	if err != nil {
		log.Printf("song: couldn't analyze track: %v\n", err)
		return nil
	}
	fmt.Println("measured duration:", a.Duration())
	fmt.Println("silent:", a.Silent())
	fmt.Println("fade out:", a.HasFadeOut())
	if cfg.Wave != "" {
		if err := plot(cfg.Wave, "waveform", a.PlotWave, s.Title); err != nil {
			return err
		}
	}
	if cfg.Volume != "" {
		if err := plot(cfg.Volume, "volume", a.PlotRMS, s.Title); err != nil {
			return err
		}
	}
	return nil
}

func plot(path, kind string, fn func(string) ([]byte, error), title string) error {
	img, err := fn(title)
	if err != nil {
		return fmt.Errorf("song: %w", err)
	}
	if err := os.WriteFile(path, img, 0644); err != nil {
		return fmt.Errorf("song: couldn't write %s: %w", path, err)
	}
	log.Printf("song: %s saved to %s\n", kind, path)
	return nil
}
