package vocals

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/igolaizola/sonicforge"
	"github.com/igolaizola/sonicforge/pkg/vocal"
)

type Config struct {
	sonicforge.Config

	Input string
	Voice string
}

// Run converts an audio file to the target voice.
func Run(ctx context.Context, cfg *Config) (*vocal.Job, error) {
	if cfg.Input == "" {
		return nil, errors.New("vocals: input is required")
	}
	app, err := sonicforge.New(ctx, &cfg.Config)
	if err != nil {
		return nil, fmt.Errorf("vocals: %w", err)
	}
	defer func() { _ = app.Close() }()

	f, err := vocal.OpenFile(cfg.Input)
	if err != nil {
		return nil, err
	}
	app.Vocals.SetFile(f)
	if cfg.Voice != "" {
		if err := app.Vocals.SetVoice(cfg.Voice); err != nil {
			return nil, err
		}
	}

	log.Printf("vocals: converting %s\n", f.Name)
	job, err := app.Vocals.Convert(ctx)
	if err != nil {
		return nil, fmt.Errorf("vocals: couldn't convert vocals: %w", err)
	}
	status := string(job.Status)
	if job.IsDemo {
		status += " (demo)"
	}
	fmt.Println("id:", job.ID)
	fmt.Println("voice:", job.TargetVoice)
	fmt.Println("original:", job.OriginalURL)
	fmt.Println("converted:", job.ConvertedURL)
	fmt.Println("status:", status)
	return job, nil
}
