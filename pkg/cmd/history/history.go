package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/igolaizola/sonicforge/pkg/storage"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Debug  bool
	DBType string
	DBConn string

	Kind   string
	Format string
	Demo   string
	Page   int
	Limit  int
	Output string
}

// Run lists the stored songs or vocal jobs.
func Run(ctx context.Context, cfg *Config) error {
	store, err := storage.New(cfg.DBType, cfg.DBConn, cfg.Debug)
	if err != nil {
		return fmt.Errorf("history: couldn't create orm store: %w", err)
	}
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("history: couldn't start orm store: %w", err)
	}
	defer func() { _ = store.Stop() }()

	var w io.Writer = os.Stdout
	if cfg.Output != "" {
		f, err := os.Create(cfg.Output)
		if err != nil {
			return fmt.Errorf("history: couldn't create %s: %w", cfg.Output, err)
		}
		defer f.Close()
		w = f
	}
	if err := List(ctx, store, cfg, w); err != nil {
		return err
	}
	if cfg.Output != "" {
		log.Printf("history: saved to %s\n", cfg.Output)
	}
	return nil
}

// List writes the records selected by the config to w.
func List(ctx context.Context, store *storage.Store, cfg *Config, w io.Writer) error {
	limit := cfg.Limit
	if limit <= 0 {
		limit = 100
	}
	var filters []storage.Filter
	switch cfg.Demo {
	case "":
	case "true", "false":
		filters = append(filters, storage.Where("demo = ?", cfg.Demo == "true"))
	default:
		return fmt.Errorf("history: invalid demo filter %q", cfg.Demo)
	}

	var items any
	switch cfg.Kind {
	case "", "songs":
		songs, err := store.ListSongs(ctx, cfg.Page, limit, "created_at desc", filters...)
		if err != nil {
			return fmt.Errorf("history: %w", err)
		}
		items = songs
	case "vocals":
		jobs, err := store.ListVocalJobs(ctx, cfg.Page, limit, "created_at desc", filters...)
		if err != nil {
			return fmt.Errorf("history: %w", err)
		}
		items = jobs
	default:
		return fmt.Errorf("history: unknown kind %q", cfg.Kind)
	}

	var b []byte
	var err error
	switch cfg.Format {
	case "", "csv":
		b, err = gocsv.MarshalBytes(items)
	case "json":
		b, err = json.MarshalIndent(items, "", "  ")
		b = append(b, '\n')
	case "yaml":
		b, err = yaml.Marshal(items)
	default:
		return fmt.Errorf("history: unknown format %q", cfg.Format)
	}
	if err != nil {
		return fmt.Errorf("history: couldn't marshal %s: %w", cfg.Format, err)
	}
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("history: couldn't write: %w", err)
	}
	return nil
}
