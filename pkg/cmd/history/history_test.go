package history

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/igolaizola/sonicforge/pkg/storage"
)

func newStore(t *testing.T) *storage.Store {
	t.Helper()
	ctx := context.Background()
	s, err := storage.New("sqlite", filepath.Join(t.TempDir(), "test.db"), false)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Stop() })
	if err := s.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	for _, song := range []*storage.Song{
		{ID: "S1", Title: "Real", URL: "https://cdn/1.mp3", Status: "completed", Duration: 30},
		{ID: "S2", Title: "Demo", URL: "https://demo.mp3", Status: "completed", Duration: 120, Demo: true},
	} {
		if err := s.SetSong(ctx, song); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.SetVocalJob(ctx, &storage.VocalJob{ID: "J1", TargetVoice: "Robot_FX", Status: "completed", Demo: true}); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestList(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	var buf bytes.Buffer
	if err := List(ctx, store, &Config{Format: "csv"}, &buf); err != nil {
		t.Fatalf("List() err = %v; want nil", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "id,") {
		t.Fatalf("List() csv = %q", buf.String())
	}

	buf.Reset()
	if err := List(ctx, store, &Config{Format: "json", Demo: "false"}, &buf); err != nil {
		t.Fatal(err)
	}
	var songs []*storage.Song
	if err := json.Unmarshal(buf.Bytes(), &songs); err != nil {
		t.Fatal(err)
	}
	if len(songs) != 1 || songs[0].ID != "S1" {
		t.Fatalf("List() demo=false = %+v", songs)
	}

	buf.Reset()
	if err := List(ctx, store, &Config{Kind: "vocals", Format: "yaml"}, &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "target_voice: Robot_FX") {
		t.Fatalf("List() yaml = %q", buf.String())
	}
}

func TestListErrors(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	for _, cfg := range []*Config{
		{Kind: "albums"},
		{Format: "xml"},
		{Demo: "maybe"},
	} {
		if err := List(ctx, store, cfg, &bytes.Buffer{}); err == nil {
			t.Fatalf("List(%+v) err = nil; want error", cfg)
		}
	}
}
