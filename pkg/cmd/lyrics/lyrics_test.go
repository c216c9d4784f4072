package lyrics

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/igolaizola/sonicforge"
	"github.com/igolaizola/sonicforge/pkg/lyrics"
	"github.com/igolaizola/sonicforge/pkg/session"
)

func TestMarshalLoad(t *testing.T) {
	l := &lyrics.Lyrics{
		Title:  "Shell Yeah",
		Style:  "Lullaby",
		Verse1: "Slow and steady",
		Chorus: "Brave little turtle",
		Source: lyrics.SourceAI,
	}
	dir := t.TempDir()
	for _, format := range []string{"json", "yaml"} {
		b, err := Marshal(l, format)
		if err != nil {
			t.Fatalf("Marshal(%s) err = %v; want nil", format, err)
		}
		path := filepath.Join(dir, "song."+format)
		if err := os.WriteFile(path, b, 0644); err != nil {
			t.Fatal(err)
		}
		got, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%s) err = %v; want nil", format, err)
		}
		if *got != *l {
			t.Fatalf("Load(%s) = %+v; want %+v", format, got, l)
		}
	}
}

func TestMarshalText(t *testing.T) {
	l := &lyrics.Lyrics{Title: "Shell Yeah", Style: "Lullaby", Chorus: "Brave", Source: lyrics.SourceAI}
	b, err := Marshal(l, "text")
	if err != nil {
		t.Fatal(err)
	}
	want := "Shell Yeah\nStyle: Lullaby\n\n[Chorus]\nBrave\n"
	if string(b) != want {
		t.Fatalf("Marshal() = %q; want %q", b, want)
	}
	if _, err := Marshal(l, "xml"); err == nil {
		t.Fatal("Marshal(xml) err = nil; want error")
	}
}

func TestLoadPlainText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twinkle.v2.txt")
	if err := os.WriteFile(path, []byte("Little star"), 0644); err != nil {
		t.Fatal(err)
	}
	l, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if l.Title != "twinkle.v2" || l.Source != lyrics.SourceManual || l.Content != "Little star" {
		t.Fatalf("Load() = %+v", l)
	}
}

func TestAcquireManual(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twinkle.txt")
	if err := os.WriteFile(path, []byte("Little star"), 0644); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	app, err := sonicforge.New(ctx, &sonicforge.Config{})
	if err != nil {
		t.Fatal(err)
	}
	l, err := Acquire(ctx, app, &Config{Input: path, Style: "Jazz"})
	if err != nil {
		t.Fatalf("Acquire() err = %v; want nil", err)
	}
	if l.Title != "twinkle" || l.Style != "Jazz" || !strings.Contains(lyrics.Flatten(l), "Little star") {
		t.Fatalf("Acquire() = %+v", l)
	}
	if app.Session.Step() != session.Music {
		t.Fatalf("Step() = %s; want music", app.Session.Step())
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]string{
		"a.json": "json",
		"a.YML":  "yaml",
		"a.yaml": "yaml",
		"a.txt":  "text",
		"a":      "text",
	}
	for in, want := range tests {
		if got := FormatFromPath(in); got != want {
			t.Fatalf("FormatFromPath(%q) = %q; want %q", in, got, want)
		}
	}
}
