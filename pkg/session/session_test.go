package session

import (
	"sync"
	"testing"

	"github.com/igolaizola/sonicforge/pkg/lyrics"
	"github.com/igolaizola/sonicforge/pkg/music"
)

func TestParseStep(t *testing.T) {
	tests := []struct {
		in      string
		want    Step
		wantErr bool
	}{
		{"lyrics", Lyrics, false},
		{"music", Music, false},
		{"vocals", Vocals, false},
		{"Music", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseStep(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseStep(%q) err = %v; want error %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseStep(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestStore(t *testing.T) {
	s := New()
	if got := s.Step(); got != Lyrics {
		t.Fatalf("Step() = %q; want %q", got, Lyrics)
	}
	if s.ConfirmedLyrics() != nil || s.GeneratedSong() != nil {
		t.Fatal("new store has lyrics or song; want none")
	}

	// Setting lyrics does not navigate
	l := &lyrics.Lyrics{Title: "T", Content: "c", Source: lyrics.SourceManual}
	s.SetConfirmedLyrics(l)
	if got := s.Step(); got != Lyrics {
		t.Fatalf("Step() = %q; want %q", got, Lyrics)
	}
	s.SetActiveStep(Music)

	// Stored values are copies
	l.Title = "changed"
	got := s.ConfirmedLyrics()
	if got.Title != "T" {
		t.Fatalf("ConfirmedLyrics().Title = %q; want %q", got.Title, "T")
	}
	got.Title = "changed again"
	if s.ConfirmedLyrics().Title != "T" {
		t.Fatal("ConfirmedLyrics() returned a shared value")
	}

	s.SetGeneratedSong(&music.Song{ID: "1", URL: "u1", Status: music.Completed})
	s.SetGeneratedSong(&music.Song{ID: "2", URL: "u2", Status: music.Completed})
	snap := s.Snapshot()
	if snap.Step != Music {
		t.Fatalf("Snapshot().Step = %q; want %q", snap.Step, Music)
	}
	if snap.GeneratedSong == nil || snap.GeneratedSong.ID != "2" {
		t.Fatalf("Snapshot().GeneratedSong = %v; want id 2", snap.GeneratedSong)
	}
	if snap.ConfirmedLyrics == nil || snap.ConfirmedLyrics.Title != "T" {
		t.Fatalf("Snapshot().ConfirmedLyrics = %v; want title T", snap.ConfirmedLyrics)
	}
}

func TestStoreConcurrent(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.SetActiveStep(Vocals)
			s.SetGeneratedSong(&music.Song{ID: "x"})
		}()
		go func() {
			defer wg.Done()
			_ = s.Snapshot()
		}()
	}
	wg.Wait()
	if s.Step() != Vocals {
		t.Fatalf("Step() = %q; want %q", s.Step(), Vocals)
	}
}
