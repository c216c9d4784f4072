package session

import (
	"fmt"
	"sync"

	"github.com/igolaizola/sonicforge/pkg/lyrics"
	"github.com/igolaizola/sonicforge/pkg/music"
)

// Step is a stage of the workflow.
type Step string

const (
	Lyrics Step = "lyrics"
	Music  Step = "music"
	Vocals Step = "vocals"
)

var Steps = []Step{Lyrics, Music, Vocals}

func ParseStep(s string) (Step, error) {
	for _, step := range Steps {
		if string(step) == s {
			return step, nil
		}
	}
	return "", fmt.Errorf("session: unknown step %q", s)
}

// Snapshot is a copy of the session state.
type Snapshot struct {
	Step            Step           `json:"step"`
	ConfirmedLyrics *lyrics.Lyrics `json:"confirmed_lyrics,omitempty"`
	GeneratedSong   *music.Song    `json:"generated_song,omitempty"`
}

// Store holds the shared state of a session. It performs no validation and
// has no side effects other than the write requested.
type Store struct {
	lck    sync.RWMutex
	step   Step
	lyrics *lyrics.Lyrics
	song   *music.Song
}

func New() *Store {
	return &Store{step: Lyrics}
}

func (s *Store) Step() Step {
	s.lck.RLock()
	defer s.lck.RUnlock()
	return s.step
}

func (s *Store) ConfirmedLyrics() *lyrics.Lyrics {
	s.lck.RLock()
	defer s.lck.RUnlock()
	return copyLyrics(s.lyrics)
}

func (s *Store) GeneratedSong() *music.Song {
	s.lck.RLock()
	defer s.lck.RUnlock()
	return copySong(s.song)
}

func (s *Store) Snapshot() Snapshot {
	s.lck.RLock()
	defer s.lck.RUnlock()
	return Snapshot{
		Step:            s.step,
		ConfirmedLyrics: copyLyrics(s.lyrics),
		GeneratedSong:   copySong(s.song),
	}
}

func (s *Store) SetActiveStep(step Step) {
	s.lck.Lock()
	defer s.lck.Unlock()
	s.step = step
}

func (s *Store) SetConfirmedLyrics(l *lyrics.Lyrics) {
	s.lck.Lock()
	defer s.lck.Unlock()
	s.lyrics = copyLyrics(l)
}

func (s *Store) SetGeneratedSong(song *music.Song) {
	s.lck.Lock()
	defer s.lck.Unlock()
	s.song = copySong(song)
}

func copyLyrics(l *lyrics.Lyrics) *lyrics.Lyrics {
	if l == nil {
		return nil
	}
	c := *l
	return &c
}

func copySong(s *music.Song) *music.Song {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
