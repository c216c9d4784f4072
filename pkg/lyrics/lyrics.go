package lyrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Source tells where the lyrics come from.
type Source string

const (
	SourceAI     Source = "ai"
	SourceManual Source = "manual"
)

// Genres available in both AI and manual mode.
var Genres = []string{
	"Pop", "Kids Song", "Nursery Rhyme", "Lullaby",
	"Jazz", "Rock", "Hip Hop", "Country",
	"Electronic", "Cinematic Score", "Reggae",
}

const (
	DefaultGenre       = "Pop"
	DefaultManualGenre = "Kids Song"
)

var (
	ErrMissingInput = errors.New("lyrics: missing input")
	ErrInvalidGenre = errors.New("lyrics: invalid genre")
	ErrGeneration   = errors.New("lyrics: failed to generate lyrics")
)

// Lyrics is the text content of a song.
// Manual lyrics use Content, AI lyrics use the section fields.
type Lyrics struct {
	Title   string `json:"title" yaml:"title"`
	Style   string `json:"style" yaml:"style"`
	Content string `json:"content,omitempty" yaml:"content,omitempty"`
	Verse1  string `json:"verse1,omitempty" yaml:"verse1,omitempty"`
	Chorus  string `json:"chorus,omitempty" yaml:"chorus,omitempty"`
	Verse2  string `json:"verse2,omitempty" yaml:"verse2,omitempty"`
	Bridge  string `json:"bridge,omitempty" yaml:"bridge,omitempty"`
	Outro   string `json:"outro,omitempty" yaml:"outro,omitempty"`
	Source  Source `json:"source" yaml:"source"`
}

// Generator generates lyrics for a use case and a genre.
type Generator interface {
	Generate(ctx context.Context, useCase, genre string) (*Lyrics, error)
}

// Section is a labelled part of a song.
type Section struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Sections returns the non-empty sections in song order.
func (l *Lyrics) Sections() []Section {
	if l.Source == SourceManual {
		if l.Content == "" {
			return nil
		}
		return []Section{{Label: "Lyrics", Text: l.Content}}
	}
	var sections []Section
	for _, s := range []Section{
		{"Verse 1", l.Verse1},
		{"Chorus", l.Chorus},
		{"Verse 2", l.Verse2},
		{"Bridge", l.Bridge},
		{"Outro", l.Outro},
	} {
		if s.Text != "" {
			sections = append(sections, s)
		}
	}
	return sections
}

// Flatten joins the lyrics into the single text sent to the music service.
func Flatten(l *Lyrics) string {
	if l.Source == SourceManual && l.Content != "" {
		return l.Title + "\n\n" + l.Content
	}
	var parts []string
	for _, p := range []string{l.Title, l.Verse1, l.Chorus, l.Verse2, l.Bridge, l.Outro} {
		if p == "" {
			continue
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, "\n\n")
}

// ValidGenre reports whether the genre is one of the known genres.
func ValidGenre(genre string) bool {
	for _, g := range Genres {
		if g == genre {
			return true
		}
	}
	return false
}

// TitleFromFilename strips the directory and the last extension of a file name.
func TitleFromFilename(name string) string {
	name = filepath.Base(name)
	if i := strings.LastIndex(name, "."); i > 0 && i < len(name)-1 {
		name = name[:i]
	}
	return name
}

// Prompt builds the text sent to the text generation service.
func Prompt(useCase, genre string) string {
	return fmt.Sprintf(`Write a song based on the following use case: %q.
The genre should be: %q.
Provide a catchy Title.
Structure the song with Verse 1, Chorus, Verse 2, Bridge, and Outro.
Keep it rhythmic and suitable for audio generation.`, useCase, genre)
}

// Fields are the keys every generated response must contain.
var Fields = []string{"title", "style", "verse1", "chorus", "verse2", "bridge", "outro"}

// FieldDescriptions documents the response fields for the generation services.
var FieldDescriptions = map[string]string{
	"style": "A brief description of the musical style/mood",
}

// Decode parses a generated JSON response. Code fences around the JSON are
// tolerated.
func Decode(text string) (*Lyrics, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("lyrics: empty response")
	}
	var l Lyrics
	if err := json.Unmarshal([]byte(text), &l); err != nil {
		return nil, fmt.Errorf("lyrics: couldn't decode response: %w", err)
	}
	l.Content = ""
	l.Source = SourceAI
	return &l, nil
}
