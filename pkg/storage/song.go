package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type Lyrics struct {
	ID        string    `gorm:"primarykey" json:"id" yaml:"id" csv:"id"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at" csv:"created_at"`
	UpdatedAt time.Time `json:"-" yaml:"-" csv:"-"`

	Title   string `gorm:"not null;default:''" json:"title" yaml:"title" csv:"title"`
	Style   string `gorm:"not null;default:''" json:"style" yaml:"style" csv:"style"`
	Source  string `gorm:"index;not null;default:''" json:"source" yaml:"source" csv:"source"`
	Content string `gorm:"type:text" json:"content,omitempty" yaml:"content,omitempty" csv:"-"`
	Verse1  string `gorm:"type:text" json:"verse1,omitempty" yaml:"verse1,omitempty" csv:"-"`
	Chorus  string `gorm:"type:text" json:"chorus,omitempty" yaml:"chorus,omitempty" csv:"-"`
	Verse2  string `gorm:"type:text" json:"verse2,omitempty" yaml:"verse2,omitempty" csv:"-"`
	Bridge  string `gorm:"type:text" json:"bridge,omitempty" yaml:"bridge,omitempty" csv:"-"`
	Outro   string `gorm:"type:text" json:"outro,omitempty" yaml:"outro,omitempty" csv:"-"`
}

type Song struct {
	ID        string    `gorm:"primarykey" json:"id" yaml:"id" csv:"id"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at" csv:"created_at"`
	UpdatedAt time.Time `json:"-" yaml:"-" csv:"-"`

	LyricsID *string `json:"lyrics_id,omitempty" yaml:"lyrics_id,omitempty" csv:"-"`
	Lyrics   *Lyrics `gorm:"foreignKey:LyricsID" json:"lyrics,omitempty" yaml:"lyrics,omitempty" csv:"-"`

	Title    string  `gorm:"not null;default:''" json:"title" yaml:"title" csv:"title"`
	Style    string  `gorm:"not null;default:''" json:"style" yaml:"style" csv:"style"`
	URL      string  `gorm:"not null;default:''" json:"url" yaml:"url" csv:"url"`
	Status   string  `gorm:"not null;default:''" json:"status" yaml:"status" csv:"status"`
	Duration float64 `gorm:"not null;default:0" json:"duration" yaml:"duration" csv:"duration"`
	Demo     bool    `gorm:"index;not null;default:false" json:"demo" yaml:"demo" csv:"demo"`
}

func (s *Store) GetLyrics(ctx context.Context, id string) (*Lyrics, error) {
	var v Lyrics
	if err := s.db.WithContext(ctx).First(&v, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: failed to get lyrics %s: %w", id, err)
	}
	return &v, nil
}

func (s *Store) SetLyrics(ctx context.Context, v *Lyrics) error {
	if err := s.db.WithContext(ctx).Save(v).Error; err != nil {
		return fmt.Errorf("storage: failed to set lyrics %s: %w", v.ID, err)
	}
	return nil
}

func (s *Store) GetSong(ctx context.Context, id string) (*Song, error) {
	q := s.db.WithContext(ctx).Preload("Lyrics")

	var v Song
	if err := q.First(&v, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: failed to get song %s: %w", id, err)
	}
	return &v, nil
}

func (s *Store) SetSong(ctx context.Context, v *Song) error {
	if err := s.db.WithContext(ctx).Save(v).Error; err != nil {
		return fmt.Errorf("storage: failed to set song %s: %w", v.ID, err)
	}
	return nil
}

func (s *Store) DeleteSong(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&Song{ID: id}, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("storage: failed to delete song %s: %w", id, err)
	}
	return nil
}

func (s *Store) ListSongs(ctx context.Context, page, size int, orderBy string, filter ...Filter) ([]*Song, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * size
	vs := []*Song{}

	q := s.db.WithContext(ctx).Preload("Lyrics")
	q = q.Offset(offset).Limit(size)
	for _, f := range filter {
		q = q.Where(f.Query, f.Args...)
	}
	if orderBy != "" {
		q = q.Order(orderBy)
	}
	if err := q.Find(&vs).Error; err != nil {
		return nil, fmt.Errorf("storage: failed to list songs: %w", err)
	}
	return vs, nil
}
