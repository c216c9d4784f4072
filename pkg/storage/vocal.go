package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type VocalJob struct {
	ID        string    `gorm:"primarykey" json:"id" yaml:"id" csv:"id"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at" csv:"created_at"`
	UpdatedAt time.Time `json:"-" yaml:"-" csv:"-"`

	OriginalURL  string `gorm:"not null;default:''" json:"original_url" yaml:"original_url" csv:"original_url"`
	ConvertedURL string `gorm:"not null;default:''" json:"converted_url" yaml:"converted_url" csv:"converted_url"`
	TargetVoice  string `gorm:"index;not null;default:''" json:"target_voice" yaml:"target_voice" csv:"target_voice"`
	Status       string `gorm:"not null;default:''" json:"status" yaml:"status" csv:"status"`
	Demo         bool   `gorm:"index;not null;default:false" json:"demo" yaml:"demo" csv:"demo"`
}

func (s *Store) GetVocalJob(ctx context.Context, id string) (*VocalJob, error) {
	var v VocalJob
	if err := s.db.WithContext(ctx).First(&v, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: failed to get vocal job %s: %w", id, err)
	}
	return &v, nil
}

func (s *Store) SetVocalJob(ctx context.Context, v *VocalJob) error {
	if err := s.db.WithContext(ctx).Save(v).Error; err != nil {
		return fmt.Errorf("storage: failed to set vocal job %s: %w", v.ID, err)
	}
	return nil
}

func (s *Store) ListVocalJobs(ctx context.Context, page, size int, orderBy string, filter ...Filter) ([]*VocalJob, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * size
	vs := []*VocalJob{}

	q := s.db.WithContext(ctx).Offset(offset).Limit(size)
	for _, f := range filter {
		q = q.Where(f.Query, f.Args...)
	}
	if orderBy != "" {
		q = q.Order(orderBy)
	}
	if err := q.Find(&vs).Error; err != nil {
		return nil, fmt.Errorf("storage: failed to list vocal jobs: %w", err)
	}
	return vs, nil
}
