package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/cvdeck/cv-deck/backend/internal/apperr"
	"github.com/cvdeck/cv-deck/backend/internal/model/contact"
)

// ContactRepository stores contact form submissions.
type ContactRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewContactRepository(db *gorm.DB) *ContactRepository {
	return &ContactRepository{db: db, now: time.Now}
}

// Create inserts rec and returns it with its generated id and timestamp.
func (r *ContactRepository) Create(ctx context.Context, rec contact.Record) (contact.Record, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return contact.Record{}, apperr.Database("Failed to create contact submission", err)
	}
	return rec, nil
}

// Recent lists the newest submissions first.
func (r *ContactRepository) Recent(ctx context.Context, limit int) ([]contact.Record, error) {
	var records []contact.Record
	if err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, apperr.Database("Failed to list contact submissions", err)
	}
	return records, nil
}
