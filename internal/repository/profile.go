package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/cvdeck/cv-deck/backend/internal/apperr"
	"github.com/cvdeck/cv-deck/backend/internal/model/profile"
)

// ProfileRepository reads and seeds the owner's profile tables.
type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetProfile returns the profile row, or nil when none has been seeded.
func (r *ProfileRepository) GetProfile(ctx context.Context) (*profile.Profile, error) {
	var p profile.Profile
	err := r.db.WithContext(ctx).Order("created_at ASC").Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Database("Failed to fetch profile", err)
	}
	return &p, nil
}

func (r *ProfileRepository) ListSkills(ctx context.Context) ([]profile.Skill, error) {
	var skills []profile.Skill
	if err := r.db.WithContext(ctx).Order("sort_order ASC").Find(&skills).Error; err != nil {
		return nil, apperr.Database("Failed to fetch skills", err)
	}
	return skills, nil
}

func (r *ProfileRepository) ListWorkExperience(ctx context.Context) ([]profile.WorkExperience, error) {
	var work []profile.WorkExperience
	if err := r.db.WithContext(ctx).Order("sort_order ASC").Find(&work).Error; err != nil {
		return nil, apperr.Database("Failed to fetch work experience", err)
	}
	return work, nil
}

func (r *ProfileRepository) ListEducation(ctx context.Context) ([]profile.Education, error) {
	var education []profile.Education
	if err := r.db.WithContext(ctx).Order("sort_order ASC").Find(&education).Error; err != nil {
		return nil, apperr.Database("Failed to fetch education", err)
	}
	return education, nil
}

func (r *ProfileRepository) ListAgentNotes(ctx context.Context) ([]profile.AgentNote, error) {
	var notes []profile.AgentNote
	if err := r.db.WithContext(ctx).Order("section ASC, sort_order ASC").Find(&notes).Error; err != nil {
		return nil, apperr.Database("Failed to fetch agent notes", err)
	}
	return notes, nil
}

// IsEmpty reports whether no profile has been seeded yet.
func (r *ProfileRepository) IsEmpty(ctx context.Context) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&profile.Profile{}).Count(&count).Error; err != nil {
		return false, apperr.Database("Failed to count profiles", err)
	}
	return count == 0, nil
}

// ReplaceAll swaps every profile table's content for d in one transaction.
func (r *ProfileRepository) ReplaceAll(ctx context.Context, d profile.Data) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range profile.Models() {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
				return err
			}
		}
		if d.Profile != nil {
			if err := tx.Create(d.Profile).Error; err != nil {
				return err
			}
		}
		if err := createAll(tx, d.Skills); err != nil {
			return err
		}
		if err := createAll(tx, d.WorkExperience); err != nil {
			return err
		}
		if err := createAll(tx, d.Education); err != nil {
			return err
		}
		return createAll(tx, d.Notes)
	})
	if err != nil {
		return apperr.Database("Failed to seed profile", err)
	}
	return nil
}

func createAll[T any](tx *gorm.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	return tx.Create(&rows).Error
}
