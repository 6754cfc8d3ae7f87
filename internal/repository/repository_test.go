package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"github.com/cvdeck/cv-deck/backend/internal/apperr"
	"github.com/cvdeck/cv-deck/backend/internal/config"
	"github.com/cvdeck/cv-deck/backend/internal/model/contact"
	"github.com/cvdeck/cv-deck/backend/internal/model/profile"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(config.DatabaseConfig{
		Driver: "sqlite",
		URL:    filepath.Join(t.TempDir(), "test.db"),
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func date(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func TestProfileRepositoryEmpty(t *testing.T) {
	repo := NewProfileRepository(openTestDB(t))
	ctx := context.Background()

	p, err := repo.GetProfile(ctx)
	require.NoError(t, err)
	assert.Nil(t, p)

	empty, err := repo.IsEmpty(ctx)
	require.NoError(t, err)
	assert.True(t, empty)

	skills, err := repo.ListSkills(ctx)
	require.NoError(t, err)
	assert.Empty(t, skills)
}

func TestProfileRepositoryReplaceAll(t *testing.T) {
	repo := NewProfileRepository(openTestDB(t))
	ctx := context.Background()

	data := profile.Data{
		Profile: &profile.Profile{Name: "Dana Levi", Title: "Engineer", Bio: profile.Paragraphs{"One.", "Two."}},
		Skills: []profile.Skill{
			{Name: "React", Category: "Frontend", SortOrder: 2},
			{Name: "Go", Category: "Backend", SortOrder: 1},
		},
		WorkExperience: []profile.WorkExperience{
			{CompanyName: "Acme", Position: "Engineer", StartDate: date(2020, time.March), IsCurrent: true},
		},
		Education: []profile.Education{
			{InstitutionName: "Tech U", Degree: "BSc", Field: "CS", StartDate: date(2014, time.October)},
		},
		Notes: []profile.AgentNote{
			{Section: profile.NoteInstructions, Content: "Keep it short", SortOrder: 1},
		},
	}
	require.NoError(t, repo.ReplaceAll(ctx, data))

	p, err := repo.GetProfile(ctx)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Dana Levi", p.Name)
	assert.Equal(t, profile.Paragraphs{"One.", "Two."}, p.Bio)
	assert.Len(t, p.ID, 36)

	skills, err := repo.ListSkills(ctx)
	require.NoError(t, err)
	require.Len(t, skills, 2)
	assert.Equal(t, "Go", skills[0].Name)

	work, err := repo.ListWorkExperience(ctx)
	require.NoError(t, err)
	require.Len(t, work, 1)
	assert.True(t, work[0].StartDate.Equal(date(2020, time.March)))

	// A second replace leaves only the new rows.
	require.NoError(t, repo.ReplaceAll(ctx, profile.Data{
		Profile: &profile.Profile{Name: "Dana Levi", Title: "Staff Engineer"},
	}))
	skills, err = repo.ListSkills(ctx)
	require.NoError(t, err)
	assert.Empty(t, skills)
	notes, err := repo.ListAgentNotes(ctx)
	require.NoError(t, err)
	assert.Empty(t, notes)
	p, err = repo.GetProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Staff Engineer", p.Title)
}

func TestProfileBioToleratesPlainText(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Exec(
		"INSERT INTO profiles (id, name, title, bio, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		"p1", "Dana", "Engineer", "Plain first.\n\nPlain second.", time.Now(), time.Now(),
	).Error)

	p, err := NewProfileRepository(db).GetProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, profile.Paragraphs{"Plain first.", "Plain second."}, p.Bio)
}

func TestContactRepositoryCreate(t *testing.T) {
	repo := NewContactRepository(openTestDB(t))
	ctx := context.Background()

	rec, err := repo.Create(ctx, contact.Record{Name: "Jane", Email: "jane@example.com", Message: "Hello there, friend"})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())

	recent, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, rec.ID, recent[0].ID)
}

func TestRepositoryErrorsAreDatabaseErrors(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Close(db))

	_, err := NewContactRepository(db).Create(context.Background(), contact.Record{Name: "x"})
	var dbErr *apperr.DatabaseError
	require.ErrorAs(t, err, &dbErr)
	assert.Equal(t, "Failed to create contact submission", dbErr.Message)
}
