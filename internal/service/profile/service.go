// Package profile loads the owner's profile for the site and the chat agent.
package profile

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/cvdeck/cv-deck/backend/internal/apperr"
	profileModel "github.com/cvdeck/cv-deck/backend/internal/model/profile"
)

// Repository is the read side of the profile tables.
type Repository interface {
	GetProfile(ctx context.Context) (*profileModel.Profile, error)
	ListSkills(ctx context.Context) ([]profileModel.Skill, error)
	ListWorkExperience(ctx context.Context) ([]profileModel.WorkExperience, error)
	ListEducation(ctx context.Context) ([]profileModel.Education, error)
	ListAgentNotes(ctx context.Context) ([]profileModel.AgentNote, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Load fetches every profile table concurrently. Any failure fails the whole
// load with a DatabaseError.
func (s *Service) Load(ctx context.Context) (profileModel.Data, error) {
	var data profileModel.Data
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		data.Profile, err = s.repo.GetProfile(gctx)
		return err
	})
	g.Go(func() (err error) {
		data.Skills, err = s.repo.ListSkills(gctx)
		return err
	})
	g.Go(func() (err error) {
		data.WorkExperience, err = s.repo.ListWorkExperience(gctx)
		return err
	})
	g.Go(func() (err error) {
		data.Education, err = s.repo.ListEducation(gctx)
		return err
	})
	g.Go(func() (err error) {
		data.Notes, err = s.repo.ListAgentNotes(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return profileModel.Data{}, apperr.Database("Failed to fetch profile data", err)
	}
	return data, nil
}

// Page loads the profile shaped for the public site.
func (s *Service) Page(ctx context.Context) (profileModel.Page, error) {
	data, err := s.Load(ctx)
	if err != nil {
		return profileModel.Page{}, err
	}
	return profileModel.NewPage(data), nil
}
