// Package profileseed reads the YAML document that describes the site
// owner's profile.
package profileseed

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	profileModel "github.com/cvdeck/cv-deck/backend/internal/model/profile"
)

// Document is the on-disk layout. See configs/profile.example.yaml.
type Document struct {
	Profile    profileModel.Profile          `yaml:"profile"`
	Skills     []profileModel.Skill          `yaml:"skills"`
	Experience []profileModel.WorkExperience `yaml:"experience"`
	Education  []profileModel.Education      `yaml:"education"`
	Notes      []profileModel.AgentNote      `yaml:"notes"`
}

// LoadFile parses the document at path.
func LoadFile(path string) (profileModel.Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return profileModel.Data{}, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes and validates a document. Unknown keys are rejected, and
// entries without an explicit order keep their position in the list.
func Parse(r io.Reader) (profileModel.Data, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return profileModel.Data{}, fmt.Errorf("decode seed file: %w", err)
	}
	if err := doc.validate(); err != nil {
		return profileModel.Data{}, err
	}

	for i := range doc.Skills {
		defaultOrder(&doc.Skills[i].SortOrder, i)
	}
	for i := range doc.Experience {
		defaultOrder(&doc.Experience[i].SortOrder, i)
	}
	for i := range doc.Education {
		defaultOrder(&doc.Education[i].SortOrder, i)
	}
	for i := range doc.Notes {
		defaultOrder(&doc.Notes[i].SortOrder, i)
	}

	profile := doc.Profile
	return profileModel.Data{
		Profile:        &profile,
		Skills:         doc.Skills,
		WorkExperience: doc.Experience,
		Education:      doc.Education,
		Notes:          doc.Notes,
	}, nil
}

func defaultOrder(order *int, index int) {
	if *order == 0 {
		*order = index + 1
	}
}

func (d Document) validate() error {
	var errs []error
	missing := func(where, field string) {
		errs = append(errs, fmt.Errorf("%s: %s is required", where, field))
	}

	if blank(d.Profile.Name) {
		missing("profile", "name")
	}
	if blank(d.Profile.Title) {
		missing("profile", "title")
	}
	for i, s := range d.Skills {
		if blank(s.Name) {
			missing(fmt.Sprintf("skills[%d]", i), "name")
		}
	}
	for i, w := range d.Experience {
		where := fmt.Sprintf("experience[%d]", i)
		if blank(w.CompanyName) {
			missing(where, "company")
		}
		if blank(w.Position) {
			missing(where, "position")
		}
		if w.StartDate.IsZero() {
			missing(where, "start")
		}
		if w.IsCurrent && w.EndDate != nil {
			errs = append(errs, fmt.Errorf("%s: current positions have no end date", where))
		}
	}
	for i, e := range d.Education {
		where := fmt.Sprintf("education[%d]", i)
		if blank(e.InstitutionName) {
			missing(where, "institution")
		}
		if blank(e.Degree) {
			missing(where, "degree")
		}
	}
	for i, n := range d.Notes {
		where := fmt.Sprintf("notes[%d]", i)
		switch n.Section {
		case profileModel.NoteCourses, profileModel.NotePersonal, profileModel.NoteInstructions:
		default:
			errs = append(errs, fmt.Errorf("%s: unknown section %q", where, n.Section))
		}
		if blank(n.Content) {
			missing(where, "content")
		}
	}
	return errors.Join(errs...)
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }
