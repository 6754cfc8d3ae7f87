package profile

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Profile is the single owner record shown in the hero and about sections.
type Profile struct {
	ID              string     `json:"id" yaml:"-" gorm:"primaryKey;size:36"`
	Name            string     `json:"name" yaml:"name" gorm:"not null"`
	Title           string     `json:"title" yaml:"title" gorm:"not null"`
	Bio             Paragraphs `json:"bio" yaml:"bio" gorm:"type:text"`
	ProfileImageURL string     `json:"profileImageUrl,omitempty" yaml:"profileImageUrl"`
	CreatedAt       time.Time  `json:"createdAt" yaml:"-"`
	UpdatedAt       time.Time  `json:"updatedAt" yaml:"-"`
}

func (Profile) TableName() string { return "profiles" }

func (p *Profile) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// Skill is one named skill, optionally grouped under a category.
type Skill struct {
	ID        string    `json:"id" yaml:"-" gorm:"primaryKey;size:36"`
	Name      string    `json:"name" yaml:"name" gorm:"not null"`
	Category  string    `json:"category,omitempty" yaml:"category"`
	SortOrder int       `json:"order" yaml:"order" gorm:"column:sort_order;index"`
	CreatedAt time.Time `json:"createdAt" yaml:"-"`
}

func (Skill) TableName() string { return "skills" }

func (s *Skill) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// WorkExperience is a position held at a company.
type WorkExperience struct {
	ID             string     `json:"id" yaml:"-" gorm:"primaryKey;size:36"`
	CompanyName    string     `json:"companyName" yaml:"company" gorm:"not null"`
	CompanyLogoURL string     `json:"companyLogoUrl,omitempty" yaml:"logoUrl"`
	Position       string     `json:"position" yaml:"position" gorm:"not null"`
	Description    string     `json:"description,omitempty" yaml:"description" gorm:"type:text"`
	StartDate      time.Time  `json:"startDate" yaml:"start"`
	EndDate        *time.Time `json:"endDate,omitempty" yaml:"end"`
	IsCurrent      bool       `json:"isCurrent" yaml:"current"`
	SortOrder      int        `json:"order" yaml:"order" gorm:"column:sort_order;index"`
	CreatedAt      time.Time  `json:"createdAt" yaml:"-"`
}

func (WorkExperience) TableName() string { return "work_experiences" }

func (w *WorkExperience) BeforeCreate(*gorm.DB) error {
	ensureID(&w.ID)
	return nil
}

// Education is a degree or program at an institution.
type Education struct {
	ID                 string     `json:"id" yaml:"-" gorm:"primaryKey;size:36"`
	InstitutionName    string     `json:"institutionName" yaml:"institution" gorm:"not null"`
	InstitutionLogoURL string     `json:"institutionLogoUrl,omitempty" yaml:"logoUrl"`
	Degree             string     `json:"degree" yaml:"degree" gorm:"not null"`
	Field              string     `json:"field,omitempty" yaml:"field"`
	Description        string     `json:"description,omitempty" yaml:"description" gorm:"type:text"`
	StartDate          time.Time  `json:"startDate" yaml:"start"`
	EndDate            *time.Time `json:"endDate,omitempty" yaml:"end"`
	SortOrder          int        `json:"order" yaml:"order" gorm:"column:sort_order;index"`
	CreatedAt          time.Time  `json:"createdAt" yaml:"-"`
}

func (Education) TableName() string { return "educations" }

func (e *Education) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

// NoteSection groups free-form agent notes in the system prompt.
type NoteSection string

const (
	NoteCourses      NoteSection = "courses"
	NotePersonal     NoteSection = "personal"
	NoteInstructions NoteSection = "instructions"
)

// AgentNote is a line of extra context the chat agent should know, such as
// a completed course, a personal detail, or an answering rule.
type AgentNote struct {
	ID        string      `json:"id" yaml:"-" gorm:"primaryKey;size:36"`
	Section   NoteSection `json:"section" yaml:"section" gorm:"size:32;index"`
	Content   string      `json:"content" yaml:"content" gorm:"type:text;not null"`
	SortOrder int         `json:"order" yaml:"order" gorm:"column:sort_order;index"`
	CreatedAt time.Time   `json:"createdAt" yaml:"-"`
}

func (AgentNote) TableName() string { return "agent_notes" }

func (n *AgentNote) BeforeCreate(*gorm.DB) error {
	ensureID(&n.ID)
	return nil
}

// Data is everything the site and the chat agent know about the owner.
type Data struct {
	Profile        *Profile
	Skills         []Skill
	WorkExperience []WorkExperience
	Education      []Education
	Notes          []AgentNote
}

// Models lists every table owned by this package, for migrations.
func Models() []any {
	return []any{&Profile{}, &Skill{}, &WorkExperience{}, &Education{}, &AgentNote{}}
}

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
