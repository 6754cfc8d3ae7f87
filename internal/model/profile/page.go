package profile

// OtherCategory holds skills saved without a category.
const OtherCategory = "Other"

// SkillGroup is a category with its skills in display order.
type SkillGroup struct {
	Category string   `json:"category"`
	Skills   []string `json:"skills"`
}

// GroupSkills groups skills by category, keeping the order in which each
// category first appears.
func GroupSkills(skills []Skill) []SkillGroup {
	var groups []SkillGroup
	index := make(map[string]int)
	for _, s := range skills {
		category := s.Category
		if category == "" {
			category = OtherCategory
		}
		i, ok := index[category]
		if !ok {
			i = len(groups)
			index[category] = i
			groups = append(groups, SkillGroup{Category: category})
		}
		groups[i].Skills = append(groups[i].Skills, s.Name)
	}
	return groups
}

// Page is the public JSON document rendered by the site sections.
type Page struct {
	Hero       Hero             `json:"hero"`
	About      About            `json:"about"`
	Experience []WorkExperience `json:"experience"`
	Education  []Education      `json:"education"`
	Skills     []SkillGroup     `json:"skills"`
}

type Hero struct {
	Name            string `json:"name"`
	Title           string `json:"title"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
}

type About struct {
	Bio Paragraphs `json:"bio"`
}

// NewPage shapes d for the site.
func NewPage(d Data) Page {
	page := Page{
		About:      About{Bio: Paragraphs{}},
		Experience: nonNil(d.WorkExperience),
		Education:  nonNil(d.Education),
		Skills:     nonNil(GroupSkills(d.Skills)),
	}
	if d.Profile != nil {
		page.Hero = Hero{
			Name:            d.Profile.Name,
			Title:           d.Profile.Title,
			ProfileImageURL: d.Profile.ProfileImageURL,
		}
		if d.Profile.Bio != nil {
			page.About.Bio = d.Profile.Bio
		}
	}
	return page
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
