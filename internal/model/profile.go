package model

import (
	"slices"
	"sort"
)

// Profile is the job seeker's stored profile.
type Profile struct {
	UserID     string              `json:"user_id" mapstructure:"user_id" validate:"required"`
	Personal   Personal            `json:"personal" mapstructure:"personal"`
	Summary    string              `json:"summary,omitempty" mapstructure:"summary"`
	Skills     map[string][]string `json:"skills" mapstructure:"skills" validate:"required,min=1,dive,keys,required,endkeys,dive,required"`
	Experience []Entry             `json:"experience,omitempty" mapstructure:"experience" validate:"dive"`
	Education  []Entry             `json:"education,omitempty" mapstructure:"education" validate:"dive"`
	Projects   []Entry             `json:"projects,omitempty" mapstructure:"projects" validate:"dive"`
}

type Personal struct {
	Name     string `json:"name" mapstructure:"name" validate:"required"`
	Email    string `json:"email,omitempty" mapstructure:"email" validate:"omitempty,email"`
	Phone    string `json:"phone,omitempty" mapstructure:"phone"`
	Location string `json:"location,omitempty" mapstructure:"location"`
	LinkedIn string `json:"linkedin,omitempty" mapstructure:"linkedin"`
	GitHub   string `json:"github,omitempty" mapstructure:"github"`
}

// Entry is a free-text section item: a position, a degree or a project.
type Entry struct {
	Title        string `json:"title" mapstructure:"title" validate:"required"`
	Organization string `json:"organization,omitempty" mapstructure:"organization"`
	Period       string `json:"period,omitempty" mapstructure:"period"`
	Description  string `json:"description,omitempty" mapstructure:"description"`
}

// ProfileMeta is the listing view of a stored profile.
type ProfileMeta struct {
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

// SkillCategories returns the skill category names in a stable order.
func (p *Profile) SkillCategories() []string {
	if p == nil {
		return nil
	}
	categories := make([]string, 0, len(p.Skills))
	for category := range p.Skills {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	return categories
}

// FlatSkills returns every skill of every category, categories in stable order.
func (p *Profile) FlatSkills() []string {
	var skills []string
	for _, category := range p.SkillCategories() {
		skills = append(skills, p.Skills[category]...)
	}
	return skills
}

// Clone returns a deep copy of the profile.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	out := *p
	if p.Skills != nil {
		out.Skills = make(map[string][]string, len(p.Skills))
		for category, skills := range p.Skills {
			out.Skills[category] = slices.Clone(skills)
		}
	}
	out.Experience = slices.Clone(p.Experience)
	out.Education = slices.Clone(p.Education)
	out.Projects = slices.Clone(p.Projects)
	return &out
}
