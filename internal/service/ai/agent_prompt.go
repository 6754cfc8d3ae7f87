package ai

import (
	"fmt"
	"strings"

	profileModel "github.com/cvdeck/cv-deck/backend/internal/model/profile"
)

const periodLayout = "January 2006"

var defaultInstructions = []string{
	"Answer questions about my background, experience, and skills",
	"Be conversational and friendly",
	"If asked about something not in the provided context, politely say you don't have that information",
	"Keep responses concise but informative",
	"Always maintain a professional yet approachable tone",
	"Respond in plain text, not markdown. You can use emojis if you want to.",
	"Keep answers natural and human-like, up to 200 words long.",
	"If the question is not related to me, politely say you don't have that information.",
	"If the visitor wants to get in touch, ask for their name and an email address or phone number.",
}

// FallbackSystemPrompt is used when profile data cannot be loaded.
func FallbackSystemPrompt(agentName string) string {
	return fmt.Sprintf("You are %s Agent, a helpful AI assistant. Be friendly, professional, and concise in your responses.", agentName)
}

// BuildSystemPrompt renders everything the agent knows about the owner.
// The owner's profile name wins over agentName when present.
func BuildSystemPrompt(agentName string, d profileModel.Data) string {
	name := agentName
	if d.Profile != nil && strings.TrimSpace(d.Profile.Name) != "" {
		name = d.Profile.Name
	}
	notes := groupNotes(d.Notes)

	var b strings.Builder
	fmt.Fprintf(&b, "You are %s Agent, an AI assistant representing %s. You help answer questions about %s, their background, skills, experience, and projects. Be friendly, professional, and helpful in your responses.", name, name, name)
	fmt.Fprintf(&b, "\n\nIMPORTANT: You are representing %s. Always speak in first person when talking about %s's experiences, skills, or background. Be conversational and authentic.", name, name)

	writeProfile(&b, name, d.Profile)
	writeSkills(&b, d.Skills)
	writeWork(&b, d.WorkExperience)
	writeEducation(&b, d.Education, notes[profileModel.NoteCourses])

	if personal := notes[profileModel.NotePersonal]; len(personal) > 0 {
		b.WriteString("\n\n## Personal life")
		for _, line := range personal {
			b.WriteString("\n" + line)
		}
	}

	b.WriteString("\n\n## Instructions")
	for _, line := range append(append([]string(nil), defaultInstructions...), notes[profileModel.NoteInstructions]...) {
		b.WriteString("\n- " + line)
	}
	b.WriteString("\n")
	return b.String()
}

func writeProfile(b *strings.Builder, name string, p *profileModel.Profile) {
	if p == nil {
		return
	}
	fmt.Fprintf(b, "\n\n## About %s\nName: %s\nTitle: %s", name, p.Name, p.Title)
	if len(p.Bio) > 0 {
		b.WriteString("\n\nBio:\n" + p.Bio.String())
	}
}

func writeSkills(b *strings.Builder, skills []profileModel.Skill) {
	if len(skills) == 0 {
		return
	}
	b.WriteString("\n\n## Skills")
	for _, g := range profileModel.GroupSkills(skills) {
		fmt.Fprintf(b, "\n%s: %s", g.Category, strings.Join(g.Skills, ", "))
	}
}

func writeWork(b *strings.Builder, work []profileModel.WorkExperience) {
	if len(work) == 0 {
		return
	}
	b.WriteString("\n\n## Work Experience")
	for _, w := range work {
		fmt.Fprintf(b, "\n\n%s - %s", w.CompanyName, w.Position)
		if !w.StartDate.IsZero() {
			end := ""
			switch {
			case w.IsCurrent:
				end = "Present"
			case w.EndDate != nil:
				end = w.EndDate.Format(periodLayout)
			}
			fmt.Fprintf(b, "\nPeriod: %s", w.StartDate.Format(periodLayout))
			if end != "" {
				b.WriteString(" - " + end)
			}
		}
		if w.Description != "" {
			b.WriteString("\n" + w.Description)
		}
	}
}

func writeEducation(b *strings.Builder, education []profileModel.Education, courses []string) {
	if len(education) == 0 && len(courses) == 0 {
		return
	}
	b.WriteString("\n\n## Education")
	for _, e := range education {
		fmt.Fprintf(b, "\n\n%s - %s", e.InstitutionName, e.Degree)
		if e.Field != "" {
			b.WriteString(" in " + e.Field)
		}
		if !e.StartDate.IsZero() {
			end := "Present"
			if e.EndDate != nil {
				end = e.EndDate.Format(periodLayout)
			}
			fmt.Fprintf(b, "\nPeriod: %s - %s", e.StartDate.Format(periodLayout), end)
		}
		if e.Description != "" {
			b.WriteString("\n" + e.Description)
		}
	}
	for _, course := range courses {
		b.WriteString("\n" + course)
	}
}

func groupNotes(notes []profileModel.AgentNote) map[profileModel.NoteSection][]string {
	out := make(map[profileModel.NoteSection][]string)
	for _, n := range notes {
		if content := strings.TrimSpace(n.Content); content != "" {
			out[n.Section] = append(out[n.Section], content)
		}
	}
	return out
}
