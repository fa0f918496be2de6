// Package types defines the data structures shared by the counseling workflows.
package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Profile is the structured representation of a user built up during profiling.
// Nil pointers and empty lists mean the value is not known yet.
type Profile struct {
	Age                       *int     `json:"age"`
	Interests                 []string `json:"interests"`
	Competencies              []string `json:"competencies"`
	PersonalCharacteristics   []string `json:"personal_characteristics"`
	IsLocallyFocused          *bool    `json:"is_locally_focused"`
	DesiredJobCharacteristics []string `json:"desired_job_characteristics"`
	IsProfileComplete         bool     `json:"is_profile_complete"`
}

// ProfileField describes one profile attribute for prompts.
type ProfileField struct {
	Name        string
	Description string
}

// ProfileFieldDescriptions returns the profile attributes in declaration order.
func ProfileFieldDescriptions() []ProfileField {
	return []ProfileField{
		{Name: "age", Description: "The age of the user"},
		{Name: "interests", Description: "The interests of the user"},
		{Name: "competencies", Description: "The competencies of the user"},
		{Name: "personal_characteristics", Description: "The personal characteristics of the user"},
		{Name: "is_locally_focused", Description: "Whether the user is focused on local opportunities"},
		{Name: "desired_job_characteristics", Description: "The job characteristics the user is looking for"},
	}
}

// MissingFields returns the names of every attribute that is still unknown.
func (p *Profile) MissingFields() []string {
	if p == nil {
		names := make([]string, 0, 6)
		for _, f := range ProfileFieldDescriptions() {
			names = append(names, f.Name)
		}
		return names
	}

	var missing []string
	if p.Age == nil {
		missing = append(missing, "age")
	}
	if len(p.Interests) == 0 {
		missing = append(missing, "interests")
	}
	if len(p.Competencies) == 0 {
		missing = append(missing, "competencies")
	}
	if len(p.PersonalCharacteristics) == 0 {
		missing = append(missing, "personal_characteristics")
	}
	if p.IsLocallyFocused == nil {
		missing = append(missing, "is_locally_focused")
	}
	if len(p.DesiredJobCharacteristics) == 0 {
		missing = append(missing, "desired_job_characteristics")
	}
	return missing
}

// Complete reports whether every attribute other than IsProfileComplete is known.
// An empty list counts as unknown.
func (p *Profile) Complete() bool {
	return p != nil && len(p.MissingFields()) == 0
}

// MergeProfile fills prev with the known values of next. A known value in next
// replaces the previous one; an unknown value never clears a known one.
// The result has IsProfileComplete recomputed.
func MergeProfile(prev, next *Profile) *Profile {
	merged := prev.Clone()
	if merged == nil {
		merged = &Profile{}
	}
	if next != nil {
		if next.Age != nil {
			age := *next.Age
			merged.Age = &age
		}
		if len(next.Interests) > 0 {
			merged.Interests = cloneStrings(next.Interests)
		}
		if len(next.Competencies) > 0 {
			merged.Competencies = cloneStrings(next.Competencies)
		}
		if len(next.PersonalCharacteristics) > 0 {
			merged.PersonalCharacteristics = cloneStrings(next.PersonalCharacteristics)
		}
		if next.IsLocallyFocused != nil {
			local := *next.IsLocallyFocused
			merged.IsLocallyFocused = &local
		}
		if len(next.DesiredJobCharacteristics) > 0 {
			merged.DesiredJobCharacteristics = cloneStrings(next.DesiredJobCharacteristics)
		}
	}
	merged.IsProfileComplete = merged.Complete()
	return merged
}

// Clone returns a deep copy of the profile.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	out := &Profile{
		Interests:                 cloneStrings(p.Interests),
		Competencies:              cloneStrings(p.Competencies),
		PersonalCharacteristics:   cloneStrings(p.PersonalCharacteristics),
		DesiredJobCharacteristics: cloneStrings(p.DesiredJobCharacteristics),
		IsProfileComplete:         p.IsProfileComplete,
	}
	if p.Age != nil {
		age := *p.Age
		out.Age = &age
	}
	if p.IsLocallyFocused != nil {
		local := *p.IsLocallyFocused
		out.IsLocallyFocused = &local
	}
	return out
}

// PromptString renders the profile one attribute per line, e.g. "Age: 25".
func (p *Profile) PromptString() string {
	if p == nil {
		p = &Profile{}
	}

	lines := []string{
		"Age: " + formatAge(p.Age),
		"Interests: " + formatList(p.Interests),
		"Competencies: " + formatList(p.Competencies),
		"Personal Characteristics: " + formatList(p.PersonalCharacteristics),
		"Is Locally Focused: " + formatBool(p.IsLocallyFocused),
		"Desired Job Characteristics: " + formatList(p.DesiredJobCharacteristics),
	}
	return strings.Join(lines, "\n")
}

// String implements fmt.Stringer.
func (p *Profile) String() string {
	return fmt.Sprintf("Profile{complete=%t, missing=%v}", p.Complete(), p.MissingFields())
}

const unknownValue = "Unknown"

func formatAge(age *int) string {
	if age == nil {
		return unknownValue
	}
	return strconv.Itoa(*age)
}

func formatList(values []string) string {
	if len(values) == 0 {
		return unknownValue
	}
	return strings.Join(values, ", ")
}

func formatBool(value *bool) string {
	if value == nil {
		return unknownValue
	}
	if *value {
		return "Yes"
	}
	return "No"
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
