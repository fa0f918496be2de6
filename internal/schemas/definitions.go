package schemas

import "github.com/MartinJHallberg/study-and-work-counselor/internal/types"

func stringList(description string) map[string]any {
	return map[string]any{
		"type":        "array",
		"description": description,
		"items":       map[string]any{"type": "string"},
	}
}

func nonEmptyStringList(description string) map[string]any {
	l := stringList(description)
	l["minItems"] = 1
	return l
}

// Profile is the extraction output. Unknown values are null or empty lists.
func Profile() Schema {
	desc := make(map[string]string)
	for _, f := range types.ProfileFieldDescriptions() {
		desc[f.Name] = f.Description
	}
	return Schema{
		Name:        "profile",
		Description: "Profile attributes mentioned in the conversation",
		Document: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"age": map[string]any{
					"type":        []string{"integer", "null"},
					"minimum":     0,
					"description": desc["age"],
				},
				"interests":                   stringList(desc["interests"]),
				"competencies":                stringList(desc["competencies"]),
				"personal_characteristics":    stringList(desc["personal_characteristics"]),
				"is_locally_focused":          map[string]any{"type": []string{"boolean", "null"}, "description": desc["is_locally_focused"]},
				"desired_job_characteristics": stringList(desc["desired_job_characteristics"]),
			},
		},
	}
}

// FollowUp is a message to the user plus the questions it asks.
func FollowUp() Schema {
	return Schema{
		Name:        "follow_up",
		Description: "Follow-up message and questions for missing profile information",
		Document: map[string]any{
			"type":     "object",
			"required": []string{"message", "questions"},
			"properties": map[string]any{
				"message":   map[string]any{"type": "string", "minLength": 1},
				"questions": nonEmptyStringList("Questions that fill in missing profile attributes"),
			},
		},
	}
}

// Recommendations is a batch of job recommendations with a profile summary.
func Recommendations() Schema {
	return Schema{
		Name:        "job_recommendations",
		Description: "Recommended jobs for a completed profile",
		Document: map[string]any{
			"type":     "object",
			"required": []string{"summary", "recommendations"},
			"properties": map[string]any{
				"summary": map[string]any{"type": "string"},
				"recommendations": map[string]any{
					"type":     "array",
					"minItems": 1,
					"items": map[string]any{
						"type":     "object",
						"required": []string{"name", "description", "education", "profile_match"},
						"properties": map[string]any{
							"name":          map[string]any{"type": "string", "minLength": 1},
							"description":   map[string]any{"type": "string"},
							"education":     stringList("Educations that lead to the job"),
							"profile_match": map[string]any{"type": "string"},
						},
					},
				},
			},
		},
	}
}

// ResearchQueries is the batch of research questions for one job.
func ResearchQueries() Schema {
	return Schema{
		Name:        "research_queries",
		Description: "Research questions about a job",
		Document: map[string]any{
			"type":     "object",
			"required": []string{"queries"},
			"properties": map[string]any{
				"queries": nonEmptyStringList("Distinct research questions"),
			},
		},
	}
}

// SearchPlan is the list of web search terms for one research question.
func SearchPlan() Schema {
	return Schema{
		Name:        "search_plan",
		Description: "Web search terms that answer a research question",
		Document: map[string]any{
			"type":     "object",
			"required": []string{"terms"},
			"properties": map[string]any{
				"terms": stringList("Search engine queries, may be empty"),
			},
		},
	}
}

// All returns every schema by name.
func All() map[string]Schema {
	out := make(map[string]Schema)
	for _, s := range []Schema{Profile(), FollowUp(), Recommendations(), ResearchQueries(), SearchPlan()} {
		out[s.Name] = s
	}
	return out
}
