package psychometric

// Option is one answer choice and the trait it signals.
type Option struct {
	Text        string `json:"text"`
	TraitImpact string `json:"trait_impact"`
}

type Question struct {
	QuestionText string   `json:"question_text"`
	QuestionType string   `json:"question_type"`
	Options      []Option `json:"options"`
	Reasoning    string   `json:"reasoning,omitempty"`
}

func multipleChoice(text string, opts ...Option) Question {
	return Question{QuestionText: text, QuestionType: "multiple_choice", Options: opts}
}

// Baseline returns the five static warm-up questions.
func Baseline() []Question {
	return []Question{
		multipleChoice("When you encounter a difficult problem, what is your first instinct?",
			Option{"Break it down into logical steps", "Analytical"},
			Option{"Ask others for their input", "Social"},
			Option{"Look for a creative workaround", "Creative"},
			Option{"Just dive in and learn by doing", "Action-Oriented"},
		),
		multipleChoice("How do you prefer to work on a project?",
			Option{"Alone, so I can focus deeply", "Introversion"},
			Option{"In a team, bouncing ideas off others", "Extroversion"},
			Option{"Leading the group and setting goals", "Leadership"},
			Option{"Following a clear plan set by others", "Conscientiousness"},
		),
		multipleChoice("What motivates you the most?",
			Option{"Achieving a high score or rank", "Achievement"},
			Option{"Understanding how things work", "Curiosity"},
			Option{"Helping others succeed", "Altruism"},
			Option{"Creating something unique", "Creativity"},
		),
		multipleChoice("If your plan fails, what do you do?",
			Option{"Analyze what went wrong and retry", "Resilience"},
			Option{"Feel discouraged and switch tasks", "Low Resilience"},
			Option{"Ask for help immediately", "Dependency"},
			Option{"Pivot to a completely new idea", "Adaptability"},
		),
		multipleChoice("Which environment makes you most productive?",
			Option{"A quiet room with no distractions", "Focus"},
			Option{"A busy cafe with background noise", "Stimulation"},
			Option{"A collaborative space with friends", "Social"},
			Option{"Outdoors or in nature", "Freedom"},
		),
	}
}

func fallbackAdaptive() map[string]any {
	q := multipleChoice("When working on a team project, what role do you naturally take?",
		Option{"The leader who organizes everything", "Leadership"},
		Option{"The creative who generates ideas", "Creativity"},
		Option{"The implementer who gets things done", "Conscientiousness"},
		Option{"The mediator who resolves conflicts", "Agreeableness"},
	)
	opts := make([]any, len(q.Options))
	for i, o := range q.Options {
		opts[i] = map[string]any{"text": o.Text, "trait_impact": o.TraitImpact}
	}
	return map[string]any{
		"question_text": q.QuestionText,
		"question_type": q.QuestionType,
		"options":       opts,
		"reasoning":     "Fallback question due to AI generation failure.",
	}
}

func fallbackAnalysis() map[string]any {
	return map[string]any{
		"traits": map[string]any{
			"Analytical": 75,
			"Creative":   65,
			"Social":     70,
			"Technical":  80,
			"Leadership": 60,
		},
		"summary":     "You are a balanced thinker with a strong aptitude for problem-solving and innovation.",
		"top_careers": []any{"Software Engineer", "Data Analyst", "Project Manager"},
	}
}
