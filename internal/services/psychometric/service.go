// Package psychometric runs the personality assessment: static warm-up
// questions, generated follow-ups and the final analysis.
package psychometric

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/guidify/internal/async"
	"github.com/joseph-ayodele/guidify/internal/entity"
	"github.com/joseph-ayodele/guidify/internal/llm"
)

// MinQuizQuestions is the smallest generated quiz accepted.
const MinQuizQuestions = 5

var (
	AdaptiveKeys = []string{"question_text"}
	QuizKeys     = []string{"questions"}
	AnalysisKeys = []string{"traits", "summary", "top_careers"}
)

var quizSchema = map[string]any{
	"type":     "object",
	"required": []any{"questions"},
	"properties": map[string]any{
		"questions": map[string]any{"type": "array", "minItems": MinQuizQuestions},
	},
}

// PersonalityStore keeps the detailed analysis.
type PersonalityStore interface {
	Upsert(ctx context.Context, p entity.PersonalityProfile) error
}

// InsightsStore mirrors the analysis onto the profile for dashboards.
type InsightsStore interface {
	SaveCareerInsights(ctx context.Context, userID string, categoryScores map[string]any, suggestion string) error
}

type Service struct {
	gw          *llm.Gateway
	personality PersonalityStore
	insights    InsightsStore
	queue       async.Queue
	logger      *slog.Logger
	// retried in order when the analysis call fails in transport
	analysisFallbackModels []string
}

type ServiceOption func(*Service)

// WithAnalysisFallbackModels sets backup models for the final analysis.
func WithAnalysisFallbackModels(models ...string) ServiceOption {
	return func(s *Service) { s.analysisFallbackModels = models }
}

func NewService(gw *llm.Gateway, personality PersonalityStore, insights InsightsStore, queue async.Queue, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if queue == nil {
		queue = async.Inline{}
	}
	s := &Service{gw: gw, personality: personality, insights: insights, queue: queue, logger: logger}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Baseline() []Question { return Baseline() }

// Adaptive generates one follow-up question from the answers so far.
func (s *Service) Adaptive(ctx context.Context, history []map[string]any) map[string]any {
	out := s.gw.Invoke(ctx, llm.Request{
		Name:         "psychometric.adaptive",
		Prompt:       adaptivePrompt(history),
		RequiredKeys: AdaptiveKeys,
	}, fallbackAdaptive)
	return out.Payload
}

// Quiz generates a batch of questions for a profile, or {questions: []}
// when fewer than MinQuizQuestions come back.
func (s *Service) Quiz(ctx context.Context, profile map[string]any) map[string]any {
	out := s.gw.Invoke(ctx, llm.Request{
		Name:         "psychometric.quiz",
		Prompt:       quizPrompt(profile),
		RequiredKeys: QuizKeys,
		Schema:       quizSchema,
	}, func() map[string]any { return map[string]any{"questions": []any{}} })
	return out.Payload
}

// Analyze scores the full session and persists it in the background.
func (s *Service) Analyze(ctx context.Context, userID string, responses []map[string]any) map[string]any {
	out := s.gw.Invoke(ctx, llm.Request{
		Name:           "psychometric.analyze",
		FallbackModels: s.analysisFallbackModels,
		Prompt:         analysisPrompt(responses),
		RequiredKeys:   AnalysisKeys,
	}, fallbackAnalysis)

	if userID != "" {
		s.persist(ctx, userID, out.Payload)
	}
	return out.Payload
}

func (s *Service) persist(ctx context.Context, userID string, analysis map[string]any) {
	traits, _ := analysis["traits"].(map[string]any)
	summary, _ := analysis["summary"].(string)
	careers, _ := analysis["top_careers"].([]any)

	err := s.queue.Enqueue(ctx, async.Job{
		Name: "personality.save",
		Key:  userID,
		Run: func(ctx context.Context) error {
			if s.personality != nil {
				if err := s.personality.Upsert(ctx, entity.PersonalityProfile{
					UserID:     userID,
					Traits:     traits,
					Summary:    summary,
					TopCareers: careers,
					Raw:        analysis,
				}); err != nil {
					return fmt.Errorf("save personality profile: %w", err)
				}
			}
			if s.insights != nil {
				if err := s.insights.SaveCareerInsights(ctx, userID, traits, summary); err != nil {
					return fmt.Errorf("mirror career insights: %w", err)
				}
			}
			return nil
		},
	})
	if err != nil {
		s.logger.Warn("psychometric.analyze.persist_failed", "user_id", userID, "error", err)
	}
}

func historyJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(b)
}

func adaptivePrompt(history []map[string]any) string {
	return fmt.Sprintf(`You are an expert psychometrician. Here is the user's Q&A history so far:
%s

Generate ONE new multiple-choice question to probe deeper into an area where the user's personality is still ambiguous.
Focus on: Grit, Resilience, Openness, or Emotional Intelligence.

Return a JSON object (not an array) with:
- "question_text": the question
- "options": 4 options, each with "text" and "trait_impact"
- "question_type": "multiple_choice"
- "reasoning": why you asked this question`, historyJSON(history))
}

func quizPrompt(profile map[string]any) string {
	return fmt.Sprintf(`You are an expert career counselor and psychometrician.
User Profile: %s

Generate 10 psychometric multiple-choice questions to assess this student's aptitude, personality and career interests.
Return a JSON object with a key "questions" containing the list. Each question has "question_text",
"options" (4 objects with "text" and "trait_impact") and "question_type": "multiple_choice".
Output JSON only.`, historyJSON(profile))
}

func analysisPrompt(responses []map[string]any) string {
	return fmt.Sprintf(`You are a behavioral psychologist. Analyze this Q&A session from a student:
%s

Return a JSON object:
{
  "traits": {"Analytical": 0-100, "Creative": 0-100, "Social": 0-100, "Technical": 0-100, "Leadership": 0-100},
  "summary": "One sentence summary",
  "top_careers": ["...", "...", "..."]
}`, historyJSON(responses))
}
