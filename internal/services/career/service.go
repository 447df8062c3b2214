// Package career builds personalized career roadmaps.
package career

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/guidify/constants"
	"github.com/joseph-ayodele/guidify/internal/async"
	"github.com/joseph-ayodele/guidify/internal/common"
	"github.com/joseph-ayodele/guidify/internal/llm"
)

// RoadmapKeys must be present in every roadmap returned.
var RoadmapKeys = []string{"title", "summary", "steps"}

// RoadmapStore persists the latest roadmap on the user's profile.
type RoadmapStore interface {
	SaveRoadmap(ctx context.Context, userID string, roadmap map[string]any, readiness *int) error
}

type RoadmapRequest struct {
	UserID            string
	Stream            string
	Career            string
	Level             string // default "Beginner"
	AvailabilityHours string // default "10"
}

type Service struct {
	gw     *llm.Gateway
	store  RoadmapStore
	queue  async.Queue
	logger *slog.Logger
}

// NewService wires the roadmap generator. store and queue may be nil, in
// which case roadmaps are not persisted.
func NewService(gw *llm.Gateway, store RoadmapStore, queue async.Queue, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{gw: gw, store: store, queue: queue, logger: logger}
}

// Roadmap always returns a payload with RoadmapKeys. fallback reports
// whether the offline roadmap was used.
func (s *Service) Roadmap(ctx context.Context, req RoadmapRequest) (roadmap map[string]any, fallback bool, err error) {
	req, err = normalizeRequest(req)
	if err != nil {
		return nil, false, err
	}

	out := s.gw.Invoke(ctx, llm.Request{
		Name:         "roadmap",
		Prompt:       roadmapPrompt(req),
		RequiredKeys: RoadmapKeys,
	}, func() map[string]any { return OfflineRoadmap(req.Career) })

	s.persist(ctx, req.UserID, out.Payload)
	return out.Payload, out.Fallback, nil
}

// StreamRoadmap emits the roadmap text as the backend generates it. The
// streamed text is not validated or persisted. Without a backend the
// offline roadmap is sent as a single JSON chunk.
func (s *Service) StreamRoadmap(ctx context.Context, req RoadmapRequest, onChunk func(string) error) error {
	req, err := normalizeRequest(req)
	if err != nil {
		return err
	}
	err = s.gw.Stream(ctx, llm.Request{Name: "roadmap.stream", Prompt: roadmapPrompt(req)}, onChunk)
	if !errors.Is(err, llm.ErrNoBackend) {
		return err
	}
	s.logger.Info("career.roadmap.stream_offline", "career", req.Career)
	offline, err := json.Marshal(OfflineRoadmap(req.Career))
	if err != nil {
		return fmt.Errorf("encode offline roadmap: %w", err)
	}
	return onChunk(string(offline))
}

func normalizeRequest(req RoadmapRequest) (RoadmapRequest, error) {
	v := common.NewValidator().
		Field("target_career", req.Career, common.Required, common.MaxLength(120)).
		Field("current_subjects", req.Stream, common.MaxLength(200))
	if err := common.ValidateAndReturnError(v); err != nil {
		return req, err
	}
	if strings.TrimSpace(req.Level) == "" {
		req.Level = "Beginner"
	}
	if strings.TrimSpace(req.AvailabilityHours) == "" {
		req.AvailabilityHours = "10"
	}
	return req, nil
}

func (s *Service) persist(ctx context.Context, userID string, roadmap map[string]any) {
	if userID == "" || s.store == nil || s.queue == nil {
		return
	}
	err := s.queue.Enqueue(ctx, async.Job{
		Name: "roadmap.save",
		Key:  userID,
		Run: func(ctx context.Context) error {
			return s.store.SaveRoadmap(ctx, userID, roadmap, nil)
		},
	})
	if err != nil {
		s.logger.Warn("career.roadmap.persist_skipped", "user_id", userID, "error", err)
	}
}

// OfflineRoadmap is the four-step plan used when generation fails.
func OfflineRoadmap(career string) map[string]any {
	step := func(title, description, duration string, kind constants.StepType) map[string]any {
		return map[string]any{"title": title, "description": description, "duration": duration, "type": string(kind)}
	}
	return map[string]any{
		"title":   fmt.Sprintf("Roadmap to %s (Offline Mode)", career),
		"summary": "We couldn't generate a live plan, but here is a standard path.",
		"steps": []any{
			step("Foundations", fmt.Sprintf("Master the core concepts of %s. Recommended: Coursera Specializations.", career), "2 months", constants.StepCourse),
			step("First Project", "Build a portfolio project to demonstrate your skills.", "1 month", constants.StepProject),
			step("Advanced Specialization", "Deep dive into a specific niche within the field.", "3 months", constants.StepCourse),
			step("Professional Networking", "Optimize LinkedIn and connect with industry professionals.", "4+ months", constants.StepMilestone),
		},
	}
}

func roadmapPrompt(req RoadmapRequest) string {
	return fmt.Sprintf(`You are an elite career strategist and technical mentor.

User Profile:
- Current Background: %[1]s
- Target Career: %[2]s
- Current Proficiency: %[3]s
- Weekly Availability: %[4]s hours

Create a master career roadmap tailored to this user. Adjust the timeline to %[4]s hours per week.
Steps must be actionable, progressive from %[3]s to %[2]s, and name specific courses, books or tools.

Return a JSON object with this exact structure:
{
  "title": "Master Plan: %[2]s",
  "summary": "A strategy summary tailored to a background in %[1]s",
  "steps": [
    {"title": "Phase 1: ...", "description": "...", "duration": "X months", "type": "course"}
  ]
}
Include 5 to 7 steps. "type" is one of: %[5]s.
Output JSON only.`,
		req.Stream, req.Career, req.Level, req.AvailabilityHours, strings.Join(constants.StepTypes(), ", "))
}
