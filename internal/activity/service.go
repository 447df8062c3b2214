package activity

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/guidify/internal/common"
	"github.com/joseph-ayodele/guidify/internal/metrics"
)

// Store reads and writes the activity columns of a user's profile. Load
// returns a zero Record for an unknown user; Save creates the profile.
type Store interface {
	LoadActivity(ctx context.Context, userID string) (Record, error)
	SaveActivity(ctx context.Context, userID string, r Record) error
	LoadRoadmap(ctx context.Context, userID string) (map[string]any, error)
	SaveRoadmap(ctx context.Context, userID string, roadmap map[string]any, readiness *int) error
}

type Service struct {
	store   Store
	locks   *keyedMutex
	now     func() time.Time
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(store Store, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{store: store, locks: newKeyedMutex(), now: time.Now, logger: logger}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Login applies a login event and returns the updated record.
func (s *Service) Login(ctx context.Context, userID string) (Record, error) {
	r, err := s.update(ctx, userID, "login", func(r Record, now time.Time) Record {
		return ApplyLogin(r, now)
	})
	if err != nil {
		return Record{}, err
	}
	s.logger.Info("activity.login.ok", "user_id", userID, "streak", r.Streak)
	return r, nil
}

// LogEvent adds weight to today's heatmap count.
func (s *Service) LogEvent(ctx context.Context, userID string, weight int) (Record, error) {
	if weight <= 0 {
		return Record{}, common.InvalidArgumentErrorf("weight must be positive, got %d", weight)
	}
	r, err := s.update(ctx, userID, "event", func(r Record, now time.Time) Record {
		return ApplyWeightedEvent(r, now, weight)
	})
	if err != nil {
		return Record{}, err
	}
	s.logger.Info("activity.event.ok", "user_id", userID, "weight", weight)
	return r, nil
}

func (s *Service) update(ctx context.Context, userID, kind string, apply func(Record, time.Time) Record) (Record, error) {
	if userID == "" {
		return Record{}, common.InvalidArgumentError("user id is required")
	}
	unlock := s.locks.Lock(userID)
	defer unlock()

	cur, err := s.store.LoadActivity(ctx, userID)
	if err != nil {
		s.logger.Error("activity.load.error", "user_id", userID, "error", err)
		return Record{}, common.DatabaseError("failed to load activity", err)
	}
	next := apply(Migrate(cur), s.now())
	if err := s.store.SaveActivity(ctx, userID, next); err != nil {
		s.logger.Error("activity.save.error", "user_id", userID, "error", err)
		return Record{}, common.DatabaseError("failed to save activity", err)
	}
	s.metrics.Activity(kind)
	return next, nil
}

// CompleteTasks stores the roadmap and its readiness score.
func (s *Service) CompleteTasks(ctx context.Context, userID string, roadmap map[string]any) (int, error) {
	if userID == "" {
		return 0, common.InvalidArgumentError("user id is required")
	}
	if roadmap == nil {
		return 0, common.InvalidArgumentError("roadmap is required")
	}
	score := ReadinessScore(TasksFromRoadmap(roadmap))

	unlock := s.locks.Lock(userID)
	defer unlock()
	if err := s.store.SaveRoadmap(ctx, userID, roadmap, &score); err != nil {
		s.logger.Error("activity.tasks.save_error", "user_id", userID, "error", err)
		return 0, common.DatabaseError("failed to save roadmap", err)
	}
	s.metrics.Activity("tasks")
	s.logger.Info("activity.tasks.ok", "user_id", userID, "readiness", score)
	return score, nil
}

// CompleteStep marks steps[index] of the stored roadmap completed and logs
// a StepWeight event.
func (s *Service) CompleteStep(ctx context.Context, userID string, index int) (map[string]any, error) {
	if userID == "" {
		return nil, common.InvalidArgumentError("user id is required")
	}
	unlock := s.locks.Lock(userID)
	roadmap, err := s.markStep(ctx, userID, index)
	unlock()
	if err != nil {
		return nil, err
	}
	if _, err := s.LogEvent(ctx, userID, StepWeight); err != nil {
		s.logger.Warn("activity.step.event_error", "user_id", userID, "error", err)
	}
	return roadmap, nil
}

func (s *Service) markStep(ctx context.Context, userID string, index int) (map[string]any, error) {
	roadmap, err := s.store.LoadRoadmap(ctx, userID)
	if err != nil {
		return nil, common.DatabaseError("failed to load roadmap", err)
	}
	if roadmap == nil {
		return nil, common.NotFoundError("roadmap")
	}
	steps, _ := roadmap["steps"].([]any)
	if index < 0 || index >= len(steps) {
		return nil, common.InvalidArgumentErrorf("invalid step index %d", index)
	}
	step, ok := steps[index].(map[string]any)
	if !ok {
		return nil, common.InvalidArgumentErrorf("step %d is not an object", index)
	}
	step["completed"] = true
	if err := s.store.SaveRoadmap(ctx, userID, roadmap, nil); err != nil {
		return nil, common.DatabaseError("failed to save roadmap", err)
	}
	s.logger.Info("activity.step.ok", "user_id", userID, "step", index)
	return roadmap, nil
}
