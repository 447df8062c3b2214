package activity

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/guidify/internal/common"
)

func day(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t.Add(9 * time.Hour)
}

func ptr(t time.Time) *time.Time { return &t }

func TestApplyLoginConsecutiveDay(t *testing.T) {
	r := Record{Streak: 4, LastEventDate: ptr(day("2025-01-01")), Heatmap: Heatmap{}}
	next := ApplyLogin(r, day("2025-01-02"))
	assert.Equal(t, 5, next.Streak)
	assert.Equal(t, 1, next.Heatmap["2025-01-02"])
	assert.Equal(t, "2025-01-02", next.LastEventDate.Format(DateLayout))
}

func TestApplyLoginStreakLaw(t *testing.T) {
	cases := []struct {
		name   string
		last   *time.Time
		streak int
		now    time.Time
		want   int
	}{
		{"first login", nil, 0, day("2025-03-10"), 1},
		{"same day", ptr(day("2025-03-10")), 3, day("2025-03-10").Add(5 * time.Hour), 3},
		{"next day", ptr(day("2025-03-10")), 3, day("2025-03-11"), 4},
		{"gap", ptr(day("2025-03-10")), 9, day("2025-03-13"), 1},
		{"month boundary", ptr(day("2025-01-31")), 2, day("2025-02-01"), 3},
		{"clock skew", ptr(day("2025-03-10")), 6, day("2025-03-09"), 6},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ApplyLogin(Record{Streak: tc.streak, LastEventDate: tc.last}, tc.now)
			assert.Equal(t, tc.want, got.Streak)
		})
	}
}

func TestApplyLoginUsesUTCDates(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	// 2025-01-02 01:00 IST is still 2025-01-01 in UTC.
	now := time.Date(2025, 1, 2, 1, 0, 0, 0, ist)
	r := ApplyLogin(Record{Streak: 2, LastEventDate: ptr(day("2025-01-01"))}, now)
	assert.Equal(t, 2, r.Streak)
	assert.Equal(t, 1, r.Heatmap["2025-01-01"])
	assert.Zero(t, r.Heatmap["2025-01-02"])
}

func TestApplyLoginKeepsExistingCount(t *testing.T) {
	r := Record{Heatmap: Heatmap{"2025-05-05": 7}}
	next := ApplyLogin(r, day("2025-05-05"))
	assert.Equal(t, 7, next.Heatmap["2025-05-05"])
}

func TestApplyWeightedEvent(t *testing.T) {
	r := Record{Streak: 3, Heatmap: Heatmap{"2025-05-05": 1}}
	next := ApplyWeightedEvent(r, day("2025-05-05"), StepWeight)
	assert.Equal(t, 6, next.Heatmap["2025-05-05"])
	assert.Equal(t, 3, next.Streak)
	assert.Nil(t, next.LastEventDate)

	assert.Equal(t, 1, r.Heatmap["2025-05-05"], "input record must not be mutated")
	assert.Equal(t, next, ApplyWeightedEvent(next, day("2025-05-05"), -2))
}

func TestLegacyHeatmapMigration(t *testing.T) {
	var r Record
	require.NoError(t, json.Unmarshal([]byte(`{"login_streak":2,"activity_log":["2024-12-30","2024-12-31"]}`), &r))
	assert.Equal(t, Heatmap{"2024-12-30": 1, "2024-12-31": 1}, r.Heatmap)

	once := Migrate(r)
	twice := Migrate(once)
	assert.Equal(t, once, twice)

	b, err := json.Marshal(once)
	require.NoError(t, err)
	var again Record
	require.NoError(t, json.Unmarshal(b, &again))
	assert.Equal(t, once.Heatmap, Migrate(again).Heatmap)
}

func TestHeatmapUnmarshalForms(t *testing.T) {
	var h Heatmap
	require.NoError(t, json.Unmarshal([]byte(`null`), &h))
	assert.NotNil(t, h)
	assert.Empty(t, h)

	require.NoError(t, json.Unmarshal([]byte(`{"2025-01-01": 2.0, "2025-01-02": 0}`), &h))
	assert.Equal(t, 2, h["2025-01-01"])
	assert.Equal(t, []string{"2025-01-01", "2025-01-02"}, h.Dates())

	assert.Error(t, json.Unmarshal([]byte(`"nope"`), &h))
}

func TestMigrateClampsAndCopies(t *testing.T) {
	r := Record{Streak: -3, Heatmap: Heatmap{"a": 0, "b": -1, "c": 2}}
	m := Migrate(r)
	assert.Equal(t, 0, m.Streak)
	assert.Equal(t, Heatmap{"c": 2}, m.Heatmap)
	assert.NotNil(t, Migrate(Record{}).Heatmap)
}

func TestReadinessScore(t *testing.T) {
	assert.Equal(t, 20, ReadinessScore(nil))
	assert.Equal(t, 60, ReadinessScore([]Task{{Completed: true}, {}}))
	assert.Equal(t, 100, ReadinessScore([]Task{{Completed: true}}))
	assert.Equal(t, 46, ReadinessScore([]Task{{Completed: true}, {}, {}}))

	roadmap := map[string]any{"current_tier_tasks": []any{
		map[string]any{"title": "a", "completed": true},
		map[string]any{"title": "b"},
		"garbage",
		map[string]any{"title": "c", "completed": true},
	}}
	assert.Equal(t, 60, ReadinessScore(TasksFromRoadmap(roadmap)))
}

// memStore is an in-memory Store.
type memStore struct {
	mu       sync.Mutex
	records  map[string]Record
	roadmaps map[string]map[string]any
	scores   map[string]int
	fail     error
}

func newMemStore() *memStore {
	return &memStore{records: map[string]Record{}, roadmaps: map[string]map[string]any{}, scores: map[string]int{}}
}

func (m *memStore) LoadActivity(_ context.Context, userID string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return Record{}, m.fail
	}
	// Round-trip through JSON so callers cannot share maps with the store.
	b, _ := json.Marshal(m.records[userID])
	var r Record
	_ = json.Unmarshal(b, &r)
	return r, nil
}

func (m *memStore) SaveActivity(_ context.Context, userID string, r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[userID] = r
	return nil
}

func (m *memStore) LoadRoadmap(_ context.Context, userID string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roadmaps[userID], nil
}

func (m *memStore) SaveRoadmap(_ context.Context, userID string, roadmap map[string]any, readiness *int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roadmaps[userID] = roadmap
	if readiness != nil {
		m.scores[userID] = *readiness
	}
	return nil
}

func TestServiceLoginAndEvent(t *testing.T) {
	store := newMemStore()
	now := day("2025-01-01")
	svc := NewService(store, nil, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	r, err := svc.Login(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, r.Streak)

	now = day("2025-01-02")
	r, err = svc.Login(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, r.Streak)

	r, err = svc.LogEvent(ctx, "u1", 3)
	require.NoError(t, err)
	assert.Equal(t, 4, r.Heatmap["2025-01-02"])
	assert.Equal(t, 2, store.records["u1"].Streak)

	_, err = svc.LogEvent(ctx, "u1", 0)
	assert.Equal(t, 400, common.HTTPStatus(err))
	_, err = svc.Login(ctx, "")
	assert.Equal(t, 400, common.HTTPStatus(err))
}

func TestServiceConcurrentEventsSerialize(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, nil, WithClock(func() time.Time { return day("2025-06-01") }))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.LogEvent(context.Background(), "u1", 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, store.records["u1"].Heatmap["2025-06-01"])
	assert.Empty(t, svc.locks.locks)
}

func TestServiceStoreFailure(t *testing.T) {
	store := newMemStore()
	store.fail = errors.New("connection reset")
	_, err := NewService(store, nil).Login(context.Background(), "u1")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrDatabase)
	assert.Equal(t, 500, common.HTTPStatus(err))
}

func TestServiceCompleteTasksAndStep(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, nil, WithClock(func() time.Time { return day("2025-02-02") }))
	ctx := context.Background()

	_, err := svc.CompleteStep(ctx, "u1", 0)
	assert.Equal(t, 404, common.HTTPStatus(err))

	roadmap := map[string]any{
		"title":              "Roadmap",
		"steps":              []any{map[string]any{"title": "Foundations"}, map[string]any{"title": "Project"}},
		"current_tier_tasks": []any{map[string]any{"completed": true}, map[string]any{"completed": false}},
	}
	score, err := svc.CompleteTasks(ctx, "u1", roadmap)
	require.NoError(t, err)
	assert.Equal(t, 60, score)
	assert.Equal(t, 60, store.scores["u1"])

	got, err := svc.CompleteStep(ctx, "u1", 1)
	require.NoError(t, err)
	steps := got["steps"].([]any)
	assert.Equal(t, true, steps[1].(map[string]any)["completed"])
	assert.Equal(t, StepWeight, store.records["u1"].Heatmap["2025-02-02"])

	_, err = svc.CompleteStep(ctx, "u1", 7)
	assert.Equal(t, 400, common.HTTPStatus(err))
}
