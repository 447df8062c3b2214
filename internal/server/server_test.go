package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/guidify/internal/activity"
	"github.com/joseph-ayodele/guidify/internal/async"
	"github.com/joseph-ayodele/guidify/internal/cache"
	"github.com/joseph-ayodele/guidify/internal/export"
	"github.com/joseph-ayodele/guidify/internal/extract"
	"github.com/joseph-ayodele/guidify/internal/llm"
	"github.com/joseph-ayodele/guidify/internal/metrics"
	"github.com/joseph-ayodele/guidify/internal/ocr"
	"github.com/joseph-ayodele/guidify/internal/pipeline"
	"github.com/joseph-ayodele/guidify/internal/services/career"
	"github.com/joseph-ayodele/guidify/internal/services/psychometric"
	"github.com/joseph-ayodele/guidify/internal/services/recommend"
)

const userID = "0b6f7c1e-2d3a-4e5f-8a9b-1c2d3e4f5a6b"

var fixedNow = time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)

type memActivity struct {
	mu       sync.Mutex
	records  map[string]activity.Record
	roadmaps map[string]map[string]any
}

func newMemActivity() *memActivity {
	return &memActivity{records: map[string]activity.Record{}, roadmaps: map[string]map[string]any{}}
}

func (m *memActivity) LoadActivity(_ context.Context, id string) (activity.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[id], nil
}

func (m *memActivity) SaveActivity(_ context.Context, id string, r activity.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[id] = r
	return nil
}

func (m *memActivity) LoadRoadmap(_ context.Context, id string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roadmaps[id], nil
}

func (m *memActivity) SaveRoadmap(_ context.Context, id string, roadmap map[string]any, _ *int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roadmaps[id] = roadmap
	return nil
}

type memCache struct {
	mu      sync.Mutex
	entries map[string]map[string]any
}

func (m *memCache) Latest(_ context.Context, u, sig string) (map[string]any, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.entries[u+"|"+sig]
	return p, ok, nil
}

func (m *memCache) Save(_ context.Context, u, sig string, p map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[u+"|"+sig] = p
	return nil
}

type fixture struct {
	handler  http.Handler
	activity *memActivity
}

func newFixture(t *testing.T, gen llm.Generator, opts ...Option) *fixture {
	t.Helper()
	m := metrics.New()
	gw := llm.NewGateway(gen, nil, llm.WithMetrics(m))
	acts := newMemActivity()
	rc := cache.New(&memCache{entries: map[string]map[string]any{}}, nil, m)

	svc := Services{
		Pipeline:     pipeline.NewProcessor(nil, ocr.NewExtractor(ocr.Config{}, nil), extract.New(), m),
		Recommend:    recommend.NewService(gw, rc, nil, nil, async.Inline{}, nil),
		Career:       career.NewService(gw, nil, nil, nil),
		Psychometric: psychometric.NewService(gw, nil, nil, nil, nil),
		Activity:     activity.NewService(acts, nil, activity.WithClock(func() time.Time { return fixedNow }), activity.WithMetrics(m)),
		Export:       export.NewService(acts, nil),
		Metrics:      m,
	}
	return &fixture{handler: New(svc, nil, opts...).Router(), activity: acts}
}

func failing() llm.Generator {
	return llm.GeneratorFunc(func(context.Context, string, string, string) (string, error) {
		return "", errors.New("backend unavailable")
	})
}

func (f *fixture) do(t *testing.T, method, path string, body io.Reader, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func asUser(extra ...string) map[string]string {
	h := map[string]string{UserHeader: userID}
	for i := 0; i+1 < len(extra); i += 2 {
		h[extra[i]] = extra[i+1]
	}
	return h
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func upload(t *testing.T, filename string, content []byte, fields map[string]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, failing())
	rec := f.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
	assert.NotEmpty(t, rec.Header().Get("Content-Type"))
}

func TestHealthz_Unavailable(t *testing.T) {
	svc := Services{Health: func(context.Context) error { return errors.New("db down") }}
	rec := httptest.NewRecorder()
	New(svc, nil).Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, failing())
	f.do(t, http.MethodPost, "/api/activity/login", nil, asUser())
	rec := f.do(t, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "guidify_activity_events_total")
}

func TestInvalidUserHeader(t *testing.T) {
	f := newFixture(t, failing())
	rec := f.do(t, http.MethodGet, "/api/psychometric/baseline", nil, map[string]string{UserHeader: "not-a-uuid"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "InvalidArgument", decode(t, rec)["error"])
}

func TestActivityRequiresUser(t *testing.T) {
	f := newFixture(t, failing())
	for _, path := range []string{"/api/activity/login", "/api/activity/event", "/api/activity/tasks", "/api/roadmap/complete-step"} {
		rec := f.do(t, http.MethodPost, path, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestLoginAndEvent(t *testing.T) {
	f := newFixture(t, failing())

	rec := f.do(t, http.MethodPost, "/api/activity/login", nil, asUser())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.EqualValues(t, 1, body["login_streak"])
	assert.Equal(t, map[string]any{"2025-01-02": float64(1)}, body["activity_log"])

	rec = f.do(t, http.MethodPost, "/api/activity/event", strings.NewReader(`{"weight":3}`), asUser())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"2025-01-02": float64(4)}, decode(t, rec)["activity_log"])

	rec = f.do(t, http.MethodPost, "/api/activity/event", strings.NewReader(`{"weight":0}`), asUser())
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/activity/event", strings.NewReader(`{"weight":`), asUser())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarksheetUpload(t *testing.T) {
	f := newFixture(t, failing())
	body, ct := upload(t, "marks.txt", []byte("Board: CBSE\nPercentage: 87%\n"), map[string]string{
		"board": "CBSE", "stream": "Engineering", "entrance_marks": "70",
	})

	rec := f.do(t, http.MethodPost, "/api/marksheet", body, asUser("Content-Type", ct))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode(t, rec)
	assert.EqualValues(t, 87, out["detected_marks"])
	assert.EqualValues(t, 78, out["final_marks"])
	assert.Len(t, out["colleges"], recommend.CollegeLimit)
	assert.Equal(t, false, out["cached"])
}

func TestMarksheetUpload_Rejections(t *testing.T) {
	f := newFixture(t, failing())

	body, ct := upload(t, "marks.xyz", []byte("Percentage: 87%"), nil)
	rec := f.do(t, http.MethodPost, "/api/marksheet", body, map[string]string{"Content-Type": ct})
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	body, ct = upload(t, "marks.txt", nil, nil)
	rec = f.do(t, http.MethodPost, "/api/marksheet", body, map[string]string{"Content-Type": ct})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body, ct = upload(t, "marks.txt", []byte("Percentage: 87%"), map[string]string{"entrance_marks": "abc"})
	rec = f.do(t, http.MethodPost, "/api/marksheet", body, map[string]string{"Content-Type": ct})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/marksheet", strings.NewReader("x"), map[string]string{"Content-Type": "text/plain"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	small := newFixture(t, failing(), WithMaxUploadBytes(64))
	body, ct = upload(t, "marks.txt", bytes.Repeat([]byte("a"), 4096), nil)
	rec = small.do(t, http.MethodPost, "/api/marksheet", body, map[string]string{"Content-Type": ct})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestResumeUpload(t *testing.T) {
	f := newFixture(t, failing())
	body, ct := upload(t, "cv.txt", []byte("Asha Rao\n\nSKILLS\nPython, SQL\n\nEDUCATION\nCGPA: 8.1\n"), map[string]string{"location": "Pune"})

	rec := f.do(t, http.MethodPost, "/api/resume", body, map[string]string{"Content-Type": ct})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode(t, rec)
	profile, ok := out["profile"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"Python", "SQL"}, profile["skills"])
	assert.Equal(t, []any{}, out["companies"])
}

func TestColleges(t *testing.T) {
	f := newFixture(t, failing())

	rec := f.do(t, http.MethodGet, "/api/colleges?marks=abc&stream=Arts", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/colleges?marks=91&board=CBSE&stream=Arts", nil, asUser())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["cached"])

	rec = f.do(t, http.MethodGet, "/api/colleges?marks=91&board=CBSE&stream=humanities", nil, asUser())
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, true, out["cached"])
	assert.NotEmpty(t, out["colleges"])
}

func TestGeneratedRecommendations(t *testing.T) {
	gen := llm.GeneratorFunc(func(_ context.Context, prompt, _, _ string) (string, error) {
		switch {
		case strings.Contains(prompt, `"companies"`):
			return `{"companies":[{"name":"Acme"}]}`, nil
		case strings.Contains(prompt, `"courses"`):
			return "```json\n{\"courses\":[{\"name\":\"B.Sc\"}]}\n```", nil
		case strings.Contains(prompt, `"recommendations"`):
			return `{"recommendations":[{"course_name":"Web Developer"}]}`, nil
		}
		return "", errors.New("unexpected prompt")
	})
	f := newFixture(t, gen)

	rec := f.do(t, http.MethodPost, "/api/companies", strings.NewReader(`{"skills":["Go"],"location":"Pune"}`), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["companies"], 1)

	rec = f.do(t, http.MethodGet, "/api/courses?college=IIT+Delhi&preference=AI", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["courses"], 1)

	rec = f.do(t, http.MethodGet, "/api/courses", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/nsqf?tier=Apprentice&goal=web", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["recommendations"], 1)

	rec = f.do(t, http.MethodGet, "/api/nsqf?tier=Wizard&goal=web", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoadmapFallback(t *testing.T) {
	f := newFixture(t, failing())
	rec := f.do(t, http.MethodPost, "/api/roadmap", strings.NewReader(`{"current_subjects":"Commerce","target_career":"Data Analyst"}`), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, true, out["fallback"])
	roadmap := out["roadmap"].(map[string]any)
	assert.Equal(t, "Roadmap to Data Analyst (Offline Mode)", roadmap["title"])
	assert.Len(t, roadmap["steps"], 4)

	rec = f.do(t, http.MethodPost, "/api/roadmap", strings.NewReader(`{}`), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoadmapStream(t *testing.T) {
	gen := llm.GeneratorFunc(func(context.Context, string, string, string) (string, error) {
		return "Phase 1\nPhase 2", nil
	})
	f := newFixture(t, gen)
	rec := f.do(t, http.MethodPost, "/api/roadmap/stream", strings.NewReader(`{"target_career":"Nurse"}`), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	var chunks []string
	require.NoError(t, llm.ReadSSE(rec.Body, func(d []byte) error {
		chunks = append(chunks, string(d))
		return nil
	}))
	assert.Equal(t, []string{"Phase 1\nPhase 2"}, chunks)

	rec = newFixture(t, failing()).do(t, http.MethodPost, "/api/roadmap/stream", strings.NewReader(`{"target_career":"Nurse"}`), nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRoadmapStream_NoBackend(t *testing.T) {
	rec := newFixture(t, nil).do(t, http.MethodPost, "/api/roadmap/stream", strings.NewReader(`{"target_career":"Nurse"}`), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "data: [DONE]")

	var chunks []string
	require.NoError(t, llm.ReadSSE(rec.Body, func(d []byte) error {
		chunks = append(chunks, string(d))
		return nil
	}))
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0], "Roadmap to Nurse (Offline Mode)")
}

func TestPsychometricRoutes(t *testing.T) {
	f := newFixture(t, failing())

	rec := f.do(t, http.MethodGet, "/api/psychometric/baseline", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["questions"], 5)

	rec = f.do(t, http.MethodPost, "/api/psychometric/adaptive", strings.NewReader(`{"question_text":"q","selected_option":{"text":"a"}}`), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["question_text"])

	rec = f.do(t, http.MethodPost, "/api/psychometric/quiz", strings.NewReader(`{"profile":{"stream":"Arts"}}`), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, decode(t, rec)["questions"])

	rec = f.do(t, http.MethodPost, "/api/psychometric/analyze", strings.NewReader(`{"all_responses":[]}`), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/psychometric/analyze", strings.NewReader(`{"all_responses":[{"q":"a"}]}`), asUser())
	require.Equal(t, http.StatusOK, rec.Code)
	traits := decode(t, rec)["traits"].(map[string]any)
	assert.EqualValues(t, 80, traits["Technical"])
}

func TestTasksAndCompleteStep(t *testing.T) {
	f := newFixture(t, failing())

	rec := f.do(t, http.MethodPost, "/api/roadmap/complete-step", strings.NewReader(`{"step_index":0}`), asUser())
	assert.Equal(t, http.StatusNotFound, rec.Code)

	roadmap := `{"roadmap":{"title":"t","steps":[{"title":"a"},{"title":"b"}],"current_tier_tasks":[{"id":1,"completed":true},{"id":2,"completed":false}]}}`
	rec = f.do(t, http.MethodPost, "/api/activity/tasks", strings.NewReader(roadmap), asUser())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 60, decode(t, rec)["career_readiness_score"])

	rec = f.do(t, http.MethodPost, "/api/roadmap/complete-step", strings.NewReader(`{}`), asUser())
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/roadmap/complete-step", strings.NewReader(`{"step_index":5}`), asUser())
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/roadmap/complete-step", strings.NewReader(`{"step_index":1}`), asUser())
	require.Equal(t, http.StatusOK, rec.Code)
	steps := decode(t, rec)["roadmap"].(map[string]any)["steps"].([]any)
	assert.Equal(t, true, steps[1].(map[string]any)["completed"])
	assert.Equal(t, activity.StepWeight, f.activity.records[userID].Heatmap["2025-01-02"])
}

func TestExportXLSX(t *testing.T) {
	f := newFixture(t, failing())
	f.do(t, http.MethodPost, "/api/activity/login", nil, asUser())

	rec := f.do(t, http.MethodGet, "/api/activity/export?from=2024-12-01&to=2025-01-31", nil, asUser())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "activity.xlsx")

	wb, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer func() { _ = wb.Close() }()
	rows, err := wb.GetRows("Activity")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Date", "Count"}, {"2025-01-02", "1"}}, rows)

	rec = f.do(t, http.MethodGet, "/api/activity/export?from=01-02-2025", nil, asUser())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
