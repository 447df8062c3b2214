// Package activity tracks login streaks and the per-day activity heatmap.
// The transition functions are pure; Service adds storage and per-user
// serialization.
package activity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"
)

// DateLayout is the heatmap key format.
const DateLayout = "2006-01-02"

// StepWeight is the heatmap weight of completing one roadmap step.
const StepWeight = 5

// Heatmap maps a UTC calendar date to an activity count. A missing date
// counts as zero.
type Heatmap map[string]int

// UnmarshalJSON accepts the current object form and the legacy list of
// dates, which migrates to a count of 1 per listed date.
func (h *Heatmap) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	out := Heatmap{}
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
	case b[0] == '[':
		var dates []string
		if err := json.Unmarshal(b, &dates); err != nil {
			return fmt.Errorf("legacy heatmap: %w", err)
		}
		for _, d := range dates {
			out[d] = 1
		}
	default:
		var counts map[string]float64
		if err := json.Unmarshal(b, &counts); err != nil {
			return fmt.Errorf("heatmap: %w", err)
		}
		for d, c := range counts {
			out[d] = int(math.Round(c))
		}
	}
	*h = out
	return nil
}

// Dates returns the heatmap keys in ascending order.
func (h Heatmap) Dates() []string {
	dates := make([]string, 0, len(h))
	for d := range h {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// Record is the persisted activity state of one user.
type Record struct {
	Streak        int        `json:"login_streak"`
	LastEventDate *time.Time `json:"last_login,omitempty"`
	Heatmap       Heatmap    `json:"activity_log"`
}

// Migrate brings a record into canonical form. It is idempotent and runs
// before any transition.
func Migrate(r Record) Record {
	out := Record{Streak: r.Streak, Heatmap: make(Heatmap, len(r.Heatmap))}
	if out.Streak < 0 {
		out.Streak = 0
	}
	if r.LastEventDate != nil {
		t := r.LastEventDate.UTC()
		out.LastEventDate = &t
	}
	for d, c := range r.Heatmap {
		if c > 0 {
			out.Heatmap[d] = c
		}
	}
	return out
}

// ApplyLogin records a login at now. The day's heatmap entry becomes 1 only
// if it was empty; the streak grows on consecutive days, resets after a gap,
// and holds on the same day.
func ApplyLogin(r Record, now time.Time) Record {
	r = Migrate(r)
	now = now.UTC()
	today := now.Format(DateLayout)
	if r.Heatmap[today] == 0 {
		r.Heatmap[today] = 1
	}

	if r.LastEventDate == nil {
		r.Streak = 1
		r.LastEventDate = &now
		return r
	}

	switch diff := dayDiff(*r.LastEventDate, now); {
	case diff == 1:
		r.Streak++
	case diff > 1:
		r.Streak = 1
	case diff < 0:
		// Clock went backwards; keep the later timestamp.
		return r
	}
	r.LastEventDate = &now
	return r
}

// ApplyWeightedEvent adds weight to today's heatmap count. The streak is
// untouched. Non-positive weights are ignored.
func ApplyWeightedEvent(r Record, now time.Time, weight int) Record {
	r = Migrate(r)
	if weight <= 0 {
		return r
	}
	r.Heatmap[now.UTC().Format(DateLayout)] += weight
	return r
}

// dayDiff counts calendar days from a to b, both taken in UTC.
func dayDiff(a, b time.Time) int {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// Task is a roadmap task as stored in the user's roadmap tree.
type Task struct {
	Completed bool
}

// ReadinessScore is 20 plus up to 80 points for the completed share.
func ReadinessScore(tasks []Task) int {
	if len(tasks) == 0 {
		return 20
	}
	done := 0
	for _, t := range tasks {
		if t.Completed {
			done++
		}
	}
	return 20 + int(80*float64(done)/float64(len(tasks)))
}

// TasksFromRoadmap reads "current_tier_tasks" from a roadmap tree.
func TasksFromRoadmap(roadmap map[string]any) []Task {
	raw, _ := roadmap["current_tier_tasks"].([]any)
	tasks := make([]Task, 0, len(raw))
	for _, item := range raw {
		m, _ := item.(map[string]any)
		done, _ := m["completed"].(bool)
		tasks = append(tasks, Task{Completed: done})
	}
	return tasks
}
