package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/guidify/internal/activity"
	"github.com/joseph-ayodele/guidify/internal/entity"
)

const profilesTable = "profiles"

var profileColumns = []string{
	"user_id", "login_streak", "last_login", "activity_log", "career_roadmap",
	"career_readiness_score", "category_scores", "career_suggestion", "created_at", "updated_at",
}

type ProfileRepository interface {
	activity.Store
	Get(ctx context.Context, userID string) (*entity.Profile, error)
	List(ctx context.Context) ([]*entity.Profile, error)
	SaveCareerInsights(ctx context.Context, userID string, categoryScores map[string]any, suggestion string) error
}

type profileRepository struct {
	db     *DB
	logger *slog.Logger
	now    func() time.Time
}

func NewProfileRepository(db *DB, logger *slog.Logger) ProfileRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &profileRepository{db: db, logger: logger, now: time.Now}
}

// Get returns nil, nil when the profile does not exist.
func (r *profileRepository) Get(ctx context.Context, userID string) (*entity.Profile, error) {
	query, args := r.db.builder().
		Select(profileColumns...).
		From(entsql.Table(profilesTable)).
		Where(entsql.EQ("user_id", userID)).
		Query()
	p, err := scanProfile(r.db.SQL.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("repo.profile.get_error", "user_id", userID, "error", err)
		return nil, err
	}
	return p, nil
}

func (r *profileRepository) List(ctx context.Context) ([]*entity.Profile, error) {
	query, args := r.db.builder().
		Select(profileColumns...).
		From(entsql.Table(profilesTable)).
		OrderBy("user_id").
		Query()
	rows, err := r.db.SQL.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("repo.profile.list_error", "error", err)
		return nil, err
	}
	defer rows.Close()

	var out []*entity.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*entity.Profile, error) {
	var (
		p                     entity.Profile
		lastLogin             timeColumn
		createdAt, updatedAt  timeColumn
		heatmap, roadmap, cat jsonColumn
		readiness             sql.NullInt64
		suggestion            sql.NullString
	)
	if err := row.Scan(&p.UserID, &p.LoginStreak, &lastLogin, &heatmap, &roadmap,
		&readiness, &cat, &suggestion, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var h activity.Heatmap
	if err := h.UnmarshalJSON(heatmap.raw); err != nil {
		return nil, fmt.Errorf("decode activity_log: %w", err)
	}
	p.ActivityLog = h
	if err := roadmap.Decode(&p.CareerRoadmap); err != nil {
		return nil, fmt.Errorf("decode career_roadmap: %w", err)
	}
	if err := cat.Decode(&p.CategoryScores); err != nil {
		return nil, fmt.Errorf("decode category_scores: %w", err)
	}
	if readiness.Valid {
		v := int(readiness.Int64)
		p.CareerReadinessScore = &v
	}
	p.LastLogin = lastLogin.Ptr()
	p.CareerSuggestion = suggestion.String
	p.CreatedAt, p.UpdatedAt = createdAt.Time, updatedAt.Time
	return &p, nil
}

// LoadActivity returns a zero record for unknown users.
func (r *profileRepository) LoadActivity(ctx context.Context, userID string) (activity.Record, error) {
	query, args := r.db.builder().
		Select("login_streak", "last_login", "activity_log").
		From(entsql.Table(profilesTable)).
		Where(entsql.EQ("user_id", userID)).
		Query()
	var (
		rec       activity.Record
		lastLogin timeColumn
		heatmap   jsonColumn
	)
	err := r.db.SQL.QueryRowContext(ctx, query, args...).Scan(&rec.Streak, &lastLogin, &heatmap)
	if errors.Is(err, sql.ErrNoRows) {
		return activity.Record{Heatmap: activity.Heatmap{}}, nil
	}
	if err != nil {
		return activity.Record{}, fmt.Errorf("load activity: %w", err)
	}
	if err := rec.Heatmap.UnmarshalJSON(heatmap.raw); err != nil {
		return activity.Record{}, fmt.Errorf("decode activity_log: %w", err)
	}
	rec.LastEventDate = lastLogin.Ptr()
	return rec, nil
}

// SaveActivity upserts the activity columns, creating the profile on first write.
func (r *profileRepository) SaveActivity(ctx context.Context, userID string, rec activity.Record) error {
	heatmap, err := jsonArg(rec.Heatmap)
	if err != nil {
		return err
	}
	if rec.Heatmap == nil {
		heatmap = "{}"
	}
	var lastLogin any
	if rec.LastEventDate != nil {
		lastLogin = r.db.timeArg(*rec.LastEventDate)
	}
	return r.upsert(ctx, userID, map[string]any{
		"login_streak": rec.Streak,
		"last_login":   lastLogin,
		"activity_log": heatmap,
	})
}

func (r *profileRepository) LoadRoadmap(ctx context.Context, userID string) (map[string]any, error) {
	query, args := r.db.builder().
		Select("career_roadmap").
		From(entsql.Table(profilesTable)).
		Where(entsql.EQ("user_id", userID)).
		Query()
	var col jsonColumn
	err := r.db.SQL.QueryRowContext(ctx, query, args...).Scan(&col)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load roadmap: %w", err)
	}
	var roadmap map[string]any
	if err := col.Decode(&roadmap); err != nil {
		return nil, fmt.Errorf("decode career_roadmap: %w", err)
	}
	return roadmap, nil
}

// SaveRoadmap stores the roadmap; a nil readiness leaves the score untouched.
func (r *profileRepository) SaveRoadmap(ctx context.Context, userID string, roadmap map[string]any, readiness *int) error {
	raw, err := jsonArg(roadmap)
	if err != nil {
		return err
	}
	cols := map[string]any{"career_roadmap": raw}
	if readiness != nil {
		cols["career_readiness_score"] = intArg(readiness)
	}
	return r.upsert(ctx, userID, cols)
}

func (r *profileRepository) SaveCareerInsights(ctx context.Context, userID string, categoryScores map[string]any, suggestion string) error {
	raw, err := jsonArg(categoryScores)
	if err != nil {
		return err
	}
	return r.upsert(ctx, userID, map[string]any{
		"category_scores":   raw,
		"career_suggestion": suggestion,
	})
}

// upsert inserts the profile with cols or updates only cols on conflict.
func (r *profileRepository) upsert(ctx context.Context, userID string, cols map[string]any) error {
	now := r.db.timeArg(r.now())
	names := []string{"user_id", "updated_at"}
	values := []any{userID, now}
	for _, name := range sortedKeys(cols) {
		names = append(names, name)
		values = append(values, cols[name])
	}
	query, args := r.db.builder().
		Insert(profilesTable).
		Columns(names...).
		Values(values...).
		OnConflict(
			entsql.ConflictColumns("user_id"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				for _, name := range names[1:] {
					u.SetExcluded(name)
				}
			}),
		).
		Query()
	if _, err := r.db.SQL.ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("repo.profile.upsert_error", "user_id", userID, "columns", names[2:], "error", err)
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
