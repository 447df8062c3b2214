package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/guidify/internal/entity"
)

const personalityTable = "personality_profiles"

type PersonalityRepository struct {
	db     *DB
	logger *slog.Logger
	now    func() time.Time
}

func NewPersonalityRepository(db *DB, logger *slog.Logger) *PersonalityRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PersonalityRepository{db: db, logger: logger, now: time.Now}
}

// Upsert replaces the user's analysis.
func (r *PersonalityRepository) Upsert(ctx context.Context, p entity.PersonalityProfile) error {
	traits, err := jsonArg(orEmptyMap(p.Traits))
	if err != nil {
		return err
	}
	careers := p.TopCareers
	if careers == nil {
		careers = []any{}
	}
	topCareers, err := jsonArg(careers)
	if err != nil {
		return err
	}
	raw, err := jsonArg(p.Raw)
	if err != nil {
		return err
	}
	query, args := r.db.builder().
		Insert(personalityTable).
		Columns("user_id", "traits", "summary", "top_careers", "raw", "updated_at").
		Values(p.UserID, traits, p.Summary, topCareers, raw, r.db.timeArg(r.now())).
		OnConflict(entsql.ConflictColumns("user_id"), entsql.ResolveWithNewValues()).
		Query()
	if _, err := r.db.SQL.ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("repo.personality.upsert_error", "user_id", p.UserID, "error", err)
		return fmt.Errorf("upsert personality profile: %w", err)
	}
	return nil
}

// Get returns nil, nil when the user has no analysis.
func (r *PersonalityRepository) Get(ctx context.Context, userID string) (*entity.PersonalityProfile, error) {
	query, args := r.db.builder().
		Select("user_id", "traits", "summary", "top_careers", "raw", "updated_at").
		From(entsql.Table(personalityTable)).
		Where(entsql.EQ("user_id", userID)).
		Query()
	var (
		p                 entity.PersonalityProfile
		traits, tops, raw jsonColumn
		updated           timeColumn
	)
	err := r.db.SQL.QueryRowContext(ctx, query, args...).Scan(&p.UserID, &traits, &p.Summary, &tops, &raw, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load personality profile: %w", err)
	}
	if err := traits.Decode(&p.Traits); err != nil {
		return nil, err
	}
	if err := tops.Decode(&p.TopCareers); err != nil {
		return nil, err
	}
	if err := raw.Decode(&p.Raw); err != nil {
		return nil, err
	}
	p.UpdatedAt = updated.Time
	return &p, nil
}

func orEmptyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
