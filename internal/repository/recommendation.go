package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/guidify/internal/cache"
	"github.com/joseph-ayodele/guidify/internal/entity"
)

const recommendationsTable = "user_recommendations"

// RecommendationRepository is the SQL cache.Store: an append-only log per
// user where the newest row for a signature wins.
type RecommendationRepository struct {
	db     *DB
	logger *slog.Logger
	now    func() time.Time
}

var _ cache.Store = (*RecommendationRepository)(nil)

func NewRecommendationRepository(db *DB, logger *slog.Logger) *RecommendationRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecommendationRepository{db: db, logger: logger, now: time.Now}
}

func (r *RecommendationRepository) Latest(ctx context.Context, userID, signature string) (map[string]any, bool, error) {
	query, args := r.db.builder().
		Select("result_data").
		From(entsql.Table(recommendationsTable)).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.EQ("query_type", signature))).
		OrderBy(entsql.Desc("id")).
		Limit(1).
		Query()
	var col jsonColumn
	err := r.db.SQL.QueryRowContext(ctx, query, args...).Scan(&col)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load recommendation: %w", err)
	}
	var payload map[string]any
	if err := col.Decode(&payload); err != nil {
		return nil, false, fmt.Errorf("decode result_data: %w", err)
	}
	return payload, payload != nil, nil
}

func (r *RecommendationRepository) Save(ctx context.Context, userID, signature string, payload map[string]any) error {
	raw, err := jsonArg(payload)
	if err != nil {
		return err
	}
	query, args := r.db.builder().
		Insert(recommendationsTable).
		Columns("user_id", "query_type", "result_data", "created_at").
		Values(userID, signature, raw, r.db.timeArg(r.now())).
		Query()
	if _, err := r.db.SQL.ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("repo.recommendation.insert_error", "user_id", userID, "query_type", signature, "error", err)
		return fmt.Errorf("insert recommendation: %w", err)
	}
	return nil
}

// List returns a user's recommendations, newest first.
func (r *RecommendationRepository) List(ctx context.Context, userID string, limit int) ([]entity.Recommendation, error) {
	sel := r.db.builder().
		Select("id", "user_id", "query_type", "result_data", "created_at").
		From(entsql.Table(recommendationsTable)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Desc("id"))
	if limit > 0 {
		sel = sel.Limit(limit)
	}
	query, args := sel.Query()
	rows, err := r.db.SQL.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	defer rows.Close()

	var out []entity.Recommendation
	for rows.Next() {
		var (
			rec     entity.Recommendation
			data    jsonColumn
			created timeColumn
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.QueryType, &data, &created); err != nil {
			return nil, err
		}
		if err := data.Decode(&rec.ResultData); err != nil {
			return nil, fmt.Errorf("decode result_data: %w", err)
		}
		rec.CreatedAt = created.Time
		out = append(out, rec)
	}
	return out, rows.Err()
}
