package repositories

import (
	"context"

	"github.com/agentmarket/popsim/internal/domain/population"
	"github.com/agentmarket/popsim/internal/gateways/database/models"
	"github.com/uptrace/bun"
)

type activityRepository struct {
	*BaseRepository
}

var _ population.ActivitySink = &activityRepository{}

func NewActivityRepository(db *bun.DB) *activityRepository {
	return &activityRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *activityRepository) Append(ctx context.Context, entry *models.ActivityLog) error {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	_, err := r.db.NewInsert().Model(entry).Exec(ctx)
	return r.HandleError("append", "activity_logs", err)
}

func (r *activityRepository) Recent(ctx context.Context, limit int) ([]*models.ActivityLog, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var entries []*models.ActivityLog
	err := r.db.NewSelect().
		Model(&entries).
		Order("created_at DESC", "id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, r.HandleError("recent", "activity_logs", err)
	}
	return entries, nil
}
