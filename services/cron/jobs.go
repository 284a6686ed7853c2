package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/sahilchouksey/course-catalog/model"
)

const (
	danglingSampleSize = 50
	jobLogRetention    = 30 * 24 * time.Hour
)

// ReportDanglingContent counts content rows whose item no longer resolves.
// Rows are only reported; nothing is deleted.
func (m *CronManager) ReportDanglingContent(ctx context.Context) (string, map[string]interface{}, error) {
	dangling, err := m.registry.Dangling(ctx)
	if err != nil {
		return "", nil, err
	}

	byType := make(map[string]int)
	sample := make([]uint, 0, danglingSampleSize)
	for _, c := range dangling {
		byType[string(c.ItemType)]++
		if len(sample) < danglingSampleSize {
			sample = append(sample, c.ID)
		}
	}

	if len(dangling) > 0 {
		m.log.Warn("dangling content found", "count", len(dangling), "by_type", byType)
	}

	return fmt.Sprintf("%d dangling content row(s)", len(dangling)), map[string]interface{}{
		"count":       len(dangling),
		"by_type":     byType,
		"content_ids": sample,
	}, nil
}

// CleanupExpiredTokens removes blacklist rows for tokens that have expired anyway
func (m *CronManager) CleanupExpiredTokens(ctx context.Context) (string, map[string]interface{}, error) {
	removed, err := m.blacklist.PurgeExpired(ctx, m.now())
	if err != nil {
		return "", nil, fmt.Errorf("failed to purge blacklist: %w", err)
	}
	return fmt.Sprintf("removed %d expired token(s)", removed), map[string]interface{}{"removed": removed}, nil
}

// PruneJobLogs removes finished job logs older than the retention window
func (m *CronManager) PruneJobLogs(ctx context.Context) (string, map[string]interface{}, error) {
	cutoff := m.now().Add(-jobLogRetention)
	result := m.db.WithContext(ctx).
		Where("started_at < ? AND status <> ?", cutoff, model.CronStatusRunning).
		Delete(&model.CronJobLog{})
	if result.Error != nil {
		return "", nil, fmt.Errorf("failed to prune job logs: %w", result.Error)
	}
	return fmt.Sprintf("removed %d job log(s)", result.RowsAffected), map[string]interface{}{"removed": result.RowsAffected}, nil
}
