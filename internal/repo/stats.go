// Package repo implements the persistence layer for the medication tracker.
// This file provides collection metadata used for conditional responses
// (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/medremind-core/internal/domain"
)

// CollectionStats returns the payload size in bytes and the last write time
// of the collection stored under key. When the key is absent, size is 0 and
// updatedAt is nil.
func CollectionStats(ctx context.Context, db *gorm.DB, key string) (size int64, updatedAt *time.Time, err error) {
	var row struct {
		Size      int64
		UpdatedAt time.Time
	}
	res := db.WithContext(ctx).
		Model(&domain.Collection{}).
		Select("length(payload) AS size, updated_at").
		Where("key = ?", key).
		Limit(1).
		Scan(&row)
	if res.Error != nil {
		return 0, nil, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, nil, nil
	}
	return row.Size, &row.UpdatedAt, nil
}
