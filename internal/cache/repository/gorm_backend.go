package repository

import (
	"context"
	"time"

	cachedomain "marketplace-backend/internal/cache/domain"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// gormBackend implements Backend on the relational store
type gormBackend struct {
	db        *gorm.DB
	batchSize int
}

// NewGormBackend creates the relational cache backend
func NewGormBackend(db *gorm.DB) Backend {
	return &gormBackend{
		db:        db,
		batchSize: PurgeBatchSize,
	}
}

func (r *gormBackend) Name() string {
	return "postgres"
}

// Get returns the stored row even if it has expired; callers decide whether
// to serve or delete it.
func (r *gormBackend) Get(ctx context.Context, key string, _ time.Time) (*cachedomain.CachedSearch, error) {
	var entry cachedomain.CachedSearch
	err := r.db.WithContext(ctx).Where("cache_key = ?", key).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "query cached search")
	}
	return &entry, nil
}

// Put upserts in a single statement so concurrent writers on one key cannot
// produce duplicate rows.
func (r *gormBackend) Put(ctx context.Context, entry *cachedomain.CachedSearch) error {
	entry.CreatedAt = entry.CreatedAt.UTC()
	entry.ExpiresAt = entry.ExpiresAt.UTC()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cache_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"results", "created_at", "expires_at"}),
	}).Create(entry).Error
}

func (r *gormBackend) DeleteExpired(ctx context.Context, key string, now time.Time) error {
	err := r.db.WithContext(ctx).
		Where("cache_key = ? AND expires_at <= ?", key, now.UTC()).
		Delete(&cachedomain.CachedSearch{}).Error
	return errors.Wrap(err, "delete expired cached search")
}

// PurgeExpired deletes expired rows batch by batch, one transaction each.
func (r *gormBackend) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	now = now.UTC()
	var total int64

	for {
		var ids []uint
		err := r.db.WithContext(ctx).Model(&cachedomain.CachedSearch{}).
			Where("expires_at < ?", now).
			Order("id").
			Limit(r.batchSize).
			Pluck("id", &ids).Error
		if err != nil {
			return total, err
		}
		if len(ids) == 0 {
			return total, nil
		}

		err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Where("id IN ? AND expires_at < ?", ids, now).Delete(&cachedomain.CachedSearch{})
			if res.Error != nil {
				return res.Error
			}
			total += res.RowsAffected
			return nil
		})
		if err != nil {
			return total, err
		}

		if len(ids) < r.batchSize {
			return total, nil
		}
	}
}
