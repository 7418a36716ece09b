package repository

import (
	"context"
	"time"

	searchdomain "marketplace-backend/internal/search/domain"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"
)

type historyRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Create(ctx context.Context, entry *searchdomain.SearchHistory) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(entry).Error
	})
	return errors.Wrap(err, "insert search history")
}

func (r *historyRepository) ListRecent(ctx context.Context, userID uint, limit int) ([]searchdomain.SearchHistory, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	var rows []searchdomain.SearchHistory
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "list search history")
	}
	return rows, nil
}
