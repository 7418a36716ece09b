package repository

import (
	"context"

	searchdomain "marketplace-backend/internal/search/domain"
)

// DefaultHistoryLimit bounds ListRecent when no limit is configured
const DefaultHistoryLimit = 10

// HistoryRepository is the authoritative search history store
type HistoryRepository interface {
	Create(ctx context.Context, entry *searchdomain.SearchHistory) error
	ListRecent(ctx context.Context, userID uint, limit int) ([]searchdomain.SearchHistory, error)
}

// HistoryMirror is a best-effort copy of the history in a secondary store
type HistoryMirror interface {
	Create(ctx context.Context, entry *searchdomain.SearchHistory) error
	ListRecent(ctx context.Context, userID uint, limit int) ([]searchdomain.SearchHistory, error)
}
