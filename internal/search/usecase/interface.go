package usecase

import (
	"context"

	authdomain "marketplace-backend/internal/auth/domain"
	searchdomain "marketplace-backend/internal/search/domain"
	"marketplace-backend/pkg/productsearch"
)

// SearchResult is the outcome of one search request
type SearchResult struct {
	Products []productsearch.Product
	CacheKey string
	Cached   bool
}

type SearchUsecase interface {
	// Search never fails; upstream and storage problems degrade to fewer
	// results or skipped side effects. user may be nil.
	Search(ctx context.Context, params searchdomain.SearchParams, force bool, user *authdomain.User) *SearchResult
	RecentSearches(ctx context.Context, userID uint) ([]searchdomain.SearchHistory, error)
	ClearCache(ctx context.Context) (int64, error)
}
