package usecase

import (
	"context"

	authdomain "marketplace-backend/internal/auth/domain"
	cacheusecase "marketplace-backend/internal/cache/usecase"
	searchdomain "marketplace-backend/internal/search/domain"
	"marketplace-backend/internal/search/repository"
	"marketplace-backend/pkg/logger"
	"marketplace-backend/pkg/productsearch"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

type searchUsecase struct {
	searcher     productsearch.Searcher
	cache        cacheusecase.CacheUsecase
	history      repository.HistoryRepository
	mirror       repository.HistoryMirror
	historyLimit int
	log          *zap.SugaredLogger
}

// NewSearchUsecase wires the search flow. mirror may be nil.
func NewSearchUsecase(
	searcher productsearch.Searcher,
	cache cacheusecase.CacheUsecase,
	history repository.HistoryRepository,
	mirror repository.HistoryMirror,
	historyLimit int,
) SearchUsecase {
	if historyLimit <= 0 {
		historyLimit = repository.DefaultHistoryLimit
	}
	return &searchUsecase{
		searcher:     searcher,
		cache:        cache,
		history:      history,
		mirror:       mirror,
		historyLimit: historyLimit,
		log:          logger.GetLogger("search"),
	}
}

func (u *searchUsecase) Search(ctx context.Context, params searchdomain.SearchParams, force bool, user *authdomain.User) *SearchResult {
	result := &SearchResult{Products: []productsearch.Product{}}
	if params.Query == "" {
		return result
	}

	result.CacheKey = params.CacheKey()

	if force {
		u.log.Infow("Applying filters or forced reload", "cache_key", result.CacheKey)
	} else if cached, ok := u.cache.Lookup(ctx, result.CacheKey); ok {
		u.log.Infow("Found cached results", "cache_key", result.CacheKey)
		result.Products = cached
		result.Cached = true
	} else {
		u.log.Infow("Cache miss, calling API", "cache_key", result.CacheKey)
	}

	if !result.Cached {
		result.Products = u.searcher.Search(ctx, params.Upstream())
		if len(result.Products) > 0 {
			if err := u.cache.Store(ctx, result.CacheKey, result.Products); err != nil {
				u.log.Errorw("Error caching results", "cache_key", result.CacheKey, "error", err)
			}
		}
	}

	if user != nil && len(result.Products) > 0 {
		u.recordSearch(ctx, user.ID, params)
	}

	return result
}

// recordSearch appends a history row. Failures are logged only.
func (u *searchUsecase) recordSearch(ctx context.Context, userID uint, params searchdomain.SearchParams) {
	entry := &searchdomain.SearchHistory{
		UserID:     userID,
		Query:      params.Query,
		Parameters: params.HistoryParameters(),
	}

	if err := u.history.Create(ctx, entry); err != nil {
		u.log.Errorw("Error saving search history", "user_id", userID, "error", err)
	}

	if u.mirror != nil {
		if err := u.mirror.Create(ctx, entry); err != nil {
			u.log.Warnw("Error mirroring search history", "user_id", userID, "error", err)
		}
	}
}

func (u *searchUsecase) RecentSearches(ctx context.Context, userID uint) ([]searchdomain.SearchHistory, error) {
	rows, err := u.history.ListRecent(ctx, userID, u.historyLimit)
	if err == nil {
		return rows, nil
	}

	u.log.Errorw("Error listing search history", "user_id", userID, "error", err)
	if u.mirror == nil {
		return nil, err
	}

	mirrored, mirrorErr := u.mirror.ListRecent(ctx, userID, u.historyLimit)
	if mirrorErr != nil {
		return nil, errors.CombineErrors(err, mirrorErr)
	}
	return mirrored, nil
}

func (u *searchUsecase) ClearCache(ctx context.Context) (int64, error) {
	removed, err := u.cache.PurgeExpired(ctx)
	if err != nil {
		u.log.Errorw("Error clearing cache", "error", err)
		return 0, err
	}
	u.log.Infow("Cleared expired cache entries", "count", removed)
	return removed, nil
}
