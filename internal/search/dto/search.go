package dto

import (
	"encoding/json"
	"strings"
	"time"

	searchdomain "marketplace-backend/internal/search/domain"
	"marketplace-backend/pkg/productsearch"
)

// SearchRequest is the raw search form. Page stays a string so that a bad
// value falls back to the first page instead of failing the request. Filter
// fields are pointers so that an absent field can be told apart from one
// submitted empty.
type SearchRequest struct {
	Query            string  `json:"query" form:"query"`
	Page             string  `json:"page" form:"page"`
	SortBy           *string `json:"sort_by" form:"sort_by"`
	ProductCondition *string `json:"product_condition" form:"product_condition"`
	MinRating        *string `json:"min_rating" form:"min_rating"`
	MinPrice         *string `json:"min_price" form:"min_price"`
	MaxPrice         *string `json:"max_price" form:"max_price"`
	Stores           *string `json:"stores" form:"stores"`
	Country          *string `json:"country" form:"country"`
	Language         *string `json:"language" form:"language"`
	ApplyFilters     string  `json:"apply_filters" form:"apply_filters"`
	ForceReload      string  `json:"force_reload" form:"force_reload"`
}

// Params fills absent fields with their defaults. A field submitted empty
// stays empty, e.g. stores="" searches every store.
func (r *SearchRequest) Params() searchdomain.SearchParams {
	p := searchdomain.DefaultParams()
	p.Query = strings.TrimSpace(r.Query)
	p.Page = searchdomain.ParsePage(r.Page)
	p.SortBy = orDefault(r.SortBy, p.SortBy)
	p.ProductCondition = orDefault(r.ProductCondition, p.ProductCondition)
	p.MinRating = orDefault(r.MinRating, p.MinRating)
	p.MinPrice = orDefault(r.MinPrice, p.MinPrice)
	p.MaxPrice = orDefault(r.MaxPrice, p.MaxPrice)
	p.Stores = orDefault(r.Stores, p.Stores)
	p.Country = orDefault(r.Country, p.Country)
	p.Language = orDefault(r.Language, p.Language)
	return p
}

// Force reports whether the caller asked to bypass the cache
func (r *SearchRequest) Force() bool {
	return r.ApplyFilters == "true" || r.ForceReload == "true"
}

func orDefault(v *string, def string) string {
	if v == nil {
		return def
	}
	return strings.TrimSpace(*v)
}

type SearchResponse struct {
	Products   []productsearch.Product `json:"products"`
	TotalPages int                     `json:"total_pages"`
	CacheKey   string                  `json:"cache_key,omitempty"`
	Cached     bool                    `json:"cached"`
	Countries  map[string]string       `json:"countries"`
	searchdomain.SearchParams
}

type HistoryItem struct {
	ID         uint              `json:"id"`
	Query      string            `json:"query"`
	Parameters map[string]string `json:"parameters"`
	CreatedAt  time.Time         `json:"created_at"`
}

// NewHistoryItems decodes stored parameters; rows with unreadable
// parameters are kept with an empty map.
func NewHistoryItems(rows []searchdomain.SearchHistory) []HistoryItem {
	items := make([]HistoryItem, 0, len(rows))
	for _, row := range rows {
		params := map[string]string{}
		_ = json.Unmarshal([]byte(row.Parameters), &params)
		items = append(items, HistoryItem{
			ID:         row.ID,
			Query:      row.Query,
			Parameters: params,
			CreatedAt:  row.CreatedAt,
		})
	}
	return items
}
