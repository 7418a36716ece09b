package domain

import "time"

// DefaultTTL is how long a cached search stays servable
const DefaultTTL = 24 * time.Hour

// CachedSearch is a serialized product list stored under a request-derived key
type CachedSearch struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CacheKey  string    `json:"cache_key" gorm:"size:512;uniqueIndex;not null"`
	Results   string    `json:"results" gorm:"type:text;not null"` // JSON array of products
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index;not null"`
}

func (CachedSearch) TableName() string {
	return "cached_searches"
}

// IsExpired reports whether the entry must no longer be served at now
func (c *CachedSearch) IsExpired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}
