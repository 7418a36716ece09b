package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"marketplace-backend/pkg/productsearch"
)

// Default filter values applied to missing request fields
const (
	DefaultPage             = 1
	DefaultSortBy           = "BEST_MATCH"
	DefaultProductCondition = "NEW"
	DefaultMinRating        = "ANY"
	DefaultMinPrice         = "0"
	DefaultMaxPrice         = "1000000"
	DefaultStores           = "Amazon"
	DefaultCountry          = "us"
	DefaultLanguage         = "en"

	// TotalPages is the page count advertised to clients
	TotalPages = 100

	// MaxCacheKeyLength matches the cache_key column size
	MaxCacheKeyLength = 512
)

// Countries lists the storefront countries offered for filtering
var Countries = map[string]string{
	"us": "United States", "uk": "United Kingdom", "ar": "Argentina", "in": "India",
	"ai": "Anguilla", "au": "Australia", "gb": "United Kingdom", "bm": "Bermuda",
	"br": "Brazil", "io": "British Indian Ocean Territory", "ca": "Canada",
	"ky": "Cayman Islands", "cl": "Chile", "cx": "Christmas Island",
	"cc": "Cocos Islands", "co": "Colombia", "fk": "Falkland Islands",
	"hk": "Hong Kong", "hm": "Heard & McDonald Islands", "il": "Israel",
	"jp": "Japan", "id": "Indonesia", "kr": "South Korea", "my": "Malaysia",
	"ms": "Montserrat", "mx": "Mexico", "nz": "New Zealand", "nf": "Norfolk Island",
	"ph": "Philippines", "ru": "Russia", "sa": "Saudi Arabia", "sg": "Singapore",
	"gs": "South Georgia", "za": "South Africa", "ch": "Switzerland",
	"tk": "Tokelau", "tw": "Taiwan", "th": "Thailand", "tc": "Turks & Caicos Islands",
	"tr": "Turkey", "ae": "United Arab Emirates", "ua": "Ukraine",
	"vg": "British Virgin Islands", "vn": "Vietnam",
}

// SearchParams is a fully defaulted search request
type SearchParams struct {
	Query            string `json:"query"`
	Page             int    `json:"page"`
	SortBy           string `json:"sort_by"`
	ProductCondition string `json:"product_condition"`
	MinRating        string `json:"min_rating"`
	MinPrice         string `json:"min_price"`
	MaxPrice         string `json:"max_price"`
	Stores           string `json:"stores"`
	Country          string `json:"country"`
	Language         string `json:"language"`
}

// DefaultParams returns the parameters of an empty search form
func DefaultParams() SearchParams {
	return SearchParams{
		Page:             DefaultPage,
		SortBy:           DefaultSortBy,
		ProductCondition: DefaultProductCondition,
		MinRating:        DefaultMinRating,
		MinPrice:         DefaultMinPrice,
		MaxPrice:         DefaultMaxPrice,
		Stores:           DefaultStores,
		Country:          DefaultCountry,
		Language:         DefaultLanguage,
	}
}

// ParsePage converts a raw page value, falling back to the first page
func ParsePage(raw string) int {
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || page < 1 {
		return DefaultPage
	}
	return page
}

// CacheKey identifies the result set for these parameters. Fields are
// query-escaped, so the "|" separator never occurs inside a field.
func (p SearchParams) CacheKey() string {
	fields := []string{
		p.Query,
		strconv.Itoa(p.Page),
		p.SortBy,
		p.ProductCondition,
		p.MinRating,
		p.MinPrice,
		p.MaxPrice,
		p.Stores,
		p.Country,
		p.Language,
	}
	for i, f := range fields {
		fields[i] = url.QueryEscape(f)
	}

	key := strings.Join(fields, "|")
	if len(key) > MaxCacheKeyLength {
		sum := sha256.Sum256([]byte(key))
		return "sha256:" + hex.EncodeToString(sum[:])
	}
	return key
}

// Upstream converts the parameters to a product search request
func (p SearchParams) Upstream() productsearch.Params {
	return productsearch.Params{
		Query:            p.Query,
		Page:             p.Page,
		SortBy:           p.SortBy,
		ProductCondition: p.ProductCondition,
		MinRating:        p.MinRating,
		MinPrice:         p.MinPrice,
		MaxPrice:         p.MaxPrice,
		Stores:           p.Stores,
		Country:          p.Country,
		Language:         p.Language,
	}
}

// HistoryParameters serializes the filters stored alongside a history row.
// Query and page are stored separately or not at all.
func (p SearchParams) HistoryParameters() string {
	b, _ := json.Marshal(map[string]string{
		"sort_by":           p.SortBy,
		"product_condition": p.ProductCondition,
		"min_rating":        p.MinRating,
		"min_price":         p.MinPrice,
		"max_price":         p.MaxPrice,
		"stores":            p.Stores,
		"country":           p.Country,
		"language":          p.Language,
	})
	return string(b)
}
