package productsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"marketplace-backend/pkg/logger"
	"marketplace-backend/pkg/metrics"

	"github.com/cenkalti/backoff/v5"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// ResultLimit is the page size requested from the upstream API
const ResultLimit = 50

// Product is an upstream product record. Its fields are defined by the
// search provider and passed through untouched.
type Product map[string]any

// Params are the filters forwarded to the upstream search endpoint
type Params struct {
	Query            string
	Page             int
	SortBy           string
	ProductCondition string
	MinRating        string
	MinPrice         string
	MaxPrice         string
	Stores           string
	Country          string
	Language         string
}

// Searcher is implemented by Client and by test doubles
type Searcher interface {
	Search(ctx context.Context, params Params) []Product
}

// Config configures a Client
type Config struct {
	BaseURL        string
	APIKey         string
	Host           string
	Timeout        time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	HTTPClient     *http.Client
}

// Client calls the real-time product search API
type Client struct {
	endpoint       string
	apiKey         string
	host           string
	httpClient     *http.Client
	maxRetries     int
	initialBackoff time.Duration
	log            *zap.SugaredLogger
}

// NewClient creates a product search client
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	initialBackoff := cfg.InitialBackoff
	if initialBackoff <= 0 {
		initialBackoff = 500 * time.Millisecond
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &Client{
		endpoint:       strings.TrimRight(cfg.BaseURL, "/") + "/search",
		apiKey:         cfg.APIKey,
		host:           cfg.Host,
		httpClient:     httpClient,
		maxRetries:     maxRetries,
		initialBackoff: initialBackoff,
		log:            logger.GetLogger("productsearch"),
	}
}

type searchResponse struct {
	Data struct {
		Products []Product `json:"products"`
	} `json:"data"`
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.code, e.body)
}

// Search returns the products for params. Failures are logged and yield an
// empty list; an empty query never reaches the network.
func (c *Client) Search(ctx context.Context, params Params) []Product {
	if strings.TrimSpace(params.Query) == "" {
		c.log.Warn("Empty query provided")
		return []Product{}
	}

	c.log.Infow("Making API request",
		"query", params.Query,
		"page", params.Page,
		"sort_by", params.SortBy,
		"condition", params.ProductCondition,
		"stores", params.Stores,
		"country", params.Country,
	)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialBackoff

	products, err := backoff.Retry(ctx, func() ([]Product, error) {
		return c.do(ctx, params)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(c.maxRetries+1)))
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues("error").Inc()
		c.log.Errorw("Error fetching products", "query", params.Query, "error", err)
		return []Product{}
	}

	metrics.UpstreamRequests.WithLabelValues("ok").Inc()
	c.log.Infow("Successfully fetched products", "count", len(products))
	return products
}

func (c *Client) do(ctx context.Context, params Params) ([]Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+encodeParams(params).Encode(), nil)
	if err != nil {
		return nil, backoff.Permanent(errors.Wrap(err, "build request"))
	}
	req.Header.Set("x-rapidapi-key", c.apiKey)
	req.Header.Set("x-rapidapi-host", c.host)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		return nil, errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		serr := &statusError{code: resp.StatusCode, body: string(body)}
		c.log.Errorw("API request failed", "status", resp.StatusCode, "details", serr.body)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, serr
		}
		return nil, backoff.Permanent(serr)
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, backoff.Permanent(errors.Wrap(err, "decode response"))
	}

	if decoded.Data.Products == nil {
		return []Product{}, nil
	}
	return decoded.Data.Products, nil
}

func encodeParams(p Params) url.Values {
	v := url.Values{}
	v.Set("q", p.Query)
	v.Set("country", p.Country)
	v.Set("language", p.Language)
	v.Set("page", strconv.Itoa(p.Page))
	v.Set("limit", strconv.Itoa(ResultLimit))
	v.Set("sort_by", p.SortBy)
	v.Set("product_condition", p.ProductCondition)
	v.Set("min_rating", p.MinRating)
	v.Set("min_price", p.MinPrice)
	v.Set("max_price", p.MaxPrice)
	v.Set("stores", p.Stores)
	return v
}
