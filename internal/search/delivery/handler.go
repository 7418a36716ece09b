package delivery

import (
	"net/http"

	authdelivery "marketplace-backend/internal/auth/delivery"
	searchdomain "marketplace-backend/internal/search/domain"
	searchdto "marketplace-backend/internal/search/dto"
	"marketplace-backend/internal/search/usecase"

	"github.com/gin-gonic/gin"
)

type SearchHandler struct {
	searchUsecase usecase.SearchUsecase
}

func NewSearchHandler(searchUsecase usecase.SearchUsecase) *SearchHandler {
	return &SearchHandler{searchUsecase: searchUsecase}
}

// Search handles GET (query string) and POST (form or JSON) searches
func (h *SearchHandler) Search(c *gin.Context) {
	var req searchdto.SearchRequest
	var err error
	if c.Request.Method == http.MethodGet {
		err = c.ShouldBindQuery(&req)
	} else {
		err = c.ShouldBind(&req)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	params := req.Params()
	result := h.searchUsecase.Search(c.Request.Context(), params, req.Force(), authdelivery.CurrentUser(c))

	c.JSON(http.StatusOK, searchdto.SearchResponse{
		Products:     result.Products,
		TotalPages:   searchdomain.TotalPages,
		CacheKey:     result.CacheKey,
		Cached:       result.Cached,
		Countries:    searchdomain.Countries,
		SearchParams: params,
	})
}

func (h *SearchHandler) Account(c *gin.Context) {
	user := authdelivery.CurrentUser(c)

	rows, err := h.searchUsecase.RecentSearches(c.Request.Context(), user.ID)
	if err != nil {
		rows = nil
	}

	c.JSON(http.StatusOK, gin.H{
		"user":            user,
		"recent_searches": searchdto.NewHistoryItems(rows),
	})
}

func (h *SearchHandler) ClearCache(c *gin.Context) {
	removed, err := h.searchUsecase.ClearCache(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Error clearing cache",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"removed": removed,
		"message": "Expired cache entries cleared successfully",
	})
}
