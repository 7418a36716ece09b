package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type page struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

var staticPages = map[string]page{
	"about": {
		Title: "About Us",
		Body:  "Unified Marketplace searches online stores in one place so you can compare products across retailers.",
	},
	"contact": {
		Title: "Contact Us",
		Body:  "Questions or feedback? Reach the team at support@unifiedmarketplace.example.",
	},
	"privacy": {
		Title: "Privacy Policy",
		Body:  "We store your account details and your search history so you can revisit past searches. Passwords are stored only as salted hashes.",
	},
	"terms": {
		Title: "Terms of Service",
		Body:  "Product data is provided by third-party stores and may change without notice. Prices and availability are not guaranteed.",
	},
	"faq": {
		Title: "Frequently Asked Questions",
		Body:  "Results are cached for 24 hours. Use Apply Filters or Reload to fetch fresh results from the stores.",
	},
}

func staticPage(name string) gin.HandlerFunc {
	p := staticPages[name]
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, p)
	}
}
