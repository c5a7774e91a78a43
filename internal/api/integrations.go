package api

import (
	"context"      // Context for provider calls
	"net/http"     // HTTP status codes
	"strings"      // String manipulation
	"time"         // Cache TTL and timeouts
	"unicode/utf8" // Query length in characters

	"marketplace/internal/integrations" // Provider types
	"marketplace/internal/utils"        // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

const (
	geocodeCachePrefix = "geocode:"     // Redis key prefix
	geocodeTTL         = 24 * time.Hour // Addresses rarely move
)

// Geocoder resolves free-text addresses to coordinates
type Geocoder interface {
	Search(ctx context.Context, query string, limit int) ([]integrations.Place, error)
}

// Describer drafts service descriptions
type Describer interface {
	Describe(ctx context.Context, title string, keywords []string) (string, error)
}

// DescribeRequest is the body of POST /ai/describe
type DescribeRequest struct {
	Title    string   `json:"title" binding:"required,min=3,max=160"`
	Keywords []string `json:"keywords" binding:"max=10,dive,max=40"`
}

// GeocodeHandler proxies an address search, caching results per normalized query
func GeocodeHandler(geo Geocoder, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Normalize case and whitespace so equal queries share a cache entry
		q := strings.Join(strings.Fields(strings.ToLower(c.Query("q"))), " ")
		if utf8.RuneCountInString(q) < 3 || len(q) > 200 {
			badRequest(c, "q must be between 3 and 200 characters")
			return
		}
		ctx := c.Request.Context()
		cacheKey := geocodeCachePrefix + q
		var places []integrations.Place
		// Try cache first
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &places); err == nil && found {
			c.JSON(http.StatusOK, gin.H{"results": places, "cached": true})
			return
		}
		// Ask the provider
		places, err := geo.Search(ctx, q, 5)
		if err != nil {
			logrus.WithFields(logrus.Fields{"query": q, "error": err.Error()}).Warn("Geocode lookup failed")
			respondError(c, utils.NewError(http.StatusBadGateway, "provider_error", "Address lookup is unavailable"), "")
			return
		}
		if places == nil {
			places = []integrations.Place{}
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, places, geocodeTTL) // Cache result
		c.JSON(http.StatusOK, gin.H{"results": places, "cached": false})
	}
}

// DescribeHandler drafts a service description with the configured model
func DescribeHandler(writer Describer) gin.HandlerFunc {
	return func(c *gin.Context) {
		// No API key configured
		if writer == nil {
			respondError(c, utils.NewError(http.StatusServiceUnavailable, "unavailable", "AI assistant is not configured"), "")
			return
		}
		var req DescribeRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		// Model calls are slow; cap them
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		text, err := writer.Describe(ctx, strings.TrimSpace(req.Title), req.Keywords)
		if err != nil {
			logrus.WithFields(logrus.Fields{"error": err.Error()}).Warn("AI description failed")
			respondError(c, utils.NewError(http.StatusBadGateway, "provider_error", "Could not generate a description, try again"), "")
			return
		}
		c.JSON(http.StatusOK, gin.H{"description": text})
	}
}
