package api

import (
	"net/http" // HTTP status codes

	"marketplace/internal/domain" // Importing domain models
	"marketplace/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"golang.org/x/sync/errgroup" // Parallel queries
	"gorm.io/gorm"               // GORM ORM library
)

// Dashboard is the caller's at-a-glance summary
type Dashboard struct {
	Purchases           utils.StatusCounts  `json:"purchases"`       // Orders as buyer
	Sales               *utils.StatusCounts `json:"sales,omitempty"` // Orders as seller, sellers only
	Chat                UnreadCounts        `json:"chat"`
	UnreadNotifications int64               `json:"unread_notifications"`
}

// DashboardHandler gathers order stats, chat unread and notification unread counts in parallel
func DashboardHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		// Sales are shown by the stored role, not the token's
		role, err := currentRole(c, db, userID)
		if err != nil {
			respondError(c, err, "Failed to load user")
			return
		}
		var out Dashboard
		// Each goroutine fills its own field
		g, ctx := errgroup.WithContext(c.Request.Context())
		g.Go(func() error {
			var err error
			out.Purchases, err = orderStats(ctx, db, "buyer_id = ?", userID)
			return err
		})
		if role == domain.RoleSeller || role == domain.RoleAdmin {
			g.Go(func() error {
				sales, err := orderStats(ctx, db, "seller_id = ?", userID)
				out.Sales = &sales
				return err
			})
		}
		g.Go(func() error {
			var err error
			out.Chat, err = countUnread(ctx, db, userID)
			return err
		})
		g.Go(func() error {
			var err error
			out.UnreadNotifications, err = countUnreadNotifications(ctx, db, userID)
			return err
		})
		// First failure wins
		if err := g.Wait(); err != nil {
			respondError(c, err, "Failed to load dashboard")
			return
		}
		c.JSON(http.StatusOK, out)
	}
}
