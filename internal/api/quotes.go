package api

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"marketplace/internal/domain" // Importing domain models
	"marketplace/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/google/uuid"     // Public order references
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// CreateQuoteRequest is the body of POST /chat/rooms/:id/quotes
type CreateQuoteRequest struct {
	Title        string `json:"title" binding:"required,min=3,max=160"`
	Details      string `json:"details" binding:"max=10000"`
	PriceCents   int64  `json:"price_cents" binding:"required,gt=0"`            // Offered price in minor units
	DeliveryDays int    `json:"delivery_days" binding:"required,min=1,max=365"` // Promised turnaround
}

// CreateQuoteHandler lets the seller of a room send the buyer a custom offer
func CreateQuoteHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sellerID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		roomID, ok := idParam(c, "id") // Parse room id
		if !ok {
			return
		}
		var req CreateQuoteRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		var quote domain.Quote
		// Store the quote and announce it in the room atomically
		err := db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			room, err := loadRoomFor(tx, roomID, sellerID)
			if err != nil {
				return err
			}
			// Buyers cannot quote themselves
			if room.SellerID != sellerID {
				return utils.NewError(http.StatusForbidden, "forbidden", "Only the seller can send a quote")
			}
			quote = domain.Quote{
				RoomID:       room.ID,
				SellerID:     room.SellerID,
				BuyerID:      room.BuyerID,
				Title:        strings.TrimSpace(req.Title),
				Details:      strings.TrimSpace(req.Details),
				PriceCents:   req.PriceCents,
				DeliveryDays: req.DeliveryDays,
				Status:       domain.QuotePending,
			}
			// Carry the room's service over
			if room.ServiceID != 0 {
				sid := room.ServiceID
				quote.ServiceID = &sid
			}
			if err := tx.Create(&quote).Error; err != nil {
				return err // Return error to rollback
			}
			_, err = postMessage(tx, room, sellerID, "Sent a quote: "+quote.Title)
			return err
		})
		if err != nil {
			respondError(c, err, "Failed to send quote")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"quote": quote})
	}
}

// AcceptQuoteHandler turns a pending quote into a pending order for the buyer
func AcceptQuoteHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		buyerID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		id, ok := idParam(c, "id") // Parse quote id
		if !ok {
			return
		}
		var quote domain.Quote
		var order domain.Order
		// Create the order and close the quote atomically
		err := db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			if err := loadQuoteFor(tx, &quote, id, buyerID, domain.ActorBuyer); err != nil {
				return err
			}
			// Order takes the quote's terms
			order = domain.Order{
				Reference:    uuid.NewString(),
				ServiceID:    quote.ServiceID,
				QuoteID:      &quote.ID,
				BuyerID:      quote.BuyerID,
				SellerID:     quote.SellerID,
				Title:        quote.Title,
				PriceCents:   quote.PriceCents,
				DeliveryDays: quote.DeliveryDays,
				Requirements: quote.Details,
				Status:       domain.OrderPending,
			}
			if err := tx.Create(&order).Error; err != nil {
				return err // Return error to rollback
			}
			if err := setQuoteStatus(tx, &quote, domain.QuoteAccepted, map[string]any{"order_id": order.ID}); err != nil {
				return err
			}
			quote.OrderID = &order.ID
			return notify(tx, quote.SellerID, domain.NotifyQuote, "Quote accepted", quote.Title,
				map[string]any{"quote_id": quote.ID, "order_id": order.ID})
		})
		if err != nil {
			respondError(c, err, "Failed to accept quote")
			return
		}
		logrus.WithFields(logrus.Fields{"quote_id": quote.ID, "order_id": order.ID, "buyer_id": buyerID}).Info("Quote accepted")
		c.JSON(http.StatusCreated, gin.H{"quote": quote, "order": order})
	}
}

// DeclineQuoteHandler lets the buyer turn down a pending quote
func DeclineQuoteHandler(db *gorm.DB) gin.HandlerFunc {
	return closeQuoteHandler(db, domain.ActorBuyer, domain.QuoteDeclined, "Quote declined")
}

// WithdrawQuoteHandler lets the seller take back a pending quote
func WithdrawQuoteHandler(db *gorm.DB) gin.HandlerFunc {
	return closeQuoteHandler(db, domain.ActorSeller, domain.QuoteWithdrawn, "Quote withdrawn")
}

func closeQuoteHandler(db *gorm.DB, actor, status, title string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		id, ok := idParam(c, "id") // Parse quote id
		if !ok {
			return
		}
		var quote domain.Quote
		// Close the quote and notify atomically
		err := db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			if err := loadQuoteFor(tx, &quote, id, userID, actor); err != nil {
				return err
			}
			if err := setQuoteStatus(tx, &quote, status, nil); err != nil {
				return err
			}
			// Tell the other side
			recipient := quote.SellerID
			if actor == domain.ActorSeller {
				recipient = quote.BuyerID
			}
			return notify(tx, recipient, domain.NotifyQuote, title, quote.Title, map[string]any{"quote_id": quote.ID})
		})
		if err != nil {
			respondError(c, err, "Failed to update quote")
			return
		}
		c.JSON(http.StatusOK, gin.H{"quote": quote})
	}
}

// loadQuoteFor loads a pending quote the caller may act on from the given side
func loadQuoteFor(tx *gorm.DB, quote *domain.Quote, id, userID uint, actor string) error {
	if err := tx.First(quote, id).Error; err != nil {
		return notFoundOr(err, "Quote")
	}
	owner := quote.BuyerID
	if actor == domain.ActorSeller {
		owner = quote.SellerID
	}
	// Wrong side gets 403, strangers get 404
	if owner != userID {
		if quote.BuyerID == userID || quote.SellerID == userID {
			return utils.ErrForbidden
		}
		return notFound("Quote")
	}
	if quote.Status != domain.QuotePending {
		return conflict("Quote is no longer pending")
	}
	return nil
}

// setQuoteStatus moves a pending quote to status, guarding against concurrent changes
func setQuoteStatus(tx *gorm.DB, quote *domain.Quote, status string, extra map[string]any) error {
	updates := map[string]any{"status": status}
	for k, v := range extra {
		updates[k] = v
	}
	// Guarded update: only a still-pending quote moves
	res := tx.Model(&domain.Quote{}).Where("id = ? AND status = ?", quote.ID, domain.QuotePending).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return conflict("Quote is no longer pending")
	}
	quote.Status = status
	return nil
}
