package api

import (
	"context"  // Context for provider calls
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"strings"  // String manipulation
	"time"     // Payment timestamps

	"marketplace/internal/domain"       // Importing domain models
	"marketplace/internal/integrations" // Payment provider types
	"marketplace/internal/utils"        // Utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// PaymentVerifier confirms a provider transaction reference
type PaymentVerifier interface {
	Verify(ctx context.Context, reference string) (*integrations.Verification, error)
}

// VerifyPaymentRequest is the body of POST /orders/:id/payments/verify
type VerifyPaymentRequest struct {
	Reference string `json:"reference" binding:"required,max=128"` // Provider transaction reference
}

// VerifyPaymentHandler checks a buyer's payment with the provider and marks the order paid
func VerifyPaymentHandler(db *gorm.DB, verifier PaymentVerifier, currency string) gin.HandlerFunc {
	return func(c *gin.Context) {
		buyerID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		id, ok := idParam(c, "id") // Parse order id
		if !ok {
			return
		}
		var req VerifyPaymentRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		reference := strings.TrimSpace(req.Reference)
		ctx := c.Request.Context()

		var order domain.Order // Load the order being paid
		if err := db.WithContext(ctx).First(&order, id).Error; err != nil {
			respondError(c, notFoundOr(err, "Order"), "Failed to load order")
			return
		}
		// Only the buyer pays; others do not learn the order exists
		if order.BuyerID != buyerID {
			respondError(c, notFound("Order"), "")
			return
		}
		// Reject double payment
		if order.PaidAt != nil {
			respondError(c, conflict("Order is already paid"), "")
			return
		}
		// Cancelled orders cannot be paid
		if order.Status == domain.OrderCancelled {
			respondError(c, conflict("Order is cancelled"), "")
			return
		}
		// A reference settles at most one order
		var used int64
		if err := db.WithContext(ctx).Model(&domain.Payment{}).Where("reference = ?", reference).Count(&used).Error; err != nil {
			respondError(c, err, "Failed to verify payment")
			return
		}
		if used > 0 {
			respondError(c, conflict("Payment reference already used"), "")
			return
		}

		// Ask the provider outside any transaction
		v, err := verifier.Verify(ctx, reference)
		if err != nil {
			// Unknown reference is the caller's mistake
			if errors.Is(err, integrations.ErrPaymentNotFound) {
				respondError(c, utils.NewError(http.StatusNotFound, "not_found", "Payment reference not found"), "")
				return
			}
			logrus.WithFields(logrus.Fields{"order_id": order.ID, "reference": reference, "error": err.Error()}).Warn("Payment verification failed")
			respondError(c, utils.NewError(http.StatusBadGateway, "provider_error", "Could not verify payment, try again"), "")
			return
		}
		// Provider must report a settled transaction
		if !v.Succeeded() {
			respondError(c, utils.NewError(http.StatusPaymentRequired, "payment_incomplete", "Payment was not successful"), "")
			return
		}
		// Amount in minor units and currency must match exactly
		if v.AmountCents != order.PriceCents || (currency != "" && !strings.EqualFold(v.Currency, currency)) {
			logrus.WithFields(logrus.Fields{
				"order_id": order.ID,
				"expected": order.PriceCents,
				"paid":     v.AmountCents,
				"currency": v.Currency,
			}).Warn("Payment amount mismatch")
			respondError(c, utils.NewError(http.StatusUnprocessableEntity, "amount_mismatch", "Payment amount does not match the order"), "")
			return
		}

		now := time.Now()
		payment := domain.Payment{
			OrderID:     order.ID,
			Reference:   reference,
			AmountCents: v.AmountCents,
			Currency:    strings.ToUpper(v.Currency),
			Status:      domain.PaymentSuccess,
			VerifiedAt:  &now,
		}
		// Mark paid and record the payment atomically
		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			// Guarded update loses to a concurrent verification
			res := tx.Model(&domain.Order{}).Where("id = ? AND paid_at IS NULL", order.ID).Update("paid_at", now)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return conflict("Order is already paid")
			}
			// Unique reference index catches a race on the same reference
			if err := tx.Create(&payment).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return conflict("Payment reference already used")
				}
				return err // Return error to rollback
			}
			return notify(tx, order.SellerID, domain.NotifyPayment, "Order paid", order.Title,
				map[string]any{"order_id": order.ID})
		})
		if err != nil {
			respondError(c, err, "Failed to record payment")
			return
		}
		order.PaidAt = &now
		// Log the captured payment
		logrus.WithFields(logrus.Fields{
			"order_id":  order.ID,
			"buyer_id":  buyerID,
			"amount":    payment.AmountCents,
			"reference": reference,
		}).Info("Payment verified")
		c.JSON(http.StatusOK, gin.H{"order": order, "payment": payment})
	}
}
