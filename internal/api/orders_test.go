package api

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/domain"
	"marketplace/internal/integrations"
	"marketplace/internal/utils"
)

type orderBody struct {
	Order domain.Order `json:"order"`
}

func (e *testEnv) setStatus(orderID uint, token, status string) (int, string) {
	e.t.Helper()
	w := e.do(http.MethodPost, fmt.Sprintf("/orders/%d/status", orderID), token, gin.H{"status": status})
	if w.Code == http.StatusOK {
		return w.Code, ""
	}
	return w.Code, decode[errorBody](e.t, w).Code
}

func TestOrderLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	sellerID, sellerToken := env.user("Seller", domain.RoleSeller)
	buyerID, buyerToken := env.user("Buyer", domain.RoleBuyer)
	_, strangerToken := env.user("Stranger", domain.RoleBuyer)
	svc := env.service(sellerID, "Website audit", 5000)

	w := env.do(http.MethodPost, "/orders", sellerToken, gin.H{"service_id": svc.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/orders", buyerToken, gin.H{"service_id": svc.ID, "requirements": "  Check SEO  "})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decode[orderBody](t, w).Order
	assert.Equal(t, domain.OrderPending, order.Status)
	assert.Equal(t, buyerID, order.BuyerID)
	assert.Equal(t, sellerID, order.SellerID)
	assert.Equal(t, int64(5000), order.PriceCents)
	assert.Equal(t, "Check SEO", order.Requirements)
	assert.Len(t, order.Reference, 36)

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, fmt.Sprintf("/orders/%d", order.ID), strangerToken, nil).Code)

	code, errCode := env.setStatus(order.ID, buyerToken, domain.OrderAccepted)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "invalid_transition", errCode)

	code, _ = env.setStatus(order.ID, strangerToken, domain.OrderAccepted)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = env.setStatus(order.ID, sellerToken, domain.OrderDisputed)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = env.setStatus(order.ID, sellerToken, domain.OrderAccepted)
	require.Equal(t, http.StatusOK, code)

	code, errCode = env.setStatus(order.ID, sellerToken, domain.OrderInProgress)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "payment_required", errCode)

	env.payments.byRef["ref-ok"] = &integrations.Verification{Reference: "ref-ok", Status: "success", AmountCents: 5000, Currency: "ngn"}
	w = env.do(http.MethodPost, fmt.Sprintf("/orders/%d/payments/verify", order.ID), buyerToken, gin.H{"reference": "ref-ok"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	code, _ = env.setStatus(order.ID, sellerToken, domain.OrderInProgress)
	require.Equal(t, http.StatusOK, code)
	code, _ = env.setStatus(order.ID, sellerToken, domain.OrderDelivered)
	require.Equal(t, http.StatusOK, code)
	code, _ = env.setStatus(order.ID, buyerToken, domain.OrderCompleted)
	require.Equal(t, http.StatusOK, code)

	w = env.do(http.MethodGet, fmt.Sprintf("/orders/%d", order.ID), buyerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[struct {
		Order    domain.Order     `json:"order"`
		Payments []domain.Payment `json:"payments"`
	}](t, w)
	assert.Equal(t, domain.OrderCompleted, got.Order.Status)
	assert.NotNil(t, got.Order.PaidAt)
	require.Len(t, got.Payments, 1)
	assert.Equal(t, "NGN", got.Payments[0].Currency)

	stats := decode[utils.StatusCounts](t, env.do(http.MethodGet, "/orders/stats?role=seller", sellerToken, nil))
	assert.Equal(t, int64(1), stats.Total)
	assert.Equal(t, int64(1), stats.ByStatus[domain.OrderCompleted])
	assert.Equal(t, int64(0), stats.ByStatus[domain.OrderPending])

	sales := decode[Page[domain.Order]](t, env.do(http.MethodGet, "/orders?role=seller", sellerToken, nil))
	assert.Equal(t, int64(1), sales.Total)
	purchases := decode[Page[domain.Order]](t, env.do(http.MethodGet, "/orders", sellerToken, nil))
	assert.Equal(t, int64(0), purchases.Total)

	var notes int64
	require.NoError(t, env.db.Model(&domain.Notification{}).Where("user_id = ?", sellerID).Count(&notes).Error)
	// New order, payment, completion
	assert.Equal(t, int64(3), notes)
}

func TestVerifyPayment(t *testing.T) {
	env := newTestEnv(t, nil)
	sellerID, _ := env.user("Seller", domain.RoleSeller)
	_, buyerToken := env.user("Buyer", domain.RoleBuyer)
	_, otherToken := env.user("Other", domain.RoleBuyer)
	svc := env.service(sellerID, "Translation", 8000)

	order := decode[orderBody](t, env.do(http.MethodPost, "/orders", buyerToken, gin.H{"service_id": svc.ID})).Order
	path := fmt.Sprintf("/orders/%d/payments/verify", order.ID)

	env.payments.byRef["short"] = &integrations.Verification{Reference: "short", Status: "success", AmountCents: 100, Currency: "NGN"}
	env.payments.byRef["usd"] = &integrations.Verification{Reference: "usd", Status: "success", AmountCents: 8000, Currency: "USD"}
	env.payments.byRef["failed"] = &integrations.Verification{Reference: "failed", Status: "failed", AmountCents: 8000, Currency: "NGN"}
	env.payments.byRef["good"] = &integrations.Verification{Reference: "good", Status: "success", AmountCents: 8000, Currency: "NGN"}

	cases := []struct {
		name   string
		token  string
		ref    string
		status int
	}{
		{"not the buyer", otherToken, "good", http.StatusNotFound},
		{"unknown reference", buyerToken, "missing", http.StatusNotFound},
		{"failed payment", buyerToken, "failed", http.StatusPaymentRequired},
		{"short amount", buyerToken, "short", http.StatusUnprocessableEntity},
		{"wrong currency", buyerToken, "usd", http.StatusUnprocessableEntity},
		{"success", buyerToken, "good", http.StatusOK},
		{"already paid", buyerToken, "good", http.StatusConflict},
	}
	for _, tc := range cases {
		w := env.do(http.MethodPost, path, tc.token, gin.H{"reference": tc.ref})
		assert.Equal(t, tc.status, w.Code, "%s: %s", tc.name, w.Body.String())
	}

	// A reference can only settle one order
	second := decode[orderBody](t, env.do(http.MethodPost, "/orders", buyerToken, gin.H{"service_id": svc.ID})).Order
	w := env.do(http.MethodPost, fmt.Sprintf("/orders/%d/payments/verify", second.ID), buyerToken, gin.H{"reference": "good"})
	assert.Equal(t, http.StatusConflict, w.Code)

	var payments int64
	require.NoError(t, env.db.Model(&domain.Payment{}).Count(&payments).Error)
	assert.Equal(t, int64(1), payments)
}

// paidOrder inserts an in-progress order with a successful payment
func (e *testEnv) paidOrder(buyerID, sellerID uint) domain.Order {
	e.t.Helper()
	order := domain.Order{
		Reference:  fmt.Sprintf("ref-%d-%d-%d", buyerID, sellerID, time.Now().UnixNano()),
		BuyerID:    buyerID,
		SellerID:   sellerID,
		Title:      "Custom work",
		PriceCents: 12000,
		Status:     domain.OrderInProgress,
		PaidAt:     ptrTime(time.Now()),
	}
	require.NoError(e.t, e.db.Create(&order).Error)
	payment := domain.Payment{OrderID: order.ID, Reference: "pay-" + order.Reference, AmountCents: 12000, Currency: "NGN", Status: domain.PaymentSuccess}
	require.NoError(e.t, e.db.Create(&payment).Error)
	return order
}

func TestDisputeVerdicts(t *testing.T) {
	env := newTestEnv(t, nil)
	sellerID, sellerToken := env.user("Seller", domain.RoleSeller)
	buyerID, buyerToken := env.user("Buyer", domain.RoleBuyer)
	_, adminToken := env.user("Admin", domain.RoleAdmin)

	type disputeBody struct {
		Dispute domain.Dispute `json:"dispute"`
	}
	open := func(orderID uint) domain.Dispute {
		w := env.do(http.MethodPost, fmt.Sprintf("/orders/%d/disputes", orderID), buyerToken, gin.H{"reason": "Work was never delivered"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		return decode[disputeBody](t, w).Dispute
	}

	refunded := env.paidOrder(buyerID, sellerID)
	w := env.do(http.MethodPost, fmt.Sprintf("/orders/%d/disputes", refunded.ID), buyerToken, gin.H{"reason": "bad"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.do(http.MethodPost, fmt.Sprintf("/orders/%d/disputes", refunded.ID), sellerToken, gin.H{"reason": "Buyer is unresponsive"})
	assert.Equal(t, http.StatusConflict, w.Code)

	d := open(refunded.ID)
	assert.Equal(t, domain.DisputeOpen, d.Status)
	w = env.do(http.MethodPost, fmt.Sprintf("/orders/%d/disputes", refunded.ID), buyerToken, gin.H{"reason": "Work was never delivered"})
	assert.Equal(t, http.StatusConflict, w.Code)

	resolvePath := fmt.Sprintf("/admin/disputes/%d/resolve", d.ID)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodPost, resolvePath, sellerToken, gin.H{"verdict": "seller"}).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, resolvePath, adminToken, gin.H{"verdict": "nobody"}).Code)

	w = env.do(http.MethodPost, resolvePath, adminToken, gin.H{"verdict": "buyer", "note": "No delivery evidence"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resolved := decode[struct {
		Dispute domain.Dispute `json:"dispute"`
		Order   domain.Order   `json:"order"`
	}](t, w)
	assert.Equal(t, domain.DisputeResolved, resolved.Dispute.Status)
	assert.Equal(t, domain.VerdictBuyer, resolved.Dispute.Verdict)
	assert.Equal(t, domain.OrderCancelled, resolved.Order.Status)

	var payment domain.Payment
	require.NoError(t, env.db.Where("order_id = ?", refunded.ID).First(&payment).Error)
	assert.Equal(t, domain.PaymentRefunded, payment.Status)

	assert.Equal(t, http.StatusConflict, env.do(http.MethodPost, resolvePath, adminToken, gin.H{"verdict": "seller"}).Code)

	upheld := env.paidOrder(buyerID, sellerID)
	d2 := open(upheld.ID)
	w = env.do(http.MethodPost, fmt.Sprintf("/admin/disputes/%d/resolve", d2.ID), adminToken, gin.H{"verdict": "seller"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var order domain.Order
	require.NoError(t, env.db.First(&order, upheld.ID).Error)
	assert.Equal(t, domain.OrderCompleted, order.Status)
	var upheldPayment domain.Payment
	require.NoError(t, env.db.Where("order_id = ?", upheld.ID).First(&upheldPayment).Error)
	assert.Equal(t, domain.PaymentSuccess, upheldPayment.Status)

	list := decode[Page[domain.Dispute]](t, env.do(http.MethodGet, "/admin/disputes?status=resolved", adminToken, nil))
	assert.Equal(t, int64(2), list.Total)
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t, nil)
	sellerID, sellerToken := env.user("Seller", domain.RoleSeller)
	buyerID, buyerToken := env.user("Buyer", domain.RoleBuyer)
	env.paidOrder(buyerID, sellerID)
	svc := env.service(sellerID, "Editing", 3000)
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/orders", buyerToken, gin.H{"service_id": svc.ID}).Code)

	w := env.do(http.MethodGet, "/dashboard", buyerToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	dash := decode[Dashboard](t, w)
	assert.Equal(t, int64(2), dash.Purchases.Total)
	assert.Nil(t, dash.Sales)

	dash = decode[Dashboard](t, env.do(http.MethodGet, "/dashboard", sellerToken, nil))
	require.NotNil(t, dash.Sales)
	assert.Equal(t, int64(2), dash.Sales.Total)
	assert.Equal(t, int64(1), dash.Sales.ByStatus[domain.OrderInProgress])
	assert.Equal(t, int64(1), dash.UnreadNotifications)
}

func TestAdminUsersAndOrders(t *testing.T) {
	env := newTestEnv(t, nil)
	adminID, adminToken := env.user("Admin", domain.RoleAdmin)
	userID, userToken := env.user("Helper", domain.RoleBuyer)
	sellerID, _ := env.user("Seller", domain.RoleSeller)
	env.paidOrder(userID, sellerID)

	assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, "/admin/users", userToken, nil).Code)

	users := decode[Page[domain.User]](t, env.do(http.MethodGet, "/admin/users?role=buyer", adminToken, nil))
	assert.Equal(t, int64(1), users.Total)
	assert.False(t, users.Cached)
	assert.True(t, decode[Page[domain.User]](t, env.do(http.MethodGet, "/admin/users?role=buyer", adminToken, nil)).Cached)

	w := env.do(http.MethodPut, fmt.Sprintf("/admin/users/%d/role", userID), adminToken, gin.H{"role": "helper"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	users = decode[Page[domain.User]](t, env.do(http.MethodGet, "/admin/users?role=buyer", adminToken, nil))
	assert.Equal(t, int64(0), users.Total)

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPut, fmt.Sprintf("/admin/users/%d/role", userID), adminToken, gin.H{"role": "root"}).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPut, fmt.Sprintf("/admin/users/%d/role", adminID), adminToken, gin.H{"role": "buyer"}).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodPut, "/admin/users/9999/role", adminToken, gin.H{"role": "buyer"}).Code)

	w = env.do(http.MethodGet, "/admin/orders?status=in_progress", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	all := decode[struct {
		Orders Page[domain.Order] `json:"orders"`
		Stats  utils.StatusCounts `json:"stats"`
	}](t, w)
	assert.Equal(t, int64(1), all.Orders.Total)
	assert.Equal(t, int64(1), all.Stats.Total)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/admin/orders?from=yesterday", adminToken, nil).Code)
}

func TestRoleChangesApplyToExistingTokens(t *testing.T) {
	env := newTestEnv(t, nil)
	adminID, adminToken := env.user("Admin", domain.RoleAdmin)
	sellerID, sellerToken := env.user("Seller", domain.RoleSeller)
	helperID, helperToken := env.user("Helper", domain.RoleHelper)
	buyerID, _ := env.user("Buyer", domain.RoleBuyer)
	order := env.paidOrder(buyerID, sellerID)
	errand := domain.Errand{
		CustomerID:     buyerID,
		Title:          "Pick up parcel",
		PickupAddress:  "1 Market Rd",
		DropoffAddress: "9 Harbour St",
		BudgetCents:    2500,
		Status:         domain.ErrandOpen,
	}
	require.NoError(t, env.db.Create(&errand).Error)

	orderPath := fmt.Sprintf("/orders/%d", order.ID)
	errandPath := fmt.Sprintf("/errands/%d", errand.ID)
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, orderPath, adminToken, nil).Code)
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, errandPath, helperToken, nil).Code)
	require.NotNil(t, decode[Dashboard](t, env.do(http.MethodGet, "/dashboard", sellerToken, nil)).Sales)

	// Tokens keep their old role claim after these updates
	for _, id := range []uint{adminID, sellerID, helperID} {
		require.NoError(t, env.db.Model(&domain.User{}).Where("id = ?", id).Update("role", domain.RoleBuyer).Error)
	}

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, orderPath, adminToken, nil).Code)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, "/admin/orders", adminToken, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, errandPath, helperToken, nil).Code)
	w := env.do(http.MethodGet, "/dashboard", sellerToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Nil(t, decode[Dashboard](t, w).Sales)

	// The order's own parties are unaffected
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, orderPath, sellerToken, nil).Code)
}
