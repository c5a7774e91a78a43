package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/domain"
	"marketplace/internal/integrations"
)

type errandBody struct {
	Errand domain.Errand `json:"errand"`
}

func TestErrandLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	customerID, customerToken := env.user("Customer", domain.RoleBuyer)
	helperID, helperToken := env.user("Helper", domain.RoleHelper)
	_, otherHelperToken := env.user("Second", domain.RoleHelper)

	w := env.do(http.MethodPost, "/errands", customerToken, gin.H{
		"title":           "Pick up groceries",
		"pickup_address":  "12 Market Road",
		"dropoff_address": "4 Palm Avenue",
		"pickup_lat":      6.45,
		"pickup_lng":      3.39,
		"budget_cents":    2500,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	errand := decode[errandBody](t, w).Errand
	assert.Equal(t, domain.ErrandOpen, errand.Status)
	assert.Equal(t, customerID, errand.CustomerID)

	bad := gin.H{"title": "Bad", "pickup_address": "a", "dropoff_address": "b", "pickup_lat": 120.0, "budget_cents": 100}
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/errands", customerToken, bad).Code)

	assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, "/errands/open", customerToken, nil).Code)
	open := decode[Page[domain.Errand]](t, env.do(http.MethodGet, "/errands/open", helperToken, nil))
	assert.Equal(t, int64(1), open.Total)

	action := func(token, name string) *errandBody {
		w := env.do(http.MethodPost, fmt.Sprintf("/errands/%d/%s", errand.ID, name), token, nil)
		if w.Code != http.StatusOK {
			t.Logf("%s: %d %s", name, w.Code, w.Body.String())
			return nil
		}
		b := decode[errandBody](t, w)
		return &b
	}

	assert.Equal(t, http.StatusForbidden, env.do(http.MethodPost, fmt.Sprintf("/errands/%d/accept", errand.ID), customerToken, nil).Code)

	accepted := action(helperToken, "accept")
	require.NotNil(t, accepted)
	assert.Equal(t, domain.ErrandAccepted, accepted.Errand.Status)
	require.NotNil(t, accepted.Errand.HelperID)
	assert.Equal(t, helperID, *accepted.Errand.HelperID)

	// Already taken
	assert.Equal(t, http.StatusConflict, env.do(http.MethodPost, fmt.Sprintf("/errands/%d/accept", errand.ID), otherHelperToken, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, fmt.Sprintf("/errands/%d", errand.ID), otherHelperToken, nil).Code)

	w = env.do(http.MethodPost, fmt.Sprintf("/errands/%d/pickup", errand.ID), customerToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "invalid_transition", decode[errorBody](t, w).Code)

	require.NotNil(t, action(helperToken, "pickup"))
	require.NotNil(t, action(helperToken, "deliver"))
	assert.Equal(t, http.StatusConflict, env.do(http.MethodPost, fmt.Sprintf("/errands/%d/complete", errand.ID), helperToken, nil).Code)
	done := action(customerToken, "complete")
	require.NotNil(t, done)
	assert.Equal(t, domain.ErrandCompleted, done.Errand.Status)
	assert.Equal(t, http.StatusConflict, env.do(http.MethodPost, fmt.Sprintf("/errands/%d/cancel", errand.ID), customerToken, nil).Code)

	mine := decode[Page[domain.Errand]](t, env.do(http.MethodGet, "/errands", helperToken, nil))
	assert.Equal(t, int64(1), mine.Total)

	var notes int64
	require.NoError(t, env.db.Model(&domain.Notification{}).Where("user_id = ? AND type = ?", customerID, domain.NotifyErrandUpdated).Count(&notes).Error)
	// accept, pickup, deliver
	assert.Equal(t, int64(3), notes)
}

func TestErrandOwnAcceptAndCancel(t *testing.T) {
	env := newTestEnv(t, nil)
	_, helperToken := env.user("Helper", domain.RoleHelper)

	w := env.do(http.MethodPost, "/errands", helperToken, gin.H{
		"title": "Drop off parcel", "pickup_address": "A", "dropoff_address": "B", "budget_cents": 900,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	errand := decode[errandBody](t, w).Errand

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, fmt.Sprintf("/errands/%d/accept", errand.ID), helperToken, nil).Code)

	w = env.do(http.MethodPost, fmt.Sprintf("/errands/%d/cancel", errand.ID), helperToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, domain.ErrandCancelled, decode[errandBody](t, w).Errand.Status)
}

func TestGeocodeCachesResults(t *testing.T) {
	env := newTestEnv(t, nil)
	_, token := env.user("Buyer", domain.RoleBuyer)

	type geocodeBody struct {
		Results []integrations.Place `json:"results"`
		Cached  bool                 `json:"cached"`
	}
	first := decode[geocodeBody](t, env.do(http.MethodGet, "/geocode?q=Ikeja%20City%20Mall", token, nil))
	require.Len(t, first.Results, 1)
	assert.False(t, first.Cached)
	assert.Equal(t, "ikeja city mall, Lagos", first.Results[0].Label)

	second := decode[geocodeBody](t, env.do(http.MethodGet, "/geocode?q=%20IKEJA%20%20city%20mall", token, nil))
	assert.True(t, second.Cached)
	assert.Equal(t, int32(1), env.geocoder.calls.Load())

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/geocode?q=ab", token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/geocode?q=lagos", "", nil).Code)
}

func TestDescribe(t *testing.T) {
	body := gin.H{"title": "Wedding photography", "keywords": []string{"outdoor", "drone"}}

	t.Run("disabled", func(t *testing.T) {
		env := newTestEnv(t, nil)
		_, token := env.user("Seller", domain.RoleSeller)
		w := env.do(http.MethodPost, "/ai/describe", token, body)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "unavailable", decode[errorBody](t, w).Code)
	})

	t.Run("enabled", func(t *testing.T) {
		env := newTestEnv(t, fakeDescriber{})
		_, token := env.user("Seller", domain.RoleSeller)
		w := env.do(http.MethodPost, "/ai/describe", token, body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		got := decode[struct {
			Description string `json:"description"`
		}](t, w)
		assert.Equal(t, "A great Wedding photography service: outdoor, drone", got.Description)

		assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/ai/describe", token, gin.H{"title": "x"}).Code)
	})
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}
