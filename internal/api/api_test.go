package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"marketplace/internal/db"
	"marketplace/internal/domain"
	"marketplace/internal/integrations"
	"marketplace/internal/utils"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
	logrus.SetOutput(io.Discard)
}

type fakePayments struct {
	byRef map[string]*integrations.Verification
}

func (f *fakePayments) Verify(_ context.Context, ref string) (*integrations.Verification, error) {
	v, ok := f.byRef[ref]
	if !ok {
		return nil, integrations.ErrPaymentNotFound
	}
	return v, nil
}

type fakeGeocoder struct {
	calls atomic.Int32
}

func (f *fakeGeocoder) Search(_ context.Context, q string, limit int) ([]integrations.Place, error) {
	f.calls.Add(1)
	return []integrations.Place{{Label: q + ", Lagos", Lat: 6.5, Lng: 3.4}}, nil
}

type fakeDescriber struct{}

func (fakeDescriber) Describe(_ context.Context, title string, keywords []string) (string, error) {
	return "A great " + title + " service: " + strings.Join(keywords, ", "), nil
}

type testEnv struct {
	t        *testing.T
	db       *gorm.DB
	rdb      *redis.Client
	router   *gin.Engine
	payments *fakePayments
	geocoder *fakeGeocoder
}

func newTestEnv(t *testing.T, describer Describer) *testEnv {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Migrate(gdb))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	env := &testEnv{
		t:        t,
		db:       gdb,
		rdb:      rdb,
		payments: &fakePayments{byRef: map[string]*integrations.Verification{}},
		geocoder: &fakeGeocoder{},
	}
	router, err := NewRouter(Deps{
		DB:              gdb,
		Redis:           rdb,
		JWTSecret:       testSecret,
		Geocoder:        env.geocoder,
		Payments:        env.payments,
		PaymentCurrency: "NGN",
		Describer:       describer,
	})
	require.NoError(t, err)
	env.router = router
	return env
}

// user inserts a user with the given role and returns its id and a session token
func (e *testEnv) user(name, role string) (uint, string) {
	e.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("Str0ng!pass"), bcrypt.MinCost)
	require.NoError(e.t, err)
	u := domain.User{Email: strings.ToLower(name) + "@example.com", Name: name, Password: string(hash), Role: role}
	require.NoError(e.t, e.db.Create(&u).Error)
	token, err := utils.GenerateJWT(u.ID, u.Role, testSecret)
	require.NoError(e.t, err)
	return u.ID, token
}

// service inserts an active service for seller
func (e *testEnv) service(sellerID uint, title string, price int64) domain.Service {
	e.t.Helper()
	svc := domain.Service{SellerID: sellerID, Title: title, PriceCents: price, DeliveryDays: 3, Active: true}
	require.NoError(e.t, e.db.Create(&svc).Error)
	return svc
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(e.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func ptrTime(t time.Time) *time.Time { return &t }
