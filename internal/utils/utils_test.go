package utils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"marketplace/internal/domain"
)

func TestJWTRoundTrip(t *testing.T) {
	tok, err := GenerateJWT(42, domain.RoleSeller, "secret")
	require.NoError(t, err)

	claims, err := ParseJWT(tok, "secret")
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, domain.RoleSeller, claims.Role)

	_, err = ParseJWT(tok, "other")
	assert.Error(t, err)
}

func TestSecureShufflePermutes(t *testing.T) {
	in := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	s := append([]int(nil), in...)
	require.NoError(t, SecureShuffle(s))
	sorted := append([]int(nil), s...)
	sort.Ints(sorted)
	assert.Equal(t, in, sorted)

	var empty []string
	require.NoError(t, SecureShuffle(empty))
	one := []string{"a"}
	require.NoError(t, SecureShuffle(one))
	assert.Equal(t, []string{"a"}, one)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestShuffleReportsRandomFailure(t *testing.T) {
	err := shuffleFrom(failingReader{}, []int{1, 2, 3})
	assert.ErrorContains(t, err, "entropy exhausted")
}

func TestValidatePassword(t *testing.T) {
	assert.Empty(t, ValidatePassword("Str0ng!pass"))
	assert.ElementsMatch(t, []string{
		"Password must be at least 8 characters",
		"Password must contain an uppercase letter",
		"Password must contain a digit",
		"Password must contain a symbol",
	}, ValidatePassword("weak"))

	assert.True(t, HasSymbol("a+b"))
	assert.False(t, HasSymbol("abc123"))
	assert.False(t, HasMaxLength(string(make([]byte, 73))))
	assert.True(t, HasMinLength("ééééééééé"))
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "fallback", ErrorMessage(nil, "fallback"))
	assert.Equal(t, "fallback", ErrorMessage(errors.New("boom"), "fallback"))
	assert.Equal(t, "not found", ErrorMessage(fmt.Errorf("load: %w", gorm.ErrRecordNotFound), "fallback"))
	assert.Equal(t, "Service is inactive", ErrorMessage(NewError(http.StatusGone, "gone", "Service is inactive"), "fallback"))
}

func TestErrorStatus(t *testing.T) {
	status, code := ErrorStatus(ErrInvalidTransition)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "invalid_transition", code)

	status, _ = ErrorStatus(gorm.ErrDuplicatedKey)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = ErrorStatus(gorm.ErrRecordNotFound)
	assert.Equal(t, http.StatusNotFound, status)

	status, code = ErrorStatus(errors.New("db down"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal", code)
}

func TestTallyOrderStatuses(t *testing.T) {
	got := TallyOrderStatuses([]string{"pending", "pending", "completed", "bogus"})
	assert.Equal(t, int64(3), got.Total)
	assert.Equal(t, int64(2), got.ByStatus[domain.OrderPending])
	assert.Equal(t, int64(1), got.ByStatus[domain.OrderCompleted])
	assert.Len(t, got.ByStatus, len(domain.OrderStatuses))
	assert.Zero(t, got.ByStatus[domain.OrderDisputed])

	empty := TallyOrderStatuses(nil)
	assert.Zero(t, empty.Total)
	assert.Len(t, empty.ByStatus, len(domain.OrderStatuses))
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0, 20))
	assert.Equal(t, 1, TotalPages(20, 20))
	assert.Equal(t, 2, TotalPages(21, 20))
	assert.Equal(t, 0, TotalPages(5, 0))
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestCacheHelpers(t *testing.T) {
	ctx := context.Background()
	rdb := newRedis(t)

	var out map[string]int
	found, err := GetCache(ctx, rdb, "k", &out)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, SetCache(ctx, rdb, "k", map[string]int{"a": 1}, time.Minute))
	found, err = GetCache(ctx, rdb, "k", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, out["a"])

	require.NoError(t, SetCache(ctx, rdb, "services:list:1", 1, time.Minute))
	require.NoError(t, SetCache(ctx, rdb, "services:list:2", 2, time.Minute))
	require.NoError(t, DeleteCachePrefix(ctx, rdb, "services:list:"))
	n, err := rdb.Exists(ctx, "services:list:1", "services:list:2", "k").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	found, err = GetCache(ctx, nil, "k", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestAllowFixedWindow(t *testing.T) {
	ctx := context.Background()
	rdb := newRedis(t)
	for i := 0; i < 3; i++ {
		ok, err := Allow(ctx, rdb, "rl:test", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := Allow(ctx, rdb, "rl:test", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}
