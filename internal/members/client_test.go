package members

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

const eligibilityPayload = `{
	"member_id": "mem-42",
	"group_id": "grp-7",
	"is_chat_eligible_member": true,
	"is_demo_member": false,
	"is_wellness_only": false,
	"chat_hours": "M_F_8_6"
}`

func TestFetchEligibility(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/eligibility/mem-42", r.URL.Path)
		assert.Equal(t, "grp-7", r.URL.Query().Get("group"))
		_, _ = w.Write([]byte(eligibilityPayload))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	got, err := c.FetchEligibility(context.Background(), "mem-42", "grp-7")
	require.NoError(t, err)
	assert.Equal(t, "mem-42", got.MemberID)
	assert.True(t, got.ChatEligibleMember)
	assert.Equal(t, "M_F_8_6", got.ChatHours)
}

func TestFetchEligibilityRequiresMemberID(t *testing.T) {
	c := NewClient("http://unused")
	_, err := c.FetchEligibility(context.Background(), "  ", "grp-7")
	assert.Error(t, err)
}

func TestFetchEligibilityRejectsPayloadWithoutMemberID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"is_chat_eligible_member": true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.FetchEligibility(context.Background(), "mem-42", "grp-7")
	assert.Error(t, err)
}

func TestFetchEligibilityUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.FetchEligibility(context.Background(), "mem-42", "grp-7")
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
}

func TestFetchEligibilityUsesCache(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(eligibilityPayload))
	}))
	defer srv.Close()

	_, redisClient := testRedis(t)
	cache := NewSnapshotCache(redisClient, time.Minute)
	c := NewClient(srv.URL, WithCache(cache))

	for i := 0; i < 3; i++ {
		got, err := c.FetchEligibility(context.Background(), "mem-42", "grp-7")
		require.NoError(t, err)
		assert.Equal(t, "mem-42", got.MemberID)
	}
	assert.Equal(t, int32(1), calls.Load(), "cache hit skips the upstream call")
}

func TestSnapshotCacheExpiry(t *testing.T) {
	mr, redisClient := testRedis(t)
	cache := NewSnapshotCache(redisClient, time.Minute)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(eligibilityPayload))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithCache(cache))

	_, err := c.FetchEligibility(context.Background(), "mem-42", "grp-7")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = c.FetchEligibility(context.Background(), "mem-42", "grp-7")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load(), "expired snapshot refetches upstream")
}

func TestSnapshotCacheInvalidate(t *testing.T) {
	_, redisClient := testRedis(t)
	cache := NewSnapshotCache(redisClient, time.Minute)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(eligibilityPayload))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithCache(cache))

	_, err := c.FetchEligibility(context.Background(), "mem-42", "grp-7")
	require.NoError(t, err)

	require.NoError(t, cache.Invalidate(context.Background(), "mem-42", "grp-7"))

	_, err = c.FetchEligibility(context.Background(), "mem-42", "grp-7")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestNilCacheIsSafe(t *testing.T) {
	var cache *SnapshotCache
	got, err := cache.Get(context.Background(), "mem-42", "grp-7")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, cache.Put(context.Background(), "mem-42", "grp-7", nil))
	assert.NoError(t, cache.Invalidate(context.Background(), "mem-42", "grp-7"))
}
