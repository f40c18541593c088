package transcript

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, maxMessages int64) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, maxMessages)
}

func TestAppendAndListPreservesOrder(t *testing.T) {
	s := testStore(t, 0)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := s.Append(ctx, "sess-1", Message{Role: "member", Text: fmt.Sprintf("message %d", i)})
		require.NoError(t, err)
	}

	got, err := s.List(ctx, "sess-1", 0)
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i, msg := range got {
		assert.Equal(t, fmt.Sprintf("message %d", i), msg.Text)
		assert.NotEmpty(t, msg.ID)
		assert.False(t, msg.Timestamp.IsZero())
	}
}

func TestListLimit(t *testing.T) {
	s := testStore(t, 0)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(ctx, "sess-1", Message{Role: "member", Text: "m"}))
	}

	got, err := s.List(ctx, "sess-1", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestAppendTrimsToCap(t *testing.T) {
	s := testStore(t, 3)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		require.NoError(t, s.Append(ctx, "sess-1", Message{Role: "member", Text: fmt.Sprintf("message %d", i)}))
	}

	got, err := s.List(ctx, "sess-1", 0)
	require.NoError(t, err)
	require.Len(t, got, 3, "oldest messages are trimmed")
	assert.Equal(t, "message 3", got[0].Text)
}

func TestClear(t *testing.T) {
	s := testStore(t, 0)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "sess-1", Message{Role: "member", Text: "hello"}))
	require.NoError(t, s.Clear(ctx, "sess-1"))

	got, err := s.List(ctx, "sess-1", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNilStoreIsSafe(t *testing.T) {
	var s *Store
	ctx := context.Background()

	assert.NoError(t, s.Append(ctx, "sess-1", Message{Text: "dropped"}))
	got, err := s.List(ctx, "sess-1", 0)
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, s.Clear(ctx, "sess-1"))
}

func TestSessionIDRequired(t *testing.T) {
	s := testStore(t, 0)
	assert.Error(t, s.Append(context.Background(), "", Message{Text: "x"}))
	_, err := s.List(context.Background(), "", 0)
	assert.Error(t, err)
}
