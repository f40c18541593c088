package messaging

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestStartSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/sessions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req StartSessionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "sess-1", req.SessionID)

		_, _ = w.Write([]byte(`{"session_id": "sess-1", "plan_id": "medical-1", "agent_name": "Sam"}`))
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, APIKey: "secret"})
	require.NoError(t, err)

	info, err := c.StartSession(context.Background(), StartSessionRequest{
		SessionID: "sess-1", MemberID: "mem-42", PlanID: "medical-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "sess-1", info.SessionID)
	assert.Equal(t, "Sam", info.AgentName)
}

func TestSendMessageAndLifecyclePaths(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_, _ = w.Write([]byte(`{"message_id": "msg-1"}`))
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = c.SendMessage(ctx, SendMessageRequest{SessionID: "sess-1", MessageID: "msg-1", Text: "hi"})
	require.NoError(t, err)
	require.NoError(t, c.StartCobrowse(ctx, "sess-1"))
	require.NoError(t, c.EndCobrowse(ctx, "sess-1"))
	require.NoError(t, c.EndSession(ctx, "sess-1"))

	assert.Equal(t, []string{
		"/v1/sessions/sess-1/messages",
		"/v1/sessions/sess-1/cobrowse/start",
		"/v1/sessions/sess-1/cobrowse/end",
		"/v1/sessions/sess-1/end",
	}, paths)
}

func TestBackendErrorSurfacesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "queue full", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.StartSession(context.Background(), StartSessionRequest{SessionID: "sess-1"})
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "queue full")
}

func TestFakeIdempotency(t *testing.T) {
	f := NewFake()
	ctx := context.Background()

	first, err := f.StartSession(ctx, StartSessionRequest{SessionID: "sess-1", PlanID: "medical-1"})
	require.NoError(t, err)
	second, err := f.StartSession(ctx, StartSessionRequest{SessionID: "sess-1", PlanID: "medical-1"})
	require.NoError(t, err)
	assert.Same(t, first, second, "same session id returns the open session")

	require.NoError(t, f.EndSession(ctx, "sess-1"))
	require.NoError(t, f.EndSession(ctx, "sess-1"), "ending twice is not an error")

	_, err = f.SendMessage(ctx, SendMessageRequest{SessionID: "sess-1", MessageID: "m1"})
	assert.Error(t, err, "sends into an ended session fail")
}
