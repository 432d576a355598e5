package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientNilWithoutURL(t *testing.T) {
	assert.Nil(t, NewClient("", "secret"))
	assert.NotNil(t, NewClient("https://hooks.example.com/x", ""))
}

func TestNotifyPostsPayload(t *testing.T) {
	var got Notification
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	prev := 90
	err := c.Notify(context.Background(), &Notification{
		Event:      "score.regressed",
		ScanID:     "abc",
		URL:        "https://example.com/",
		Score:      75,
		PrevScore:  &prev,
		Severity:   "medium",
		Violations: 3,
	})
	require.NoError(t, err)

	assert.Equal(t, "Token tok", auth)
	assert.Equal(t, "score.regressed", got.Event)
	assert.Equal(t, 75, got.Score)
	require.NotNil(t, got.PrevScore)
	assert.Equal(t, 90, *got.PrevScore)
	assert.NotEmpty(t, got.OccurredAt, "timestamp is filled when absent")
}

func TestNotifyErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "").Notify(context.Background(), &Notification{Event: "scan.completed"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
