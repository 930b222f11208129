package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richxcame/account-onboarding/pkg/resilience"
)

func TestHTTPClient_PostsSubject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/"+IDCreditCheck, r.URL.Path)
		assert.Equal(t, "req-1", r.Header.Get("Idempotency-Key"))
		assert.Equal(t, "req-1", r.Header.Get("X-Request-ID"))

		var s Subject
		require.NoError(t, json.NewDecoder(r.Body).Decode(&s))
		assert.Equal(t, "app-42", s.ApplicationID)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"credit_score": 712, "credit_tier": "good"}`))
	}))
	defer server.Close()

	c := NewHTTPClient(server.URL, IDCreditCheck, time.Second)
	payload, err := c.Call(context.Background(), Request{RequestID: "req-1", Attempt: 1, Subject: cleanSubject()})
	require.NoError(t, err)
	assert.Equal(t, 712.0, payload["credit_score"])
}

func TestHTTPClient_ClientErrorsArePermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	_, err := NewHTTPClient(server.URL, IDKYCScreening, time.Second).Call(context.Background(), Request{})

	var permanent *resilience.PermanentError
	assert.True(t, errors.As(err, &permanent))
}

func TestHTTPClient_ServerErrorsAreRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewHTTPClient(server.URL, IDKYCScreening, time.Second).Call(context.Background(), Request{})

	require.Error(t, err)
	var permanent *resilience.PermanentError
	assert.False(t, errors.As(err, &permanent))
}

func TestHTTPClients_CoversCatalog(t *testing.T) {
	clients := HTTPClients("http://localhost:9", time.Second)
	assert.Len(t, clients, 6)
	assert.Contains(t, clients, IDFraudDatabase)
}
