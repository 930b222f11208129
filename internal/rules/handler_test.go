package rules

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richxcame/account-onboarding/internal/facts"
	"github.com/richxcame/account-onboarding/pkg/middleware"
)

const testSecret = "test-secret"

func adminToken(t *testing.T, role string) string {
	t.Helper()
	claims := middleware.Claims{
		Subject: "ops-1",
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func setupRouter(t *testing.T) (*gin.Engine, *Store) {
	gin.SetMode(gin.TestMode)
	store := NewStore(facts.Full(), nil)
	require.NoError(t, store.Load(context.Background(), DefaultRules()))

	router := gin.New()
	NewHandler(store).RegisterRoutes(router, testSecret)
	return router, store
}

func doRequest(router *gin.Engine, method, path, auth string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHandler_ListRules(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, http.MethodGet, "/api/v1/rules", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.True(t, resp["success"].(bool))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["version"])
	assert.Len(t, data["rules"], len(DefaultRules()))
}

func TestHandler_GetRule(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, http.MethodGet, "/api/v1/rules/MINOR_COSIGNER", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "age < 18", data["condition"])

	w = doRequest(router, http.MethodGet, "/api/v1/rules/NOPE", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_ListActions(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, http.MethodGet, "/api/v1/rules/actions", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].([]interface{})
	first := data[0].(map[string]interface{})
	assert.Equal(t, "critical", first["severity"])
}

func TestHandler_CreateRule(t *testing.T) {
	body := map[string]interface{}{
		"id":        "HIGH_DEPOSIT",
		"name":      "Large Opening Deposit",
		"condition": "initial_deposit > 50000",
		"action":    "require_manual_review",
		"priority":  65,
	}

	tests := []struct {
		name string
		auth func(t *testing.T) string
		body map[string]interface{}
		want int
	}{
		{"no token", func(*testing.T) string { return "" }, body, http.StatusUnauthorized},
		{"non-admin", func(t *testing.T) string { return adminToken(t, "analyst") }, body, http.StatusForbidden},
		{"admin", func(t *testing.T) string { return adminToken(t, middleware.RoleAdmin) }, body, http.StatusCreated},
		{"duplicate", func(t *testing.T) string { return adminToken(t, middleware.RoleAdmin) }, map[string]interface{}{
			"id": "MINOR_COSIGNER", "name": "x", "condition": "age < 18", "action": "require_cosigner",
		}, http.StatusConflict},
		{"unknown variable", func(t *testing.T) string { return adminToken(t, middleware.RoleAdmin) }, map[string]interface{}{
			"id": "BAD", "name": "x", "condition": "net_worth > 1", "action": "reject",
		}, http.StatusBadRequest},
		{"missing condition", func(t *testing.T) string { return adminToken(t, middleware.RoleAdmin) }, map[string]interface{}{
			"id": "BAD", "name": "x", "action": "reject",
		}, http.StatusBadRequest},
		{"missing id", func(t *testing.T) string { return adminToken(t, middleware.RoleAdmin) }, map[string]interface{}{
			"name": "x", "condition": "age < 18", "action": "reject",
		}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, store := setupRouter(t)
			w := doRequest(router, http.MethodPost, "/api/v1/rules", tt.auth(t), tt.body)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusCreated {
				assert.Equal(t, int64(2), store.Version())
				r, ok := store.Snapshot().Get("HIGH_DEPOSIT")
				require.True(t, ok)
				assert.True(t, r.Enabled)
			}
		})
	}
}

func TestHandler_UpdateAndDeleteRule(t *testing.T) {
	router, store := setupRouter(t)
	auth := adminToken(t, middleware.RoleAdmin)

	w := doRequest(router, http.MethodPut, "/api/v1/rules/MINOR_COSIGNER", auth, map[string]interface{}{
		"name": "Minor Requires Cosigner", "condition": "age < 19", "action": "require_cosigner", "priority": 100, "enabled": false,
	})
	require.Equal(t, http.StatusOK, w.Code)
	r, _ := store.Snapshot().Get("MINOR_COSIGNER")
	assert.Equal(t, "age < 19", r.Condition)
	assert.False(t, r.Enabled)

	w = doRequest(router, http.MethodDelete, "/api/v1/rules/MINOR_COSIGNER", auth, nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, ok := store.Snapshot().Get("MINOR_COSIGNER")
	assert.False(t, ok)

	w = doRequest(router, http.MethodDelete, "/api/v1/rules/MINOR_COSIGNER", auth, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_ValidateRule(t *testing.T) {
	router, store := setupRouter(t)
	auth := adminToken(t, middleware.RoleAdmin)

	w := doRequest(router, http.MethodPost, "/api/v1/rules/validate", auth, map[string]interface{}{
		"name": "x", "condition": "kyc_status in ['clear', 'review_required']", "action": "auto_approve",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodPost, "/api/v1/rules/validate", auth, map[string]interface{}{
		"name": "x", "condition": "kyc_status in [1]", "action": "auto_approve",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, int64(1), store.Version())
}
