package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticateRoundTrip(t *testing.T) {
	m := NewAuthMiddleware("test-secret", time.Hour)
	userID := uuid.New()

	token, err := m.GenerateToken(userID, "user")
	require.NoError(t, err)

	var gotUserID uuid.UUID
	var gotRole string
	handler := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = r.Context().Value(UserIDKey).(uuid.UUID)
		gotRole, _ = r.Context().Value(RoleKey).(string)
	}))

	req := httptest.NewRequest("GET", "/portfolio", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, gotUserID)
	assert.Equal(t, "user", gotRole)
}

func TestAuthenticateRejectsMissingToken(t *testing.T) {
	m := NewAuthMiddleware("test-secret", time.Hour)

	handler := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest("GET", "/portfolio", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateRejectsForeignSignature(t *testing.T) {
	issuer := NewAuthMiddleware("other-secret", time.Hour)
	m := NewAuthMiddleware("test-secret", time.Hour)

	token, err := issuer.GenerateToken(uuid.New(), "user")
	require.NoError(t, err)

	handler := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest("GET", "/portfolio", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateRejectsExpiredToken(t *testing.T) {
	m := NewAuthMiddleware("test-secret", -time.Minute)

	token, err := m.GenerateToken(uuid.New(), "user")
	require.NoError(t, err)

	handler := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest("GET", "/portfolio", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	m := NewAuthMiddleware("test-secret", time.Hour)

	cases := []struct {
		name     string
		role     string
		required string
		want     int
	}{
		{"admin reaches admin route", "admin", "admin", http.StatusOK},
		{"user blocked from admin route", "user", "admin", http.StatusForbidden},
		{"admin reaches user route", "admin", "user", http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token, err := m.GenerateToken(uuid.New(), tc.role)
			require.NoError(t, err)

			handler := m.Authenticate(m.RequireRole(tc.required,
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))

			req := httptest.NewRequest("GET", "/admin/transactions", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tc.want, rec.Code)
		})
	}
}
