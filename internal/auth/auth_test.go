package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"medmind-api/internal/config"
	"medmind-api/internal/repository/db"

	"github.com/golang-jwt/jwt/v5"
)

func testAuthenticator() *Authenticator {
	return NewAuthenticator(config.AuthConfig{
		JWTSecret:       []byte("test-secret-key-that-is-at-least-32-chars"),
		TokenExpiration: time.Hour,
	})
}

func TestGenerateAndValidateToken(t *testing.T) {
	a := testAuthenticator()
	user := &db.User{ID: "0b0c7f3e-6a51-4bde-9f0e-3f4d7a9c1e20", Username: "medstudent"}

	token, err := a.GenerateToken(user)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := a.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID != user.ID || claims.Username != user.Username {
		t.Errorf("claims = %+v, want user %s/%s", claims, user.ID, user.Username)
	}
}

func TestValidateToken_Rejects(t *testing.T) {
	a := testAuthenticator()
	user := &db.User{ID: "user-1", Username: "medstudent"}

	expired := testAuthenticator()
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, _ := expired.GenerateToken(user)

	other := NewAuthenticator(config.AuthConfig{JWTSecret: []byte("another-secret-key-that-is-32-chars-long")})
	foreignToken, _ := other.GenerateToken(user)

	noneToken, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "user-1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"expired", expiredToken},
		{"wrong secret", foreignToken},
		{"unsigned", noneToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := a.ValidateToken(tt.token); err == nil {
				t.Error("ValidateToken() expected error, got nil")
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	a := testAuthenticator()
	token, _ := a.GenerateToken(&db.User{ID: "user-1", Username: "medstudent"})

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid token", "Bearer " + token, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"invalid token", "Bearer nope", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUserID string
			handler := a.Middleware(func(w http.ResponseWriter, r *http.Request) {
				gotUserID, _ = UserIDFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/conversations", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && gotUserID != "user-1" {
				t.Errorf("user id in context = %q, want user-1", gotUserID)
			}
		})
	}
}

func TestUserIDFromContext_Missing(t *testing.T) {
	if _, ok := UserIDFromContext(context.Background()); ok {
		t.Error("UserIDFromContext() ok = true for empty context")
	}
}
