// Praxis - Education Portfolio Platform
// Copyright 2026 Praxis contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praxis-edu/praxis

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/praxis-edu/praxis/internal/config"
)

func newTestManager(t *testing.T, timeout time.Duration) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(&config.SecurityConfig{
		JWTSecret:      "test-secret-at-least-32-characters-long",
		SessionTimeout: timeout,
	})
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	return m
}

func TestNewJWTManagerRequiresSecret(t *testing.T) {
	if _, err := NewJWTManager(&config.SecurityConfig{}); err == nil {
		t.Error("NewJWTManager accepted an empty secret")
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	m := newTestManager(t, time.Hour)

	token, expires, err := m.GenerateToken("user-1", "alice", "student")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if time.Until(expires) < 55*time.Minute {
		t.Errorf("expiry %v too soon", expires)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != "user-1" || claims.Username != "alice" || claims.Role != "student" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestValidateTokenRejectsTampered(t *testing.T) {
	m := newTestManager(t, time.Hour)

	token, _, err := m.GenerateToken("user-1", "alice", "student")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := m.ValidateToken(token + "x"); err == nil {
		t.Error("tampered token validated")
	}
	if _, err := m.ValidateToken("not-a-token"); err == nil {
		t.Error("garbage token validated")
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	m1 := newTestManager(t, time.Hour)
	m2, err := NewJWTManager(&config.SecurityConfig{
		JWTSecret:      "another-secret-also-32-characters-xx",
		SessionTimeout: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}

	token, _, _ := m1.GenerateToken("user-1", "alice", "student")
	if _, err := m2.ValidateToken(token); err == nil {
		t.Error("token signed with a different secret validated")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	m := newTestManager(t, -time.Minute)

	token, _, err := m.GenerateToken("user-1", "alice", "student")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := m.ValidateToken(token); err == nil {
		t.Error("expired token validated")
	}
}

func TestMiddleware(t *testing.T) {
	m := newTestManager(t, time.Hour)
	token, _, _ := m.GenerateToken("user-1", "alice", "student")

	var gotClaims *Claims
	handler := Middleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if gotClaims == nil || gotClaims.UserID != "user-1" {
			t.Errorf("claims = %+v", gotClaims)
		}
	})

	t.Run("query param fallback", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/?token="+token, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("missing token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})
}

func TestRequireAdmin(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("admin passes", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req = req.WithContext(ContextWithClaims(req.Context(), &Claims{UserID: "u", Role: "admin"}))
		rec := httptest.NewRecorder()
		RequireAdmin(ok).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("student forbidden", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req = req.WithContext(ContextWithClaims(req.Context(), &Claims{UserID: "u", Role: "student"}))
		rec := httptest.NewRecorder()
		RequireAdmin(ok).ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("anonymous unauthorized", func(t *testing.T) {
		rec := httptest.NewRecorder()
		RequireAdmin(ok).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(hash, "correct horse battery staple") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("wrong password accepted")
	}
}

func TestLoginLimiter(t *testing.T) {
	l := NewLoginLimiter(3, time.Minute)

	req := httptest.NewRequest("POST", "/login", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	for i := 0; i < 3; i++ {
		if !l.Allow(req) {
			t.Fatalf("attempt %d denied within burst", i+1)
		}
	}
	if l.Allow(req) {
		t.Error("attempt past burst allowed")
	}

	// A different client has its own bucket.
	other := httptest.NewRequest("POST", "/login", nil)
	other.RemoteAddr = "10.0.0.2:1234"
	if !l.Allow(other) {
		t.Error("unrelated client throttled")
	}
}
