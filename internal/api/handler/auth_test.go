package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/trustfund-platform/trustfund/internal/api/handler"
	"github.com/trustfund-platform/trustfund/internal/auth"
	"github.com/trustfund-platform/trustfund/internal/users"
	"go.uber.org/zap"
)

type stubUserSvc struct {
	byEmail map[string]*users.User
}

func newStubUserSvc() *stubUserSvc {
	return &stubUserSvc{byEmail: make(map[string]*users.User)}
}

func (s *stubUserSvc) Signup(_ context.Context, email, password, name, _ string) (*users.User, error) {
	if len(password) < 8 {
		return nil, users.ErrWeakPassword
	}
	if _, ok := s.byEmail[email]; ok {
		return nil, users.ErrDuplicateEmail
	}
	u := &users.User{ID: uuid.New(), Email: email, Name: name, TrustScore: users.InitialTrustScore}
	s.byEmail[email] = u
	return u, nil
}

func (s *stubUserSvc) Login(_ context.Context, email, password string) (*users.User, error) {
	u, ok := s.byEmail[email]
	if !ok || password != "password123" {
		return nil, users.ErrInvalidCredentials
	}
	return u, nil
}

func (s *stubUserSvc) VerifyEmail(_ context.Context, token string) (*users.User, error) {
	if token != "good-token" {
		return nil, users.ErrNotFound
	}
	return &users.User{ID: uuid.New(), EmailVerified: true}, nil
}

func newTestIssuer(t *testing.T) *auth.TokenIssuer {
	t.Helper()
	issuer, err := auth.NewTokenIssuer([]byte("test-secret-at-least-32-bytes-ok"), "https://api.trustfund.test", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return issuer
}

func setupAuthRouter(t *testing.T) (*gin.Engine, *stubUserSvc) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	svc := newStubUserSvc()
	h := handler.NewAuthHandler(svc, newTestIssuer(t), zap.NewNop())
	h.Register(r.Group("/api/v1"))
	return r, svc
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSignup_201(t *testing.T) {
	router, _ := setupAuthRouter(t)

	w := postJSON(t, router, "/api/v1/auth/signup", gin.H{
		"email":    "priya@example.com",
		"password": "password123",
		"name":     "Priya",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"token"`) {
		t.Error("response carries no session token")
	}
}

func TestSignup_409_duplicate(t *testing.T) {
	router, _ := setupAuthRouter(t)

	body := gin.H{"email": "priya@example.com", "password": "password123", "name": "Priya"}
	if w := postJSON(t, router, "/api/v1/auth/signup", body); w.Code != http.StatusCreated {
		t.Fatalf("first signup: %d", w.Code)
	}
	if w := postJSON(t, router, "/api/v1/auth/signup", body); w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

func TestSignup_400(t *testing.T) {
	router, _ := setupAuthRouter(t)

	cases := []struct {
		name string
		body gin.H
	}{
		{"missing email", gin.H{"password": "password123", "name": "X"}},
		{"bad email", gin.H{"email": "nope", "password": "password123", "name": "X"}},
		{"short password", gin.H{"email": "x@example.com", "password": "short", "name": "X"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if w := postJSON(t, router, "/api/v1/auth/signup", tc.body); w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	router, _ := setupAuthRouter(t)
	postJSON(t, router, "/api/v1/auth/signup", gin.H{
		"email": "priya@example.com", "password": "password123", "name": "Priya",
	})

	t.Run("success", func(t *testing.T) {
		w := postJSON(t, router, "/api/v1/auth/login", gin.H{
			"email": "priya@example.com", "password": "password123",
		})
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		w := postJSON(t, router, "/api/v1/auth/login", gin.H{
			"email": "priya@example.com", "password": "wrong-password",
		})
		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
	})
}

func TestVerifyEmail(t *testing.T) {
	router, _ := setupAuthRouter(t)

	if w := postJSON(t, router, "/api/v1/auth/verify-email", gin.H{"token": "good-token"}); w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if w := postJSON(t, router, "/api/v1/auth/verify-email", gin.H{"token": "bad-token"}); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}
