package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/trustfund-platform/trustfund/internal/api/handler"
	"github.com/trustfund-platform/trustfund/internal/auth"
	"github.com/trustfund-platform/trustfund/internal/trustscore"
	"github.com/trustfund-platform/trustfund/internal/users"
	"go.uber.org/zap"
)

type stubAccountSvc struct {
	users  map[uuid.UUID]*users.User
	scores map[uuid.UUID]int
}

func (s *stubAccountSvc) GetByID(_ context.Context, id uuid.UUID) (*users.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	return u, nil
}

func (s *stubAccountSvc) SetTrustScore(_ context.Context, userID uuid.UUID, score int) error {
	s.scores[userID] = score
	return nil
}

func setupUserRouter(t *testing.T) (*gin.Engine, *stubAccountSvc, *auth.TokenIssuer) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	svc := &stubAccountSvc{
		users:  make(map[uuid.UUID]*users.User),
		scores: make(map[uuid.UUID]int),
	}
	issuer := newTestIssuer(t)
	h := handler.NewUserHandler(svc, trustscore.NewWeightedScorer(), zap.NewNop())
	h.Register(r.Group("/api/v1"), auth.RequireUser(issuer))
	return r, svc, issuer
}

func TestMe(t *testing.T) {
	router, svc, issuer := setupUserRouter(t)
	userID := uuid.New()
	svc.users[userID] = &users.User{ID: userID, Email: "priya@example.com", Name: "Priya", TrustScore: 50}

	token, err := issuer.Issue(userID, "priya@example.com", "Priya")
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var u users.User
	if err := json.Unmarshal(w.Body.Bytes(), &u); err != nil {
		t.Fatal(err)
	}
	if u.TrustScore != 50 {
		t.Errorf("trust score: got %d, want 50", u.TrustScore)
	}
}

func TestSubmitAssessment(t *testing.T) {
	router, svc, issuer := setupUserRouter(t)
	userID := uuid.New()
	svc.users[userID] = &users.User{ID: userID, TrustScore: 50}

	token, err := issuer.Issue(userID, "priya@example.com", "Priya")
	if err != nil {
		t.Fatal(err)
	}

	answers := make([]int, trustscore.VisibleCount)
	for i, q := range trustscore.VisibleQuestions() {
		answers[i] = 3
		if q.SelfRating {
			answers[i] = 3
		}
	}
	raw, err := json.Marshal(trustscore.Submission{Answers: answers})
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/me/assessment", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var res trustscore.Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.TrustScore != 60 {
		t.Errorf("trust score: got %d, want 60", res.TrustScore)
	}
	if svc.scores[userID] != 60 {
		t.Errorf("stored trust score: got %d, want 60", svc.scores[userID])
	}
}

func TestSubmitAssessment_400_badPayload(t *testing.T) {
	router, _, issuer := setupUserRouter(t)
	userID := uuid.New()

	token, err := issuer.Issue(userID, "x@example.com", "X")
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/me/assessment",
		bytes.NewReader([]byte(`{"answers":[1,2,3]}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}
