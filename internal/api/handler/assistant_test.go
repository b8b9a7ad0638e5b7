package handler_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/trustfund-platform/trustfund/internal/api/handler"
	"github.com/trustfund-platform/trustfund/internal/assistant"
)

func setupAssistantRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := handler.NewAssistantHandler(assistant.New())
	h.Register(r.Group("/api/v1"))
	return r
}

func TestChat_200(t *testing.T) {
	router := setupAssistantRouter(t)

	body := []byte(`{"message": "how do interest rates work?"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assistant/chat", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "3% to 15%") {
		t.Errorf("unexpected reply: %s", w.Body.String())
	}
}

func TestChat_400_emptyMessage(t *testing.T) {
	router := setupAssistantRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/assistant/chat", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}
