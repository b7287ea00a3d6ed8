package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestHealthzIdentifiesService(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewSystemHandler(nil, nil, nil)
	r := gin.New()
	r.GET("/healthz", h.Healthz)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"memora-portal"`) {
		t.Errorf("body = %s, missing service name", w.Body.String())
	}
}
