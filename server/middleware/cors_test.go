package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

// TestCORS проверяет добавление CORS заголовков
func TestCORS(t *testing.T) {
	router := gin.New()
	router.Use(GinCORSMiddleware(""))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	headers := map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": "POST, OPTIONS, GET, PUT",
	}
	for header, expectedValue := range headers {
		if actual := w.Header().Get(header); actual != expectedValue {
			t.Errorf("Header %s = %v, want %v", header, actual, expectedValue)
		}
	}
}

// TestCORS_OPTIONS проверяет обработку preflight запросов
func TestCORS_OPTIONS(t *testing.T) {
	router := gin.New()
	router.Use(GinCORSMiddleware("https://inventory.local"))
	router.POST("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("OPTIONS request status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://inventory.local" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}
