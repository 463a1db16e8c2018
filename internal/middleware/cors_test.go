package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func corsRouter(origins []string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS(origins))
	r.GET("/api/events/engagements", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/api/projects", func(c *gin.Context) { c.Status(http.StatusCreated) })
	return r
}

func TestCORS_AnyOrigin(t *testing.T) {
	r := corsRouter(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/events/engagements", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	r.ServeHTTP(w, req)

	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	require.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_ListedOrigins(t *testing.T) {
	r := corsRouter([]string{"https://app.rendermarket.test"})

	tests := []struct {
		origin string
		want   int
		allow  string
	}{
		{"https://app.rendermarket.test", http.StatusOK, "https://app.rendermarket.test"},
		{"https://evil.test", http.StatusForbidden, ""},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/events/engagements", nil)
			req.Header.Set("Origin", tt.origin)
			r.ServeHTTP(w, req)

			require.Equal(t, tt.want, w.Code)
			require.Equal(t, tt.allow, w.Header().Get("Access-Control-Allow-Origin"))
			if tt.allow != "" {
				require.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
			}
		})
	}
}

func TestCORS_PreflightForEventStream(t *testing.T) {
	r := corsRouter(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/events/engagements", nil)
	req.Header.Set("Origin", "https://app.rendermarket.test")
	req.Header.Set("Access-Control-Request-Method", "GET")
	req.Header.Set("Access-Control-Request-Headers", "Last-Event-ID, Authorization")
	r.ServeHTTP(w, req)

	require.Contains(t, []int{http.StatusOK, http.StatusNoContent}, w.Code)
	require.Contains(t, strings.ToLower(w.Header().Get("Access-Control-Allow-Headers")), "last-event-id")
}
