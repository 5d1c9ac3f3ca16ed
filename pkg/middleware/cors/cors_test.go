package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRouter(origins []string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(New(origins))
	r.GET("/semesters", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestPreflightShortCircuits(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/semesters", nil)
	req.Header.Set("Origin", "http://app.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()

	newRouter([]string{"http://app.test"}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://app.test", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestDisallowedOriginGetsNoHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/semesters", nil)
	req.Header.Set("Origin", "http://evil.test")
	rec := httptest.NewRecorder()

	newRouter([]string{"http://app.test"}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestEmptyListAllowsAnyOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/semesters", nil)
	req.Header.Set("Origin", "http://anything.test")
	rec := httptest.NewRecorder()

	newRouter(nil).ServeHTTP(rec, req)

	assert.Equal(t, "http://anything.test", rec.Header().Get("Access-Control-Allow-Origin"))
}
