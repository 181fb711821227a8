package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func cronRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/cron", CronAuth(secret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"bypass": IsRateBypass(c)})
	})
	return r
}

func TestCronAuth_EmptySecretIsOpen(t *testing.T) {
	r := cronRouter("")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/cron", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with no secret configured", w.Code)
	}
}

func TestCronAuth_RejectsMissingOrWrongSecret(t *testing.T) {
	r := cronRouter("s3cret")

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic s3cret"},
		{"wrong secret", "Bearer nope"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/cron", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", w.Code)
			}
		})
	}
}

func TestCronAuth_AcceptsSecretAndMarksBypass(t *testing.T) {
	r := cronRouter("s3cret")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/cron", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Body.String(); got != `{"bypass":true}` {
		t.Fatalf("body = %s, want rate-limit bypass marked", got)
	}
}
