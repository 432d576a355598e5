package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequireToken(t *testing.T) {
	handler := RequireToken("s3cret")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		header func(r *http.Request)
		want   int
	}{
		{"no credentials", func(*http.Request) {}, 401},
		{"wrong bearer", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer nope")
		}, 401},
		{"valid bearer", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer s3cret")
		}, 200},
		{"valid api key", func(r *http.Request) {
			r.Header.Set("X-API-Key", "s3cret")
		}, 200},
		{"wrong api key", func(r *http.Request) {
			r.Header.Set("X-API-Key", "nope")
		}, 401},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest("GET", "/api/stats", nil)
			tt.header(r)
			handler.ServeHTTP(w, r)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
