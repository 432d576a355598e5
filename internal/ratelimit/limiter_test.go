package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowWithinBudget(t *testing.T) {
	l := New()
	bucket := Bucket{MaxRequests: 3, Window: time.Minute}

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("k", bucket))
	}
	assert.False(t, l.Allow("k", bucket))
}

func TestAllowKeysAreIndependent(t *testing.T) {
	l := New()
	bucket := Bucket{MaxRequests: 1, Window: time.Minute}

	assert.True(t, l.Allow("a", bucket))
	assert.False(t, l.Allow("a", bucket))
	assert.True(t, l.Allow("b", bucket))
}

func TestCheckWrites429(t *testing.T) {
	l := New()

	for i := 0; i < DefaultBuckets["scan"].MaxRequests; i++ {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/scan", nil)
		r.RemoteAddr = "203.0.113.9:1234"
		assert.False(t, l.Check(w, r, "scan"))
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/scan", nil)
	r.RemoteAddr = "203.0.113.9:1234"
	assert.True(t, l.Check(w, r, "scan"))
	assert.Equal(t, 429, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate limited")
}

func TestCheckUsesRealIPHeader(t *testing.T) {
	l := New()
	bucket := DefaultBuckets["scan"]

	for i := 0; i < bucket.MaxRequests; i++ {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/scan", nil)
		r.Header.Set("X-Real-IP", "198.51.100.7")
		l.Check(w, r, "scan")
	}

	// Same header, different socket address: still limited.
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/scan", nil)
	r.RemoteAddr = "203.0.113.1:9"
	r.Header.Set("X-Real-IP", "198.51.100.7")
	assert.True(t, l.Check(w, r, "scan"))
}
