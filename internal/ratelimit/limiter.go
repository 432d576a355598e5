// Package ratelimit is an in-memory sliding-window limiter. Scans are
// expensive (a headless browser per request), so the scan bucket is
// tight.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Bucket defines rate limit parameters.
type Bucket struct {
	MaxRequests int
	Window      time.Duration
}

// DefaultBuckets are the per-endpoint limits.
var DefaultBuckets = map[string]Bucket{
	"scan":    {MaxRequests: 10, Window: time.Minute},
	"analyze": {MaxRequests: 20, Window: time.Minute},
	"api":     {MaxRequests: 60, Window: time.Minute},
}

// Limiter tracks request timestamps per key.
type Limiter struct {
	mu   sync.Mutex
	hits map[string][]time.Time
}

// New creates an empty limiter.
func New() *Limiter {
	return &Limiter{hits: make(map[string][]time.Time)}
}

// Allow checks whether a request identified by key fits the bucket.
func (l *Limiter) Allow(key string, bucket Bucket) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-bucket.Window)

	times := l.hits[key]
	pruned := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			pruned = append(pruned, t)
		}
	}

	if len(pruned) >= bucket.MaxRequests {
		l.hits[key] = pruned
		return false
	}

	l.hits[key] = append(pruned, now)
	return true
}

// Check writes a 429 JSON response when the client IP exceeds the named
// bucket. Returns true if the request was rejected.
func (l *Limiter) Check(w http.ResponseWriter, r *http.Request, bucketName string) bool {
	bucket, ok := DefaultBuckets[bucketName]
	if !ok {
		bucket = Bucket{MaxRequests: 60, Window: time.Minute}
	}

	ip := r.RemoteAddr
	if fwd := r.Header.Get("X-Real-IP"); fwd != "" {
		ip = fwd
	}

	if l.Allow(bucketName+":"+ip, bucket) {
		return false
	}

	retry := strconv.Itoa(int(bucket.Window.Seconds()))
	w.Header().Set("Retry-After", retry)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	w.Write([]byte(`{"error":"rate limited","retry_after_seconds":` + retry + `}`))
	return true
}
