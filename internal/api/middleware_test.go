package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docchat/docchat/internal/log"
)

func TestRequestIDMiddleware(t *testing.T) {
	t.Parallel()

	var seen string
	handler := RequestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := GetRequestID(r.Context())
		require.True(t, ok)
		seen = id
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	header := rec.Header().Get("X-Request-ID")
	assert.Equal(t, seen, header)
	_, err := uuid.Parse(header)
	assert.NoError(t, err, "request id should be a valid UUID")
}

func TestRecoveryMiddleware(t *testing.T) {
	t.Parallel()

	handler := RecoveryMiddleware(log.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRecoveryMiddleware_AfterHeadersSent(t *testing.T) {
	t.Parallel()

	handler := RecoveryMiddleware(log.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		panic("late boom")
	}))

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	// The original status stands; no error body can be sent anymore.
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Parallel()

	handler := RateLimitMiddleware(1)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Burst is requestsPerSecond+1, so the first two pass and the third
	// must be rejected.
	codes := make([]int, 0, 3)
	for range 3 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusOK, codes[1])
	assert.Equal(t, http.StatusTooManyRequests, codes[2])
}

func TestLoggingWriter_CapturesStatusAndSize(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	w := &loggingWriter{ResponseWriter: rec}

	w.WriteHeader(http.StatusTeapot)
	n, err := w.Write([]byte("short and stout"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusTeapot, w.statusCode)
	assert.Equal(t, int64(n), w.bytesWritten)
}
