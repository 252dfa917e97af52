package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"school-counseling-backend/internal/auth"
	mytesting "school-counseling-backend/internal/testing"

	"github.com/stretchr/testify/require"
)

func statusOkHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestEnforceJSON(t *testing.T) {
	t.Parallel()

	payload := bytes.NewBuffer([]byte(`{"password":"` + mytesting.RandString() + `"}`))
	req, err := http.NewRequest("POST", "/", payload)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	handler := enforceJSON(http.HandlerFunc(statusOkHandler))

	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
}

func TestEnforceJSON_MalformedContentType(t *testing.T) {
	t.Parallel()

	payload := bytes.NewBuffer([]byte(`{"password":"` + mytesting.RandString() + `"}`))
	req, err := http.NewRequest("POST", "/", payload)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "1:2\n+/-")

	rr := httptest.NewRecorder()
	handler := enforceJSON(http.HandlerFunc(statusOkHandler))

	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "Malformed Content-Type header\n", rr.Body.String())
}

func TestEnforceJSON_UnsupportedContentType(t *testing.T) {
	t.Parallel()

	payload := bytes.NewBuffer([]byte(`{"password":"` + mytesting.RandString() + `"}`))
	req, err := http.NewRequest("POST", "/", payload)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "text/plain")

	rr := httptest.NewRecorder()
	handler := enforceJSON(http.HandlerFunc(statusOkHandler))

	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
	require.Equal(t, "Content-Type header must be application/json\n", rr.Body.String())
}

func TestEnforceJSON_NoContentType(t *testing.T) {
	t.Parallel()

	payload := bytes.NewBuffer([]byte(`{"password":"` + mytesting.RandString() + `"}`))
	req, err := http.NewRequest("POST", "/", payload)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	handler := enforceJSON(http.HandlerFunc(statusOkHandler))

	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
}

func TestEnforceJSON_NoBody(t *testing.T) {
	t.Parallel()

	req, err := http.NewRequest("POST", "/", bytes.NewBuffer(nil))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	handler := enforceJSON(http.HandlerFunc(statusOkHandler))

	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "No body provided\n", rr.Body.String())
}

func TestEnforceJSON_MalformedJSON(t *testing.T) {
	t.Parallel()

	// missing opening quotation mark after colon
	payload := bytes.NewBuffer([]byte(`{"password":` + mytesting.RandString() + `"}`))
	req, err := http.NewRequest("POST", "/", payload)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	handler := enforceJSON(http.HandlerFunc(statusOkHandler))

	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "Malformed JSON\n", rr.Body.String())
}

func TestRequireAuth(t *testing.T) {
	t.Parallel()

	issuer := auth.NewIssuer("test-secret", time.Minute, time.Hour)
	pair, err := issuer.IssuePair(7, true)
	require.NoError(t, err)

	var got principal
	handler := requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = principalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}), issuer)

	req := httptest.NewRequest("GET", "/chats/", nil)
	req.Header.Set("Authorization", "Bearer "+pair.Access)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, principal{ID: 7, IsPsychologist: true}, got)
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	t.Parallel()

	issuer := auth.NewIssuer("test-secret", time.Minute, time.Hour)
	handler := requireAuth(http.HandlerFunc(statusOkHandler), issuer)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/chats/", nil))

	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequireAuth_RefreshTokenRejected(t *testing.T) {
	t.Parallel()

	issuer := auth.NewIssuer("test-secret", time.Minute, time.Hour)
	pair, err := issuer.IssuePair(7, false)
	require.NoError(t, err)

	handler := requireAuth(http.HandlerFunc(statusOkHandler), issuer)

	req := httptest.NewRequest("GET", "/chats/", nil)
	req.Header.Set("Authorization", "Bearer "+pair.Refresh)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	pool := newLimiterPool(1, 2)
	handler := rateLimit(http.HandlerFunc(statusOkHandler), pool)

	codes := make(map[int]int)
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest("POST", "/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		codes[rr.Code]++
	}

	require.Equal(t, 2, codes[http.StatusOK])
	require.Equal(t, 3, codes[http.StatusTooManyRequests])

	// a different host gets its own bucket
	req := httptest.NewRequest("POST", "/auth/login", nil)
	req.RemoteAddr = "10.0.0.2:5000"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}
