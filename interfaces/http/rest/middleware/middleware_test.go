package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"

	"github.com/onokeee/mindmap/pkg/auth"
	pkgerrors "github.com/onokeee/mindmap/pkg/errors"
	"github.com/onokeee/mindmap/pkg/observability"
)

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		cookie string
		want   string
	}{
		{name: "bearer", header: "Bearer abc", want: "abc"},
		{name: "lowercase bearer", header: "bearer abc", want: "abc"},
		{name: "raw header", header: "abc", want: "abc"},
		{name: "cookie", cookie: "from-cookie", want: "from-cookie"},
		{name: "header wins", header: "Bearer abc", cookie: "from-cookie", want: "abc"},
		{name: "nothing", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: AuthCookie, Value: tt.cookie})
			}
			assert.Equal(t, tt.want, ExtractToken(req))
		})
	}
}

func TestAuthenticate(t *testing.T) {
	tokens, err := auth.NewJWTService("secret", "mindmap", time.Hour)
	require.NoError(t, err)
	token, _, err := tokens.GenerateToken("user-1", "alice")
	require.NoError(t, err)

	var seen *auth.UserContext
	handler := Authenticate(tokens, pkgerrors.NewErrorHandler(zap.NewNop(), false), zap.NewNop())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = auth.GetUserFromContext(r.Context())
			w.WriteHeader(http.StatusNoContent)
		}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "user-1", seen.UserID)
	assert.Equal(t, "alice", seen.Username)

	other, err := auth.NewJWTService("other-secret", "mindmap", time.Hour)
	require.NoError(t, err)
	forged, _, err := other.GenerateToken("user-1", "alice")
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AuthCookie, Value: forged})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid token signature")
}

func TestLoggerAndRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(RequestIDHeader)
	r.Use(Logger(zap.New(core)))
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pong"))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	requestID := rec.Header().Get("X-Request-ID")
	assert.NotEmpty(t, requestID)
	require.Equal(t, 1, logs.Len())

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "/ping", fields["path"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
	assert.EqualValues(t, 4, fields["bytes"])
	assert.Equal(t, requestID, fields["requestID"])
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	collector := observability.NewCollector("test")

	r := chi.NewRouter()
	r.Use(Metrics(collector))
	r.Get("/maps/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	for _, path := range []string{"/maps/1", "/maps/2", "/nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `test_http_requests_total{method="GET",route="/maps/{id}",status="202"} 2`), body)
	assert.Contains(t, body, `status="404"`)
}
