package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onokeee/mindmap/infrastructure/config"
	"github.com/onokeee/mindmap/infrastructure/di"
	"github.com/onokeee/mindmap/interfaces/http/rest/middleware"
)

const (
	adminUser     = "admin"
	adminPassword = "correct-horse"
)

type sessionState struct {
	SessionID     string `json:"sessionId"`
	MapID         string `json:"mapId"`
	MapName       string `json:"mapName"`
	CanUndo       bool   `json:"canUndo"`
	CanRedo       bool   `json:"canRedo"`
	IsDirty       bool   `json:"isDirty"`
	HistoryLength int    `json:"historyLength"`
	Cursor        int    `json:"cursor"`
	Document      struct {
		Nodes []struct {
			ID     string  `json:"id"`
			Text   string  `json:"text"`
			Parent *string `json:"parent"`
		} `json:"nodes"`
	} `json:"document"`
}

type errorBody struct {
	Error   bool   `json:"error"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type testServer struct {
	t         *testing.T
	container *di.Container
	handler   http.Handler
}

func newTestServer(t *testing.T, mutate ...func(*config.Config)) *testServer {
	t.Helper()

	cfg := config.Defaults()
	cfg.LogLevel = "error"
	cfg.JWTSecret = "test-secret"
	cfg.AdminPassword = adminPassword
	for _, fn := range mutate {
		fn(cfg)
	}

	container, cleanup, err := di.InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	return &testServer{t: t, container: container, handler: container.Router.Setup()}
}

func (s *testServer) request(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(username, password string) string {
	s.t.Helper()

	rec := s.request(http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	decode(s.t, rec, &resp)
	require.NotEmpty(s.t, resp.Token)
	return resp.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func sampleDocument(rootText string) map[string]any {
	return map[string]any{
		"nodes": []map[string]any{
			{"id": "root", "text": rootText, "x": 0, "y": 0, "parent": nil, "children": []string{"a"}, "color": "white"},
			{"id": "a", "text": "Child", "x": 120, "y": 40, "parent": "root", "children": []string{}, "color": ""},
		},
		"customLinks":         []map[string]any{},
		"reversedConnections": []map[string]any{},
	}
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.request(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = srv.request(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `mindmap_http_requests_total{method="GET",route="/health",status="200"}`)
}

func TestMetricsRouteDisabled(t *testing.T) {
	srv := newTestServer(t, func(cfg *config.Config) { cfg.EnableMetrics = false })

	rec := srv.request(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuthFlow(t *testing.T) {
	srv := newTestServer(t)

	t.Run("rejects bad credentials", func(t *testing.T) {
		rec := srv.request(http.MethodPost, "/api/auth/login", "", map[string]string{
			"username": adminUser,
			"password": "wrong",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		var body errorBody
		decode(t, rec, &body)
		assert.Equal(t, "Invalid credentials", body.Message)
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		rec := srv.request(http.MethodPost, "/api/auth/login", "", map[string]string{"username": adminUser})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("login sets cookie and session reports it", func(t *testing.T) {
		rec := srv.request(http.MethodPost, "/api/auth/login", "", map[string]string{
			"username": adminUser,
			"password": adminPassword,
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var cookie *http.Cookie
		for _, c := range rec.Result().Cookies() {
			if c.Name == middleware.AuthCookie {
				cookie = c
			}
		}
		require.NotNil(t, cookie)
		assert.True(t, cookie.HttpOnly)

		req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
		req.AddCookie(cookie)
		check := httptest.NewRecorder()
		srv.handler.ServeHTTP(check, req)
		require.Equal(t, http.StatusOK, check.Code)
		assert.JSONEq(t, `{"loggedIn":true,"username":"admin"}`, check.Body.String())

		// The cookie alone authenticates API calls.
		req = httptest.NewRequest(http.MethodGet, "/api/v1/mindmaps", nil)
		req.AddCookie(cookie)
		list := httptest.NewRecorder()
		srv.handler.ServeHTTP(list, req)
		assert.Equal(t, http.StatusOK, list.Code)
	})

	t.Run("session without token", func(t *testing.T) {
		rec := srv.request(http.MethodGet, "/api/auth/session", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"loggedIn":false}`, rec.Body.String())
	})

	t.Run("logout clears cookie", func(t *testing.T) {
		rec := srv.request(http.MethodPost, "/api/auth/logout", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, middleware.AuthCookie, cookies[0].Name)
		assert.Negative(t, cookies[0].MaxAge)
	})
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name    string
		token   string
		message string
	}{
		{name: "missing", token: "", message: "Not logged in"},
		{name: "garbage", token: "not-a-jwt", message: "Invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.request(http.MethodGet, "/api/v1/mindmaps", tt.token, nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)

			var body errorBody
			decode(t, rec, &body)
			assert.Equal(t, tt.message, body.Message)
		})
	}
}

func TestMindMapLifecycle(t *testing.T) {
	srv := newTestServer(t)
	token := srv.login(adminUser, adminPassword)

	rec := srv.request(http.MethodPost, "/api/v1/mindmaps/", token, map[string]any{
		"name": "  Plans  ",
		"data": sampleDocument("Root"),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var saved struct {
		Status string `json:"status"`
		ID     string `json:"id"`
		Name   string `json:"name"`
	}
	decode(t, rec, &saved)
	assert.Equal(t, "success", saved.Status)
	assert.Equal(t, "Plans", saved.Name)
	require.NotEmpty(t, saved.ID)

	rec = srv.request(http.MethodGet, "/api/v1/mindmaps/", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Maps []struct {
			ID        string `json:"id"`
			NodeCount int    `json:"nodeCount"`
		} `json:"maps"`
	}
	decode(t, rec, &list)
	require.Len(t, list.Maps, 1)
	assert.Equal(t, saved.ID, list.Maps[0].ID)
	assert.Equal(t, 2, list.Maps[0].NodeCount)

	rec = srv.request(http.MethodGet, "/api/v1/mindmaps/"+saved.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		ID      string `json:"id"`
		Version int    `json:"version"`
		Data    struct {
			Nodes []map[string]any `json:"nodes"`
		} `json:"data"`
	}
	decode(t, rec, &got)
	assert.Equal(t, saved.ID, got.ID)
	assert.Len(t, got.Data.Nodes, 2)

	rec = srv.request(http.MethodPost, "/api/v1/mindmaps/", token, map[string]any{
		"id":   saved.ID,
		"name": "Plans v2",
		"data": sampleDocument("Renamed root"),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = srv.request(http.MethodPost, "/api/v1/mindmaps/", token, map[string]any{
		"name": "Plans v2",
		"data": sampleDocument("Copy"),
	})
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	rec = srv.request(http.MethodDelete, "/api/v1/mindmaps/"+saved.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"success"}`, rec.Body.String())

	rec = srv.request(http.MethodGet, "/api/v1/mindmaps/"+saved.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMindMapValidation(t *testing.T) {
	srv := newTestServer(t)
	token := srv.login(adminUser, adminPassword)

	dangling := sampleDocument("Root")
	dangling["nodes"] = []map[string]any{
		{"id": "a", "text": "Orphan", "x": 0, "y": 0, "parent": "missing", "children": []string{}},
	}

	tests := []struct {
		name string
		body any
	}{
		{name: "missing data", body: map[string]any{"name": "x"}},
		{name: "malformed json", body: `{"name":`},
		{name: "unknown field", body: `{"data":{"nodes":[]},"extra":true}`},
		{name: "bad id", body: map[string]any{"id": "not-a-uuid", "data": sampleDocument("Root")}},
		{name: "dangling parent", body: map[string]any{"data": dangling}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.request(http.MethodPost, "/api/v1/mindmaps/", token, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestMindMapsAreScopedToOwner(t *testing.T) {
	srv := newTestServer(t)
	_, err := srv.container.Users.Add("bob", "bob-password")
	require.NoError(t, err)

	adminToken := srv.login(adminUser, adminPassword)
	bobToken := srv.login("bob", "bob-password")

	rec := srv.request(http.MethodPost, "/api/v1/mindmaps/", adminToken, map[string]any{
		"name": "Private",
		"data": sampleDocument("Root"),
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var saved struct {
		ID string `json:"id"`
	}
	decode(t, rec, &saved)

	rec = srv.request(http.MethodGet, "/api/v1/mindmaps/"+saved.ID, bobToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.request(http.MethodGet, "/api/v1/mindmaps/", bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"maps":[]}`, rec.Body.String())
}

func TestSessionUndoRedo(t *testing.T) {
	srv := newTestServer(t)
	token := srv.login(adminUser, adminPassword)

	rec := srv.request(http.MethodPost, "/api/v1/sessions/", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var state sessionState
	decode(t, rec, &state)
	require.NotEmpty(t, state.SessionID)
	assert.False(t, state.CanUndo)
	assert.False(t, state.CanRedo)
	assert.True(t, state.IsDirty)
	assert.Equal(t, 1, state.HistoryLength)
	assert.Empty(t, state.Document.Nodes)

	base := "/api/v1/sessions/" + state.SessionID

	rec = srv.request(http.MethodPut, base+"/document", token, map[string]any{"document": sampleDocument("First")})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &state)
	assert.True(t, state.CanUndo)
	assert.False(t, state.CanRedo)
	assert.Equal(t, 2, state.HistoryLength)
	require.Len(t, state.Document.Nodes, 2)
	assert.Equal(t, "First", state.Document.Nodes[0].Text)
	assert.Nil(t, state.Document.Nodes[0].Parent)

	rec = srv.request(http.MethodPost, base+"/undo", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &state)
	assert.False(t, state.CanUndo)
	assert.True(t, state.CanRedo)
	assert.Empty(t, state.Document.Nodes)

	// Undo at the oldest entry changes nothing.
	rec = srv.request(http.MethodPost, base+"/undo", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &state)
	assert.Equal(t, 0, state.Cursor)

	rec = srv.request(http.MethodPost, base+"/redo", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &state)
	assert.True(t, state.CanUndo)
	assert.False(t, state.CanRedo)
	require.Len(t, state.Document.Nodes, 2)

	// A new edit after undo discards the redo branch.
	srv.request(http.MethodPost, base+"/undo", token, nil)
	rec = srv.request(http.MethodPut, base+"/document", token, map[string]any{"document": sampleDocument("Second")})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &state)
	assert.False(t, state.CanRedo)
	assert.Equal(t, 2, state.HistoryLength)
	assert.Equal(t, "Second", state.Document.Nodes[0].Text)
}

func TestSessionHistoryIsBounded(t *testing.T) {
	srv := newTestServer(t, func(cfg *config.Config) { cfg.History.Capacity = 3 })
	token := srv.login(adminUser, adminPassword)

	rec := srv.request(http.MethodPost, "/api/v1/sessions/", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var state sessionState
	decode(t, rec, &state)
	base := "/api/v1/sessions/" + state.SessionID

	for _, text := range []string{"one", "two", "three", "four", "five"} {
		rec = srv.request(http.MethodPut, base+"/document", token, map[string]any{"document": sampleDocument(text)})
		require.Equal(t, http.StatusOK, rec.Code)
	}
	decode(t, rec, &state)
	assert.Equal(t, 3, state.HistoryLength)
	assert.Equal(t, 2, state.Cursor)

	for i := 0; i < 5; i++ {
		rec = srv.request(http.MethodPost, base+"/undo", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	decode(t, rec, &state)
	assert.False(t, state.CanUndo)
	require.Len(t, state.Document.Nodes, 2)
	assert.Equal(t, "three", state.Document.Nodes[0].Text)
}

func TestSessionSaveAndReopen(t *testing.T) {
	srv := newTestServer(t)
	token := srv.login(adminUser, adminPassword)

	rec := srv.request(http.MethodPost, "/api/v1/sessions/", token, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var state sessionState
	decode(t, rec, &state)
	base := "/api/v1/sessions/" + state.SessionID

	rec = srv.request(http.MethodPut, base+"/document", token, map[string]any{"document": sampleDocument("Draft")})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.request(http.MethodPost, base+"/save", token, map[string]string{"name": "Roadmap"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &state)
	assert.False(t, state.IsDirty)
	assert.Equal(t, "Roadmap", state.MapName)
	require.NotEmpty(t, state.MapID)
	mapID := state.MapID

	// Undo moves away from the saved entry, redo returns to it.
	rec = srv.request(http.MethodPost, base+"/undo", token, nil)
	decode(t, rec, &state)
	assert.True(t, state.IsDirty)
	rec = srv.request(http.MethodPost, base+"/redo", token, nil)
	decode(t, rec, &state)
	assert.False(t, state.IsDirty)

	rec = srv.request(http.MethodDelete, base, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = srv.request(http.MethodGet, base, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.request(http.MethodPost, "/api/v1/sessions/", token, map[string]string{"mapId": mapID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	decode(t, rec, &state)
	assert.False(t, state.IsDirty)
	assert.Equal(t, mapID, state.MapID)
	assert.Equal(t, "Roadmap", state.MapName)
	require.Len(t, state.Document.Nodes, 2)
	assert.Equal(t, "Draft", state.Document.Nodes[0].Text)
}

func TestSessionErrors(t *testing.T) {
	srv := newTestServer(t)
	_, err := srv.container.Users.Add("bob", "bob-password")
	require.NoError(t, err)
	token := srv.login(adminUser, adminPassword)
	bobToken := srv.login("bob", "bob-password")

	rec := srv.request(http.MethodPost, "/api/v1/sessions/", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var state sessionState
	decode(t, rec, &state)
	base := "/api/v1/sessions/" + state.SessionID

	t.Run("unknown session", func(t *testing.T) {
		rec := srv.request(http.MethodPost, "/api/v1/sessions/0b6c0a47-8a55-4c57-9e41-4f6f0b0e2a11/undo", token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed session id", func(t *testing.T) {
		rec := srv.request(http.MethodPost, "/api/v1/sessions/nope/undo", token, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("other owner", func(t *testing.T) {
		rec := srv.request(http.MethodGet, base, bobToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unknown map", func(t *testing.T) {
		rec := srv.request(http.MethodPost, "/api/v1/sessions/", token,
			map[string]string{"mapId": "6f1c1c8e-5b7a-4f6e-9d55-1f6d1b2c3d4e"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("missing document", func(t *testing.T) {
		rec := srv.request(http.MethodPut, base+"/document", token, map[string]any{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("duplicate node ids", func(t *testing.T) {
		doc := sampleDocument("Root")
		doc["nodes"] = []map[string]any{
			{"id": "a", "text": "one", "x": 0, "y": 0, "parent": nil, "children": []string{}},
			{"id": "a", "text": "two", "x": 0, "y": 0, "parent": nil, "children": []string{}},
		}
		rec := srv.request(http.MethodPut, base+"/document", token, map[string]any{"document": doc})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var body errorBody
		decode(t, rec, &body)
		assert.True(t, strings.Contains(body.Message, "duplicate"), body.Message)

		// A rejected edit leaves history untouched.
		rec = srv.request(http.MethodGet, base, token, nil)
		decode(t, rec, &state)
		assert.Equal(t, 1, state.HistoryLength)
	})
}
