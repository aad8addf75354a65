package ingress

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hearsay/internal/config"
	"hearsay/internal/queue"
)

func newTestServer(t *testing.T) (*Server, *queue.Queue) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	q, err := queue.New(queue.DefaultConfig(), queue.WithLogger(logger))
	require.NoError(t, err)

	s, err := NewServer(config.ServerConfig{Addr: "127.0.0.1:0"}, q, logger)
	require.NoError(t, err)
	return s, q
}

func postEvent(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/events", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Data
}

func TestNewServer_NilCollaborators(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	q, err := queue.New(queue.DefaultConfig())
	require.NoError(t, err)

	_, err = NewServer(config.ServerConfig{}, nil, logger)
	assert.Error(t, err)

	_, err = NewServer(config.ServerConfig{}, q, nil)
	assert.Error(t, err)
}

func TestHandleEvent_Accepted(t *testing.T) {
	s, q := newTestServer(t)

	rec := postEvent(t, s, `{"hook_type":"notification","message":"Build finished","tool_name":"Bash"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	data := decodeData(t, rec)
	assert.Equal(t, true, data["accepted"])
	assert.NotEmpty(t, data["id"])
	assert.Equal(t, 1, q.Size())
}

func TestHandleEvent_DuplicateRejectedWith200(t *testing.T) {
	s, q := newTestServer(t)

	body := `{"hook_type":"notification","message":"Build finished","tool_name":"Bash"}`
	rec := postEvent(t, s, body)
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = postEvent(t, s, body)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	assert.Equal(t, false, data["accepted"])
	assert.Equal(t, uint64(1), q.Analytics().DuplicatesRemoved)
}

func TestHandleEvent_RequestIDEchoed(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/events",
		bytes.NewBufferString(`{"hook_type":"stop","message":"Session done"}`))
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestHandleEvent_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"malformed json", `{not json`, "validation_invalid_json"},
		{"empty body", ``, "validation_invalid_json"},
		{"unknown field", `{"hook_type":"stop","message":"x","bogus":1}`, "validation_invalid_json"},
		{"missing message", `{"hook_type":"stop"}`, "validation_invalid_value"},
		{"missing hook type", `{"message":"x"}`, "validation_invalid_value"},
		{"bad priority", `{"hook_type":"stop","message":"x","priority":"urgent"}`, "validation_invalid_value"},
		{"bad type", `{"hook_type":"stop","message":"x","type":"fatal"}`, "validation_invalid_value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t)
			rec := postEvent(t, s, tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var resp APIErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.NotEmpty(t, resp.Error.RequestID)
		})
	}
}

func TestHandleEvent_ExplicitPriorityWins(t *testing.T) {
	s, q := newTestServer(t)

	// pre_tool_use defaults to background, but the explicit priority
	// overrides it.
	rec := postEvent(t, s, `{"hook_type":"pre_tool_use","message":"Deploy gate open","priority":"critical","type":"error"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	m := q.Peek()
	require.NotNil(t, m)
	assert.Equal(t, "critical", m.Priority.String())
}

func TestHandleStats(t *testing.T) {
	s, _ := newTestServer(t)

	postEvent(t, s, `{"hook_type":"notification","message":"Needs your input"}`)

	req := httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data queue.Stats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, queue.StateNormal, resp.Data.State)
	assert.Equal(t, 1, resp.Data.Size)
	assert.Equal(t, uint64(1), resp.Data.Analytics.Enqueued)
}

func TestPauseResumeClear(t *testing.T) {
	s, q := newTestServer(t)

	do := func(path string) map[string]any {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		return decodeData(t, rec)
	}

	data := do("/v1/pause")
	assert.Equal(t, string(queue.StatePaused), data["state"])

	// Paused queue drops non-interrupt events, still 200.
	rec := postEvent(t, s, `{"hook_type":"stop","message":"Dropped while paused"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeData(t, rec)["accepted"])

	data = do("/v1/resume")
	assert.Equal(t, string(queue.StateNormal), data["state"])

	postEvent(t, s, `{"hook_type":"stop","message":"Back in business"}`)
	require.Equal(t, 1, q.Size())

	do("/v1/clear")
	assert.Equal(t, 0, q.Size())
	assert.Equal(t, queue.Analytics{}, q.Analytics())
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	assert.Equal(t, "ok", data["status"])
}

func TestRecoverer_CatchesPanics(t *testing.T) {
	s, _ := newTestServer(t)

	s.router.Get("/boom", func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp APIErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "internal_unexpected_error", resp.Error.Code)
}

func TestDecodeJSON_BodyTooLarge(t *testing.T) {
	s, _ := newTestServer(t)

	big := fmt.Sprintf(`{"hook_type":"stop","message":%q}`, bytes.Repeat([]byte("a"), maxRequestBodySize+1))
	rec := postEvent(t, s, big)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
