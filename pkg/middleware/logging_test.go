package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/opsdesk/pkg/composables"
	"github.com/iota-uz/opsdesk/pkg/httpapi"
)

func testLogger(buf *bytes.Buffer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(buf)
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(logrus.DebugLevel)
	return l
}

func TestWithLogger_RequestScope(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	var gotID string
	var gotBody string
	h := WithLogger(testLogger(&buf), DefaultLoggerOptions())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = composables.UseRequestID(r.Context())
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		composables.UseLogger(r.Context()).Info("inside")
		w.WriteHeader(http.StatusAccepted)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/workflow/ticket/t-1/actions", strings.NewReader(`{"action":"resolve"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
	require.Equal(t, "req-42", gotID)
	require.JSONEq(t, `{"action":"resolve"}`, gotBody, "body stays readable after logging")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var last map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &last))
	require.Equal(t, "request completed", last["msg"])
	require.Equal(t, float64(http.StatusAccepted), last["status-code"])
	require.Equal(t, "req-42", last["request-id"])
	require.Contains(t, buf.String(), `"msg":"inside"`)
}

func TestWithLogger_RecoversPanics(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := WithLogger(testLogger(&buf), DefaultLoggerOptions())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/workflow/payment/p-1", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var env httpapi.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, "INTERNAL_SERVER_ERROR", env.Code)
	require.NotEmpty(t, env.Meta["request_id"])
	require.Contains(t, buf.String(), "panic recovered in request handler")
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	require.Equal(t, "abc", truncate("abc", 5))
	require.Equal(t, "ab...", truncate("abcdef", 2))
	require.Equal(t, "abcdef", truncate("abcdef", 0))
}
