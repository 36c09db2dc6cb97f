package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/opsdesk/pkg/application"
	"github.com/iota-uz/opsdesk/pkg/configuration"
)

func TestDefault_MiddlewareAndMetrics(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetLevel(logrus.InfoLevel)

	conf := &configuration.Configuration{
		LogLevel:        "info",
		RequestIDHeader: "X-Request-ID",
		Prometheus:      configuration.PrometheusOptions{Enabled: true, Path: "/debug/prometheus"},
	}
	app := application.New(&application.ApplicationOptions{Logger: logger})
	srv := Default(&DefaultOptions{Logger: logger, Configuration: conf, Application: app})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/debug/prometheus", nil)
	req.Header.Set("X-Request-ID", "abc")
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
	require.Contains(t, buf.String(), "request completed")
	require.Len(t, app.Middleware(), 1, "no pool middleware without a pool")
}
