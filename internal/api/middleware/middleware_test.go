package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-transfer-monitor/internal/api/middleware"
	apierrors "github.com/feral-file/ff-transfer-monitor/internal/api/shared/errors"
	"github.com/feral-file/ff-transfer-monitor/internal/auth"
	"github.com/feral-file/ff-transfer-monitor/internal/logger"
	"github.com/feral-file/ff-transfer-monitor/internal/metrics"
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: true}); err != nil {
		panic("failed to initialize logger for tests: " + err.Error())
	}
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(middleware.RequestID())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	t.Run("generated", func(t *testing.T) {
		w := serve(router, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(middleware.RequestIDHeader, "req-1")
		w := serve(router, req)
		assert.Equal(t, "req-1", w.Header().Get(middleware.RequestIDHeader))
	})
}

func TestRecovery(t *testing.T) {
	router := gin.New()
	router.Use(middleware.Recovery())
	router.GET("/", func(c *gin.Context) { panic("boom") })

	w := serve(router, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp apierrors.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, apierrors.ErrCodeInternalError, resp.Error.Code)
}

func TestMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	httpMetrics, err := metrics.NewHTTPMetrics(registry)
	require.NoError(t, err)

	router := gin.New()
	router.Use(middleware.Metrics(httpMetrics))
	router.GET("/transfers/:tx_hash", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(router, httptest.NewRequest(http.MethodGet, "/transfers/0x1", nil))
	serve(router, httptest.NewRequest(http.MethodGet, "/transfers/0x2", nil))
	serve(router, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	expected := `
# HELP nft_monitor_http_requests_total HTTP requests
# TYPE nft_monitor_http_requests_total counter
nft_monitor_http_requests_total{method="GET",route="/transfers/:tx_hash",status="200"} 2
nft_monitor_http_requests_total{method="GET",route="unmatched",status="404"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "nft_monitor_http_requests_total"))
}

func TestAuth(t *testing.T) {
	authenticator, err := auth.NewAuthenticator(auth.Config{APIKeys: []string{"secret"}})
	require.NoError(t, err)

	router := gin.New()
	router.Use(middleware.Auth(authenticator))
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(string(middleware.AUTH_TYPE_KEY)))
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "valid api key", header: "ApiKey secret", wantStatus: http.StatusOK, wantBody: auth.TypeAPIKey},
		{name: "wrong api key", header: "ApiKey nope", wantStatus: http.StatusUnauthorized},
		{name: "missing header", wantStatus: http.StatusUnauthorized},
		{name: "jwt without key configured", header: "Bearer abc", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := serve(router, req)
			assert.Equal(t, tt.wantStatus, w.Code)

			if tt.wantStatus == http.StatusUnauthorized {
				var resp apierrors.Response
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, apierrors.ErrCodeUnauthorized, resp.Error.Code)
				return
			}
			assert.Equal(t, tt.wantBody, w.Body.String())
		})
	}
}
