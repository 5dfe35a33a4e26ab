package server_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-transfer-monitor/internal/api/server"
	"github.com/feral-file/ff-transfer-monitor/internal/auth"
	"github.com/feral-file/ff-transfer-monitor/internal/domain"
	"github.com/feral-file/ff-transfer-monitor/internal/logger"
	"github.com/feral-file/ff-transfer-monitor/internal/mocks"
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: true}); err != nil {
		panic("failed to initialize logger for tests: " + err.Error())
	}
	os.Exit(m.Run())
}

func TestRouter_WithAuth(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	events := mocks.NewMockTransferEventStore(ctrl)
	authenticator, err := auth.NewAuthenticator(auth.Config{APIKeys: []string{"secret"}})
	require.NoError(t, err)

	srv := server.New(server.Config{MetricsPath: "/metrics"}, events, authenticator)
	router, err := srv.Router()
	require.NoError(t, err)

	t.Run("rejects missing credentials", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/transfers", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("serves with api key", func(t *testing.T) {
		events.EXPECT().GetAll(gomock.Any()).Return([]domain.TransferEvent{}, nil)

		req := httptest.NewRequest(http.MethodGet, "/transfers", nil)
		req.Header.Set("Authorization", "ApiKey secret")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, "[]", w.Body.String())
	})

	t.Run("health stays open", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("exposes metrics", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "nft_monitor_http_requests_total")
	})
}

func TestRouter_CORSPreflight(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	srv := server.New(server.Config{AllowedOrigins: []string{"https://app.example.com"}}, mocks.NewMockTransferEventStore(ctrl), nil)
	router, err := srv.Router()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodOptions, "/transfers", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestLambdaHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockTransferEventStore(ctrl)
	store.EXPECT().GetAll(gomock.Any()).Return([]domain.TransferEvent{
		{TransactionHash: "0xabc", BlockNumber: 1, From: "0x1", To: "0x2", TokenID: "1"},
	}, nil)

	srv := server.New(server.Config{}, store, nil)
	handler, err := srv.NewLambdaHandler()
	require.NoError(t, err)

	resp, err := handler(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodGet,
		Path:       "/",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"transactionHash":"0xabc","blockNumber":1,"from":"0x1","to":"0x2","tokenId":"1"}]`, resp.Body)
}
