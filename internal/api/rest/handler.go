package rest

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/feral-file/ff-transfer-monitor/internal/store"
)

// Handler defines the interface for REST API handlers
//
//go:generate mockgen -source=handler.go -destination=../../mocks/api_handler.go -package=mocks -mock_names=Handler=MockAPIHandler
type Handler interface {
	// ListTransfers returns every stored transfer event
	// GET /transfers
	ListTransfers(c *gin.Context)

	// GetTransfer returns the transfer event of a transaction
	// GET /transfers/:tx_hash
	GetTransfer(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	events store.TransferEventStore
}

// NewHandler creates a new REST API handler
func NewHandler(events store.TransferEventStore) Handler {
	return &handler{
		events: events,
	}
}

// ListTransfers returns every stored transfer event ordered by block number
func (h *handler) ListTransfers(c *gin.Context) {
	events, err := h.events.GetAll(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "Failed to list transfer events")
		return
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].BlockNumber != events[j].BlockNumber {
			return events[i].BlockNumber < events[j].BlockNumber
		}
		return events[i].TransactionHash < events[j].TransactionHash
	})

	c.JSON(http.StatusOK, events)
}

// GetTransfer returns a single transfer event by transaction hash
func (h *handler) GetTransfer(c *gin.Context) {
	txHash := c.Param("tx_hash")
	if !strings.HasPrefix(txHash, "0x") || len(txHash) < 3 {
		respondBadRequest(c, "Invalid transaction hash", txHash)
		return
	}

	event, err := h.events.Get(c.Request.Context(), txHash)
	if err != nil {
		respondInternalError(c, err, "Failed to get transfer event", zap.String("txHash", txHash))
		return
	}

	if event == nil {
		respondNotFound(c, "Transfer event not found")
		return
	}

	c.JSON(http.StatusOK, event)
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}
