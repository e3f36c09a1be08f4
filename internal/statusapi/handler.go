// Package statusapi serves a read-only HTTP view of the running pipelines and
// the ledger.
package statusapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/takeshy/photorelay/internal/ledger"
	"github.com/takeshy/photorelay/internal/relay"
)

const (
	defaultLimit = 50
	maxLimit     = 1000
)

// LedgerReader is the ledger surface the API reads
type LedgerReader interface {
	Get(ctx context.Context, key string) (*ledger.Entry, error)
	List(ctx context.Context, limit int) ([]ledger.Entry, error)
	Stats(ctx context.Context) (ledger.Stats, error)
}

// Handler serves status requests
type Handler struct {
	board  *relay.StatusBoard
	ledger LedgerReader
}

// NewHandler creates a handler
func NewHandler(board *relay.StatusBoard, l LedgerReader) *Handler {
	return &Handler{board: board, ledger: l}
}

// RegisterRoutes registers the API routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/status", h.GetStatus)
	ledgerGroup := rg.Group("/ledger")
	{
		ledgerGroup.GET("", h.ListLedger)
		ledgerGroup.GET("/:key", h.GetLedgerEntry)
	}
}

// NewRouter builds the engine with /healthz and /api/v1
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h.RegisterRoutes(r.Group("/api/v1"))
	return r
}

// GetStatus returns every pipeline's last cycle plus ledger totals
func (h *Handler) GetStatus(c *gin.Context) {
	resp := StatusResponse{Sources: []SourceResponse{}}
	for _, s := range h.board.Snapshot() {
		resp.Sources = append(resp.Sources, toSourceResponse(s))
	}

	stats, err := h.ledger.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to read ledger"})
		return
	}
	resp.Ledger = stats

	c.JSON(http.StatusOK, resp)
}

// ListLedger returns the newest ledger entries
func (h *Handler) ListLedger(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
		return
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	entries, err := h.ledger.List(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list ledger"})
		return
	}
	if entries == nil {
		entries = []ledger.Entry{}
	}

	c.JSON(http.StatusOK, LedgerListResponse{Entries: entries, Count: len(entries)})
}

// GetLedgerEntry looks up one content key
func (h *Handler) GetLedgerEntry(c *gin.Context) {
	entry, err := h.ledger.Get(c.Request.Context(), c.Param("key"))
	if errors.Is(err, ledger.ErrEntryNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not recorded"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to read ledger"})
		return
	}
	c.JSON(http.StatusOK, entry)
}
