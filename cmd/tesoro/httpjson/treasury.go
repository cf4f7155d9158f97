package httpjson

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	web "github.com/tesoro-hq/tesoro/api/http"
	"github.com/tesoro-hq/tesoro/api/services"
)

func (h *handler) setupTreasuryRoutes(rg *gin.RouterGroup) {
	rg.GET("/treasury/breakdown", h.getTreasuryBreakdown)
	rg.GET("/treasury/activity", h.getTreasuryActivity)
	rg.GET("/treasury/history", h.getTreasuryHistory)
}

func (h *handler) getTreasuryBreakdown(c *gin.Context) {
	chainID, err := resolveChainID(c)
	if err != nil {
		web.ErrBadRequest(c, err)
		return
	}

	breakdown, err := h.deps.Treasury.Breakdown(c.Request.Context(), chainID)
	if errors.Is(err, services.ErrChainNotConfigured) {
		web.ErrNotFound(c, err)
		return
	}
	if err != nil {
		web.ErrInternalServerError(c, err)
		return
	}

	c.JSON(http.StatusOK, breakdown)
}

func (h *handler) getTreasuryActivity(c *gin.Context) {
	chainID, err := resolveChainID(c)
	if err != nil {
		web.ErrBadRequest(c, err)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	events, err := h.deps.Treasury.ActivityFeed(c.Request.Context(), chainID, limit)
	if err != nil {
		web.ErrInternalServerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (h *handler) getTreasuryHistory(c *gin.Context) {
	chainID, err := resolveChainID(c)
	if err != nil {
		web.ErrBadRequest(c, err)
		return
	}

	asset := c.Query("asset")
	if asset == "" {
		web.ErrBadRequest(c, errors.Wrap(ErrParamRequired, "asset"))
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	snapshots, err := h.deps.Treasury.History(c.Request.Context(), chainID, asset, limit)
	if err != nil {
		web.ErrInternalServerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"snapshots": snapshots})
}
