package httpjson

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/tesoro-hq/tesoro/api/db"
	web "github.com/tesoro-hq/tesoro/api/http"
	"github.com/tesoro-hq/tesoro/api/models"
	"github.com/tesoro-hq/tesoro/api/registry"
	"github.com/tesoro-hq/tesoro/api/services"
	"github.com/tesoro-hq/tesoro/api/utils"
)

func (h *handler) setupIntentRoutes(rg *gin.RouterGroup) {
	rg.POST("/intents", h.createIntent)
	rg.GET("/intents", h.listIntents)
	rg.GET("/intents/:id", h.getIntent)
	rg.POST("/intents/:id/link", h.linkIntent)
}

func (h *handler) createIntent(c *gin.Context) {
	var req models.CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.ErrBadRequest(c, err)
		return
	}

	payload, err := h.deps.Intents.PrepareCreation(c.Request.Context(), &req)
	switch {
	case err == nil:
	case errors.Is(err, db.ErrNotFound):
		web.ErrNotFound(c, err)
		return
	case errors.Is(err, registry.ErrNoRouteAvailable),
		errors.Is(err, services.ErrSplitsRequired),
		errors.Is(err, utils.ErrSplitMismatch):
		web.ErrUnprocessable(c, err)
		return
	default:
		web.ErrBadRequest(c, err)
		return
	}

	c.JSON(http.StatusCreated, payload)
}

func (h *handler) listIntents(c *gin.Context) {
	pagination, err := resolvePagination(c)
	if err != nil {
		web.ErrBadRequest(c, err)
		return
	}

	intents, total, err := h.deps.Intents.ListIntents(
		c.Request.Context(), pagination.Page, pagination.PageSize, c.Query("status"))
	if err != nil {
		web.ErrInternalServerError(c, err)
		return
	}

	responses := make([]*models.EscrowIntentResponse, 0, len(intents))
	for _, intent := range intents {
		responses = append(responses, intent.ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"intents":   responses,
		"total":     total,
		"page":      pagination.Page,
		"page_size": pagination.PageSize,
	})
}

func (h *handler) getIntent(c *gin.Context) {
	intent, err := h.deps.Intents.GetIntent(c.Request.Context(), c.Param("id"))
	if errors.Is(err, db.ErrNotFound) {
		web.ErrNotFound(c, err)
		return
	}
	if err != nil {
		web.ErrInternalServerError(c, err)
		return
	}

	c.JSON(http.StatusOK, intent.ToResponse())
}

func (h *handler) linkIntent(c *gin.Context) {
	var req models.LinkIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.ErrBadRequest(c, err)
		return
	}

	intent, err := h.deps.Intents.LinkConfirmation(c.Request.Context(), c.Param("id"), &req)
	switch {
	case err == nil:
	case errors.Is(err, db.ErrNotFound):
		web.ErrNotFound(c, err)
		return
	case errors.Is(err, db.ErrAlreadyLinked):
		web.ErrConflict(c, err)
		return
	default:
		web.ErrBadRequest(c, err)
		return
	}

	c.JSON(http.StatusOK, intent.ToResponse())
}
