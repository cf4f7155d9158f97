package httpjson

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/tesoro-hq/tesoro/api/db"
	web "github.com/tesoro-hq/tesoro/api/http"
	"github.com/tesoro-hq/tesoro/api/models"
)

func (h *handler) setupRecipientRoutes(rg *gin.RouterGroup) {
	rg.POST("/recipients", h.createRecipient)
	rg.GET("/recipients", h.listRecipients)
	rg.GET("/recipients/:id", h.getRecipient)
	rg.GET("/recipients/:id/intent-defaults", h.getIntentDefaults)
	rg.GET("/recipients/:id/intents", h.listRecipientIntents)
}

func (h *handler) createRecipient(c *gin.Context) {
	var req models.CreateRecipientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.ErrBadRequest(c, err)
		return
	}

	recipient, err := h.deps.Recipients.CreateRecipient(c.Request.Context(), &req)
	if err != nil {
		web.ErrBadRequest(c, err)
		return
	}

	c.JSON(http.StatusCreated, recipient)
}

func (h *handler) listRecipients(c *gin.Context) {
	recipients, err := h.deps.Recipients.ListRecipients(c.Request.Context())
	if err != nil {
		web.ErrInternalServerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"recipients": recipients})
}

func (h *handler) getRecipient(c *gin.Context) {
	recipient, err := h.deps.Recipients.GetRecipient(c.Request.Context(), c.Param("id"))
	if errors.Is(err, db.ErrNotFound) {
		web.ErrNotFound(c, err)
		return
	}
	if err != nil {
		web.ErrInternalServerError(c, err)
		return
	}

	c.JSON(http.StatusOK, recipient)
}

func (h *handler) getIntentDefaults(c *gin.Context) {
	defaults, err := h.deps.Intents.PrepareDefaults(c.Request.Context(), c.Param("id"))
	if errors.Is(err, db.ErrNotFound) {
		web.ErrNotFound(c, err)
		return
	}
	if err != nil {
		web.ErrInternalServerError(c, err)
		return
	}

	c.JSON(http.StatusOK, defaults)
}

func (h *handler) listRecipientIntents(c *gin.Context) {
	intents, err := h.deps.Intents.ListIntentsByRecipient(c.Request.Context(), c.Param("id"))
	if err != nil {
		web.ErrInternalServerError(c, err)
		return
	}

	responses := make([]*models.EscrowIntentResponse, 0, len(intents))
	for _, intent := range intents {
		responses = append(responses, intent.ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{"intents": responses})
}
