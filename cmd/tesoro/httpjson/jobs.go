package httpjson

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/tesoro-hq/tesoro/api/db"
	web "github.com/tesoro-hq/tesoro/api/http"
	"github.com/tesoro-hq/tesoro/api/models"
	"github.com/tesoro-hq/tesoro/api/utils"
)

func (h *handler) setupJobRoutes(rg *gin.RouterGroup) {
	rg.POST("/jobs", h.createJob)
	rg.GET("/jobs", h.listJobs)
	rg.GET("/jobs/:id", h.getJob)
}

func (h *handler) createJob(c *gin.Context) {
	var req models.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.ErrBadRequest(c, err)
		return
	}

	job, err := h.deps.Jobs.CreateJob(c.Request.Context(), &req)
	switch {
	case err == nil:
	case errors.Is(err, db.ErrNotFound):
		web.ErrNotFound(c, err)
		return
	case errors.Is(err, utils.ErrMilestoneMismatch):
		web.ErrUnprocessable(c, err)
		return
	default:
		web.ErrBadRequest(c, err)
		return
	}

	c.JSON(http.StatusCreated, job)
}

func (h *handler) listJobs(c *gin.Context) {
	jobs, err := h.deps.Jobs.ListJobs(c.Request.Context())
	if err != nil {
		web.ErrInternalServerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (h *handler) getJob(c *gin.Context) {
	job, err := h.deps.Jobs.GetJob(c.Request.Context(), c.Param("id"))
	if errors.Is(err, db.ErrNotFound) {
		web.ErrNotFound(c, err)
		return
	}
	if err != nil {
		web.ErrInternalServerError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}
