// Package httpapi exposes the analysis workflow over HTTP.
package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gogrowth/app"
	"gogrowth/domain/core"
	"gogrowth/domain/plate"
	"gogrowth/internal/report"
	"gogrowth/models"
	"gogrowth/ports"
)

// Handler serves the analysis endpoints
type Handler struct {
	service *app.AnalysisService
	repo    ports.ResultRepository // nil disables the run-lookup endpoints
}

// NewHandler creates the HTTP handler
func NewHandler(service *app.AnalysisService, repo ports.ResultRepository) *Handler {
	return &Handler{service: service, repo: repo}
}

// Router builds the gin engine with all routes registered
func (h *Handler) Router() *gin.Engine {
	r := gin.Default()
	r.GET("/healthz", h.Health)

	v1 := r.Group("/api/v1")
	v1.POST("/analyze", h.Analyze)
	v1.GET("/runs/:runID/summaries", h.ListSummaries)
	v1.GET("/runs/:runID/report", h.Report)
	return r
}

// Health reports liveness
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// AnalyzeRequest carries raw observations for an ad-hoc analysis
type AnalyzeRequest struct {
	File         string              `json:"file"`
	Observations []plate.Observation `json:"observations" binding:"required"`
}

// AnalyzeResponse returns the run identifier and per-strain summaries
type AnalyzeResponse struct {
	RunID     core.RunID             `json:"run_id"`
	Summaries []models.StrainSummary `json:"summaries"`
}

// Analyze runs the full workflow on the posted observations
func (h *Handler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	table, err := plate.NewTable(req.Observations)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	file := req.File
	if file == "" {
		file = "upload"
	}

	runID, summaries, err := h.service.AnalyzeTable(c.Request.Context(), table, file)
	if err != nil {
		status := http.StatusInternalServerError
		if core.IsInvalidInputError(err) || errors.Is(err, core.ErrEmptyTable) || errors.Is(err, core.ErrInsufficientData) {
			status = http.StatusBadRequest
		} else if core.IsDegenerateFitError(err) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, AnalyzeResponse{RunID: runID, Summaries: summaries})
}

// ListSummaries returns the stored summaries of a past run
func (h *Handler) ListSummaries(c *gin.Context) {
	summaries, runID, ok := h.loadRun(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, AnalyzeResponse{RunID: runID, Summaries: summaries})
}

// Report renders the stored summaries of a past run as an HTML page
func (h *Handler) Report(c *gin.Context) {
	summaries, runID, ok := h.loadRun(c)
	if !ok {
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", report.HTML(runID, summaries))
}

func (h *Handler) loadRun(c *gin.Context) ([]models.StrainSummary, core.RunID, bool) {
	if h.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence is not configured"})
		return nil, "", false
	}
	runID, err := core.ParseRunID(c.Param("runID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, "", false
	}
	summaries, err := h.repo.ListSummaries(c.Request.Context(), runID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return nil, "", false
	}
	return summaries, runID, true
}
