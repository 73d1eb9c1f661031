package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/felixlab/polysin/communication"
	"github.com/felixlab/polysin/core"
	"github.com/felixlab/polysin/engine"
	"github.com/felixlab/polysin/questions"
	"github.com/felixlab/polysin/storage"
)

// Handler carries the wired service dependencies into the gin handlers.
type Handler struct {
	Orchestrator  *engine.Orchestrator
	Bank          *questions.Bank
	History       *storage.HistoryStore
	WS            *communication.WSManager
	QuestionCount int
	Version       string
}

// AnalyzeRequest is the POST /api/analyze body.
type AnalyzeRequest struct {
	Answers []core.AnswerRecord `json:"answers" binding:"required"`
}

// Analyze runs the Felix analysis on submitted answers.
func (h *Handler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid analyze request"})
		return
	}

	result, err := h.Orchestrator.Analyze(c.Request.Context(), req.Answers)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, core.ErrNoAnswers):
			status = http.StatusBadRequest
		case errors.Is(err, core.ErrOracleTimeout):
			status = http.StatusGatewayTimeout
		case errors.Is(err, core.ErrOracleFailed), errors.Is(err, core.ErrMalformedResponse):
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetBrain returns the full trait library for the Brain panel.
func (h *Handler) GetBrain(c *gin.Context) {
	c.JSON(http.StatusOK, h.Orchestrator.Library())
}

// GetQuestions returns a quiz-sized random selection from the bank.
// ?all=true returns the whole bank in order.
func (h *Handler) GetQuestions(c *gin.Context) {
	if h.Bank == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Questions file not found"})
		return
	}
	if c.Query("all") == "true" {
		c.JSON(http.StatusOK, gin.H{"questions": h.Bank.All()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": h.Bank.Pick(h.QuestionCount)})
}

// GetHistory returns recent analysis records, newest first.
func (h *Handler) GetHistory(c *gin.Context) {
	if h.History == nil {
		c.JSON(http.StatusOK, gin.H{"analyses": []core.AnalysisResult{}})
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}

	records, err := h.History.RecentAnalyses(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if records == nil {
		records = []core.AnalysisResult{}
	}
	c.JSON(http.StatusOK, gin.H{"analyses": records})
}

// Health is the hosting-platform health check.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": h.Version})
}
