package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/pipeline"
)

// QueryRequest is the body of POST /api/v1/query.
type QueryRequest struct {
	Question  string   `json:"question"`
	SessionID string   `json:"session_id"`
	Threshold *float64 `json:"threshold"`
}

// BatchQueryRequest is the body of POST /api/v1/batch-query.
type BatchQueryRequest struct {
	Questions []string `json:"questions" binding:"required,min=1"`
	SessionID string   `json:"session_id"`
	Threshold *float64 `json:"threshold"`
}

// BatchQueryResponse is the reply to POST /api/v1/batch-query.
type BatchQueryResponse struct {
	Responses []*core.Response `json:"responses"`
}

// KnowledgeRequest is the body of POST /api/v1/knowledge and
// POST /api/v1/documents.
type KnowledgeRequest struct {
	Text     string            `json:"text" binding:"required"`
	Metadata map[string]string `json:"metadata"`
}

// KnowledgeResponse is the reply to POST /api/v1/knowledge.
type KnowledgeResponse struct {
	ID string `json:"id"`
}

// DocumentResponse is the reply to POST /api/v1/documents.
type DocumentResponse struct {
	IDs    []string `json:"ids"`
	Failed int      `json:"failed"`
}

// HealthResponse is the reply to GET /health.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

const (
	healthOK       = "ok"
	healthDegraded = "degraded"
)

func queryOptions(threshold *float64) []core.QueryOption {
	if threshold == nil {
		return nil
	}
	return []core.QueryOption{core.WithRelevanceThreshold(*threshold)}
}

func formatID(id core.ID) string {
	return strconv.FormatUint(uint64(id), 16)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func (s *Server) health(c *gin.Context) {
	components := s.assistant.HealthCheck(c.Request.Context())
	status := healthOK
	for _, v := range components {
		if v != pipeline.StatusOK {
			status = healthDegraded
			break
		}
	}
	c.JSON(http.StatusOK, HealthResponse{Status: status, Components: components})
}

func (s *Server) query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := s.assistant.HandleQuery(c.Request.Context(), req.Question, req.SessionID, queryOptions(req.Threshold)...)
	if err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) batchQuery(c *gin.Context) {
	var req BatchQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	responses, err := s.assistant.HandleBatch(c.Request.Context(), req.Questions, req.SessionID, queryOptions(req.Threshold)...)
	if err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, BatchQueryResponse{Responses: responses})
}

func (s *Server) sessionSummary(c *gin.Context) {
	c.JSON(http.StatusOK, s.assistant.MemorySummary())
}

func (s *Server) sessionStats(c *gin.Context) {
	stats := s.assistant.SessionStats(c.Param("id"))
	if !stats.Exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) clearSession(c *gin.Context) {
	s.assistant.ClearSession(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (s *Server) insertKnowledge(c *gin.Context) {
	var req KnowledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	id, err := s.assistant.InsertKnowledge(c.Request.Context(), req.Text, req.Metadata)
	if errors.Is(err, core.ErrEmptyContent) {
		badRequest(c, err)
		return
	}
	if err != nil {
		s.logger.Error("insert knowledge failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to insert knowledge"})
		return
	}
	c.JSON(http.StatusCreated, KnowledgeResponse{ID: formatID(id)})
}

func (s *Server) ingestDocument(c *gin.Context) {
	var req KnowledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := s.assistant.IngestDocument(c.Request.Context(), req.Text, req.Metadata, nil)
	if err != nil {
		badRequest(c, err)
		return
	}

	ids := make([]string, 0, len(result.IDs))
	for _, id := range result.IDs {
		if id != 0 {
			ids = append(ids, formatID(id))
		}
	}
	status := http.StatusCreated
	if len(ids) == 0 {
		status = http.StatusInternalServerError
	}
	c.JSON(status, DocumentResponse{IDs: ids, Failed: result.Failed()})
}
