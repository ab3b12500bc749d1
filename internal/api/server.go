// Package api exposes the knowledge base engine over HTTP: one knowledge
// base per server instance, ingest and query routed through the
// knowledgebase facade.
package api

import (
	"net/http"
	"time"

	"github.com/Guru2308/rag-code/internal/domain"
	"github.com/Guru2308/rag-code/internal/ingest"
	"github.com/Guru2308/rag-code/internal/kberrors"
	"github.com/Guru2308/rag-code/internal/logger"
	"github.com/Guru2308/rag-code/knowledgebase"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Server handles HTTP requests against one knowledge base.
type Server struct {
	router *gin.Engine
	kb     *knowledgebase.KnowledgeBase
	port   string
}

// NewServer creates a new API server bound to kb.
func NewServer(port string, kb *knowledgebase.KnowledgeBase) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("Inbound request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	})

	s := &Server{router: router, kb: kb, port: port}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := s.router.Group("/api")
	{
		api.POST("/documents", s.handleAddDocument)
		api.DELETE("/documents/:doc_id", s.handleDeleteDocument)
		api.POST("/query", s.handleQuery)
		api.GET("/status", s.handleStatus)
	}
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	logger.Info("Starting API server", "port", s.port)
	return s.router.Run(":" + s.port)
}

type addDocumentRequest struct {
	DocID    string            `json:"doc_id" binding:"required"`
	Text     string            `json:"text" binding:"required"`
	Title    string            `json:"title"`
	Summary  string            `json:"summary"`
	SuppID   string            `json:"supp_id"`
	Metadata map[string]string `json:"metadata"`
}

// handleAddDocument ingests a single document into the knowledge base.
// @Summary      Add a document
// @Description  Ingest a document (sectioning, chunking, embedding, indexing)
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        request  body      addDocumentRequest  true  "Document to ingest"
// @Success      202      {object}  map[string]string
// @Failure      400      {object}  map[string]string
// @Router       /documents [post]
func (s *Server) handleAddDocument(c *gin.Context) {
	var req addDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	in := ingest.Input{
		DocID:    req.DocID,
		Text:     req.Text,
		Title:    req.Title,
		Summary:  req.Summary,
		SuppID:   req.SuppID,
		Metadata: req.Metadata,
	}

	if err := s.kb.AddDocument(c.Request.Context(), in); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "ingested", "doc_id": req.DocID})
}

// handleDeleteDocument removes a document and its artifacts.
// @Summary      Delete a document
// @Tags         documents
// @Produce      json
// @Param        doc_id  path      string  true  "Document ID"
// @Success      200     {object}  map[string]string
// @Failure      500     {object}  map[string]string
// @Router       /documents/{doc_id} [delete]
func (s *Server) handleDeleteDocument(c *gin.Context) {
	docID := c.Param("doc_id")
	if err := s.kb.DeleteDocument(c.Request.Context(), docID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "doc_id": docID})
}

type queryRequest struct {
	Queries   []string          `json:"queries" binding:"required"`
	Filter    map[string]string `json:"filter"`
	RSEPreset string            `json:"rse_preset"`
	Mode      string            `json:"mode"`
}

// handleQuery runs the retrieve -> meta-document -> RSE -> materialize
// pipeline and returns the selected segments.
// @Summary      Query the knowledge base
// @Description  Retrieve and select the most relevant segments for a query set
// @Tags         query
// @Accept       json
// @Produce      json
// @Param        request  body      queryRequest  true  "Query set"
// @Success      200      {object}  map[string]interface{}
// @Failure      400      {object}  map[string]string
// @Failure      500      {object}  map[string]string
// @Router       /query [post]
func (s *Server) handleQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mode := domain.ReturnMode(req.Mode)
	if mode == "" {
		mode = domain.ReturnModeDynamic
	}

	var rseInput any
	if req.RSEPreset != "" {
		rseInput = req.RSEPreset
	}

	segments, err := s.kb.Query(c.Request.Context(), knowledgebase.QueryInput{
		Queries:  req.Queries,
		Filter:   req.Filter,
		RSEInput: rseInput,
		Mode:     mode,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	logger.Info("Query served", "queries", len(req.Queries), "segments", len(segments))
	c.JSON(http.StatusOK, gin.H{"segments": segments})
}

// handleStatus returns the server status.
// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /status [get]
func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// writeError maps an AppError's type to an HTTP status; any other error is
// treated as internal.
func writeError(c *gin.Context, err error) {
	appErr, ok := err.(*kberrors.AppError)
	if !ok {
		logger.Error("request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status := http.StatusInternalServerError
	switch appErr.Type {
	case kberrors.ErrorTypeValidation:
		status = http.StatusBadRequest
	case kberrors.ErrorTypeNotFound:
		status = http.StatusNotFound
	case kberrors.ErrorTypeTransientProvider:
		status = http.StatusServiceUnavailable
	}

	logger.Error("request failed", "error", appErr, "type", appErr.Type)
	c.JSON(status, gin.H{"error": appErr.Message})
}
