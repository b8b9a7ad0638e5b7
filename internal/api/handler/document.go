package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/trustfund-platform/trustfund/internal/auth"
	"github.com/trustfund-platform/trustfund/internal/documents"
	"go.uber.org/zap"
)

// documentSvc is the subset of documents.Service used by DocumentHandler.
type documentSvc interface {
	Submit(ctx context.Context, userID uuid.UUID, up documents.Upload) (*documents.Document, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*documents.Document, error)
	KYCStatus(ctx context.Context, userID uuid.UUID) (*documents.KYCStatus, error)
}

// DocumentHandler handles KYC document uploads and status queries.
type DocumentHandler struct {
	docs   documentSvc
	logger *zap.Logger
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(docs documentSvc, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{docs: docs, logger: logger}
}

// Register mounts the document routes on the given router group.
func (h *DocumentHandler) Register(rg *gin.RouterGroup, requireUser gin.HandlerFunc) {
	d := rg.Group("/documents", requireUser)
	{
		d.POST("", h.Upload)
		d.GET("", h.List)
		d.GET("/kyc", h.KYCStatus)
	}
}

// Upload handles POST /documents — a multipart form with a "document" file
// part and a "type" field.
func (h *DocumentHandler) Upload(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session required"})
		return
	}

	fileHeader, err := c.FormFile("document")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "document file part required"})
		return
	}
	docType := documents.Type(c.PostForm("type"))

	doc, err := h.docs.Submit(c.Request.Context(), userID, documents.Upload{
		Type:        docType,
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		SizeBytes:   fileHeader.Size,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, doc)
}

// List handles GET /documents — the caller's upload history.
func (h *DocumentHandler) List(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session required"})
		return
	}

	docs, err := h.docs.ListByUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("list documents", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list documents"})
		return
	}
	if docs == nil {
		docs = []*documents.Document{}
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

// KYCStatus handles GET /documents/kyc — aggregate verification state.
func (h *DocumentHandler) KYCStatus(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session required"})
		return
	}

	status, err := h.docs.KYCStatus(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("kyc status", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get KYC status"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   status,
		"complete": status.Complete(),
	})
}
