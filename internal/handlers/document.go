package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yukikurage/pmbot/internal/dto"
	apierrors "github.com/yukikurage/pmbot/internal/errors"
	"github.com/yukikurage/pmbot/internal/models"
	"github.com/yukikurage/pmbot/internal/repository"
	"github.com/yukikurage/pmbot/internal/services"
)

type DocumentHandler struct {
	documents *services.DocumentService
}

func NewDocumentHandler(documents *services.DocumentService) *DocumentHandler {
	return &DocumentHandler{
		documents: documents,
	}
}

// CreateDocument registers a document link on the project in the URL
func (h *DocumentHandler) CreateDocument(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	type CreateDocumentRequest struct {
		Name string `json:"name" binding:"required"`
		Type string `json:"type"`
		URL  string `json:"url" binding:"required"`
	}

	var req CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	document, err := h.documents.Create(services.CreateDocumentInput{
		ProjectID: c.Param("id"),
		Name:      req.Name,
		Type:      models.DocumentType(req.Type),
		URL:       req.URL,
	}, actor)
	if err != nil {
		apierrors.FromError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToDocumentDTO(*document))
}

// ListProjectDocuments returns the documents of the project in the URL
// Can filter by type
func (h *DocumentHandler) ListProjectDocuments(c *gin.Context) {
	projectID := c.Param("id")
	h.list(c, repository.DocumentFilter{ProjectID: &projectID})
}

// ListDocuments returns the guild's documents
// Can filter by type
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	h.list(c, repository.DocumentFilter{GuildID: &actor.GuildID})
}

func (h *DocumentHandler) list(c *gin.Context, filter repository.DocumentFilter) {
	if docType := queryString(c, "type"); docType != nil {
		t := models.DocumentType(*docType)
		if !t.Valid() {
			apierrors.BadRequest(c, "Invalid document type")
			return
		}
		filter.Type = &t
	}

	documents, err := h.documents.List(filter)
	if err != nil {
		apierrors.FromError(c, err)
		return
	}

	items := make([]dto.DocumentDTO, len(documents))
	for i, document := range documents {
		items[i] = dto.ToDocumentDTO(document)
	}
	c.JSON(http.StatusOK, gin.H{"documents": items})
}

// GetDocument returns a document link
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	document, err := h.documents.Get(c.Param("id"))
	if err != nil {
		apierrors.FromError(c, err)
		return
	}
	if !visible(document.Project, actor) {
		apierrors.NotFound(c, "Document not found")
		return
	}

	c.JSON(http.StatusOK, dto.ToDocumentDTO(*document))
}

// DeleteDocument deletes a document link
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	if err := h.documents.Delete(c.Param("id"), actor); err != nil {
		apierrors.FromError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
