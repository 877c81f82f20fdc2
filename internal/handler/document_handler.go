package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"doctrack/internal/domain"
	"doctrack/internal/service"
)

// DocumentHandler handles document and change-history endpoints.
type DocumentHandler struct {
	documentService service.DocumentService
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(documentService service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

// Create handles POST /api/v1/types/:type/documents
// @Summary Create a document
// @Description Create a document of a registered type. Tracked fields set here start its history.
// @Tags documents
// @Accept json
// @Produce json
// @Param type path string true "Document type"
// @Param request body FieldsRequest true "Field values"
// @Success 201 {object} Response{data=DocumentResponse} "Document created"
// @Failure 400 {object} ErrorResponseBody "Invalid request"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Failure 404 {object} ErrorResponseBody "Unknown document type"
// @Security BearerAuth
// @Router /types/{type}/documents [post]
func (h *DocumentHandler) Create(c *gin.Context) {
	fields, ok := bindFields(c)
	if !ok {
		return
	}

	doc, err := h.documentService.Create(c.Request.Context(), c.Param("type"), fields)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, doc)
}

// GetByID handles GET /api/v1/types/:type/documents/:id
// @Summary Get a document
// @Description Get a document, including its change history attribute
// @Tags documents
// @Produce json
// @Param type path string true "Document type"
// @Param id path string true "Document ID (UUID)"
// @Success 200 {object} Response{data=DocumentResponse} "Document"
// @Failure 400 {object} ErrorResponseBody "Invalid ID"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Failure 404 {object} ErrorResponseBody "Document not found"
// @Security BearerAuth
// @Router /types/{type}/documents/{id} [get]
func (h *DocumentHandler) GetByID(c *gin.Context) {
	id, ok := parseDocumentID(c)
	if !ok {
		return
	}

	doc, err := h.documentService.Get(c.Request.Context(), c.Param("type"), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, doc)
}

// Patch handles PATCH /api/v1/types/:type/documents/:id
// @Summary Modify a document
// @Description Load, modify and save a document. A null value removes the field.
// @Tags documents
// @Accept json
// @Produce json
// @Param type path string true "Document type"
// @Param id path string true "Document ID (UUID)"
// @Param request body FieldsRequest true "Field values"
// @Success 200 {object} Response{data=DocumentResponse} "Document saved"
// @Failure 400 {object} ErrorResponseBody "Invalid request"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Failure 404 {object} ErrorResponseBody "Document not found"
// @Failure 409 {object} ErrorResponseBody "Concurrent modification"
// @Security BearerAuth
// @Router /types/{type}/documents/{id} [patch]
func (h *DocumentHandler) Patch(c *gin.Context) {
	id, ok := parseDocumentID(c)
	if !ok {
		return
	}
	fields, ok := bindFields(c)
	if !ok {
		return
	}

	doc, err := h.documentService.Patch(c.Request.Context(), c.Param("type"), id, fields)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, doc)
}

// History handles GET /api/v1/types/:type/documents/:id/history
// @Summary Get change history
// @Description Get the recorded changes of a document, oldest first
// @Tags documents
// @Produce json
// @Param type path string true "Document type"
// @Param id path string true "Document ID (UUID)"
// @Success 200 {object} Response{data=[]HistoryEntryResponse} "History"
// @Failure 400 {object} ErrorResponseBody "Invalid ID"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Failure 404 {object} ErrorResponseBody "Document not found or type not tracked"
// @Security BearerAuth
// @Router /types/{type}/documents/{id}/history [get]
func (h *DocumentHandler) History(c *gin.Context) {
	id, ok := parseDocumentID(c)
	if !ok {
		return
	}

	history, err := h.documentService.History(c.Request.Context(), c.Param("type"), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, history)
}

// Delete handles DELETE /api/v1/types/:type/documents/:id
// @Summary Delete a document
// @Description Delete a document and its history
// @Tags documents
// @Produce json
// @Param type path string true "Document type"
// @Param id path string true "Document ID (UUID)"
// @Success 200 {object} Response "Document deleted"
// @Failure 400 {object} ErrorResponseBody "Invalid ID"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Failure 404 {object} ErrorResponseBody "Document not found"
// @Security BearerAuth
// @Router /types/{type}/documents/{id} [delete]
func (h *DocumentHandler) Delete(c *gin.Context) {
	id, ok := parseDocumentID(c)
	if !ok {
		return
	}

	if err := h.documentService.Delete(c.Request.Context(), c.Param("type"), id); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "document deleted"})
}

// UpdateOne handles POST /api/v1/types/:type/update-one
// @Summary Update the first matching document
// @Description Apply a partial update to the earliest created document matching the filter
// @Tags updates
// @Accept json
// @Produce json
// @Param type path string true "Document type"
// @Param request body QueryUpdateRequest true "Filter and update"
// @Success 200 {object} Response{data=UpdateResultResponse} "Update result"
// @Failure 400 {object} ErrorResponseBody "Invalid request"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Failure 404 {object} ErrorResponseBody "Unknown document type"
// @Security BearerAuth
// @Router /types/{type}/update-one [post]
func (h *DocumentHandler) UpdateOne(c *gin.Context) {
	input, ok := bindQueryUpdate(c)
	if !ok {
		return
	}

	result, err := h.documentService.UpdateOne(c.Request.Context(), input)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, result)
}

// FindOneAndUpdate handles POST /api/v1/types/:type/find-one-and-update
// @Summary Update and return the first matching document
// @Description Apply a partial update to the earliest created match and return it as updated
// @Tags updates
// @Accept json
// @Produce json
// @Param type path string true "Document type"
// @Param request body QueryUpdateRequest true "Filter and update"
// @Success 200 {object} Response{data=DocumentResponse} "Updated document"
// @Failure 400 {object} ErrorResponseBody "Invalid request"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Failure 404 {object} ErrorResponseBody "No document matched"
// @Security BearerAuth
// @Router /types/{type}/find-one-and-update [post]
func (h *DocumentHandler) FindOneAndUpdate(c *gin.Context) {
	input, ok := bindQueryUpdate(c)
	if !ok {
		return
	}

	doc, err := h.documentService.FindOneAndUpdate(c.Request.Context(), input)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, doc)
}

// Update handles POST /api/v1/types/:type/update
// @Summary Update a matching document
// @Description Apply a partial update to the earliest created document matching the filter
// @Tags updates
// @Accept json
// @Produce json
// @Param type path string true "Document type"
// @Param request body QueryUpdateRequest true "Filter and update"
// @Success 200 {object} Response{data=UpdateResultResponse} "Update result"
// @Failure 400 {object} ErrorResponseBody "Invalid request"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Failure 404 {object} ErrorResponseBody "Unknown document type"
// @Security BearerAuth
// @Router /types/{type}/update [post]
func (h *DocumentHandler) Update(c *gin.Context) {
	input, ok := bindQueryUpdate(c)
	if !ok {
		return
	}

	result, err := h.documentService.Update(c.Request.Context(), input)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, result)
}

// UpdateMany handles POST /api/v1/types/:type/update-many
// @Summary Update every matching document
// @Description Apply a partial update to every document matching the filter
// @Tags updates
// @Accept json
// @Produce json
// @Param type path string true "Document type"
// @Param request body QueryUpdateRequest true "Filter and update"
// @Success 200 {object} Response{data=UpdateResultResponse} "Update result"
// @Failure 400 {object} ErrorResponseBody "Invalid request"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Failure 404 {object} ErrorResponseBody "Unknown document type"
// @Security BearerAuth
// @Router /types/{type}/update-many [post]
func (h *DocumentHandler) UpdateMany(c *gin.Context) {
	input, ok := bindQueryUpdate(c)
	if !ok {
		return
	}

	result, err := h.documentService.UpdateMany(c.Request.Context(), input)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, result)
}

func parseDocumentID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid document ID")
		return uuid.Nil, false
	}
	return id, true
}

// bindFields decodes the body as an ordered field payload.
func bindFields(c *gin.Context) (*domain.Update, bool) {
	var fields domain.Update
	if err := c.ShouldBindJSON(&fields); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "body must be a JSON object of field values")
		return nil, false
	}
	return &fields, true
}

func bindQueryUpdate(c *gin.Context) (*service.QueryUpdateInput, bool) {
	var req struct {
		Filter domain.Query   `json:"filter"`
		Update *domain.Update `json:"update"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Update == nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "body must be {\"filter\": {...}, \"update\": {...}}")
		return nil, false
	}
	if req.Filter == nil {
		req.Filter = domain.Query{}
	}
	return &service.QueryUpdateInput{
		DocType: c.Param("type"),
		Filter:  req.Filter,
		Update:  req.Update,
	}, true
}
