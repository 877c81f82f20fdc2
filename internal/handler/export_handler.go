package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"doctrack/internal/service"
)

// ExportHandler handles history export endpoints.
type ExportHandler struct {
	exportService service.ExportService
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(exportService service.ExportService) *ExportHandler {
	return &ExportHandler{exportService: exportService}
}

// Export handles GET /api/v1/types/:type/documents/:id/history/export
// @Summary Download change history
// @Description Download the recorded changes of a document as CSV or XLSX
// @Tags history
// @Produce text/csv
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param type path string true "Document type"
// @Param id path string true "Document ID (UUID)"
// @Param format query string false "csv (default) or xlsx"
// @Success 200 {file} file "History export"
// @Failure 400 {object} ErrorResponseBody "Invalid ID or format"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Failure 404 {object} ErrorResponseBody "Document not found or type not tracked"
// @Security BearerAuth
// @Router /types/{type}/documents/{id}/history/export [get]
func (h *ExportHandler) Export(c *gin.Context) {
	id, ok := parseDocumentID(c)
	if !ok {
		return
	}

	file, err := h.exportService.Export(c.Request.Context(), c.Param("type"), id, c.Query("format"))
	if err != nil {
		HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// Archive handles POST /api/v1/types/:type/documents/:id/history/archive
// @Summary Archive change history
// @Description Upload a CSV or XLSX export of the history to object storage
// @Tags history
// @Produce json
// @Param type path string true "Document type"
// @Param id path string true "Document ID (UUID)"
// @Param format query string false "csv (default) or xlsx"
// @Success 201 {object} Response{data=ArchiveResponse} "Archive location"
// @Failure 400 {object} ErrorResponseBody "Invalid ID or format"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Failure 404 {object} ErrorResponseBody "Document not found or type not tracked"
// @Failure 501 {object} ErrorResponseBody "Archive storage not configured"
// @Security BearerAuth
// @Router /types/{type}/documents/{id}/history/archive [post]
func (h *ExportHandler) Archive(c *gin.Context) {
	id, ok := parseDocumentID(c)
	if !ok {
		return
	}

	result, err := h.exportService.Archive(c.Request.Context(), c.Param("type"), id, c.Query("format"))
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, result)
}
