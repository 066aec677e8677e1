package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/testcraft-app/testcraft-service/internal/services"
	"github.com/testcraft-app/testcraft-service/internal/utils"
)

type ImportHandler struct {
	BaseHandler
	importService services.ImportService
}

func NewImportHandler(importService services.ImportService, logger utils.Logger) *ImportHandler {
	return &ImportHandler{
		BaseHandler:   NewBaseHandler(logger),
		importService: importService,
	}
}

// ImportTextRequest carries pasted question text plus an optional image
// table mapping directive keys to stored references.
type ImportTextRequest struct {
	Text   string            `json:"text" validate:"required"`
	Images map[string]string `json:"images,omitempty"`
}

// ImportText parses pasted question text and appends the valid questions
func (h *ImportHandler) ImportText(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var req ImportTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if req.Text == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Import text is required",
		})
		return
	}

	h.LogRequest(c, "Importing question text", "test_id", id, "text_length", len(req.Text))

	result, err := h.importService.ImportText(c.Request.Context(), id, req.Text, req.Images)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ImportFile imports questions from an uploaded CSV, Excel, or text file
func (h *ImportHandler) ImportFile(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "No file uploaded",
			Details: err.Error(),
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Failed to open uploaded file", err)
		return
	}
	defer file.Close()

	h.LogRequest(c, "Importing question file",
		"test_id", id,
		"filename", fileHeader.Filename,
		"size", fileHeader.Size)

	result, err := h.importService.ImportFile(c.Request.Context(), id, file, fileHeader.Filename)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
