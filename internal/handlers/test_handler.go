package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/testcraft-app/testcraft-service/internal/models"
	"github.com/testcraft-app/testcraft-service/internal/services"
	"github.com/testcraft-app/testcraft-service/internal/utils"
	"github.com/testcraft-app/testcraft-service/internal/validator"
)

type TestHandler struct {
	BaseHandler
	testService services.TestService
	validator   *validator.Validator
}

func NewTestHandler(
	testService services.TestService,
	validator *validator.Validator,
	logger utils.Logger,
) *TestHandler {
	return &TestHandler{
		BaseHandler: NewBaseHandler(logger),
		testService: testService,
		validator:   validator,
	}
}

// ===== REQUEST STRUCTURES =====

// QuestionRequest carries an authored question. Content is the raw variant
// payload for the declared type; the service validates it before storage.
type QuestionRequest struct {
	Type       models.QuestionType    `json:"type"`
	Text       string                 `json:"text"`
	Latex      *string                `json:"latex,omitempty"`
	ImageRef   *string                `json:"image_ref,omitempty"`
	Difficulty models.DifficultyLevel `json:"difficulty,omitempty"`
	Tags       []string               `json:"tags,omitempty"`
	Content    json.RawMessage        `json:"content"`
}

func (r *QuestionRequest) toModel() (*models.Question, error) {
	question := &models.Question{
		Type:       r.Type,
		Text:       r.Text,
		Latex:      r.Latex,
		ImageRef:   r.ImageRef,
		Difficulty: r.Difficulty,
		Content:    datatypes.JSON(r.Content),
	}
	if question.Difficulty == "" {
		question.Difficulty = models.DifficultyMedium
	}
	if len(r.Tags) > 0 {
		if err := question.SetTags(r.Tags); err != nil {
			return nil, err
		}
	}
	return question, nil
}

// ===== TEST CRUD =====

// CreateTest creates a new draft test with default settings
func (h *TestHandler) CreateTest(c *gin.Context) {
	test, err := h.testService.Create(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, test)
}

// ListTests returns every stored test
func (h *TestHandler) ListTests(c *gin.Context) {
	tests, err := h.testService.List(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tests": tests,
		"total": len(tests),
	})
}

// GetTest retrieves a test by ID, questions included
func (h *TestHandler) GetTest(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	test, err := h.testService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, test)
}

// UpdateTestSettings replaces a test's settings
func (h *TestHandler) UpdateTestSettings(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var settings models.TestSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	test, err := h.testService.UpdateSettings(c.Request.Context(), id, settings)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, test)
}

// DeleteTest removes a test and its questions
func (h *TestHandler) DeleteTest(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	if err := h.testService.Delete(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Test deleted successfully",
	})
}

// SaveTest validates a test is complete enough to administer
func (h *TestHandler) SaveTest(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	h.LogRequest(c, "Saving test", "test_id", id)

	if err := h.testService.Save(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Test saved successfully",
	})
}

// ===== QUESTION MANAGEMENT =====

// AddQuestion appends a question to a test
func (h *TestHandler) AddQuestion(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var req QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	question, err := req.toModel()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid question",
			Details: err.Error(),
		})
		return
	}

	appended, err := h.testService.AddQuestion(c.Request.Context(), id, question)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, appended)
}

// UpdateQuestion replaces an existing question in place
func (h *TestHandler) UpdateQuestion(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	questionID := ParseStringIDParam(c, "question_id")
	if questionID == "" {
		return
	}

	var req QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	question, err := req.toModel()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid question",
			Details: err.Error(),
		})
		return
	}
	question.ID = questionID

	if err := h.testService.UpdateQuestion(c.Request.Context(), id, question); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// RemoveQuestion deletes a question from a test
func (h *TestHandler) RemoveQuestion(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	questionID := ParseStringIDParam(c, "question_id")
	if questionID == "" {
		return
	}

	if err := h.testService.RemoveQuestion(c.Request.Context(), id, questionID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Question removed successfully",
	})
}
