package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/testcraft-app/testcraft-service/internal/services"
	"github.com/testcraft-app/testcraft-service/internal/utils"
)

type SessionHandler struct {
	BaseHandler
	sessionService services.SessionService
}

func NewSessionHandler(sessionService services.SessionService, logger utils.Logger) *SessionHandler {
	return &SessionHandler{
		BaseHandler:    NewBaseHandler(logger),
		sessionService: sessionService,
	}
}

// ===== REQUEST STRUCTURES =====

type StartSessionRequest struct {
	TestID           string `json:"test_id" validate:"required"`
	FullscreenActive bool   `json:"fullscreen_active"`
}

type AnswerRequest struct {
	QuestionID  string `json:"question_id" validate:"required"`
	OptionIndex int    `json:"option_index"`
}

type JumpRequest struct {
	Index int `json:"index"`
}

// ===== SESSION LIFECYCLE =====

// StartSession begins taking a test
func (h *SessionHandler) StartSession(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if req.TestID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "test_id is required",
		})
		return
	}

	h.LogRequest(c, "Starting session", "test_id", req.TestID)

	view, err := h.sessionService.Start(c.Request.Context(), req.TestID, req.FullscreenActive)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, view)
}

// GetSessionState returns the active session's progress
func (h *SessionHandler) GetSessionState(c *gin.Context) {
	view, err := h.sessionService.State(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// SubmitAnswer records an answer for a question in the active session
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	var req AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if req.QuestionID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "question_id is required",
		})
		return
	}

	if err := h.sessionService.Answer(c.Request.Context(), req.QuestionID, req.OptionIndex); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Answer recorded",
	})
}

// NextQuestion advances the session cursor
func (h *SessionHandler) NextQuestion(c *gin.Context) {
	if err := h.sessionService.Next(c.Request.Context()); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Moved to next question",
	})
}

// PreviousQuestion moves the session cursor back
func (h *SessionHandler) PreviousQuestion(c *gin.Context) {
	if err := h.sessionService.Previous(c.Request.Context()); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Moved to previous question",
	})
}

// JumpToQuestion moves the cursor to an arbitrary question index
func (h *SessionHandler) JumpToQuestion(c *gin.Context) {
	var req JumpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.sessionService.JumpTo(c.Request.Context(), req.Index); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Moved to question",
	})
}

// SubmitSession ends the active session and returns the graded result
func (h *SessionHandler) SubmitSession(c *gin.Context) {
	h.LogRequest(c, "Submitting session")

	result, err := h.sessionService.Submit(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if result == nil {
		// A concurrent trigger (timeout, violation limit) won the submit.
		c.JSON(http.StatusOK, SuccessResponse{
			Message: "Session already ended",
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// AbandonSession discards the active session without producing a result
func (h *SessionHandler) AbandonSession(c *gin.Context) {
	h.LogRequest(c, "Abandoning session")

	if err := h.sessionService.Abandon(c.Request.Context()); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Session abandoned",
	})
}
