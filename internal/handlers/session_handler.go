package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/SAP-F-2025/session-runtime/internal/backend"
	"github.com/SAP-F-2025/session-runtime/internal/models"
	"github.com/SAP-F-2025/session-runtime/internal/services"
	"github.com/SAP-F-2025/session-runtime/internal/utils"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

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

// StartAttempt starts a new attempt on a test
// @Router /attempts/start [post]
func (h *SessionHandler) StartAttempt(c *gin.Context) {
	var req services.StartAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err, err.Error())
		return
	}

	resp, err := h.sessionService.StartAttempt(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusCreated, "Attempt started", resp, "attempt_id", resp.AttemptID)
}

// BootExam boots an exam session
// @Router /sessions/exam [post]
func (h *SessionHandler) BootExam(c *gin.Context) {
	h.boot(c, models.ModeExam)
}

// BootPractice boots a practice session
// @Router /sessions/practice [post]
func (h *SessionHandler) BootPractice(c *gin.Context) {
	h.boot(c, models.ModePractice)
}

func (h *SessionHandler) boot(c *gin.Context, mode models.SessionMode) {
	var req services.BootSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err, err.Error())
		return
	}
	req.Mode = mode

	h.LogRequest(c, "Booting session", "attempt_id", req.AttemptID, "test_id", req.TestID, "mode", mode)

	view, err := h.sessionService.Boot(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Session booted", view, "attempt_id", req.AttemptID)
}

// GetSession returns the current view of a session
// @Router /sessions/{attempt_id} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	attemptID, ok := ParseIntIDParam(c, "attempt_id")
	if !ok {
		return
	}

	view, err := h.sessionService.Get(c.Request.Context(), attemptID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Session retrieved", view)
}

// SelectAnswer records a choice for the displayed question
// @Router /sessions/{attempt_id}/answer [post]
func (h *SessionHandler) SelectAnswer(c *gin.Context) {
	attemptID, ok := ParseIntIDParam(c, "attempt_id")
	if !ok {
		return
	}

	var req services.AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err, err.Error())
		return
	}

	view, err := h.sessionService.SelectAnswer(c.Request.Context(), attemptID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Answer recorded", view, "attempt_id", attemptID, "question_id", req.QuestionID)
}

// Navigate moves to another question
// @Router /sessions/{attempt_id}/navigate [post]
func (h *SessionHandler) Navigate(c *gin.Context) {
	attemptID, ok := ParseIntIDParam(c, "attempt_id")
	if !ok {
		return
	}

	var req services.NavigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err, err.Error())
		return
	}

	view, err := h.sessionService.Navigate(c.Request.Context(), attemptID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Question changed", view)
}

// Submit requests submission of the attempt. The view reports the phase;
// the result arrives through later views.
// @Router /sessions/{attempt_id}/submit [post]
func (h *SessionHandler) Submit(c *gin.Context) {
	attemptID, ok := ParseIntIDParam(c, "attempt_id")
	if !ok {
		return
	}

	h.LogRequest(c, "Submission requested", "attempt_id", attemptID)

	view, err := h.sessionService.Submit(c.Request.Context(), attemptID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusAccepted, "Submission requested", view, "attempt_id", attemptID)
}

// AnswerSheet downloads the answers as an Excel workbook
// @Router /sessions/{attempt_id}/answer-sheet [get]
func (h *SessionHandler) AnswerSheet(c *gin.Context) {
	attemptID, ok := ParseIntIDParam(c, "attempt_id")
	if !ok {
		return
	}

	sheet, err := h.sessionService.AnswerSheet(c.Request.Context(), attemptID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sheet.FileName))
	c.Data(http.StatusOK, xlsxContentType, sheet.Data)
}

// CloseSession tears a session down
// @Router /sessions/{attempt_id} [delete]
func (h *SessionHandler) CloseSession(c *gin.Context) {
	attemptID, ok := ParseIntIDParam(c, "attempt_id")
	if !ok {
		return
	}

	if err := h.sessionService.Close(c.Request.Context(), attemptID); err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.LogInfo(c, "Session closed by client", "attempt_id", attemptID)

	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		h.RespondWithError(c, http.StatusBadRequest, "Validation failed", err, validationErrors)
		return
	}

	if authErr, ok := services.IsAuthRequired(err); ok {
		h.respondWithError(c, http.StatusUnauthorized, backend.CodeAuthRequired, "Authentication required", err,
			AuthRedirectDetails{AuthRedirect: authErr.Redirect})
		return
	}

	switch {
	case services.IsValidation(err):
		h.RespondWithError(c, http.StatusBadRequest, "Validation failed", err, err.Error())
	case services.IsNotFound(err):
		h.RespondWithError(c, http.StatusNotFound, "Session not found", err)
	case services.IsForbidden(err):
		h.RespondWithError(c, http.StatusForbidden, "Session belongs to another user", err)
	case services.IsBadRequest(err):
		h.RespondWithError(c, http.StatusBadRequest, err.Error(), err)
	case services.IsConflict(err):
		h.RespondWithError(c, http.StatusConflict, err.Error(), err)
	case services.IsUnavailable(err):
		h.RespondWithError(c, http.StatusBadGateway, backend.Message(err), err)
	default:
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) {
			h.RespondWithError(c, http.StatusBadGateway, backend.Message(err), err, apiErr)
			return
		}
		h.RespondWithError(c, http.StatusInternalServerError, "Internal server error", err)
	}
}
