package user

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/bandscore/internal/controller"
	"github.com/lshigami/bandscore/internal/dto"
	"github.com/lshigami/bandscore/internal/model"
	"github.com/lshigami/bandscore/internal/service"
	"github.com/rs/zerolog/log"
)

type AttemptController struct {
	attempts service.AttemptService
	recorder service.AnswerRecorder
}

func NewAttemptController(attempts service.AttemptService, recorder service.AnswerRecorder) *AttemptController {
	return &AttemptController{attempts: attempts, recorder: recorder}
}

// CreateAttempt godoc
// @Summary (User) Start a timed attempt
// @Description An empty selected_skills list means every skill of the exam.
// @Tags User - Attempts
// @Accept json
// @Produce json
// @Param exam_id path int true "Exam ID"
// @Param attempt body dto.CreateAttemptRequest true "Attempt options"
// @Success 201 {object} dto.TestAttemptDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 404 {object} dto.ErrorResponse "Exam not found or has no questions for the selection"
// @Router /exams/{exam_id}/attempts [post]
func (c *AttemptController) CreateAttempt(ctx *gin.Context) {
	examID, ok := controller.ParamID(ctx, "exam_id")
	if !ok {
		return
	}
	var req dto.CreateAttemptRequest
	if !controller.BindJSON(ctx, "CreateAttempt", &req) {
		return
	}
	skills := make([]model.SkillType, 0, len(req.SelectedSkills))
	for _, s := range req.SelectedSkills {
		skills = append(skills, model.SkillType(s))
	}
	attempt, err := c.attempts.CreateAttempt(ctx.Request.Context(), examID, req.UserID, skills)
	if err != nil {
		controller.RespondError(ctx, "CreateAttempt", err)
		return
	}
	ctx.JSON(http.StatusCreated, attempt)
}

// GetAttempt godoc
// @Summary (User) Get an attempt
// @Description Refreshes time_remaining and completes the attempt if its deadline has passed.
// @Tags User - Attempts
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Success 200 {object} dto.TestAttemptDTO
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Router /attempts/{attempt_id} [get]
func (c *AttemptController) GetAttempt(ctx *gin.Context) {
	attemptID, ok := controller.ParamID(ctx, "attempt_id")
	if !ok {
		return
	}
	attempt, err := c.attempts.GetAttempt(ctx.Request.Context(), attemptID)
	if err != nil {
		controller.RespondError(ctx, "GetAttempt", err)
		return
	}
	ctx.JSON(http.StatusOK, attempt)
}

// RecordAnswer godoc
// @Summary (User) Save the answer to one question
// @Description Last write wins. Completed attempts reject writes.
// @Tags User - Attempts
// @Accept json
// @Param attempt_id path int true "Attempt ID"
// @Param question_id path int true "Question ID"
// @Param answer body dto.AnswerPayloadDTO true "Answer payload"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Failure 409 {object} dto.ErrorResponse "Attempt is closed"
// @Failure 422 {object} dto.ErrorResponse "Question is not part of the attempt"
// @Router /attempts/{attempt_id}/answers/{question_id} [put]
func (c *AttemptController) RecordAnswer(ctx *gin.Context) {
	attemptID, ok := controller.ParamID(ctx, "attempt_id")
	if !ok {
		return
	}
	questionID, ok := controller.ParamID(ctx, "question_id")
	if !ok {
		return
	}
	var req dto.AnswerPayloadDTO
	if !controller.BindJSON(ctx, "RecordAnswer", &req) {
		return
	}
	if err := c.recorder.RecordAnswer(ctx.Request.Context(), attemptID, questionID, req); err != nil {
		controller.RespondError(ctx, "RecordAnswer", err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// SubmitAttempt godoc
// @Summary (User) Submit an attempt for scoring
// @Description Submitting a completed attempt again returns the stored summary.
// @Tags User - Attempts
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Success 200 {object} dto.ScoringSummaryDTO
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Failure 500 {object} dto.ErrorResponse "Scoring failed"
// @Router /attempts/{attempt_id}/submit [post]
func (c *AttemptController) SubmitAttempt(ctx *gin.Context) {
	attemptID, ok := controller.ParamID(ctx, "attempt_id")
	if !ok {
		return
	}
	summary, err := c.attempts.SubmitAttempt(ctx.Request.Context(), attemptID)
	if err != nil && !(errors.Is(err, service.ErrAlreadyCompleted) && summary != nil) {
		controller.RespondError(ctx, "SubmitAttempt", err)
		return
	}
	if err != nil {
		log.Info().Uint("attemptID", attemptID).Msg("SubmitAttempt: already completed, returning stored summary")
	}
	ctx.JSON(http.StatusOK, summary)
}

// GetSummary godoc
// @Summary (User) Get the scoring summary of a completed attempt
// @Tags User - Attempts
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Success 200 {object} dto.ScoringSummaryDTO
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Failure 409 {object} dto.ErrorResponse "Attempt still in progress"
// @Router /attempts/{attempt_id}/summary [get]
func (c *AttemptController) GetSummary(ctx *gin.Context) {
	attemptID, ok := controller.ParamID(ctx, "attempt_id")
	if !ok {
		return
	}
	summary, err := c.attempts.GetSummary(ctx.Request.Context(), attemptID)
	if err != nil {
		controller.RespondError(ctx, "GetSummary", err)
		return
	}
	ctx.JSON(http.StatusOK, summary)
}

// ListUserAttempts godoc
// @Summary (User) List a user's attempts, newest first
// @Tags User - Attempts
// @Produce json
// @Param user_id path int true "User ID"
// @Success 200 {array} dto.TestAttemptDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid User ID format"
// @Router /users/{user_id}/attempts [get]
func (c *AttemptController) ListUserAttempts(ctx *gin.Context) {
	userID, ok := controller.ParamID(ctx, "user_id")
	if !ok {
		return
	}
	attempts, err := c.attempts.ListUserAttempts(ctx.Request.Context(), userID)
	if err != nil {
		controller.RespondError(ctx, "ListUserAttempts", err)
		return
	}
	ctx.JSON(http.StatusOK, attempts)
}
