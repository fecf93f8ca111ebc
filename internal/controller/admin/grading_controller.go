package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/bandscore/internal/controller"
	"github.com/lshigami/bandscore/internal/dto"
	"github.com/lshigami/bandscore/internal/service"
)

type GradingController struct {
	grading   service.ManualGradingService
	assistant service.GradingAssistantService
}

func NewGradingController(grading service.ManualGradingService, assistant service.GradingAssistantService) *GradingController {
	return &GradingController{grading: grading, assistant: assistant}
}

// ListPending godoc
// @Summary (Admin) List answers waiting for a grader
// @Tags Admin - Grading
// @Produce json
// @Success 200 {array} dto.PendingAnswerDTO
// @Router /admin/grading/pending [get]
func (c *GradingController) ListPending(ctx *gin.Context) {
	pending, err := c.grading.ListPending(ctx.Request.Context())
	if err != nil {
		controller.RespondError(ctx, "Admin ListPending", err)
		return
	}
	ctx.JSON(http.StatusOK, pending)
}

// GradeAnswer godoc
// @Summary (Admin) Grade an essay or speaking answer
// @Tags Admin - Grading
// @Accept json
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Param question_id path int true "Question ID"
// @Param grade body dto.ManualGradeDTO true "Score and feedback"
// @Success 200 {object} dto.ScoringSummaryDTO
// @Failure 400 {object} dto.ErrorResponse "Score out of range or answer not manually gradable"
// @Failure 409 {object} dto.ErrorResponse "Attempt not completed or answer already graded"
// @Router /admin/attempts/{attempt_id}/answers/{question_id}/grade [post]
func (c *GradingController) GradeAnswer(ctx *gin.Context) {
	attemptID, ok := controller.ParamID(ctx, "attempt_id")
	if !ok {
		return
	}
	questionID, ok := controller.ParamID(ctx, "question_id")
	if !ok {
		return
	}
	var req dto.ManualGradeDTO
	if !controller.BindJSON(ctx, "Admin GradeAnswer", &req) {
		return
	}
	summary, err := c.grading.GradeAnswer(ctx.Request.Context(), attemptID, questionID, req.GraderID, *req.Score, req.Feedback)
	if err != nil {
		controller.RespondError(ctx, "Admin GradeAnswer", err)
		return
	}
	ctx.JSON(http.StatusOK, summary)
}

// SuggestGrade godoc
// @Summary (Admin) Ask the AI assistant for a suggested grade
// @Description The suggestion is not stored.
// @Tags Admin - Grading
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Param question_id path int true "Question ID"
// @Success 200 {object} dto.GradingSuggestionDTO
// @Failure 503 {object} dto.ErrorResponse "Assistant not configured"
// @Router /admin/attempts/{attempt_id}/answers/{question_id}/suggestion [get]
func (c *GradingController) SuggestGrade(ctx *gin.Context) {
	attemptID, ok := controller.ParamID(ctx, "attempt_id")
	if !ok {
		return
	}
	questionID, ok := controller.ParamID(ctx, "question_id")
	if !ok {
		return
	}
	suggestion, err := c.assistant.Suggest(ctx.Request.Context(), attemptID, questionID)
	if err != nil {
		controller.RespondError(ctx, "Admin SuggestGrade", err)
		return
	}
	ctx.JSON(http.StatusOK, suggestion)
}

// SuggestAttempt godoc
// @Summary (Admin) Ask the AI assistant about every pending answer of an attempt
// @Tags Admin - Grading
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Success 200 {object} dto.AttemptSuggestionsDTO
// @Failure 503 {object} dto.ErrorResponse "Assistant not configured"
// @Router /admin/attempts/{attempt_id}/suggestions [get]
func (c *GradingController) SuggestAttempt(ctx *gin.Context) {
	attemptID, ok := controller.ParamID(ctx, "attempt_id")
	if !ok {
		return
	}
	suggestions, failures, err := c.assistant.SuggestAttempt(ctx.Request.Context(), attemptID)
	if err != nil {
		controller.RespondError(ctx, "Admin SuggestAttempt", err)
		return
	}
	ctx.JSON(http.StatusOK, dto.AttemptSuggestionsDTO{AttemptID: attemptID, Suggestions: suggestions, Failures: failures})
}
