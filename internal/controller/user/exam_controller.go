package user

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/bandscore/internal/controller"
	"github.com/lshigami/bandscore/internal/service"
)

type ExamController struct {
	catalog service.ExamCatalogService
}

func NewExamController(catalog service.ExamCatalogService) *ExamController {
	return &ExamController{catalog: catalog}
}

// ListExams godoc
// @Summary (User) List all available exams
// @Tags User - Exams
// @Produce json
// @Success 200 {array} dto.ExamSummaryDTO
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /exams [get]
func (c *ExamController) ListExams(ctx *gin.Context) {
	exams, err := c.catalog.ListExams(ctx.Request.Context())
	if err != nil {
		controller.RespondError(ctx, "ListExams", err)
		return
	}
	ctx.JSON(http.StatusOK, exams)
}

// GetExam godoc
// @Summary (User) Get the content tree of an exam
// @Description Questions are returned without answer keys.
// @Tags User - Exams
// @Produce json
// @Param exam_id path int true "Exam ID"
// @Success 200 {object} dto.ExamResponseDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid Exam ID format"
// @Failure 404 {object} dto.ErrorResponse "Exam not found"
// @Router /exams/{exam_id} [get]
func (c *ExamController) GetExam(ctx *gin.Context) {
	examID, ok := controller.ParamID(ctx, "exam_id")
	if !ok {
		return
	}
	exam, err := c.catalog.GetExam(ctx.Request.Context(), examID)
	if err != nil {
		controller.RespondError(ctx, "GetExam", err)
		return
	}
	ctx.JSON(http.StatusOK, exam)
}
