package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/bandscore/internal/controller"
	"github.com/lshigami/bandscore/internal/dto"
	"github.com/lshigami/bandscore/internal/service"
)

type ExamController struct {
	importer service.ExamImportService
}

func NewExamController(importer service.ExamImportService) *ExamController {
	return &ExamController{importer: importer}
}

// ImportExam godoc
// @Summary (Admin) Create a complete exam
// @Description Question order_index values must run from 1 to N across the whole exam.
// @Tags Admin - Exams
// @Accept json
// @Produce json
// @Param exam body dto.ExamImportDTO true "Exam tree"
// @Success 201 {object} dto.ExamResponseDTO "Exam created successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid exam definition"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /admin/exams [post]
func (c *ExamController) ImportExam(ctx *gin.Context) {
	var req dto.ExamImportDTO
	if !controller.BindJSON(ctx, "Admin ImportExam", &req) {
		return
	}
	exam, err := c.importer.ImportExam(ctx.Request.Context(), req)
	if err != nil {
		controller.RespondError(ctx, "Admin ImportExam", err)
		return
	}
	ctx.JSON(http.StatusCreated, exam)
}
