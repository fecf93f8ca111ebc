package service

import (
	"context"
	"testing"
	"time"

	"github.com/lshigami/bandscore/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func submittedEssayAttempt(t *testing.T, h *harness) (uint, seededExam) {
	t.Helper()
	ctx := context.Background()
	exam := h.seed(t, sampleExam("Manual grading"))
	attempt, err := h.attempts.CreateAttempt(ctx, exam.examID, 5, []model.SkillType{model.SkillReading, model.SkillWriting})
	require.NoError(t, err)
	h.answerAll(t, attempt.ID, exam, 3, 4, 5, 6)
	summary, err := h.attempts.SubmitAttempt(ctx, attempt.ID)
	require.NoError(t, err)
	require.Equal(t, 1, summary.PendingManualCount)
	require.Nil(t, summary.WritingScore)
	require.Nil(t, summary.OverallScore)
	return attempt.ID, exam
}

func TestManualGradeFillsSkillAndOverall(t *testing.T) {
	h := newHarness(t)
	attemptID, exam := submittedEssayAttempt(t, h)

	summary, err := h.grading.GradeAnswer(context.Background(), attemptID, exam.questionID[6], 77, 6.5, "Clear position, limited range.")
	require.NoError(t, err)

	require.NotNil(t, summary.ReadingScore)
	assert.Equal(t, 9.0, *summary.ReadingScore)
	require.NotNil(t, summary.WritingScore)
	assert.Equal(t, 6.5, *summary.WritingScore)
	require.NotNil(t, summary.OverallScore)
	assert.Equal(t, 8.0, *summary.OverallScore, "mean 7.75 rounds up to the next band")
	assert.Equal(t, 0, summary.PendingManualCount)
	assert.Equal(t, 4, summary.CorrectQuestionCount)

	essay := summary.Answers[len(summary.Answers)-1]
	assert.Equal(t, string(model.GradeManuallyGraded), essay.GradeState)
	require.NotNil(t, essay.Feedback)
	assert.Equal(t, "Clear position, limited range.", *essay.Feedback)

	stored, err := h.answerRepo.FindOne(context.Background(), nil, attemptID, exam.questionID[6])
	require.NoError(t, err)
	require.NotNil(t, stored.GradedBy)
	assert.Equal(t, uint(77), *stored.GradedBy)
	require.NotNil(t, stored.GradedAt)
	assert.WithinDuration(t, h.clock.Now(), *stored.GradedAt, time.Second)

	// the stored reading score is never recomputed
	assert.Equal(t, 9.0, *h.loadAttempt(t, attemptID).ReadingScore)
}

func TestManualGradeTwiceIsRejected(t *testing.T) {
	h := newHarness(t)
	attemptID, exam := submittedEssayAttempt(t, h)
	ctx := context.Background()

	_, err := h.grading.GradeAnswer(ctx, attemptID, exam.questionID[6], 1, 5, "")
	require.NoError(t, err)
	_, err = h.grading.GradeAnswer(ctx, attemptID, exam.questionID[6], 1, 9, "")
	assert.ErrorIs(t, err, ErrAlreadyGraded)
	assert.Equal(t, 5.0, *h.loadAttempt(t, attemptID).WritingScore)
}

func TestManualGradeRejections(t *testing.T) {
	h := newHarness(t)
	attemptID, exam := submittedEssayAttempt(t, h)
	ctx := context.Background()

	_, err := h.grading.GradeAnswer(ctx, attemptID, exam.questionID[6], 1, 9.5, "")
	assert.ErrorIs(t, err, ErrInvalidScore)
	_, err = h.grading.GradeAnswer(ctx, attemptID, exam.questionID[6], 1, -1, "")
	assert.ErrorIs(t, err, ErrInvalidScore)

	_, err = h.grading.GradeAnswer(ctx, attemptID, exam.questionID[3], 1, 1, "")
	assert.ErrorIs(t, err, ErrNotManuallyGradable)

	_, err = h.grading.GradeAnswer(ctx, attemptID, exam.questionID[1], 1, 1, "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = h.grading.GradeAnswer(ctx, 9999, exam.questionID[6], 1, 1, "")
	assert.ErrorIs(t, err, ErrNotFound)

	pending, err := h.grading.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestManualGradeRequiresCompletedAttempt(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	exam := h.seed(t, sampleExam("Still open"))
	attempt, err := h.attempts.CreateAttempt(ctx, exam.examID, 1, []model.SkillType{model.SkillWriting})
	require.NoError(t, err)
	h.answerAll(t, attempt.ID, exam, 6)

	_, err = h.grading.GradeAnswer(ctx, attempt.ID, exam.questionID[6], 1, 7, "")
	assert.ErrorIs(t, err, ErrAttemptNotCompleted)
}

func TestListPendingManual(t *testing.T) {
	h := newHarness(t)
	attemptID, exam := submittedEssayAttempt(t, h)

	pending, err := h.grading.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, attemptID, pending[0].AttemptID)
	assert.Equal(t, exam.questionID[6], pending[0].QuestionID)
	assert.Equal(t, correctAnswers[6].TextAnswer, pending[0].TextAnswer)

	_, err = h.grading.GradeAnswer(context.Background(), attemptID, exam.questionID[6], 1, 7, "")
	require.NoError(t, err)
	pending, err = h.grading.ListPending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)
}
