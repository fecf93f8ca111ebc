package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lshigami/bandscore/internal/dto"
	"github.com/lshigami/bandscore/internal/model"
	"github.com/lshigami/bandscore/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAttemptUnknownExam(t *testing.T) {
	h := newHarness(t)
	_, err := h.attempts.CreateAttempt(context.Background(), 404, 1, nil)
	require.ErrorIs(t, err, ErrNotFound)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "exam", nf.Resource)
}

func TestCreateAttemptSelectionWithoutQuestions(t *testing.T) {
	h := newHarness(t)
	exam := h.seed(t, sampleExam("No speaking"))
	_, err := h.attempts.CreateAttempt(context.Background(), exam.examID, 1, []model.SkillType{model.SkillSpeaking})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateAttemptRejectsUnknownSkill(t *testing.T) {
	h := newHarness(t)
	exam := h.seed(t, sampleExam("Bad skill"))
	_, err := h.attempts.CreateAttempt(context.Background(), exam.examID, 1, []model.SkillType{"Grammar"})
	assert.ErrorIs(t, err, ErrInvalidSkill)
}

func TestCreateAttemptAllSkills(t *testing.T) {
	h := newHarness(t)
	exam := h.seed(t, sampleExam("Full mock"))

	attempt, err := h.attempts.CreateAttempt(context.Background(), exam.examID, 7, nil)
	require.NoError(t, err)
	assert.Equal(t, string(model.AttemptInProgress), attempt.Status)
	assert.Equal(t, 6, attempt.TotalQuestionCount)
	assert.Equal(t, listeningSeconds+readingSeconds+writingSeconds, attempt.DurationSeconds)
	require.NotNil(t, attempt.TimeRemaining)
	assert.Equal(t, attempt.DurationSeconds, *attempt.TimeRemaining)
	assert.Empty(t, attempt.SelectedSkills)
	assert.Equal(t, h.clock.Now().Add(time.Duration(attempt.DurationSeconds)*time.Second), attempt.Deadline)
	assert.Nil(t, attempt.ReadingScore)
	assert.Nil(t, attempt.OverallScore)
}

func TestCreateAttemptUsesExamDurationWhenSet(t *testing.T) {
	h := newHarness(t)
	req := sampleExam("Fixed duration")
	req.DurationSeconds = 600
	exam := h.seed(t, req)

	attempt, err := h.attempts.CreateAttempt(context.Background(), exam.examID, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 600, attempt.DurationSeconds)

	partial, err := h.attempts.CreateAttempt(context.Background(), exam.examID, 1, []model.SkillType{model.SkillReading})
	require.NoError(t, err)
	assert.Equal(t, readingSeconds, partial.DurationSeconds)
}

func TestCreateAttemptDeduplicatesSkills(t *testing.T) {
	h := newHarness(t)
	exam := h.seed(t, sampleExam("Dupes"))
	attempt, err := h.attempts.CreateAttempt(context.Background(), exam.examID, 1,
		[]model.SkillType{model.SkillReading, model.SkillListening, model.SkillReading})
	require.NoError(t, err)
	assert.Equal(t, []string{"Reading", "Listening"}, attempt.SelectedSkills)
	assert.Equal(t, 5, attempt.TotalQuestionCount)
}

func TestTotalQuestionCountIsASnapshot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	exam := h.seed(t, sampleExam("Snapshot"))

	attempt, err := h.attempts.CreateAttempt(ctx, exam.examID, 1, []model.SkillType{model.SkillReading})
	require.NoError(t, err)
	require.Equal(t, 3, attempt.TotalQuestionCount)

	// content edits after creation: one question added, one removed
	var existing model.Question
	require.NoError(t, h.db.First(&existing, exam.questionID[3]).Error)
	require.NoError(t, h.db.Create(&model.Question{GroupID: existing.GroupID, OrderIndex: 7, Type: model.QuestionFillInTheBlank, CorrectAnswer: "x", Points: 1}).Error)
	require.NoError(t, h.db.Delete(&model.Question{}, exam.questionID[4]).Error)

	got, err := h.attempts.GetAttempt(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.TotalQuestionCount)
	members, err := h.attemptRepo.FindQuestions(ctx, nil, attempt.ID)
	require.NoError(t, err)
	assert.Len(t, members, 3)
}

func TestGetAttemptRefreshesTimeRemaining(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	exam := h.seed(t, sampleExam("Timer"))
	attempt, err := h.attempts.CreateAttempt(ctx, exam.examID, 1, []model.SkillType{model.SkillReading})
	require.NoError(t, err)

	h.clock.Advance(10*time.Minute + 500*time.Millisecond)
	got, err := h.attempts.GetAttempt(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, string(model.AttemptInProgress), got.Status)
	require.NotNil(t, got.TimeRemaining)
	assert.Equal(t, readingSeconds-600, *got.TimeRemaining, "partial seconds round up")
	assert.Equal(t, readingSeconds-600, *h.loadAttempt(t, attempt.ID).TimeRemaining)
}

func TestGetAttemptAfterDeadlineCompletesIt(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	exam := h.seed(t, sampleExam("Expiry"))
	attempt, err := h.attempts.CreateAttempt(ctx, exam.examID, 1, []model.SkillType{model.SkillReading})
	require.NoError(t, err)
	h.answerAll(t, attempt.ID, exam, 3)

	h.clock.Advance(readingSeconds * time.Second)
	got, err := h.attempts.GetAttempt(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, string(model.AttemptCompleted), got.Status)
	assert.Nil(t, got.TimeRemaining)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, 1, got.CorrectQuestionCount)
	require.NotNil(t, got.ReadingScore)
	assert.EqualValues(t, 1, h.engine.calls.Load())

	// further reads are pure lookups
	h.clock.Advance(time.Hour)
	_, err = h.attempts.GetAttempt(ctx, attempt.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, h.engine.calls.Load())
}

func TestSubmitIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	exam := h.seed(t, sampleExam("Idempotent"))
	attempt, err := h.attempts.CreateAttempt(ctx, exam.examID, 1, []model.SkillType{model.SkillListening, model.SkillReading})
	require.NoError(t, err)
	h.answerAll(t, attempt.ID, exam, 1, 3, 4)

	first, err := h.attempts.SubmitAttempt(ctx, attempt.ID)
	require.NoError(t, err)

	h.clock.Advance(time.Minute)
	second, err := h.attempts.SubmitAttempt(ctx, attempt.ID)
	require.ErrorIs(t, err, ErrAlreadyCompleted)
	require.NotNil(t, second)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(firstJSON), string(secondJSON))
	assert.EqualValues(t, 1, h.engine.calls.Load())
}

func TestSubmitRacesWithExpiry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	exam := h.seed(t, sampleExam("Race"))
	attempt, err := h.attempts.CreateAttempt(ctx, exam.examID, 1, []model.SkillType{model.SkillReading})
	require.NoError(t, err)
	h.answerAll(t, attempt.ID, exam, 3, 4, 5)
	h.clock.Advance(readingSeconds*time.Second + time.Second)

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, err := h.attempts.SubmitAttempt(ctx, attempt.ID)
				if err != nil && !errors.Is(err, ErrAlreadyCompleted) {
					errs <- err
				}
				return
			}
			if _, err := h.attempts.GetAttempt(ctx, attempt.ID); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}

	assert.EqualValues(t, 1, h.engine.calls.Load())
	final := h.loadAttempt(t, attempt.ID)
	assert.Equal(t, model.AttemptCompleted, final.Status)
	assert.Equal(t, 3, final.CorrectQuestionCount)
}

func TestFinalizeAbortsOnMissingQuestion(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	exam := h.seed(t, sampleExam("Integrity"))
	attempt, err := h.attempts.CreateAttempt(ctx, exam.examID, 1, []model.SkillType{model.SkillReading})
	require.NoError(t, err)
	h.answerAll(t, attempt.ID, exam, 3, 4)

	removed, err := h.examRepo.FindQuestionByID(ctx, exam.questionID[5])
	require.NoError(t, err)
	require.NoError(t, h.db.Unscoped().Delete(&model.Question{}, exam.questionID[5]).Error)

	_, err = h.attempts.SubmitAttempt(ctx, attempt.ID)
	require.ErrorIs(t, err, ErrDataIntegrity)
	var integrity *DataIntegrityError
	require.ErrorAs(t, err, &integrity)
	assert.Equal(t, exam.questionID[5], integrity.QuestionID)

	stored := h.loadAttempt(t, attempt.ID)
	assert.Equal(t, model.AttemptInProgress, stored.Status)
	assert.Nil(t, stored.CompletedAt)
	answers, err := h.answerRepo.FindByAttempt(ctx, nil, attempt.ID)
	require.NoError(t, err)
	require.Len(t, answers, 2)
	for _, a := range answers {
		assert.Nil(t, a.IsCorrect)
		assert.Equal(t, model.GradeUngraded, a.GradeState)
	}

	// once the content is repaired the same attempt can be finalized
	require.NoError(t, h.db.Create(removed).Error)
	summary, err := h.attempts.SubmitAttempt(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, string(model.AttemptCompleted), summary.Status)
	assert.Equal(t, 2, summary.CorrectQuestionCount)
}

func TestFinalizeGradesSoftDeletedQuestion(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	exam := h.seed(t, sampleExam("Retired question"))
	attempt, err := h.attempts.CreateAttempt(ctx, exam.examID, 1, []model.SkillType{model.SkillReading})
	require.NoError(t, err)
	h.answerAll(t, attempt.ID, exam, 3, 4, 5)

	require.NoError(t, h.db.Delete(&model.Question{}, exam.questionID[5]).Error)

	h.clock.Advance(readingSeconds * time.Second)
	got, err := h.attempts.GetAttempt(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, string(model.AttemptCompleted), got.Status)
	assert.Equal(t, 3, got.CorrectQuestionCount)
	assert.Equal(t, 3, got.TotalQuestionCount)
}

func TestEndToEndReadingOnly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	exam := h.seed(t, sampleExam("End to end"))

	attempt, err := h.attempts.CreateAttempt(ctx, exam.examID, 42, []model.SkillType{model.SkillReading})
	require.NoError(t, err)
	assert.Equal(t, 3, attempt.TotalQuestionCount)

	h.answerAll(t, attempt.ID, exam, 3, 4, 5)
	summary, err := h.attempts.SubmitAttempt(ctx, attempt.ID)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.CorrectQuestionCount)
	assert.Equal(t, 3, summary.TotalQuestionCount)
	require.NotNil(t, summary.ReadingScore)
	assert.Equal(t, 9.0, *summary.ReadingScore)
	assert.Nil(t, summary.ListeningScore)
	assert.Nil(t, summary.WritingScore)
	require.NotNil(t, summary.OverallScore)
	assert.Equal(t, *summary.ReadingScore, *summary.OverallScore)
	assert.Equal(t, 0, summary.PendingManualCount)
	require.Len(t, summary.Answers, 3)
	assert.Equal(t, []int{3, 4, 5}, []int{summary.Answers[0].OrderIndex, summary.Answers[1].OrderIndex, summary.Answers[2].OrderIndex})
	for _, a := range summary.Answers {
		assert.Equal(t, string(model.GradeAutoGraded), a.GradeState)
		require.NotNil(t, a.IsCorrect)
		assert.True(t, *a.IsCorrect)
	}
}

func TestSubmitGradesUnansweredQuestions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	exam := h.seed(t, sampleExam("Unanswered"))
	attempt, err := h.attempts.CreateAttempt(ctx, exam.examID, 1, []model.SkillType{model.SkillListening})
	require.NoError(t, err)
	require.NoError(t, h.recorder.RecordAnswer(ctx, attempt.ID, exam.questionID[1], dto.AnswerPayloadDTO{SelectedOptions: []string{"A"}}))

	summary, err := h.attempts.SubmitAttempt(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.CorrectQuestionCount)
	require.Len(t, summary.Answers, 2)
	for _, a := range summary.Answers {
		require.NotNil(t, a.IsCorrect)
		assert.False(t, *a.IsCorrect)
		require.NotNil(t, a.ScoreEarned)
		assert.Equal(t, 0.0, *a.ScoreEarned)
	}
	require.NotNil(t, summary.ListeningScore)
	assert.Equal(t, 0.0, *summary.ListeningScore)

	answers, err := h.answerRepo.FindByAttempt(ctx, nil, attempt.ID)
	require.NoError(t, err)
	assert.Len(t, answers, 2, "a graded row exists for the unanswered question")
}

func TestSubmitWithEssayLeavesOverallPending(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	exam := h.seed(t, sampleExam("Essay pending"))
	attempt, err := h.attempts.CreateAttempt(ctx, exam.examID, 1, []model.SkillType{model.SkillReading, model.SkillWriting})
	require.NoError(t, err)
	h.answerAll(t, attempt.ID, exam, 3, 4, 5, 6)

	summary, err := h.attempts.SubmitAttempt(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.PendingManualCount)
	assert.NotNil(t, summary.ReadingScore)
	assert.Nil(t, summary.WritingScore)
	assert.Nil(t, summary.OverallScore)
	assert.Equal(t, 3, summary.CorrectQuestionCount)

	essay := summary.Answers[len(summary.Answers)-1]
	assert.Equal(t, string(model.GradeManualPending), essay.GradeState)
	assert.Nil(t, essay.IsCorrect)
	assert.Nil(t, essay.ScoreEarned)
}

func TestGetSummaryRequiresCompletion(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	exam := h.seed(t, sampleExam("Summary"))
	attempt, err := h.attempts.CreateAttempt(ctx, exam.examID, 1, nil)
	require.NoError(t, err)

	_, err = h.attempts.GetSummary(ctx, attempt.ID)
	assert.ErrorIs(t, err, ErrAttemptNotCompleted)
	_, err = h.attempts.GetSummary(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListUserAttemptsExpiresOverdue(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	exam := h.seed(t, sampleExam("Listing"))
	old, err := h.attempts.CreateAttempt(ctx, exam.examID, 5, []model.SkillType{model.SkillListening})
	require.NoError(t, err)
	h.clock.Advance(listeningSeconds * time.Second)
	fresh, err := h.attempts.CreateAttempt(ctx, exam.examID, 5, []model.SkillType{model.SkillReading})
	require.NoError(t, err)
	_, err = h.attempts.CreateAttempt(ctx, exam.examID, 6, nil)
	require.NoError(t, err)

	list, err := h.attempts.ListUserAttempts(ctx, 5)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, fresh.ID, list[0].ID)
	assert.Equal(t, string(model.AttemptInProgress), list[0].Status)
	assert.Equal(t, old.ID, list[1].ID)
	assert.Equal(t, string(model.AttemptCompleted), list[1].Status)
}

func TestListUserAttemptsKeepsUnfinalizableAttempt(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	exam := h.seed(t, sampleExam("Broken history"))
	done, err := h.attempts.CreateAttempt(ctx, exam.examID, 9, []model.SkillType{model.SkillListening})
	require.NoError(t, err)
	_, err = h.attempts.SubmitAttempt(ctx, done.ID)
	require.NoError(t, err)
	h.clock.Advance(time.Second)
	broken, err := h.attempts.CreateAttempt(ctx, exam.examID, 9, []model.SkillType{model.SkillReading})
	require.NoError(t, err)

	require.NoError(t, h.db.Unscoped().Delete(&model.Question{}, exam.questionID[5]).Error)
	h.clock.Advance(2 * time.Hour)

	list, err := h.attempts.ListUserAttempts(ctx, 9)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, broken.ID, list[0].ID)
	assert.Equal(t, string(model.AttemptInProgress), list[0].Status, "stored row is returned unchanged")
	assert.Equal(t, done.ID, list[1].ID)
	assert.Equal(t, string(model.AttemptCompleted), list[1].Status)
}

type countingAttemptRepo struct {
	repository.TestAttemptRepository
	timeWrites atomic.Int32
}

func (r *countingAttemptRepo) UpdateTimeRemaining(ctx context.Context, id uint, seconds int) error {
	r.timeWrites.Add(1)
	return r.TestAttemptRepository.UpdateTimeRemaining(ctx, id, seconds)
}

func TestTouchWritesTimeRemainingOnlyWhenChanged(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	exam := h.seed(t, sampleExam("Quiet reads"))
	repo := &countingAttemptRepo{TestAttemptRepository: h.attemptRepo}
	stats := NewStatisticsCache(repo)
	attempts := NewAttemptService(h.db, h.examRepo, repo, h.answerRepo, h.engine, stats, NewAttemptLocks(), h.clock)

	attempt, err := attempts.CreateAttempt(ctx, exam.examID, 1, []model.SkillType{model.SkillReading})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = attempts.GetAttempt(ctx, attempt.ID)
		require.NoError(t, err)
	}
	assert.Zero(t, repo.timeWrites.Load())

	h.clock.Advance(10 * time.Second)
	got, err := attempts.GetAttempt(ctx, attempt.ID)
	require.NoError(t, err)
	_, err = attempts.GetAttempt(ctx, attempt.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, repo.timeWrites.Load())
	assert.Equal(t, readingSeconds-10, *got.TimeRemaining)
	assert.Equal(t, readingSeconds-10, *h.loadAttempt(t, attempt.ID).TimeRemaining)
}

func TestExpireOverdue(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	exam := h.seed(t, sampleExam("Sweep"))
	short, err := h.attempts.CreateAttempt(ctx, exam.examID, 1, []model.SkillType{model.SkillListening})
	require.NoError(t, err)
	long, err := h.attempts.CreateAttempt(ctx, exam.examID, 2, []model.SkillType{model.SkillReading})
	require.NoError(t, err)

	h.clock.Advance(listeningSeconds * time.Second)
	n, err := h.attempts.ExpireOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, model.AttemptCompleted, h.loadAttempt(t, short.ID).Status)
	assert.Equal(t, model.AttemptInProgress, h.loadAttempt(t, long.ID).Status)

	n, err = h.attempts.ExpireOverdue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
