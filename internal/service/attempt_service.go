package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jinzhu/copier"
	"github.com/lshigami/bandscore/internal/dto"
	"github.com/lshigami/bandscore/internal/model"
	"github.com/lshigami/bandscore/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// errLostRace aborts a finalize transaction whose conditional status update matched no row.
var errLostRace = errors.New("attempt finalized concurrently")

// AttemptService owns the attempt lifecycle: creation, lazy expiry and the single finalize transition.
type AttemptService interface {
	CreateAttempt(ctx context.Context, examID, userID uint, skills []model.SkillType) (*dto.TestAttemptDTO, error)
	GetAttempt(ctx context.Context, id uint) (*dto.TestAttemptDTO, error)
	// Touch refreshes TimeRemaining and finalizes the attempt once its deadline has passed.
	Touch(ctx context.Context, id uint) (*model.TestAttempt, error)
	SubmitAttempt(ctx context.Context, id uint) (*dto.ScoringSummaryDTO, error)
	GetSummary(ctx context.Context, id uint) (*dto.ScoringSummaryDTO, error)
	ListUserAttempts(ctx context.Context, userID uint) ([]dto.TestAttemptDTO, error)
	// ExpireOverdue finalizes every in-progress attempt whose deadline has passed.
	ExpireOverdue(ctx context.Context) (int, error)
}

type attemptService struct {
	db          *gorm.DB
	examRepo    repository.ExamRepository
	attemptRepo repository.TestAttemptRepository
	answerRepo  repository.UserAnswerRepository
	engine      ScoringEngine
	stats       StatisticsCache
	locks       *AttemptLocks
	clock       Clock
}

func NewAttemptService(
	db *gorm.DB,
	examRepo repository.ExamRepository,
	attemptRepo repository.TestAttemptRepository,
	answerRepo repository.UserAnswerRepository,
	engine ScoringEngine,
	stats StatisticsCache,
	locks *AttemptLocks,
	clock Clock,
) AttemptService {
	return &attemptService{
		db:          db,
		examRepo:    examRepo,
		attemptRepo: attemptRepo,
		answerRepo:  answerRepo,
		engine:      engine,
		stats:       stats,
		locks:       locks,
		clock:       clock,
	}
}

func (s *attemptService) CreateAttempt(ctx context.Context, examID, userID uint, skills []model.SkillType) (*dto.TestAttemptDTO, error) {
	selected, err := normalizeSkills(skills)
	if err != nil {
		return nil, err
	}

	exam, err := s.examRepo.FindByID(ctx, examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("exam", examID)
		}
		return nil, err
	}

	resolved, err := s.examRepo.ResolveQuestions(ctx, examID, selected)
	if err != nil {
		return nil, fmt.Errorf("resolving questions for exam %d: %w", examID, err)
	}
	if len(resolved) == 0 {
		log.Warn().Uint("examID", examID).Interface("skills", selected).Msg("CreateAttempt: no questions for selection")
		return nil, notFound("questions of exam", examID)
	}

	duration, err := s.attemptDuration(ctx, exam, selected)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	attempt := &model.TestAttempt{
		UserID:             userID,
		ExamID:             examID,
		ExamType:           exam.Type,
		StartedAt:          now,
		Status:             model.AttemptInProgress,
		DurationSeconds:    duration,
		TimeRemaining:      &duration,
		SelectedSkills:     selected,
		TotalQuestionCount: len(resolved),
	}
	members := make([]model.AttemptQuestion, 0, len(resolved))
	for _, q := range resolved {
		members = append(members, model.AttemptQuestion{QuestionID: q.QuestionID, Skill: q.Skill, OrderIndex: q.OrderIndex})
	}
	if err := s.attemptRepo.Create(ctx, attempt, members); err != nil {
		log.Error().Err(err).Uint("examID", examID).Uint("userID", userID).Msg("CreateAttempt: failed to persist attempt")
		return nil, err
	}

	log.Info().Uint("attemptID", attempt.ID).Uint("examID", examID).Uint("userID", userID).
		Int("questions", len(resolved)).Int("durationSeconds", duration).Msg("Attempt started")
	return toAttemptDTO(attempt), nil
}

// normalizeSkills drops duplicates while keeping the caller's order.
func normalizeSkills(skills []model.SkillType) ([]model.SkillType, error) {
	selected := []model.SkillType{}
	seen := make(map[model.SkillType]bool, len(skills))
	for _, skill := range skills {
		if !skill.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSkill, skill)
		}
		if !seen[skill] {
			seen[skill] = true
			selected = append(selected, skill)
		}
	}
	return selected, nil
}

func (s *attemptService) attemptDuration(ctx context.Context, exam *model.Exam, selected []model.SkillType) (int, error) {
	if len(selected) == 0 && exam.DurationSeconds > 0 {
		return exam.DurationSeconds, nil
	}
	skills, err := s.examRepo.FindSkills(ctx, exam.ID)
	if err != nil {
		return 0, err
	}
	wanted := make(map[model.SkillType]bool, len(selected))
	for _, skill := range selected {
		wanted[skill] = true
	}
	total := 0
	for _, skill := range skills {
		if len(selected) == 0 || wanted[skill.Skill] {
			total += skill.DurationSeconds
		}
	}
	if total <= 0 {
		return 0, fmt.Errorf("%w: exam %d has no duration for the selected skills", ErrInvalidExam, exam.ID)
	}
	return total, nil
}

func (s *attemptService) findAttempt(ctx context.Context, id uint) (*model.TestAttempt, error) {
	attempt, err := s.attemptRepo.FindByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("attempt", id)
		}
		return nil, err
	}
	return attempt, nil
}

func remainingSeconds(attempt *model.TestAttempt, now time.Time) int {
	left := attempt.Deadline().Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}

func (s *attemptService) Touch(ctx context.Context, id uint) (*model.TestAttempt, error) {
	attempt, err := s.findAttempt(ctx, id)
	if err != nil {
		return nil, err
	}
	if attempt.Status == model.AttemptCompleted {
		return attempt, nil
	}

	now := s.clock.Now()
	if remaining := remainingSeconds(attempt, now); remaining > 0 {
		if attempt.TimeRemaining != nil && *attempt.TimeRemaining == remaining {
			return attempt, nil
		}
		if err := s.attemptRepo.UpdateTimeRemaining(ctx, id, remaining); err != nil {
			return nil, err
		}
		attempt.TimeRemaining = &remaining
		return attempt, nil
	}

	if _, err := s.finalize(ctx, id, now); err != nil {
		return nil, err
	}
	return s.findAttempt(ctx, id)
}

// finalize moves an attempt to COMPLETED and stores its grades and scores. Scoring runs
// before anything is written, so a scoring failure leaves the attempt in progress.
// It reports whether this call performed the transition.
func (s *attemptService) finalize(ctx context.Context, id uint, now time.Time) (bool, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	attempt, err := s.findAttempt(ctx, id)
	if err != nil {
		return false, err
	}
	if attempt.Status == model.AttemptCompleted {
		return false, nil
	}

	members, err := s.attemptRepo.FindQuestions(ctx, nil, id)
	if err != nil {
		return false, err
	}
	answers, err := s.answerRepo.FindByAttempt(ctx, nil, id)
	if err != nil {
		return false, err
	}
	result, err := s.engine.Score(ctx, attempt, members, answers)
	if err != nil {
		return false, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		won, err := s.attemptRepo.MarkCompleted(ctx, tx, id)
		if err != nil {
			return err
		}
		if !won {
			return errLostRace
		}
		if err := s.answerRepo.SaveGrades(ctx, tx, gradeRows(id, result.Grades)); err != nil {
			return fmt.Errorf("saving grades: %w", err)
		}
		return s.stats.Persist(ctx, tx, id, result, now)
	})
	if errors.Is(err, errLostRace) {
		return false, nil
	}
	if err != nil {
		log.Error().Err(err).Uint("attemptID", id).Msg("Finalize: transaction failed")
		return false, err
	}

	log.Info().Uint("attemptID", id).Int("correct", result.CorrectQuestionCount).
		Int("pendingManual", result.PendingCount()).Msg("Attempt completed")
	return true, nil
}

func gradeRows(attemptID uint, grades []AnswerGrade) []model.UserAnswer {
	rows := make([]model.UserAnswer, 0, len(grades))
	for _, g := range grades {
		rows = append(rows, model.UserAnswer{
			AttemptID:   attemptID,
			QuestionID:  g.QuestionID,
			GradeState:  g.State,
			IsCorrect:   g.IsCorrect,
			ScoreEarned: g.ScoreEarned,
		})
	}
	return rows
}

func (s *attemptService) GetAttempt(ctx context.Context, id uint) (*dto.TestAttemptDTO, error) {
	attempt, err := s.Touch(ctx, id)
	if err != nil {
		return nil, err
	}
	return toAttemptDTO(attempt), nil
}

func (s *attemptService) SubmitAttempt(ctx context.Context, id uint) (*dto.ScoringSummaryDTO, error) {
	attempt, err := s.findAttempt(ctx, id)
	if err != nil {
		return nil, err
	}
	won := false
	if attempt.Status == model.AttemptInProgress {
		if won, err = s.finalize(ctx, id, s.clock.Now()); err != nil {
			return nil, err
		}
	}

	summary, err := s.GetSummary(ctx, id)
	if err != nil {
		return nil, err
	}
	if !won {
		return summary, fmt.Errorf("%w: attempt %d", ErrAlreadyCompleted, id)
	}
	return summary, nil
}

func (s *attemptService) GetSummary(ctx context.Context, id uint) (*dto.ScoringSummaryDTO, error) {
	attempt, err := s.Touch(ctx, id)
	if err != nil {
		return nil, err
	}
	if attempt.Status != model.AttemptCompleted {
		return nil, fmt.Errorf("%w: attempt %d", ErrAttemptNotCompleted, id)
	}
	members, err := s.attemptRepo.FindQuestions(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	answers, err := s.answerRepo.FindByAttempt(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	return buildSummary(attempt, members, answers), nil
}

func buildSummary(attempt *model.TestAttempt, members []model.AttemptQuestion, answers []model.UserAnswer) *dto.ScoringSummaryDTO {
	summary := &dto.ScoringSummaryDTO{
		AttemptID:            attempt.ID,
		ExamID:               attempt.ExamID,
		UserID:               attempt.UserID,
		Status:               string(attempt.Status),
		StartedAt:            attempt.StartedAt,
		CompletedAt:          attempt.CompletedAt,
		SelectedSkills:       skillStrings(attempt.SelectedSkills),
		ListeningScore:       attempt.ListeningScore,
		ReadingScore:         attempt.ReadingScore,
		WritingScore:         attempt.WritingScore,
		SpeakingScore:        attempt.SpeakingScore,
		OverallScore:         attempt.OverallScore,
		CorrectQuestionCount: attempt.CorrectQuestionCount,
		TotalQuestionCount:   attempt.TotalQuestionCount,
		Answers:              make([]dto.AnswerResultDTO, 0, len(members)),
	}
	byQuestion := make(map[uint]*model.UserAnswer, len(answers))
	for i := range answers {
		byQuestion[answers[i].QuestionID] = &answers[i]
	}
	for _, m := range members {
		result := dto.AnswerResultDTO{
			QuestionID: m.QuestionID,
			OrderIndex: m.OrderIndex,
			Skill:      string(m.Skill),
			GradeState: string(model.GradeUngraded),
		}
		if a, ok := byQuestion[m.QuestionID]; ok {
			result.GradeState = string(a.GradeState)
			result.IsCorrect = a.IsCorrect
			result.ScoreEarned = a.ScoreEarned
			result.Feedback = a.Feedback
			if a.GradeState == model.GradeManualPending {
				summary.PendingManualCount++
			}
		}
		summary.Answers = append(summary.Answers, result)
	}
	return summary
}

func (s *attemptService) ListUserAttempts(ctx context.Context, userID uint) ([]dto.TestAttemptDTO, error) {
	attempts, err := s.attemptRepo.FindAllByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.TestAttemptDTO, 0, len(attempts))
	for i := range attempts {
		attempt := &attempts[i]
		if attempt.Status == model.AttemptInProgress {
			touched, err := s.Touch(ctx, attempt.ID)
			if err != nil {
				// one broken attempt must not hide the rest of the history
				log.Error().Err(err).Uint("attemptID", attempt.ID).Uint("userID", userID).Msg("ListUserAttempts: refresh failed, returning stored row")
			} else {
				attempt = touched
			}
		}
		out = append(out, *toAttemptDTO(attempt))
	}
	return out, nil
}

func (s *attemptService) ExpireOverdue(ctx context.Context) (int, error) {
	attempts, err := s.attemptRepo.FindInProgress(ctx)
	if err != nil {
		return 0, err
	}
	now := s.clock.Now()
	expired := 0
	var errs []error
	for i := range attempts {
		if remainingSeconds(&attempts[i], now) > 0 {
			continue
		}
		touched, err := s.Touch(ctx, attempts[i].ID)
		if err != nil {
			log.Error().Err(err).Uint("attemptID", attempts[i].ID).Msg("ExpireOverdue: finalize failed")
			errs = append(errs, err)
			continue
		}
		if touched.Status == model.AttemptCompleted {
			expired++
		}
	}
	log.Info().Int("expired", expired).Int("failed", len(errs)).Msg("Overdue attempts swept")
	return expired, errors.Join(errs...)
}

func skillStrings(skills []model.SkillType) []string {
	out := make([]string, 0, len(skills))
	for _, skill := range skills {
		out = append(out, string(skill))
	}
	return out
}

func toAttemptDTO(attempt *model.TestAttempt) *dto.TestAttemptDTO {
	var out dto.TestAttemptDTO
	if err := copier.Copy(&out, attempt); err != nil {
		log.Warn().Err(err).Uint("attemptID", attempt.ID).Msg("Copier failed for attempt DTO")
	}
	out.ExamType = string(attempt.ExamType)
	out.Status = string(attempt.Status)
	out.SelectedSkills = skillStrings(attempt.SelectedSkills)
	out.Deadline = attempt.Deadline()
	return &out
}
