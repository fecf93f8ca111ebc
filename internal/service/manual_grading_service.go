package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/lshigami/bandscore/internal/dto"
	"github.com/lshigami/bandscore/internal/model"
	"github.com/lshigami/bandscore/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ManualGradingService lets a human grader score essay and speaking answers of completed attempts.
type ManualGradingService interface {
	GradeAnswer(ctx context.Context, attemptID, questionID, graderID uint, score float64, feedback string) (*dto.ScoringSummaryDTO, error)
	ListPending(ctx context.Context) ([]dto.PendingAnswerDTO, error)
}

type manualGradingService struct {
	db          *gorm.DB
	examRepo    repository.ExamRepository
	attemptRepo repository.TestAttemptRepository
	answerRepo  repository.UserAnswerRepository
	engine      ScoringEngine
	stats       StatisticsCache
	locks       *AttemptLocks
	clock       Clock
}

func NewManualGradingService(
	db *gorm.DB,
	examRepo repository.ExamRepository,
	attemptRepo repository.TestAttemptRepository,
	answerRepo repository.UserAnswerRepository,
	engine ScoringEngine,
	stats StatisticsCache,
	locks *AttemptLocks,
	clock Clock,
) ManualGradingService {
	return &manualGradingService{
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

func (s *manualGradingService) GradeAnswer(ctx context.Context, attemptID, questionID, graderID uint, score float64, feedback string) (*dto.ScoringSummaryDTO, error) {
	unlock := s.locks.Lock(attemptID)
	defer unlock()

	attempt, err := s.attemptRepo.FindByID(ctx, nil, attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("attempt", attemptID)
		}
		return nil, err
	}
	if attempt.Status != model.AttemptCompleted {
		return nil, fmt.Errorf("%w: attempt %d", ErrAttemptNotCompleted, attemptID)
	}

	members, err := s.attemptRepo.FindQuestions(ctx, nil, attemptID)
	if err != nil {
		return nil, err
	}
	answers, err := s.answerRepo.FindByAttempt(ctx, nil, attemptID)
	if err != nil {
		return nil, err
	}
	var target *model.UserAnswer
	for i := range answers {
		if answers[i].QuestionID == questionID {
			target = &answers[i]
		}
	}
	if target == nil {
		return nil, notFound("answer for question", questionID)
	}
	switch target.GradeState {
	case model.GradeManualPending:
	case model.GradeManuallyGraded:
		return nil, fmt.Errorf("%w: question %d, attempt %d", ErrAlreadyGraded, questionID, attemptID)
	default:
		return nil, fmt.Errorf("%w: question %d is %s", ErrNotManuallyGradable, questionID, target.GradeState)
	}

	points, err := s.pointsOf(ctx, attemptID, members)
	if err != nil {
		return nil, err
	}
	if score < 0 || score > points[questionID] {
		return nil, fmt.Errorf("%w: %.2f not in [0, %.2f]", ErrInvalidScore, score, points[questionID])
	}

	correct := score > 0
	gradedAt := s.clock.Now()
	target.GradeState = model.GradeManuallyGraded
	target.IsCorrect = &correct
	target.ScoreEarned = &score
	target.GradedBy = &graderID
	target.GradedAt = &gradedAt
	if feedback != "" {
		target.Feedback = &feedback
	}

	result := s.engine.Aggregate(attempt.ExamType, currentGrades(members, answers, points))
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.answerRepo.UpdateManualGrade(ctx, tx, target); err != nil {
			return err
		}
		return s.stats.Refresh(ctx, tx, attempt, result)
	})
	if err != nil {
		log.Error().Err(err).Uint("attemptID", attemptID).Uint("questionID", questionID).Msg("GradeAnswer: transaction failed")
		return nil, err
	}
	log.Info().Uint("attemptID", attemptID).Uint("questionID", questionID).Uint("graderID", graderID).
		Float64("score", score).Int("stillPending", result.PendingCount()).Msg("Answer graded manually")

	if attempt, err = s.attemptRepo.FindByID(ctx, nil, attemptID); err != nil {
		return nil, err
	}
	return buildSummary(attempt, members, answers), nil
}

func (s *manualGradingService) pointsOf(ctx context.Context, attemptID uint, members []model.AttemptQuestion) (map[uint]float64, error) {
	ids := make([]uint, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.QuestionID)
	}
	questions, err := s.examRepo.FindQuestionsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	points := make(map[uint]float64, len(questions))
	for _, q := range questions {
		points[q.ID] = q.Points
	}
	for _, m := range members {
		if _, ok := points[m.QuestionID]; !ok {
			return nil, &DataIntegrityError{AttemptID: attemptID, QuestionID: m.QuestionID, Reason: "question missing from catalog"}
		}
	}
	return points, nil
}

// currentGrades rebuilds grades from stored answers without re-running the graders.
func currentGrades(members []model.AttemptQuestion, answers []model.UserAnswer, points map[uint]float64) []AnswerGrade {
	byQuestion := make(map[uint]*model.UserAnswer, len(answers))
	for i := range answers {
		byQuestion[answers[i].QuestionID] = &answers[i]
	}
	grades := make([]AnswerGrade, 0, len(members))
	for _, m := range members {
		g := AnswerGrade{QuestionID: m.QuestionID, Skill: m.Skill, OrderIndex: m.OrderIndex, Points: points[m.QuestionID]}
		if a, ok := byQuestion[m.QuestionID]; ok {
			g.State = a.GradeState
			g.IsCorrect = a.IsCorrect
			g.ScoreEarned = a.ScoreEarned
		}
		grades = append(grades, g)
	}
	return grades
}

func (s *manualGradingService) ListPending(ctx context.Context) ([]dto.PendingAnswerDTO, error) {
	answers, err := s.answerRepo.FindPendingManual(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.PendingAnswerDTO, 0, len(answers))
	for _, a := range answers {
		out = append(out, dto.PendingAnswerDTO{
			AttemptID:  a.AttemptID,
			QuestionID: a.QuestionID,
			TextAnswer: a.TextAnswer,
			MediaURL:   a.MediaURL,
		})
	}
	return out, nil
}
