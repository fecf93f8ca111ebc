package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/lshigami/bandscore/internal/dto"
	"github.com/lshigami/bandscore/internal/model"
	"github.com/lshigami/bandscore/internal/repository"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// GradingAssistantService proposes a score for a pending answer. Suggestions are advisory
// and a grader still submits the grade through ManualGradingService.
type GradingAssistantService interface {
	Suggest(ctx context.Context, attemptID, questionID uint) (*dto.GradingSuggestionDTO, error)
	// SuggestAttempt asks for suggestions on every pending answer of an attempt in parallel.
	// Failed questions are reported in the error list and skipped.
	SuggestAttempt(ctx context.Context, attemptID uint) ([]dto.GradingSuggestionDTO, []string, error)
}

type gradingAssistantService struct {
	llm         GeminiLLMService
	examRepo    repository.ExamRepository
	attemptRepo repository.TestAttemptRepository
	answerRepo  repository.UserAnswerRepository
}

func NewGradingAssistantService(
	llm GeminiLLMService,
	examRepo repository.ExamRepository,
	attemptRepo repository.TestAttemptRepository,
	answerRepo repository.UserAnswerRepository,
) GradingAssistantService {
	return &gradingAssistantService{llm: llm, examRepo: examRepo, attemptRepo: attemptRepo, answerRepo: answerRepo}
}

func (s *gradingAssistantService) Suggest(ctx context.Context, attemptID, questionID uint) (*dto.GradingSuggestionDTO, error) {
	if !s.llm.Available() {
		return nil, ErrAssistantUnavailable
	}
	member, err := s.attemptRepo.FindMember(ctx, attemptID, questionID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, fmt.Errorf("%w: question %d, attempt %d", ErrQuestionNotInAttempt, questionID, attemptID)
	}
	answer, err := s.answerRepo.FindOne(ctx, nil, attemptID, questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("answer for question", questionID)
		}
		return nil, err
	}
	if answer.GradeState != model.GradeManualPending {
		return nil, fmt.Errorf("%w: question %d is %s", ErrNotManuallyGradable, questionID, answer.GradeState)
	}
	question, err := s.examRepo.FindQuestionByID(ctx, questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &DataIntegrityError{AttemptID: attemptID, QuestionID: questionID, Reason: "question missing from catalog"}
		}
		return nil, err
	}

	feedback, score, err := s.llm.ScoreAndFeedbackAnswer(ctx, question, member.Skill, answer)
	if err != nil {
		return nil, err
	}
	return &dto.GradingSuggestionDTO{
		AttemptID:  attemptID,
		QuestionID: questionID,
		Score:      score,
		MaxScore:   question.Points,
		Feedback:   feedback,
	}, nil
}

// maxParallelSuggestions bounds concurrent Gemini calls (and media downloads) per attempt.
const maxParallelSuggestions = 4

type suggestionResult struct {
	suggestion *dto.GradingSuggestionDTO
	questionID uint
	err        error
}

func (s *gradingAssistantService) SuggestAttempt(ctx context.Context, attemptID uint) ([]dto.GradingSuggestionDTO, []string, error) {
	if !s.llm.Available() {
		return nil, nil, ErrAssistantUnavailable
	}
	if _, err := s.attemptRepo.FindByID(ctx, nil, attemptID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, notFound("attempt", attemptID)
		}
		return nil, nil, err
	}
	answers, err := s.answerRepo.FindByAttempt(ctx, nil, attemptID)
	if err != nil {
		return nil, nil, err
	}

	var pending []uint
	for _, a := range answers {
		if a.GradeState == model.GradeManualPending {
			pending = append(pending, a.QuestionID)
		}
	}

	// per-answer failures are collected, not returned
	results := make([]suggestionResult, len(pending))
	var g errgroup.Group
	g.SetLimit(maxParallelSuggestions)
	for i, questionID := range pending {
		i, questionID := i, questionID
		g.Go(func() error {
			suggestion, err := s.Suggest(ctx, attemptID, questionID)
			results[i] = suggestionResult{suggestion: suggestion, questionID: questionID, err: err}
			return nil
		})
	}
	_ = g.Wait()

	suggestions := make([]dto.GradingSuggestionDTO, 0, len(pending))
	var processingErrors []string
	for _, result := range results {
		if result.err != nil {
			log.Warn().Err(result.err).Uint("attemptID", attemptID).Uint("questionID", result.questionID).Msg("SuggestAttempt: assistant failed for answer")
			processingErrors = append(processingErrors, fmt.Sprintf("question %d: %s", result.questionID, result.err.Error()))
			continue
		}
		suggestions = append(suggestions, *result.suggestion)
	}
	sort.Slice(suggestions, func(i, j int) bool { return suggestions[i].QuestionID < suggestions[j].QuestionID })
	sort.Strings(processingErrors)
	return suggestions, processingErrors, nil
}
