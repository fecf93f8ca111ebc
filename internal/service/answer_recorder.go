package service

import (
	"context"
	"fmt"

	"github.com/lshigami/bandscore/internal/dto"
	"github.com/lshigami/bandscore/internal/model"
	"github.com/lshigami/bandscore/internal/repository"
	"github.com/rs/zerolog/log"
)

type AnswerRecorder interface {
	// RecordAnswer stores the latest answer for one question. Grade fields are not touched.
	RecordAnswer(ctx context.Context, attemptID, questionID uint, payload dto.AnswerPayloadDTO) error
}

type answerRecorder struct {
	attempts    AttemptService
	attemptRepo repository.TestAttemptRepository
	answerRepo  repository.UserAnswerRepository
	locks       *AttemptLocks
}

func NewAnswerRecorder(
	attempts AttemptService,
	attemptRepo repository.TestAttemptRepository,
	answerRepo repository.UserAnswerRepository,
	locks *AttemptLocks,
) AnswerRecorder {
	return &answerRecorder{attempts: attempts, attemptRepo: attemptRepo, answerRepo: answerRepo, locks: locks}
}

func (r *answerRecorder) RecordAnswer(ctx context.Context, attemptID, questionID uint, payload dto.AnswerPayloadDTO) error {
	attempt, err := r.attempts.Touch(ctx, attemptID)
	if err != nil {
		return err
	}
	if attempt.Status != model.AttemptInProgress {
		return fmt.Errorf("%w: attempt %d", ErrAttemptClosed, attemptID)
	}

	// Finalize holds the write lock; re-check the status once we are in.
	unlock := r.locks.RLock(attemptID)
	defer unlock()
	current, err := r.attemptRepo.FindByID(ctx, nil, attemptID)
	if err != nil {
		return err
	}
	if current.Status != model.AttemptInProgress {
		return fmt.Errorf("%w: attempt %d", ErrAttemptClosed, attemptID)
	}

	member, err := r.attemptRepo.FindMember(ctx, attemptID, questionID)
	if err != nil {
		return err
	}
	if member == nil {
		return fmt.Errorf("%w: question %d, attempt %d", ErrQuestionNotInAttempt, questionID, attemptID)
	}

	answer := &model.UserAnswer{
		AttemptID:       attemptID,
		QuestionID:      questionID,
		TextAnswer:      payload.TextAnswer,
		SelectedOptions: payload.SelectedOptions,
		MediaURL:        payload.MediaURL,
		GradeState:      model.GradeUngraded,
	}
	if err := r.answerRepo.Upsert(ctx, answer); err != nil {
		log.Error().Err(err).Uint("attemptID", attemptID).Uint("questionID", questionID).Msg("RecordAnswer: upsert failed")
		return err
	}
	log.Debug().Uint("attemptID", attemptID).Uint("questionID", questionID).Msg("Answer recorded")
	return nil
}
