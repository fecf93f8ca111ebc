package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrAttemptClosed        = errors.New("attempt is no longer accepting answers")
	ErrQuestionNotInAttempt = errors.New("question is not part of this attempt")
	ErrAlreadyCompleted     = errors.New("attempt already completed")
	ErrDataIntegrity        = errors.New("data integrity violation")
	ErrAttemptNotCompleted  = errors.New("attempt has not been completed yet")
	ErrNotManuallyGradable  = errors.New("answer does not require manual grading")
	ErrAlreadyGraded        = errors.New("answer has already been graded")
	ErrInvalidScore         = errors.New("score is out of range")
	ErrInvalidExam          = errors.New("invalid exam definition")
	ErrInvalidSkill         = errors.New("unknown skill")
	ErrAssistantUnavailable = errors.New("grading assistant is not configured")
)

type NotFoundError struct {
	Resource string
	ID       uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// DataIntegrityError means stored content no longer matches what an attempt references.
type DataIntegrityError struct {
	AttemptID  uint
	QuestionID uint
	Reason     string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("attempt %d, question %d: %s", e.AttemptID, e.QuestionID, e.Reason)
}

func (e *DataIntegrityError) Is(target error) bool {
	return target == ErrDataIntegrity
}

func notFound(resource string, id uint) error {
	return &NotFoundError{Resource: resource, ID: id}
}
