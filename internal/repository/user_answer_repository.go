package repository

import (
	"context"

	"github.com/lshigami/bandscore/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var answerKey = []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}}

type UserAnswerRepository interface {
	Upsert(ctx context.Context, answer *model.UserAnswer) error
	SaveGrades(ctx context.Context, tx *gorm.DB, answers []model.UserAnswer) error
	UpdateManualGrade(ctx context.Context, tx *gorm.DB, answer *model.UserAnswer) error
	FindByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) ([]model.UserAnswer, error)
	FindOne(ctx context.Context, tx *gorm.DB, attemptID, questionID uint) (*model.UserAnswer, error)
	FindPendingManual(ctx context.Context) ([]model.UserAnswer, error)
}

type userAnswerRepository struct {
	db *gorm.DB
}

func NewUserAnswerRepository(db *gorm.DB) UserAnswerRepository {
	return &userAnswerRepository{db: db}
}

func (r *userAnswerRepository) getDB(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

// Upsert writes the answer payload for (attempt, question). Grade columns are left alone.
func (r *userAnswerRepository) Upsert(ctx context.Context, answer *model.UserAnswer) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   answerKey,
		DoUpdates: clause.AssignmentColumns([]string{"text_answer", "selected_options", "media_url", "updated_at"}),
	}).Create(answer).Error
}

// SaveGrades writes finalize-time grades, creating rows for questions that were never answered.
func (r *userAnswerRepository) SaveGrades(ctx context.Context, tx *gorm.DB, answers []model.UserAnswer) error {
	if len(answers) == 0 {
		return nil
	}
	return r.getDB(ctx, tx).Clauses(clause.OnConflict{
		Columns:   answerKey,
		DoUpdates: clause.AssignmentColumns([]string{"grade_state", "is_correct", "score_earned", "updated_at"}),
	}).CreateInBatches(answers, 200).Error
}

func (r *userAnswerRepository) UpdateManualGrade(ctx context.Context, tx *gorm.DB, answer *model.UserAnswer) error {
	return r.getDB(ctx, tx).
		Model(&model.UserAnswer{}).
		Where("id = ? AND grade_state = ?", answer.ID, model.GradeManualPending).
		Updates(map[string]interface{}{
			"grade_state":  model.GradeManuallyGraded,
			"is_correct":   answer.IsCorrect,
			"score_earned": answer.ScoreEarned,
			"feedback":     answer.Feedback,
			"graded_by":    answer.GradedBy,
			"graded_at":    answer.GradedAt,
		}).Error
}

func (r *userAnswerRepository) FindByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) ([]model.UserAnswer, error) {
	var answers []model.UserAnswer
	err := r.getDB(ctx, tx).
		Where("attempt_id = ?", attemptID).
		Order("question_id ASC").
		Find(&answers).Error
	return answers, err
}

func (r *userAnswerRepository) FindOne(ctx context.Context, tx *gorm.DB, attemptID, questionID uint) (*model.UserAnswer, error) {
	var answer model.UserAnswer
	err := r.getDB(ctx, tx).
		Where("attempt_id = ? AND question_id = ?", attemptID, questionID).
		First(&answer).Error
	if err != nil {
		return nil, err
	}
	return &answer, nil
}

func (r *userAnswerRepository) FindPendingManual(ctx context.Context) ([]model.UserAnswer, error) {
	var answers []model.UserAnswer
	err := r.db.WithContext(ctx).
		Where("grade_state = ?", model.GradeManualPending).
		Order("attempt_id ASC, question_id ASC").
		Find(&answers).Error
	return answers, err
}
