package repository

import (
	"context"

	"github.com/lshigami/bandscore/internal/model"
	"gorm.io/gorm"
)

type TestAttemptRepository interface {
	Create(ctx context.Context, attempt *model.TestAttempt, members []model.AttemptQuestion) error
	FindByID(ctx context.Context, tx *gorm.DB, id uint) (*model.TestAttempt, error)
	FindQuestions(ctx context.Context, tx *gorm.DB, attemptID uint) ([]model.AttemptQuestion, error)
	FindMember(ctx context.Context, attemptID, questionID uint) (*model.AttemptQuestion, error)
	UpdateTimeRemaining(ctx context.Context, id uint, seconds int) error
	MarkCompleted(ctx context.Context, tx *gorm.DB, id uint) (bool, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uint, fields map[string]interface{}) error
	FindAllByUser(ctx context.Context, userID uint) ([]model.TestAttempt, error)
	FindInProgress(ctx context.Context) ([]model.TestAttempt, error)
}

type testAttemptRepository struct {
	db *gorm.DB
}

func NewTestAttemptRepository(db *gorm.DB) TestAttemptRepository {
	return &testAttemptRepository{db: db}
}

func (r *testAttemptRepository) getDB(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

// Create stores the attempt together with its frozen question membership.
func (r *testAttemptRepository) Create(ctx context.Context, attempt *model.TestAttempt, members []model.AttemptQuestion) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(attempt).Error; err != nil {
			return err
		}
		for i := range members {
			members[i].AttemptID = attempt.ID
		}
		if len(members) == 0 {
			return nil
		}
		return tx.CreateInBatches(members, 200).Error
	})
}

func (r *testAttemptRepository) FindByID(ctx context.Context, tx *gorm.DB, id uint) (*model.TestAttempt, error) {
	var attempt model.TestAttempt
	if err := r.getDB(ctx, tx).First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *testAttemptRepository) FindQuestions(ctx context.Context, tx *gorm.DB, attemptID uint) ([]model.AttemptQuestion, error) {
	var members []model.AttemptQuestion
	err := r.getDB(ctx, tx).
		Where("attempt_id = ?", attemptID).
		Order("order_index ASC").
		Find(&members).Error
	return members, err
}

// FindMember returns nil without error when the question is not part of the attempt.
func (r *testAttemptRepository) FindMember(ctx context.Context, attemptID, questionID uint) (*model.AttemptQuestion, error) {
	var members []model.AttemptQuestion
	err := r.db.WithContext(ctx).
		Where("attempt_id = ? AND question_id = ?", attemptID, questionID).
		Limit(1).
		Find(&members).Error
	if err != nil || len(members) == 0 {
		return nil, err
	}
	return &members[0], nil
}

func (r *testAttemptRepository) UpdateTimeRemaining(ctx context.Context, id uint, seconds int) error {
	return r.db.WithContext(ctx).
		Model(&model.TestAttempt{}).
		Where("id = ? AND status = ?", id, model.AttemptInProgress).
		Update("time_remaining", seconds).Error
}

// MarkCompleted flips IN_PROGRESS to COMPLETED. Only the caller that observes the
// IN_PROGRESS row gets true back.
func (r *testAttemptRepository) MarkCompleted(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	res := r.getDB(ctx, tx).
		Model(&model.TestAttempt{}).
		Where("id = ? AND status = ?", id, model.AttemptInProgress).
		Update("status", model.AttemptCompleted)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *testAttemptRepository) UpdateFields(ctx context.Context, tx *gorm.DB, id uint, fields map[string]interface{}) error {
	return r.getDB(ctx, tx).
		Model(&model.TestAttempt{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *testAttemptRepository) FindAllByUser(ctx context.Context, userID uint) ([]model.TestAttempt, error) {
	var attempts []model.TestAttempt
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("started_at DESC, id DESC").
		Find(&attempts).Error
	return attempts, err
}

func (r *testAttemptRepository) FindInProgress(ctx context.Context) ([]model.TestAttempt, error) {
	var attempts []model.TestAttempt
	err := r.db.WithContext(ctx).
		Where("status = ?", model.AttemptInProgress).
		Order("id ASC").
		Find(&attempts).Error
	return attempts, err
}
