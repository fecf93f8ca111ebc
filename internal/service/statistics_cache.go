package service

import (
	"context"
	"time"

	"github.com/lshigami/bandscore/internal/model"
	"github.com/lshigami/bandscore/internal/repository"
	"gorm.io/gorm"
)

// StatisticsCache is the only writer of the score columns on test_attempts.
type StatisticsCache interface {
	Persist(ctx context.Context, tx *gorm.DB, attemptID uint, result *ScoringResult, completedAt time.Time) error
	// Refresh fills score columns that were still pending. A stored score is never overwritten.
	Refresh(ctx context.Context, tx *gorm.DB, attempt *model.TestAttempt, result *ScoringResult) error
}

type statisticsCache struct {
	attemptRepo repository.TestAttemptRepository
}

func NewStatisticsCache(attemptRepo repository.TestAttemptRepository) StatisticsCache {
	return &statisticsCache{attemptRepo: attemptRepo}
}

func (c *statisticsCache) Persist(ctx context.Context, tx *gorm.DB, attemptID uint, result *ScoringResult, completedAt time.Time) error {
	fields := map[string]interface{}{
		"completed_at":           completedAt,
		"time_remaining":         nil,
		"overall_score":          result.OverallScore,
		"correct_question_count": result.CorrectQuestionCount,
	}
	for _, s := range result.Skills {
		fields[model.SkillScoreColumn(s.Skill)] = s.Score
	}
	return c.attemptRepo.UpdateFields(ctx, tx, attemptID, fields)
}

func (c *statisticsCache) Refresh(ctx context.Context, tx *gorm.DB, attempt *model.TestAttempt, result *ScoringResult) error {
	fields := map[string]interface{}{
		"correct_question_count": result.CorrectQuestionCount,
	}
	for _, s := range result.Skills {
		if s.Score != nil && attempt.SkillScore(s.Skill) == nil {
			fields[model.SkillScoreColumn(s.Skill)] = *s.Score
		}
	}
	if result.OverallScore != nil && attempt.OverallScore == nil {
		fields["overall_score"] = *result.OverallScore
	}
	return c.attemptRepo.UpdateFields(ctx, tx, attempt.ID, fields)
}
