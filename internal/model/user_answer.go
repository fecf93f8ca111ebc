package model

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// GradeState makes the grading lifecycle of an answer explicit instead of inferring it from nulls.
type GradeState string

const (
	GradeUngraded       GradeState = "UNGRADED"
	GradeAutoGraded     GradeState = "AUTO_GRADED"
	GradeManualPending  GradeState = "MANUAL_PENDING"
	GradeManuallyGraded GradeState = "MANUALLY_GRADED"
)

// Graded reports whether ScoreEarned is final for this state.
func (g GradeState) Graded() bool {
	return g == GradeAutoGraded || g == GradeManuallyGraded
}

type UserAnswer struct {
	ID              uint                        `gorm:"primarykey" json:"id"`
	AttemptID       uint                        `json:"attempt_id" gorm:"not null;uniqueIndex:idx_answer_attempt_question"`
	QuestionID      uint                        `json:"question_id" gorm:"not null;uniqueIndex:idx_answer_attempt_question"`
	TextAnswer      string                      `json:"text_answer" gorm:"type:text"`
	SelectedOptions datatypes.JSONSlice[string] `json:"selected_options,omitempty"`
	MediaURL        *string                     `json:"media_url,omitempty"`
	GradeState      GradeState                  `json:"grade_state" gorm:"not null;index;default:'UNGRADED'"`
	IsCorrect       *bool                       `json:"is_correct,omitempty"`
	ScoreEarned     *float64                    `json:"score_earned,omitempty"`
	Feedback        *string                     `json:"feedback,omitempty" gorm:"type:text"`
	GradedBy        *uint                       `json:"graded_by,omitempty"`
	GradedAt        *time.Time                  `json:"graded_at,omitempty"`
	CreatedAt       time.Time                   `json:"created_at"`
	UpdatedAt       time.Time                   `json:"updated_at"`
}

// Blank reports whether nothing was actually submitted.
func (a *UserAnswer) Blank() bool {
	if a == nil {
		return true
	}
	if strings.TrimSpace(a.TextAnswer) != "" {
		return false
	}
	for _, opt := range a.SelectedOptions {
		if strings.TrimSpace(opt) != "" {
			return false
		}
	}
	return a.MediaURL == nil || strings.TrimSpace(*a.MediaURL) == ""
}
