package model

import (
	"time"

	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "IN_PROGRESS"
	AttemptCompleted  AttemptStatus = "COMPLETED"
)

type TestAttempt struct {
	ID                   uint                           `gorm:"primarykey" json:"id"`
	UserID               uint                           `json:"user_id" gorm:"not null;index"`
	ExamID               uint                           `json:"exam_id" gorm:"not null;index"`
	ExamType             ExamType                       `json:"exam_type" gorm:"not null"`
	StartedAt            time.Time                      `json:"started_at" gorm:"not null"`
	CompletedAt          *time.Time                     `json:"completed_at,omitempty"`
	Status               AttemptStatus                  `json:"status" gorm:"not null;index;default:'IN_PROGRESS'"`
	DurationSeconds      int                            `json:"duration_seconds" gorm:"not null"`
	TimeRemaining        *int                           `json:"time_remaining,omitempty"` // seconds, authoritative while in progress
	SelectedSkills       datatypes.JSONSlice[SkillType] `json:"selected_skills"`
	ListeningScore       *float64                       `json:"listening_score,omitempty"`
	ReadingScore         *float64                       `json:"reading_score,omitempty"`
	WritingScore         *float64                       `json:"writing_score,omitempty"`
	SpeakingScore        *float64                       `json:"speaking_score,omitempty"`
	OverallScore         *float64                       `json:"overall_score,omitempty"`
	CorrectQuestionCount int                            `json:"correct_question_count"`
	TotalQuestionCount   int                            `json:"total_question_count" gorm:"not null"`
	CreatedAt            time.Time                      `json:"created_at"`
	UpdatedAt            time.Time                      `json:"updated_at"`
}

func (a *TestAttempt) Deadline() time.Time {
	return a.StartedAt.Add(time.Duration(a.DurationSeconds) * time.Second)
}

// SkillScore returns the stored score column for a skill.
func (a *TestAttempt) SkillScore(skill SkillType) *float64 {
	switch skill {
	case SkillListening:
		return a.ListeningScore
	case SkillReading:
		return a.ReadingScore
	case SkillWriting:
		return a.WritingScore
	case SkillSpeaking:
		return a.SpeakingScore
	}
	return nil
}

// SkillScoreColumn maps a skill to its column on test_attempts.
func SkillScoreColumn(skill SkillType) string {
	switch skill {
	case SkillListening:
		return "listening_score"
	case SkillReading:
		return "reading_score"
	case SkillWriting:
		return "writing_score"
	case SkillSpeaking:
		return "speaking_score"
	}
	return ""
}
