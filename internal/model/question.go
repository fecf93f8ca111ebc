package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuestionType string

const (
	QuestionMultipleChoice    QuestionType = "MULTIPLE_CHOICE"
	QuestionDropDown          QuestionType = "DROP_DOWN"
	QuestionFillInTheBlank    QuestionType = "FILL_IN_THE_BLANK"
	QuestionTrueFalseNotGiven QuestionType = "TRUE_FALSE_NOT_GIVEN"
	QuestionMatchingHeadings  QuestionType = "MATCHING_HEADINGS"
	QuestionEssay             QuestionType = "ESSAY"
	QuestionSpeakingRecording QuestionType = "SPEAKING_RECORDING"
)

var AllQuestionTypes = []QuestionType{
	QuestionMultipleChoice,
	QuestionDropDown,
	QuestionFillInTheBlank,
	QuestionTrueFalseNotGiven,
	QuestionMatchingHeadings,
	QuestionEssay,
	QuestionSpeakingRecording,
}

// RequiresManualGrading reports whether a human has to score answers of this type.
func (t QuestionType) RequiresManualGrading() bool {
	return t == QuestionEssay || t == QuestionSpeakingRecording
}

type Question struct {
	ID            uint                        `gorm:"primarykey" json:"id"`
	GroupID       uint                        `json:"group_id" gorm:"not null;index"`
	OrderIndex    int                         `json:"order_index" gorm:"not null"` // 1..N within the exam
	Type          QuestionType                `json:"type" gorm:"not null"`
	Prompt        string                      `json:"prompt" gorm:"type:text"`
	Options       datatypes.JSONSlice[string] `json:"options,omitempty"`
	CorrectAnswer string                      `json:"correct_answer,omitempty"` // comma-separated when several options are expected
	Alternatives  datatypes.JSONSlice[string] `json:"alternatives,omitempty"`
	Points        float64                     `json:"points" gorm:"not null;default:1"`
	CreatedAt     time.Time                   `json:"created_at"`
	UpdatedAt     time.Time                   `json:"updated_at"`
	DeletedAt     gorm.DeletedAt              `gorm:"index" json:"-"`
}

// ResolvedQuestion is a question located in the content tree, flattened to what an attempt needs.
type ResolvedQuestion struct {
	QuestionID uint
	Skill      SkillType
	OrderIndex int
}
