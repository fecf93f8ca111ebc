package dto

import "time"

type ErrorResponse struct {
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// ExamSummaryDTO is used for listing exams available to users.
type ExamSummaryDTO struct {
	ID              uint      `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	Type            string    `json:"type"`
	DurationSeconds int       `json:"duration_seconds"`
	QuestionCount   int       `json:"question_count"`
	CreatedAt       time.Time `json:"created_at"`
}

// QuestionResponseDTO never exposes the answer key.
type QuestionResponseDTO struct {
	ID         uint     `json:"id"`
	OrderIndex int      `json:"order_index"`
	Type       string   `json:"type"`
	Prompt     string   `json:"prompt"`
	Options    []string `json:"options,omitempty"`
	Points     float64  `json:"points"`
}

type QuestionGroupResponseDTO struct {
	ID           uint                  `json:"id"`
	Instructions string                `json:"instructions,omitempty"`
	Questions    []QuestionResponseDTO `json:"questions"`
}

type SectionResponseDTO struct {
	ID      uint                       `json:"id"`
	Title   string                     `json:"title"`
	Passage string                     `json:"passage,omitempty"`
	Groups  []QuestionGroupResponseDTO `json:"groups"`
}

type SkillResponseDTO struct {
	ID              uint                 `json:"id"`
	Skill           string               `json:"skill"`
	DurationSeconds int                  `json:"duration_seconds"`
	Sections        []SectionResponseDTO `json:"sections"`
}

// ExamResponseDTO is the full exam tree for a user about to start an attempt.
type ExamResponseDTO struct {
	ID              uint               `json:"id"`
	Title           string             `json:"title"`
	Description     string             `json:"description,omitempty"`
	Type            string             `json:"type"`
	DurationSeconds int                `json:"duration_seconds"`
	Skills          []SkillResponseDTO `json:"skills"`
	CreatedAt       time.Time          `json:"created_at"`
}
