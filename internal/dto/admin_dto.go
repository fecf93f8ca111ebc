package dto

// QuestionImportDTO is one question inside an imported exam.
type QuestionImportDTO struct {
	OrderIndex    int      `json:"order_index" binding:"required,min=1"`
	Type          string   `json:"type" binding:"required,oneof=MULTIPLE_CHOICE DROP_DOWN FILL_IN_THE_BLANK TRUE_FALSE_NOT_GIVEN MATCHING_HEADINGS ESSAY SPEAKING_RECORDING"`
	Prompt        string   `json:"prompt" binding:"required"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
	Alternatives  []string `json:"alternatives,omitempty"`
	Points        float64  `json:"points" binding:"required,gt=0"`
}

type QuestionGroupImportDTO struct {
	Instructions string              `json:"instructions,omitempty"`
	Questions    []QuestionImportDTO `json:"questions" binding:"required,min=1,dive"`
}

type SectionImportDTO struct {
	Title   string                   `json:"title" binding:"required"`
	Passage string                   `json:"passage,omitempty"`
	Groups  []QuestionGroupImportDTO `json:"groups" binding:"required,min=1,dive"`
}

type SkillImportDTO struct {
	Skill           string             `json:"skill" binding:"required,oneof=Listening Reading Writing Speaking"`
	DurationSeconds int                `json:"duration_seconds" binding:"required,gt=0"`
	Sections        []SectionImportDTO `json:"sections" binding:"required,min=1,dive"`
}

// ExamImportDTO is for admin to create a whole exam tree in one request.
type ExamImportDTO struct {
	Title           string           `json:"title" binding:"required"`
	Description     string           `json:"description,omitempty"`
	Type            string           `json:"type" binding:"required,oneof=IELTS_ACADEMIC IELTS_GENERAL"`
	DurationSeconds int              `json:"duration_seconds" binding:"min=0"`
	Skills          []SkillImportDTO `json:"skills" binding:"required,min=1,dive"`
}

// ManualGradeDTO is the request body a grader sends for an essay or speaking answer.
type ManualGradeDTO struct {
	GraderID uint     `json:"grader_id" binding:"required"`
	Score    *float64 `json:"score" binding:"required"`
	Feedback string   `json:"feedback,omitempty"`
}

// PendingAnswerDTO lists an answer waiting for a grader.
type PendingAnswerDTO struct {
	AttemptID  uint    `json:"attempt_id"`
	QuestionID uint    `json:"question_id"`
	TextAnswer string  `json:"text_answer,omitempty"`
	MediaURL   *string `json:"media_url,omitempty"`
}

// GradingSuggestionDTO is an assistant proposal. It is never stored.
type GradingSuggestionDTO struct {
	AttemptID  uint    `json:"attempt_id"`
	QuestionID uint    `json:"question_id"`
	Score      float64 `json:"score"`
	MaxScore   float64 `json:"max_score"`
	Feedback   string  `json:"feedback"`
}

type AttemptSuggestionsDTO struct {
	AttemptID   uint                   `json:"attempt_id"`
	Suggestions []GradingSuggestionDTO `json:"suggestions"`
	Failures    []string               `json:"failures,omitempty"`
}
