package dto

import "time"

// TestAttemptDTO is the persisted attempt record as seen by clients.
type TestAttemptDTO struct {
	ID                   uint       `json:"id"`
	UserID               uint       `json:"user_id"`
	ExamID               uint       `json:"exam_id"`
	ExamType             string     `json:"exam_type"`
	StartedAt            time.Time  `json:"started_at"`
	CompletedAt          *time.Time `json:"completed_at"`
	Deadline             time.Time  `json:"deadline"`
	Status               string     `json:"status"`
	DurationSeconds      int        `json:"duration_seconds"`
	TimeRemaining        *int       `json:"time_remaining"`
	SelectedSkills       []string   `json:"selected_skills"`
	ListeningScore       *float64   `json:"listening_score"`
	ReadingScore         *float64   `json:"reading_score"`
	WritingScore         *float64   `json:"writing_score"`
	SpeakingScore        *float64   `json:"speaking_score"`
	OverallScore         *float64   `json:"overall_score"`
	CorrectQuestionCount int        `json:"correct_question_count"`
	TotalQuestionCount   int        `json:"total_question_count"`
}

// AnswerResultDTO is one graded answer inside a scoring summary.
type AnswerResultDTO struct {
	QuestionID  uint     `json:"question_id"`
	OrderIndex  int      `json:"order_index"`
	Skill       string   `json:"skill"`
	GradeState  string   `json:"grade_state"`
	IsCorrect   *bool    `json:"is_correct"`
	ScoreEarned *float64 `json:"score_earned"`
	Feedback    *string  `json:"feedback,omitempty"`
}

// ScoringSummaryDTO is what submitting an attempt returns. It is read back from storage,
// so repeated submissions see identical output.
type ScoringSummaryDTO struct {
	AttemptID            uint              `json:"attempt_id"`
	ExamID               uint              `json:"exam_id"`
	UserID               uint              `json:"user_id"`
	Status               string            `json:"status"`
	StartedAt            time.Time         `json:"started_at"`
	CompletedAt          *time.Time        `json:"completed_at"`
	SelectedSkills       []string          `json:"selected_skills"`
	ListeningScore       *float64          `json:"listening_score"`
	ReadingScore         *float64          `json:"reading_score"`
	WritingScore         *float64          `json:"writing_score"`
	SpeakingScore        *float64          `json:"speaking_score"`
	OverallScore         *float64          `json:"overall_score"`
	CorrectQuestionCount int               `json:"correct_question_count"`
	TotalQuestionCount   int               `json:"total_question_count"`
	PendingManualCount   int               `json:"pending_manual_count"`
	Answers              []AnswerResultDTO `json:"answers"`
}
