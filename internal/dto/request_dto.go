package dto

type CreateAttemptRequest struct {
	UserID         uint     `json:"user_id" binding:"required"`
	SelectedSkills []string `json:"selected_skills" binding:"omitempty,dive,oneof=Listening Reading Writing Speaking"`
}

// AnswerPayloadDTO carries whichever answer form the question type uses.
type AnswerPayloadDTO struct {
	TextAnswer      string   `json:"text_answer"`
	SelectedOptions []string `json:"selected_options"`
	MediaURL        *string  `json:"media_url"`
}
