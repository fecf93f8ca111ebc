package model

// AttemptQuestion freezes question membership at attempt creation.
type AttemptQuestion struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	AttemptID  uint      `json:"attempt_id" gorm:"not null;uniqueIndex:idx_attempt_question"`
	QuestionID uint      `json:"question_id" gorm:"not null;uniqueIndex:idx_attempt_question"`
	Skill      SkillType `json:"skill" gorm:"not null"`
	OrderIndex int       `json:"order_index" gorm:"not null"`
}
