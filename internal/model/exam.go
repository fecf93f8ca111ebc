package model

import (
	"time"

	"gorm.io/gorm"
)

type ExamType string

const (
	ExamTypeIELTSAcademic ExamType = "IELTS_ACADEMIC"
	ExamTypeIELTSGeneral  ExamType = "IELTS_GENERAL"
)

type SkillType string

const (
	SkillListening SkillType = "Listening"
	SkillReading   SkillType = "Reading"
	SkillWriting   SkillType = "Writing"
	SkillSpeaking  SkillType = "Speaking"
)

// AllSkills is the canonical reporting order.
var AllSkills = []SkillType{SkillListening, SkillReading, SkillWriting, SkillSpeaking}

func (s SkillType) Valid() bool {
	for _, known := range AllSkills {
		if s == known {
			return true
		}
	}
	return false
}

// Exam is the root of the content tree. Children reference their parent by ID only.
type Exam struct {
	ID              uint           `gorm:"primarykey" json:"id"`
	Title           string         `json:"title" gorm:"not null;uniqueIndex"`
	Description     string         `json:"description,omitempty"`
	Type            ExamType       `json:"type" gorm:"not null;default:'IELTS_ACADEMIC'"`
	DurationSeconds int            `json:"duration_seconds"` // 0 means the sum of its skills
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

type ExamSkill struct {
	ID              uint           `gorm:"primarykey" json:"id"`
	ExamID          uint           `json:"exam_id" gorm:"not null;index"`
	Skill           SkillType      `json:"skill" gorm:"not null"`
	DurationSeconds int            `json:"duration_seconds" gorm:"not null"`
	OrderIndex      int            `json:"order_index"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

type ExamSection struct {
	ID         uint           `gorm:"primarykey" json:"id"`
	SkillID    uint           `json:"skill_id" gorm:"not null;index"`
	Title      string         `json:"title"`
	Passage    string         `json:"passage,omitempty" gorm:"type:text"`
	OrderIndex int            `json:"order_index"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

type QuestionGroup struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	SectionID    uint           `json:"section_id" gorm:"not null;index"`
	Instructions string         `json:"instructions,omitempty" gorm:"type:text"`
	OrderIndex   int            `json:"order_index"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}
