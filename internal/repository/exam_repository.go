package repository

import (
	"context"

	"github.com/lshigami/bandscore/internal/model"
	"gorm.io/gorm"
)

// ExamTree is a flat, ID-keyed view of one exam's content.
type ExamTree struct {
	Exam      model.Exam
	Skills    []model.ExamSkill
	Sections  []model.ExamSection
	Groups    []model.QuestionGroup
	Questions []model.Question
}

// Drafts carry parent/child nesting only until IDs exist.
type SkillDraft struct {
	Skill    model.ExamSkill
	Sections []SectionDraft
}

type SectionDraft struct {
	Section model.ExamSection
	Groups  []GroupDraft
}

type GroupDraft struct {
	Group     model.QuestionGroup
	Questions []model.Question
}

type ExamWithQuestionCount struct {
	model.Exam
	QuestionCount int
}

// ExamRepository is the read-only content catalog used by attempts, plus the bulk import writer.
type ExamRepository interface {
	CreateTree(ctx context.Context, exam *model.Exam, skills []SkillDraft) error
	FindByID(ctx context.Context, id uint) (*model.Exam, error)
	FindAllWithQuestionCount(ctx context.Context) ([]ExamWithQuestionCount, error)
	FindSkills(ctx context.Context, examID uint) ([]model.ExamSkill, error)
	FindTree(ctx context.Context, examID uint) (*ExamTree, error)
	ResolveQuestions(ctx context.Context, examID uint, skills []model.SkillType) ([]model.ResolvedQuestion, error)
	FindQuestionsByIDs(ctx context.Context, ids []uint) ([]model.Question, error)
	FindQuestionByID(ctx context.Context, id uint) (*model.Question, error)
}

type examRepository struct {
	db *gorm.DB
}

func NewExamRepository(db *gorm.DB) ExamRepository {
	return &examRepository{db: db}
}

func (r *examRepository) CreateTree(ctx context.Context, exam *model.Exam, skills []SkillDraft) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(exam).Error; err != nil {
			return err
		}
		for i := range skills {
			skill := &skills[i].Skill
			skill.ExamID = exam.ID
			if err := tx.Create(skill).Error; err != nil {
				return err
			}
			for j := range skills[i].Sections {
				section := &skills[i].Sections[j].Section
				section.SkillID = skill.ID
				if err := tx.Create(section).Error; err != nil {
					return err
				}
				for k := range skills[i].Sections[j].Groups {
					group := &skills[i].Sections[j].Groups[k]
					group.Group.SectionID = section.ID
					if err := tx.Create(&group.Group).Error; err != nil {
						return err
					}
					for q := range group.Questions {
						group.Questions[q].GroupID = group.Group.ID
					}
					if len(group.Questions) > 0 {
						if err := tx.Create(&group.Questions).Error; err != nil {
							return err
						}
					}
				}
			}
		}
		return nil
	})
}

func (r *examRepository) FindByID(ctx context.Context, id uint) (*model.Exam, error) {
	var exam model.Exam
	if err := r.db.WithContext(ctx).First(&exam, id).Error; err != nil {
		return nil, err
	}
	return &exam, nil
}

func (r *examRepository) FindAllWithQuestionCount(ctx context.Context) ([]ExamWithQuestionCount, error) {
	var exams []model.Exam
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&exams).Error; err != nil {
		return nil, err
	}
	if len(exams) == 0 {
		return []ExamWithQuestionCount{}, nil
	}
	ids := make([]uint, 0, len(exams))
	for _, exam := range exams {
		ids = append(ids, exam.ID)
	}

	var counts []struct {
		ExamID        uint
		QuestionCount int
	}
	err := r.liveQuestions(ctx).
		Select("exam_skills.exam_id AS exam_id, COUNT(questions.id) AS question_count").
		Where("exam_skills.exam_id IN ?", ids).
		Group("exam_skills.exam_id").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	byExam := make(map[uint]int, len(counts))
	for _, c := range counts {
		byExam[c.ExamID] = c.QuestionCount
	}

	results := make([]ExamWithQuestionCount, 0, len(exams))
	for _, exam := range exams {
		results = append(results, ExamWithQuestionCount{Exam: exam, QuestionCount: byExam[exam.ID]})
	}
	return results, nil
}

func (r *examRepository) FindSkills(ctx context.Context, examID uint) ([]model.ExamSkill, error) {
	var skills []model.ExamSkill
	err := r.db.WithContext(ctx).
		Where("exam_id = ?", examID).
		Order("order_index ASC, id ASC").
		Find(&skills).Error
	return skills, err
}

func (r *examRepository) FindTree(ctx context.Context, examID uint) (*ExamTree, error) {
	exam, err := r.FindByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	tree := &ExamTree{Exam: *exam}
	db := r.db.WithContext(ctx)

	if tree.Skills, err = r.FindSkills(ctx, examID); err != nil {
		return nil, err
	}
	if err := db.
		Joins("JOIN exam_skills ON exam_skills.id = exam_sections.skill_id AND exam_skills.deleted_at IS NULL").
		Where("exam_skills.exam_id = ?", examID).
		Order("exam_sections.order_index ASC, exam_sections.id ASC").
		Find(&tree.Sections).Error; err != nil {
		return nil, err
	}
	if err := db.
		Joins("JOIN exam_sections ON exam_sections.id = question_groups.section_id AND exam_sections.deleted_at IS NULL").
		Joins("JOIN exam_skills ON exam_skills.id = exam_sections.skill_id AND exam_skills.deleted_at IS NULL").
		Where("exam_skills.exam_id = ?", examID).
		Order("question_groups.order_index ASC, question_groups.id ASC").
		Find(&tree.Groups).Error; err != nil {
		return nil, err
	}
	if err := r.questionsOf(ctx, examID).
		Order("questions.order_index ASC").
		Find(&tree.Questions).Error; err != nil {
		return nil, err
	}
	return tree, nil
}

// liveQuestions joins live questions to their live skill rows.
func (r *examRepository) liveQuestions(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&model.Question{}).
		Joins("JOIN question_groups ON question_groups.id = questions.group_id AND question_groups.deleted_at IS NULL").
		Joins("JOIN exam_sections ON exam_sections.id = question_groups.section_id AND exam_sections.deleted_at IS NULL").
		Joins("JOIN exam_skills ON exam_skills.id = exam_sections.skill_id AND exam_skills.deleted_at IS NULL").
		Where("questions.deleted_at IS NULL")
}

// questionsOf scopes live questions reachable from an exam's live skills.
func (r *examRepository) questionsOf(ctx context.Context, examID uint) *gorm.DB {
	return r.liveQuestions(ctx).Where("exam_skills.exam_id = ?", examID)
}

func (r *examRepository) ResolveQuestions(ctx context.Context, examID uint, skills []model.SkillType) ([]model.ResolvedQuestion, error) {
	query := r.questionsOf(ctx, examID).
		Select("questions.id AS question_id, exam_skills.skill AS skill, questions.order_index AS order_index")
	if len(skills) > 0 {
		query = query.Where("exam_skills.skill IN ?", skills)
	}
	var resolved []model.ResolvedQuestion
	err := query.Order("questions.order_index ASC").Scan(&resolved).Error
	return resolved, err
}

// FindQuestionsByIDs includes soft-deleted rows: attempts grade against the questions they started with.
// Only hard-deleted questions are missing from the result.
func (r *examRepository) FindQuestionsByIDs(ctx context.Context, ids []uint) ([]model.Question, error) {
	var questions []model.Question
	if len(ids) == 0 {
		return questions, nil
	}
	err := r.db.WithContext(ctx).Unscoped().Where("id IN ?", ids).Order("order_index ASC").Find(&questions).Error
	return questions, err
}

// FindQuestionByID also sees soft-deleted rows.
func (r *examRepository) FindQuestionByID(ctx context.Context, id uint) (*model.Question, error) {
	var question model.Question
	if err := r.db.WithContext(ctx).Unscoped().First(&question, id).Error; err != nil {
		return nil, err
	}
	return &question, nil
}
