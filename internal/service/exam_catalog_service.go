package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jinzhu/copier"
	"github.com/lshigami/bandscore/internal/dto"
	"github.com/lshigami/bandscore/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ExamCatalogService serves exam content to candidates without answer keys.
type ExamCatalogService interface {
	ListExams(ctx context.Context) ([]dto.ExamSummaryDTO, error)
	GetExam(ctx context.Context, examID uint) (*dto.ExamResponseDTO, error)
}

type examCatalogService struct {
	examRepo repository.ExamRepository
}

func NewExamCatalogService(examRepo repository.ExamRepository) ExamCatalogService {
	return &examCatalogService{examRepo: examRepo}
}

func (s *examCatalogService) ListExams(ctx context.Context) ([]dto.ExamSummaryDTO, error) {
	exams, err := s.examRepo.FindAllWithQuestionCount(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list exams with question count")
		return nil, fmt.Errorf("error fetching exams: %w", err)
	}
	out := make([]dto.ExamSummaryDTO, 0, len(exams))
	for _, e := range exams {
		out = append(out, dto.ExamSummaryDTO{
			ID:              e.ID,
			Title:           e.Title,
			Description:     e.Description,
			Type:            string(e.Type),
			DurationSeconds: e.DurationSeconds,
			QuestionCount:   e.QuestionCount,
			CreatedAt:       e.CreatedAt,
		})
	}
	return out, nil
}

func (s *examCatalogService) GetExam(ctx context.Context, examID uint) (*dto.ExamResponseDTO, error) {
	tree, err := s.examRepo.FindTree(ctx, examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("exam", examID)
		}
		return nil, err
	}
	return examResponse(tree), nil
}

// examResponse nests the flat tree by parent ID.
func examResponse(tree *repository.ExamTree) *dto.ExamResponseDTO {
	resp := &dto.ExamResponseDTO{
		ID:              tree.Exam.ID,
		Title:           tree.Exam.Title,
		Description:     tree.Exam.Description,
		Type:            string(tree.Exam.Type),
		DurationSeconds: tree.Exam.DurationSeconds,
		CreatedAt:       tree.Exam.CreatedAt,
		Skills:          make([]dto.SkillResponseDTO, 0, len(tree.Skills)),
	}

	questionsByGroup := make(map[uint][]dto.QuestionResponseDTO)
	for _, q := range tree.Questions {
		var qr dto.QuestionResponseDTO
		if err := copier.Copy(&qr, &q); err != nil {
			log.Warn().Err(err).Uint("questionID", q.ID).Msg("Copier failed for question DTO")
		}
		qr.Type = string(q.Type)
		qr.Options = []string(q.Options)
		questionsByGroup[q.GroupID] = append(questionsByGroup[q.GroupID], qr)
	}
	groupsBySection := make(map[uint][]dto.QuestionGroupResponseDTO)
	for _, g := range tree.Groups {
		groupsBySection[g.SectionID] = append(groupsBySection[g.SectionID], dto.QuestionGroupResponseDTO{
			ID:           g.ID,
			Instructions: g.Instructions,
			Questions:    questionsByGroup[g.ID],
		})
	}
	sectionsBySkill := make(map[uint][]dto.SectionResponseDTO)
	for _, sec := range tree.Sections {
		sectionsBySkill[sec.SkillID] = append(sectionsBySkill[sec.SkillID], dto.SectionResponseDTO{
			ID:      sec.ID,
			Title:   sec.Title,
			Passage: sec.Passage,
			Groups:  groupsBySection[sec.ID],
		})
	}
	for _, sk := range tree.Skills {
		resp.Skills = append(resp.Skills, dto.SkillResponseDTO{
			ID:              sk.ID,
			Skill:           string(sk.Skill),
			DurationSeconds: sk.DurationSeconds,
			Sections:        sectionsBySkill[sk.ID],
		})
	}
	return resp
}
