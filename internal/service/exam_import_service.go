package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lshigami/bandscore/internal/dto"
	"github.com/lshigami/bandscore/internal/model"
	"github.com/lshigami/bandscore/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ExamImportService validates and stores a complete exam tree.
type ExamImportService interface {
	ImportExam(ctx context.Context, req dto.ExamImportDTO) (*dto.ExamResponseDTO, error)
}

type examImportService struct {
	examRepo repository.ExamRepository
}

func NewExamImportService(examRepo repository.ExamRepository) ExamImportService {
	return &examImportService{examRepo: examRepo}
}

func invalidExam(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidExam, fmt.Sprintf(format, args...))
}

func (s *examImportService) ImportExam(ctx context.Context, req dto.ExamImportDTO) (*dto.ExamResponseDTO, error) {
	exam, drafts, err := buildExamDrafts(req)
	if err != nil {
		return nil, err
	}
	if err := s.examRepo.CreateTree(ctx, exam, drafts); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, invalidExam("an exam titled %q already exists", req.Title)
		}
		log.Error().Err(err).Str("title", req.Title).Msg("Failed to create exam tree in database")
		return nil, fmt.Errorf("database error creating exam: %w", err)
	}
	log.Info().Uint("examID", exam.ID).Str("title", exam.Title).Int("skills", len(drafts)).Msg("Exam imported")

	tree, err := s.examRepo.FindTree(ctx, exam.ID)
	if err != nil {
		return nil, err
	}
	return examResponse(tree), nil
}

func buildExamDrafts(req dto.ExamImportDTO) (*model.Exam, []repository.SkillDraft, error) {
	examType := model.ExamType(req.Type)
	if examType != model.ExamTypeIELTSAcademic && examType != model.ExamTypeIELTSGeneral {
		return nil, nil, invalidExam("unknown exam type %q", req.Type)
	}
	if len(req.Skills) == 0 {
		return nil, nil, invalidExam("exam needs at least one skill")
	}

	seenSkill := make(map[model.SkillType]bool)
	seenOrder := make(map[int]bool)
	total := 0
	drafts := make([]repository.SkillDraft, 0, len(req.Skills))

	for i, sk := range req.Skills {
		skill := model.SkillType(sk.Skill)
		if !skill.Valid() {
			return nil, nil, invalidExam("unknown skill %q", sk.Skill)
		}
		if seenSkill[skill] {
			return nil, nil, invalidExam("skill %s appears more than once", skill)
		}
		seenSkill[skill] = true
		if sk.DurationSeconds <= 0 {
			return nil, nil, invalidExam("skill %s needs a positive duration", skill)
		}

		skillDraft := repository.SkillDraft{Skill: model.ExamSkill{Skill: skill, DurationSeconds: sk.DurationSeconds, OrderIndex: i + 1}}
		for j, sec := range sk.Sections {
			sectionDraft := repository.SectionDraft{Section: model.ExamSection{Title: sec.Title, Passage: sec.Passage, OrderIndex: j + 1}}
			for k, grp := range sec.Groups {
				groupDraft := repository.GroupDraft{Group: model.QuestionGroup{Instructions: grp.Instructions, OrderIndex: k + 1}}
				for _, q := range grp.Questions {
					question, err := buildQuestion(q)
					if err != nil {
						return nil, nil, err
					}
					if seenOrder[q.OrderIndex] {
						return nil, nil, invalidExam("duplicate order_index %d", q.OrderIndex)
					}
					seenOrder[q.OrderIndex] = true
					total++
					groupDraft.Questions = append(groupDraft.Questions, question)
				}
				sectionDraft.Groups = append(sectionDraft.Groups, groupDraft)
			}
			skillDraft.Sections = append(skillDraft.Sections, sectionDraft)
		}
		drafts = append(drafts, skillDraft)
	}

	if total == 0 {
		return nil, nil, invalidExam("exam has no questions")
	}
	for i := 1; i <= total; i++ {
		if !seenOrder[i] {
			return nil, nil, invalidExam("order_index must run from 1 to %d, %d is missing", total, i)
		}
	}

	exam := &model.Exam{
		Title:           strings.TrimSpace(req.Title),
		Description:     req.Description,
		Type:            examType,
		DurationSeconds: req.DurationSeconds,
	}
	return exam, drafts, nil
}

func buildQuestion(q dto.QuestionImportDTO) (model.Question, error) {
	qType := model.QuestionType(q.Type)
	if !KnownQuestionType(qType) {
		return model.Question{}, invalidExam("question %d has unknown type %q", q.OrderIndex, q.Type)
	}
	if q.Points <= 0 {
		return model.Question{}, invalidExam("question %d needs positive points", q.OrderIndex)
	}
	if !qType.RequiresManualGrading() && strings.TrimSpace(q.CorrectAnswer) == "" {
		return model.Question{}, invalidExam("question %d of type %s needs a correct answer", q.OrderIndex, qType)
	}
	if (qType == model.QuestionMultipleChoice || qType == model.QuestionDropDown) && len(q.Options) > 0 {
		options := toSet(q.Options)
		for _, key := range splitKey(q.CorrectAnswer) {
			if _, ok := options[key]; !ok {
				return model.Question{}, invalidExam("question %d: correct answer %q is not one of its options", q.OrderIndex, key)
			}
		}
	}
	return model.Question{
		OrderIndex:    q.OrderIndex,
		Type:          qType,
		Prompt:        q.Prompt,
		Options:       q.Options,
		CorrectAnswer: strings.TrimSpace(q.CorrectAnswer),
		Alternatives:  q.Alternatives,
		Points:        q.Points,
	}, nil
}
