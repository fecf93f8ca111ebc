package service

import (
	"context"
	"fmt"

	"github.com/lshigami/bandscore/internal/model"
	"github.com/lshigami/bandscore/internal/repository"
	"github.com/rs/zerolog/log"
)

// AnswerGrade is the graded state of one attempt question.
type AnswerGrade struct {
	QuestionID  uint
	Skill       model.SkillType
	OrderIndex  int
	Points      float64
	State       model.GradeState
	IsCorrect   *bool
	ScoreEarned *float64
}

type SkillResult struct {
	Skill   model.SkillType
	Raw     float64
	Max     float64
	Pending int
	Score   *float64 // nil while any answer of the skill awaits a grader
}

type ScoringResult struct {
	Grades               []AnswerGrade
	Skills               []SkillResult
	OverallScore         *float64
	CorrectQuestionCount int
}

// PendingCount is the number of answers still waiting for manual grading.
func (r *ScoringResult) PendingCount() int {
	n := 0
	for _, s := range r.Skills {
		n += s.Pending
	}
	return n
}

type ScoringEngine interface {
	// Score grades every question of the attempt. It reads content but writes nothing.
	Score(ctx context.Context, attempt *model.TestAttempt, members []model.AttemptQuestion, answers []model.UserAnswer) (*ScoringResult, error)
	// Aggregate rebuilds skill and overall scores from grades that already exist.
	Aggregate(examType model.ExamType, grades []AnswerGrade) *ScoringResult
}

type scoringEngine struct {
	examRepo  repository.ExamRepository
	converter ScoreConverterService
}

func NewScoringEngine(examRepo repository.ExamRepository, converter ScoreConverterService) ScoringEngine {
	return &scoringEngine{examRepo: examRepo, converter: converter}
}

func (e *scoringEngine) Score(ctx context.Context, attempt *model.TestAttempt, members []model.AttemptQuestion, answers []model.UserAnswer) (*ScoringResult, error) {
	questions, err := e.questionIndex(ctx, members)
	if err != nil {
		return nil, fmt.Errorf("loading questions for attempt %d: %w", attempt.ID, err)
	}
	answerByQuestion := make(map[uint]*model.UserAnswer, len(answers))
	for i := range answers {
		answerByQuestion[answers[i].QuestionID] = &answers[i]
	}

	grades := make([]AnswerGrade, 0, len(members))
	for _, m := range members {
		q, ok := questions[m.QuestionID]
		if !ok {
			return nil, e.integrityError(attempt.ID, m.QuestionID, "question missing from catalog")
		}
		verdict, ok := GradeAnswer(q, answerByQuestion[m.QuestionID])
		if !ok {
			return nil, e.integrityError(attempt.ID, m.QuestionID, fmt.Sprintf("unknown question type %q", q.Type))
		}
		grades = append(grades, AnswerGrade{
			QuestionID:  m.QuestionID,
			Skill:       m.Skill,
			OrderIndex:  m.OrderIndex,
			Points:      q.Points,
			State:       verdict.State,
			IsCorrect:   verdict.IsCorrect,
			ScoreEarned: verdict.ScoreEarned,
		})
	}
	return e.Aggregate(attempt.ExamType, grades), nil
}

func (e *scoringEngine) questionIndex(ctx context.Context, members []model.AttemptQuestion) (map[uint]*model.Question, error) {
	ids := make([]uint, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.QuestionID)
	}
	questions, err := e.examRepo.FindQuestionsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	index := make(map[uint]*model.Question, len(questions))
	for i := range questions {
		index[questions[i].ID] = &questions[i]
	}
	return index, nil
}

func (e *scoringEngine) integrityError(attemptID, questionID uint, reason string) error {
	err := &DataIntegrityError{AttemptID: attemptID, QuestionID: questionID, Reason: reason}
	log.Error().Err(err).Uint("attemptID", attemptID).Uint("questionID", questionID).Msg("Scoring aborted")
	return err
}

func (e *scoringEngine) Aggregate(examType model.ExamType, grades []AnswerGrade) *ScoringResult {
	result := &ScoringResult{Grades: grades}
	bySkill := make(map[model.SkillType]*SkillResult)
	for _, g := range grades {
		s, ok := bySkill[g.Skill]
		if !ok {
			s = &SkillResult{Skill: g.Skill}
			bySkill[g.Skill] = s
		}
		s.Max += g.Points
		switch {
		case g.State == model.GradeManualPending:
			s.Pending++
		case g.ScoreEarned != nil:
			s.Raw += *g.ScoreEarned
		}
		if g.IsCorrect != nil && *g.IsCorrect {
			result.CorrectQuestionCount++
		}
	}

	var scored []float64
	complete := len(bySkill) > 0
	for _, skill := range model.AllSkills {
		s, ok := bySkill[skill]
		if !ok {
			continue
		}
		if s.Pending == 0 {
			score := e.converter.SkillScore(examType, skill, s.Raw, s.Max)
			s.Score = &score
			scored = append(scored, score)
		} else {
			complete = false
		}
		result.Skills = append(result.Skills, *s)
	}
	if complete {
		overall := e.converter.Overall(examType, scored)
		result.OverallScore = &overall
	}
	return result
}
