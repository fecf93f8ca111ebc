package service

import (
	"strings"

	"github.com/lshigami/bandscore/internal/model"
)

// Verdict is the outcome of grading one answer against its question.
type Verdict struct {
	State       model.GradeState
	IsCorrect   *bool
	ScoreEarned *float64
}

type gradeFunc func(q *model.Question, a *model.UserAnswer) bool

// graders holds the objective matchers. Manual types are absent on purpose and
// handled by GradeAnswer.
var graders = map[model.QuestionType]gradeFunc{
	model.QuestionMultipleChoice:    gradeOptionSet,
	model.QuestionDropDown:          gradeOptionSet,
	model.QuestionFillInTheBlank:    gradeFillInTheBlank,
	model.QuestionTrueFalseNotGiven: gradeExact,
	model.QuestionMatchingHeadings:  gradeExact,
}

// KnownQuestionType reports whether the grader can handle t.
func KnownQuestionType(t model.QuestionType) bool {
	if t.RequiresManualGrading() {
		return true
	}
	_, ok := graders[t]
	return ok
}

// GradeAnswer grades a (possibly nil) answer. A blank answer is always auto-graded as wrong,
// including for essay and speaking questions. It returns false for an unknown question type.
func GradeAnswer(q *model.Question, a *model.UserAnswer) (Verdict, bool) {
	if !KnownQuestionType(q.Type) {
		return Verdict{}, false
	}
	if a.Blank() {
		return autoVerdict(q, false), true
	}
	if q.Type.RequiresManualGrading() {
		return Verdict{State: model.GradeManualPending}, true
	}
	return autoVerdict(q, graders[q.Type](q, a)), true
}

func autoVerdict(q *model.Question, correct bool) Verdict {
	score := 0.0
	if correct {
		score = q.Points
	}
	return Verdict{State: model.GradeAutoGraded, IsCorrect: &correct, ScoreEarned: &score}
}

func splitKey(key string) []string {
	var parts []string
	for _, p := range strings.Split(key, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}

// gradeOptionSet requires the selected options to equal the key as a set.
func gradeOptionSet(q *model.Question, a *model.UserAnswer) bool {
	selected := toSet(a.SelectedOptions)
	if len(selected) == 0 {
		selected = toSet(splitKey(a.TextAnswer))
	}
	expected := toSet(splitKey(q.CorrectAnswer))
	if len(expected) == 0 || len(selected) != len(expected) {
		return false
	}
	for opt := range expected {
		if _, ok := selected[opt]; !ok {
			return false
		}
	}
	return true
}

func gradeFillInTheBlank(q *model.Question, a *model.UserAnswer) bool {
	given := strings.TrimSpace(a.TextAnswer)
	if given == "" && len(a.SelectedOptions) > 0 {
		given = strings.TrimSpace(a.SelectedOptions[0])
	}
	if given == "" {
		return false
	}
	if strings.EqualFold(given, strings.TrimSpace(q.CorrectAnswer)) {
		return true
	}
	for _, alt := range q.Alternatives {
		if strings.EqualFold(given, strings.TrimSpace(alt)) {
			return true
		}
	}
	return false
}

func gradeExact(q *model.Question, a *model.UserAnswer) bool {
	given := strings.TrimSpace(a.TextAnswer)
	if given == "" && len(a.SelectedOptions) > 0 {
		given = strings.TrimSpace(a.SelectedOptions[0])
	}
	return given != "" && given == strings.TrimSpace(q.CorrectAnswer)
}
