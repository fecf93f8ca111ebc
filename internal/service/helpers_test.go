package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/lshigami/bandscore/database"
	"github.com/lshigami/bandscore/internal/dto"
	"github.com/lshigami/bandscore/internal/model"
	"github.com/lshigami/bandscore/internal/repository"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// countingEngine records how many times scoring actually ran.
type countingEngine struct {
	ScoringEngine
	calls atomic.Int32
}

func (e *countingEngine) Score(ctx context.Context, attempt *model.TestAttempt, members []model.AttemptQuestion, answers []model.UserAnswer) (*ScoringResult, error) {
	e.calls.Add(1)
	return e.ScoringEngine.Score(ctx, attempt, members, answers)
}

type harness struct {
	db          *gorm.DB
	clock       *fakeClock
	examRepo    repository.ExamRepository
	attemptRepo repository.TestAttemptRepository
	answerRepo  repository.UserAnswerRepository
	engine      *countingEngine
	attempts    AttemptService
	recorder    AnswerRecorder
	grading     ManualGradingService
	importer    ExamImportService
	catalog     ExamCatalogService
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// a single connection keeps the in-memory database alive for the whole test
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := newTestDB(t)
	h := &harness{
		db:          db,
		clock:       newFakeClock(),
		examRepo:    repository.NewExamRepository(db),
		attemptRepo: repository.NewTestAttemptRepository(db),
		answerRepo:  repository.NewUserAnswerRepository(db),
	}
	h.engine = &countingEngine{ScoringEngine: NewScoringEngine(h.examRepo, NewScoreConverterService())}
	stats := NewStatisticsCache(h.attemptRepo)
	locks := NewAttemptLocks()
	h.attempts = NewAttemptService(db, h.examRepo, h.attemptRepo, h.answerRepo, h.engine, stats, locks, h.clock)
	h.recorder = NewAnswerRecorder(h.attempts, h.attemptRepo, h.answerRepo, locks)
	h.grading = NewManualGradingService(db, h.examRepo, h.attemptRepo, h.answerRepo, h.engine, stats, locks, h.clock)
	h.importer = NewExamImportService(h.examRepo)
	h.catalog = NewExamCatalogService(h.examRepo)
	return h
}

const (
	listeningSeconds = 1800
	readingSeconds   = 3600
	writingSeconds   = 3600
)

// sampleExam has Listening (orders 1-2), Reading (3-5) and Writing (6).
func sampleExam(title string) dto.ExamImportDTO {
	return dto.ExamImportDTO{
		Title: title,
		Type:  string(model.ExamTypeIELTSAcademic),
		Skills: []dto.SkillImportDTO{
			{
				Skill:           string(model.SkillListening),
				DurationSeconds: listeningSeconds,
				Sections: []dto.SectionImportDTO{{
					Title: "Part 1",
					Groups: []dto.QuestionGroupImportDTO{{
						Instructions: "Choose the correct letter.",
						Questions: []dto.QuestionImportDTO{
							{OrderIndex: 1, Type: string(model.QuestionMultipleChoice), Prompt: "Where does the speaker work?", Options: []string{"A", "B", "C"}, CorrectAnswer: "B", Points: 1},
							{OrderIndex: 2, Type: string(model.QuestionMultipleChoice), Prompt: "Which two facilities are open?", Options: []string{"A", "B", "C", "D"}, CorrectAnswer: "A,C", Points: 1},
						},
					}},
				}},
			},
			{
				Skill:           string(model.SkillReading),
				DurationSeconds: readingSeconds,
				Sections: []dto.SectionImportDTO{{
					Title:   "Passage 1",
					Passage: "The capital of France is Paris.",
					Groups: []dto.QuestionGroupImportDTO{{
						Questions: []dto.QuestionImportDTO{
							{OrderIndex: 3, Type: string(model.QuestionFillInTheBlank), Prompt: "The capital of France is ____.", CorrectAnswer: "Paris", Alternatives: []string{"City of Paris"}, Points: 1},
							{OrderIndex: 4, Type: string(model.QuestionTrueFalseNotGiven), Prompt: "Paris is the largest city in Europe.", CorrectAnswer: "NOT GIVEN", Points: 1},
							{OrderIndex: 5, Type: string(model.QuestionMatchingHeadings), Prompt: "Paragraph A", Options: []string{"i", "ii", "iii", "iv"}, CorrectAnswer: "iv", Points: 1},
						},
					}},
				}},
			},
			{
				Skill:           string(model.SkillWriting),
				DurationSeconds: writingSeconds,
				Sections: []dto.SectionImportDTO{{
					Title: "Task 2",
					Groups: []dto.QuestionGroupImportDTO{{
						Questions: []dto.QuestionImportDTO{
							{OrderIndex: 6, Type: string(model.QuestionEssay), Prompt: "Discuss both views.", Points: 9},
						},
					}},
				}},
			},
		},
	}
}

// correctAnswers holds a correct payload per order index of sampleExam.
var correctAnswers = map[int]dto.AnswerPayloadDTO{
	1: {SelectedOptions: []string{"B"}},
	2: {SelectedOptions: []string{"C", "A"}},
	3: {TextAnswer: " paris "},
	4: {TextAnswer: "NOT GIVEN"},
	5: {TextAnswer: "iv"},
	6: {TextAnswer: "Some people believe that..."},
}

type seededExam struct {
	examID     uint
	questionID map[int]uint // by order index
}

func (h *harness) seed(t *testing.T, req dto.ExamImportDTO) seededExam {
	t.Helper()
	exam, err := h.importer.ImportExam(context.Background(), req)
	require.NoError(t, err)
	tree, err := h.examRepo.FindTree(context.Background(), exam.ID)
	require.NoError(t, err)
	s := seededExam{examID: exam.ID, questionID: make(map[int]uint)}
	for _, q := range tree.Questions {
		s.questionID[q.OrderIndex] = q.ID
	}
	return s
}

func (h *harness) answerAll(t *testing.T, attemptID uint, exam seededExam, orders ...int) {
	t.Helper()
	for _, order := range orders {
		require.NoError(t, h.recorder.RecordAnswer(context.Background(), attemptID, exam.questionID[order], correctAnswers[order]))
	}
}

func (h *harness) loadAttempt(t *testing.T, id uint) *model.TestAttempt {
	t.Helper()
	attempt, err := h.attemptRepo.FindByID(context.Background(), nil, id)
	require.NoError(t, err)
	return attempt
}

func ptr[T any](v T) *T {
	return &v
}
