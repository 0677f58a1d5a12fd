package service

import (
	"context"
	"io"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/gema-assessment-api/internal/events"
	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/internal/repository"
	"github.com/noah-isme/gema-assessment-api/internal/viewer"
)

var (
	lecturer  = viewer.New(1, "lecturer", "lecturer@example.com")
	student   = viewer.New(42, "student", "student@example.com")
	classmate = viewer.New(43, "student", "classmate@example.com")
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Course{},
		&models.Question{},
		&models.QuestionSet{},
		&models.QuestionSetItem{},
		&models.Assignment{},
		&models.AssignmentQuestion{},
		&models.AssignmentChoice{},
		&models.Submission{},
		&models.SubmissionAnswer{},
		&models.SubmissionGradeHistory{},
		&models.ActivityLog{},
	))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// testEnv wires every service against one sqlite database.
type testEnv struct {
	db          *gorm.DB
	questions   repository.QuestionRepository
	sets        repository.QuestionSetRepository
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	activity    ActivityService
	expander    *QuestionExpander
	events      *events.Recorder

	courseService      CourseService
	questionService    QuestionService
	questionSetService QuestionSetService
	assignmentService  AssignmentService
	inlineService      AssignmentQuestionService
	submissionService  SubmissionService
}

func newTestEnv(t *testing.T, cache *redis.Client) *testEnv {
	t.Helper()

	db := newTestDB(t)
	validate := validator.New(validator.WithRequiredStructEnabled())
	log := testLogger()

	env := &testEnv{
		db:          db,
		questions:   repository.NewQuestionRepository(db),
		sets:        repository.NewQuestionSetRepository(db),
		assignments: repository.NewAssignmentRepository(db),
		submissions: repository.NewSubmissionRepository(db),
		activity:    NewActivityService(repository.NewActivityLogRepository(db), log),
		events:      &events.Recorder{},
	}
	env.expander = NewQuestionExpander(env.questions, env.sets, cache, 0, log)

	attachments := NewAttachmentStore(&stubUploader{}, 5, log)
	grader := NewAutoGrader(env.questions, log)

	env.courseService = NewCourseService(repository.NewCourseRepository(db), validate, env.activity, log)
	env.questionService = NewQuestionService(env.questions, env.expander, validate, env.activity, log)
	env.questionSetService = NewQuestionSetService(env.sets, env.expander, validate, env.activity, log)
	env.assignmentService = NewAssignmentService(env.assignments, env.sets, env.expander, attachments, validate, env.activity, log)
	env.inlineService = NewAssignmentQuestionService(repository.NewAssignmentQuestionRepository(db), env.assignments, validate, env.activity, log)
	env.submissionService = NewSubmissionService(env.submissions, env.assignments, grader, attachments, env.events, validate, env.activity, log)
	return env
}

func (e *testEnv) seedQuestion(t *testing.T, text string, marks int, answer *string) models.Question {
	t.Helper()

	question := models.Question{
		Type:          models.QuestionTypeShortAnswer,
		Text:          text,
		Marks:         marks,
		CorrectAnswer: answer,
		CreatedBy:     lecturer.ID,
	}
	require.NoError(t, e.questions.Create(context.Background(), &question))
	return question
}

func (e *testEnv) seedSet(t *testing.T, title string, questionIDs ...uint) models.QuestionSet {
	t.Helper()

	set := models.QuestionSet{Title: title, CreatedBy: lecturer.ID}
	require.NoError(t, e.sets.Create(context.Background(), &set, questionIDs))
	return set
}

func (e *testEnv) seedAssignment(t *testing.T, setID *uint) models.Assignment {
	t.Helper()

	assignment := models.Assignment{
		Title:         "Week 1",
		QuestionSetID: setID,
		Attachments:   models.EncodeAttachments(nil),
		CreatedBy:     lecturer.ID,
	}
	require.NoError(t, e.assignments.Create(context.Background(), &assignment))
	return assignment
}

func strPtr(v string) *string {
	return &v
}

func intPtr(v int) *int {
	return &v
}

func uintPtr(v uint) *uint {
	return &v
}
