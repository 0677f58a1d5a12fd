package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-assessment-api/internal/access"
	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/events"
	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/internal/viewer"
)

func submissionPayload(assignmentID uint, data string) dto.SubmissionCreateRequest {
	return dto.SubmissionCreateRequest{
		AssignmentID:   assignmentID,
		SubmissionData: json.RawMessage(data),
	}
}

func TestSubmissionAttributedToStudent(t *testing.T) {
	env := newTestEnv(t, nil)
	assignment := env.seedAssignment(t, nil)

	payload := submissionPayload(assignment.ID, `"my essay"`)
	payload.StudentID = uintPtr(classmate.ID)

	created, err := env.submissionService.Create(context.Background(), payload, nil, student)
	require.NoError(t, err)
	require.NotNil(t, created.StudentID)
	require.Equal(t, student.ID, *created.StudentID)
	require.Equal(t, "my essay", created.SubmissionData)
	require.Equal(t, models.SubmissionStatusSubmitted, created.Status)
	require.False(t, created.Graded)
	require.Nil(t, created.Marks)
}

func TestSubmissionByLecturerHonoursExplicitStudent(t *testing.T) {
	env := newTestEnv(t, nil)
	assignment := env.seedAssignment(t, nil)

	payload := submissionPayload(assignment.ID, `{"text":"on behalf"}`)
	payload.StudentID = uintPtr(classmate.ID)
	created, err := env.submissionService.Create(context.Background(), payload, nil, lecturer)
	require.NoError(t, err)
	require.Equal(t, classmate.ID, *created.StudentID)

	created, err = env.submissionService.Create(context.Background(), submissionPayload(assignment.ID, `{}`), nil, lecturer)
	require.NoError(t, err)
	require.Nil(t, created.StudentID)
}

func TestSubmissionRequiresAuthentication(t *testing.T) {
	env := newTestEnv(t, nil)
	assignment := env.seedAssignment(t, nil)

	_, err := env.submissionService.Create(context.Background(), submissionPayload(assignment.ID, `"x"`), nil, viewer.Anonymous())
	require.ErrorIs(t, err, access.ErrUnauthenticated)
}

func TestSubmissionUnknownAssignment(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.submissionService.Create(context.Background(), submissionPayload(404, `"x"`), nil, student)
	require.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestSubmissionAutoGraded(t *testing.T) {
	env := newTestEnv(t, nil)
	qa := env.seedQuestion(t, "A?", 2, strPtr("A"))
	qb := env.seedQuestion(t, "B?", 3, strPtr("Y"))
	set := env.seedSet(t, "Quiz", qa.ID, qb.ID)
	assignment := env.seedAssignment(t, &set.ID)

	data, err := json.Marshal(map[string]interface{}{
		"text":    "quiz",
		"answers": map[string]string{uintKey(qa.ID): "A", uintKey(qb.ID): "X"},
	})
	require.NoError(t, err)

	created, err := env.submissionService.Create(context.Background(), submissionPayload(assignment.ID, string(data)), nil, student)
	require.NoError(t, err)
	require.True(t, created.Graded)
	require.Equal(t, 2, *created.Marks)
	require.Equal(t, models.SubmissionStatusGraded, created.Status)

	recorded := env.events.Events()
	require.Len(t, recorded, 1)
	require.Equal(t, events.SubmissionCreated, recorded[0].Event)
	require.True(t, recorded[0].Graded)
	require.Equal(t, created.ID, recorded[0].SubmissionID)
}

func TestSubmissionPastDueIsLate(t *testing.T) {
	env := newTestEnv(t, nil)
	due := time.Now().Add(-time.Hour)
	assignment := models.Assignment{Title: "Overdue", DueDate: &due, Attachments: models.EncodeAttachments(nil), CreatedBy: lecturer.ID}
	require.NoError(t, env.assignments.Create(context.Background(), &assignment))

	created, err := env.submissionService.Create(context.Background(), submissionPayload(assignment.ID, `"late work"`), nil, student)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusLate, created.Status)
}

func TestSubmissionsAppend(t *testing.T) {
	env := newTestEnv(t, nil)
	assignment := env.seedAssignment(t, nil)
	ctx := context.Background()

	first, err := env.submissionService.Create(ctx, submissionPayload(assignment.ID, `"v1"`), nil, student)
	require.NoError(t, err)
	second, err := env.submissionService.Create(ctx, submissionPayload(assignment.ID, `"v2"`), nil, student)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	listed, err := env.submissionService.List(ctx, dto.SubmissionFilter{AssignmentID: &assignment.ID}, student)
	require.NoError(t, err)
	require.Len(t, listed, 2)
}

func TestSubmissionStudentsOnlySeeTheirOwn(t *testing.T) {
	env := newTestEnv(t, nil)
	assignment := env.seedAssignment(t, nil)
	ctx := context.Background()

	mine, err := env.submissionService.Create(ctx, submissionPayload(assignment.ID, `"mine"`), nil, student)
	require.NoError(t, err)
	theirs, err := env.submissionService.Create(ctx, submissionPayload(assignment.ID, `"theirs"`), nil, classmate)
	require.NoError(t, err)

	listed, err := env.submissionService.List(ctx, dto.SubmissionFilter{StudentID: uintPtr(classmate.ID)}, student)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, mine.ID, listed[0].ID)

	_, err = env.submissionService.Get(ctx, theirs.ID, student)
	require.ErrorIs(t, err, ErrSubmissionNotFound)

	all, err := env.submissionService.List(ctx, dto.SubmissionFilter{}, lecturer)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestGradeOverridesAutoScoreAndRecordsHistory(t *testing.T) {
	env := newTestEnv(t, nil)
	qa := env.seedQuestion(t, "A?", 2, strPtr("A"))
	assignment := env.seedAssignment(t, nil)
	ctx := context.Background()

	created, err := env.submissionService.Create(ctx, submissionPayload(assignment.ID, `{"answers":{"`+uintKey(qa.ID)+`":"A"}}`), nil, student)
	require.NoError(t, err)
	require.Equal(t, 2, *created.Marks)

	graded, err := env.submissionService.Grade(ctx, created.ID, dto.SubmissionGradeRequest{
		Marks:    intPtr(7),
		Feedback: "<b>Good</b> work",
	}, lecturer)
	require.NoError(t, err)
	require.True(t, graded.Graded)
	require.Equal(t, 7, *graded.Marks)
	require.Equal(t, "Good work", graded.Feedback)
	require.Equal(t, models.SubmissionStatusGraded, graded.Status)
	require.Equal(t, lecturer.ID, *graded.GradedBy)
	require.NotNil(t, graded.GradedAt)

	stored, err := env.submissionService.Get(ctx, created.ID, lecturer)
	require.NoError(t, err)
	require.Len(t, stored.History, 1)
	require.Equal(t, 7, stored.History[0].Marks)

	recorded := env.events.Events()
	require.Equal(t, events.SubmissionGraded, recorded[len(recorded)-1].Event)
}

func TestGradeRequiresLecturer(t *testing.T) {
	env := newTestEnv(t, nil)
	assignment := env.seedAssignment(t, nil)
	ctx := context.Background()

	created, err := env.submissionService.Create(ctx, submissionPayload(assignment.ID, `"x"`), nil, student)
	require.NoError(t, err)

	_, err = env.submissionService.Grade(ctx, created.ID, dto.SubmissionGradeRequest{Marks: intPtr(5)}, student)
	require.ErrorIs(t, err, access.ErrForbidden)

	_, err = env.submissionService.Revert(ctx, created.ID, viewer.Anonymous())
	require.ErrorIs(t, err, access.ErrUnauthenticated)
}

func TestGradeUnknownSubmission(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.submissionService.Grade(context.Background(), 999, dto.SubmissionGradeRequest{Marks: intPtr(1)}, lecturer)
	require.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestRevertClearsGrading(t *testing.T) {
	env := newTestEnv(t, nil)
	assignment := env.seedAssignment(t, nil)
	ctx := context.Background()

	created, err := env.submissionService.Create(ctx, submissionPayload(assignment.ID, `"x"`), nil, student)
	require.NoError(t, err)
	_, err = env.submissionService.Grade(ctx, created.ID, dto.SubmissionGradeRequest{Marks: intPtr(9), Feedback: "ok"}, lecturer)
	require.NoError(t, err)

	reverted, err := env.submissionService.Revert(ctx, created.ID, lecturer)
	require.NoError(t, err)
	require.False(t, reverted.Graded)
	require.Nil(t, reverted.Marks)
	require.Empty(t, reverted.Feedback)
	require.Nil(t, reverted.GradedBy)
	require.Nil(t, reverted.GradedAt)
	require.Equal(t, models.SubmissionStatusSubmitted, reverted.Status)

	stored, err := env.submissionService.Get(ctx, created.ID, lecturer)
	require.NoError(t, err)
	require.False(t, stored.Graded)
	require.Nil(t, stored.Marks)

	recorded := env.events.Events()
	require.Equal(t, events.SubmissionReverted, recorded[len(recorded)-1].Event)
}

func TestBulkGradeReportsEachItem(t *testing.T) {
	env := newTestEnv(t, nil)
	assignment := env.seedAssignment(t, nil)
	ctx := context.Background()

	first, err := env.submissionService.Create(ctx, submissionPayload(assignment.ID, `"a"`), nil, student)
	require.NoError(t, err)
	second, err := env.submissionService.Create(ctx, submissionPayload(assignment.ID, `"b"`), nil, classmate)
	require.NoError(t, err)

	results, err := env.submissionService.BulkGrade(ctx, dto.BulkGradeRequest{Items: []dto.BulkGradeItemRequest{
		{SubmissionID: first.ID, Marks: intPtr(4)},
		{SubmissionID: 9999, Marks: intPtr(1)},
		{SubmissionID: second.ID, Marks: intPtr(6), Feedback: "fine"},
	}}, lecturer)
	require.NoError(t, err)
	require.Len(t, results, 3)

	require.Equal(t, first.ID, results[0].SubmissionID)
	require.True(t, results[0].Success)
	require.Equal(t, 4, *results[0].Submission.Marks)

	require.Equal(t, uint(9999), results[1].SubmissionID)
	require.False(t, results[1].Success)
	require.NotEmpty(t, results[1].Error)
	require.Nil(t, results[1].Submission)

	require.True(t, results[2].Success)
	require.Equal(t, 6, *results[2].Submission.Marks)

	stored, err := env.submissionService.Get(ctx, first.ID, lecturer)
	require.NoError(t, err)
	require.True(t, stored.Graded)
}

func TestBulkGradeRequiresLecturer(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.submissionService.BulkGrade(context.Background(), dto.BulkGradeRequest{Items: []dto.BulkGradeItemRequest{
		{SubmissionID: 1, Marks: intPtr(1)},
	}}, student)
	require.ErrorIs(t, err, access.ErrForbidden)
}

func TestGradeAnswer(t *testing.T) {
	env := newTestEnv(t, nil)
	assignment := env.seedAssignment(t, nil)
	ctx := context.Background()

	payload := submissionPayload(assignment.ID, `"see answers"`)
	payload.AnswerItems = []dto.SubmissionAnswerRequest{{QuestionID: 3, AnswerText: " Paris "}}
	created, err := env.submissionService.Create(ctx, payload, nil, student)
	require.NoError(t, err)
	require.Len(t, created.Answers, 1)
	require.Equal(t, "Paris", created.Answers[0].AnswerText)

	answer, err := env.submissionService.GradeAnswer(ctx, created.Answers[0].ID, dto.SubmissionAnswerGradeRequest{PointsAwarded: intPtr(3)}, lecturer)
	require.NoError(t, err)
	require.Equal(t, 3, *answer.PointsAwarded)

	stored, err := env.submissionService.Get(ctx, created.ID, lecturer)
	require.NoError(t, err)
	require.Equal(t, 3, *stored.Answers[0].PointsAwarded)
	require.Nil(t, stored.Marks)

	_, err = env.submissionService.GradeAnswer(ctx, 777, dto.SubmissionAnswerGradeRequest{PointsAwarded: intPtr(1)}, lecturer)
	require.ErrorIs(t, err, ErrSubmissionAnswerNotFound)
}

func TestNormalizeSubmissionData(t *testing.T) {
	text, err := normalizeSubmissionData(json.RawMessage(`"hello"`))
	require.NoError(t, err)
	require.Equal(t, "hello", text)

	text, err = normalizeSubmissionData(json.RawMessage("{ \"answers\" : { \"1\" : \"A\" } }"))
	require.NoError(t, err)
	require.Equal(t, `{"answers":{"1":"A"}}`, text)

	text, err = normalizeSubmissionData(nil)
	require.NoError(t, err)
	require.Empty(t, text)

	_, err = normalizeSubmissionData(json.RawMessage(`{broken`))
	require.ErrorIs(t, err, ErrInvalidPayload)
}

func uintKey(id uint) string {
	raw, _ := json.Marshal(id)
	return string(raw)
}

func TestSubmissionWithTrailingTextIsNotGraded(t *testing.T) {
	env := newTestEnv(t, nil)
	qa := env.seedQuestion(t, "A?", 2, strPtr("A"))
	set := env.seedSet(t, "Quiz", qa.ID)
	assignment := env.seedAssignment(t, &set.ID)

	text := `{"answers":{"` + uintKey(qa.ID) + `":"A"}} this is not json`
	encoded, err := json.Marshal(text)
	require.NoError(t, err)

	created, err := env.submissionService.Create(context.Background(), submissionPayload(assignment.ID, string(encoded)), nil, student)
	require.NoError(t, err)
	require.Equal(t, text, created.SubmissionData)
	require.False(t, created.Graded)
	require.Nil(t, created.Marks)
	require.Equal(t, models.SubmissionStatusSubmitted, created.Status)
}

func TestSubmissionNamedStudentRequiresLecturer(t *testing.T) {
	env := newTestEnv(t, nil)
	assignment := env.seedAssignment(t, nil)

	payload := submissionPayload(assignment.ID, `{"text":"on behalf"}`)
	payload.StudentID = uintPtr(classmate.ID)

	created, err := env.submissionService.Create(context.Background(), payload, nil, viewer.New(77, "guest", ""))
	require.NoError(t, err)
	require.Nil(t, created.StudentID)
}
