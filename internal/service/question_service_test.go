package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-assessment-api/internal/access"
	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/internal/repository"
	"github.com/noah-isme/gema-assessment-api/internal/viewer"
)

func TestQuestionWritesRequireLecturer(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	payload := dto.QuestionCreateRequest{Type: models.QuestionTypeShortAnswer, QuestionText: "2+2?", Marks: 1}

	_, err := env.questionService.Create(ctx, payload, student)
	require.ErrorIs(t, err, access.ErrForbidden)

	_, err = env.questionService.Create(ctx, payload, viewer.Anonymous())
	require.ErrorIs(t, err, access.ErrUnauthenticated)

	question := env.seedQuestion(t, "existing", 1, nil)
	text := "edited"
	_, err = env.questionService.Update(ctx, question.ID, dto.QuestionUpdateRequest{Text: &text}, student)
	require.ErrorIs(t, err, access.ErrForbidden)
	require.ErrorIs(t, env.questionService.Delete(ctx, question.ID, student), access.ErrForbidden)
}

func TestQuestionCreateAcceptsEitherTextField(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	created, err := env.questionService.Create(ctx, dto.QuestionCreateRequest{
		Type:          models.QuestionTypeMultipleChoice,
		Text:          "Pick one",
		Options:       json.RawMessage(`["A","B"]`),
		CorrectAnswer: strPtr("A"),
		Marks:         2,
	}, lecturer)
	require.NoError(t, err)
	require.Equal(t, "Pick one", created.Text)
	require.Equal(t, []interface{}{"A", "B"}, created.Options)
	require.Equal(t, "A", *created.CorrectAnswer)
	require.True(t, created.AnswerVisible)

	_, err = env.questionService.Create(ctx, dto.QuestionCreateRequest{Type: models.QuestionTypeEssay, Marks: 1}, lecturer)
	var validationErrors validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrors)
}

func TestQuestionOptionsEncodings(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	created, err := env.questionService.Create(ctx, dto.QuestionCreateRequest{
		Type:         models.QuestionTypeMultipleChoice,
		QuestionText: "Encoded",
		Options:      json.RawMessage(`"[\"x\",\"y\"]"`),
	}, lecturer)
	require.NoError(t, err)
	require.Equal(t, []interface{}{"x", "y"}, created.Options)

	_, err = env.questionService.Create(ctx, dto.QuestionCreateRequest{
		Type:         models.QuestionTypeMultipleChoice,
		QuestionText: "Broken",
		Options:      json.RawMessage(`[1,`),
	}, lecturer)
	require.ErrorIs(t, err, ErrInvalidPayload)

	cleared, err := env.questionService.Update(ctx, created.ID, dto.QuestionUpdateRequest{Options: json.RawMessage(`null`)}, lecturer)
	require.NoError(t, err)
	require.Nil(t, cleared.Options)
}

func TestQuestionPartialUpdate(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	question := env.seedQuestion(t, "Capital of France?", 3, strPtr("Paris"))

	var payload dto.QuestionUpdateRequest
	require.NoError(t, json.Unmarshal([]byte(`{"marks":5,"correct_answer":null}`), &payload))

	updated, err := env.questionService.Update(ctx, question.ID, payload, lecturer)
	require.NoError(t, err)
	require.Equal(t, 5, updated.Marks)
	require.Equal(t, "Capital of France?", updated.Text)
	require.Nil(t, updated.CorrectAnswer)

	raw, err := json.Marshal(updated)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"correct_answer":null`)

	_, err = env.questionService.Update(ctx, 999, payload, lecturer)
	require.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestQuestionReadsAreFiltered(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	question := env.seedQuestion(t, "secret", 1, strPtr("key"))

	asStudent, err := env.questionService.Get(ctx, question.ID, student)
	require.NoError(t, err)
	require.Nil(t, asStudent.CorrectAnswer)
	raw, err := json.Marshal(asStudent)
	require.NoError(t, err)
	require.NotContains(t, string(raw), "correct_answer")

	listed, err := env.questionService.List(ctx, dto.QuestionFilter{}, viewer.Anonymous())
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.False(t, listed[0].AnswerVisible)

	listed, err = env.questionService.List(ctx, dto.QuestionFilter{}, lecturer)
	require.NoError(t, err)
	require.Equal(t, "key", *listed[0].CorrectAnswer)
}

func TestQuestionDeleteLeavesStaleSetReference(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	q1 := env.seedQuestion(t, "keep", 1, nil)
	q2 := env.seedQuestion(t, "drop", 1, nil)
	set := env.seedSet(t, "Set", q1.ID, q2.ID)

	require.NoError(t, env.questionService.Delete(ctx, q2.ID, lecturer))
	require.ErrorIs(t, env.questionService.Delete(ctx, q2.ID, lecturer), ErrQuestionNotFound)

	stored, err := env.sets.GetByID(ctx, set.ID)
	require.NoError(t, err)
	require.Equal(t, []uint{q1.ID, q2.ID}, stored.QuestionIDs())

	expanded, err := env.questionSetService.Get(ctx, set.ID, lecturer)
	require.NoError(t, err)
	require.Len(t, expanded.Questions, 1)
}

func TestQuestionTextIsSanitised(t *testing.T) {
	env := newTestEnv(t, nil)

	created, err := env.questionService.Create(context.Background(), dto.QuestionCreateRequest{
		Type:         models.QuestionTypeEssay,
		QuestionText: `<p>Discuss</p><script>alert("x")</script>`,
	}, lecturer)
	require.NoError(t, err)
	require.Equal(t, "<p>Discuss</p>", created.Text)
}

// interleavedQuestionRepo runs beforeDelete just ahead of the row removal.
type interleavedQuestionRepo struct {
	repository.QuestionRepository
	beforeDelete func()
}

func (r interleavedQuestionRepo) Delete(ctx context.Context, id uint) error {
	r.beforeDelete()
	return r.QuestionRepository.Delete(ctx, id)
}

func TestQuestionDeleteDropsExpansionCachedMeanwhile(t *testing.T) {
	_, cache := newTestRedis(t)
	env := newTestEnv(t, cache)
	ctx := context.Background()
	keep := env.seedQuestion(t, "keep", 1, nil)
	drop := env.seedQuestion(t, "drop", 1, nil)
	set := env.seedSet(t, "Set", keep.ID, drop.ID)

	repo := interleavedQuestionRepo{
		QuestionRepository: env.questions,
		beforeDelete: func() {
			expanded, err := env.questionSetService.Get(ctx, set.ID, lecturer)
			require.NoError(t, err)
			require.Len(t, expanded.Questions, 2)
		},
	}
	svc := NewQuestionService(repo, env.expander, validator.New(), env.activity, testLogger())

	require.NoError(t, svc.Delete(ctx, drop.ID, lecturer))

	expanded, err := env.questionSetService.Get(ctx, set.ID, lecturer)
	require.NoError(t, err)
	require.Equal(t, []uint{keep.ID}, questionIDs(expanded.Questions))
}
