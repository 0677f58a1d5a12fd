package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/internal/viewer"
)

func questionIDs(questions []dto.QuestionResponse) []uint {
	ids := make([]uint, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
	}
	return ids
}

func TestExpandQuestionSetPreservesDeclaredOrder(t *testing.T) {
	env := newTestEnv(t, nil)
	q1 := env.seedQuestion(t, "first", 1, strPtr("a"))
	q2 := env.seedQuestion(t, "second", 1, strPtr("b"))
	q3 := env.seedQuestion(t, "third", 1, strPtr("c"))
	set := env.seedSet(t, "Ordered", q3.ID, q1.ID, q2.ID)

	expanded, err := env.expander.ExpandQuestionSet(context.Background(), set, lecturer)
	require.NoError(t, err)
	require.Equal(t, []uint{q3.ID, q1.ID, q2.ID}, questionIDs(expanded.Questions))
}

func TestExpandQuestionSetSkipsStaleReferences(t *testing.T) {
	env := newTestEnv(t, nil)
	q1 := env.seedQuestion(t, "first", 1, nil)
	q2 := env.seedQuestion(t, "second", 1, nil)
	q3 := env.seedQuestion(t, "third", 1, nil)
	set := env.seedSet(t, "Stale", q1.ID, q2.ID, q3.ID)

	require.NoError(t, env.questions.Delete(context.Background(), q2.ID))

	stored, err := env.sets.GetByID(context.Background(), set.ID)
	require.NoError(t, err)

	expanded, err := env.expander.ExpandQuestionSet(context.Background(), stored, student)
	require.NoError(t, err)
	require.Equal(t, []uint{q1.ID, q3.ID}, questionIDs(expanded.Questions))
}

func TestExpandQuestionSetAppliesVisibility(t *testing.T) {
	env := newTestEnv(t, nil)
	q1 := env.seedQuestion(t, "2 + 2", 2, strPtr("4"))
	q2 := env.seedQuestion(t, "open", 3, nil)
	set := env.seedSet(t, "Quiz", q1.ID, q2.ID)

	asLecturer, err := env.expander.ExpandQuestionSet(context.Background(), set, lecturer)
	require.NoError(t, err)
	raw, err := json.Marshal(asLecturer)
	require.NoError(t, err)
	var decoded struct {
		Questions []map[string]interface{} `json:"questions"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded.Questions, 2)
	for _, q := range decoded.Questions {
		require.Contains(t, q, "correct_answer")
		require.Contains(t, q, "options")
	}
	require.Equal(t, "4", decoded.Questions[0]["correct_answer"])
	require.Nil(t, decoded.Questions[1]["correct_answer"])

	for _, v := range []viewer.Viewer{student, viewer.Anonymous()} {
		restricted, err := env.expander.ExpandQuestionSet(context.Background(), set, v)
		require.NoError(t, err)
		raw, err := json.Marshal(restricted)
		require.NoError(t, err)
		decoded.Questions = nil
		require.NoError(t, json.Unmarshal(raw, &decoded))
		require.Len(t, decoded.Questions, 2)
		for _, q := range decoded.Questions {
			require.NotContains(t, q, "correct_answer")
			require.Contains(t, q, "options")
		}
	}
}

func TestExpandEmptyQuestionSet(t *testing.T) {
	env := newTestEnv(t, nil)
	set := env.seedSet(t, "Empty")

	expanded, err := env.expander.ExpandQuestionSet(context.Background(), set, lecturer)
	require.NoError(t, err)
	require.NotNil(t, expanded.Questions)
	require.Empty(t, expanded.Questions)
}

func TestParseOptions(t *testing.T) {
	require.Equal(t, []interface{}{"A", "B"}, ParseOptions(`["A","B"]`))
	require.Equal(t, []interface{}{"A", "B"}, ParseOptions(`"[\"A\",\"B\"]"`))
	require.Equal(t, map[string]interface{}{"a": "yes"}, ParseOptions(`{"a":"yes"}`))
	require.Nil(t, ParseOptions(""))
	require.Nil(t, ParseOptions("not json"))
	require.Nil(t, ParseOptions("42"))
	require.Nil(t, ParseOptions(`"just text"`))
	require.Nil(t, ParseOptions("null"))
	require.Nil(t, ParseOptions(`["a","b"] junk`))
	require.Nil(t, ParseOptions(`{"a":"yes"}{}`))
	require.Nil(t, ParseOptions(`"[\"A\"] trailing"`))
	require.Equal(t, []interface{}{"a"}, ParseOptions("[\"a\"]\n  "))
}

func TestHydrateQuestionKeepsOptionsKey(t *testing.T) {
	hydrated := HydrateQuestion(models.Question{ID: 7, Type: models.QuestionTypeEssay, Text: "Explain", Options: "{broken"})
	raw, err := json.Marshal(hydrated)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Contains(t, decoded, "options")
	require.Nil(t, decoded["options"])
	require.NotContains(t, decoded, "correct_answer")
}

func TestExpandAssignmentAttachesQuestionSet(t *testing.T) {
	env := newTestEnv(t, nil)
	q1 := env.seedQuestion(t, "first", 2, strPtr("A"))
	set := env.seedSet(t, "Linked", q1.ID)
	assignment := env.seedAssignment(t, &set.ID)

	response := env.expander.ExpandAssignment(context.Background(), assignment, student)
	require.NotNil(t, response.QuestionSet)
	require.Equal(t, set.ID, response.QuestionSet.ID)
	require.Len(t, response.QuestionSet.Questions, 1)
	require.Nil(t, response.QuestionSet.Questions[0].CorrectAnswer)
	require.Equal(t, assignment.Title, response.Title)
}

func TestExpandAssignmentDegradesWhenSetMissing(t *testing.T) {
	env := newTestEnv(t, nil)
	missing := uint(9999)
	assignment := env.seedAssignment(t, &missing)

	response := env.expander.ExpandAssignment(context.Background(), assignment, lecturer)
	require.Nil(t, response.QuestionSet)
	require.Equal(t, assignment.ID, response.ID)
	require.Equal(t, &missing, response.QuestionSetID)

	raw, err := json.Marshal(response)
	require.NoError(t, err)
	require.NotContains(t, string(raw), `"question_set":`)
}

func TestExpansionCacheNeverLeaksAnswersToStudents(t *testing.T) {
	mr, cache := newTestRedis(t)
	env := newTestEnv(t, cache)
	q1 := env.seedQuestion(t, "secret", 2, strPtr("A"))
	set := env.seedSet(t, "Cached", q1.ID)
	ctx := context.Background()

	// lecturer read populates the cache
	asLecturer, err := env.expander.ExpandQuestionSet(ctx, set, lecturer)
	require.NoError(t, err)
	require.Equal(t, "A", *asLecturer.Questions[0].CorrectAnswer)
	require.True(t, mr.Exists(expansionCacheKey(set.ID)))

	asStudent, err := env.expander.ExpandQuestionSet(ctx, set, student)
	require.NoError(t, err)
	raw, err := json.Marshal(asStudent)
	require.NoError(t, err)
	require.NotContains(t, string(raw), "correct_answer")

	// student read served from cache still gives lecturers the key
	again, err := env.expander.ExpandQuestionSet(ctx, set, lecturer)
	require.NoError(t, err)
	require.True(t, again.Questions[0].AnswerVisible)
	require.Equal(t, "A", *again.Questions[0].CorrectAnswer)
}

func TestExpansionCacheServesStoredEntry(t *testing.T) {
	_, cache := newTestRedis(t)
	env := newTestEnv(t, cache)
	q1 := env.seedQuestion(t, "cached text", 2, strPtr("A"))
	set := env.seedSet(t, "Cached", q1.ID)
	ctx := context.Background()

	_, err := env.expander.ExpandQuestionSet(ctx, set, lecturer)
	require.NoError(t, err)

	// bypass the service so the cache is not invalidated
	require.NoError(t, env.db.Model(&models.Question{}).Where("id = ?", q1.ID).Update("text", "changed").Error)

	expanded, err := env.expander.ExpandQuestionSet(ctx, set, lecturer)
	require.NoError(t, err)
	require.Equal(t, "cached text", expanded.Questions[0].Text)

	env.expander.Invalidate(ctx, set.ID)
	expanded, err = env.expander.ExpandQuestionSet(ctx, set, lecturer)
	require.NoError(t, err)
	require.Equal(t, "changed", expanded.Questions[0].Text)
}

func TestQuestionUpdateInvalidatesContainingSets(t *testing.T) {
	mr, cache := newTestRedis(t)
	env := newTestEnv(t, cache)
	q1 := env.seedQuestion(t, "before", 2, strPtr("A"))
	setA := env.seedSet(t, "A", q1.ID)
	setB := env.seedSet(t, "B", q1.ID)
	ctx := context.Background()

	_, err := env.expander.ExpandQuestionSet(ctx, setA, lecturer)
	require.NoError(t, err)
	_, err = env.expander.ExpandQuestionSet(ctx, setB, lecturer)
	require.NoError(t, err)
	require.True(t, mr.Exists(expansionCacheKey(setA.ID)))
	require.True(t, mr.Exists(expansionCacheKey(setB.ID)))

	updated := "after"
	_, err = env.questionService.Update(ctx, q1.ID, dto.QuestionUpdateRequest{Text: &updated}, lecturer)
	require.NoError(t, err)
	require.False(t, mr.Exists(expansionCacheKey(setA.ID)))
	require.False(t, mr.Exists(expansionCacheKey(setB.ID)))

	expanded, err := env.questionSetService.Get(ctx, setA.ID, student)
	require.NoError(t, err)
	require.Equal(t, "after", expanded.Questions[0].Text)
}
