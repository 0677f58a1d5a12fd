package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-assessment-api/internal/models"
)

type memoryQuestionFinder struct {
	questions map[uint]models.Question
	err       error
	calls     int
}

func (m *memoryQuestionFinder) FindByIDs(_ context.Context, ids []uint) ([]models.Question, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	found := make([]models.Question, 0, len(ids))
	for _, id := range ids {
		if question, ok := m.questions[id]; ok {
			found = append(found, question)
		}
	}
	return found, nil
}

func newGraderFixture() *memoryQuestionFinder {
	return &memoryQuestionFinder{questions: map[uint]models.Question{
		1: {ID: 1, Marks: 2, CorrectAnswer: strPtr("A")},
		2: {ID: 2, Marks: 3, CorrectAnswer: strPtr("Y")},
		3: {ID: 3, Marks: 4, CorrectAnswer: nil},
		4: {ID: 4, Marks: 1, CorrectAnswer: strPtr("4")},
		5: {ID: 5, Marks: 1, CorrectAnswer: strPtr("true")},
	}}
}

func TestAutoGraderScoresExactMatches(t *testing.T) {
	grader := NewAutoGrader(newGraderFixture(), testLogger())
	ctx := context.Background()

	result := grader.Grade(ctx, `{"answers":{"1":"A","2":"Y"}}`)
	require.True(t, result.Graded)
	require.Equal(t, 5, *result.Marks)

	result = grader.Grade(ctx, `{"answers":{"1":"A","2":"X"}}`)
	require.True(t, result.Graded)
	require.Equal(t, 2, *result.Marks)
}

func TestAutoGraderLeavesUngradablePayloads(t *testing.T) {
	grader := NewAutoGrader(newGraderFixture(), testLogger())
	ctx := context.Background()

	for _, payload := range []string{
		``,
		`plain text answer`,
		`{"text":"my essay"}`,
		`{"answers":["A","Y"]}`,
		`{"answers":"1=A"}`,
		`[1,2,3]`,
		`{"answers":{"1":"A","2":"Y"}} this is not json`,
		`{"answers":{"1":"A"}}{"answers":{"2":"Y"}}`,
	} {
		result := grader.Grade(ctx, payload)
		require.False(t, result.Graded, payload)
		require.Nil(t, result.Marks, payload)
	}
}

func TestAutoGraderTrimsButPreservesCase(t *testing.T) {
	grader := NewAutoGrader(newGraderFixture(), testLogger())

	result := grader.Grade(context.Background(), `{"answers":{"1":"  A \n","2":"y"}}`)
	require.True(t, result.Graded)
	require.Equal(t, 2, *result.Marks)
}

func TestAutoGraderComparesNumbersByLiteral(t *testing.T) {
	grader := NewAutoGrader(newGraderFixture(), testLogger())
	ctx := context.Background()

	require.Equal(t, 1, *grader.Grade(ctx, `{"answers":{"4":4}}`).Marks)
	require.Equal(t, 0, *grader.Grade(ctx, `{"answers":{"4":4.0}}`).Marks)
	require.Equal(t, 0, *grader.Grade(ctx, `{"answers":{"4":"4.0"}}`).Marks)
	require.Equal(t, 1, *grader.Grade(ctx, `{"answers":{"5":true}}`).Marks)
}

func TestAutoGraderNullAnswerKeyNeverMatches(t *testing.T) {
	grader := NewAutoGrader(newGraderFixture(), testLogger())
	ctx := context.Background()

	require.Equal(t, 0, *grader.Grade(ctx, `{"answers":{"3":""}}`).Marks)
	require.Equal(t, 0, *grader.Grade(ctx, `{"answers":{"3":null}}`).Marks)
	require.Equal(t, 0, *grader.Grade(ctx, `{"answers":{"1":null,"2":["Y"]}}`).Marks)
}

func TestAutoGraderSkipsUnknownAndInvalidKeys(t *testing.T) {
	finder := newGraderFixture()
	grader := NewAutoGrader(finder, testLogger())

	result := grader.Grade(context.Background(), `{"answers":{"999":"A","abc":"A","0":"A","2":"Y"}}`)
	require.True(t, result.Graded)
	require.Equal(t, 3, *result.Marks)
	require.Equal(t, 1, finder.calls)
}

func TestAutoGraderAwardsEachQuestionOnce(t *testing.T) {
	grader := NewAutoGrader(newGraderFixture(), testLogger())

	result := grader.Grade(context.Background(), `{"answers":{"1":"A","01":"A"," 1":"A"}}`)
	require.True(t, result.Graded)
	require.Equal(t, 2, *result.Marks)
}

func TestAutoGraderIsDeterministic(t *testing.T) {
	grader := NewAutoGrader(newGraderFixture(), testLogger())
	payload := `{"text":"quiz","answers":{"2":"Y","1":"B","4":4}}`

	first := grader.Grade(context.Background(), payload)
	second := grader.Grade(context.Background(), payload)
	require.Equal(t, first.Graded, second.Graded)
	require.Equal(t, *first.Marks, *second.Marks)
	require.Equal(t, 4, *first.Marks)
}

func TestAutoGraderEmptyAnswersScoresZero(t *testing.T) {
	finder := newGraderFixture()
	grader := NewAutoGrader(finder, testLogger())

	result := grader.Grade(context.Background(), `{"answers":{}}`)
	require.True(t, result.Graded)
	require.Equal(t, 0, *result.Marks)
	require.Zero(t, finder.calls)
}

func TestAutoGraderDegradesOnLookupFailure(t *testing.T) {
	grader := NewAutoGrader(&memoryQuestionFinder{err: errors.New("db down")}, testLogger())

	result := grader.Grade(context.Background(), `{"answers":{"1":"A"}}`)
	require.True(t, result.Graded)
	require.Equal(t, 0, *result.Marks)
}
