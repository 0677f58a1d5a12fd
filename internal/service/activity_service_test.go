package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/repository"
)

func TestActivityRecordMasksSensitiveMetadata(t *testing.T) {
	db := newTestDB(t)
	svc := NewActivityService(repository.NewActivityLogRepository(db), testLogger())

	entityID := uint(7)
	entry, err := svc.Record(context.Background(), ActivityEntry{
		Actor:      lecturer,
		Action:     " Submission.Graded ",
		EntityType: "Submission",
		EntityID:   &entityID,
		Metadata: map[string]interface{}{
			"student_email":  "student@example.com",
			"refresh_token":  "secret",
			"correct_answer": "Paris",
			"grade":          7,
		},
	})
	require.NoError(t, err)
	require.Equal(t, "submission.graded", entry.Action)
	require.Equal(t, "submission", entry.EntityType)
	require.Equal(t, "lecturer", entry.ActorRole)
	require.Equal(t, "***", entry.Metadata["student_email"])
	require.Equal(t, "***", entry.Metadata["refresh_token"])
	require.Equal(t, "***", entry.Metadata["correct_answer"])
	require.EqualValues(t, 7, entry.Metadata["grade"])
}

func TestActivityRecordRequiresActionAndEntity(t *testing.T) {
	db := newTestDB(t)
	svc := NewActivityService(repository.NewActivityLogRepository(db), testLogger())

	_, err := svc.Record(context.Background(), ActivityEntry{Actor: lecturer, EntityType: "course"})
	require.Error(t, err)

	_, err = svc.Record(context.Background(), ActivityEntry{Actor: lecturer, Action: "course.created"})
	require.Error(t, err)
}

func TestActivityListFilters(t *testing.T) {
	db := newTestDB(t)
	svc := NewActivityService(repository.NewActivityLogRepository(db), testLogger())
	ctx := context.Background()

	for _, entry := range []ActivityEntry{
		{Actor: lecturer, Action: "course.created", EntityType: "course"},
		{Actor: lecturer, Action: "question.created", EntityType: "question"},
		{Actor: student, Action: "submission.created", EntityType: "submission"},
		{Actor: lecturer, Action: "question.updated", EntityType: "question"},
	} {
		_, err := svc.Record(ctx, entry)
		require.NoError(t, err)
	}

	byType, err := svc.List(ctx, dto.ActivityListRequest{Page: 1, PageSize: 10, EntityType: "QUESTION"})
	require.NoError(t, err)
	require.Len(t, byType.Items, 2)
	require.Equal(t, int64(2), byType.Pagination.TotalItems)

	byActor, err := svc.List(ctx, dto.ActivityListRequest{Page: 1, PageSize: 10, ActorID: student.ID})
	require.NoError(t, err)
	require.Len(t, byActor.Items, 1)
	require.Equal(t, "submission.created", byActor.Items[0].Action)

	paged, err := svc.List(ctx, dto.ActivityListRequest{Page: 2, PageSize: 3})
	require.NoError(t, err)
	require.Len(t, paged.Items, 1)
	require.Equal(t, 2, paged.Pagination.TotalPages)
}

func TestServicesRecordActivity(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.courseService.Create(ctx, dto.CourseCreateRequest{Code: "CS101", Name: "Intro"}, lecturer)
	require.NoError(t, err)
	question := env.seedQuestion(t, "q", 1, strPtr("A"))
	require.NoError(t, env.questionService.Delete(ctx, question.ID, lecturer))

	logs, err := env.activity.List(ctx, dto.ActivityListRequest{Page: 1, PageSize: 10})
	require.NoError(t, err)

	actions := make([]string, 0, len(logs.Items))
	for _, item := range logs.Items {
		actions = append(actions, item.Action)
		require.Equal(t, lecturer.ID, item.ActorID)
	}
	require.ElementsMatch(t, []string{"course.created", "question.deleted"}, actions)
}
