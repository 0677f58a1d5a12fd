package events

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestSubjectJoinsPrefix(t *testing.T) {
	require.Equal(t, "gema.assessment.submission.graded", Subject("gema.assessment", SubmissionGraded))
	require.Equal(t, "gema.submission.created", Subject(".gema.", SubmissionCreated))
	require.Equal(t, "submission.reverted", Subject("", SubmissionReverted))
}

func TestNilConnectionYieldsNoop(t *testing.T) {
	publisher := NewNATSPublisher(nil, "gema", zerolog.Nop())
	require.IsType(t, noopPublisher{}, publisher)

	publisher.Publish(context.Background(), SubmissionEvent{Event: SubmissionCreated, SubmissionID: 1})
}

func TestRecorderKeepsOrder(t *testing.T) {
	recorder := &Recorder{}
	recorder.Publish(context.Background(), SubmissionEvent{Event: SubmissionCreated, SubmissionID: 1})
	recorder.Publish(context.Background(), SubmissionEvent{Event: SubmissionGraded, SubmissionID: 1})

	events := recorder.Events()
	require.Len(t, events, 2)
	require.Equal(t, SubmissionCreated, events[0].Event)
	require.Equal(t, SubmissionGraded, events[1].Event)
}
