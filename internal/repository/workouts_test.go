package repository

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-organizer/internal/store"
	"github.com/MKhiriev/go-organizer/models"
)

func newTestWorkouts(local *fakeLocalStore, pusher *spyPusher) *Workouts {
	return NewWorkouts(testDeps(local, pusher, signedOut()))
}

func TestWorkouts_TemplatesSeededOnFirstRead(t *testing.T) {
	w := newTestWorkouts(newFakeLocalStore(), &spyPusher{})

	templates, err := w.Templates.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, templates, 2)
	assert.Equal(t, "Full Body A", templates[0].Name)
	assert.NotEmpty(t, templates[0].Exercises)
}

func TestLogSession_PrefillsResultsFromTemplate(t *testing.T) {
	w := newTestWorkouts(newFakeLocalStore(), &spyPusher{})
	ctx := context.Background()

	tpl, err := w.Templates.Add(ctx, models.WorkoutTemplate{
		Name: "Push Day",
		Exercises: []models.Exercise{
			{Name: "Bench Press", Sets: 4, Reps: 8, Weight: 80},
			{Name: "Dips", Sets: 3, Reps: 12},
		},
	})
	require.NoError(t, err)

	sess, err := w.LogSession(ctx, tpl.ID)
	require.NoError(t, err)

	assert.Equal(t, tpl.ID, sess.TemplateID)
	assert.Equal(t, "Push Day", sess.Name)
	assert.False(t, sess.StartedAt.IsZero())
	assert.Nil(t, sess.CompletedAt)

	require.Len(t, sess.Results, 2)
	assert.Equal(t, "Bench Press", sess.Results[0].Name)
	assert.Equal(t, 4, sess.Results[0].Sets)
	assert.Equal(t, 8, sess.Results[0].Reps)
	assert.Equal(t, float64(80), sess.Results[0].Weight)
}

func TestLogSession_UnknownTemplate(t *testing.T) {
	w := newTestWorkouts(newFakeLocalStore(), &spyPusher{})

	_, err := w.LogSession(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompleteSession_SetsCompletedAtAndRecordsEvent(t *testing.T) {
	local := newFakeLocalStore()
	w := newTestWorkouts(local, &spyPusher{})
	ctx := context.Background()

	tpl, err := w.Templates.Add(ctx, models.WorkoutTemplate{Name: "Legs"})
	require.NoError(t, err)

	sess, err := w.LogSession(ctx, tpl.ID)
	require.NoError(t, err)
	require.Equal(t, 0, local.count(store.CollectionEventLog))

	done, err := w.CompleteSession(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)

	require.Equal(t, 1, local.count(store.CollectionEventLog))
	events, err := local.GetAll(ctx, store.CollectionEventLog)
	require.NoError(t, err)

	var event models.Event
	require.NoError(t, json.Unmarshal(events[0], &event))
	assert.Equal(t, models.EventSessionCompleted, event.Kind)
	assert.Equal(t, sess.ID, event.RefID)
}

func TestSessionDuplicate_StripsResultsAndCompletion(t *testing.T) {
	w := newTestWorkouts(newFakeLocalStore(), &spyPusher{})
	ctx := context.Background()

	tpl, err := w.Templates.Add(ctx, models.WorkoutTemplate{
		Name:      "Pull Day",
		Exercises: []models.Exercise{{Name: "Deadlift", Sets: 3, Reps: 5}},
	})
	require.NoError(t, err)

	sess, err := w.LogSession(ctx, tpl.ID)
	require.NoError(t, err)
	_, err = w.CompleteSession(ctx, sess.ID)
	require.NoError(t, err)

	dup, err := w.Sessions.Duplicate(ctx, sess.ID)
	require.NoError(t, err)

	assert.NotEqual(t, sess.ID, dup.ID)
	assert.Nil(t, dup.CompletedAt)
	assert.Empty(t, dup.Results)
	assert.Equal(t, tpl.ID, dup.TemplateID)
}

func TestTemplateDuplicate_KeepsExercisePlan(t *testing.T) {
	w := newTestWorkouts(newFakeLocalStore(), &spyPusher{})
	ctx := context.Background()

	tpl, err := w.Templates.Add(ctx, models.WorkoutTemplate{
		Name:      "Upper",
		Exercises: []models.Exercise{{Name: "Row", Sets: 3, Reps: 10}},
	})
	require.NoError(t, err)

	dup, err := w.Templates.Duplicate(ctx, tpl.ID)
	require.NoError(t, err)

	assert.NotEqual(t, tpl.ID, dup.ID)
	assert.Equal(t, tpl.Exercises, dup.Exercises)
}
