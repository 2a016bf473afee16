package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MKhiriev/go-organizer/internal/store"
	"github.com/MKhiriev/go-organizer/models"
)

// Workouts pairs the template repository with the session repository and
// adds the cross-type operations: starting a session from a template and
// completing it.
type Workouts struct {
	Templates *Repository[models.WorkoutTemplate]
	Sessions  *Repository[models.WorkoutSession]
}

func NewWorkouts(d Deps) *Workouts {
	return &Workouts{
		Templates: New(d, Options[models.WorkoutTemplate]{
			Collection: store.CollectionWorkoutTemplates,
			Seed:       defaultWorkoutTemplates(),
			Less: func(a, b models.WorkoutTemplate) bool {
				return a.Name < b.Name
			},
			Validate: func(v models.WorkoutTemplate) error {
				if strings.TrimSpace(v.Name) == "" {
					return fmt.Errorf("%w: name is required", ErrValidation)
				}
				return nil
			},
			// A duplicated template keeps its exercise plan; only the
			// identity is new.
		}),
		Sessions: New(d, Options[models.WorkoutSession]{
			Collection: store.CollectionWorkoutSessions,
			Less: func(a, b models.WorkoutSession) bool {
				return newestFirst(a.StartedAt, b.StartedAt)
			},
			ResetOnDuplicate: func(v models.WorkoutSession) models.WorkoutSession {
				v.CompletedAt = nil
				v.Results = nil
				return v
			},
			Transition: func(prev *models.WorkoutSession, next models.WorkoutSession) (string, bool) {
				if next.CompletedAt != nil && (prev == nil || prev.CompletedAt == nil) {
					return models.EventSessionCompleted, true
				}
				return "", false
			},
		}),
	}
}

// LogSession starts a new session from the named template, pre-filling
// results from the template's exercise plan. Returns [ErrNotFound] if the
// template does not exist.
func (w *Workouts) LogSession(ctx context.Context, templateID string) (models.WorkoutSession, error) {
	tpl, err := w.Templates.Get(ctx, templateID)
	if err != nil {
		return models.WorkoutSession{}, err
	}

	results := make([]models.ExerciseResult, 0, len(tpl.Exercises))
	for _, ex := range tpl.Exercises {
		results = append(results, models.ExerciseResult{
			Name:   ex.Name,
			Sets:   ex.Sets,
			Reps:   ex.Reps,
			Weight: ex.Weight,
		})
	}

	return w.Sessions.Add(ctx, models.WorkoutSession{
		TemplateID: templateID,
		Name:       tpl.Name,
		StartedAt:  time.Now().UTC(),
		Results:    results,
	})
}

// CompleteSession marks a session finished. The completion transition
// writes an event-log entry via the session repository.
func (w *Workouts) CompleteSession(ctx context.Context, id string) (models.WorkoutSession, error) {
	return w.Sessions.Update(ctx, id, map[string]any{
		"completedAt": time.Now().UTC().Format(time.RFC3339Nano),
	})
}
