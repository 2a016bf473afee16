package models

import "time"

// WorkoutTemplate is a reusable workout plan.
type WorkoutTemplate struct {
	Meta

	Name      string     `json:"name"`
	Notes     string     `json:"notes,omitempty"`
	Exercises []Exercise `json:"exercises,omitempty"`
}

// Exercise is one planned movement inside a template.
type Exercise struct {
	Name   string  `json:"name"`
	Sets   int     `json:"sets"`
	Reps   int     `json:"reps"`
	Weight float64 `json:"weight,omitempty"`
}

// WorkoutSession is one performed instance of a template. Results are
// recorded per exercise; CompletedAt stays nil while the session is open.
type WorkoutSession struct {
	Meta

	TemplateID  string           `json:"templateId"`
	Name        string           `json:"name,omitempty"`
	StartedAt   time.Time        `json:"startedAt,omitzero"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`
	Results     []ExerciseResult `json:"results,omitempty"`
}

// ExerciseResult records what was actually lifted for one exercise.
type ExerciseResult struct {
	Name   string  `json:"name"`
	Sets   int     `json:"sets"`
	Reps   int     `json:"reps"`
	Weight float64 `json:"weight,omitempty"`
}

// BodyWeightEntry is a single body-weight measurement in kilograms.
type BodyWeightEntry struct {
	Meta

	Kilograms  float64   `json:"kilograms"`
	MeasuredAt time.Time `json:"measuredAt,omitzero"`
}
