package repository

import "github.com/MKhiriev/go-organizer/models"

// Compiled-in default sets, written only when a collection is first read
// while empty. They are ordinary local records afterwards: editable,
// removable and migrated to the remote store like anything else.

func defaultPersonalItems() []models.PersonalItem {
	return []models.PersonalItem{
		{
			Title: "Plan your day",
			Kind:  models.KindTask,
			Notes: "Add your first tasks and swipe to complete them.",
		},
		{
			Title: "Drink water",
			Kind:  models.KindHabit,
			Notes: "Habits reset every day. Try to keep the streak going.",
		},
		{
			Title: "Welcome",
			Kind:  models.KindNote,
			Notes: "Notes live next to your tasks. Everything syncs once you sign in.",
		},
	}
}

func defaultWorkoutTemplates() []models.WorkoutTemplate {
	return []models.WorkoutTemplate{
		{
			Name: "Full Body A",
			Exercises: []models.Exercise{
				{Name: "Squat", Sets: 3, Reps: 5},
				{Name: "Bench Press", Sets: 3, Reps: 5},
				{Name: "Barbell Row", Sets: 3, Reps: 5},
			},
		},
		{
			Name: "Full Body B",
			Exercises: []models.Exercise{
				{Name: "Deadlift", Sets: 1, Reps: 5},
				{Name: "Overhead Press", Sets: 3, Reps: 5},
				{Name: "Pull-up", Sets: 3, Reps: 8},
			},
		},
	}
}

func defaultSpaces() []models.Space {
	return []models.Space{
		{Name: "Personal", Color: "#4F8EF7"},
	}
}
