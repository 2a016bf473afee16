package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/MKhiriev/go-organizer/internal/store"
	"github.com/MKhiriev/go-organizer/models"
)

// NewPersonalItems builds the repository behind the tasks/habits/notes
// screens. Completing an item records an event-log entry; duplicating one
// strips its completion state.
func NewPersonalItems(d Deps) *Repository[models.PersonalItem] {
	return New(d, Options[models.PersonalItem]{
		Collection: store.CollectionPersonalItems,
		Seed:       defaultPersonalItems(),
		Less: func(a, b models.PersonalItem) bool {
			return newestFirst(a.CreatedAt, b.CreatedAt)
		},
		Validate: func(v models.PersonalItem) error {
			if strings.TrimSpace(v.Title) == "" {
				return fmt.Errorf("%w: title is required", ErrValidation)
			}
			switch v.Kind {
			case models.KindTask, models.KindHabit, models.KindNote:
				return nil
			default:
				return fmt.Errorf("%w: unknown item type %q", ErrValidation, v.Kind)
			}
		},
		ResetOnDuplicate: func(v models.PersonalItem) models.PersonalItem {
			v.Completed = false
			v.CompletedAt = nil
			return v
		},
		Transition: func(prev *models.PersonalItem, next models.PersonalItem) (string, bool) {
			if next.Completed && (prev == nil || !prev.Completed) {
				return models.EventItemCompleted, true
			}
			return "", false
		},
	})
}

// NewFeedItems builds the repository behind the feed screen.
func NewFeedItems(d Deps) *Repository[models.FeedItem] {
	return New(d, Options[models.FeedItem]{
		Collection: store.CollectionFeedItems,
		Less: func(a, b models.FeedItem) bool {
			return newestFirst(a.CreatedAt, b.CreatedAt)
		},
		Validate: func(v models.FeedItem) error {
			if strings.TrimSpace(v.URL) == "" {
				return fmt.Errorf("%w: url is required", ErrValidation)
			}
			return nil
		},
	})
}

// NewBodyWeight builds the repository for body-weight measurements.
func NewBodyWeight(d Deps) *Repository[models.BodyWeightEntry] {
	return New(d, Options[models.BodyWeightEntry]{
		Collection: store.CollectionBodyWeight,
		Less: func(a, b models.BodyWeightEntry) bool {
			return newestFirst(a.MeasuredAt, b.MeasuredAt)
		},
		Validate: func(v models.BodyWeightEntry) error {
			if v.Kilograms <= 0 {
				return fmt.Errorf("%w: kilograms must be positive", ErrValidation)
			}
			return nil
		},
	})
}

// NewSpaces builds the repository for item spaces.
func NewSpaces(d Deps) *Repository[models.Space] {
	return New(d, Options[models.Space]{
		Collection: store.CollectionSpaces,
		Seed:       defaultSpaces(),
		Less: func(a, b models.Space) bool {
			return a.Name < b.Name
		},
		Validate: func(v models.Space) error {
			if strings.TrimSpace(v.Name) == "" {
				return fmt.Errorf("%w: name is required", ErrValidation)
			}
			return nil
		},
	})
}

// NewWatchlist builds the repository for tracked instrument symbols.
// Symbols are stored uppercased.
func NewWatchlist(d Deps) *Repository[models.WatchlistEntry] {
	return New(d, Options[models.WatchlistEntry]{
		Collection: store.CollectionWatchlist,
		Less: func(a, b models.WatchlistEntry) bool {
			return a.Symbol < b.Symbol
		},
		Normalize: func(v models.WatchlistEntry) models.WatchlistEntry {
			v.Symbol = strings.ToUpper(strings.TrimSpace(v.Symbol))
			return v
		},
		Validate: func(v models.WatchlistEntry) error {
			if strings.TrimSpace(v.Symbol) == "" {
				return fmt.Errorf("%w: symbol is required", ErrValidation)
			}
			return nil
		},
	})
}

// newestFirst orders timestamps most recent first, with zero-valued
// timestamps sorted last.
func newestFirst(a, b time.Time) bool {
	if a.IsZero() != b.IsZero() {
		return !a.IsZero()
	}
	return a.After(b)
}
