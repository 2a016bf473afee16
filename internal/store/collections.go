package store

// Collection names. Each is an independently-seedable partition of records
// in the local store; the set is fixed at build time and materialised by the
// schema migrations.
const (
	CollectionPersonalItems    = "personal-items"
	CollectionFeedItems        = "feed-items"
	CollectionWorkoutTemplates = "workout-templates"
	CollectionWorkoutSessions  = "workout-sessions"
	CollectionBodyWeight       = "body-weight"
	CollectionSpaces           = "spaces"
	CollectionWatchlist        = "watchlist"
	CollectionSettings         = "settings"
	CollectionAuthTokens       = "auth-tokens"
	CollectionEventLog         = "event-log"
)

// SettingsRecordID keys the single wholesale settings blob inside the
// settings collection.
const SettingsRecordID = "settings"

// SyncableCollections lists the collections mirrored to the remote store.
// Auth tokens never leave the device and the event log is local-only
// bookkeeping.
var SyncableCollections = []string{
	CollectionPersonalItems,
	CollectionFeedItems,
	CollectionWorkoutTemplates,
	CollectionWorkoutSessions,
	CollectionBodyWeight,
	CollectionSpaces,
	CollectionWatchlist,
}
