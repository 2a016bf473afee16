package models

// Space groups personal items (e.g. "Work", "Home").
type Space struct {
	Meta

	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// WatchlistEntry is a tracked financial instrument. Quote fetching itself
// lives outside this module; only the symbol list is persisted and synced.
type WatchlistEntry struct {
	Meta

	Symbol string `json:"symbol"`
	Label  string `json:"label,omitempty"`
}
