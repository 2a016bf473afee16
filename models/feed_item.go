package models

// FeedItem is a saved article or link surfaced on the feed screen.
type FeedItem struct {
	Meta

	URL    string `json:"url"`
	Title  string `json:"title,omitempty"`
	Source string `json:"source,omitempty"`
	Read   bool   `json:"read"`
}
