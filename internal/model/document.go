package model

import "time"

// Document is one entry in the knowledge base: a snippet of documentation,
// example code, or guidance that can be retrieved to ground generation.
// The ID is a hash of the content, so adding the same text twice is an
// update, not a duplicate.
type Document struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
