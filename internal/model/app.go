// Package model defines the data structures shared across layers.
package model

import "time"

// App is a generated app bundle saved to the library: a set of named source
// files plus the requirements prompt that produced them.
type App struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Files       []AppFile `json:"files"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// AppFile is one source file inside a bundle.
type AppFile struct {
	Name   string `json:"name"`
	Source string `json:"source"`
}
