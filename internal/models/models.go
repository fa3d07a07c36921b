// Package models defines the records persisted by the catalog service.
package models

import "time"

// User is an account able to authenticate against the service. Accounts are
// immutable after registration and are never deleted through the API.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Movie is a single catalog entry. Poster is nil when no image has been
// uploaded for the record.
type Movie struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	PublishingYear int       `json:"publishingYear"`
	Poster         *string   `json:"poster"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}
