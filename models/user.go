package models

import "time"

// User represents a registered reader of the book.
type User struct {
	ID                 int64     `json:"id"`
	Email              string    `json:"email"`
	Name               string    `json:"name"`
	PasswordHash       string    `json:"-"`
	SoftwareBackground string    `json:"software_background,omitempty"`
	HardwareBackground string    `json:"hardware_background,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}
