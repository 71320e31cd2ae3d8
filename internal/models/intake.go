package models

import "time"

// Problem report categories
var ProblemCategories = []string{"bug", "content", "account", "other"}

// ContactMessage is a message submitted through the contact form
type ContactMessage struct {
	ID        int64
	Name      string
	Email     string
	Subject   string
	Message   string
	UserID    *int64
	CreatedAt time.Time
}

// ProblemReport is a user-submitted issue report
type ProblemReport struct {
	ID          int64
	UserID      *int64
	Email       string
	Category    string
	Description string
	PageURL     string
	UserAgent   string
	Status      string
	CreatedAt   time.Time
}
