package models

import "time"

// User mirrors a row of the users table. Unknown columns the backend may grow
// are dropped at this boundary.
type User struct {
	ID          int64
	Login       string
	Pass        string
	Nicename    string
	Email       string
	URL         string
	Registered  time.Time
	DisplayName string
	FirstName   string
	LastName    string
	Nickname    string
	Description string
}
