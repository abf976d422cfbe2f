package models

import (
	"time"
)

// OrderLine is one persisted (user, instructor, date, quantity) record.
// DateKey is the canonical YYYYMMDD form used everywhere below the chat
// layer; display formatting happens only in the bot and report packages.
type OrderLine struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	InstructorName string    `json:"instructor_name"`
	DateKey        string    `json:"date_key"`
	Quantity       int       `json:"quantity"`
	CreatedAt      time.Time `json:"created_at"`
}

// UserOrder is the per-user read model: what one employee ordered.
type UserOrder struct {
	InstructorName string `json:"instructor_name"`
	DateKey        string `json:"date_key"`
	Quantity       int    `json:"quantity"`
}

// ExportRow is the admin read model, joined with the employee's display
// name. EmployeeName falls back to a placeholder when the user never
// passed through /start registration.
type ExportRow struct {
	UserID         int64  `json:"user_id"`
	EmployeeName   string `json:"employee_name"`
	InstructorName string `json:"instructor_name"`
	DateKey        string `json:"date_key"`
	Quantity       int    `json:"quantity"`
}

// Employee is created at most once per user; later registrations are no-ops.
type Employee struct {
	UserID            int64     `json:"user_id"`
	Username          string    `json:"username"`
	FullName          string    `json:"full_name"`
	FirstRegistration time.Time `json:"first_registration"`
}

// OrderWrite is one day's answer headed for the orders table.
type OrderWrite struct {
	DateKey  string `json:"date_key"`
	Quantity int    `json:"quantity"`
}

// OrderCommittedMessage is published to the broker after a successful
// commit so the notification subscriber can tell the administrator.
type OrderCommittedMessage struct {
	UserID         int64     `json:"user_id"`
	InstructorName string    `json:"instructor_name"`
	WeekRange      string    `json:"week_range"`
	DaysCount      int       `json:"days_count"`
	Total          int       `json:"total"`
	CommittedAt    time.Time `json:"committed_at"`
}
