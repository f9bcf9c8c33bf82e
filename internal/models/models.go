package models

import "time"

// Application statuses with dedicated styling and counters. Other values are
// preserved as-is.
const (
	StatusApplied   = "Applied"
	StatusInterview = "Interview"
	StatusOffer     = "Offer"
	StatusRejected  = "Rejected"
)

// Automation modes
const (
	AutomationManual = "Manual"
	AutomationAuto   = "Auto"
)

// Log statuses
const (
	LogSuccess = "Success"
	LogFailure = "Failure"
)

// Application represents one tracked job application
type Application struct {
	ID         int64   `json:"id" bson:"_id" dynamodbav:"id"`
	Company    string  `json:"company" bson:"company" dynamodbav:"company"`
	Position   string  `json:"position" bson:"position" dynamodbav:"position"`
	Source     string  `json:"source" bson:"source" dynamodbav:"source"`
	Date       string  `json:"date" bson:"date" dynamodbav:"date"` // YYYY-MM-DD
	Status     string  `json:"status" bson:"status" dynamodbav:"status"`
	Automation string  `json:"automation" bson:"automation" dynamodbav:"automation"`
	Salary     float64 `json:"salary" bson:"salary" dynamodbav:"salary"`
	Location   *string `json:"location" bson:"location" dynamodbav:"location"`
	Notes      *string `json:"notes" bson:"notes" dynamodbav:"notes"`
}

// NewApplication is the payload accepted by the insert path. Salary is kept
// as a raw JSON value so that strings and numbers are both accepted.
type NewApplication struct {
	Company    string  `json:"company"`
	Position   string  `json:"position"`
	Source     string  `json:"source"`
	Date       string  `json:"date"`
	Status     string  `json:"status"`
	Automation string  `json:"automation"`
	Salary     float64 `json:"-"`
	Location   *string `json:"location"`
	Notes      *string `json:"notes"`
}

// AutomationLog is an append-only record of an automated action
type AutomationLog struct {
	ID      int64     `json:"id" bson:"_id" dynamodbav:"id"`
	Source  string    `json:"source" bson:"source" dynamodbav:"source"`
	Action  string    `json:"action" bson:"action" dynamodbav:"action"`
	Status  string    `json:"status" bson:"status" dynamodbav:"status"`
	Details string    `json:"details" bson:"details" dynamodbav:"details"`
	Date    time.Time `json:"date" bson:"date" dynamodbav:"date"`
}

// Integration describes a configured app-to-app automation link
type Integration struct {
	ID      int64  `json:"id" bson:"_id" dynamodbav:"id"`
	FromApp string `json:"from_app" bson:"from_app" dynamodbav:"from_app"`
	ToApp   string `json:"to_app" bson:"to_app" dynamodbav:"to_app"`
	Status  string `json:"status" bson:"status" dynamodbav:"status"`
}

// User is the single bearer identity. PasswordHash is never serialized.
type User struct {
	ID           int64  `json:"id" bson:"_id" dynamodbav:"id"`
	Email        string `json:"email" bson:"email" dynamodbav:"email"`
	Name         string `json:"name" bson:"name" dynamodbav:"name"`
	PasswordHash string `json:"-" bson:"password" dynamodbav:"password"`
}

// StatusDatum is a row of the precomputed status_data table
type StatusDatum struct {
	Name  string `json:"name" bson:"_id" dynamodbav:"name"`
	Value int    `json:"value" bson:"value" dynamodbav:"value"`
}

// JobBoardDatum is a row of the precomputed job_board_data table
type JobBoardDatum struct {
	Name  string `json:"name" bson:"_id" dynamodbav:"name"`
	Usage int    `json:"usage" bson:"usage" dynamodbav:"usage"`
}
