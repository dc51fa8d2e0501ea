// Package records defines the Provider interface for student record backends.
//
// A records provider exposes the academic data the assistant can look up on a
// student's behalf: upcoming assignments, current grades, and personalised
// study recommendations. The canonical implementation talks to a Canvas LMS
// instance; tests use the mock subpackage.
//
// All implementations must be safe for concurrent use.
package records

import "context"

// Assignment priorities.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Assignment statuses.
const (
	StatusPending   = "pending"
	StatusSubmitted = "submitted"
)

// Assignment is a single upcoming piece of coursework.
type Assignment struct {
	// ID is the backend's identifier for the assignment.
	ID string

	// Title is the display name, typically "Subject: Task".
	Title string

	// DueDate is a human-readable due date phrase ("Tomorrow, 11:59 PM").
	DueDate string

	// Priority is one of PriorityHigh, PriorityMedium, PriorityLow.
	Priority string

	// Status is one of StatusPending, StatusSubmitted.
	Status string
}

// Recommendation is a personalised study suggestion.
type Recommendation struct {
	// Subject names the area the suggestion covers.
	Subject string

	// Level classifies the suggestion ("Enrichment", "Interactive", "Social").
	Level string

	// Reason explains why this suggestion fits the student.
	Reason string
}

// Provider is the abstraction over any student records backend.
type Provider interface {
	// UpcomingAssignments returns the student's open and recently submitted
	// coursework, soonest due first.
	UpcomingAssignments(ctx context.Context) ([]Assignment, error)

	// CurrentGrades returns the student's current grade per subject, as a
	// display string ("92% (A)") keyed by subject name.
	CurrentGrades(ctx context.Context) (map[string]string, error)

	// StudyRecommendations returns personalised study suggestions informed by
	// the student's stated interest.
	StudyRecommendations(ctx context.Context, interest string) ([]Recommendation, error)
}
