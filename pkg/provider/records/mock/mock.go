// Package mock provides a test double for the records.Provider interface,
// plus canned sample data mirroring a typical student's week. The samples
// double as the demo dataset when the assistant runs without a live LMS.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/brainybay/assistant/pkg/provider/records"
)

// SampleAssignments returns the canned assignment set.
func SampleAssignments() []records.Assignment {
	return []records.Assignment{
		{ID: "1", Title: "Calculus: Derivatives Quiz", DueDate: "Tomorrow, 11:59 PM", Priority: records.PriorityHigh, Status: records.StatusPending},
		{ID: "2", Title: "Physics Lab Report: Pendulums", DueDate: "Friday, 5:00 PM", Priority: records.PriorityMedium, Status: records.StatusPending},
		{ID: "3", Title: "History Essay: Industrial Revolution", DueDate: "Next Monday", Priority: records.PriorityLow, Status: records.StatusSubmitted},
	}
}

// SampleGrades returns the canned grade report.
func SampleGrades() map[string]string {
	return map[string]string{
		"Mathematics":        "92% (A)",
		"Physics":            "88% (A)",
		"Chemistry":          "85% (A)",
		"History":            "90% (A*)",
		"English Literature": "78% (B)",
	}
}

// SampleRecommendations returns the canned study suggestions for an interest.
func SampleRecommendations(interest string) []records.Recommendation {
	return []records.Recommendation{
		{Subject: "Advanced Math", Level: "Enrichment", Reason: fmt.Sprintf("Based on your interest in %s, try the Khan Academy module on Multivariable Calculus.", interest)},
		{Subject: "Physics Simulation", Level: "Interactive", Reason: "Check out the new PhET simulation on Canvas regarding forces and motion."},
		{Subject: "Study Group", Level: "Social", Reason: `Join the "Stem Enthusiasts" group on BigBlueButton this Thursday.`},
	}
}

// RecommendationsCall records a single invocation of StudyRecommendations.
type RecommendationsCall struct {
	// Interest is the interest string passed to StudyRecommendations.
	Interest string
}

// Provider is a mock implementation of records.Provider. Zero-value response
// fields fall back to the Sample* data; set Err fields to inject failures.
type Provider struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// Assignments is returned by UpcomingAssignments. Nil means SampleAssignments.
	Assignments []records.Assignment

	// AssignmentsErr, if non-nil, is returned by UpcomingAssignments.
	AssignmentsErr error

	// Grades is returned by CurrentGrades. Nil means SampleGrades.
	Grades map[string]string

	// GradesErr, if non-nil, is returned by CurrentGrades.
	GradesErr error

	// Recommendations is returned by StudyRecommendations. Nil means
	// SampleRecommendations(interest).
	Recommendations []records.Recommendation

	// RecommendationsErr, if non-nil, is returned by StudyRecommendations.
	RecommendationsErr error

	// --- Call records (read after test) ---

	// AssignmentsCalls is the number of UpcomingAssignments invocations.
	AssignmentsCalls int

	// GradesCalls is the number of CurrentGrades invocations.
	GradesCalls int

	// RecommendationsCalls records every StudyRecommendations invocation.
	RecommendationsCalls []RecommendationsCall
}

// UpcomingAssignments records the call and returns Assignments, AssignmentsErr.
func (p *Provider) UpcomingAssignments(_ context.Context) ([]records.Assignment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.AssignmentsCalls++
	if p.AssignmentsErr != nil {
		return nil, p.AssignmentsErr
	}
	if p.Assignments != nil {
		return p.Assignments, nil
	}
	return SampleAssignments(), nil
}

// CurrentGrades records the call and returns Grades, GradesErr.
func (p *Provider) CurrentGrades(_ context.Context) (map[string]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.GradesCalls++
	if p.GradesErr != nil {
		return nil, p.GradesErr
	}
	if p.Grades != nil {
		return p.Grades, nil
	}
	return SampleGrades(), nil
}

// StudyRecommendations records the call and returns Recommendations,
// RecommendationsErr.
func (p *Provider) StudyRecommendations(_ context.Context, interest string) ([]records.Recommendation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.RecommendationsCalls = append(p.RecommendationsCalls, RecommendationsCall{Interest: interest})
	if p.RecommendationsErr != nil {
		return nil, p.RecommendationsErr
	}
	if p.Recommendations != nil {
		return p.Recommendations, nil
	}
	return SampleRecommendations(interest), nil
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.AssignmentsCalls = 0
	p.GradesCalls = 0
	p.RecommendationsCalls = nil
}

// Ensure Provider implements records.Provider at compile time.
var _ records.Provider = (*Provider)(nil)
