// Package enrollment implements the student application flow: the applicant
// record, the published fee schedule, and the payment state machine that
// gates submission on a paid application fee.
package enrollment

import (
	"errors"
	"fmt"
	"strings"
)

// Application is one student application as entered by the guardian.
type Application struct {
	// StudentName is the student's full name.
	StudentName string

	// DateOfBirth is the student's date of birth (free-form, as entered).
	DateOfBirth string

	// GradeLevel is the grade band applied for ("IGCSE (Year 10-11)").
	GradeLevel string

	// GuardianName is the parent or guardian's full name.
	GuardianName string

	// Email is the guardian's contact email.
	Email string

	// Phone is the guardian's contact phone number.
	Phone string

	// Country is the family's country of residence.
	Country string

	// Message is an optional free-text note from the guardian.
	Message string
}

// Validate reports every missing or malformed required field, joined into a
// single error. Message is the only optional field.
func (a Application) Validate() error {
	var errs []error

	if strings.TrimSpace(a.StudentName) == "" {
		errs = append(errs, errors.New("student name is required"))
	}
	if strings.TrimSpace(a.DateOfBirth) == "" {
		errs = append(errs, errors.New("date of birth is required"))
	}
	if strings.TrimSpace(a.GradeLevel) == "" {
		errs = append(errs, errors.New("grade level is required"))
	}
	if strings.TrimSpace(a.GuardianName) == "" {
		errs = append(errs, errors.New("guardian name is required"))
	}
	if strings.TrimSpace(a.Email) == "" {
		errs = append(errs, errors.New("email is required"))
	} else if !strings.Contains(a.Email, "@") {
		errs = append(errs, fmt.Errorf("email %q is not a valid address", a.Email))
	}
	if strings.TrimSpace(a.Phone) == "" {
		errs = append(errs, errors.New("phone number is required"))
	}
	if strings.TrimSpace(a.Country) == "" {
		errs = append(errs, errors.New("country is required"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("enrollment: invalid application: %w", errors.Join(errs...))
	}
	return nil
}

// accountReference derives the payment statement reference from the student's
// first name: "BIS-JANE" for "Jane Smith".
func accountReference(studentName string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(studentName), " ")
	return "BIS-" + strings.ToUpper(first)
}
