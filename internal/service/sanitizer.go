package service

import (
	"fmt"
	"regexp"
	"strings"

	appErrors "github.com/noah-isme/nodues-go-api/pkg/errors"
)

// editableFields is the fixed allow-list of form fields a student may update
// during a reapplication.
var editableFields = map[string]struct{}{
	"student_name":   {},
	"parent_name":    {},
	"admission_year": {},
	"passing_year":   {},
	"school":         {},
	"course":         {},
	"branch":         {},
	"country_code":   {},
	"contact_no":     {},
	"personal_email": {},
	"college_email":  {},
}

// protectedFields may never be supplied by a caller. An explicit attempt to
// set one is reported distinctly from fields that are merely ignored, so the
// protected check runs before the allow-list filter.
var protectedFields = map[string]struct{}{
	"id":                  {},
	"form_id":             {},
	"registration_no":     {},
	"status":              {},
	"reapplication_count": {},
	"last_reapplied_at":   {},
	"is_reapplication":    {},
	"rejection_snapshot":  {},
	"created_at":          {},
	"updated_at":          {},
}

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phonePattern = regexp.MustCompile(`^[0-9]{6,15}$`)
)

// SanitizeEditedFields filters a raw edited-fields map down to the allow-list
// and validates formats. Side-effect free.
func SanitizeEditedFields(raw map[string]string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	for field := range raw {
		key := strings.ToLower(strings.TrimSpace(field))
		if _, protected := protectedFields[key]; protected {
			return nil, appErrors.WithDetail(
				appErrors.Clone(appErrors.ErrProtectedField, fmt.Sprintf("field %q cannot be modified", key)),
				"field", key)
		}
	}

	sanitized := make(map[string]string, len(raw))
	for field, value := range raw {
		key := strings.ToLower(strings.TrimSpace(field))
		if _, allowed := editableFields[key]; !allowed {
			continue
		}
		sanitized[key] = strings.TrimSpace(value)
	}

	for _, field := range []string{"personal_email", "college_email"} {
		if value, ok := sanitized[field]; ok && !emailPattern.MatchString(value) {
			return nil, appErrors.WithDetail(
				appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s is not a valid email address", field)),
				"field", field)
		}
	}
	if value, ok := sanitized["contact_no"]; ok && !phonePattern.MatchString(value) {
		return nil, appErrors.WithDetail(
			appErrors.Clone(appErrors.ErrValidation, "contact_no must be 6-15 digits"),
			"field", "contact_no")
	}

	if len(sanitized) == 0 {
		return nil, nil
	}
	return sanitized, nil
}
