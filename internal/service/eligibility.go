package service

import (
	"fmt"

	"github.com/noah-isme/nodues-go-api/internal/models"
	appErrors "github.com/noah-isme/nodues-go-api/pkg/errors"
)

// DefaultMaxReapplicationsPerDepartment caps accepted reapplications per
// department row when no override is configured.
const DefaultMaxReapplicationsPerDepartment = 5

// CheckReapplyEligibility decides whether a reapplication targeting the given
// department row is permitted. Read-only; no side effects.
//
// A completed form is terminal for reapplication regardless of the target
// department's state, so that check runs before the per-row state check.
func CheckReapplyEligibility(form *models.NoDuesForm, row *models.DepartmentStatus, maxPerDepartment int) error {
	if maxPerDepartment <= 0 {
		maxPerDepartment = DefaultMaxReapplicationsPerDepartment
	}
	if row == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "no clearance record exists for this department")
	}
	if form.Status == models.FormStatusCompleted {
		return appErrors.ErrFormTerminal
	}
	if row.Status != models.DepartmentStatusRejected {
		return appErrors.Clone(appErrors.ErrInvalidState,
			fmt.Sprintf("department %q is %s, not rejected", row.DepartmentName, row.Status))
	}
	if row.RejectionCount >= maxPerDepartment {
		return appErrors.Clone(appErrors.ErrLimitExceeded,
			fmt.Sprintf("department %q has reached the maximum of %d reapplications", row.DepartmentName, maxPerDepartment))
	}
	return nil
}
