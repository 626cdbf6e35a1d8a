package service

import "github.com/noah-isme/nodues-go-api/internal/models"

// ResolveFormStatus derives the aggregate form status from the full set of
// per-department rows. Pure; the reapplication path deliberately bypasses it
// (see ReapplyForcesFormPending).
func ResolveFormStatus(rows []models.DepartmentStatus) models.FormStatus {
	if len(rows) == 0 {
		return models.FormStatusPending
	}

	approved := 0
	for _, row := range rows {
		switch row.Status {
		case models.DepartmentStatusRejected:
			return models.FormStatusRejected
		case models.DepartmentStatusApproved:
			approved++
		}
	}

	switch {
	case approved == len(rows):
		return models.FormStatusCompleted
	case approved > 0:
		return models.FormStatusInProgress
	default:
		return models.FormStatusPending
	}
}
