package models

import "time"

// DepartmentStatusValue is one department's decision on a form.
type DepartmentStatusValue string

const (
	DepartmentStatusPending  DepartmentStatusValue = "pending"
	DepartmentStatusApproved DepartmentStatusValue = "approved"
	DepartmentStatusRejected DepartmentStatusValue = "rejected"
)

// DepartmentStatus is one row of no_dues_status: exactly one row exists per
// form x active department, created at form submission time.
type DepartmentStatus struct {
	ID             string                `db:"id" json:"id"`
	FormID         string                `db:"form_id" json:"form_id"`
	DepartmentName string                `db:"department_name" json:"department_name"`
	Status         DepartmentStatusValue `db:"status" json:"status"`

	RejectionReason *string `db:"rejection_reason" json:"rejection_reason,omitempty"`

	// RejectionCount counts accepted reapplication round trips for this
	// department, not raw rejections: it is incremented when a rejected row
	// is reset back to pending by the reapplication processor.
	RejectionCount int `db:"rejection_count" json:"rejection_count"`

	ActionAt       *time.Time `db:"action_at" json:"action_at,omitempty"`
	ActionByUserID *string    `db:"action_by_user_id" json:"action_by_user_id,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// DepartmentStatusSnapshot is the forensic copy of one row stored inside a
// reapplication history entry.
type DepartmentStatusSnapshot struct {
	DepartmentName  string                `json:"department_name"`
	Status          DepartmentStatusValue `json:"status"`
	RejectionReason *string               `json:"rejection_reason,omitempty"`
	RejectionCount  int                   `json:"rejection_count"`
}

// SnapshotDepartmentStatuses flattens live rows into history snapshots.
func SnapshotDepartmentStatuses(rows []DepartmentStatus) []DepartmentStatusSnapshot {
	snapshots := make([]DepartmentStatusSnapshot, 0, len(rows))
	for _, row := range rows {
		snapshots = append(snapshots, DepartmentStatusSnapshot{
			DepartmentName:  row.DepartmentName,
			Status:          row.Status,
			RejectionReason: row.RejectionReason,
			RejectionCount:  row.RejectionCount,
		})
	}
	return snapshots
}
