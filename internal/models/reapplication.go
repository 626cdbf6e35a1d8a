package models

import "time"

// ReapplicationHistoryEntry is the append-only audit row written before any
// live-state mutation of a reapplication. Never updated or deleted.
type ReapplicationHistoryEntry struct {
	ID     string `db:"id" json:"id"`
	FormID string `db:"form_id" json:"form_id"`

	// ReapplicationNumber is the form's global reapplication_count + 1 at
	// write time.
	ReapplicationNumber int `db:"reapplication_number" json:"reapplication_number"`

	// DepartmentName is nil for legacy whole-form reapplications and set for
	// per-department reapplications.
	DepartmentName *string `db:"department_name" json:"department_name,omitempty"`

	StudentMessage string `db:"student_message" json:"student_message"`

	// EditedFields holds the sanitized field->value map applied to the form.
	EditedFields []byte `db:"edited_fields" json:"edited_fields,omitempty"`

	// RejectedDepartments snapshots the specific rejection being addressed.
	RejectedDepartments []byte `db:"rejected_departments" json:"rejected_departments,omitempty"`

	// PreviousStatus snapshots all department rows at the moment of
	// reapplication, for forensic replay.
	PreviousStatus []byte `db:"previous_status" json:"previous_status,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// RejectedDepartmentSnapshot records the rejection a reapplication addresses.
type RejectedDepartmentSnapshot struct {
	DepartmentName string     `json:"department_name"`
	Reason         string     `json:"reason,omitempty"`
	RejectedAt     *time.Time `json:"rejected_at,omitempty"`
}
