package dto

import (
	"time"

	"github.com/noah-isme/nodues-go-api/internal/models"
)

// SubmitReapplicationRequest is the per-department reapplication payload.
type SubmitReapplicationRequest struct {
	RegistrationNo      string            `json:"registration_no" binding:"required"`
	DepartmentName      string            `json:"department_name" binding:"required"`
	StudentReplyMessage string            `json:"student_reply_message" binding:"required"`
	UpdatedFormData     map[string]string `json:"updated_form_data,omitempty"`
}

// ReapplicationOutcome reports an accepted reapplication.
type ReapplicationOutcome struct {
	Department           string            `json:"department"`
	ReapplicationAttempt int               `json:"reapplication_attempt"`
	RemainingAttempts    int               `json:"remaining_attempts"`
	FormStatus           models.FormStatus `json:"form_status"`
}

// DepartmentReapplyState describes one department row from the student's
// point of view: current decision plus how many attempts remain.
type DepartmentReapplyState struct {
	DepartmentName    string                       `json:"department_name"`
	Status            models.DepartmentStatusValue `json:"status"`
	RejectionReason   *string                      `json:"rejection_reason,omitempty"`
	RejectionCount    int                          `json:"rejection_count"`
	RemainingAttempts int                          `json:"remaining_attempts"`
	CanReapply        bool                         `json:"can_reapply"`
	ActionAt          *time.Time                   `json:"action_at,omitempty"`
}

// ReapplicationStatusResponse answers the read-only eligibility/history query.
type ReapplicationStatusResponse struct {
	FormID                   string                             `json:"form_id"`
	RegistrationNo           string                             `json:"registration_no"`
	FormStatus               models.FormStatus                  `json:"form_status"`
	GlobalReapplicationCount int                                `json:"global_reapplication_count"`
	Departments              []DepartmentReapplyState           `json:"departments"`
	PerDepartmentHistory     []models.ReapplicationHistoryEntry `json:"per_department_history"`
}

// DepartmentActionRequest carries a staff approve/reject decision. Reason is
// required for rejections only.
type DepartmentActionRequest struct {
	Reason string `json:"reason"`
}

// DepartmentActionResult reports the row and aggregate outcome of an action.
type DepartmentActionResult struct {
	DepartmentName   string                       `json:"department_name"`
	DepartmentStatus models.DepartmentStatusValue `json:"department_status"`
	FormStatus       models.FormStatus            `json:"form_status"`
	CertificateID    string                       `json:"certificate_id,omitempty"`
}

// FormDetail bundles a form with its department rows for detail views.
type FormDetail struct {
	Form        models.NoDuesForm         `json:"form"`
	Departments []models.DepartmentStatus `json:"departments"`
	Certificate *models.Certificate       `json:"certificate,omitempty"`
}

// FormListQuery mirrors supported staff queue filters.
type FormListQuery struct {
	DepartmentName string
	Status         string
	Search         string
	Page           int
	PageSize       int
}

// CertificateDownload carries a signed download token for an issued
// certificate.
type CertificateDownload struct {
	SerialNo  string    `json:"serial_no"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
