package models

import "time"

// NotificationEventType enumerates outbox event kinds.
type NotificationEventType string

const (
	EventReapplicationProcessed NotificationEventType = "reapplication_processed"
	EventStatusChanged          NotificationEventType = "status_changed"
)

// OutboxStatus tracks delivery progress of an outbox entry.
type OutboxStatus string

const (
	OutboxStatusPending OutboxStatus = "pending"
	OutboxStatusSent    OutboxStatus = "sent"
	OutboxStatusFailed  OutboxStatus = "failed"
)

// NotificationOutboxEntry is a durable record of a notification to deliver.
// Written in the request path, drained asynchronously; a failed write is
// logged and never fails the originating operation.
type NotificationOutboxEntry struct {
	ID        string                `db:"id" json:"id"`
	EventType NotificationEventType `db:"event_type" json:"event_type"`
	Payload   []byte                `db:"payload" json:"payload"`
	Status    OutboxStatus          `db:"status" json:"status"`
	Attempts  int                   `db:"attempts" json:"attempts"`
	LastError *string               `db:"last_error" json:"last_error,omitempty"`
	CreatedAt time.Time             `db:"created_at" json:"created_at"`
	SentAt    *time.Time            `db:"sent_at" json:"sent_at,omitempty"`
}

// NotificationEvent is the payload handed to the notification dispatcher
// boundary. Recipient scoping is by department name; school/course narrow
// the audience for school-HOD staff.
type NotificationEvent struct {
	Type           NotificationEventType `json:"type"`
	FormID         string                `json:"form_id"`
	RegistrationNo string                `json:"registration_no"`
	DepartmentName string                `json:"department_name"`
	StudentName    string                `json:"student_name"`
	School         string                `json:"school"`
	Course         string                `json:"course"`
	Branch         string                `json:"branch"`

	// Reapplication context (EventReapplicationProcessed).
	Message           string `json:"message,omitempty"`
	AttemptNumber     int    `json:"attempt_number,omitempty"`
	RemainingAttempts int    `json:"remaining_attempts,omitempty"`

	// Status-change context (EventStatusChanged).
	NewDepartmentStatus DepartmentStatusValue `json:"new_department_status,omitempty"`
	NewFormStatus       FormStatus            `json:"new_form_status,omitempty"`
}
