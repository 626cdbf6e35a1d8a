package models

import "time"

// FormStatus is the aggregate status of a clearance application.
type FormStatus string

const (
	FormStatusPending    FormStatus = "pending"
	FormStatusInProgress FormStatus = "in_progress"
	FormStatusCompleted  FormStatus = "completed"
	FormStatusRejected   FormStatus = "rejected"
	FormStatusReapplied  FormStatus = "reapplied"
)

// NoDuesForm is one student's clearance application. It aggregates the
// per-department decisions stored in no_dues_status.
type NoDuesForm struct {
	ID             string `db:"id" json:"id"`
	RegistrationNo string `db:"registration_no" json:"registration_no"`

	StudentName   string `db:"student_name" json:"student_name"`
	ParentName    string `db:"parent_name" json:"parent_name"`
	AdmissionYear string `db:"admission_year" json:"admission_year"`
	PassingYear   string `db:"passing_year" json:"passing_year"`
	School        string `db:"school" json:"school"`
	Course        string `db:"course" json:"course"`
	Branch        string `db:"branch" json:"branch"`
	CountryCode   string `db:"country_code" json:"country_code"`
	ContactNo     string `db:"contact_no" json:"contact_no"`
	PersonalEmail string `db:"personal_email" json:"personal_email"`
	CollegeEmail  string `db:"college_email" json:"college_email"`

	Status FormStatus `db:"status" json:"status"`

	// ReapplicationCount counts accepted reapplication attempts across all
	// departments. Monotonic, never reset.
	ReapplicationCount int        `db:"reapplication_count" json:"reapplication_count"`
	LastReappliedAt    *time.Time `db:"last_reapplied_at" json:"last_reapplied_at,omitempty"`
	IsReapplication    bool       `db:"is_reapplication" json:"is_reapplication"`

	// RejectionSnapshot holds the latest rejection context shown to the
	// student. Cleared when a reapplication is accepted.
	RejectionSnapshot []byte `db:"rejection_snapshot" json:"-"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// FormFilter constrains staff queue listings.
type FormFilter struct {
	DepartmentName string
	Status         FormStatus
	Search         string
	Page           int
	PageSize       int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
