package models

import (
	"time"

	"github.com/lib/pq"
)

// StaffRole distinguishes generic department staff from school-scoped HODs.
type StaffRole string

const (
	StaffRoleDepartment StaffRole = "department_staff"
	StaffRoleSchoolHOD  StaffRole = "school_hod"
)

// StaffProfile is a staff member eligible to receive clearance notifications
// and act on department rows.
type StaffProfile struct {
	ID             string    `db:"id" json:"id"`
	FullName       string    `db:"full_name" json:"full_name"`
	Email          string    `db:"email" json:"email"`
	DepartmentName string    `db:"department_name" json:"department_name"`
	Role           StaffRole `db:"role" json:"role"`

	// AssignedSchools/AssignedCourses restrict school-HOD staff to students
	// within those schools/courses. Empty means unrestricted.
	AssignedSchools pq.StringArray `db:"assigned_schools" json:"assigned_schools"`
	AssignedCourses pq.StringArray `db:"assigned_courses" json:"assigned_courses"`

	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
