package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/nodues-go-api/internal/models"
)

// StaffRepository reads staff profiles for notification scoping.
type StaffRepository struct {
	db *sqlx.DB
}

// NewStaffRepository constructs the repository.
func NewStaffRepository(db *sqlx.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// ListActiveByDepartment returns active staff assigned to the department,
// including school-HOD profiles whose scope is narrowed later by the
// notification service.
func (r *StaffRepository) ListActiveByDepartment(ctx context.Context, departmentName string) ([]models.StaffProfile, error) {
	const query = `SELECT id, full_name, email, department_name, role,
       assigned_schools, assigned_courses, active, created_at
	FROM staff_profiles
	WHERE department_name = $1 AND active = TRUE
	ORDER BY full_name`
	var staff []models.StaffProfile
	if err := r.db.SelectContext(ctx, &staff, query, departmentName); err != nil {
		return nil, fmt.Errorf("list staff by department: %w", err)
	}
	return staff, nil
}
