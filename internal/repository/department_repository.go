package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/nodues-go-api/internal/models"
)

// DepartmentRepository reads the active departments catalog. The catalog is
// owned by the admin side of the portal; the clearance core only reads it.
type DepartmentRepository struct {
	db *sqlx.DB
}

// NewDepartmentRepository constructs the repository.
func NewDepartmentRepository(db *sqlx.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

// ListActive returns active departments in display order.
func (r *DepartmentRepository) ListActive(ctx context.Context) ([]models.Department, error) {
	const query = `SELECT id, name, is_active, sort_order, created_at
	FROM departments
	WHERE is_active = TRUE
	ORDER BY sort_order, name`
	var departments []models.Department
	if err := r.db.SelectContext(ctx, &departments, query); err != nil {
		return nil, fmt.Errorf("list active departments: %w", err)
	}
	return departments, nil
}
