// Package directory serves the department and officer read models that back
// the assignment pickers. Unlike reports, directory data lives only in the
// remote store; without a database the pickers fall back to free-text entry.
package directory

import (
	"context"

	"github.com/nagrik-gov/portal/internal/shared/database"
	apperrors "github.com/nagrik-gov/portal/internal/shared/errors"
)

// Department is a municipal department.
type Department struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Ward string `json:"ward,omitempty"`
}

// Officer is a field officer available for assignment.
type Officer struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Department string  `json:"department"`
	Phone      *string `json:"phone,omitempty"`
	Active     bool    `json:"active"`
}

// Service reads the directory tables.
type Service struct {
	db *database.DB
}

// New creates a directory service.
func New(db *database.DB) *Service {
	return &Service{db: db}
}

// Departments returns all departments ordered by name.
func (s *Service) Departments(ctx context.Context) ([]Department, error) {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT id, name, ward FROM departments ORDER BY name`)
	if err != nil {
		return nil, apperrors.Wrap(err, "fetching departments")
	}
	defer rows.Close()

	var out []Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.Name, &d.Ward); err != nil {
			return nil, apperrors.Wrap(err, "scanning department")
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "iterating departments")
	}
	return out, nil
}

// Officers returns active officers, optionally filtered by department,
// ordered by name.
func (s *Service) Officers(ctx context.Context, department string) ([]Officer, error) {
	query := `SELECT id, name, department, phone, active FROM officers WHERE active ORDER BY name`
	args := []interface{}{}
	if department != "" {
		query = `SELECT id, name, department, phone, active FROM officers
			WHERE active AND department = $1 ORDER BY name`
		args = append(args, department)
	}

	rows, err := s.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "fetching officers")
	}
	defer rows.Close()

	var out []Officer
	for rows.Next() {
		var o Officer
		if err := rows.Scan(&o.ID, &o.Name, &o.Department, &o.Phone, &o.Active); err != nil {
			return nil, apperrors.Wrap(err, "scanning officer")
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "iterating officers")
	}
	return out, nil
}

// Officer returns one officer by id.
func (s *Service) Officer(ctx context.Context, id string) (*Officer, error) {
	var o Officer
	err := s.db.Pool.QueryRow(ctx,
		`SELECT id, name, department, phone, active FROM officers WHERE id = $1`, id,
	).Scan(&o.ID, &o.Name, &o.Department, &o.Phone, &o.Active)
	if err != nil {
		return nil, apperrors.NotFound("officer", id)
	}
	return &o, nil
}
