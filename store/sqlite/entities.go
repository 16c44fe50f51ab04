package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garnzell/riding-school/school"
)

// =============================================================================
// STUDENT STORE
// =============================================================================

// CreateStudent inserts a student. Names are unique.
func (q *queries) CreateStudent(ctx context.Context, s school.Student) (school.StudentID, error) {
	res, err := q.q.ExecContext(ctx,
		`INSERT INTO students (name, contact_info, is_member, is_youth, created_at) VALUES (?, ?, ?, ?, ?)`,
		s.Name, s.ContactInfo, s.IsMember, s.IsYouth, now(),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return 0, fmt.Errorf("student %q: %w", s.Name, school.ErrDuplicateName)
		}
		return 0, fmt.Errorf("failed to create student: %w", err)
	}
	id, err := res.LastInsertId()
	return school.StudentID(id), err
}

// GetStudent retrieves a student by ID. Returns nil if missing.
func (q *queries) GetStudent(ctx context.Context, id school.StudentID) (*school.Student, error) {
	var s school.Student
	var createdAt string
	err := q.q.QueryRowContext(ctx,
		`SELECT id, name, contact_info, is_member, is_youth, created_at FROM students WHERE id = ?`, id,
	).Scan(&s.ID, &s.Name, &s.ContactInfo, &s.IsMember, &s.IsYouth, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.CreatedAt = parseTimestamp(createdAt)
	return &s, nil
}

// ListStudents returns all students ordered by name.
func (q *queries) ListStudents(ctx context.Context) ([]school.Student, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT id, name, contact_info, is_member, is_youth, created_at FROM students ORDER BY name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []school.Student
	for rows.Next() {
		var s school.Student
		var createdAt string
		if err := rows.Scan(&s.ID, &s.Name, &s.ContactInfo, &s.IsMember, &s.IsYouth, &createdAt); err != nil {
			return nil, err
		}
		s.CreatedAt = parseTimestamp(createdAt)
		students = append(students, s)
	}
	return students, rows.Err()
}

// UpdateStudent overwrites the editable fields of a student.
func (q *queries) UpdateStudent(ctx context.Context, s school.Student) error {
	res, err := q.q.ExecContext(ctx,
		`UPDATE students SET name = ?, contact_info = ?, is_member = ?, is_youth = ? WHERE id = ?`,
		s.Name, s.ContactInfo, s.IsMember, s.IsYouth, s.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("student %q: %w", s.Name, school.ErrDuplicateName)
		}
		return fmt.Errorf("failed to update student: %w", err)
	}
	return affectedOrNotFound(res, school.ErrStudentNotFound)
}

// DeleteStudent removes a student with lessons, participations, memberships,
// cancellations and ledger rows.
func (q *queries) DeleteStudent(ctx context.Context, id school.StudentID) error {
	res, err := q.q.ExecContext(ctx, `DELETE FROM students WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete student: %w", err)
	}
	return affectedOrNotFound(res, school.ErrStudentNotFound)
}

// =============================================================================
// HORSE STORE
// =============================================================================

func (q *queries) CreateHorse(ctx context.Context, h school.Horse) (school.HorseID, error) {
	res, err := q.q.ExecContext(ctx, `INSERT INTO horses (name, breed) VALUES (?, ?)`, h.Name, h.Breed)
	if err != nil {
		if isUniqueConstraintError(err) {
			return 0, fmt.Errorf("horse %q: %w", h.Name, school.ErrDuplicateName)
		}
		return 0, fmt.Errorf("failed to create horse: %w", err)
	}
	id, err := res.LastInsertId()
	return school.HorseID(id), err
}

func (q *queries) GetHorse(ctx context.Context, id school.HorseID) (*school.Horse, error) {
	var h school.Horse
	err := q.q.QueryRowContext(ctx, `SELECT id, name, breed FROM horses WHERE id = ?`, id).
		Scan(&h.ID, &h.Name, &h.Breed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (q *queries) ListHorses(ctx context.Context) ([]school.Horse, error) {
	rows, err := q.q.QueryContext(ctx, `SELECT id, name, breed FROM horses ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var horses []school.Horse
	for rows.Next() {
		var h school.Horse
		if err := rows.Scan(&h.ID, &h.Name, &h.Breed); err != nil {
			return nil, err
		}
		horses = append(horses, h)
	}
	return horses, rows.Err()
}

func (q *queries) UpdateHorse(ctx context.Context, h school.Horse) error {
	res, err := q.q.ExecContext(ctx, `UPDATE horses SET name = ?, breed = ? WHERE id = ?`, h.Name, h.Breed, h.ID)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("horse %q: %w", h.Name, school.ErrDuplicateName)
		}
		return fmt.Errorf("failed to update horse: %w", err)
	}
	return affectedOrNotFound(res, school.ErrHorseNotFound)
}

// DeleteHorse refuses to delete a horse that any lesson or slot still references.
func (q *queries) DeleteHorse(ctx context.Context, id school.HorseID) error {
	var inUse bool
	err := q.q.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM lessons WHERE horse_id = ?)
		    OR EXISTS (SELECT 1 FROM schedule_participants WHERE horse_id = ?)`,
		id, id,
	).Scan(&inUse)
	if err != nil {
		return fmt.Errorf("failed to check horse references: %w", err)
	}
	if inUse {
		return fmt.Errorf("horse %d: %w", id, school.ErrHorseInUse)
	}

	res, err := q.q.ExecContext(ctx, `DELETE FROM horses WHERE id = ?`, id)
	if err != nil {
		if isForeignKeyError(err) {
			return fmt.Errorf("horse %d: %w", id, school.ErrHorseInUse)
		}
		return fmt.Errorf("failed to delete horse: %w", err)
	}
	return affectedOrNotFound(res, school.ErrHorseNotFound)
}
