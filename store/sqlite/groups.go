package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/garnzell/riding-school/school"
)

// =============================================================================
// GROUP STORE
// =============================================================================

const groupColumns = `id, name, description, weekday, time, created_at`

func (q *queries) CreateGroup(ctx context.Context, g school.RiderGroup) (school.GroupID, error) {
	res, err := q.q.ExecContext(ctx,
		`INSERT INTO rider_groups (name, description, weekday, time, created_at) VALUES (?, ?, ?, ?, ?)`,
		g.Name, g.Description, int(g.Weekday), string(g.Time), now(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create rider group: %w", err)
	}
	id, err := res.LastInsertId()
	return school.GroupID(id), err
}

func (q *queries) GetGroup(ctx context.Context, id school.GroupID) (*school.RiderGroup, error) {
	rows, err := q.q.QueryContext(ctx, `SELECT `+groupColumns+` FROM rider_groups WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	groups, err := scanGroups(rows)
	if err != nil || len(groups) == 0 {
		return nil, err
	}
	return &groups[0], nil
}

// ListGroups returns all groups in weekly order.
func (q *queries) ListGroups(ctx context.Context) ([]school.RiderGroup, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT `+groupColumns+` FROM rider_groups ORDER BY weekday, time, name`)
	if err != nil {
		return nil, err
	}
	return scanGroups(rows)
}

func (q *queries) GroupsByWeekday(ctx context.Context, weekday time.Weekday) ([]school.RiderGroup, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT `+groupColumns+` FROM rider_groups WHERE weekday = ? ORDER BY time, name`, int(weekday))
	if err != nil {
		return nil, err
	}
	return scanGroups(rows)
}

func (q *queries) UpdateGroup(ctx context.Context, g school.RiderGroup) error {
	res, err := q.q.ExecContext(ctx,
		`UPDATE rider_groups SET name = ?, description = ?, weekday = ?, time = ? WHERE id = ?`,
		g.Name, g.Description, int(g.Weekday), string(g.Time), g.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update rider group: %w", err)
	}
	return affectedOrNotFound(res, school.ErrGroupNotFound)
}

// DeleteGroup removes a group with its members and cancellations.
func (q *queries) DeleteGroup(ctx context.Context, id school.GroupID) error {
	res, err := q.q.ExecContext(ctx, `DELETE FROM rider_groups WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rider group: %w", err)
	}
	return affectedOrNotFound(res, school.ErrGroupNotFound)
}

func scanGroups(rows *sql.Rows) ([]school.RiderGroup, error) {
	defer rows.Close()

	var groups []school.RiderGroup
	for rows.Next() {
		var (
			g         school.RiderGroup
			weekday   int
			t         string
			createdAt string
		)
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &weekday, &t, &createdAt); err != nil {
			return nil, err
		}
		g.Weekday = time.Weekday(weekday)
		g.Time = school.TimeOfDay(t)
		g.CreatedAt = parseTimestamp(createdAt)
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// =============================================================================
// MEMBERSHIP
// =============================================================================

func (q *queries) GroupMembers(ctx context.Context, id school.GroupID) ([]school.GroupMember, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT m.group_id, m.student_id, s.name
		FROM rider_group_members m
		JOIN students s ON m.student_id = s.id
		WHERE m.group_id = ?
		ORDER BY s.name`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query group members: %w", err)
	}
	defer rows.Close()

	var members []school.GroupMember
	for rows.Next() {
		var m school.GroupMember
		if err := rows.Scan(&m.GroupID, &m.StudentID, &m.StudentName); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// ReplaceMembers sets the member list of a group. Callers run it inside WithTx.
func (q *queries) ReplaceMembers(ctx context.Context, id school.GroupID, studentIDs []school.StudentID) error {
	if _, err := q.q.ExecContext(ctx, `DELETE FROM rider_group_members WHERE group_id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear group members: %w", err)
	}
	for _, sid := range studentIDs {
		_, err := q.q.ExecContext(ctx,
			`INSERT OR IGNORE INTO rider_group_members (group_id, student_id) VALUES (?, ?)`, id, sid)
		if err != nil {
			if isForeignKeyError(err) {
				return fmt.Errorf("student %d: %w", sid, school.ErrUnknownStudent)
			}
			return fmt.Errorf("failed to add group member: %w", err)
		}
	}
	return nil
}

func (q *queries) IsMember(ctx context.Context, id school.GroupID, studentID school.StudentID) (bool, error) {
	var member bool
	err := q.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM rider_group_members WHERE group_id = ? AND student_id = ?)`,
		id, studentID,
	).Scan(&member)
	return member, err
}

// =============================================================================
// CANCELLATION STORE
// =============================================================================

func (q *queries) CancelledStudents(ctx context.Context, groupID school.GroupID, date school.Date) ([]school.StudentID, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT student_id FROM group_cancellations WHERE group_id = ? AND date = ? ORDER BY student_id`,
		groupID, date.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query cancellations: %w", err)
	}
	defer rows.Close()

	ids := []school.StudentID{}
	for rows.Next() {
		var id school.StudentID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (q *queries) HasCancellation(ctx context.Context, groupID school.GroupID, studentID school.StudentID, date school.Date) (bool, error) {
	var exists bool
	err := q.q.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM group_cancellations WHERE group_id = ? AND student_id = ? AND date = ?)`,
		groupID, studentID, date.String(),
	).Scan(&exists)
	return exists, err
}

func (q *queries) InsertCancellation(ctx context.Context, c school.Cancellation) error {
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO group_cancellations (group_id, student_id, date, created_at) VALUES (?, ?, ?, ?)`,
		c.GroupID, c.StudentID, c.Date.String(), now(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert cancellation: %w", err)
	}
	return nil
}

func (q *queries) DeleteCancellation(ctx context.Context, groupID school.GroupID, studentID school.StudentID, date school.Date) error {
	_, err := q.q.ExecContext(ctx,
		`DELETE FROM group_cancellations WHERE group_id = ? AND student_id = ? AND date = ?`,
		groupID, studentID, date.String())
	if err != nil {
		return fmt.Errorf("failed to delete cancellation: %w", err)
	}
	return nil
}
