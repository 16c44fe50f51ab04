package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garnzell/riding-school/school"
)

// =============================================================================
// LESSON STORE (write-once history)
// =============================================================================

// countedFilter is appended to lesson queries; its single argument is
// CountPolicy.ExcludeSingleLessons.
const countedFilter = `(? = 0 OR l.is_single_lesson = 0)`

const lessonColumns = `
	l.id, l.student_id, l.horse_id, l.date, l.notes, l.is_single_lesson,
	s.name, h.name`

// InsertLesson appends a lesson. There is no update.
func (q *queries) InsertLesson(ctx context.Context, l school.Lesson) (school.LessonID, error) {
	res, err := q.q.ExecContext(ctx, `
		INSERT INTO lessons (student_id, horse_id, date, notes, is_single_lesson, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		l.StudentID, l.HorseID, l.Date.String(), l.Notes, l.IsSingleLesson, now(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert lesson for student %d: %w", l.StudentID, err)
	}
	id, err := res.LastInsertId()
	return school.LessonID(id), err
}

// CountLessons returns the counted lessons of a student.
func (q *queries) CountLessons(ctx context.Context, studentID school.StudentID, policy school.CountPolicy) (int, error) {
	var count int
	err := q.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM lessons l WHERE l.student_id = ? AND `+countedFilter,
		studentID, policy.ExcludeSingleLessons,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count lessons: %w", err)
	}
	return count, nil
}

// ListLessons returns every lesson, newest first.
func (q *queries) ListLessons(ctx context.Context) ([]school.Lesson, error) {
	return q.queryLessons(ctx, `
		SELECT `+lessonColumns+`
		FROM lessons l
		JOIN students s ON l.student_id = s.id
		JOIN horses h ON l.horse_id = h.id
		ORDER BY l.date DESC, l.id DESC`)
}

// CardLessons returns the block of lessons printed on one card.
func (q *queries) CardLessons(ctx context.Context, studentID school.StudentID, offset int, policy school.CountPolicy) ([]school.Lesson, error) {
	return q.queryLessons(ctx, `
		SELECT `+lessonColumns+`
		FROM lessons l
		JOIN students s ON l.student_id = s.id
		JOIN horses h ON l.horse_id = h.id
		WHERE l.student_id = ? AND `+countedFilter+`
		ORDER BY l.date ASC, l.id ASC
		LIMIT ? OFFSET ?`,
		studentID, policy.ExcludeSingleLessons, school.LessonsPerCard, offset)
}

// LessonTotals returns counted totals for every student with lessons.
func (q *queries) LessonTotals(ctx context.Context, policy school.CountPolicy) ([]school.LessonTotal, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT l.student_id, s.name, COUNT(l.id)
		FROM lessons l
		JOIN students s ON l.student_id = s.id
		WHERE `+countedFilter+`
		GROUP BY l.student_id, s.name
		ORDER BY s.name`,
		policy.ExcludeSingleLessons,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query lesson totals: %w", err)
	}
	defer rows.Close()

	var totals []school.LessonTotal
	for rows.Next() {
		var t school.LessonTotal
		if err := rows.Scan(&t.StudentID, &t.StudentName, &t.Total); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

func (q *queries) queryLessons(ctx context.Context, query string, args ...any) ([]school.Lesson, error) {
	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query lessons: %w", err)
	}
	defer rows.Close()

	var lessons []school.Lesson
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, err
		}
		lessons = append(lessons, l)
	}
	return lessons, rows.Err()
}

func scanLesson(rows *sql.Rows) (school.Lesson, error) {
	var (
		l    school.Lesson
		date string
	)
	if err := rows.Scan(&l.ID, &l.StudentID, &l.HorseID, &date, &l.Notes, &l.IsSingleLesson,
		&l.StudentName, &l.HorseName); err != nil {
		return l, fmt.Errorf("failed to scan lesson: %w", err)
	}
	d, err := parseDate(date)
	if err != nil {
		return l, err
	}
	l.Date = d
	return l, nil
}
