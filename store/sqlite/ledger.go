package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/garnzell/riding-school/school"
)

// =============================================================================
// REPORT LEDGER
// =============================================================================

// LogPrintedReport records an issued card. The first row per
// (student, milestone) wins; later calls are no-ops and report false.
func (q *queries) LogPrintedReport(ctx context.Context, r school.PrintedReport) (bool, error) {
	printedAt := r.PrintedAt
	if printedAt.IsZero() {
		printedAt = time.Now()
	}
	res, err := q.q.ExecContext(ctx, `
		INSERT INTO printed_reports_log (student_id, milestone, printed_at, document_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(student_id, milestone) DO NOTHING`,
		r.StudentID, r.Milestone, printedAt.UTC().Format(time.RFC3339), r.DocumentID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to log printed report: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// PrintedMilestones returns the issued milestones of every student.
func (q *queries) PrintedMilestones(ctx context.Context) (map[school.StudentID]map[int]bool, error) {
	rows, err := q.q.QueryContext(ctx, `SELECT student_id, milestone FROM printed_reports_log`)
	if err != nil {
		return nil, fmt.Errorf("failed to query printed reports: %w", err)
	}
	defer rows.Close()

	printed := make(map[school.StudentID]map[int]bool)
	for rows.Next() {
		var (
			id        school.StudentID
			milestone int
		)
		if err := rows.Scan(&id, &milestone); err != nil {
			return nil, err
		}
		if printed[id] == nil {
			printed[id] = make(map[int]bool)
		}
		printed[id][milestone] = true
	}
	return printed, rows.Err()
}

// PrintedReports returns a student's ledger rows by milestone.
func (q *queries) PrintedReports(ctx context.Context, studentID school.StudentID) ([]school.PrintedReport, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT student_id, milestone, printed_at, document_id
		FROM printed_reports_log
		WHERE student_id = ?
		ORDER BY milestone`, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query printed reports: %w", err)
	}
	defer rows.Close()

	var reports []school.PrintedReport
	for rows.Next() {
		var (
			r         school.PrintedReport
			printedAt string
		)
		if err := rows.Scan(&r.StudentID, &r.Milestone, &printedAt, &r.DocumentID); err != nil {
			return nil, err
		}
		r.PrintedAt = parseTimestamp(printedAt)
		reports = append(reports, r)
	}
	return reports, rows.Err()
}
