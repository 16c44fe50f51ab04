package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/garnzell/riding-school/school"
)

// =============================================================================
// SLOT STORE
// =============================================================================

func (q *queries) InsertSlot(ctx context.Context, date school.Date, t school.TimeOfDay) (school.SlotID, error) {
	res, err := q.q.ExecContext(ctx,
		`INSERT INTO schedule_slots (date, time, created_at) VALUES (?, ?, ?)`,
		date.String(), string(t), now(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert slot: %w", err)
	}
	id, err := res.LastInsertId()
	return school.SlotID(id), err
}

func (q *queries) UpdateSlot(ctx context.Context, id school.SlotID, date school.Date, t school.TimeOfDay) error {
	res, err := q.q.ExecContext(ctx,
		`UPDATE schedule_slots SET date = ?, time = ? WHERE id = ?`,
		date.String(), string(t), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update slot: %w", err)
	}
	return affectedOrNotFound(res, school.ErrSlotNotFound)
}

// DeleteSlot removes a slot; participants go with it.
func (q *queries) DeleteSlot(ctx context.Context, id school.SlotID) error {
	res, err := q.q.ExecContext(ctx, `DELETE FROM schedule_slots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete slot: %w", err)
	}
	return affectedOrNotFound(res, school.ErrSlotNotFound)
}

// GetSlot returns a slot with its participants. Returns nil if missing.
func (q *queries) GetSlot(ctx context.Context, id school.SlotID) (*school.Slot, error) {
	var (
		slot school.Slot
		date string
		t    string
	)
	err := q.q.QueryRowContext(ctx, `SELECT id, date, time FROM schedule_slots WHERE id = ?`, id).
		Scan(&slot.ID, &date, &t)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if slot.Date, err = parseDate(date); err != nil {
		return nil, err
	}
	slot.Time = school.TimeOfDay(t)

	participants, err := q.queryParticipants(ctx, `WHERE p.slot_id = ?`, id)
	if err != nil {
		return nil, err
	}
	slot.Participants = participants[id]
	if slot.Participants == nil {
		slot.Participants = []school.Participant{}
	}
	return &slot, nil
}

// SlotsForDate returns the day's slots ordered by time, each with participants.
func (q *queries) SlotsForDate(ctx context.Context, date school.Date) ([]school.Slot, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT id, time FROM schedule_slots WHERE date = ? ORDER BY time, id`, date.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query slots: %w", err)
	}

	var slots []school.Slot
	for rows.Next() {
		slot := school.Slot{Date: date}
		var t string
		if err := rows.Scan(&slot.ID, &t); err != nil {
			rows.Close()
			return nil, err
		}
		slot.Time = school.TimeOfDay(t)
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	participants, err := q.queryParticipants(ctx,
		`WHERE p.slot_id IN (SELECT id FROM schedule_slots WHERE date = ?)`, date.String())
	if err != nil {
		return nil, err
	}
	for i := range slots {
		slots[i].Participants = participants[slots[i].ID]
		if slots[i].Participants == nil {
			slots[i].Participants = []school.Participant{}
		}
	}
	return slots, nil
}

func (q *queries) queryParticipants(ctx context.Context, where string, args ...any) (map[school.SlotID][]school.Participant, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT p.slot_id, p.student_id, s.name, p.horse_id, h.name
		FROM schedule_participants p
		JOIN students s ON p.student_id = s.id
		JOIN horses h ON p.horse_id = h.id
		`+where+`
		ORDER BY s.name`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants: %w", err)
	}
	defer rows.Close()

	bySlot := make(map[school.SlotID][]school.Participant)
	for rows.Next() {
		var p school.Participant
		if err := rows.Scan(&p.SlotID, &p.StudentID, &p.StudentName, &p.HorseID, &p.HorseName); err != nil {
			return nil, err
		}
		bySlot[p.SlotID] = append(bySlot[p.SlotID], p)
	}
	return bySlot, rows.Err()
}

// =============================================================================
// PARTICIPANTS
// =============================================================================

// InsertParticipant adds a pair to a slot. The schema rejects a second row
// for the same student or the same horse in one slot; the returned
// DuplicateParticipantError leaves Index for the caller to set.
func (q *queries) InsertParticipant(ctx context.Context, slotID school.SlotID, p school.Pair) error {
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO schedule_participants (slot_id, student_id, horse_id) VALUES (?, ?, ?)`,
		slotID, p.StudentID, p.HorseID,
	)
	switch {
	case err == nil:
		return nil
	case isUniqueConstraintError(err) && strings.Contains(err.Error(), "horse_id"):
		return &school.DuplicateParticipantError{StudentID: p.StudentID, HorseID: p.HorseID, Kind: school.ErrDuplicateHorse}
	case isUniqueConstraintError(err):
		return &school.DuplicateParticipantError{StudentID: p.StudentID, HorseID: p.HorseID, Kind: school.ErrDuplicateStudent}
	case isForeignKeyError(err):
		return fmt.Errorf("participant (student %d, horse %d) references a missing row: %w", p.StudentID, p.HorseID, err)
	default:
		return fmt.Errorf("failed to insert participant: %w", err)
	}
}

// ClearParticipants removes every participant of a slot.
func (q *queries) ClearParticipants(ctx context.Context, slotID school.SlotID) error {
	if _, err := q.q.ExecContext(ctx, `DELETE FROM schedule_participants WHERE slot_id = ?`, slotID); err != nil {
		return fmt.Errorf("failed to clear participants: %w", err)
	}
	return nil
}

func (q *queries) DeleteParticipant(ctx context.Context, slotID school.SlotID, studentID school.StudentID) error {
	res, err := q.q.ExecContext(ctx,
		`DELETE FROM schedule_participants WHERE slot_id = ? AND student_id = ?`, slotID, studentID)
	if err != nil {
		return fmt.Errorf("failed to delete participant: %w", err)
	}
	return affectedOrNotFound(res, school.ErrParticipantNotFound)
}

func (q *queries) CountParticipants(ctx context.Context, slotID school.SlotID) (int, error) {
	var n int
	err := q.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM schedule_participants WHERE slot_id = ?`, slotID).Scan(&n)
	return n, err
}
