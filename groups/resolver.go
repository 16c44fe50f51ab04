/*
resolver.go - Rider groups and per-date rosters

PURPOSE:
  Rider groups are weekly cohorts ("Wednesday 17:00 beginners"). When the
  schedule for a date is built, the groups meeting on that weekday are
  offered, and a group's roster pre-fills a slot minus the riders who
  cancelled for that specific date.

WEEKDAYS:
  time.Weekday convention, 0 = Sunday. A date resolves to its groups through
  date.Weekday() and nothing else; there are no exceptions or holidays.

CANCELLATIONS:
  A cancellation is a (group, student, date) triple. Toggling flips it:
  present -> removed, absent -> created. Two toggles are a no-op.
  Only members of the group can be cancelled.

SEE ALSO:
  - schedule/mutator.go: Turns the active roster into a slot
*/
package groups

import (
	"context"
	"fmt"

	"github.com/garnzell/riding-school/school"
	"github.com/rs/zerolog"
)

// Roster is a group's membership for one date.
type Roster struct {
	Group     school.RiderGroup
	Date      school.Date
	Members   []school.GroupMember // ordered by name
	Cancelled []school.StudentID
}

// IsCancelled reports whether the student cancelled this occurrence.
func (r *Roster) IsCancelled(id school.StudentID) bool {
	for _, c := range r.Cancelled {
		if c == id {
			return true
		}
	}
	return false
}

// Active returns the members who did not cancel, in roster order.
func (r *Roster) Active() []school.GroupMember {
	active := make([]school.GroupMember, 0, len(r.Members))
	for _, m := range r.Members {
		if !r.IsCancelled(m.StudentID) {
			active = append(active, m)
		}
	}
	return active
}

// Resolver manages rider groups, membership and cancellations.
type Resolver struct {
	store school.TxRunner
	log   zerolog.Logger
}

func NewResolver(store school.TxRunner, log zerolog.Logger) *Resolver {
	return &Resolver{
		store: store,
		log:   log.With().Str("component", "groups").Logger(),
	}
}

// =============================================================================
// DATE RESOLUTION
// =============================================================================

// GroupsForDate returns the groups meeting on date's weekday, by time then name.
func (r *Resolver) GroupsForDate(ctx context.Context, date school.Date) ([]school.RiderGroup, error) {
	if date.IsZero() {
		return nil, school.ErrInvalidDate
	}
	groups, err := r.store.GroupsByWeekday(ctx, date.Weekday())
	if err != nil {
		return nil, fmt.Errorf("failed to load groups for %s: %w", date, err)
	}
	if groups == nil {
		groups = []school.RiderGroup{}
	}
	return groups, nil
}

// LoadForSchedule returns the roster and cancellations of a group on date.
func (r *Resolver) LoadForSchedule(ctx context.Context, id school.GroupID, date school.Date) (*Roster, error) {
	if date.IsZero() {
		return nil, school.ErrInvalidDate
	}

	g, err := r.store.GetGroup(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load group %d: %w", id, err)
	}
	if g == nil {
		return nil, school.ErrGroupNotFound
	}

	members, err := r.store.GroupMembers(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load members of group %d: %w", id, err)
	}
	if members == nil {
		members = []school.GroupMember{}
	}

	cancelled, err := r.store.CancelledStudents(ctx, id, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load cancellations of group %d: %w", id, err)
	}

	return &Roster{Group: *g, Date: date, Members: members, Cancelled: cancelled}, nil
}

// Cancellations returns the students who cancelled the group on date.
func (r *Resolver) Cancellations(ctx context.Context, id school.GroupID, date school.Date) ([]school.StudentID, error) {
	if date.IsZero() {
		return nil, school.ErrInvalidDate
	}
	g, err := r.store.GetGroup(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load group %d: %w", id, err)
	}
	if g == nil {
		return nil, school.ErrGroupNotFound
	}
	return r.store.CancelledStudents(ctx, id, date)
}

// ToggleCancellation flips the cancellation of a student for date and
// returns whether the student is now cancelled. Only members can be
// cancelled; an existing cancellation is always removable.
func (r *Resolver) ToggleCancellation(ctx context.Context, id school.GroupID, studentID school.StudentID, date school.Date) (bool, error) {
	if date.IsZero() {
		return false, school.ErrInvalidDate
	}

	var cancelled bool
	err := r.store.WithTx(ctx, func(repo school.Repository) error {
		g, err := repo.GetGroup(ctx, id)
		if err != nil {
			return err
		}
		if g == nil {
			return school.ErrGroupNotFound
		}
		exists, err := repo.HasCancellation(ctx, id, studentID, date)
		if err != nil {
			return err
		}
		// A row left behind by a former member can still be cleared.
		if exists {
			return repo.DeleteCancellation(ctx, id, studentID, date)
		}

		member, err := repo.IsMember(ctx, id, studentID)
		if err != nil {
			return err
		}
		if !member {
			return fmt.Errorf("student %d, group %d: %w", studentID, id, school.ErrNotGroupMember)
		}
		cancelled = true
		return repo.InsertCancellation(ctx, school.Cancellation{GroupID: id, StudentID: studentID, Date: date})
	})
	if err != nil {
		return false, fmt.Errorf("failed to toggle cancellation: %w", err)
	}

	r.log.Info().
		Int64("group_id", int64(id)).
		Int64("student_id", int64(studentID)).
		Str("date", date.String()).
		Bool("cancelled", cancelled).
		Msg("Cancellation toggled")
	return cancelled, nil
}

// =============================================================================
// GROUP CRUD
// =============================================================================

// List returns every group in weekly order.
func (r *Resolver) List(ctx context.Context) ([]school.RiderGroup, error) {
	groups, err := r.store.ListGroups(ctx)
	if err != nil {
		return nil, err
	}
	if groups == nil {
		groups = []school.RiderGroup{}
	}
	return groups, nil
}

func (r *Resolver) Get(ctx context.Context, id school.GroupID) (*school.RiderGroup, error) {
	g, err := r.store.GetGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, school.ErrGroupNotFound
	}
	return g, nil
}

func (r *Resolver) Create(ctx context.Context, g school.RiderGroup) (*school.RiderGroup, error) {
	if err := school.ValidateGroup(&g); err != nil {
		return nil, err
	}
	id, err := r.store.CreateGroup(ctx, g)
	if err != nil {
		return nil, err
	}
	r.log.Info().Int64("group_id", int64(id)).Str("name", g.Name).Str("weekday", g.Weekday.String()).Msg("Rider group created")
	return r.Get(ctx, id)
}

func (r *Resolver) Update(ctx context.Context, g school.RiderGroup) (*school.RiderGroup, error) {
	if err := school.ValidateGroup(&g); err != nil {
		return nil, err
	}
	if err := r.store.UpdateGroup(ctx, g); err != nil {
		return nil, err
	}
	return r.Get(ctx, g.ID)
}

// Delete removes a group with its members and cancellations.
func (r *Resolver) Delete(ctx context.Context, id school.GroupID) error {
	if err := r.store.DeleteGroup(ctx, id); err != nil {
		return err
	}
	r.log.Info().Int64("group_id", int64(id)).Msg("Rider group deleted")
	return nil
}

// =============================================================================
// MEMBERSHIP
// =============================================================================

func (r *Resolver) Members(ctx context.Context, id school.GroupID) ([]school.GroupMember, error) {
	if _, err := r.Get(ctx, id); err != nil {
		return nil, err
	}
	members, err := r.store.GroupMembers(ctx, id)
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []school.GroupMember{}
	}
	return members, nil
}

// SaveMembers replaces the member list. Duplicates are ignored; unknown
// students reject the whole list.
func (r *Resolver) SaveMembers(ctx context.Context, id school.GroupID, studentIDs []school.StudentID) ([]school.GroupMember, error) {
	seen := make(map[school.StudentID]bool, len(studentIDs))
	unique := make([]school.StudentID, 0, len(studentIDs))
	for _, sid := range studentIDs {
		if !seen[sid] {
			seen[sid] = true
			unique = append(unique, sid)
		}
	}

	var members []school.GroupMember
	err := r.store.WithTx(ctx, func(repo school.Repository) error {
		g, err := repo.GetGroup(ctx, id)
		if err != nil {
			return err
		}
		if g == nil {
			return school.ErrGroupNotFound
		}
		for _, sid := range unique {
			s, err := repo.GetStudent(ctx, sid)
			if err != nil {
				return err
			}
			if s == nil {
				return fmt.Errorf("student %d: %w", sid, school.ErrUnknownStudent)
			}
		}
		if err := repo.ReplaceMembers(ctx, id, unique); err != nil {
			return err
		}
		members, err = repo.GroupMembers(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save members of group %d: %w", id, err)
	}
	if members == nil {
		members = []school.GroupMember{}
	}

	r.log.Info().Int64("group_id", int64(id)).Int("members", len(members)).Msg("Group members saved")
	return members, nil
}

// NextOccurrence returns the first date on or after from when the group meets.
func NextOccurrence(g school.RiderGroup, from school.Date) school.Date {
	delta := (int(g.Weekday) - int(from.Weekday()) + 7) % 7
	return from.AddDays(delta)
}
