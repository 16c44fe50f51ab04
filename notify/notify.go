/*
notify.go - Milestone crossing notifications

PURPOSE:
  When a lesson completes a 10-lesson card, the office wants to know so the
  card can be printed and billed. Notifiers deliver that signal. They run
  after the lessons are committed and never affect the write.

IMPLEMENTATIONS:
  LogNotifier:    Structured log line (always on)
  AMQPPublisher:  JSON event on a RabbitMQ exchange (notify.amqp_url)
  Multi:          Fans out to several notifiers, joins their errors
*/
package notify

import (
	"context"
	"errors"

	"github.com/garnzell/riding-school/schedule"
	"github.com/garnzell/riding-school/school"
	"github.com/rs/zerolog"
)

// LogNotifier logs crossings at info level.
type LogNotifier struct {
	log zerolog.Logger
}

var _ schedule.Notifier = (*LogNotifier)(nil)

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "notify").Logger()}
}

func (n *LogNotifier) MilestoneCrossed(_ context.Context, c school.MilestoneCrossing) error {
	ev := n.log.Info().
		Int64("student_id", int64(c.StudentID)).
		Int("milestone", c.Milestone).
		Int("total", c.Total).
		Str("date", c.Date.String())
	if c.SlotID != 0 {
		ev = ev.Int64("slot_id", int64(c.SlotID))
	}
	ev.Msg("Milestone reached, card ready to print")
	return nil
}

// Multi delivers to every notifier, even when one fails.
type Multi []schedule.Notifier

func (m Multi) MilestoneCrossed(ctx context.Context, c school.MilestoneCrossing) error {
	var errs []error
	for _, n := range m {
		if err := n.MilestoneCrossed(ctx, c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
