// Package schedule projects chore definitions onto calendar dates and
// classifies each occurrence's completion status.
package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/pthomsen/chorecraft/internal/frequency"
	"github.com/pthomsen/chorecraft/internal/model"
)

// Status is the effective completion status of an occurrence on a date.
type Status string

const (
	StatusNone     Status = "none"
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
)

// CompletionLookup reports completion state for a chore. StatusOn uses
// local-calendar-day semantics: day is midnight in the resolver's zone.
// When storage holds both a pending and an approved record for the same
// day, approved wins.
type CompletionLookup interface {
	StatusOn(ctx context.Context, choreID int64, day time.Time) (Status, error)
	HasApproved(ctx context.Context, choreID int64) (bool, error)
}

// Occurrence is one calendar instance of a chore being due.
type Occurrence struct {
	Chore    model.Chore `json:"chore"`
	Status   Status      `json:"status"`
	DueToday bool        `json:"is_due_today"`
}

// CalendarDay is the projection for a single date.
type CalendarDay struct {
	Date      time.Time    `json:"date"`
	IsToday   bool         `json:"is_today"`
	IsWeekend bool         `json:"is_weekend"`
	Due       []Occurrence `json:"due"`
	Overdue   []Occurrence `json:"overdue"`
}

// Resolver computes calendar projections. The clock and time zone are
// injected so "today" never depends on the host machine; resolution is a
// pure read over the chore list and lookup snapshots, so concurrent calls
// are independent.
type Resolver struct {
	now    func() time.Time
	loc    *time.Location
	logger *slog.Logger
}

// NewResolver creates a resolver with an explicit clock and time zone.
func NewResolver(now func() time.Time, loc *time.Location, logger *slog.Logger) *Resolver {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &Resolver{now: now, loc: loc, logger: logger}
}

// Now returns the current time in the resolver's zone.
func (r *Resolver) Now() time.Time {
	return r.now().In(r.loc)
}

// Today returns the current local calendar day at midnight.
func (r *Resolver) Today() time.Time {
	return StartOfDay(r.Now())
}

// ResolveRange projects chores onto every date in [start, end] inclusive.
// Chores are processed in input order and the result is deterministic for
// fixed inputs. A start after end yields an empty result. Lookup failures
// fail open: the occurrence is kept with StatusNone rather than hidden.
func (r *Resolver) ResolveRange(ctx context.Context, chores []model.Chore, lookup CompletionLookup, start, end time.Time) []CalendarDay {
	start = StartOfDay(start.In(r.loc))
	end = StartOfDay(end.In(r.loc))
	if start.After(end) {
		return []CalendarDay{}
	}

	today := r.Today()

	// Per-chore state resolved once per pass, not once per date.
	onceDone := make(map[int64]bool)
	customRules := make(map[int64]frequency.Rule)
	for _, c := range chores {
		switch c.Frequency {
		case model.FreqOnce:
			done, err := lookup.HasApproved(ctx, c.ID)
			if err != nil {
				r.logger.Warn("completion lookup failed, treating chore as not completed",
					"chore_id", c.ID, "error", err)
				done = false
			}
			onceDone[c.ID] = done
		case model.FreqCustom:
			rule, err := frequency.Parse(c.CustomRule)
			if err != nil {
				// Malformed rule: never due, but the chore stays in the
				// household's list untouched.
				r.logger.Warn("invalid custom frequency, chore treated as never due",
					"chore_id", c.ID, "rule", c.CustomRule, "error", err)
				continue
			}
			customRules[c.ID] = rule
		}
	}

	days := make([]CalendarDay, 0, int(end.Sub(start).Hours()/24)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		day := CalendarDay{
			Date:      d,
			IsToday:   d.Equal(today),
			IsWeekend: d.Weekday() == time.Saturday || d.Weekday() == time.Sunday,
			Due:       []Occurrence{},
			Overdue:   []Occurrence{},
		}

		for _, c := range chores {
			switch c.Frequency {
			case model.FreqOnce:
				if onceDone[c.ID] {
					continue
				}
				day.Due = append(day.Due, r.occurrence(ctx, c, lookup, d, today))

			case model.FreqDaily:
				if occ, ok := r.recurringOccurrence(ctx, c, lookup, d, today); ok {
					day.Due = append(day.Due, occ)
				}

			case model.FreqCustom:
				rule, ok := customRules[c.ID]
				if !ok || !rule.DueOn(d.Weekday()) {
					continue
				}
				if occ, ok := r.recurringOccurrence(ctx, c, lookup, d, today); ok {
					day.Due = append(day.Due, occ)
				}

			case model.FreqWeekly, model.FreqMonthly:
				if c.NextDue == nil {
					continue
				}
				// A date-driven chore occupies a single slot: its due date,
				// or today's overdue list once that date has passed.
				due := StartOfDay(c.NextDue.In(r.loc))
				if due.Before(today) {
					if !d.Equal(today) {
						continue
					}
					if occ, ok := r.recurringOccurrence(ctx, c, lookup, d, today); ok {
						day.Overdue = append(day.Overdue, occ)
					}
					continue
				}
				if !d.Equal(due) {
					continue
				}
				if occ, ok := r.recurringOccurrence(ctx, c, lookup, d, today); ok {
					day.Due = append(day.Due, occ)
				}

			default:
				r.logger.Warn("unknown chore frequency, treating as never due",
					"chore_id", c.ID, "frequency", string(c.Frequency))
			}
		}

		days = append(days, day)
	}

	return days
}

// occurrence builds an occurrence for a once chore: status resolved only
// for dates that have arrived, never pre-resolved for the future.
func (r *Resolver) occurrence(ctx context.Context, c model.Chore, lookup CompletionLookup, d, today time.Time) Occurrence {
	occ := Occurrence{Chore: c, Status: StatusNone, DueToday: d.Equal(today)}
	if !d.After(today) {
		occ.Status = r.statusOn(ctx, lookup, c.ID, d)
	}
	return occ
}

// recurringOccurrence resolves a recurring chore on date d. An approved
// completion for that day removes the occurrence; it reappears on the next
// calendar cycle regardless of history. Returns false when the occurrence
// should be omitted.
func (r *Resolver) recurringOccurrence(ctx context.Context, c model.Chore, lookup CompletionLookup, d, today time.Time) (Occurrence, bool) {
	occ := Occurrence{Chore: c, Status: StatusNone, DueToday: d.Equal(today)}
	if d.After(today) {
		return occ, true
	}

	status := r.statusOn(ctx, lookup, c.ID, d)
	if status == StatusApproved {
		return Occurrence{}, false
	}
	occ.Status = status
	return occ, true
}

func (r *Resolver) statusOn(ctx context.Context, lookup CompletionLookup, choreID int64, day time.Time) Status {
	status, err := lookup.StatusOn(ctx, choreID, day)
	if err != nil {
		// Fail open: showing a completed chore as still due beats hiding
		// an undone one behind a transient lookup failure.
		r.logger.Warn("completion lookup failed, treating occurrence as not completed",
			"chore_id", choreID, "date", day.Format("2006-01-02"), "error", err)
		return StatusNone
	}
	return status
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
