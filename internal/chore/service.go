// Package chore owns the completion workflow: submitting occurrences,
// admin approval, and the calendar projections the API serves.
package chore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pthomsen/chorecraft/internal/model"
	"github.com/pthomsen/chorecraft/internal/schedule"
	"github.com/pthomsen/chorecraft/internal/store"
)

var (
	ErrNotFound            = errors.New("chore not found")
	ErrInactive            = errors.New("chore is inactive")
	ErrAlreadyCompleted    = errors.New("chore already completed")
	ErrDuplicateSubmission = errors.New("completion already submitted for this day")
	ErrCompletionNotFound  = errors.New("completion not found")
	ErrNotPending          = errors.New("completion is not pending")
)

type Service struct {
	chores   *store.ChoreStore
	resolver *schedule.Resolver
	logger   *slog.Logger
}

func NewService(chores *store.ChoreStore, resolver *schedule.Resolver, logger *slog.Logger) *Service {
	return &Service{chores: chores, resolver: resolver, logger: logger}
}

// storeLookup adapts ChoreStore to the resolver's CompletionLookup.
type storeLookup struct {
	chores *store.ChoreStore
}

func (l storeLookup) StatusOn(_ context.Context, choreID int64, day time.Time) (schedule.Status, error) {
	status, found, err := l.chores.StatusForWindow(choreID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return schedule.StatusNone, err
	}
	if !found {
		return schedule.StatusNone, nil
	}
	switch status {
	case model.ApprovalApproved:
		return schedule.StatusApproved, nil
	case model.ApprovalPending:
		return schedule.StatusPending, nil
	}
	return schedule.StatusNone, nil
}

func (l storeLookup) HasApproved(_ context.Context, choreID int64) (bool, error) {
	return l.chores.HasApproved(choreID)
}

// Calendar resolves the household's active chores over [start, end].
// A chore-list fetch failure propagates; per-chore lookup failures fail
// open inside the resolver.
func (s *Service) Calendar(ctx context.Context, householdID int64, start, end time.Time) ([]schedule.CalendarDay, error) {
	chores, err := s.chores.ListByHousehold(householdID, true)
	if err != nil {
		return nil, fmt.Errorf("list household chores: %w", err)
	}
	return s.resolver.ResolveRange(ctx, chores, storeLookup{s.chores}, start, end), nil
}

// Today resolves the current day's projection.
func (s *Service) Today(ctx context.Context, householdID int64) (*schedule.CalendarDay, error) {
	today := s.resolver.Today()
	days, err := s.Calendar(ctx, householdID, today, today)
	if err != nil {
		return nil, err
	}
	return &days[0], nil
}

// Overdue returns active date-driven chores whose next-due date has passed.
func (s *Service) Overdue(ctx context.Context, householdID int64) ([]model.Chore, error) {
	return s.chores.ListOverdue(householdID, s.resolver.Today())
}

// Complete submits a pending completion for a chore. It does not advance
// the next-due date or grant coins; both happen at approval. At most one
// pending submission per chore per local day is allowed.
func (s *Service) Complete(ctx context.Context, choreID, userID int64) (*model.CompletionRecord, error) {
	c, err := s.chores.GetByID(choreID)
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	if c == nil {
		return nil, ErrNotFound
	}
	if !c.Active {
		return nil, ErrInactive
	}

	if c.Frequency == model.FreqOnce {
		done, err := s.chores.HasApproved(choreID)
		if err != nil {
			return nil, fmt.Errorf("check approved: %w", err)
		}
		if done {
			return nil, ErrAlreadyCompleted
		}
	}

	today := s.resolver.Today()
	pending, err := s.chores.HasPendingForWindow(choreID, today, today.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("check pending: %w", err)
	}
	if pending {
		return nil, ErrDuplicateSubmission
	}

	rec, err := s.chores.CreateCompletion(choreID, userID, s.resolver.Now(), uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("create completion: %w", err)
	}

	s.logger.Info("completion submitted", "chore_id", choreID, "user_id", userID, "completion_id", rec.ID)
	return rec, nil
}

// Approve flips a pending completion to approved and, for date-driven
// chores, advances the next-due date one cycle. Coins are granted
// implicitly: balances count approved completions.
func (s *Service) Approve(ctx context.Context, completionID, adminID int64) (*model.CompletionRecord, error) {
	rec, err := s.chores.GetCompletion(completionID)
	if err != nil {
		return nil, fmt.Errorf("get completion: %w", err)
	}
	if rec == nil {
		return nil, ErrCompletionNotFound
	}

	updated, err := s.chores.Approve(completionID, adminID, s.resolver.Now())
	if err != nil {
		return nil, fmt.Errorf("approve completion: %w", err)
	}
	if updated == nil {
		return nil, ErrNotPending
	}

	c, err := s.chores.GetByID(rec.ChoreID)
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	if c != nil && c.Frequency.DateDriven() && c.NextDue != nil {
		next := nextCycle(c.Frequency, schedule.StartOfDay(c.NextDue.In(s.resolver.Now().Location())), s.resolver.Today())
		if err := s.chores.SetNextDue(c.ID, next); err != nil {
			return nil, fmt.Errorf("advance next due: %w", err)
		}
	}

	s.logger.Info("completion approved", "completion_id", completionID, "admin_id", adminID)
	return updated, nil
}

// nextCycle computes the next due date after an approval. An overdue chore
// advances from today rather than its stale due date so that approving it
// does not leave it instantly overdue again. Monthly chores keep the
// original day-of-month anchor, clamped to short months.
func nextCycle(freq model.Frequency, due, today time.Time) time.Time {
	base := due
	if today.After(base) {
		base = today
	}

	switch freq {
	case model.FreqWeekly:
		return base.AddDate(0, 0, 7)
	case model.FreqMonthly:
		anchor := due.Day()
		year, month, _ := base.Date()
		month++
		last := daysInMonth(year, month)
		day := anchor
		if day > last {
			day = last
		}
		return time.Date(year, month, day, 0, 0, 0, 0, base.Location())
	}
	return due
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
