package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/pthomsen/chorecraft/internal/chore"
	"github.com/pthomsen/chorecraft/internal/model"
	"github.com/pthomsen/chorecraft/internal/schedule"
	"github.com/pthomsen/chorecraft/internal/store"
)

// Scheduler periodically sends chore reminders to household subscriptions.
type Scheduler struct {
	mu         sync.Mutex
	service    *Service
	push       *store.PushStore
	chores     *chore.Service
	households *store.HouseholdStore
	interval   time.Duration
	logger     *slog.Logger
	cancel     context.CancelFunc
	done       chan struct{}

	// sent dedupes reminders: one per household per local day.
	sent map[string]bool
}

// NewScheduler creates a notification scheduler.
func NewScheduler(svc *Service, pushStore *store.PushStore, choreService *chore.Service, householdStore *store.HouseholdStore, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		service:    svc,
		push:       pushStore,
		chores:     choreService,
		households: householdStore,
		interval:   60 * time.Second,
		logger:     logger.With("component", "push_scheduler"),
		sent:       make(map[string]bool),
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	householdIDs, err := s.households.ListIDs()
	if err != nil {
		s.logger.Error("list households", "error", err)
		return
	}

	for _, hid := range householdIDs {
		if err := s.remindHousehold(ctx, hid); err != nil {
			s.logger.Error("send reminders", "household_id", hid, "error", err)
		}
	}
}

// remindHousehold sends at most one daily reminder summarizing the
// household's due and overdue chores.
func (s *Scheduler) remindHousehold(ctx context.Context, householdID int64) error {
	day, err := s.chores.Today(ctx, householdID)
	if err != nil {
		return fmt.Errorf("resolve today: %w", err)
	}

	key := fmt.Sprintf("%d-%s", householdID, day.Date.Format("2006-01-02"))
	s.mu.Lock()
	already := s.sent[key]
	s.mu.Unlock()
	if already {
		return nil
	}

	open := 0
	for _, occ := range day.Due {
		if occ.Status == schedule.StatusNone {
			open++
		}
	}
	if open == 0 && len(day.Overdue) == 0 {
		s.markSent(key)
		return nil
	}

	subs, err := s.push.ListByHousehold(householdID)
	if err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}
	if len(subs) == 0 {
		s.markSent(key)
		return nil
	}

	payload := Payload{
		Title: "Chore Reminders",
		Body:  reminderBody(open, len(day.Overdue)),
		URL:   "/chores",
		Tag:   "chore-daily",
	}

	var errs error
	for i := range subs {
		if err := s.service.Send(&subs[i], payload); err != nil {
			if errors.Is(err, ErrExpired) {
				if delErr := s.push.Delete(subs[i].ID); delErr != nil {
					errs = multierr.Append(errs, fmt.Errorf("prune subscription %d: %w", subs[i].ID, delErr))
				}
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("subscription %d: %w", subs[i].ID, err))
		}
	}

	s.markSent(key)
	return errs
}

func (s *Scheduler) markSent(key string) {
	s.mu.Lock()
	s.sent[key] = true
	s.mu.Unlock()
}

func reminderBody(due, overdue int) string {
	switch {
	case due > 0 && overdue > 0:
		return fmt.Sprintf("%d chores due today, %d overdue", due, overdue)
	case overdue > 0:
		return fmt.Sprintf("%d chores are overdue", overdue)
	case due == 1:
		return "1 chore is due today"
	default:
		return fmt.Sprintf("%d chores are due today", due)
	}
}

// NotifyApproval tells the completing user their submission was approved.
// Called from the approval handler, not from the scheduler loop.
func (s *Scheduler) NotifyApproval(userID int64, choreTitle string, coins int) {
	subs, err := s.push.ListByUser(userID)
	if err != nil {
		s.logger.Error("approval notification: list subs", "error", err)
		return
	}

	payload := Payload{
		Title: "Chore Approved",
		Body:  fmt.Sprintf("%s was approved, you earned %d coins", choreTitle, coins),
		URL:   "/chores",
		Tag:   model.NotifTypeApproval,
	}

	for i := range subs {
		if err := s.service.Send(&subs[i], payload); err != nil {
			if errors.Is(err, ErrExpired) {
				s.push.Delete(subs[i].ID)
				continue
			}
			s.logger.Error("send approval notification", "error", err)
		}
	}
}
