package schedule

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"github.com/pthomsen/chorecraft/internal/model"
)

// Wednesday, March 4 2026.
var testNow = time.Date(2026, 3, 4, 15, 30, 0, 0, time.UTC)

func testResolver() *Resolver {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewResolver(func() time.Time { return testNow }, time.UTC, logger)
}

type dayStatus struct {
	choreID int64
	day     string // "2006-01-02"
}

// fakeLookup is an in-memory CompletionLookup with per-chore error injection.
type fakeLookup struct {
	statuses map[dayStatus]Status
	approved map[int64]bool
	failFor  map[int64]bool
	calls    int
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{
		statuses: make(map[dayStatus]Status),
		approved: make(map[int64]bool),
		failFor:  make(map[int64]bool),
	}
}

func (f *fakeLookup) StatusOn(_ context.Context, choreID int64, day time.Time) (Status, error) {
	f.calls++
	if f.failFor[choreID] {
		return StatusNone, errors.New("lookup unavailable")
	}
	if s, ok := f.statuses[dayStatus{choreID, day.Format("2006-01-02")}]; ok {
		return s, nil
	}
	return StatusNone, nil
}

func (f *fakeLookup) HasApproved(_ context.Context, choreID int64) (bool, error) {
	if f.failFor[choreID] {
		return false, errors.New("lookup unavailable")
	}
	return f.approved[choreID], nil
}

func dailyChore(id int64, title string) model.Chore {
	return model.Chore{ID: id, HouseholdID: 1, Title: title, Frequency: model.FreqDaily, Active: true}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDailyNoCompletions(t *testing.T) {
	r := testResolver()
	chores := []model.Chore{dailyChore(1, "Feed cat")}

	days := r.ResolveRange(context.Background(), chores, newFakeLookup(), day(2026, 3, 4), day(2026, 3, 10))
	if len(days) != 7 {
		t.Fatalf("len(days) = %d, want 7", len(days))
	}

	for i, d := range days {
		if len(d.Due) != 1 {
			t.Fatalf("day %d: len(Due) = %d, want 1", i, len(d.Due))
		}
		occ := d.Due[0]
		if occ.Chore.Title != "Feed cat" {
			t.Errorf("day %d: title = %q", i, occ.Chore.Title)
		}
		if occ.Status != StatusNone {
			t.Errorf("day %d: status = %q, want %q", i, occ.Status, StatusNone)
		}
		wantDueToday := i == 0
		if occ.DueToday != wantDueToday {
			t.Errorf("day %d: DueToday = %v, want %v", i, occ.DueToday, wantDueToday)
		}
	}
}

func TestDailyApprovedTodayDisappears(t *testing.T) {
	r := testResolver()
	chores := []model.Chore{dailyChore(1, "Feed cat")}
	lookup := newFakeLookup()
	lookup.statuses[dayStatus{1, "2026-03-04"}] = StatusApproved

	days := r.ResolveRange(context.Background(), chores, lookup, day(2026, 3, 4), day(2026, 3, 10))
	if len(days[0].Due) != 0 {
		t.Errorf("day 0: len(Due) = %d, want 0 after approval", len(days[0].Due))
	}
	for i := 1; i < 7; i++ {
		if len(days[i].Due) != 1 {
			t.Fatalf("day %d: len(Due) = %d, want 1", i, len(days[i].Due))
		}
		if days[i].Due[0].Status != StatusNone {
			t.Errorf("day %d: status = %q, want %q", i, days[i].Due[0].Status, StatusNone)
		}
	}
}

func TestDailyPendingTodayStaysVisible(t *testing.T) {
	r := testResolver()
	chores := []model.Chore{dailyChore(1, "Feed cat")}
	lookup := newFakeLookup()
	lookup.statuses[dayStatus{1, "2026-03-04"}] = StatusPending

	days := r.ResolveRange(context.Background(), chores, lookup, day(2026, 3, 4), day(2026, 3, 4))
	if len(days[0].Due) != 1 {
		t.Fatalf("len(Due) = %d, want 1", len(days[0].Due))
	}
	if days[0].Due[0].Status != StatusPending {
		t.Errorf("status = %q, want %q", days[0].Due[0].Status, StatusPending)
	}
}

func TestFutureStatusNeverResolved(t *testing.T) {
	r := testResolver()
	chores := []model.Chore{dailyChore(1, "Feed cat")}
	lookup := newFakeLookup()

	r.ResolveRange(context.Background(), chores, lookup, day(2026, 3, 5), day(2026, 3, 11))
	if lookup.calls != 0 {
		t.Errorf("lookup called %d times for an all-future range, want 0", lookup.calls)
	}
}

func TestOnceApprovedNeverResurrects(t *testing.T) {
	r := testResolver()
	chores := []model.Chore{{ID: 1, Title: "Clean garage", Frequency: model.FreqOnce, Active: true}}
	lookup := newFakeLookup()
	lookup.approved[1] = true

	days := r.ResolveRange(context.Background(), chores, lookup, day(2026, 3, 4), day(2026, 3, 17))
	for i, d := range days {
		if len(d.Due) != 0 || len(d.Overdue) != 0 {
			t.Errorf("day %d: approved once chore present", i)
		}
	}
}

func TestOncePendingStaysOnEveryDate(t *testing.T) {
	r := testResolver()
	chores := []model.Chore{{ID: 1, Title: "Clean garage", Frequency: model.FreqOnce, Active: true}}

	days := r.ResolveRange(context.Background(), chores, newFakeLookup(), day(2026, 3, 4), day(2026, 3, 8))
	for i, d := range days {
		if len(d.Due) != 1 {
			t.Fatalf("day %d: len(Due) = %d, want 1", i, len(d.Due))
		}
		if got := d.Due[0].DueToday; got != (i == 0) {
			t.Errorf("day %d: DueToday = %v", i, got)
		}
	}
}

func TestCustomWeekdaySet(t *testing.T) {
	r := testResolver()
	chores := []model.Chore{{
		ID: 1, Title: "Take out bins", Frequency: model.FreqCustom,
		CustomRule: "monday,friday", Active: true,
	}}

	// 14-day window starting Wednesday Mar 4: Fri 6, Mon 9, Fri 13, Mon 16.
	days := r.ResolveRange(context.Background(), chores, newFakeLookup(), day(2026, 3, 4), day(2026, 3, 17))

	var hits []string
	for _, d := range days {
		if len(d.Due) > 0 {
			hits = append(hits, d.Date.Format("2006-01-02"))
		}
	}
	want := []string{"2026-03-06", "2026-03-09", "2026-03-13", "2026-03-16"}
	if !reflect.DeepEqual(hits, want) {
		t.Errorf("due dates = %v, want %v", hits, want)
	}
}

func TestCustomMalformedRuleNeverDue(t *testing.T) {
	r := testResolver()
	chores := []model.Chore{
		{ID: 1, Title: "Empty rule", Frequency: model.FreqCustom, CustomRule: "", Active: true},
		{ID: 2, Title: "Bad day", Frequency: model.FreqCustom, CustomRule: "funday", Active: true},
	}

	days := r.ResolveRange(context.Background(), chores, newFakeLookup(), day(2026, 3, 4), day(2026, 3, 17))
	for i, d := range days {
		if len(d.Due) != 0 {
			t.Errorf("day %d: malformed custom chore surfaced as due", i)
		}
	}
}

func TestWeeklyOverdueOnlyOnToday(t *testing.T) {
	r := testResolver()
	due := day(2026, 3, 1) // 3 days before today
	chores := []model.Chore{{
		ID: 1, Title: "Mow lawn", Frequency: model.FreqWeekly, NextDue: &due, Active: true,
	}}

	days := r.ResolveRange(context.Background(), chores, newFakeLookup(), day(2026, 3, 4), day(2026, 3, 10))
	if len(days[0].Overdue) != 1 {
		t.Fatalf("today: len(Overdue) = %d, want 1", len(days[0].Overdue))
	}
	if !days[0].Overdue[0].DueToday {
		t.Error("overdue occurrence should be completable today")
	}
	if len(days[0].Due) != 0 {
		t.Errorf("today: overdue chore also in Due list")
	}
	for i := 1; i < len(days); i++ {
		if len(days[i].Due) != 0 || len(days[i].Overdue) != 0 {
			t.Errorf("day %d: overdue chore appeared outside today's entry", i)
		}
	}
}

func TestWeeklyDueTodayInDueList(t *testing.T) {
	r := testResolver()
	due := day(2026, 3, 4)
	chores := []model.Chore{{
		ID: 1, Title: "Mow lawn", Frequency: model.FreqWeekly, NextDue: &due, Active: true,
	}}

	days := r.ResolveRange(context.Background(), chores, newFakeLookup(), day(2026, 3, 4), day(2026, 3, 10))
	if len(days[0].Due) != 1 || !days[0].Due[0].DueToday {
		t.Fatalf("today: Due = %+v, want one due-today occurrence", days[0].Due)
	}
	if len(days[0].Overdue) != 0 {
		t.Errorf("today: len(Overdue) = %d, want 0", len(days[0].Overdue))
	}
}

func TestMonthlyFutureDueSingleSlot(t *testing.T) {
	r := testResolver()
	due := day(2026, 3, 8)
	chores := []model.Chore{{
		ID: 1, Title: "Change filters", Frequency: model.FreqMonthly, NextDue: &due, Active: true,
	}}

	days := r.ResolveRange(context.Background(), chores, newFakeLookup(), day(2026, 3, 4), day(2026, 3, 10))
	for i, d := range days {
		wantDue := d.Date.Equal(due)
		if (len(d.Due) == 1) != wantDue {
			t.Errorf("day %d (%s): len(Due) = %d, want due=%v", i, d.Date.Format("2006-01-02"), len(d.Due), wantDue)
		}
	}
}

func TestDateDrivenNilNextDueNeverDue(t *testing.T) {
	r := testResolver()
	chores := []model.Chore{{ID: 1, Title: "Mow lawn", Frequency: model.FreqWeekly, Active: true}}

	days := r.ResolveRange(context.Background(), chores, newFakeLookup(), day(2026, 3, 4), day(2026, 3, 10))
	for i, d := range days {
		if len(d.Due) != 0 || len(d.Overdue) != 0 {
			t.Errorf("day %d: chore with nil next-due surfaced", i)
		}
	}
}

func TestLookupFailureFailsOpen(t *testing.T) {
	r := testResolver()
	chores := []model.Chore{dailyChore(1, "Feed cat")}
	lookup := newFakeLookup()
	lookup.failFor[1] = true

	days := r.ResolveRange(context.Background(), chores, lookup, day(2026, 3, 4), day(2026, 3, 4))
	if len(days[0].Due) != 1 {
		t.Fatalf("len(Due) = %d, want 1 (fail open)", len(days[0].Due))
	}
	if days[0].Due[0].Status != StatusNone {
		t.Errorf("status = %q, want %q", days[0].Due[0].Status, StatusNone)
	}
}

func TestIdempotence(t *testing.T) {
	r := testResolver()
	due := day(2026, 3, 2)
	chores := []model.Chore{
		dailyChore(1, "Feed cat"),
		{ID: 2, Title: "Bins", Frequency: model.FreqCustom, CustomRule: "friday", Active: true},
		{ID: 3, Title: "Mow lawn", Frequency: model.FreqWeekly, NextDue: &due, Active: true},
		{ID: 4, Title: "Clean garage", Frequency: model.FreqOnce, Active: true},
	}
	lookup := newFakeLookup()
	lookup.statuses[dayStatus{1, "2026-03-04"}] = StatusPending

	first := r.ResolveRange(context.Background(), chores, lookup, day(2026, 3, 4), day(2026, 3, 10))
	second := r.ResolveRange(context.Background(), chores, lookup, day(2026, 3, 4), day(2026, 3, 10))
	if !reflect.DeepEqual(first, second) {
		t.Error("identical inputs produced different projections")
	}
}

func TestStableInputOrder(t *testing.T) {
	r := testResolver()
	chores := []model.Chore{
		dailyChore(3, "Third"),
		dailyChore(1, "First"),
		dailyChore(2, "Second"),
	}

	days := r.ResolveRange(context.Background(), chores, newFakeLookup(), day(2026, 3, 4), day(2026, 3, 4))
	got := []string{}
	for _, occ := range days[0].Due {
		got = append(got, occ.Chore.Title)
	}
	want := []string{"Third", "First", "Second"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want input order %v", got, want)
	}
}

func TestStartAfterEndIsEmpty(t *testing.T) {
	r := testResolver()
	days := r.ResolveRange(context.Background(), []model.Chore{dailyChore(1, "X")}, newFakeLookup(), day(2026, 3, 10), day(2026, 3, 4))
	if len(days) != 0 {
		t.Errorf("len(days) = %d, want 0", len(days))
	}
}

func TestUnknownFrequencySkipped(t *testing.T) {
	r := testResolver()
	chores := []model.Chore{{ID: 1, Title: "Mystery", Frequency: "hourly", Active: true}}

	days := r.ResolveRange(context.Background(), chores, newFakeLookup(), day(2026, 3, 4), day(2026, 3, 5))
	for i, d := range days {
		if len(d.Due) != 0 {
			t.Errorf("day %d: unknown frequency chore surfaced", i)
		}
	}
}

func TestDayFlags(t *testing.T) {
	r := testResolver()
	days := r.ResolveRange(context.Background(), nil, newFakeLookup(), day(2026, 3, 4), day(2026, 3, 8))

	if !days[0].IsToday {
		t.Error("Mar 4 should be today")
	}
	for i := 1; i < len(days); i++ {
		if days[i].IsToday {
			t.Errorf("day %d flagged as today", i)
		}
	}
	// Mar 7 is a Saturday, Mar 8 a Sunday.
	for i, want := range []bool{false, false, false, true, true} {
		if days[i].IsWeekend != want {
			t.Errorf("day %d: IsWeekend = %v, want %v", i, days[i].IsWeekend, want)
		}
	}
}

func TestDayBoundaryRespectsZone(t *testing.T) {
	// 23:30 UTC on Mar 4 is already Mar 5 in UTC+13.
	loc := time.FixedZone("UTC+13", 13*3600)
	now := time.Date(2026, 3, 4, 23, 30, 0, 0, time.UTC)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewResolver(func() time.Time { return now }, loc, logger)

	want := time.Date(2026, 3, 5, 0, 0, 0, 0, loc)
	if got := r.Today(); !got.Equal(want) {
		t.Errorf("Today() = %v, want %v", got, want)
	}
}
