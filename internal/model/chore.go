package model

import "time"

// Frequency is the recurrence kind of a chore. Switches over Frequency
// must handle every constant; unknown values are treated as never due.
type Frequency string

const (
	FreqOnce    Frequency = "once"
	FreqDaily   Frequency = "daily"
	FreqWeekly  Frequency = "weekly"
	FreqMonthly Frequency = "monthly"
	FreqCustom  Frequency = "custom"
)

// Valid reports whether f is one of the known frequency kinds.
func (f Frequency) Valid() bool {
	switch f {
	case FreqOnce, FreqDaily, FreqWeekly, FreqMonthly, FreqCustom:
		return true
	}
	return false
}

// DateDriven reports whether the chore's schedule is carried by its
// next-due date rather than by the calendar weekday.
func (f Frequency) DateDriven() bool {
	return f == FreqWeekly || f == FreqMonthly
}

type Chore struct {
	ID          int64     `json:"id"`
	HouseholdID int64     `json:"household_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Frequency   Frequency `json:"frequency"`
	// CustomRule is the serialized weekday-set rule, e.g.
	// "monday,friday@18:00". Empty unless Frequency is FreqCustom.
	CustomRule string     `json:"custom_rule,omitempty"`
	NextDue    *time.Time `json:"next_due"`
	Coins      int        `json:"coins"`
	Active     bool       `json:"active"`
	CreatedBy  int64      `json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// ApprovalStatus is the admin-review state of a completion record.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
)

type CompletionRecord struct {
	ID             int64          `json:"id"`
	ChoreID        int64          `json:"chore_id"`
	CompletedBy    int64          `json:"completed_by"`
	CompletedAt    time.Time      `json:"completed_at"`
	Status         ApprovalStatus `json:"status"`
	IdempotencyKey string         `json:"idempotency_key"`
	ApprovedBy     *int64         `json:"approved_by"`
	ApprovedAt     *time.Time     `json:"approved_at"`
}
