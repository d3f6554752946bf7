package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/pthomsen/chorecraft/internal/model"
)

type ChoreStore struct {
	db *sql.DB
}

func NewChoreStore(db *sql.DB) *ChoreStore {
	return &ChoreStore{db: db}
}

func scanChore(scanner interface{ Scan(...any) error }) (*model.Chore, error) {
	var c model.Chore
	var nextDue sql.NullTime

	err := scanner.Scan(
		&c.ID, &c.HouseholdID, &c.Title, &c.Description, &c.Frequency,
		&c.CustomRule, &nextDue, &c.Coins, &c.Active, &c.CreatedBy,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if nextDue.Valid {
		t := nextDue.Time
		c.NextDue = &t
	}
	return &c, nil
}

const choreCols = `id, household_id, title, description, frequency, custom_rule, next_due, coins, active, created_by, created_at, updated_at`

func (s *ChoreStore) Create(householdID int64, title, description string, freq model.Frequency, customRule string, nextDue *time.Time, coins int, createdBy int64) (*model.Chore, error) {
	var due sql.NullTime
	if nextDue != nil {
		due = sql.NullTime{Time: nextDue.UTC(), Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO chores (household_id, title, description, frequency, custom_rule, next_due, coins, created_by) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		householdID, title, description, string(freq), customRule, due, coins, createdBy,
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChoreStore) GetByID(id int64) (*model.Chore, error) {
	row := s.db.QueryRow(`SELECT `+choreCols+` FROM chores WHERE id = ?`, id)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	return c, nil
}

// ListByHousehold returns the household's chores in creation order. When
// activeOnly is set, soft-deleted chores are filtered out.
func (s *ChoreStore) ListByHousehold(householdID int64, activeOnly bool) ([]model.Chore, error) {
	query := `SELECT ` + choreCols + ` FROM chores WHERE household_id = ?`
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY id ASC`

	rows, err := s.db.Query(query, householdID)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	defer rows.Close()

	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}

// ListOverdue returns active date-driven chores whose next-due date is
// strictly before the given day.
func (s *ChoreStore) ListOverdue(householdID int64, today time.Time) ([]model.Chore, error) {
	rows, err := s.db.Query(
		`SELECT `+choreCols+` FROM chores
		 WHERE household_id = ? AND active = 1
		   AND frequency IN (?, ?)
		   AND next_due IS NOT NULL AND next_due < ?
		 ORDER BY id ASC`,
		householdID, string(model.FreqWeekly), string(model.FreqMonthly), today.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list overdue chores: %w", err)
	}
	defer rows.Close()

	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}

func (s *ChoreStore) Update(id int64, title, description string, freq model.Frequency, customRule string, nextDue *time.Time, coins int) (*model.Chore, error) {
	var due sql.NullTime
	if nextDue != nil {
		due = sql.NullTime{Time: nextDue.UTC(), Valid: true}
	}

	_, err := s.db.Exec(
		`UPDATE chores SET title = ?, description = ?, frequency = ?, custom_rule = ?, next_due = ?, coins = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		title, description, string(freq), customRule, due, coins, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update chore: %w", err)
	}
	return s.GetByID(id)
}

// SetActive soft-deletes or restores a chore. History is kept.
func (s *ChoreStore) SetActive(id int64, active bool) error {
	_, err := s.db.Exec(
		`UPDATE chores SET active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		active, id,
	)
	if err != nil {
		return fmt.Errorf("set chore active: %w", err)
	}
	return nil
}

// SetNextDue advances a date-driven chore's next-due date.
func (s *ChoreStore) SetNextDue(id int64, nextDue time.Time) error {
	_, err := s.db.Exec(
		`UPDATE chores SET next_due = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		nextDue.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("set next due: %w", err)
	}
	return nil
}

// --- Completion methods ---

func scanCompletion(scanner interface{ Scan(...any) error }) (*model.CompletionRecord, error) {
	var c model.CompletionRecord
	var approvedBy sql.NullInt64
	var approvedAt sql.NullTime

	err := scanner.Scan(
		&c.ID, &c.ChoreID, &c.CompletedBy, &c.CompletedAt,
		&c.Status, &c.IdempotencyKey, &approvedBy, &approvedAt,
	)
	if err != nil {
		return nil, err
	}

	if approvedBy.Valid {
		c.ApprovedBy = &approvedBy.Int64
	}
	if approvedAt.Valid {
		t := approvedAt.Time
		c.ApprovedAt = &t
	}
	return &c, nil
}

const completionCols = `id, chore_id, completed_by, completed_at, status, idempotency_key, approved_by, approved_at`

func (s *ChoreStore) CreateCompletion(choreID, completedBy int64, completedAt time.Time, idempotencyKey string) (*model.CompletionRecord, error) {
	result, err := s.db.Exec(
		`INSERT INTO completion_records (chore_id, completed_by, completed_at, status, idempotency_key) VALUES (?, ?, ?, ?, ?)`,
		choreID, completedBy, completedAt.UTC(), string(model.ApprovalPending), idempotencyKey,
	)
	if err != nil {
		return nil, fmt.Errorf("insert completion: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetCompletion(id)
}

func (s *ChoreStore) GetCompletion(id int64) (*model.CompletionRecord, error) {
	row := s.db.QueryRow(`SELECT `+completionCols+` FROM completion_records WHERE id = ?`, id)
	c, err := scanCompletion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get completion: %w", err)
	}
	return c, nil
}

// Approve flips a pending completion to approved. Returns the updated
// record, or nil if no pending record with that id exists.
func (s *ChoreStore) Approve(id, approvedBy int64, approvedAt time.Time) (*model.CompletionRecord, error) {
	result, err := s.db.Exec(
		`UPDATE completion_records SET status = ?, approved_by = ?, approved_at = ? WHERE id = ? AND status = ?`,
		string(model.ApprovalApproved), approvedBy, approvedAt.UTC(), id, string(model.ApprovalPending),
	)
	if err != nil {
		return nil, fmt.Errorf("approve completion: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return s.GetCompletion(id)
}

// StatusForWindow returns the effective completion status for a chore
// within [start, end). Approved wins over pending when storage holds both
// for the same window.
func (s *ChoreStore) StatusForWindow(choreID int64, start, end time.Time) (model.ApprovalStatus, bool, error) {
	row := s.db.QueryRow(
		`SELECT status FROM completion_records
		 WHERE chore_id = ? AND completed_at >= ? AND completed_at < ?
		 ORDER BY CASE status WHEN 'approved' THEN 0 ELSE 1 END, completed_at DESC
		 LIMIT 1`,
		choreID, start.UTC(), end.UTC(),
	)
	var status model.ApprovalStatus
	err := row.Scan(&status)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("completion status: %w", err)
	}
	return status, true, nil
}

// HasApproved reports whether any approved completion exists for the chore.
func (s *ChoreStore) HasApproved(choreID int64) (bool, error) {
	row := s.db.QueryRow(
		`SELECT COUNT(*) FROM completion_records WHERE chore_id = ? AND status = ?`,
		choreID, string(model.ApprovalApproved),
	)
	var n int
	if err := row.Scan(&n); err != nil {
		return false, fmt.Errorf("has approved: %w", err)
	}
	return n > 0, nil
}

// HasPendingForWindow reports whether a pending completion already exists
// for the chore within [start, end).
func (s *ChoreStore) HasPendingForWindow(choreID int64, start, end time.Time) (bool, error) {
	row := s.db.QueryRow(
		`SELECT COUNT(*) FROM completion_records
		 WHERE chore_id = ? AND status = ? AND completed_at >= ? AND completed_at < ?`,
		choreID, string(model.ApprovalPending), start.UTC(), end.UTC(),
	)
	var n int
	if err := row.Scan(&n); err != nil {
		return false, fmt.Errorf("has pending: %w", err)
	}
	return n > 0, nil
}

// ListPendingByHousehold returns pending completions awaiting approval,
// oldest first.
func (s *ChoreStore) ListPendingByHousehold(householdID int64) ([]model.CompletionRecord, error) {
	rows, err := s.db.Query(
		`SELECT c.id, c.chore_id, c.completed_by, c.completed_at, c.status, c.idempotency_key, c.approved_by, c.approved_at
		 FROM completion_records c
		 JOIN chores ch ON ch.id = c.chore_id
		 WHERE ch.household_id = ? AND c.status = ?
		 ORDER BY c.completed_at ASC`,
		householdID, string(model.ApprovalPending),
	)
	if err != nil {
		return nil, fmt.Errorf("list pending completions: %w", err)
	}
	defer rows.Close()

	var records []model.CompletionRecord
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		records = append(records, *c)
	}
	return records, rows.Err()
}

func (s *ChoreStore) ListCompletionsByChore(choreID int64) ([]model.CompletionRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+completionCols+` FROM completion_records WHERE chore_id = ? ORDER BY completed_at DESC`,
		choreID,
	)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	var records []model.CompletionRecord
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		records = append(records, *c)
	}
	return records, rows.Err()
}
