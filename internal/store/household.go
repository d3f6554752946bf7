package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/pthomsen/chorecraft/internal/model"
)

type HouseholdStore struct {
	db *sql.DB
}

func NewHouseholdStore(db *sql.DB) *HouseholdStore {
	return &HouseholdStore{db: db}
}

func (s *HouseholdStore) Create(name string) (*model.Household, error) {
	result, err := s.db.Exec(`INSERT INTO households (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("insert household: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *HouseholdStore) GetByID(id int64) (*model.Household, error) {
	row := s.db.QueryRow(`SELECT id, name, created_at, updated_at FROM households WHERE id = ?`, id)
	var h model.Household
	err := row.Scan(&h.ID, &h.Name, &h.CreatedAt, &h.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get household: %w", err)
	}
	return &h, nil
}

func (s *HouseholdStore) AddMember(householdID, userID int64, role string) (*model.HouseholdMember, error) {
	result, err := s.db.Exec(
		`INSERT INTO household_members (household_id, user_id, role) VALUES (?, ?, ?)`,
		householdID, userID, role,
	)
	if err != nil {
		return nil, fmt.Errorf("insert member: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(
		`SELECT id, household_id, user_id, role, created_at FROM household_members WHERE id = ?`, id)
	var m model.HouseholdMember
	if err := row.Scan(&m.ID, &m.HouseholdID, &m.UserID, &m.Role, &m.CreatedAt); err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return &m, nil
}

// GetMember returns the membership row for a user in a household, or nil.
func (s *HouseholdStore) GetMember(householdID, userID int64) (*model.HouseholdMember, error) {
	row := s.db.QueryRow(
		`SELECT id, household_id, user_id, role, created_at FROM household_members WHERE household_id = ? AND user_id = ?`,
		householdID, userID,
	)
	var m model.HouseholdMember
	err := row.Scan(&m.ID, &m.HouseholdID, &m.UserID, &m.Role, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return &m, nil
}

func (s *HouseholdStore) ListMembers(householdID int64) ([]model.HouseholdMember, error) {
	rows, err := s.db.Query(
		`SELECT id, household_id, user_id, role, created_at FROM household_members WHERE household_id = ? ORDER BY id ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []model.HouseholdMember
	for rows.Next() {
		var m model.HouseholdMember
		if err := rows.Scan(&m.ID, &m.HouseholdID, &m.UserID, &m.Role, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// MembershipForUser returns the user's membership, or nil if they have
// not joined a household yet. A user belongs to at most one household.
func (s *HouseholdStore) MembershipForUser(userID int64) (*model.HouseholdMember, error) {
	row := s.db.QueryRow(
		`SELECT id, household_id, user_id, role, created_at FROM household_members WHERE user_id = ? ORDER BY id ASC LIMIT 1`,
		userID,
	)
	var m model.HouseholdMember
	err := row.Scan(&m.ID, &m.HouseholdID, &m.UserID, &m.Role, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("membership for user: %w", err)
	}
	return &m, nil
}

func (s *HouseholdStore) RemoveMember(householdID, userID int64) error {
	_, err := s.db.Exec(
		`DELETE FROM household_members WHERE household_id = ? AND user_id = ?`,
		householdID, userID,
	)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return nil
}

// ListIDs returns all household ids, used by background schedulers.
func (s *HouseholdStore) ListIDs() ([]int64, error) {
	rows, err := s.db.Query(`SELECT id FROM households ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list household ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan household id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// --- Invites ---

func (s *HouseholdStore) CreateInvite(householdID int64, email, token string, expiresAt time.Time) (*model.Invite, error) {
	result, err := s.db.Exec(
		`INSERT INTO invites (household_id, email, token, expires_at) VALUES (?, ?, ?, ?)`,
		householdID, email, token, expiresAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert invite: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.getInvite(id)
}

func (s *HouseholdStore) getInvite(id int64) (*model.Invite, error) {
	row := s.db.QueryRow(
		`SELECT id, household_id, email, token, expires_at, accepted_at, created_at FROM invites WHERE id = ?`, id)
	return scanInvite(row)
}

func (s *HouseholdStore) GetInviteByToken(token string) (*model.Invite, error) {
	row := s.db.QueryRow(
		`SELECT id, household_id, email, token, expires_at, accepted_at, created_at FROM invites WHERE token = ?`, token)
	inv, err := scanInvite(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return inv, err
}

func (s *HouseholdStore) MarkInviteAccepted(id int64, at time.Time) error {
	_, err := s.db.Exec(`UPDATE invites SET accepted_at = ? WHERE id = ?`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("mark invite accepted: %w", err)
	}
	return nil
}

func scanInvite(scanner interface{ Scan(...any) error }) (*model.Invite, error) {
	var inv model.Invite
	var acceptedAt sql.NullTime
	err := scanner.Scan(&inv.ID, &inv.HouseholdID, &inv.Email, &inv.Token, &inv.ExpiresAt, &acceptedAt, &inv.CreatedAt)
	if err != nil {
		return nil, err
	}
	if acceptedAt.Valid {
		t := acceptedAt.Time
		inv.AcceptedAt = &t
	}
	return &inv, nil
}
