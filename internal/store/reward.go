package store

import (
	"database/sql"
	"fmt"

	"github.com/pthomsen/chorecraft/internal/model"
)

type RewardStore struct {
	db *sql.DB
}

func NewRewardStore(db *sql.DB) *RewardStore {
	return &RewardStore{db: db}
}

const rewardCols = `id, household_id, title, description, coin_cost, active, created_at`

func scanReward(scanner interface{ Scan(...any) error }) (*model.Reward, error) {
	var r model.Reward
	err := scanner.Scan(&r.ID, &r.HouseholdID, &r.Title, &r.Description, &r.CoinCost, &r.Active, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *RewardStore) Create(householdID int64, title, description string, coinCost int) (*model.Reward, error) {
	result, err := s.db.Exec(
		`INSERT INTO rewards (household_id, title, description, coin_cost) VALUES (?, ?, ?, ?)`,
		householdID, title, description, coinCost,
	)
	if err != nil {
		return nil, fmt.Errorf("insert reward: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *RewardStore) GetByID(id int64) (*model.Reward, error) {
	row := s.db.QueryRow(`SELECT `+rewardCols+` FROM rewards WHERE id = ?`, id)
	r, err := scanReward(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}
	return r, nil
}

func (s *RewardStore) ListByHousehold(householdID int64, activeOnly bool) ([]model.Reward, error) {
	query := `SELECT ` + rewardCols + ` FROM rewards WHERE household_id = ?`
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY coin_cost ASC, id ASC`

	rows, err := s.db.Query(query, householdID)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []model.Reward
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		rewards = append(rewards, *r)
	}
	return rewards, rows.Err()
}

func (s *RewardStore) Update(id int64, title, description string, coinCost int, active bool) (*model.Reward, error) {
	_, err := s.db.Exec(
		`UPDATE rewards SET title = ?, description = ?, coin_cost = ?, active = ? WHERE id = ?`,
		title, description, coinCost, active, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update reward: %w", err)
	}
	return s.GetByID(id)
}

// Redeem records a redemption at the reward's current coin cost.
func (s *RewardStore) Redeem(rewardID, userID int64, coinsSpent int) (*model.RewardRedemption, error) {
	result, err := s.db.Exec(
		`INSERT INTO reward_redemptions (reward_id, redeemed_by, coins_spent) VALUES (?, ?, ?)`,
		rewardID, userID, coinsSpent,
	)
	if err != nil {
		return nil, fmt.Errorf("insert redemption: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(
		`SELECT id, reward_id, redeemed_by, coins_spent, redeemed_at FROM reward_redemptions WHERE id = ?`, id)
	var r model.RewardRedemption
	if err := row.Scan(&r.ID, &r.RewardID, &r.RedeemedBy, &r.CoinsSpent, &r.RedeemedAt); err != nil {
		return nil, fmt.Errorf("get redemption: %w", err)
	}
	return &r, nil
}

// Balance computes a user's coin balance within a household: coins from
// approved completions minus coins spent on redemptions.
func (s *RewardStore) Balance(householdID, userID int64) (*model.CoinBalance, error) {
	var earned int
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(ch.coins), 0)
		 FROM completion_records c
		 JOIN chores ch ON ch.id = c.chore_id
		 WHERE ch.household_id = ? AND c.completed_by = ? AND c.status = 'approved'`,
		householdID, userID,
	).Scan(&earned)
	if err != nil {
		return nil, fmt.Errorf("sum earned: %w", err)
	}

	var spent int
	err = s.db.QueryRow(
		`SELECT COALESCE(SUM(rr.coins_spent), 0)
		 FROM reward_redemptions rr
		 JOIN rewards r ON r.id = rr.reward_id
		 WHERE r.household_id = ? AND rr.redeemed_by = ?`,
		householdID, userID,
	).Scan(&spent)
	if err != nil {
		return nil, fmt.Errorf("sum spent: %w", err)
	}

	return &model.CoinBalance{
		UserID:      userID,
		TotalEarned: earned,
		TotalSpent:  spent,
		Balance:     earned - spent,
	}, nil
}
