package model

import "time"

type Reward struct {
	ID          int64     `json:"id"`
	HouseholdID int64     `json:"household_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CoinCost    int       `json:"coin_cost"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

type RewardRedemption struct {
	ID         int64     `json:"id"`
	RewardID   int64     `json:"reward_id"`
	RedeemedBy int64     `json:"redeemed_by"`
	CoinsSpent int       `json:"coins_spent"`
	RedeemedAt time.Time `json:"redeemed_at"`
}

type CoinBalance struct {
	UserID      int64 `json:"user_id"`
	TotalEarned int   `json:"total_earned"`
	TotalSpent  int   `json:"total_spent"`
	Balance     int   `json:"balance"`
}
