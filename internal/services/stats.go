package services

import (
	"context"

	"github.com/godweb/backend/internal/models"
)

// Counter is satisfied by repositories that can count their rows.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

type AccountStats interface {
	Stats(ctx context.Context) (count, totalBalance int, err error)
}

type TopupCounter interface {
	CountByStatus(ctx context.Context, status models.TopupStatus) (int, error)
}

// Stats is the administrator dashboard summary.
type Stats struct {
	Accounts             int `json:"accounts"`
	Posts                int `json:"posts"`
	Products             int `json:"products"`
	Orders               int `json:"orders"`
	PendingTopups        int `json:"pending_topups"`
	GodCoinInCirculation int `json:"godcoin_in_circulation"`
}

type StatsService struct {
	Accounts AccountStats
	Posts    Counter
	Products Counter
	Orders   Counter
	Topups   TopupCounter
}

func (s *StatsService) Collect(ctx context.Context) (*Stats, error) {
	var st Stats
	var err error
	if st.Accounts, st.GodCoinInCirculation, err = s.Accounts.Stats(ctx); err != nil {
		return nil, err
	}
	if st.Posts, err = s.Posts.Count(ctx); err != nil {
		return nil, err
	}
	if st.Products, err = s.Products.Count(ctx); err != nil {
		return nil, err
	}
	if st.Orders, err = s.Orders.Count(ctx); err != nil {
		return nil, err
	}
	if st.PendingTopups, err = s.Topups.CountByStatus(ctx, models.TopupPending); err != nil {
		return nil, err
	}
	return &st, nil
}
