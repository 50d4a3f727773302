package models

import (
	"time"

	"github.com/google/uuid"
)

type Post struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	Content      string    `json:"content,omitempty"`
	Thumbnail    *string   `json:"thumbnail,omitempty"`
	IsPremium    bool      `json:"is_premium"`
	PremiumPrice int       `json:"premium_price"`
	AuthorID     uuid.UUID `json:"author_id"`
	Views        int       `json:"views"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PostPurchase unlocks a premium post for one account. At most one per (account, post).
type PostPurchase struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	PostID    uuid.UUID `json:"post_id"`
	Price     int       `json:"price"`
	CreatedAt time.Time `json:"created_at"`
}
