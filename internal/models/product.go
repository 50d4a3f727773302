package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a sellable digital good. Stock mirrors the line count of the
// product's inventory file and is only written together with it.
type Product struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Price         int       `json:"price"`
	Image         *string   `json:"image,omitempty"`
	Stock         int       `json:"stock"`
	SoldCount     int       `json:"sold_count"`
	InventoryFile *string   `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
}

// HasInventory reports whether a backing inventory resource is configured.
func (p *Product) HasInventory() bool {
	return p.InventoryFile != nil && *p.InventoryFile != ""
}

// Order records one dispensed credential. Immutable once created.
type Order struct {
	ID          uuid.UUID `json:"id"`
	AccountID   uuid.UUID `json:"account_id"`
	ProductID   uuid.UUID `json:"product_id"`
	AccountInfo string    `json:"account_info"`
	Price       int       `json:"price"`
	CreatedAt   time.Time `json:"created_at"`
}
