package models

import (
	"time"

	"github.com/google/uuid"
)

// LedgerKind is the closed set of balance-affecting event kinds.
type LedgerKind string

const (
	LedgerTopup         LedgerKind = "topup"
	LedgerPurchase      LedgerKind = "purchase"
	LedgerAdminAdd      LedgerKind = "admin_add"
	LedgerAdminSubtract LedgerKind = "admin_subtract"
)

func (k LedgerKind) Valid() bool {
	switch k {
	case LedgerTopup, LedgerPurchase, LedgerAdminAdd, LedgerAdminSubtract:
		return true
	}
	return false
}

// IsDebit reports whether entries of this kind carry a negative amount.
func (k LedgerKind) IsDebit() bool {
	return k == LedgerPurchase || k == LedgerAdminSubtract
}

// Direction selects credit or debit for an administrative adjustment.
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

func (d Direction) Valid() bool {
	return d == DirectionCredit || d == DirectionDebit
}

// LedgerEntry is an immutable record of one balance change. Amount is signed:
// credits are positive, debits negative.
type LedgerEntry struct {
	ID           uuid.UUID  `json:"id"`
	AccountID    uuid.UUID  `json:"account_id"`
	Kind         LedgerKind `json:"kind"`
	Amount       int        `json:"amount"`
	Description  string     `json:"description"`
	BalanceAfter int        `json:"balance_after"`
	CreatedAt    time.Time  `json:"created_at"`
}
