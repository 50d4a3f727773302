package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Top-up constants: minimum fiat amount and the fixed fiat-per-GodCoin rate.
const (
	MinTopupAmount = 10000
	FiatPerGodCoin = 1000
)

// TopupStatus is the state of a top-up request. Approved and rejected are terminal.
type TopupStatus string

const (
	TopupPending  TopupStatus = "pending"
	TopupApproved TopupStatus = "approved"
	TopupRejected TopupStatus = "rejected"
)

func (s TopupStatus) Valid() bool {
	switch s {
	case TopupPending, TopupApproved, TopupRejected:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s TopupStatus) Terminal() bool {
	return s == TopupApproved || s == TopupRejected
}

// ParseTopupStatus returns the TopupStatus for s, or an error if s is unknown.
func ParseTopupStatus(s string) (TopupStatus, error) {
	st := TopupStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown top-up status %q", s)
	}
	return st, nil
}

// PaymentMethod is how the account holder pays for a top-up.
type PaymentMethod string

const (
	PaymentMomo PaymentMethod = "momo"
	PaymentBank PaymentMethod = "bank"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMomo || m == PaymentBank
}

// ParsePaymentMethod returns the PaymentMethod for s, or an error if s is unknown.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(s)
	if !m.Valid() {
		return "", fmt.Errorf("unknown payment method %q", s)
	}
	return m, nil
}

// GodCoinForFiat converts a fiat amount to GodCoin, rounding down.
func GodCoinForFiat(amount int) int {
	return amount / FiatPerGodCoin
}

type TopupRequest struct {
	ID            uuid.UUID     `json:"id"`
	AccountID     uuid.UUID     `json:"account_id"`
	Amount        int           `json:"amount"`
	GodCoinAmount int           `json:"godcoin_amount"`
	Method        PaymentMethod `json:"method"`
	Status        TopupStatus   `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	ProcessedAt   *time.Time    `json:"processed_at,omitempty"`
	ProcessedBy   *uuid.UUID    `json:"processed_by,omitempty"`
}
