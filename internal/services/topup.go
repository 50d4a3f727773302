package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/godweb/backend/internal/ledger"
	"github.com/godweb/backend/internal/models"
	"github.com/godweb/backend/internal/repository"
)

// TopupRepo is the top-up request repository used by TopupService.
type TopupRepo interface {
	Create(ctx context.Context, t *models.TopupRequest) error
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.TopupRequest, error)
	MarkProcessed(ctx context.Context, tx pgx.Tx, id uuid.UUID, status models.TopupStatus, at time.Time, by uuid.UUID) error
	ListByAccountID(ctx context.Context, accountID uuid.UUID) ([]*models.TopupRequest, error)
	ListByStatus(ctx context.Context, status models.TopupStatus, limit int) ([]*models.TopupRequest, error)
}

// TopupService turns off-platform payments into GodCoin once an
// administrator confirms them.
type TopupService struct {
	Pool   TxBeginner
	Topups TopupRepo
	Ledger ledger.Service
	Logger *slog.Logger
	Now    func() time.Time
}

func NewTopupService(pool TxBeginner, topups TopupRepo, l ledger.Service, logger *slog.Logger) *TopupService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TopupService{Pool: pool, Topups: topups, Ledger: l, Logger: logger, Now: time.Now}
}

// Request records a pending top-up of amount fiat units paid by method.
func (s *TopupService) Request(ctx context.Context, accountID uuid.UUID, amount int, method string) (*models.TopupRequest, error) {
	if amount < models.MinTopupAmount {
		return nil, ErrInvalidAmount
	}
	m, err := models.ParsePaymentMethod(method)
	if err != nil {
		return nil, ErrInvalidMethod
	}
	t := &models.TopupRequest{
		ID:            uuid.New(),
		AccountID:     accountID,
		Amount:        amount,
		GodCoinAmount: models.GodCoinForFiat(amount),
		Method:        m,
		Status:        models.TopupPending,
	}
	if err := s.Topups.Create(ctx, t); err != nil {
		return nil, err
	}
	s.Logger.Info("topup requested", "topup_id", t.ID, "account_id", accountID, "amount", amount, "method", m)
	return t, nil
}

// Approve credits the request's GodCoin to its account and closes it.
func (s *TopupService) Approve(ctx context.Context, id, adminID uuid.UUID) (*models.TopupRequest, error) {
	return s.process(ctx, id, adminID, models.TopupApproved)
}

// Reject closes the request without touching any balance.
func (s *TopupService) Reject(ctx context.Context, id, adminID uuid.UUID) (*models.TopupRequest, error) {
	return s.process(ctx, id, adminID, models.TopupRejected)
}

func (s *TopupService) process(ctx context.Context, id, adminID uuid.UUID, to models.TopupStatus) (*models.TopupRequest, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	t, err := s.Topups.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if t.Status.Terminal() {
		return nil, ErrAlreadyProcessed
	}

	now := s.Now().UTC()
	if err := s.Topups.MarkProcessed(ctx, tx, id, to, now, adminID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAlreadyProcessed
		}
		return nil, err
	}
	if to == models.TopupApproved && t.GodCoinAmount > 0 {
		desc := fmt.Sprintf("GodCoin top-up via %s", strings.ToUpper(string(t.Method)))
		if _, err := s.Ledger.Record(ctx, tx, t.AccountID, models.LedgerTopup, t.GodCoinAmount, desc); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	t.Status = to
	t.ProcessedAt = &now
	t.ProcessedBy = &adminID
	s.Logger.Info("topup processed", "topup_id", id, "status", to, "admin_id", adminID)
	return t, nil
}

func (s *TopupService) ListForAccount(ctx context.Context, accountID uuid.UUID) ([]*models.TopupRequest, error) {
	return s.Topups.ListByAccountID(ctx, accountID)
}

// List returns requests in status, or all requests when status is empty.
func (s *TopupService) List(ctx context.Context, status models.TopupStatus, limit int) ([]*models.TopupRequest, error) {
	return s.Topups.ListByStatus(ctx, status, limit)
}
