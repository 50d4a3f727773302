package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/godweb/backend/internal/inventory"
	"github.com/godweb/backend/internal/ledger"
	"github.com/godweb/backend/internal/models"
)

// StoreProductRepo is the product repository interface used by the store.
type StoreProductRepo interface {
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Product, error)
	UpdateCounters(ctx context.Context, tx pgx.Tx, id uuid.UUID, stock, soldCount int) error
	RecordSale(ctx context.Context, tx pgx.Tx, id uuid.UUID, stock int) error
}

// StoreOrderRepo is the order repository interface used by the store.
type StoreOrderRepo interface {
	CreateTx(ctx context.Context, tx pgx.Tx, o *models.Order) error
	ListByAccountID(ctx context.Context, accountID uuid.UUID) ([]*models.Order, error)
}

// InventoryOpener opens a locked inventory file.
type InventoryOpener interface {
	Open(name string) (*inventory.Handle, error)
}

// PurchaseService sells one inventory line per order.
type PurchaseService struct {
	Pool      TxBeginner
	Products  StoreProductRepo
	Orders    StoreOrderRepo
	Inventory InventoryOpener
	Ledger    ledger.Service
	Logger    *slog.Logger
}

func NewPurchaseService(pool TxBeginner, products StoreProductRepo, orders StoreOrderRepo, inv InventoryOpener, l ledger.Service, logger *slog.Logger) *PurchaseService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PurchaseService{Pool: pool, Products: products, Orders: orders, Inventory: inv, Ledger: l, Logger: logger}
}

// Buy debits the product price, pops the first inventory line and records it
// on a new order. The product row lock and the inventory file lock are both
// held until the transaction ends. The file is flushed before commit and
// restored only when the commit is known to have rolled back; if the outcome
// is unknown the line stays withheld, so it is never handed out twice.
func (s *PurchaseService) Buy(ctx context.Context, accountID, productID uuid.UUID) (*models.Order, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	p, err := s.Products.GetByIDForUpdate(ctx, tx, productID)
	if err != nil {
		return nil, err
	}
	if !p.HasInventory() {
		return nil, ErrNoInventory
	}

	h, err := s.Inventory.Open(*p.InventoryFile)
	if errors.Is(err, inventory.ErrNotExist) {
		return nil, ErrNoInventory
	}
	if err != nil {
		return nil, err
	}
	defer h.Close()

	if h.Len() == 0 {
		if p.Stock != 0 {
			if err := s.Products.UpdateCounters(ctx, tx, p.ID, 0, p.SoldCount); err != nil {
				return nil, err
			}
			if err := tx.Commit(ctx); err != nil {
				return nil, err
			}
		}
		return nil, ErrNoInventory
	}

	if p.Price > 0 {
		if _, err := s.Ledger.Record(ctx, tx, accountID, models.LedgerPurchase, -p.Price, "Purchase product: "+p.Name); err != nil {
			return nil, err
		}
	}

	item, err := h.Pop()
	if err != nil {
		return nil, err
	}
	if err := s.Products.RecordSale(ctx, tx, p.ID, h.Len()); err != nil {
		return nil, err
	}
	order := &models.Order{
		ID:          uuid.New(),
		AccountID:   accountID,
		ProductID:   p.ID,
		AccountInfo: item,
		Price:       p.Price,
	}
	if err := s.Orders.CreateTx(ctx, tx, order); err != nil {
		return nil, err
	}

	if err := h.Flush(); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		if !commitRolledBack(err) {
			s.Logger.Error("purchase commit outcome unknown, inventory line withheld",
				"product_id", p.ID, "order_id", order.ID, "error", err)
			return nil, err
		}
		if rerr := h.Restore(); rerr != nil {
			s.Logger.Error("inventory restore failed", "product_id", p.ID, "error", rerr)
		}
		return nil, err
	}
	s.Logger.Info("product purchased", "product_id", p.ID, "account_id", accountID, "order_id", order.ID, "remaining", h.Len())
	return order, nil
}

func (s *PurchaseService) OrderHistory(ctx context.Context, accountID uuid.UUID) ([]*models.Order, error) {
	return s.Orders.ListByAccountID(ctx, accountID)
}

// commitRolledBack reports whether a failed commit certainly did not apply:
// the server refused it, or it was never sent.
func commitRolledBack(err error) bool {
	if errors.Is(err, pgx.ErrTxCommitRollback) || pgconn.SafeToRetry(err) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr)
}
