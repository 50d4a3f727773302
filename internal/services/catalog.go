package services

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/godweb/backend/internal/inventory"
	"github.com/godweb/backend/internal/models"
)

// CatalogProductRepo is the product repository interface used by the catalogue.
type CatalogProductRepo interface {
	Create(ctx context.Context, p *models.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Product, error)
	UpdateDetails(ctx context.Context, p *models.Product) error
	SetInventory(ctx context.Context, tx pgx.Tx, id uuid.UUID, file string, stock, soldCount int) error
	Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	List(ctx context.Context, limit int) ([]*models.Product, error)
}

// InventoryFiles is the file side of the inventory store used by the catalogue.
type InventoryFiles interface {
	Stage(name string, r io.Reader) (*inventory.Upload, error)
	Read(name string) ([]byte, error)
	Remove(name string) error
}

// InsertStockReconcileTxFunc enqueues a stock reconciliation for productID
// within the given transaction.
type InsertStockReconcileTxFunc func(ctx context.Context, tx pgx.Tx, productID uuid.UUID) error

// CatalogService manages products and their inventory files.
type CatalogService struct {
	Pool         TxBeginner
	Products     CatalogProductRepo
	Files        InventoryFiles
	EnqueueRecon InsertStockReconcileTxFunc
	Logger       *slog.Logger
}

func NewCatalogService(pool TxBeginner, products CatalogProductRepo, files InventoryFiles, enqueue InsertStockReconcileTxFunc, logger *slog.Logger) *CatalogService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogService{Pool: pool, Products: products, Files: files, EnqueueRecon: enqueue, Logger: logger}
}

func (s *CatalogService) Create(ctx context.Context, p *models.Product) error {
	if p.Price < 0 {
		return ErrInvalidAmount
	}
	p.ID = uuid.New()
	return s.Products.Create(ctx, p)
}

func (s *CatalogService) Update(ctx context.Context, p *models.Product) (*models.Product, error) {
	if p.Price < 0 {
		return nil, ErrInvalidAmount
	}
	if err := s.Products.UpdateDetails(ctx, p); err != nil {
		return nil, err
	}
	return s.Products.GetByID(ctx, p.ID)
}

func (s *CatalogService) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return s.Products.GetByID(ctx, id)
}

func (s *CatalogService) List(ctx context.Context, limit int) ([]*models.Product, error) {
	return s.Products.List(ctx, limit)
}

// UploadInventory replaces the product's inventory file with the lines read
// from r, sets stock to the line count and resets sold_count. The product
// row is locked first, the same order Buy takes its locks in. The new file is
// staged and only moved into place once the row update has committed.
func (s *CatalogService) UploadInventory(ctx context.Context, productID uuid.UUID, r io.Reader) (*models.Product, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	p, err := s.Products.GetByIDForUpdate(ctx, tx, productID)
	if err != nil {
		return nil, err
	}
	name := inventory.FileName(productID)
	up, err := s.Files.Stage(name, r)
	if err != nil {
		return nil, err
	}
	defer up.Discard()

	n := up.Len()
	if err := s.Products.SetInventory(ctx, tx, productID, name, n, 0); err != nil {
		return nil, err
	}
	if s.EnqueueRecon != nil {
		if err := s.EnqueueRecon(ctx, tx, productID); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	// The row already names the file; the queued reconciliation realigns
	// stock with whatever file is in place if the rename fails.
	if err := up.Install(); err != nil {
		s.Logger.Error("install inventory file", "product_id", productID, "error", err)
		return nil, err
	}

	p.InventoryFile = &name
	p.Stock = n
	p.SoldCount = 0
	s.Logger.Info("inventory uploaded", "product_id", productID, "stock", n)
	return p, nil
}

// Inventory returns the raw inventory file of a product.
func (s *CatalogService) Inventory(ctx context.Context, productID uuid.UUID) ([]byte, error) {
	p, err := s.Products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.HasInventory() {
		return nil, ErrNoInventory
	}
	raw, err := s.Files.Read(*p.InventoryFile)
	if errors.Is(err, inventory.ErrNotExist) {
		return nil, ErrNoInventory
	}
	return raw, err
}

// Delete removes the product and its inventory file.
func (s *CatalogService) Delete(ctx context.Context, productID uuid.UUID) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	p, err := s.Products.GetByIDForUpdate(ctx, tx, productID)
	if err != nil {
		return err
	}
	if err := s.Products.Delete(ctx, tx, productID); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	if p.HasInventory() {
		if err := s.Files.Remove(*p.InventoryFile); err != nil {
			s.Logger.Error("remove inventory file", "product_id", productID, "error", err)
		}
	}
	s.Logger.Info("product deleted", "product_id", productID)
	return nil
}
