package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"

	"github.com/godweb/backend/internal/inventory"
	"github.com/godweb/backend/internal/models"
	"github.com/godweb/backend/internal/repository"
)

// StockArgs asks for one product's cached stock to be recounted from its
// inventory file.
type StockArgs struct {
	ProductID uuid.UUID `json:"product_id"`
}

func (StockArgs) Kind() string { return "reconcile_stock" }

// StockSweepArgs recounts every product that has an inventory file.
type StockSweepArgs struct{}

func (StockSweepArgs) Kind() string { return "reconcile_stock_sweep" }

// LedgerAuditArgs compares every account balance with its ledger sum.
type LedgerAuditArgs struct{}

func (LedgerAuditArgs) Kind() string { return "audit_ledger" }

type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type ProductStore interface {
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Product, error)
	UpdateCounters(ctx context.Context, tx pgx.Tx, id uuid.UUID, stock, soldCount int) error
	ListStocked(ctx context.Context) ([]uuid.UUID, error)
}

type FileCounter interface {
	Count(name string) (int, error)
}

type DriftFinder interface {
	Drift(ctx context.Context) ([]repository.Drift, error)
}

// Reconciler brings products.stock back in line with the inventory files.
type Reconciler struct {
	Pool     TxBeginner
	Products ProductStore
	Files    FileCounter
	Logger   *slog.Logger
}

func NewReconciler(pool TxBeginner, products ProductStore, files FileCounter, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{Pool: pool, Products: products, Files: files, Logger: logger}
}

// Product recounts one product and reports whether its stock changed. A
// product that was deleted meanwhile, or whose file is missing, is left alone.
func (r *Reconciler) Product(ctx context.Context, id uuid.UUID) (bool, error) {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	p, err := r.Products.GetByIDForUpdate(ctx, tx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !p.HasInventory() {
		return false, nil
	}
	n, err := r.Files.Count(*p.InventoryFile)
	if errors.Is(err, inventory.ErrNotExist) {
		r.Logger.Warn("inventory file missing", "product_id", id, "file", *p.InventoryFile)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if n == p.Stock {
		return false, nil
	}
	if err := r.Products.UpdateCounters(ctx, tx, id, n, p.SoldCount); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	r.Logger.Info("stock reconciled", "product_id", id, "from", p.Stock, "to", n)
	return true, nil
}

// All recounts every product with an inventory file and returns how many
// changed. It keeps going past individual failures and returns them joined.
func (r *Reconciler) All(ctx context.Context) (int, error) {
	ids, err := r.Products.ListStocked(ctx)
	if err != nil {
		return 0, err
	}
	var changed int
	var errs []error
	for _, id := range ids {
		ok, err := r.Product(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("product %s: %w", id, err))
			continue
		}
		if ok {
			changed++
		}
	}
	return changed, errors.Join(errs...)
}

type StockWorker struct {
	river.WorkerDefaults[StockArgs]
	reconciler *Reconciler
}

func NewStockWorker(r *Reconciler) *StockWorker {
	return &StockWorker{reconciler: r}
}

func (w *StockWorker) Work(ctx context.Context, job *river.Job[StockArgs]) error {
	_, err := w.reconciler.Product(ctx, job.Args.ProductID)
	return err
}

type StockSweepWorker struct {
	river.WorkerDefaults[StockSweepArgs]
	reconciler *Reconciler
}

func NewStockSweepWorker(r *Reconciler) *StockSweepWorker {
	return &StockSweepWorker{reconciler: r}
}

func (w *StockSweepWorker) Work(ctx context.Context, job *river.Job[StockSweepArgs]) error {
	n, err := w.reconciler.All(ctx)
	if n > 0 {
		w.reconciler.Logger.Info("stock sweep finished", "changed", n)
	}
	return err
}

// LedgerAuditWorker logs every account whose balance disagrees with its
// ledger. Drift is reported, never corrected automatically.
type LedgerAuditWorker struct {
	river.WorkerDefaults[LedgerAuditArgs]
	ledger DriftFinder
	logger *slog.Logger
}

func NewLedgerAuditWorker(l DriftFinder, logger *slog.Logger) *LedgerAuditWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerAuditWorker{ledger: l, logger: logger}
}

func (w *LedgerAuditWorker) Work(ctx context.Context, job *river.Job[LedgerAuditArgs]) error {
	drift, err := w.ledger.Drift(ctx)
	if err != nil {
		return fmt.Errorf("find ledger drift: %w", err)
	}
	for _, d := range drift {
		w.logger.Error("ledger drift", "account_id", d.AccountID, "balance", d.Balance, "ledger_sum", d.LedgerSum)
	}
	if len(drift) == 0 {
		w.logger.Info("ledger audit clean")
	}
	return nil
}

// Register adds all reconciliation workers to workers.
func Register(workers *river.Workers, r *Reconciler, l DriftFinder, logger *slog.Logger) {
	river.AddWorker(workers, NewStockWorker(r))
	river.AddWorker(workers, NewStockSweepWorker(r))
	river.AddWorker(workers, NewLedgerAuditWorker(l, logger))
}

// PeriodicJobs schedules the ledger audit and the stock sweep every interval,
// both also running once at start.
func PeriodicJobs(interval time.Duration) []*river.PeriodicJob {
	opts := &river.PeriodicJobOpts{RunOnStart: true}
	return []*river.PeriodicJob{
		river.NewPeriodicJob(river.PeriodicInterval(interval), func() (river.JobArgs, *river.InsertOpts) {
			return LedgerAuditArgs{}, nil
		}, opts),
		river.NewPeriodicJob(river.PeriodicInterval(interval), func() (river.JobArgs, *river.InsertOpts) {
			return StockSweepArgs{}, nil
		}, opts),
	}
}
