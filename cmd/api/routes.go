package main

import (
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/godweb/backend/internal/auth"
	"github.com/godweb/backend/internal/handlers"
	"github.com/godweb/backend/internal/inventory"
	"github.com/godweb/backend/internal/ledger"
	"github.com/godweb/backend/internal/repository"
	"github.com/godweb/backend/internal/router"
	"github.com/godweb/backend/internal/services"
)

// repos groups the Postgres repositories shared by services and workers.
type repos struct {
	accounts  *repository.AccountRepo
	entries   *repository.LedgerRepo
	topups    *repository.TopupRepo
	products  *repository.ProductRepo
	orders    *repository.OrderRepo
	posts     *repository.PostRepo
	purchases *repository.PurchaseRepo
}

func newRepos(pool *pgxpool.Pool) *repos {
	return &repos{
		accounts:  repository.NewAccountRepo(pool),
		entries:   repository.NewLedgerRepo(pool),
		topups:    repository.NewTopupRepo(pool),
		products:  repository.NewProductRepo(pool),
		orders:    repository.NewOrderRepo(pool),
		posts:     repository.NewPostRepo(pool),
		purchases: repository.NewPurchaseRepo(pool),
	}
}

// buildAPI wires services and handlers into the /api/v1 router.
// Middleware chain: BearerAuth -> (RequireAdmin) -> (ValidateBody) -> handler.
func buildAPI(
	pool *pgxpool.Pool,
	r *repos,
	store *inventory.Store,
	ledgerSvc ledger.Service,
	authSvc auth.Service,
	enqueueRecon services.InsertStockReconcileTxFunc,
	logger *slog.Logger,
) (http.Handler, error) {
	validator, err := services.NewValidator()
	if err != nil {
		return nil, err
	}

	topupSvc := services.NewTopupService(pool, r.topups, ledgerSvc, logger)
	purchaseSvc := services.NewPurchaseService(pool, r.products, r.orders, store, ledgerSvc, logger)
	premiumSvc := services.NewPremiumService(pool, r.posts, r.accounts, r.purchases, ledgerSvc, logger)
	adjustSvc := services.NewAdjustService(pool, ledgerSvc, logger)
	catalogSvc := services.NewCatalogService(pool, r.products, store, enqueueRecon, logger)
	blogSvc := services.NewBlogService(r.posts, premiumSvc, logger)
	statsSvc := &services.StatsService{
		Accounts: r.accounts,
		Posts:    r.posts,
		Products: r.products,
		Orders:   r.orders,
		Topups:   r.topups,
	}

	return router.New(router.Deps{
		Auth:   auth.NewHandler(authSvc, logger),
		Wallet: handlers.NewWalletHandler(topupSvc, ledgerSvc, logger),
		Store:  handlers.NewStoreHandler(catalogSvc, purchaseSvc, logger),
		Blog:   handlers.NewBlogHandler(blogSvc, premiumSvc, logger),
		Admin: &handlers.AdminHandler{
			Stats:    statsSvc,
			Topups:   topupSvc,
			Adjust:   adjustSvc,
			Ledger:   ledgerSvc,
			Accounts: r.accounts,
			Editor:   authSvc,
			Orders:   r.orders,
			Products: catalogSvc,
			Posts:    blogSvc,
			Logger:   logger,
		},
		Tokens:    authSvc,
		Accounts:  r.accounts,
		Validator: validator,
	}), nil
}
