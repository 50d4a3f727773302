package router

import (
	"net/http"

	"github.com/godweb/backend/internal/auth"
	"github.com/godweb/backend/internal/handlers"
	"github.com/godweb/backend/internal/middleware"
	"github.com/godweb/backend/internal/services"
)

// Deps holds the handlers and middleware collaborators the API is built from.
type Deps struct {
	Auth   *auth.Handler
	Wallet *handlers.WalletHandler
	Store  *handlers.StoreHandler
	Blog   *handlers.BlogHandler
	Admin  *handlers.AdminHandler

	Tokens    middleware.TokenValidator
	Accounts  middleware.AccountLookup
	Validator middleware.BodyValidator
}

// New returns an http.Handler that serves the API under /api/v1.
func New(d Deps) http.Handler {
	mux := http.NewServeMux()
	const base = "/api/v1"

	authed := middleware.BearerAuth(d.Tokens, d.Accounts)
	optional := middleware.OptionalAuth(d.Tokens, d.Accounts)
	admin := func(h http.Handler) http.Handler { return authed(middleware.RequireAdmin(h)) }
	body := func(schema string, h http.HandlerFunc) http.Handler {
		return middleware.ValidateBody(d.Validator, schema)(h)
	}

	// Public
	mux.Handle("POST "+base+"/auth/register", body(services.SchemaRegister, d.Auth.Register))
	mux.Handle("POST "+base+"/auth/login", body(services.SchemaLogin, d.Auth.Login))
	mux.HandleFunc("GET "+base+"/store/products", d.Store.ListProducts)
	mux.HandleFunc("GET "+base+"/store/products/{id}", d.Store.GetProduct)
	mux.HandleFunc("GET "+base+"/posts", d.Blog.ListPosts)
	mux.Handle("GET "+base+"/posts/{id}", optional(http.HandlerFunc(d.Blog.GetPost)))

	// Authenticated
	mux.Handle("GET "+base+"/account/me", authed(http.HandlerFunc(d.Auth.Me)))
	mux.Handle("PUT "+base+"/account/profile", authed(body(services.SchemaProfile, d.Auth.UpdateProfile)))
	mux.Handle("POST "+base+"/account/password", authed(body(services.SchemaPassword, d.Auth.ChangePassword)))
	mux.Handle("GET "+base+"/account/purchases", authed(http.HandlerFunc(d.Blog.Purchases)))
	mux.Handle("GET "+base+"/wallet/transactions", authed(http.HandlerFunc(d.Wallet.Transactions)))
	mux.Handle("POST "+base+"/wallet/topups", authed(body(services.SchemaTopup, d.Wallet.CreateTopup)))
	mux.Handle("GET "+base+"/wallet/topups", authed(http.HandlerFunc(d.Wallet.ListTopups)))
	mux.Handle("POST "+base+"/store/products/{id}/buy", authed(http.HandlerFunc(d.Store.Buy)))
	mux.Handle("GET "+base+"/store/orders", authed(http.HandlerFunc(d.Store.Orders)))
	mux.Handle("POST "+base+"/posts/{id}/purchase", authed(http.HandlerFunc(d.Blog.Purchase)))

	// Administrator
	a := d.Admin
	mux.Handle("GET "+base+"/admin/stats", admin(http.HandlerFunc(a.GetStats)))
	mux.Handle("GET "+base+"/admin/topups", admin(http.HandlerFunc(a.ListTopups)))
	mux.Handle("POST "+base+"/admin/topups/{id}/approve", admin(http.HandlerFunc(a.ApproveTopup)))
	mux.Handle("POST "+base+"/admin/topups/{id}/reject", admin(http.HandlerFunc(a.RejectTopup)))
	mux.Handle("GET "+base+"/admin/accounts", admin(http.HandlerFunc(a.ListAccounts)))
	mux.Handle("PUT "+base+"/admin/accounts/{id}", admin(body(services.SchemaAccount, a.UpdateAccount)))
	mux.Handle("POST "+base+"/admin/accounts/{id}/balance", admin(body(services.SchemaAdjust, a.AdjustBalance)))
	mux.Handle("GET "+base+"/admin/accounts/{id}/audit", admin(http.HandlerFunc(a.Audit)))
	mux.Handle("GET "+base+"/admin/transactions", admin(http.HandlerFunc(a.Transactions)))
	mux.Handle("GET "+base+"/admin/orders", admin(http.HandlerFunc(a.ListOrders)))
	mux.Handle("POST "+base+"/admin/products", admin(body(services.SchemaProduct, a.CreateProduct)))
	mux.Handle("PUT "+base+"/admin/products/{id}", admin(body(services.SchemaProduct, a.UpdateProduct)))
	mux.Handle("DELETE "+base+"/admin/products/{id}", admin(http.HandlerFunc(a.DeleteProduct)))
	mux.Handle("PUT "+base+"/admin/products/{id}/inventory", admin(http.HandlerFunc(a.UploadInventory)))
	mux.Handle("GET "+base+"/admin/products/{id}/inventory", admin(http.HandlerFunc(a.DownloadInventory)))
	mux.Handle("POST "+base+"/admin/posts", admin(body(services.SchemaPost, a.CreatePost)))
	mux.Handle("PUT "+base+"/admin/posts/{id}", admin(body(services.SchemaPost, a.UpdatePost)))
	mux.Handle("DELETE "+base+"/admin/posts/{id}", admin(http.HandlerFunc(a.DeletePost)))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return mux
}
