package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/godweb/backend/internal/inventory"
	"github.com/godweb/backend/internal/ledger"
	"github.com/godweb/backend/internal/models"
	"github.com/godweb/backend/internal/repository"
)

// ---------------------------------------------------------------------------
// noopTx satisfies pgx.Tx; the in-memory repos below ignore it.
// ---------------------------------------------------------------------------

type noopTx struct {
	commitErr error
}

func (noopTx) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }
func (t noopTx) Commit(context.Context) error        { return t.commitErr }
func (noopTx) Rollback(context.Context) error        { return nil }
func (noopTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (noopTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (noopTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (noopTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (noopTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (noopTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (noopTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (noopTx) Conn() *pgx.Conn { return nil }

// mockPool hands out noopTx values. commitErr makes every Commit fail.
type mockPool struct {
	commitErr error
	mu        sync.Mutex
	commits   int
}

func (p *mockPool) Begin(context.Context) (pgx.Tx, error) {
	return &countingTx{noopTx: noopTx{commitErr: p.commitErr}, pool: p}, nil
}

// countingTx counts successful commits and releases the row locks taken
// through it when the transaction ends, either way.
type countingTx struct {
	noopTx
	pool *mockPool

	mu      sync.Mutex
	release []func()
}

func (t *countingTx) Commit(ctx context.Context) error {
	defer t.end()
	if err := t.noopTx.Commit(ctx); err != nil {
		return err
	}
	t.pool.mu.Lock()
	t.pool.commits++
	t.pool.mu.Unlock()
	return nil
}

func (t *countingTx) Rollback(context.Context) error {
	t.end()
	return nil
}

func (t *countingTx) onEnd(f func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.release = append(t.release, f)
}

func (t *countingTx) end() {
	t.mu.Lock()
	fs := t.release
	t.release = nil
	t.mu.Unlock()
	for _, f := range fs {
		f()
	}
}

func (p *mockPool) commitCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.commits
}

var errCommit = errors.New("commit failed")

// ---------------------------------------------------------------------------
// Accounts and ledger entries.
// ---------------------------------------------------------------------------

type mockAccount struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*models.Account
}

func newMockAccount(accs ...*models.Account) *mockAccount {
	m := &mockAccount{accounts: make(map[uuid.UUID]*models.Account)}
	for _, a := range accs {
		cp := *a
		m.accounts[a.ID] = &cp
	}
	return m
}

func (m *mockAccount) GetByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockAccount) GetByIDForUpdate(ctx context.Context, _ pgx.Tx, id uuid.UUID) (*models.Account, error) {
	return m.GetByID(ctx, id)
}

func (m *mockAccount) DeductBalance(_ context.Context, _ pgx.Tx, id uuid.UUID, amount int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok || a.Balance < amount {
		return 0, repository.ErrNotFound
	}
	a.Balance -= amount
	return a.Balance, nil
}

func (m *mockAccount) AddBalance(_ context.Context, _ pgx.Tx, id uuid.UUID, amount int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	a.Balance += amount
	return a.Balance, nil
}

func (m *mockAccount) balance(id uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[id].Balance
}

type mockLedger struct {
	mu      sync.Mutex
	entries []*models.LedgerEntry
}

func (m *mockLedger) CreateTx(_ context.Context, _ pgx.Tx, e *models.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *mockLedger) ListByAccountID(_ context.Context, id uuid.UUID, _ int) ([]*models.LedgerEntry, error) {
	return m.byAccount(id), nil
}

func (m *mockLedger) List(context.Context, int) ([]*models.LedgerEntry, error) {
	return m.all(), nil
}

func (m *mockLedger) SumByAccountID(_ context.Context, id uuid.UUID) (int, error) {
	total := 0
	for _, e := range m.byAccount(id) {
		total += e.Amount
	}
	return total, nil
}

func (m *mockLedger) FindDrift(context.Context) ([]repository.Drift, error) { return nil, nil }

func (m *mockLedger) byAccount(id uuid.UUID) []*models.LedgerEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.LedgerEntry
	for _, e := range m.entries {
		if e.AccountID == id {
			out = append(out, e)
		}
	}
	return out
}

func (m *mockLedger) all() []*models.LedgerEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.LedgerEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// ---------------------------------------------------------------------------
// Top-ups.
// ---------------------------------------------------------------------------

type mockTopup struct {
	mu     sync.Mutex
	topups map[uuid.UUID]*models.TopupRequest
}

func newMockTopup() *mockTopup {
	return &mockTopup{topups: make(map[uuid.UUID]*models.TopupRequest)}
}

func (m *mockTopup) Create(_ context.Context, t *models.TopupRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.CreatedAt = time.Now()
	cp := *t
	m.topups[t.ID] = &cp
	return nil
}

func (m *mockTopup) GetByIDForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.TopupRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.topups[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *mockTopup) MarkProcessed(_ context.Context, _ pgx.Tx, id uuid.UUID, status models.TopupStatus, at time.Time, by uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.topups[id]
	if !ok || t.Status != models.TopupPending {
		return repository.ErrNotFound
	}
	t.Status = status
	t.ProcessedAt = &at
	t.ProcessedBy = &by
	return nil
}

func (m *mockTopup) ListByAccountID(_ context.Context, accountID uuid.UUID) ([]*models.TopupRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.TopupRequest
	for _, t := range m.topups {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockTopup) ListByStatus(_ context.Context, status models.TopupStatus, _ int) ([]*models.TopupRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.TopupRequest
	for _, t := range m.topups {
		if status == "" || t.Status == status {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockTopup) get(id uuid.UUID) *models.TopupRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.topups[id]
	return &cp
}

// ---------------------------------------------------------------------------
// Products and orders.
// ---------------------------------------------------------------------------

// mockProduct models SELECT ... FOR UPDATE: a lock taken through a
// countingTx is held until that transaction commits or rolls back.
type mockProduct struct {
	mu       sync.Mutex
	products map[uuid.UUID]*models.Product
	rowLocks map[uuid.UUID]*sync.Mutex
}

func newMockProduct(ps ...*models.Product) *mockProduct {
	m := &mockProduct{
		products: make(map[uuid.UUID]*models.Product),
		rowLocks: make(map[uuid.UUID]*sync.Mutex),
	}
	for _, p := range ps {
		cp := *p
		m.products[p.ID] = &cp
	}
	return m
}

func (m *mockProduct) GetByIDForUpdate(_ context.Context, tx pgx.Tx, id uuid.UUID) (*models.Product, error) {
	if ct, ok := tx.(*countingTx); ok {
		row := m.rowLock(id)
		row.Lock()
		ct.onEnd(row.Unlock)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockProduct) UpdateCounters(_ context.Context, _ pgx.Tx, id uuid.UUID, stock, soldCount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Stock = stock
	p.SoldCount = soldCount
	return nil
}

func (m *mockProduct) RecordSale(_ context.Context, _ pgx.Tx, id uuid.UUID, stock int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Stock = stock
	p.SoldCount++
	return nil
}

func (m *mockProduct) rowLock(id uuid.UUID) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.rowLocks[id]
	if !ok {
		l = &sync.Mutex{}
		m.rowLocks[id] = l
	}
	return l
}

func (m *mockProduct) Create(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.CreatedAt = time.Now()
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *mockProduct) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return m.GetByIDForUpdate(ctx, nil, id)
}

func (m *mockProduct) UpdateDetails(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.products[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cur.Name, cur.Description, cur.Price, cur.Image = p.Name, p.Description, p.Price, p.Image
	return nil
}

func (m *mockProduct) SetInventory(_ context.Context, _ pgx.Tx, id uuid.UUID, file string, stock, soldCount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.InventoryFile = &file
	p.Stock = stock
	p.SoldCount = soldCount
	return nil
}

func (m *mockProduct) Delete(_ context.Context, _ pgx.Tx, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.products, id)
	return nil
}

func (m *mockProduct) List(context.Context, int) ([]*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Product, 0, len(m.products))
	for _, p := range m.products {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockProduct) get(id uuid.UUID) *models.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.products[id]
	return &cp
}

type mockOrder struct {
	mu     sync.Mutex
	orders []*models.Order
}

func (m *mockOrder) CreateTx(_ context.Context, _ pgx.Tx, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orders = append(m.orders, &cp)
	return nil
}

func (m *mockOrder) ListByAccountID(_ context.Context, accountID uuid.UUID) ([]*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Order
	for _, o := range m.orders {
		if o.AccountID == accountID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockOrder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

// ---------------------------------------------------------------------------
// Posts and premium grants.
// ---------------------------------------------------------------------------

// mockPost refuses to delete posts that have a grant in purchases, like the
// RESTRICT foreign key on post_purchases.
type mockPost struct {
	mu        sync.Mutex
	posts     map[uuid.UUID]*models.Post
	purchases *mockPurchase
}

func (m *mockPost) GetByID(_ context.Context, id uuid.UUID) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockPost) Create(_ context.Context, p *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.posts[p.ID] = &cp
	return nil
}

func (m *mockPost) Update(_ context.Context, p *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[p.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *p
	m.posts[p.ID] = &cp
	return nil
}

func (m *mockPost) Delete(_ context.Context, id uuid.UUID) error {
	if m.purchases != nil && m.purchases.referenced(id) {
		return repository.ErrReferenced
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.posts, id)
	return nil
}

func (m *mockPost) IncrementViews(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.posts[id]; ok {
		p.Views++
	}
	return nil
}

func (m *mockPost) List(context.Context, int) ([]*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Post, 0, len(m.posts))
	for _, p := range m.posts {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

type grantKey struct{ account, post uuid.UUID }

type mockPurchase struct {
	mu     sync.Mutex
	grants map[grantKey]*models.PostPurchase
}

func newMockPurchase() *mockPurchase {
	return &mockPurchase{grants: make(map[grantKey]*models.PostPurchase)}
}

func (m *mockPurchase) GetTx(_ context.Context, _ pgx.Tx, accountID, postID uuid.UUID) (*models.PostPurchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.grants[grantKey{accountID, postID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (m *mockPurchase) CreateTx(_ context.Context, _ pgx.Tx, p *models.PostPurchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := grantKey{p.AccountID, p.PostID}
	if _, ok := m.grants[k]; ok {
		return repository.ErrDuplicate
	}
	cp := *p
	m.grants[k] = &cp
	return nil
}

func (m *mockPurchase) referenced(postID uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.grants {
		if k.post == postID {
			return true
		}
	}
	return false
}

func (m *mockPurchase) Exists(_ context.Context, accountID, postID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.grants[grantKey{accountID, postID}]
	return ok, nil
}

func (m *mockPurchase) ListByAccountID(_ context.Context, accountID uuid.UUID) ([]*models.PostPurchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.PostPurchase
	for k, g := range m.grants {
		if k.account == accountID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func acct(id uuid.UUID, balance int) *models.Account {
	return &models.Account{ID: id, Username: "u-" + id.String()[:8], Role: models.RoleUser, Balance: balance}
}

// newLedger returns a real ledger service over the in-memory stores.
func newLedger(accounts *mockAccount, entries *mockLedger) ledger.Service {
	return ledger.NewService(accounts, entries, nil)
}

// assertLedgerIntegrity checks balance == sum(entries) for every account.
func assertLedgerIntegrity(t *testing.T, accounts *mockAccount, entries *mockLedger) {
	t.Helper()
	accounts.mu.Lock()
	ids := make([]uuid.UUID, 0, len(accounts.accounts))
	for id := range accounts.accounts {
		ids = append(ids, id)
	}
	accounts.mu.Unlock()
	for _, id := range ids {
		sum, _ := entries.SumByAccountID(context.Background(), id)
		if got := accounts.balance(id); got != sum {
			t.Errorf("account %s: balance %d != ledger sum %d", id, got, sum)
		}
		if accounts.balance(id) < 0 {
			t.Errorf("account %s: negative balance %d", id, accounts.balance(id))
		}
	}
}

// writeInventory creates an inventory store in a temp dir holding lines for productID.
func writeInventory(t *testing.T, productID uuid.UUID, contents string) (*inventory.Store, string) {
	t.Helper()
	store, err := inventory.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	name := inventory.FileName(productID)
	if err := os.WriteFile(filepath.Join(store.Dir(), name), []byte(contents), 0o600); err != nil {
		t.Fatalf("write inventory: %v", err)
	}
	return store, name
}

func readInventory(t *testing.T, store *inventory.Store, name string) string {
	t.Helper()
	raw, err := store.Read(name)
	if err != nil {
		t.Fatalf("read inventory: %v", err)
	}
	return string(raw)
}
