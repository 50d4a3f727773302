package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/godweb/backend/internal/ledger"
	"github.com/godweb/backend/internal/models"
	"github.com/godweb/backend/internal/repository"
)

var (
	// ErrDuplicateAccount is returned when registering with an email or username that already exists.
	ErrDuplicateAccount   = errors.New("email or username already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrInvalidProfile     = errors.New("username, email and role are required")
)

const (
	tokenTTL       = 24 * time.Hour
	minPasswordLen = 6
)

type Service interface {
	Register(ctx context.Context, username, email, password string) (*models.Account, error)
	Login(ctx context.Context, email, password string) (string, *models.Account, error)
	ValidateToken(ctx context.Context, token string) (uuid.UUID, models.Role, error)
	EnsureAdmin(ctx context.Context, email, password string, seedBalance int) (*models.Account, error)
	UpdateUsername(ctx context.Context, id uuid.UUID, username string) (*models.Account, error)
	ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error
	UpdateAccount(ctx context.Context, id uuid.UUID, username, email string, role models.Role) (*models.Account, error)
}

type service struct {
	pool     TxBeginner
	accounts AccountStore
	ledger   ledger.Service
	secret   []byte
	log      *slog.Logger
}

func NewService(pool TxBeginner, accounts AccountStore, l ledger.Service, secret string, log *slog.Logger) *service {
	if secret == "" {
		secret = "supersecretmvp"
	}
	if log == nil {
		log = slog.Default()
	}
	return &service{pool: pool, accounts: accounts, ledger: l, secret: []byte(secret), log: log}
}

// Ensure service implements Service at compile time.
var _ Service = (*service)(nil)

type claims struct {
	jwt.RegisteredClaims
	Role models.Role `json:"role"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *service) Register(ctx context.Context, username, email, password string) (*models.Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	acc := &models.Account{
		ID:           uuid.New(),
		Username:     strings.TrimSpace(username),
		Email:        normalizeEmail(email),
		PasswordHash: string(hash),
		Role:         models.RoleUser,
	}
	if err := s.accounts.Create(ctx, acc); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateAccount
		}
		return nil, err
	}
	return acc, nil
}

func (s *service) Login(ctx context.Context, email, password string) (string, *models.Account, error) {
	acc, err := s.accounts.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}
	token, err := s.issueToken(acc.ID, acc.Role)
	if err != nil {
		return "", nil, err
	}
	return token, acc, nil
}

// UpdateUsername renames the account. A name held by another account returns
// ErrDuplicateAccount.
func (s *service) UpdateUsername(ctx context.Context, id uuid.UUID, username string) (*models.Account, error) {
	acc, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.UpdateAccount(ctx, id, username, acc.Email, acc.Role)
}

// ChangePassword replaces the password after checking the current one.
func (s *service) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	if len(next) < minPasswordLen {
		return ErrWeakPassword
	}
	acc, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(current)); err != nil {
		return ErrWrongPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.accounts.UpdatePassword(ctx, id, string(hash)); err != nil {
		return err
	}
	s.log.Info("password changed", "account_id", id)
	return nil
}

// UpdateAccount sets username, email and role. The balance is never touched
// here; it only moves through the ledger.
func (s *service) UpdateAccount(ctx context.Context, id uuid.UUID, username, email string, role models.Role) (*models.Account, error) {
	username, email = strings.TrimSpace(username), normalizeEmail(email)
	if username == "" || email == "" || !role.Valid() {
		return nil, ErrInvalidProfile
	}
	acc, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	acc.Username, acc.Email, acc.Role = username, email, role
	if err := s.accounts.Update(ctx, acc); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateAccount
		}
		return nil, err
	}
	s.log.Info("account updated", "account_id", id, "role", role)
	return acc, nil
}

func (s *service) issueToken(accountID uuid.UUID, role models.Role) (string, error) {
	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Role: role,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(s.secret)
}

func (s *service) ValidateToken(ctx context.Context, token string) (uuid.UUID, models.Role, error) {
	tok, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return uuid.Nil, "", err
	}
	c, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid {
		return uuid.Nil, "", errors.New("invalid token")
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, "", err
	}
	return id, c.Role, nil
}

// EnsureAdmin creates the bootstrap administrator if no account uses email.
// The seed balance is credited through the ledger in the same transaction.
func (s *service) EnsureAdmin(ctx context.Context, email, password string, seedBalance int) (*models.Account, error) {
	email = normalizeEmail(email)
	existing, err := s.accounts.GetByEmail(ctx, email)
	if err == nil {
		if !existing.IsAdmin() {
			s.log.Warn("bootstrap admin email belongs to a non-admin account", "email", email)
		}
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	acc := &models.Account{
		ID:           uuid.New(),
		Username:     "admin",
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := s.accounts.CreateTx(ctx, tx, acc); err != nil {
		return nil, err
	}
	if seedBalance > 0 {
		e, err := s.ledger.Record(ctx, tx, acc.ID, models.LedgerAdminAdd, seedBalance, "bootstrap balance")
		if err != nil {
			return nil, err
		}
		acc.Balance = e.BalanceAfter
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	s.log.Info("bootstrap admin created", "account_id", acc.ID, "email", email, "balance", acc.Balance)
	return acc, nil
}
