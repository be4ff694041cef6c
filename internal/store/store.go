package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"billora/backend/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrEmptyCart    = errors.New("empty cart")

	// ErrStoreUnavailable marks a transient backend failure. Callers may retry
	// the same sale under the same idempotency token.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrCommitInconsistency means stock was reserved but the sale record
	// could not be written and compensation also failed. The store may be in
	// a partially applied state and needs operator attention.
	ErrCommitInconsistency = errors.New("commit inconsistency")
)

// InsufficientStockError reports the first line of a sale that could not be
// reserved. The whole sale is rejected; no partial decrement survives.
type InsufficientStockError struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

// PriceChangedError reports a catalog price edit between the quote the
// client priced against and the commit. The sale is rejected so the
// cashier can re-quote instead of silently charging the new price.
type PriceChangedError struct {
	ProductID    string
	Name         string
	QuotedCents  int64
	CatalogCents int64
}

func (e *PriceChangedError) Error() string {
	return fmt.Sprintf("price changed for %s: quoted %d, catalog %d", e.ProductID, e.QuotedCents, e.CatalogCents)
}

// InsufficientPaymentError reports a cash tender below the grand total.
type InsufficientPaymentError struct {
	RequiredCents int64
	TenderedCents int64
}

func (e *InsufficientPaymentError) Error() string {
	return fmt.Sprintf("insufficient payment: required %d, tendered %d", e.RequiredCents, e.TenderedCents)
}

type Repository interface {
	ListProducts(ctx context.Context, shopID string) ([]domain.Product, error)
	ListLowStockProducts(ctx context.Context, shopID string) ([]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeactivateProduct(ctx context.Context, id string) (*domain.Product, error)

	// CommitSale atomically reserves stock for every line and records the
	// transaction. Invoice number assignment happens inside the same unit of
	// work. On an idempotency token collision the previously recorded
	// transaction is returned with duplicate=true and nothing is re-applied.
	CommitSale(ctx context.Context, tx domain.Transaction) (*domain.Transaction, bool, error)
	FindSaleByToken(ctx context.Context, token string) (*domain.Transaction, error)
	FindTransactionByID(ctx context.Context, id string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error)
	SettlePendingTransaction(ctx context.Context, id string) (*domain.Transaction, error)

	CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error)
	ListExpenses(ctx context.Context, filter domain.ExpenseFilter) ([]domain.Expense, error)
	DeleteExpense(ctx context.Context, id string) error
	SummarizeExpenses(ctx context.Context, shopID string, from time.Time, to time.Time) (*domain.ExpenseSummary, error)

	GetDashboardStats(ctx context.Context, shopID string, now time.Time) (*domain.DashboardStats, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error)
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
}
