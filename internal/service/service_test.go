package service

import (
	"context"
	"errors"
	"testing"

	"billora/backend/internal/domain"
	"billora/backend/internal/store"
)

func TestCreateProductRequiresOwner(t *testing.T) {
	svc, _ := newTestService(t)

	req := domain.ProductCreateRequest{
		Name: "Ghee 1L", Category: "dairy", PriceCents: 62000, GSTPercent: 12, InitialStock: 10,
	}

	if _, err := svc.CreateProduct(cashierContext(), req); err == nil {
		t.Fatalf("cashier was allowed to create a product")
	}
	if _, err := svc.CreateProduct(context.Background(), req); err == nil {
		t.Fatalf("anonymous caller was allowed to create a product")
	}

	created, err := svc.CreateProduct(ownerContext(), req)
	if err != nil {
		t.Fatalf("owner CreateProduct: %v", err)
	}
	if created.ID == "" || !created.Active {
		t.Fatalf("created product = %+v, want id assigned and active", created)
	}
	if created.Unit != "pcs" {
		t.Fatalf("unit = %q, want default pcs", created.Unit)
	}
	if created.Stock != 10 {
		t.Fatalf("stock = %d, want 10", created.Stock)
	}
}

func TestCreateProductValidation(t *testing.T) {
	svc, _ := newTestService(t)

	cases := []domain.ProductCreateRequest{
		{Name: "", Category: "grocery", PriceCents: 100},
		{Name: "X", Category: "", PriceCents: 100},
		{Name: "X", Category: "grocery", PriceCents: 0},
		{Name: "X", Category: "grocery", PriceCents: 100, GSTPercent: 101},
		{Name: "X", Category: "grocery", PriceCents: 100, GSTPercent: -1},
		{Name: "X", Category: "grocery", PriceCents: 100, InitialStock: -1},
	}
	for i, req := range cases {
		if _, err := svc.CreateProduct(ownerContext(), req); !errors.Is(err, store.ErrInvalidInput) {
			t.Fatalf("case %d: err = %v, want ErrInvalidInput", i, err)
		}
	}
}

func TestCreateProductUppercasesSKU(t *testing.T) {
	svc, _ := newTestService(t)

	created, err := svc.CreateProduct(ownerContext(), domain.ProductCreateRequest{
		SKU: " sku-ghee-01 ", Name: "Ghee 1L", Category: "dairy", PriceCents: 62000,
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	if created.SKU != "SKU-GHEE-01" {
		t.Fatalf("sku = %q, want SKU-GHEE-01", created.SKU)
	}
}

func TestUpdateProductPatchesFields(t *testing.T) {
	svc, _ := newTestService(t)

	price := int64(47000)
	stock := 14
	updated, err := svc.UpdateProduct(ownerContext(), "prod-rice-5kg", domain.ProductUpdateRequest{
		PriceCents: &price,
		Stock:      &stock,
	})
	if err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}
	if updated.PriceCents != 47000 || updated.Stock != 14 {
		t.Fatalf("patched product price=%d stock=%d, want 47000/14", updated.PriceCents, updated.Stock)
	}
	// Untouched fields survive.
	if updated.Name != "Basmati Rice 5kg" || updated.GSTPercent != 5 {
		t.Fatalf("unrelated fields changed: %+v", updated)
	}
}

func TestDeactivateProductHidesItFromSales(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.DeactivateProduct(ownerContext(), "prod-soap"); err != nil {
		t.Fatalf("DeactivateProduct: %v", err)
	}

	_, err := svc.CompleteSale(cashierContext(), domain.SaleRequest{
		IdempotencyToken: "tok-inactive",
		Lines:            saleLines("prod-soap", 1),
		PaymentMode:      domain.PaymentModeCash,
		TenderedCents:    10000,
	})
	// Deactivated products are invisible to the sale path.
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("sale of deactivated product: err = %v, want ErrNotFound", err)
	}
}

func TestListLowStockProducts(t *testing.T) {
	svc, _ := newTestService(t)

	// Seeded milk sits at stock 40 with reorder level 20; sell it down to 18.
	_, err := svc.CompleteSale(cashierContext(), domain.SaleRequest{
		IdempotencyToken: "tok-drain",
		Lines:            saleLines("prod-milk-1l", 22),
		PaymentMode:      domain.PaymentModeCard,
	})
	if err != nil {
		t.Fatalf("CompleteSale: %v", err)
	}

	low, err := svc.ListLowStockProducts(cashierContext())
	if err != nil {
		t.Fatalf("ListLowStockProducts: %v", err)
	}
	for _, p := range low {
		if p.ID == "prod-milk-1l" {
			return
		}
	}
	t.Fatalf("milk not in low-stock list after draining: %+v", low)
}

func TestListTransactionsFilterByStatus(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.CompleteSale(cashierContext(), domain.SaleRequest{
		IdempotencyToken: "tok-list-1",
		Lines:            saleLines("prod-milk-1l", 1),
		PaymentMode:      domain.PaymentModeCash,
		TenderedCents:    10000,
	}); err != nil {
		t.Fatalf("cash sale: %v", err)
	}
	if _, err := svc.CompleteSale(cashierContext(), domain.SaleRequest{
		IdempotencyToken: "tok-list-2",
		Lines:            saleLines("prod-salt-1kg", 2),
		Pending:          true,
		CustomerName:     "Suresh",
	}); err != nil {
		t.Fatalf("credit sale: %v", err)
	}

	pending, err := svc.ListTransactions(ownerContext(), domain.TransactionFilter{Status: domain.TxStatusPending})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(pending) != 1 || pending[0].IdempotencyToken != "tok-list-2" {
		t.Fatalf("pending list = %+v, want only the credit sale", pending)
	}

	if _, err := svc.ListTransactions(ownerContext(), domain.TransactionFilter{Status: "voided"}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("unknown status filter: err = %v, want ErrInvalidInput", err)
	}
}

func TestExpenseLifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := ownerContext()

	created, err := svc.CreateExpense(ctx, domain.ExpenseCreateRequest{
		Category:           "rent",
		AmountCents:        1500000,
		Vendor:             "Sharma Properties",
		Date:               "2026-08-01",
		Recurring:          true,
		RecurringFrequency: "monthly",
	})
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}
	if created.ID == "" || created.RecurringFrequency != "monthly" {
		t.Fatalf("created expense = %+v", created)
	}

	listed, err := svc.ListExpenses(ctx, domain.ExpenseFilter{Category: "rent"})
	if err != nil {
		t.Fatalf("ListExpenses: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expenses = %d, want 1", len(listed))
	}

	if err := svc.DeleteExpense(ctx, created.ID); err != nil {
		t.Fatalf("DeleteExpense: %v", err)
	}
	if err := svc.DeleteExpense(ctx, created.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("double delete: err = %v, want ErrNotFound", err)
	}
}

func TestCreateExpenseValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := ownerContext()

	cases := []domain.ExpenseCreateRequest{
		{Category: "", AmountCents: 100},
		{Category: "rent", AmountCents: 0},
		{Category: "rent", AmountCents: 100, Date: "01-08-2026"},
		{Category: "rent", AmountCents: 100, Recurring: true, RecurringFrequency: "fortnightly"},
	}
	for i, req := range cases {
		if _, err := svc.CreateExpense(ctx, req); !errors.Is(err, store.ErrInvalidInput) {
			t.Fatalf("case %d: err = %v, want ErrInvalidInput", i, err)
		}
	}

	if _, err := svc.CreateExpense(cashierContext(), domain.ExpenseCreateRequest{Category: "rent", AmountCents: 100}); err == nil {
		t.Fatalf("cashier was allowed to record an expense")
	}
}

func TestExpenseSummaryBadDate(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.ExpenseSummary(ownerContext(), "2026/08/01", ""); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestDashboardStats(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.DashboardStats(cashierContext()); err == nil {
		t.Fatalf("cashier was allowed to read the dashboard")
	}

	if _, err := svc.CompleteSale(cashierContext(), domain.SaleRequest{
		IdempotencyToken: "tok-dash",
		Lines:            saleLines("prod-milk-1l", 2),
		PaymentMode:      domain.PaymentModeCash,
		TenderedCents:    20000,
	}); err != nil {
		t.Fatalf("CompleteSale: %v", err)
	}

	stats, err := svc.DashboardStats(ownerContext())
	if err != nil {
		t.Fatalf("DashboardStats: %v", err)
	}
	if stats.TodayOrders != 1 || stats.TodayRevenueCents != 13600 {
		t.Fatalf("today orders=%d revenue=%d, want 1/13600", stats.TodayOrders, stats.TodayRevenueCents)
	}
	if stats.ProductsSoldToday != 2 {
		t.Fatalf("products sold today = %d, want 2", stats.ProductsSoldToday)
	}
}

func TestLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	actor, err := svc.Login(ctx, domain.LoginRequest{Username: "owner", Password: "owner123"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if actor.Role != domain.RoleOwner {
		t.Fatalf("role = %q, want owner", actor.Role)
	}

	// Username lookup is case-insensitive.
	if _, err := svc.Login(ctx, domain.LoginRequest{Username: "  Owner ", Password: "owner123"}); err != nil {
		t.Fatalf("trimmed login: %v", err)
	}

	for _, req := range []domain.LoginRequest{
		{Username: "owner", Password: "wrong"},
		{Username: "ghost", Password: "owner123"},
		{Username: "", Password: ""},
	} {
		if _, err := svc.Login(ctx, req); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("login %q: err = %v, want ErrInvalidCredentials", req.Username, err)
		}
	}
}

func TestCreateCashier(t *testing.T) {
	svc, _ := newTestService(t)

	created, err := svc.CreateCashier(ownerContext(), domain.CashierCreateRequest{
		Username: "Priya", Password: "longenough1",
	})
	if err != nil {
		t.Fatalf("CreateCashier: %v", err)
	}
	if created.Username != "priya" || created.Role != domain.RoleCashier {
		t.Fatalf("created = %+v, want lowercased cashier", created)
	}

	if _, err := svc.Login(context.Background(), domain.LoginRequest{Username: "priya", Password: "longenough1"}); err != nil {
		t.Fatalf("new cashier login: %v", err)
	}

	if _, err := svc.CreateCashier(ownerContext(), domain.CashierCreateRequest{Username: "ab", Password: "longenough1"}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("short username: err = %v, want ErrInvalidInput", err)
	}
	if _, err := svc.CreateCashier(ownerContext(), domain.CashierCreateRequest{Username: "valid", Password: "short"}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("short password: err = %v, want ErrInvalidInput", err)
	}
	if _, err := svc.CreateCashier(cashierContext(), domain.CashierCreateRequest{Username: "valid", Password: "longenough1"}); err == nil {
		t.Fatalf("cashier was allowed to create accounts")
	}
}
