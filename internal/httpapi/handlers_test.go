package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"billora/backend/internal/domain"
	"billora/backend/internal/service"
	"billora/backend/internal/store"
	"billora/backend/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) (*API, *memory.Store) {
	t.Helper()

	repo := memory.NewSeeded()
	svc := service.New(repo, nil, zap.NewNop(), "shop-1")
	auth := NewAuthManager("test-secret-key", time.Hour)

	return New(svc, auth, zap.NewNop(), "*"), repo
}

func doJSON(t *testing.T, api *API, method string, path string, token string, csrf string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if csrf != "" {
		req.Header.Set("X-CSRF-Token", csrf)
	}
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	return rec
}

func loginAs(t *testing.T, api *API, username string, password string) string {
	t.Helper()

	rec := doJSON(t, api, http.MethodPost, "/api/v1/auth/login", "", "", domain.LoginRequest{
		Username: username,
		Password: password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login as %s failed: %d %s", username, rec.Code, rec.Body.String())
	}

	var resp domain.LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatalf("no access token in login response")
	}
	return resp.AccessToken
}

func TestHandleHealth(t *testing.T) {
	api, _ := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	api, _ := newTestAPI(t)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/auth/login", "", "", domain.LoginRequest{
		Username: "owner", Password: "wrongpassword",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleProducts_RequiresAuth(t *testing.T) {
	api, _ := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandleProducts_ListWithValidToken(t *testing.T) {
	api, _ := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")

	rec := doJSON(t, api, http.MethodGet, "/api/v1/products", token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["products"] == nil {
		t.Fatalf("expected products key in response, got %v", body)
	}
}

func TestHandleProducts_CashierCannotCreate(t *testing.T) {
	api, _ := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")
	csrf := fetchCSRFToken(t, api)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/products", token, csrf, domain.ProductCreateRequest{
		Name: "Ghee 1L", Category: "dairy", PriceCents: 62000,
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleProducts_OwnerCreateAndDeactivate(t *testing.T) {
	api, _ := newTestAPI(t)
	token := loginAs(t, api, "owner", "owner123")
	csrf := fetchCSRFToken(t, api)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/products", token, csrf, domain.ProductCreateRequest{
		Name: "Ghee 1L", Category: "dairy", PriceCents: 62000, GSTPercent: 12, InitialStock: 10,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var created struct {
		Product domain.Product `json:"product"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode created product: %v", err)
	}
	if created.Product.ID == "" {
		t.Fatalf("no id on created product")
	}

	rec = doJSON(t, api, http.MethodDelete, "/api/v1/products/"+created.Product.ID, token, csrf, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("deactivate: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleLowStock(t *testing.T) {
	api, _ := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")

	rec := doJSON(t, api, http.MethodGet, "/api/v1/products/low-stock", token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleSales_CommitsAndReplays(t *testing.T) {
	api, repo := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")
	csrf := fetchCSRFToken(t, api)

	payload := domain.SaleRequest{
		IdempotencyToken: "tok-http-1",
		Lines:            []domain.CartLine{{ProductID: "prod-milk-1l", Quantity: 2}},
		PaymentMode:      domain.PaymentModeCash,
		TenderedCents:    20000,
	}

	rec := doJSON(t, api, http.MethodPost, "/api/v1/sales", token, csrf, payload)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var first domain.SaleResponse
	if err := json.NewDecoder(rec.Body).Decode(&first); err != nil {
		t.Fatalf("decode sale response: %v", err)
	}
	if first.Transaction.TotalCents != 13600 || first.Transaction.ChangeCents != 6400 {
		t.Fatalf("totals = %d change = %d, want 13600/6400", first.Transaction.TotalCents, first.Transaction.ChangeCents)
	}
	if repo.StockOf("prod-milk-1l") != 38 {
		t.Fatalf("stock = %d, want 38", repo.StockOf("prod-milk-1l"))
	}

	// Replaying the same token returns 200 with the original transaction.
	rec = doJSON(t, api, http.MethodPost, "/api/v1/sales", token, csrf, payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("replay: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var second domain.SaleResponse
	if err := json.NewDecoder(rec.Body).Decode(&second); err != nil {
		t.Fatalf("decode replay response: %v", err)
	}
	if !second.Duplicate || second.Transaction.ID != first.Transaction.ID {
		t.Fatalf("replay duplicate=%t id=%s, want duplicate of %s", second.Duplicate, second.Transaction.ID, first.Transaction.ID)
	}
	if repo.StockOf("prod-milk-1l") != 38 {
		t.Fatalf("stock decremented twice: %d", repo.StockOf("prod-milk-1l"))
	}
}

func TestHandleSales_InsufficientStockConflict(t *testing.T) {
	api, _ := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")
	csrf := fetchCSRFToken(t, api)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/sales", token, csrf, domain.SaleRequest{
		IdempotencyToken: "tok-http-overdraw",
		Lines:            []domain.CartLine{{ProductID: "prod-milk-1l", Quantity: 500}},
		PaymentMode:      domain.PaymentModeCash,
		TenderedCents:    100000000,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["product_id"] != "prod-milk-1l" {
		t.Fatalf("conflict body missing product_id: %v", body)
	}
}

func TestHandleSales_InsufficientPayment(t *testing.T) {
	api, _ := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")
	csrf := fetchCSRFToken(t, api)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/sales", token, csrf, domain.SaleRequest{
		IdempotencyToken: "tok-http-short",
		Lines:            []domain.CartLine{{ProductID: "prod-milk-1l", Quantity: 2}},
		PaymentMode:      domain.PaymentModeCash,
		TenderedCents:    100,
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["required_cents"] == nil || body["tendered_cents"] == nil {
		t.Fatalf("422 body missing tender details: %v", body)
	}
}

func TestHandleSales_StoreUnavailable(t *testing.T) {
	api, repo := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")
	csrf := fetchCSRFToken(t, api)

	repo.SetCommitFault(func(context.Context) error {
		return fmt.Errorf("%w: connection reset", store.ErrStoreUnavailable)
	})

	rec := doJSON(t, api, http.MethodPost, "/api/v1/sales", token, csrf, domain.SaleRequest{
		IdempotencyToken: "tok-http-outage",
		Lines:            []domain.CartLine{{ProductID: "prod-milk-1l", Quantity: 1}},
		PaymentMode:      domain.PaymentModeCash,
		TenderedCents:    10000,
	})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("503 response missing Retry-After header")
	}

	// Once the outage clears, the same token commits normally.
	repo.SetCommitFault(nil)
	rec = doJSON(t, api, http.MethodPost, "/api/v1/sales", token, csrf, domain.SaleRequest{
		IdempotencyToken: "tok-http-outage",
		Lines:            []domain.CartLine{{ProductID: "prod-milk-1l", Quantity: 1}},
		PaymentMode:      domain.PaymentModeCash,
		TenderedCents:    10000,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("retry after outage: expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleSales_EmptyCart(t *testing.T) {
	api, _ := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")
	csrf := fetchCSRFToken(t, api)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/sales", token, csrf, domain.SaleRequest{
		IdempotencyToken: "tok-http-empty",
		PaymentMode:      domain.PaymentModeCash,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleSaleLookup(t *testing.T) {
	api, _ := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")
	csrf := fetchCSRFToken(t, api)

	rec := doJSON(t, api, http.MethodGet, "/api/v1/sales/token/tok-http-lookup", token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var lookup domain.SaleLookupResponse
	if err := json.NewDecoder(rec.Body).Decode(&lookup); err != nil {
		t.Fatalf("decode lookup: %v", err)
	}
	if lookup.Found {
		t.Fatalf("found a sale before committing one")
	}

	if rec := doJSON(t, api, http.MethodPost, "/api/v1/sales", token, csrf, domain.SaleRequest{
		IdempotencyToken: "tok-http-lookup",
		Lines:            []domain.CartLine{{ProductID: "prod-salt-1kg", Quantity: 1}},
		PaymentMode:      domain.PaymentModeCash,
		TenderedCents:    5000,
	}); rec.Code != http.StatusCreated {
		t.Fatalf("sale: expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/sales/token/tok-http-lookup", token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if err := json.NewDecoder(rec.Body).Decode(&lookup); err != nil {
		t.Fatalf("decode lookup: %v", err)
	}
	if !lookup.Found || lookup.Sale == nil {
		t.Fatalf("committed sale not found by token")
	}
}

func TestHandleTransactions_SettlePending(t *testing.T) {
	api, _ := newTestAPI(t)
	cashierToken := loginAs(t, api, "cashier", "cashier123")
	ownerToken := loginAs(t, api, "owner", "owner123")
	csrf := fetchCSRFToken(t, api)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/sales", cashierToken, csrf, domain.SaleRequest{
		IdempotencyToken: "tok-http-credit",
		Lines:            []domain.CartLine{{ProductID: "prod-salt-1kg", Quantity: 2}},
		Pending:          true,
		CustomerName:     "Ramesh",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("credit sale: expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var sale domain.SaleResponse
	if err := json.NewDecoder(rec.Body).Decode(&sale); err != nil {
		t.Fatalf("decode sale: %v", err)
	}

	// Cashiers cannot settle.
	rec = doJSON(t, api, http.MethodPost, "/api/v1/transactions/"+sale.Transaction.ID+"/settle", cashierToken, csrf, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("cashier settle: expected 403, got %d", rec.Code)
	}

	rec = doJSON(t, api, http.MethodPost, "/api/v1/transactions/"+sale.Transaction.ID+"/settle", ownerToken, csrf, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner settle: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var settled struct {
		Transaction domain.Transaction `json:"transaction"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&settled); err != nil {
		t.Fatalf("decode settled: %v", err)
	}
	if settled.Transaction.Status != domain.TxStatusCompleted {
		t.Fatalf("status = %q, want completed", settled.Transaction.Status)
	}
}

func TestHandleExpensesLifecycle(t *testing.T) {
	api, _ := newTestAPI(t)
	token := loginAs(t, api, "owner", "owner123")
	csrf := fetchCSRFToken(t, api)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/expenses", token, csrf, domain.ExpenseCreateRequest{
		Category: "electricity", AmountCents: 450000, Date: "2026-08-15",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create expense: expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var created struct {
		Expense domain.Expense `json:"expense"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode expense: %v", err)
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/expenses?category=electricity", token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list expenses: expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/expenses/summary?from=2026-08-01&to=2026-08-31", token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expense summary: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var summary domain.ExpenseSummary
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.TotalCents != 450000 {
		t.Fatalf("summary total = %d, want 450000", summary.TotalCents)
	}

	rec = doJSON(t, api, http.MethodDelete, "/api/v1/expenses/"+created.Expense.ID, token, csrf, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete expense: expected 200, got %d", rec.Code)
	}
	rec = doJSON(t, api, http.MethodDelete, "/api/v1/expenses/"+created.Expense.ID, token, csrf, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("double delete: expected 404, got %d", rec.Code)
	}
}

func TestHandleDashboard_ForbiddenForCashier(t *testing.T) {
	api, _ := newTestAPI(t)
	cashierToken := loginAs(t, api, "cashier", "cashier123")
	ownerToken := loginAs(t, api, "owner", "owner123")

	rec := doJSON(t, api, http.MethodGet, "/api/v1/dashboard/stats", cashierToken, "", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("cashier dashboard: expected 403, got %d", rec.Code)
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/dashboard/stats", ownerToken, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner dashboard: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleCashiers_CreateAndList(t *testing.T) {
	api, _ := newTestAPI(t)
	token := loginAs(t, api, "owner", "owner123")
	csrf := fetchCSRFToken(t, api)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/users/cashiers", token, csrf, domain.CashierCreateRequest{
		Username: "priya", Password: "longenough1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create cashier: expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/users/cashiers", token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list users: expected 200, got %d", rec.Code)
	}

	if loginAs(t, api, "priya", "longenough1") == "" {
		t.Fatalf("new cashier cannot log in")
	}
}
