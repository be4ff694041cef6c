package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"billora/backend/internal/cache"
	"billora/backend/internal/domain"
	"billora/backend/internal/store"
	"billora/backend/internal/xid"
)

// ErrInvalidCredentials covers every login failure so callers cannot
// probe which usernames exist.
var ErrInvalidCredentials = errors.New("invalid credentials")

const catalogTTL = 30 * time.Second

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo    store.Repository
	catalog cache.Catalog
	logger  *zap.Logger
	shopID  string

	// commitTimeout bounds each individual commit attempt.
	commitTimeout time.Duration
}

func New(repo store.Repository, catalog cache.Catalog, logger *zap.Logger, shopID string) *Service {
	if catalog == nil {
		catalog = cache.NoopCatalog{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if shopID == "" {
		shopID = "shop-1"
	}

	return &Service{
		repo:          repo,
		catalog:       catalog,
		logger:        logger,
		shopID:        shopID,
		commitTimeout: commitTimeout,
	}
}

func (s *Service) catalogKey() string {
	return "catalog:" + s.shopID
}

// ListProducts serves the POS catalog, cache-aside. A cache failure is
// logged and the repository answers instead.
func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	if products, ok, err := s.catalog.GetProducts(ctx, s.catalogKey()); err != nil {
		s.logger.Warn("catalog cache read failed", zap.Error(err))
	} else if ok {
		return products, nil
	}

	products, err := s.repo.ListProducts(ctx, s.shopID)
	if err != nil {
		return nil, err
	}

	if err := s.catalog.SetProducts(ctx, s.catalogKey(), products, catalogTTL); err != nil {
		s.logger.Warn("catalog cache write failed", zap.Error(err))
	}
	return products, nil
}

func (s *Service) ListLowStockProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListLowStockProducts(ctx, s.shopID)
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Product{}, store.ErrInvalidInput
	}
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	if err := requireOwner(ctx); err != nil {
		return domain.Product{}, err
	}

	if req.ShopID == "" {
		req.ShopID = s.shopID
	}
	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	req.Brand = strings.TrimSpace(req.Brand)
	if req.Unit == "" {
		req.Unit = "pcs"
	}

	if req.Name == "" || req.Category == "" {
		return domain.Product{}, store.ErrInvalidInput
	}
	if req.PriceCents < 1 || req.CostPriceCents < 0 || req.InitialStock < 0 || req.ReorderLevel < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}
	if req.GSTPercent < 0 || req.GSTPercent > 100 {
		return domain.Product{}, store.ErrInvalidInput
	}

	now := time.Now().UTC()
	created, err := s.repo.CreateProduct(ctx, domain.Product{
		ID:             xid.New("prod"),
		ShopID:         req.ShopID,
		SKU:            req.SKU,
		Name:           req.Name,
		Category:       req.Category,
		Brand:          req.Brand,
		PriceCents:     req.PriceCents,
		CostPriceCents: req.CostPriceCents,
		GSTPercent:     req.GSTPercent,
		Stock:          req.InitialStock,
		ReorderLevel:   req.ReorderLevel,
		Unit:           req.Unit,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.invalidateCatalog(ctx)
	s.logger.Info("product created",
		zap.String("product_id", created.ID),
		zap.String("name", created.Name),
		zap.Int64("price_cents", created.PriceCents))

	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	if err := requireOwner(ctx); err != nil {
		return domain.Product{}, err
	}

	if strings.TrimSpace(id) == "" {
		return domain.Product{}, store.ErrInvalidInput
	}

	existing, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Name = name
	}
	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		if category == "" {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Category = category
	}
	if req.Brand != nil {
		updated.Brand = strings.TrimSpace(*req.Brand)
	}
	if req.PriceCents != nil {
		if *req.PriceCents < 1 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.PriceCents = *req.PriceCents
	}
	if req.CostPriceCents != nil {
		if *req.CostPriceCents < 0 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.CostPriceCents = *req.CostPriceCents
	}
	if req.GSTPercent != nil {
		if *req.GSTPercent < 0 || *req.GSTPercent > 100 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.GSTPercent = *req.GSTPercent
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Stock = *req.Stock
	}
	if req.ReorderLevel != nil {
		if *req.ReorderLevel < 0 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.ReorderLevel = *req.ReorderLevel
	}
	if req.Unit != nil {
		updated.Unit = strings.TrimSpace(*req.Unit)
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}
	updated.UpdatedAt = time.Now().UTC()

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}

	s.invalidateCatalog(ctx)
	return *saved, nil
}

func (s *Service) DeactivateProduct(ctx context.Context, id string) (domain.Product, error) {
	if err := requireOwner(ctx); err != nil {
		return domain.Product{}, err
	}
	if strings.TrimSpace(id) == "" {
		return domain.Product{}, store.ErrInvalidInput
	}

	product, err := s.repo.DeactivateProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	s.invalidateCatalog(ctx)
	s.logger.Info("product deactivated", zap.String("product_id", id))
	return *product, nil
}

// LookupSaleByToken resolves an idempotency token to its recorded sale.
// POS clients call this after a timeout to learn whether a commit landed.
func (s *Service) LookupSaleByToken(ctx context.Context, token string) (domain.SaleLookupResponse, error) {
	if strings.TrimSpace(token) == "" {
		return domain.SaleLookupResponse{}, store.ErrInvalidInput
	}

	tx, err := s.repo.FindSaleByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.SaleLookupResponse{Found: false}, nil
		}
		return domain.SaleLookupResponse{}, err
	}
	return domain.SaleLookupResponse{Found: true, Sale: tx}, nil
}

func (s *Service) GetTransaction(ctx context.Context, id string) (domain.Transaction, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Transaction{}, store.ErrInvalidInput
	}
	tx, err := s.repo.FindTransactionByID(ctx, id)
	if err != nil {
		return domain.Transaction{}, err
	}
	return *tx, nil
}

func (s *Service) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	if filter.ShopID == "" {
		filter.ShopID = s.shopID
	}
	if filter.Limit < 1 {
		filter.Limit = 100
	}
	if filter.Status != "" && filter.Status != domain.TxStatusCompleted && filter.Status != domain.TxStatusPending {
		return nil, store.ErrInvalidInput
	}
	return s.repo.ListTransactions(ctx, filter)
}

// SettlePendingTransaction marks a credit sale as paid. Owner only.
func (s *Service) SettlePendingTransaction(ctx context.Context, id string) (domain.Transaction, error) {
	if err := requireOwner(ctx); err != nil {
		return domain.Transaction{}, err
	}
	if strings.TrimSpace(id) == "" {
		return domain.Transaction{}, store.ErrInvalidInput
	}

	tx, err := s.repo.SettlePendingTransaction(ctx, id)
	if err != nil {
		return domain.Transaction{}, err
	}

	s.logger.Info("pending sale settled",
		zap.String("transaction_id", tx.ID),
		zap.String("invoice", tx.InvoiceNumber),
		zap.Int64("total_cents", tx.TotalCents))
	return *tx, nil
}

func (s *Service) CreateExpense(ctx context.Context, req domain.ExpenseCreateRequest) (domain.Expense, error) {
	if err := requireOwner(ctx); err != nil {
		return domain.Expense{}, err
	}

	if req.ShopID == "" {
		req.ShopID = s.shopID
	}
	req.Category = strings.TrimSpace(req.Category)
	req.Vendor = strings.TrimSpace(req.Vendor)
	req.Notes = strings.TrimSpace(req.Notes)

	if req.Category == "" || req.AmountCents < 1 {
		return domain.Expense{}, store.ErrInvalidInput
	}

	date := time.Now().UTC()
	if strings.TrimSpace(req.Date) != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			return domain.Expense{}, store.ErrInvalidInput
		}
		date = parsed.UTC()
	}

	frequency := ""
	if req.Recurring {
		frequency = strings.ToLower(strings.TrimSpace(req.RecurringFrequency))
		switch frequency {
		case "weekly", "monthly", "yearly":
		default:
			return domain.Expense{}, store.ErrInvalidInput
		}
	}

	created, err := s.repo.CreateExpense(ctx, domain.Expense{
		ID:                 xid.New("exp"),
		ShopID:             req.ShopID,
		Category:           req.Category,
		AmountCents:        req.AmountCents,
		Vendor:             req.Vendor,
		PaymentMode:        strings.TrimSpace(req.PaymentMode),
		Notes:              req.Notes,
		Date:               date,
		Recurring:          req.Recurring,
		RecurringFrequency: frequency,
		CreatedAt:          time.Now().UTC(),
	})
	if err != nil {
		return domain.Expense{}, err
	}
	return *created, nil
}

func (s *Service) ListExpenses(ctx context.Context, filter domain.ExpenseFilter) ([]domain.Expense, error) {
	if err := requireOwner(ctx); err != nil {
		return nil, err
	}
	if filter.ShopID == "" {
		filter.ShopID = s.shopID
	}
	if filter.Limit < 1 {
		filter.Limit = 200
	}
	return s.repo.ListExpenses(ctx, filter)
}

func (s *Service) DeleteExpense(ctx context.Context, id string) error {
	if err := requireOwner(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return store.ErrInvalidInput
	}
	return s.repo.DeleteExpense(ctx, id)
}

// ExpenseSummary groups spend by category between from and to, given as
// YYYY-MM-DD. Empty bounds mean unbounded on that side.
func (s *Service) ExpenseSummary(ctx context.Context, from string, to string) (domain.ExpenseSummary, error) {
	if err := requireOwner(ctx); err != nil {
		return domain.ExpenseSummary{}, err
	}

	fromTime, err := parseDateBound(from, false)
	if err != nil {
		return domain.ExpenseSummary{}, err
	}
	toTime, err := parseDateBound(to, true)
	if err != nil {
		return domain.ExpenseSummary{}, err
	}

	summary, err := s.repo.SummarizeExpenses(ctx, s.shopID, fromTime, toTime)
	if err != nil {
		return domain.ExpenseSummary{}, err
	}
	summary.From = from
	summary.To = to
	return *summary, nil
}

func (s *Service) DashboardStats(ctx context.Context) (domain.DashboardStats, error) {
	if err := requireOwner(ctx); err != nil {
		return domain.DashboardStats{}, err
	}

	stats, err := s.repo.GetDashboardStats(ctx, s.shopID, time.Now().UTC())
	if err != nil {
		return domain.DashboardStats{}, err
	}
	return *stats, nil
}

// Login verifies credentials and returns the authenticated actor. Token
// minting lives with the HTTP layer.
func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (domain.Actor, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if username == "" || req.Password == "" {
		return domain.Actor{}, ErrInvalidCredentials
	}

	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Actor{}, ErrInvalidCredentials
		}
		return domain.Actor{}, err
	}
	if !user.Active {
		return domain.Actor{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return domain.Actor{}, ErrInvalidCredentials
	}

	return domain.Actor{Username: user.Username, Role: user.Role}, nil
}

func (s *Service) CreateCashier(ctx context.Context, req domain.CashierCreateRequest) (domain.CashierUser, error) {
	if err := requireOwner(ctx); err != nil {
		return domain.CashierUser{}, err
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	if len(username) < 3 || len(req.Password) < 8 {
		return domain.CashierUser{}, store.ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.CashierUser{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := domain.UserAccount{
		Username:  username,
		Password:  string(hash),
		Role:      domain.RoleCashier,
		Active:    true,
		CreatedAt: now,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return domain.CashierUser{}, err
	}

	s.logger.Info("cashier account created", zap.String("username", username))
	return domain.CashierUser{Username: username, Role: domain.RoleCashier, Active: true, CreatedAt: now}, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]domain.CashierUser, error) {
	if err := requireOwner(ctx); err != nil {
		return nil, err
	}

	accounts, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	users := make([]domain.CashierUser, 0, len(accounts))
	for _, account := range accounts {
		users = append(users, domain.CashierUser{
			Username:  account.Username,
			Role:      account.Role,
			Active:    account.Active,
			CreatedAt: account.CreatedAt,
		})
	}
	return users, nil
}

func (s *Service) invalidateCatalog(ctx context.Context) {
	if err := s.catalog.Invalidate(ctx, s.catalogKey()); err != nil {
		s.logger.Warn("catalog cache invalidation failed", zap.Error(err))
	}
}

func requireOwner(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleOwner {
		return fmt.Errorf("owner role required")
	}
	return nil
}

func parseDateBound(value string, endOfDay bool) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, store.ErrInvalidInput
	}
	if endOfDay {
		return parsed.UTC().Add(24*time.Hour - time.Nanosecond), nil
	}
	return parsed.UTC(), nil
}
