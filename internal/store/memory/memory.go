package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"billora/backend/internal/domain"
	"billora/backend/internal/store"
	"billora/backend/internal/xid"
)

// Store is the in-memory Repository used for dev mode and tests. All reads
// hand out clones so callers can never mutate stored state.
type Store struct {
	mu              sync.RWMutex
	products        map[string]domain.Product
	txByID          map[string]*domain.Transaction
	txByToken       map[string]*domain.Transaction
	expensesByID    map[string]domain.Expense
	usersByUsername map[string]domain.UserAccount
	invoiceSeq      int64

	// recordingFault, when set, is invoked after stock has been reserved and
	// before the transaction is recorded. Returning an error aborts the
	// commit and triggers compensation. Test hook only.
	recordingFault func(tx domain.Transaction) error

	// commitFault, when set, is invoked at the start of CommitSale before any
	// state is touched. Used to simulate transient backend outages and stalls.
	commitFault func(ctx context.Context) error

	// compensationFault, when set, is consulted per line while reversing a
	// failed commit. An error means that line could not be put back.
	compensationFault func(productID string) error
}

// seedUsers builds the initial in-memory accounts for dev/demo mode.
// Credentials come from SEED_OWNER_PASSWORD and SEED_CASHIER_PASSWORD; if
// unset, hardcoded dev defaults are used with a warning. Production deploys
// run against PostgreSQL and never hit this path.
func seedUsers() map[string]domain.UserAccount {
	ownerPwd := envOr("SEED_OWNER_PASSWORD", "owner123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_OWNER_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_OWNER_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"owner", ownerPwd, domain.RoleOwner},
		{"cashier", cashierPwd, domain.RoleCashier},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	now := time.Now().UTC()
	products := []domain.Product{
		{ID: "prod-rice-5kg", ShopID: "shop-1", SKU: "SKU-RICE-01", Name: "Basmati Rice 5kg", Category: "grocery", Brand: "India Gate", PriceCents: 45000, CostPriceCents: 38000, GSTPercent: 5, Stock: 80, ReorderLevel: 15, Unit: "bag"},
		{ID: "prod-atta-10kg", ShopID: "shop-1", SKU: "SKU-ATTA-01", Name: "Whole Wheat Atta 10kg", Category: "grocery", Brand: "Aashirvaad", PriceCents: 52000, CostPriceCents: 44500, GSTPercent: 5, Stock: 60, ReorderLevel: 12, Unit: "bag"},
		{ID: "prod-oil-1l", ShopID: "shop-1", SKU: "SKU-OIL-01", Name: "Sunflower Oil 1L", Category: "grocery", Brand: "Fortune", PriceCents: 14500, CostPriceCents: 12200, GSTPercent: 5, Stock: 120, ReorderLevel: 25, Unit: "bottle"},
		{ID: "prod-tea-500g", ShopID: "shop-1", SKU: "SKU-TEA-01", Name: "Assam Tea 500g", Category: "beverage", Brand: "Tata", PriceCents: 28000, CostPriceCents: 22000, GSTPercent: 5, Stock: 90, ReorderLevel: 20, Unit: "pack"},
		{ID: "prod-biscuit", ShopID: "shop-1", SKU: "SKU-BISC-01", Name: "Marie Gold Biscuits", Category: "snack", Brand: "Britannia", PriceCents: 3500, CostPriceCents: 2800, GSTPercent: 18, Stock: 200, ReorderLevel: 40, Unit: "pack"},
		{ID: "prod-soap", ShopID: "shop-1", SKU: "SKU-SOAP-01", Name: "Bath Soap 125g", Category: "personal care", Brand: "Lux", PriceCents: 4200, CostPriceCents: 3400, GSTPercent: 18, Stock: 150, ReorderLevel: 30, Unit: "piece"},
		{ID: "prod-detergent", ShopID: "shop-1", SKU: "SKU-DET-01", Name: "Detergent Powder 1kg", Category: "household", Brand: "Surf Excel", PriceCents: 13000, CostPriceCents: 10800, GSTPercent: 18, Stock: 70, ReorderLevel: 15, Unit: "pack"},
		{ID: "prod-milk-1l", ShopID: "shop-1", SKU: "SKU-MILK-01", Name: "Toned Milk 1L", Category: "dairy", Brand: "Amul", PriceCents: 6800, CostPriceCents: 6200, GSTPercent: 0, Stock: 40, ReorderLevel: 20, Unit: "packet"},
		{ID: "prod-salt-1kg", ShopID: "shop-1", SKU: "SKU-SALT-01", Name: "Iodized Salt 1kg", Category: "grocery", Brand: "Tata", PriceCents: 2800, CostPriceCents: 2200, GSTPercent: 0, Stock: 110, ReorderLevel: 20, Unit: "pack"},
		{ID: "prod-cola-750", ShopID: "shop-1", SKU: "SKU-COLA-01", Name: "Cola 750ml", Category: "beverage", Brand: "Thums Up", PriceCents: 4500, CostPriceCents: 3600, GSTPercent: 28, Stock: 95, ReorderLevel: 24, Unit: "bottle"},
	}

	productMap := make(map[string]domain.Product, len(products))
	for _, p := range products {
		p.Active = true
		p.CreatedAt = now
		p.UpdatedAt = now
		productMap[p.ID] = p
	}

	return &Store{
		products:        productMap,
		txByID:          make(map[string]*domain.Transaction),
		txByToken:       make(map[string]*domain.Transaction),
		expensesByID:    make(map[string]domain.Expense),
		usersByUsername: seedUsers(),
	}
}

// New returns an empty store with only seed users. Tests that want full
// control over the catalog start here.
func New() *Store {
	s := NewSeeded()
	s.products = make(map[string]domain.Product)
	return s
}

// SetRecordingFault installs a hook fired between stock reservation and
// transaction recording. Test hook.
func (s *Store) SetRecordingFault(f func(tx domain.Transaction) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordingFault = f
}

// SetCommitFault installs a hook fired at the top of CommitSale with the
// caller's context, so tests can simulate outages and stalls. Test hook.
func (s *Store) SetCommitFault(f func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitFault = f
}

// SetCompensationFault installs a hook fired for each reserved line while
// reversing a failed commit; an error leaves that line unreversed. Test hook.
func (s *Store) SetCompensationFault(f func(productID string) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.compensationFault = f
}

func (s *Store) ListProducts(_ context.Context, shopID string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if !p.Active {
			continue
		}
		if shopID != "" && p.ShopID != shopID {
			continue
		}
		products = append(products, p)
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return cmpString(a.Name, b.Name)
		}
		return cmpString(a.Category, b.Category)
	})

	return products, nil
}

func (s *Store) ListLowStockProducts(_ context.Context, shopID string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, 16)
	for _, p := range s.products {
		if !p.Active {
			continue
		}
		if shopID != "" && p.ShopID != shopID {
			continue
		}
		if p.Stock > p.ReorderLevel {
			continue
		}
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Stock == b.Stock {
			return cmpString(a.Name, b.Name)
		}
		if a.Stock < b.Stock {
			return -1
		}
		return 1
	})
	return products, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.Name == "" || product.Category == "" || product.PriceCents < 1 {
		return nil, store.ErrInvalidInput
	}
	if product.GSTPercent < 0 || product.GSTPercent > 100 || product.Stock < 0 {
		return nil, store.ErrInvalidInput
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if _, exists := s.products[product.ID]; exists {
		return nil, store.ErrInvalidInput
	}
	now := time.Now().UTC()
	product.Active = true
	product.CreatedAt = now
	product.UpdatedAt = now
	s.products[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) GetProductsByIDs(_ context.Context, ids []string) (map[string]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok && p.Active {
			result[id] = p
		}
	}
	return result, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" || product.Name == "" || product.Category == "" || product.PriceCents < 1 {
		return nil, store.ErrInvalidInput
	}
	if product.GSTPercent < 0 || product.GSTPercent > 100 || product.Stock < 0 {
		return nil, store.ErrInvalidInput
	}
	existing, exists := s.products[product.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = time.Now().UTC()
	s.products[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) DeactivateProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	product.Active = false
	product.UpdatedAt = time.Now().UTC()
	s.products[id] = product
	copyProduct := product
	return &copyProduct, nil
}

// CommitSale reserves stock line by line and then records the transaction.
// Reservation uses a conditional decrement per line; the first line that
// cannot be satisfied aborts the commit and every prior reservation is
// reversed before returning, so no partial decrement ever survives. A token
// collision returns the previously recorded transaction untouched.
func (s *Store) CommitSale(ctx context.Context, tx domain.Transaction) (*domain.Transaction, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.commitFault != nil {
		if err := s.commitFault(ctx); err != nil {
			return nil, false, err
		}
	}

	if tx.IdempotencyToken == "" {
		return nil, false, store.ErrInvalidInput
	}
	if existing, ok := s.txByToken[tx.IdempotencyToken]; ok {
		return cloneTransaction(existing), true, nil
	}
	if len(tx.Lines) == 0 {
		return nil, false, store.ErrEmptyCart
	}

	reserved := make([]domain.TransactionLine, 0, len(tx.Lines))
	release := func() error {
		var failed []string
		for _, line := range reserved {
			if s.compensationFault != nil {
				if err := s.compensationFault(line.ProductID); err != nil {
					failed = append(failed, line.ProductID)
					continue
				}
			}
			p := s.products[line.ProductID]
			p.Stock += line.Quantity
			s.products[line.ProductID] = p
		}
		if len(failed) > 0 {
			return fmt.Errorf("%w: stock not restored for %s (token %s)",
				store.ErrCommitInconsistency, strings.Join(failed, ","), tx.IdempotencyToken)
		}
		return nil
	}

	for _, line := range tx.Lines {
		if line.Quantity < 1 {
			if relErr := release(); relErr != nil {
				return nil, false, relErr
			}
			return nil, false, store.ErrInvalidInput
		}
		product, exists := s.products[line.ProductID]
		if !exists || !product.Active {
			if relErr := release(); relErr != nil {
				return nil, false, relErr
			}
			return nil, false, fmt.Errorf("product %s unavailable: %w", line.ProductID, store.ErrNotFound)
		}
		if product.Stock < line.Quantity {
			if relErr := release(); relErr != nil {
				return nil, false, relErr
			}
			return nil, false, &store.InsufficientStockError{
				ProductID: line.ProductID,
				Name:      product.Name,
				Requested: line.Quantity,
				Available: product.Stock,
			}
		}
		product.Stock -= line.Quantity
		s.products[line.ProductID] = product
		reserved = append(reserved, line)
	}

	if s.recordingFault != nil {
		if err := s.recordingFault(tx); err != nil {
			if relErr := release(); relErr != nil {
				return nil, false, relErr
			}
			return nil, false, err
		}
	}

	if tx.ID == "" {
		tx.ID = xid.New("tx")
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	if tx.Status == "" {
		tx.Status = domain.TxStatusCompleted
	}
	s.invoiceSeq++
	tx.InvoiceNumber = fmt.Sprintf("INV-%s-%04d", tx.CreatedAt.Format("20060102"), s.invoiceSeq)

	txCopy := cloneTransaction(&tx)
	s.txByID[tx.ID] = txCopy
	s.txByToken[tx.IdempotencyToken] = txCopy

	return cloneTransaction(txCopy), false, nil
}

func (s *Store) FindSaleByToken(_ context.Context, token string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.txByToken[token]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneTransaction(tx), nil
}

func (s *Store) FindTransactionByID(_ context.Context, id string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.txByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneTransaction(tx), nil
}

func (s *Store) ListTransactions(_ context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Transaction, 0, 64)
	for _, tx := range s.txByID {
		if filter.ShopID != "" && tx.ShopID != filter.ShopID {
			continue
		}
		if filter.Status != "" && tx.Status != filter.Status {
			continue
		}
		if !filter.From.IsZero() && tx.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !tx.CreatedAt.Before(filter.To) {
			continue
		}
		result = append(result, *cloneTransaction(tx))
	}

	slices.SortFunc(result, func(a, b domain.Transaction) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *Store) SettlePendingTransaction(_ context.Context, id string) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.txByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if tx.Status != domain.TxStatusPending {
		return nil, store.ErrInvalidInput
	}
	tx.Status = domain.TxStatusCompleted
	return cloneTransaction(tx), nil
}

func (s *Store) CreateExpense(_ context.Context, expense domain.Expense) (*domain.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(expense.Category) == "" || expense.AmountCents < 1 {
		return nil, store.ErrInvalidInput
	}
	if expense.ID == "" {
		expense.ID = xid.New("exp")
	}
	if expense.Date.IsZero() {
		expense.Date = time.Now().UTC()
	}
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now().UTC()
	}
	s.expensesByID[expense.ID] = expense
	created := expense
	return &created, nil
}

func (s *Store) ListExpenses(_ context.Context, filter domain.ExpenseFilter) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Expense, 0, len(s.expensesByID))
	for _, e := range s.expensesByID {
		if filter.ShopID != "" && e.ShopID != filter.ShopID {
			continue
		}
		if filter.Category != "" && !strings.EqualFold(e.Category, filter.Category) {
			continue
		}
		if !filter.From.IsZero() && e.Date.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !e.Date.Before(filter.To) {
			continue
		}
		result = append(result, e)
	}
	slices.SortFunc(result, func(a, b domain.Expense) int {
		if a.Date.Equal(b.Date) {
			return cmpString(b.ID, a.ID)
		}
		if a.Date.After(b.Date) {
			return -1
		}
		return 1
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.expensesByID[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.expensesByID, id)
	return nil
}

func (s *Store) SummarizeExpenses(_ context.Context, shopID string, from time.Time, to time.Time) (*domain.ExpenseSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byCategory := map[string]*domain.ExpenseSummaryEntry{}
	total := int64(0)
	for _, e := range s.expensesByID {
		if shopID != "" && e.ShopID != shopID {
			continue
		}
		if !from.IsZero() && e.Date.Before(from) {
			continue
		}
		if !to.IsZero() && !e.Date.Before(to) {
			continue
		}
		entry := byCategory[e.Category]
		if entry == nil {
			entry = &domain.ExpenseSummaryEntry{Category: e.Category}
			byCategory[e.Category] = entry
		}
		entry.Count++
		entry.AmountCents += e.AmountCents
		total += e.AmountCents
	}

	summary := &domain.ExpenseSummary{
		ShopID:     shopID,
		From:       from.Format("2006-01-02"),
		To:         to.Format("2006-01-02"),
		TotalCents: total,
		ByCategory: make([]domain.ExpenseSummaryEntry, 0, len(byCategory)),
	}
	for _, entry := range byCategory {
		summary.ByCategory = append(summary.ByCategory, *entry)
	}
	slices.SortFunc(summary.ByCategory, func(a, b domain.ExpenseSummaryEntry) int {
		if a.AmountCents == b.AmountCents {
			return cmpString(a.Category, b.Category)
		}
		if a.AmountCents > b.AmountCents {
			return -1
		}
		return 1
	})
	return summary, nil
}

func (s *Store) GetDashboardStats(_ context.Context, shopID string, now time.Time) (*domain.DashboardStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now = now.UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	weekStart := dayStart.AddDate(0, 0, -6)

	stats := &domain.DashboardStats{ShopID: shopID}
	revenueByDay := map[string]*domain.RevenuePoint{}
	recent := make([]domain.Transaction, 0, 16)

	for _, tx := range s.txByID {
		if shopID != "" && tx.ShopID != shopID {
			continue
		}
		if tx.Status == domain.TxStatusPending {
			stats.PendingCount++
		}
		if !tx.CreatedAt.Before(dayStart) {
			stats.TodayOrders++
			stats.TodayRevenueCents += tx.TotalCents
			for _, line := range tx.Lines {
				stats.ProductsSoldToday += int64(line.Quantity)
			}
		}
		if !tx.CreatedAt.Before(monthStart) {
			stats.MonthRevenueCents += tx.TotalCents
		}
		if !tx.CreatedAt.Before(weekStart) {
			day := tx.CreatedAt.Format("2006-01-02")
			point := revenueByDay[day]
			if point == nil {
				point = &domain.RevenuePoint{Date: day}
				revenueByDay[day] = point
			}
			point.RevenueCents += tx.TotalCents
			point.Transactions++
		}
		recent = append(recent, *cloneTransaction(tx))
	}

	for _, e := range s.expensesByID {
		if shopID != "" && e.ShopID != shopID {
			continue
		}
		if !e.Date.Before(monthStart) {
			stats.MonthExpensesCents += e.AmountCents
		}
	}
	stats.ProfitCents = stats.MonthRevenueCents - stats.MonthExpensesCents

	for _, p := range s.products {
		if !p.Active {
			continue
		}
		if shopID != "" && p.ShopID != shopID {
			continue
		}
		stats.ProductCount++
		if p.Stock <= p.ReorderLevel {
			stats.LowStockCount++
		}
	}

	slices.SortFunc(recent, func(a, b domain.Transaction) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if len(recent) > 10 {
		recent = recent[:10]
	}
	stats.RecentTransactions = recent

	stats.RevenueByDay = make([]domain.RevenuePoint, 0, 7)
	for d := 0; d < 7; d++ {
		day := weekStart.AddDate(0, 0, d).Format("2006-01-02")
		if point := revenueByDay[day]; point != nil {
			stats.RevenueByDay = append(stats.RevenueByDay, *point)
		} else {
			stats.RevenueByDay = append(stats.RevenueByDay, domain.RevenuePoint{Date: day})
		}
	}

	return stats, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrInvalidInput
	}
	user.Username = username
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.usersByUsername[strings.ToLower(strings.TrimSpace(username))]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyUser := user
	return &copyUser, nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

// StockOf reports current stock for a product. Test helper.
func (s *Store) StockOf(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.products[id].Stock
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}

func cloneTransaction(src *domain.Transaction) *domain.Transaction {
	if src == nil {
		return nil
	}
	dup := *src
	dupLines := make([]domain.TransactionLine, len(src.Lines))
	copy(dupLines, src.Lines)
	dup.Lines = dupLines
	return &dup
}
