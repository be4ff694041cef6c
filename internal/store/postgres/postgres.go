package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"slices"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"billora/backend/internal/domain"
	"billora/backend/internal/store"
	"billora/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListProducts(ctx context.Context, shopID string) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, shop_id, COALESCE(sku,''), name, category, COALESCE(brand,''), price_cents,
			cost_price_cents, gst_percent, stock, reorder_level, COALESCE(unit,''), active,
			created_at, updated_at
		FROM products
		WHERE active = true AND ($1 = '' OR shop_id = $1)
		ORDER BY category, name
	`, shopID)
	if err != nil {
		return nil, wrapUnavailable(err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapUnavailable(err)
	}

	return products, nil
}

func (s *Store) ListLowStockProducts(ctx context.Context, shopID string) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, shop_id, COALESCE(sku,''), name, category, COALESCE(brand,''), price_cents,
			cost_price_cents, gst_percent, stock, reorder_level, COALESCE(unit,''), active,
			created_at, updated_at
		FROM products
		WHERE active = true AND stock <= reorder_level AND ($1 = '' OR shop_id = $1)
		ORDER BY stock, name
	`, shopID)
	if err != nil {
		return nil, wrapUnavailable(err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 32)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapUnavailable(err)
	}
	return products, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.Category == "" || product.PriceCents < 1 {
		return nil, store.ErrInvalidInput
	}
	if product.GSTPercent < 0 || product.GSTPercent > 100 || product.Stock < 0 {
		return nil, store.ErrInvalidInput
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}

	product.Active = true
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (
			id, shop_id, sku, name, category, brand, price_cents, cost_price_cents,
			gst_percent, stock, reorder_level, unit, active, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`, product.ID, product.ShopID, nullIfEmpty(product.SKU), product.Name, product.Category,
		nullIfEmpty(product.Brand), product.PriceCents, product.CostPriceCents, product.GSTPercent,
		product.Stock, product.ReorderLevel, nullIfEmpty(product.Unit), product.Active,
		product.CreatedAt, product.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, wrapUnavailable(err)
	}

	created := product
	return &created, nil
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, shop_id, COALESCE(sku,''), name, category, COALESCE(brand,''), price_cents,
			cost_price_cents, gst_percent, stock, reorder_level, COALESCE(unit,''), active,
			created_at, updated_at
		FROM products
		WHERE id = $1
	`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, wrapUnavailable(err)
	}
	return &p, nil
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	result := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, shop_id, COALESCE(sku,''), name, category, COALESCE(brand,''), price_cents,
			cost_price_cents, gst_percent, stock, reorder_level, COALESCE(unit,''), active,
			created_at, updated_at
		FROM products
		WHERE active = true AND id = ANY($1)
	`, ids)
	if err != nil {
		return nil, wrapUnavailable(err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, wrapUnavailable(err)
	}

	return result, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.Category == "" || product.PriceCents < 1 {
		return nil, store.ErrInvalidInput
	}
	if product.GSTPercent < 0 || product.GSTPercent > 100 || product.Stock < 0 {
		return nil, store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET sku = $2, name = $3, category = $4, brand = $5, price_cents = $6,
			cost_price_cents = $7, gst_percent = $8, stock = $9, reorder_level = $10,
			unit = $11, active = $12, updated_at = now()
		WHERE id = $1
	`, product.ID, nullIfEmpty(product.SKU), product.Name, product.Category,
		nullIfEmpty(product.Brand), product.PriceCents, product.CostPriceCents,
		product.GSTPercent, product.Stock, product.ReorderLevel, nullIfEmpty(product.Unit),
		product.Active)
	if err != nil {
		return nil, wrapUnavailable(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	updated := product
	return &updated, nil
}

func (s *Store) DeactivateProduct(ctx context.Context, id string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE products
		SET active = false, updated_at = now()
		WHERE id = $1
		RETURNING id, shop_id, COALESCE(sku,''), name, category, COALESCE(brand,''), price_cents,
			cost_price_cents, gst_percent, stock, reorder_level, COALESCE(unit,''), active,
			created_at, updated_at
	`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, wrapUnavailable(err)
	}
	return &p, nil
}

// CommitSale applies the whole sale in one serializable transaction. Each
// line reserves stock with a conditional decrement; a zero row count means
// the shelf ran dry and the transaction rolls back, so either every line
// lands or none does. Lines are reserved in product ID order to keep lock
// acquisition deterministic across concurrent commits.
func (s *Store) CommitSale(ctx context.Context, tx domain.Transaction) (*domain.Transaction, bool, error) {
	if tx.IdempotencyToken == "" {
		return nil, false, store.ErrInvalidInput
	}
	if len(tx.Lines) == 0 {
		return nil, false, store.ErrEmptyCart
	}

	// Resolve duplicates before touching stock. The first commit may have
	// drained the shelf, so a replay that only relied on the token-unique
	// INSERT would die in the reservation loop with a stock error instead
	// of returning the original sale.
	if existing, err := s.FindSaleByToken(ctx, tx.IdempotencyToken); err == nil {
		return existing, true, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, false, wrapUnavailable(err)
	}
	defer func() { _ = pgTx.Rollback() }()

	ordered := make([]domain.TransactionLine, len(tx.Lines))
	copy(ordered, tx.Lines)
	slices.SortFunc(ordered, func(a, b domain.TransactionLine) int {
		if a.ProductID < b.ProductID {
			return -1
		}
		if a.ProductID > b.ProductID {
			return 1
		}
		return 0
	})

	for _, line := range ordered {
		if line.Quantity < 1 {
			return nil, false, store.ErrInvalidInput
		}
		res, err := pgTx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock - $1, updated_at = now()
			WHERE id = $2 AND active = true AND stock >= $1
		`, line.Quantity, line.ProductID)
		if err != nil {
			return nil, false, wrapUnavailable(err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, false, err
		}
		if affected == 0 {
			var name string
			var available int
			lookupErr := pgTx.QueryRowContext(ctx, `
				SELECT name, stock FROM products WHERE id = $1 AND active = true
			`, line.ProductID).Scan(&name, &available)
			if lookupErr != nil {
				if errors.Is(lookupErr, sql.ErrNoRows) {
					return nil, false, fmt.Errorf("product %s unavailable: %w", line.ProductID, store.ErrNotFound)
				}
				return nil, false, wrapUnavailable(lookupErr)
			}
			return nil, false, &store.InsufficientStockError{
				ProductID: line.ProductID,
				Name:      name,
				Requested: line.Quantity,
				Available: available,
			}
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

	var seq int64
	if err := pgTx.QueryRowContext(ctx, `SELECT nextval('invoice_seq')`).Scan(&seq); err != nil {
		return nil, false, wrapUnavailable(err)
	}
	tx.InvoiceNumber = fmt.Sprintf("INV-%s-%06d", tx.CreatedAt.Format("20060102"), seq)

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO transactions (
			id, shop_id, invoice_number, idempotency_token, subtotal_cents, tax_cents,
			discount_percent, discount_cents, total_cents, payment_mode, tendered_cents,
			change_cents, customer_name, customer_phone, status, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`, tx.ID, tx.ShopID, tx.InvoiceNumber, tx.IdempotencyToken, tx.SubtotalCents, tx.TaxCents,
		tx.DiscountPercent, tx.DiscountCents, tx.TotalCents, tx.PaymentMode, tx.TenderedCents,
		tx.ChangeCents, nullIfEmpty(tx.CustomerName), nullIfEmpty(tx.CustomerPhone), tx.Status, tx.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			existing, lookupErr := s.FindSaleByToken(ctx, tx.IdempotencyToken)
			if lookupErr == nil {
				return existing, true, nil
			}
		}
		return nil, false, wrapUnavailable(err)
	}

	for _, line := range tx.Lines {
		_, err := pgTx.ExecContext(ctx, `
			INSERT INTO transaction_lines (
				transaction_id, product_id, name, qty, unit_price_cents, gst_percent, tax_cents, total_cents
			)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, tx.ID, line.ProductID, line.Name, line.Quantity, line.UnitPriceCents, line.GSTPercent, line.TaxCents, line.TotalCents)
		if err != nil {
			return nil, false, wrapUnavailable(err)
		}
	}

	if err := pgTx.Commit(); err != nil {
		if isUniqueViolation(err) {
			existing, lookupErr := s.FindSaleByToken(ctx, tx.IdempotencyToken)
			if lookupErr == nil {
				return existing, true, nil
			}
		}
		return nil, false, wrapUnavailable(err)
	}

	return &tx, false, nil
}

func (s *Store) FindSaleByToken(ctx context.Context, token string) (*domain.Transaction, error) {
	return s.findTransaction(ctx, "idempotency_token", token)
}

func (s *Store) FindTransactionByID(ctx context.Context, id string) (*domain.Transaction, error) {
	return s.findTransaction(ctx, "id", id)
}

func (s *Store) findTransaction(ctx context.Context, column string, value string) (*domain.Transaction, error) {
	if column != "id" && column != "idempotency_token" {
		return nil, fmt.Errorf("unsupported lookup column")
	}

	var tx domain.Transaction
	query := fmt.Sprintf(`
		SELECT id, shop_id, invoice_number, idempotency_token, subtotal_cents, tax_cents,
			discount_percent, discount_cents, total_cents, payment_mode, tendered_cents,
			change_cents, COALESCE(customer_name,''), COALESCE(customer_phone,''), status, created_at
		FROM transactions
		WHERE %s = $1
	`, column)

	err := s.db.QueryRowContext(ctx, query, value).Scan(
		&tx.ID,
		&tx.ShopID,
		&tx.InvoiceNumber,
		&tx.IdempotencyToken,
		&tx.SubtotalCents,
		&tx.TaxCents,
		&tx.DiscountPercent,
		&tx.DiscountCents,
		&tx.TotalCents,
		&tx.PaymentMode,
		&tx.TenderedCents,
		&tx.ChangeCents,
		&tx.CustomerName,
		&tx.CustomerPhone,
		&tx.Status,
		&tx.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, wrapUnavailable(err)
	}
	tx.CreatedAt = tx.CreatedAt.UTC()

	lines, err := s.linesFor(ctx, tx.ID)
	if err != nil {
		return nil, err
	}
	tx.Lines = lines

	return &tx, nil
}

func (s *Store) linesFor(ctx context.Context, txID string) ([]domain.TransactionLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, name, qty, unit_price_cents, gst_percent, tax_cents, total_cents
		FROM transaction_lines
		WHERE transaction_id = $1
		ORDER BY id ASC
	`, txID)
	if err != nil {
		return nil, wrapUnavailable(err)
	}
	defer rows.Close()

	lines := make([]domain.TransactionLine, 0, 8)
	for rows.Next() {
		var line domain.TransactionLine
		if err := rows.Scan(&line.ProductID, &line.Name, &line.Quantity, &line.UnitPriceCents, &line.GSTPercent, &line.TaxCents, &line.TotalCents); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapUnavailable(err)
	}
	return lines, nil
}

func (s *Store) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	limit := filter.Limit
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, shop_id, invoice_number, idempotency_token, subtotal_cents, tax_cents,
			discount_percent, discount_cents, total_cents, payment_mode, tendered_cents,
			change_cents, COALESCE(customer_name,''), COALESCE(customer_phone,''), status, created_at
		FROM transactions
		WHERE ($1 = '' OR shop_id = $1)
			AND ($2 = '' OR status = $2)
			AND ($3::timestamptz IS NULL OR created_at >= $3)
			AND ($4::timestamptz IS NULL OR created_at < $4)
		ORDER BY created_at DESC
		LIMIT $5
	`, filter.ShopID, filter.Status, nullTime(filter.From), nullTime(filter.To), limit)
	if err != nil {
		return nil, wrapUnavailable(err)
	}
	defer rows.Close()

	txs := make([]domain.Transaction, 0, limit)
	for rows.Next() {
		var tx domain.Transaction
		if err := rows.Scan(
			&tx.ID, &tx.ShopID, &tx.InvoiceNumber, &tx.IdempotencyToken, &tx.SubtotalCents,
			&tx.TaxCents, &tx.DiscountPercent, &tx.DiscountCents, &tx.TotalCents, &tx.PaymentMode,
			&tx.TenderedCents, &tx.ChangeCents, &tx.CustomerName, &tx.CustomerPhone, &tx.Status, &tx.CreatedAt,
		); err != nil {
			return nil, err
		}
		tx.CreatedAt = tx.CreatedAt.UTC()
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapUnavailable(err)
	}

	for i := range txs {
		lines, err := s.linesFor(ctx, txs[i].ID)
		if err != nil {
			return nil, err
		}
		txs[i].Lines = lines
	}
	return txs, nil
}

func (s *Store) SettlePendingTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET status = $2
		WHERE id = $1 AND status = $3
	`, id, domain.TxStatusCompleted, domain.TxStatusPending)
	if err != nil {
		return nil, wrapUnavailable(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		if _, lookupErr := s.FindTransactionByID(ctx, id); lookupErr != nil {
			return nil, lookupErr
		}
		return nil, store.ErrInvalidInput
	}
	return s.FindTransactionByID(ctx, id)
}

func (s *Store) CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error) {
	if expense.Category == "" || expense.AmountCents < 1 {
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (
			id, shop_id, category, amount_cents, vendor, payment_mode, notes,
			expense_date, recurring, recurring_frequency, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, expense.ID, expense.ShopID, expense.Category, expense.AmountCents,
		nullIfEmpty(expense.Vendor), nullIfEmpty(expense.PaymentMode), nullIfEmpty(expense.Notes),
		expense.Date, expense.Recurring, nullIfEmpty(expense.RecurringFrequency), expense.CreatedAt)
	if err != nil {
		return nil, wrapUnavailable(err)
	}
	created := expense
	return &created, nil
}

func (s *Store) ListExpenses(ctx context.Context, filter domain.ExpenseFilter) ([]domain.Expense, error) {
	limit := filter.Limit
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, shop_id, category, amount_cents, COALESCE(vendor,''), COALESCE(payment_mode,''),
			COALESCE(notes,''), expense_date, recurring, COALESCE(recurring_frequency,''), created_at
		FROM expenses
		WHERE ($1 = '' OR shop_id = $1)
			AND ($2 = '' OR lower(category) = lower($2))
			AND ($3::timestamptz IS NULL OR expense_date >= $3)
			AND ($4::timestamptz IS NULL OR expense_date < $4)
		ORDER BY expense_date DESC
		LIMIT $5
	`, filter.ShopID, filter.Category, nullTime(filter.From), nullTime(filter.To), limit)
	if err != nil {
		return nil, wrapUnavailable(err)
	}
	defer rows.Close()

	expenses := make([]domain.Expense, 0, limit)
	for rows.Next() {
		var e domain.Expense
		if err := rows.Scan(&e.ID, &e.ShopID, &e.Category, &e.AmountCents, &e.Vendor, &e.PaymentMode,
			&e.Notes, &e.Date, &e.Recurring, &e.RecurringFrequency, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Date = e.Date.UTC()
		e.CreatedAt = e.CreatedAt.UTC()
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapUnavailable(err)
	}
	return expenses, nil
}

func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return wrapUnavailable(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) SummarizeExpenses(ctx context.Context, shopID string, from time.Time, to time.Time) (*domain.ExpenseSummary, error) {
	summary := &domain.ExpenseSummary{
		ShopID:     shopID,
		From:       from.Format("2006-01-02"),
		To:         to.Format("2006-01-02"),
		ByCategory: make([]domain.ExpenseSummaryEntry, 0, 8),
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, COUNT(*)::bigint, COALESCE(SUM(amount_cents),0)::bigint
		FROM expenses
		WHERE ($1 = '' OR shop_id = $1)
			AND ($2::timestamptz IS NULL OR expense_date >= $2)
			AND ($3::timestamptz IS NULL OR expense_date < $3)
		GROUP BY category
		ORDER BY SUM(amount_cents) DESC, category
	`, shopID, nullTime(from), nullTime(to))
	if err != nil {
		return nil, wrapUnavailable(err)
	}
	defer rows.Close()

	for rows.Next() {
		var entry domain.ExpenseSummaryEntry
		if err := rows.Scan(&entry.Category, &entry.Count, &entry.AmountCents); err != nil {
			return nil, err
		}
		summary.ByCategory = append(summary.ByCategory, entry)
		summary.TotalCents += entry.AmountCents
	}
	if err := rows.Err(); err != nil {
		return nil, wrapUnavailable(err)
	}
	return summary, nil
}

func (s *Store) GetDashboardStats(ctx context.Context, shopID string, now time.Time) (*domain.DashboardStats, error) {
	now = now.UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	weekStart := dayStart.AddDate(0, 0, -6)

	stats := &domain.DashboardStats{ShopID: shopID}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN created_at >= $2 THEN 1 ELSE 0 END),0)::bigint,
			COALESCE(SUM(CASE WHEN created_at >= $2 THEN total_cents ELSE 0 END),0)::bigint,
			COALESCE(SUM(CASE WHEN created_at >= $3 THEN total_cents ELSE 0 END),0)::bigint,
			COALESCE(SUM(CASE WHEN status = $4 THEN 1 ELSE 0 END),0)::bigint
		FROM transactions
		WHERE ($1 = '' OR shop_id = $1)
	`, shopID, dayStart, monthStart, domain.TxStatusPending).Scan(
		&stats.TodayOrders,
		&stats.TodayRevenueCents,
		&stats.MonthRevenueCents,
		&stats.PendingCount,
	)
	if err != nil {
		return nil, wrapUnavailable(err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(tl.qty),0)::bigint
		FROM transaction_lines tl
		JOIN transactions t ON t.id = tl.transaction_id
		WHERE ($1 = '' OR t.shop_id = $1) AND t.created_at >= $2
	`, shopID, dayStart).Scan(&stats.ProductsSoldToday)
	if err != nil {
		return nil, wrapUnavailable(err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*)::bigint,
			COALESCE(SUM(CASE WHEN stock <= reorder_level THEN 1 ELSE 0 END),0)::bigint
		FROM products
		WHERE active = true AND ($1 = '' OR shop_id = $1)
	`, shopID).Scan(&stats.ProductCount, &stats.LowStockCount)
	if err != nil {
		return nil, wrapUnavailable(err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents),0)::bigint
		FROM expenses
		WHERE ($1 = '' OR shop_id = $1) AND expense_date >= $2
	`, shopID, monthStart).Scan(&stats.MonthExpensesCents)
	if err != nil {
		return nil, wrapUnavailable(err)
	}
	stats.ProfitCents = stats.MonthRevenueCents - stats.MonthExpensesCents

	recent, err := s.ListTransactions(ctx, domain.TransactionFilter{ShopID: shopID, Limit: 10})
	if err != nil {
		return nil, err
	}
	stats.RecentTransactions = recent

	revenueRows, err := s.db.QueryContext(ctx, `
		SELECT to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day,
			COALESCE(SUM(total_cents),0)::bigint, COUNT(*)::bigint
		FROM transactions
		WHERE ($1 = '' OR shop_id = $1) AND created_at >= $2
		GROUP BY day
	`, shopID, weekStart)
	if err != nil {
		return nil, wrapUnavailable(err)
	}
	defer revenueRows.Close()

	byDay := map[string]domain.RevenuePoint{}
	for revenueRows.Next() {
		var point domain.RevenuePoint
		if err := revenueRows.Scan(&point.Date, &point.RevenueCents, &point.Transactions); err != nil {
			return nil, err
		}
		byDay[point.Date] = point
	}
	if err := revenueRows.Err(); err != nil {
		return nil, wrapUnavailable(err)
	}

	stats.RevenueByDay = make([]domain.RevenuePoint, 0, 7)
	for d := 0; d < 7; d++ {
		day := weekStart.AddDate(0, 0, d).Format("2006-01-02")
		if point, ok := byDay[day]; ok {
			stats.RevenueByDay = append(stats.RevenueByDay, point)
		} else {
			stats.RevenueByDay = append(stats.RevenueByDay, domain.RevenuePoint{Date: day})
		}
	}

	return stats, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidInput
	}
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrInvalidInput
		}
		return wrapUnavailable(err)
	}
	return nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error) {
	var user domain.UserAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM app_users
		WHERE username = $1
	`, username).Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, wrapUnavailable(err)
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, wrapUnavailable(err)
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapUnavailable(err)
	}
	return users, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.ShopID, &p.SKU, &p.Name, &p.Category, &p.Brand, &p.PriceCents,
		&p.CostPriceCents, &p.GSTPercent, &p.Stock, &p.ReorderLevel, &p.Unit, &p.Active,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// wrapUnavailable marks connection-level and serialization failures as
// retryable. Constraint and data errors pass through unchanged.
func wrapUnavailable(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "53300", "57P01", "57P02", "57P03", "08000", "08003", "08006":
			return fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
		}
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}
	return err
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
