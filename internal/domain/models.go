package domain

import "time"

type Product struct {
	ID             string    `json:"id"`
	ShopID         string    `json:"shop_id"`
	SKU            string    `json:"sku,omitempty"`
	Name           string    `json:"name"`
	Category       string    `json:"category"`
	Brand          string    `json:"brand,omitempty"`
	PriceCents     int64     `json:"price_cents"`
	CostPriceCents int64     `json:"cost_price_cents"`
	GSTPercent     float64   `json:"gst_percent"`
	Stock          int       `json:"stock"`
	ReorderLevel   int       `json:"reorder_level"`
	Unit           string    `json:"unit,omitempty"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type ProductCreateRequest struct {
	ShopID         string  `json:"shop_id"`
	SKU            string  `json:"sku"`
	Name           string  `json:"name"`
	Category       string  `json:"category"`
	Brand          string  `json:"brand"`
	PriceCents     int64   `json:"price_cents"`
	CostPriceCents int64   `json:"cost_price_cents"`
	GSTPercent     float64 `json:"gst_percent"`
	InitialStock   int     `json:"initial_stock"`
	ReorderLevel   int     `json:"reorder_level"`
	Unit           string  `json:"unit"`
}

type ProductUpdateRequest struct {
	Name           *string  `json:"name,omitempty"`
	Category       *string  `json:"category,omitempty"`
	Brand          *string  `json:"brand,omitempty"`
	PriceCents     *int64   `json:"price_cents,omitempty"`
	CostPriceCents *int64   `json:"cost_price_cents,omitempty"`
	GSTPercent     *float64 `json:"gst_percent,omitempty"`
	Stock          *int     `json:"stock,omitempty"`
	ReorderLevel   *int     `json:"reorder_level,omitempty"`
	Unit           *string  `json:"unit,omitempty"`
	Active         *bool    `json:"active,omitempty"`
}

// CartLine is one product entry in an open cart. UnitPriceCents and GSTPercent
// are snapshots taken when the line was added, so later catalog edits do not
// retroactively reprice an open cart.
type CartLine struct {
	ProductID      string  `json:"product_id"`
	Name           string  `json:"name"`
	Quantity       int     `json:"quantity"`
	UnitPriceCents int64   `json:"unit_price_cents"`
	GSTPercent     float64 `json:"gst_percent"`
}

// Totals is the pricing breakdown shared by the live cart view and the
// tender validation step at commit time.
type Totals struct {
	SubtotalCents   int64 `json:"subtotal_cents"`
	TaxCents        int64 `json:"tax_cents"`
	DiscountCents   int64 `json:"discount_cents"`
	GrandTotalCents int64 `json:"grand_total_cents"`
	ChangeDueCents  int64 `json:"change_due_cents"`
}

type SaleRequest struct {
	IdempotencyToken string     `json:"idempotency_token"`
	ShopID           string     `json:"shop_id"`
	Lines            []CartLine `json:"lines"`
	DiscountPercent  float64    `json:"discount_percent"`
	PaymentMode      string     `json:"payment_mode"`
	TenderedCents    int64      `json:"tendered_cents"`
	// Pending records the sale as unpaid credit for a named customer;
	// payment is collected later and the sale settled by the owner.
	Pending       bool   `json:"pending,omitempty"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`
}

type SaleResponse struct {
	Transaction Transaction `json:"transaction"`
	Duplicate   bool        `json:"duplicate"`
}

type TransactionLine struct {
	ProductID      string  `json:"product_id"`
	Name           string  `json:"name"`
	Quantity       int     `json:"quantity"`
	UnitPriceCents int64   `json:"unit_price_cents"`
	GSTPercent     float64 `json:"gst_percent"`
	TaxCents       int64   `json:"tax_cents"`
	TotalCents     int64   `json:"total_cents"`
}

// Transaction is immutable once recorded. The only permitted mutation is the
// status change pending -> completed, which goes through its own operation.
type Transaction struct {
	ID               string            `json:"id"`
	ShopID           string            `json:"shop_id"`
	InvoiceNumber    string            `json:"invoice_number"`
	IdempotencyToken string            `json:"idempotency_token"`
	Lines            []TransactionLine `json:"lines"`
	SubtotalCents    int64             `json:"subtotal_cents"`
	TaxCents         int64             `json:"tax_cents"`
	DiscountPercent  float64           `json:"discount_percent"`
	DiscountCents    int64             `json:"discount_cents"`
	TotalCents       int64             `json:"total_cents"`
	PaymentMode      string            `json:"payment_mode"`
	TenderedCents    int64             `json:"tendered_cents"`
	ChangeCents      int64             `json:"change_cents"`
	CustomerName     string            `json:"customer_name,omitempty"`
	CustomerPhone    string            `json:"customer_phone,omitempty"`
	Status           string            `json:"status"`
	CreatedAt        time.Time         `json:"created_at"`
}

type TransactionFilter struct {
	ShopID string
	Status string
	From   time.Time
	To     time.Time
	Limit  int
}

type Expense struct {
	ID                 string    `json:"id"`
	ShopID             string    `json:"shop_id"`
	Category           string    `json:"category"`
	AmountCents        int64     `json:"amount_cents"`
	Vendor             string    `json:"vendor,omitempty"`
	PaymentMode        string    `json:"payment_mode,omitempty"`
	Notes              string    `json:"notes,omitempty"`
	Date               time.Time `json:"date"`
	Recurring          bool      `json:"recurring"`
	RecurringFrequency string    `json:"recurring_frequency,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

type ExpenseCreateRequest struct {
	ShopID             string `json:"shop_id"`
	Category           string `json:"category"`
	AmountCents        int64  `json:"amount_cents"`
	Vendor             string `json:"vendor"`
	PaymentMode        string `json:"payment_mode"`
	Notes              string `json:"notes"`
	Date               string `json:"date"`
	Recurring          bool   `json:"recurring"`
	RecurringFrequency string `json:"recurring_frequency"`
}

type ExpenseFilter struct {
	ShopID   string
	Category string
	From     time.Time
	To       time.Time
	Limit    int
}

type ExpenseSummaryEntry struct {
	Category    string `json:"category"`
	Count       int64  `json:"count"`
	AmountCents int64  `json:"amount_cents"`
}

type ExpenseSummary struct {
	ShopID     string                `json:"shop_id"`
	From       string                `json:"from"`
	To         string                `json:"to"`
	TotalCents int64                 `json:"total_cents"`
	ByCategory []ExpenseSummaryEntry `json:"by_category"`
}

type RevenuePoint struct {
	Date         string `json:"date"`
	RevenueCents int64  `json:"revenue_cents"`
	Transactions int64  `json:"transactions"`
}

type DashboardStats struct {
	ShopID             string         `json:"shop_id"`
	TodayOrders        int64          `json:"today_orders"`
	TodayRevenueCents  int64          `json:"today_revenue_cents"`
	MonthRevenueCents  int64          `json:"month_revenue_cents"`
	MonthExpensesCents int64          `json:"month_expenses_cents"`
	ProfitCents        int64          `json:"profit_cents"`
	ProductsSoldToday  int64          `json:"products_sold_today"`
	ProductCount       int64          `json:"product_count"`
	LowStockCount      int64          `json:"low_stock_count"`
	PendingCount       int64          `json:"pending_count"`
	RecentTransactions []Transaction  `json:"recent_transactions"`
	RevenueByDay       []RevenuePoint `json:"revenue_by_day"`
}

type SaleLookupResponse struct {
	Found bool         `json:"found"`
	Sale  *Transaction `json:"sale,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount holds stored auth credentials. Password is a bcrypt hash.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

const (
	TxStatusCompleted = "completed"
	TxStatusPending   = "pending"
)

const (
	PaymentModeCash = "cash"
	PaymentModeCard = "card"
	PaymentModeUPI  = "upi"
)

const (
	RoleOwner   = "owner"
	RoleCashier = "cashier"
)
