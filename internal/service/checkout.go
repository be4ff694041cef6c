package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"billora/backend/internal/domain"
	"billora/backend/internal/store"
	"billora/backend/internal/xid"
)

const (
	commitAttempts = 3
	commitBackoff  = 150 * time.Millisecond
	commitTimeout  = 5 * time.Second
)

// PreviewTotals prices a cart without committing anything, for the live
// totals strip on the POS screen.
func (s *Service) PreviewTotals(ctx context.Context, req domain.SaleRequest) (domain.Totals, error) {
	cart, err := s.buildCart(ctx, req.Lines)
	if err != nil {
		return domain.Totals{}, err
	}
	if cart.Len() == 0 {
		return domain.Totals{}, store.ErrEmptyCart
	}

	totals, _ := PriceCart(cart.Lines(), req.DiscountPercent)
	totals.ChangeDueCents = ChangeDue(normalizePaymentMode(req.PaymentMode), req.TenderedCents, totals.GrandTotalCents)
	return totals, nil
}

// CompleteSale prices the cart, validates the tender and hands the sale
// to the repository for an atomic commit. A transient store outage is
// retried a bounded number of times under the same idempotency token, so
// a sale that actually landed on an earlier attempt is returned instead
// of being double-charged.
func (s *Service) CompleteSale(ctx context.Context, req domain.SaleRequest) (domain.SaleResponse, error) {
	if req.ShopID == "" {
		req.ShopID = s.shopID
	}
	req.PaymentMode = normalizePaymentMode(req.PaymentMode)
	if !isSupportedPaymentMode(req.PaymentMode) {
		return domain.SaleResponse{}, store.ErrInvalidInput
	}
	if strings.TrimSpace(req.IdempotencyToken) == "" {
		req.IdempotencyToken = uuid.NewString()
	}
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerPhone = strings.TrimSpace(req.CustomerPhone)

	// Credit sales must name who owes the money.
	if req.Pending && req.CustomerName == "" {
		return domain.SaleResponse{}, store.ErrInvalidInput
	}

	cart, err := s.buildCart(ctx, req.Lines)
	if err != nil {
		return domain.SaleResponse{}, err
	}
	if cart.Len() == 0 {
		return domain.SaleResponse{}, store.ErrEmptyCart
	}

	totals, lines := PriceCart(cart.Lines(), req.DiscountPercent)

	tendered := req.TenderedCents
	change := int64(0)
	status := domain.TxStatusCompleted
	if req.Pending {
		status = domain.TxStatusPending
		tendered = 0
	} else {
		if req.PaymentMode != domain.PaymentModeCash {
			// Card and UPI settle for the exact amount at the terminal.
			tendered = totals.GrandTotalCents
		}
		if tendered < totals.GrandTotalCents {
			return domain.SaleResponse{}, &store.InsufficientPaymentError{
				RequiredCents: totals.GrandTotalCents,
				TenderedCents: tendered,
			}
		}
		change = ChangeDue(req.PaymentMode, tendered, totals.GrandTotalCents)
	}

	discountPercent := req.DiscountPercent
	if discountPercent < 0 {
		discountPercent = 0
	}
	if discountPercent > 100 {
		discountPercent = 100
	}

	tx := domain.Transaction{
		ID:               xid.New("tx"),
		ShopID:           req.ShopID,
		IdempotencyToken: req.IdempotencyToken,
		Lines:            lines,
		SubtotalCents:    totals.SubtotalCents,
		TaxCents:         totals.TaxCents,
		DiscountPercent:  discountPercent,
		DiscountCents:    totals.DiscountCents,
		TotalCents:       totals.GrandTotalCents,
		PaymentMode:      req.PaymentMode,
		TenderedCents:    tendered,
		ChangeCents:      change,
		CustomerName:     req.CustomerName,
		CustomerPhone:    req.CustomerPhone,
		Status:           status,
		CreatedAt:        time.Now().UTC(),
	}

	committed, duplicate, err := s.commitWithRetry(ctx, tx)
	if err != nil {
		if errors.Is(err, store.ErrCommitInconsistency) {
			s.logger.Error("sale commit left the store inconsistent, manual reconciliation needed",
				zap.String("token", tx.IdempotencyToken),
				zap.String("shop_id", tx.ShopID),
				zap.Error(err))
		}
		return domain.SaleResponse{}, err
	}

	if duplicate {
		s.logger.Info("sale replayed from idempotency token",
			zap.String("token", req.IdempotencyToken),
			zap.String("transaction_id", committed.ID))
	} else {
		s.logger.Info("sale committed",
			zap.String("transaction_id", committed.ID),
			zap.String("invoice", committed.InvoiceNumber),
			zap.String("payment_mode", committed.PaymentMode),
			zap.String("status", committed.Status),
			zap.Int64("total_cents", committed.TotalCents))
	}

	return domain.SaleResponse{Transaction: *committed, Duplicate: duplicate}, nil
}

// commitWithRetry runs each commit attempt under its own deadline so a
// stalled store cannot hang the sale. A timed-out attempt is treated as
// a transient outage: the token is unchanged, so if the commit actually
// landed before the deadline the next attempt replays it as a duplicate.
func (s *Service) commitWithRetry(ctx context.Context, tx domain.Transaction) (*domain.Transaction, bool, error) {
	var lastErr error
	for attempt := 1; attempt <= commitAttempts; attempt++ {
		committed, duplicate, err := s.commitOnce(ctx, tx)
		if err == nil {
			return committed, duplicate, nil
		}
		if !errors.Is(err, store.ErrStoreUnavailable) {
			return nil, false, err
		}

		lastErr = err
		if attempt == commitAttempts {
			break
		}
		s.logger.Warn("sale commit hit a transient store error, retrying",
			zap.String("token", tx.IdempotencyToken),
			zap.Int("attempt", attempt),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case <-time.After(commitBackoff * time.Duration(attempt)):
		}
	}
	return nil, false, lastErr
}

func (s *Service) commitOnce(ctx context.Context, tx domain.Transaction) (*domain.Transaction, bool, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, s.commitTimeout)
	defer cancel()

	committed, duplicate, err := s.repo.CommitSale(attemptCtx, tx)
	if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return nil, false, fmt.Errorf("%w: commit attempt timed out after %s", store.ErrStoreUnavailable, s.commitTimeout)
	}
	return committed, duplicate, err
}

// buildCart hydrates request lines against the current catalog. Name,
// price and GST come from the repository at this moment. A request line
// may carry the unit price the client quoted; if the catalog has moved
// since that quote, the sale is rejected rather than silently repriced.
func (s *Service) buildCart(ctx context.Context, lines []domain.CartLine) (*Cart, error) {
	if len(lines) == 0 {
		return NewCart(), nil
	}

	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line.ProductID) == "" {
			return nil, store.ErrInvalidInput
		}
		ids = append(ids, line.ProductID)
	}

	products, err := s.repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	cart := NewCart()
	for _, line := range lines {
		product, ok := products[line.ProductID]
		if !ok {
			return nil, store.ErrNotFound
		}
		if line.UnitPriceCents != 0 && line.UnitPriceCents != product.PriceCents {
			return nil, &store.PriceChangedError{
				ProductID:    product.ID,
				Name:         product.Name,
				QuotedCents:  line.UnitPriceCents,
				CatalogCents: product.PriceCents,
			}
		}
		if err := cart.Add(product, line.Quantity); err != nil {
			return nil, err
		}
	}
	return cart, nil
}

func normalizePaymentMode(mode string) string {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		return domain.PaymentModeCash
	}
	return mode
}

func isSupportedPaymentMode(mode string) bool {
	switch mode {
	case domain.PaymentModeCash, domain.PaymentModeCard, domain.PaymentModeUPI:
		return true
	default:
		return false
	}
}
