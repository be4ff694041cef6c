package cache

import (
	"context"
	"time"

	"billora/backend/internal/domain"
)

// Catalog caches product listings on the read path. Sale commits never go
// through the cache; they always read stock from the repository.
type Catalog interface {
	GetProducts(ctx context.Context, key string) ([]domain.Product, bool, error)
	SetProducts(ctx context.Context, key string, products []domain.Product, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

type NoopCatalog struct{}

func (NoopCatalog) GetProducts(_ context.Context, _ string) ([]domain.Product, bool, error) {
	return nil, false, nil
}

func (NoopCatalog) SetProducts(_ context.Context, _ string, _ []domain.Product, _ time.Duration) error {
	return nil
}

func (NoopCatalog) Invalidate(_ context.Context, _ ...string) error {
	return nil
}
