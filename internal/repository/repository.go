package repository

import (
	"context"
	"errors"

	"sneakersync/internal/model"
)

var (
	ErrNotFound  = errors.New("product not found")
	ErrDuplicate = errors.New("product sku already stored")
)

// ProductRepository stores canonical products in one partition per brand.
// SKU is unique inside a partition.
type ProductRepository interface {
	FindByID(ctx context.Context, brand model.Brand, id string) (*model.CanonicalProduct, error)
	FindBySKU(ctx context.Context, brand model.Brand, sku string) (*model.CanonicalProduct, error)
	// Insert stores a new product and returns its internal id.
	Insert(ctx context.Context, brand model.Brand, p model.CanonicalProduct) (string, error)
	// Replace overwrites the whole document stored under p.SKU.
	Replace(ctx context.Context, brand model.Brand, p model.CanonicalProduct) error
	List(ctx context.Context, brand model.Brand) ([]model.CanonicalProduct, error)
	SetPrice(ctx context.Context, brand model.Brand, id, price string) error
	SetImage(ctx context.Context, brand model.Brand, id string, index int, path string) error
	Close(ctx context.Context) error
}

// Locate searches every brand partition for id.
func Locate(ctx context.Context, repo ProductRepository, id string) (model.Brand, *model.CanonicalProduct, error) {
	for _, b := range model.Brands {
		p, err := repo.FindByID(ctx, b, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return "", nil, err
		}
		return b, p, nil
	}
	return "", nil, ErrNotFound
}
