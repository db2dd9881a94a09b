package repository

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"sneakersync/internal/model"
)

// MemoryRepository keeps products in process memory. Used for dry runs and tests.
type MemoryRepository struct {
	mu     sync.Mutex
	nextID int
	// partition -> sku -> product
	data map[model.Brand]map[string]model.CanonicalProduct
}

func NewMemory() *MemoryRepository {
	return &MemoryRepository{data: make(map[model.Brand]map[string]model.CanonicalProduct)}
}

func (r *MemoryRepository) FindByID(ctx context.Context, brand model.Brand, id string) (*model.CanonicalProduct, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.data[brand] {
		if p.ID == id {
			out := clone(p)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) FindBySKU(ctx context.Context, brand model.Brand, sku string) (*model.CanonicalProduct, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.data[brand][sku]
	if !ok {
		return nil, ErrNotFound
	}
	out := clone(p)
	return &out, nil
}

func (r *MemoryRepository) Insert(ctx context.Context, brand model.Brand, p model.CanonicalProduct) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	part, ok := r.data[brand]
	if !ok {
		part = make(map[string]model.CanonicalProduct)
		r.data[brand] = part
	}
	if _, dup := part[p.SKU]; dup {
		return "", ErrDuplicate
	}
	r.nextID++
	p = clone(p)
	p.ID = strconv.Itoa(r.nextID)
	part[p.SKU] = p
	return p.ID, nil
}

func (r *MemoryRepository) Replace(ctx context.Context, brand model.Brand, p model.CanonicalProduct) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.data[brand][p.SKU]
	if !ok {
		return ErrNotFound
	}
	p = clone(p)
	p.ID = existing.ID
	r.data[brand][p.SKU] = p
	return nil
}

func (r *MemoryRepository) List(ctx context.Context, brand model.Brand) ([]model.CanonicalProduct, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.CanonicalProduct, 0, len(r.data[brand]))
	for _, p := range r.data[brand] {
		out = append(out, clone(p))
	}
	slices.SortFunc(out, func(a, b model.CanonicalProduct) int {
		ai, _ := strconv.Atoi(a.ID)
		bi, _ := strconv.Atoi(b.ID)
		return ai - bi
	})
	return out, nil
}

func (r *MemoryRepository) SetPrice(ctx context.Context, brand model.Brand, id, price string) error {
	return r.update(brand, id, func(p *model.CanonicalProduct) error {
		p.Price = price
		return nil
	})
}

func (r *MemoryRepository) SetImage(ctx context.Context, brand model.Brand, id string, index int, path string) error {
	return r.update(brand, id, func(p *model.CanonicalProduct) error {
		if index < 0 || index >= len(p.Images) {
			return fmt.Errorf("image index %d out of range (%d images)", index, len(p.Images))
		}
		p.Images[index] = path
		return nil
	})
}

func (r *MemoryRepository) Close(ctx context.Context) error { return nil }

func (r *MemoryRepository) update(brand model.Brand, id string, fn func(*model.CanonicalProduct) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for sku, p := range r.data[brand] {
		if p.ID != id {
			continue
		}
		if err := fn(&p); err != nil {
			return err
		}
		r.data[brand][sku] = p
		return nil
	}
	return ErrNotFound
}

func clone(p model.CanonicalProduct) model.CanonicalProduct {
	p.Variants = slices.Clone(p.Variants)
	p.Images = slices.Clone(p.Images)
	return p
}
