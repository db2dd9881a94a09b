package publisher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"sneakersync/internal/catalog"
	"sneakersync/internal/errx"
	"sneakersync/internal/model"
	"sneakersync/internal/observability"
)

// Catalog is the part of the remote catalog API the publisher needs.
type Catalog interface {
	ListLocations(ctx context.Context) ([]catalog.Location, error)
	ListProducts(ctx context.Context, sinceID int64) ([]catalog.Product, error)
	CreateProduct(ctx context.Context, p catalog.Product) (*catalog.Product, error)
	UpdateProduct(ctx context.Context, p catalog.Product) (*catalog.Product, error)
	SetInventoryLevel(ctx context.Context, locationID, inventoryItemID int64, available int) error
}

type Options struct {
	UploadDir        string
	InventoryRetries int
	InventoryBackoff time.Duration
}

type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
)

// Result describes one publish. Err is set when nothing was written remotely;
// InventoryErr when the product was created but some stock levels were not set.
type Result struct {
	SKU          string
	ProductID    int64
	Action       Action
	Err          error
	InventoryErr error
}

type Publisher struct {
	client     Catalog
	opts       Options
	locationID int64
	logger     zerolog.Logger
}

// New resolves the stock location once. A catalog without locations is fatal.
func New(ctx context.Context, client Catalog, opts Options, logger zerolog.Logger) (*Publisher, error) {
	if opts.InventoryRetries <= 0 {
		opts.InventoryRetries = 5
	}
	locations, err := client.ListLocations(ctx)
	if err != nil {
		return nil, errx.New(errx.KindFatal, "resolve location", err)
	}
	if len(locations) == 0 {
		return nil, errx.Newf(errx.KindFatal, "resolve location", "no location found, set up an inventory location in the store")
	}

	log := logger.With().Str("component", "publisher").Logger()
	log.Info().Int64("location_id", locations[0].ID).Msg("stock location resolved")

	return &Publisher{client: client, opts: opts, locationID: locations[0].ID, logger: log}, nil
}

// LookupSKU picks the SKU identifying a product remotely: the first usable
// variant SKU, else the product SKU.
func LookupSKU(p model.CanonicalProduct) (string, bool) {
	for _, v := range p.Variants {
		if !model.IsSentinel(v.SKU) {
			return strings.TrimSpace(v.SKU), true
		}
	}
	if !model.IsSentinel(p.SKU) {
		return strings.TrimSpace(p.SKU), true
	}
	return "", false
}

// FindBySKU scans every catalog page for a product having a variant with sku.
func (p *Publisher) FindBySKU(ctx context.Context, sku string) (*catalog.Product, error) {
	var sinceID int64
	for {
		page, err := p.client.ListProducts(ctx, sinceID)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			return nil, nil
		}
		for i := range page {
			for _, v := range page[i].Variants {
				if v.SKU != "" && strings.TrimSpace(v.SKU) == sku {
					return &page[i], nil
				}
			}
		}
		sinceID = page[len(page)-1].ID
	}
}

func (p *Publisher) Publish(ctx context.Context, product model.CanonicalProduct) Result {
	sku, ok := LookupSKU(product)
	if !ok {
		observability.PublishTotal.WithLabelValues("skipped").Inc()
		return Result{Err: errx.Newf(errx.KindValidation, "publish", "product %q has no usable sku", product.Title)}
	}
	res := Result{SKU: sku}
	log := p.logger.With().Str("sku", sku).Logger()

	built := Build(product, p.opts.UploadDir, log)

	existing, err := p.FindBySKU(ctx, sku)
	if err != nil {
		res.Err = err
		observability.PublishTotal.WithLabelValues("failed").Inc()
		return res
	}

	if existing != nil {
		log.Info().Int64("product_id", existing.ID).Msg("product exists, updating")
		updated, err := p.client.UpdateProduct(ctx, merge(*existing, built))
		if err != nil {
			res.Err = err
			observability.PublishTotal.WithLabelValues("failed").Inc()
			return res
		}
		res.Action, res.ProductID = ActionUpdated, updated.ID
		observability.PublishTotal.WithLabelValues(string(ActionUpdated)).Inc()
		log.Info().Str("title", updated.Title).Msg("product updated")
		return res
	}

	created, err := p.client.CreateProduct(ctx, built)
	if err != nil {
		log.Error().Err(err).Str("title", built.Title).Msg("create product failed")
		res.Err = err
		observability.PublishTotal.WithLabelValues("failed").Inc()
		return res
	}
	res.Action, res.ProductID = ActionCreated, created.ID
	observability.PublishTotal.WithLabelValues(string(ActionCreated)).Inc()
	log.Info().Int64("product_id", created.ID).Str("title", created.Title).Msg("product created")

	var errs []error
	for _, v := range created.Variants {
		qty := quantityFor(built.Variants, v.Option1)
		if err := p.setInventory(ctx, v.InventoryItemID, qty); err != nil {
			errs = append(errs, err)
		}
	}
	res.InventoryErr = errors.Join(errs...)
	return res
}

// merge applies built onto the remote product. Variants are matched by
// position; extra built variants are appended. Images are replaced.
func merge(existing, built catalog.Product) catalog.Product {
	existing.Title = built.Title
	existing.BodyHTML = built.BodyHTML
	existing.Vendor = built.Vendor
	existing.ProductType = built.ProductType
	existing.Tags = built.Tags
	existing.Status = built.Status

	for i, nv := range built.Variants {
		if i >= len(existing.Variants) {
			existing.Variants = append(existing.Variants, nv)
			continue
		}
		ev := &existing.Variants[i]
		ev.Option1 = nv.Option1
		ev.SKU = nv.SKU
		ev.Barcode = nv.Barcode
		ev.InventoryQuantity = nv.InventoryQuantity
		ev.Price = nv.Price
	}
	existing.Images = built.Images
	return existing
}

func quantityFor(variants []catalog.Variant, option1 string) int {
	for _, v := range variants {
		if v.Option1 == option1 {
			return v.InventoryQuantity
		}
	}
	return 0
}

func (p *Publisher) setInventory(ctx context.Context, itemID int64, qty int) error {
	var err error
	for attempt := 0; attempt < p.opts.InventoryRetries; attempt++ {
		if err = p.client.SetInventoryLevel(ctx, p.locationID, itemID, qty); err == nil {
			p.logger.Info().Int64("inventory_item_id", itemID).Int("quantity", qty).Msg("inventory level set")
			return nil
		}
		p.logger.Warn().Err(err).Int("attempt", attempt+1).Int64("inventory_item_id", itemID).Msg("inventory update failed")
		if attempt == p.opts.InventoryRetries-1 {
			break
		}
		observability.InventoryRetriesTotal.Inc()

		delay := p.opts.InventoryBackoff * time.Duration(1<<attempt)
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return errx.New(errx.KindInventorySync, fmt.Sprintf("set inventory %d", itemID), ctx.Err())
		case <-t.C:
		}
	}
	return errx.New(errx.KindInventorySync,
		fmt.Sprintf("set inventory %d", itemID),
		fmt.Errorf("failed after %d attempts: %w", p.opts.InventoryRetries, err))
}
