package reconciler

import (
	"context"
	"errors"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/rs/zerolog"

	"sneakersync/internal/errx"
	"sneakersync/internal/lock"
	"sneakersync/internal/model"
	"sneakersync/internal/repository"
)

type Outcome string

const (
	OutcomeInserted  Outcome = "inserted"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
)

// sameRecord compares the stored schema. The internal id is assigned by the
// store and never part of the comparison; slice order matters.
var sameRecord = []cmp.Option{
	cmpopts.IgnoreFields(model.CanonicalProduct{}, "ID"),
	cmpopts.EquateEmpty(),
}

// Equal reports whether two canonical products hold the same data.
func Equal(a, b model.CanonicalProduct) bool {
	return cmp.Equal(a, b, sameRecord...)
}

// Reconciler applies insert-or-replace-if-changed keyed by (brand, sku).
type Reconciler struct {
	repo   repository.ProductRepository
	locker lock.Locker
	logger zerolog.Logger
}

func New(repo repository.ProductRepository, locker lock.Locker, logger zerolog.Logger) *Reconciler {
	if locker == nil {
		locker = lock.NewLocal()
	}
	return &Reconciler{
		repo:   repo,
		locker: locker,
		logger: logger.With().Str("component", "reconciler").Logger(),
	}
}

func (r *Reconciler) Reconcile(ctx context.Context, p model.CanonicalProduct) (Outcome, error) {
	brand, err := model.ParseBrand(p.Brand)
	if err != nil {
		return "", errx.New(errx.KindValidation, "reconcile", err)
	}
	if model.IsSentinel(p.SKU) {
		return "", errx.Newf(errx.KindValidation, "reconcile", "product %q has no sku", p.Title)
	}

	unlock, err := r.locker.Lock(ctx, brand.Partition()+":"+p.SKU)
	if err != nil {
		return "", errx.New(errx.KindStorage, "lock "+p.SKU, err)
	}
	defer unlock()

	log := r.logger.With().Str("brand", brand.String()).Str("sku", p.SKU).Logger()

	existing, err := r.repo.FindBySKU(ctx, brand, p.SKU)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		id, err := r.repo.Insert(ctx, brand, p)
		if err != nil {
			return "", errx.New(errx.KindStorage, "insert "+p.SKU, err)
		}
		log.Info().Str("id", id).Msg("product inserted")
		return OutcomeInserted, nil
	case err != nil:
		return "", errx.New(errx.KindStorage, "find "+p.SKU, err)
	}

	if Equal(*existing, p) {
		log.Info().Msg("product unchanged, nothing written")
		return OutcomeUnchanged, nil
	}

	if err := r.repo.Replace(ctx, brand, p); err != nil {
		return "", errx.New(errx.KindStorage, "replace "+p.SKU, err)
	}
	log.Info().Str("id", existing.ID).Msg("product updated")
	return OutcomeUpdated, nil
}
