package normalizer

import (
	"strings"

	"sneakersync/internal/errx"
	"sneakersync/internal/model"
)

// eligibleGenders are the storefront product types kept by the pipeline.
var eligibleGenders = map[string]struct{}{
	"mens footwear":   {},
	"womens footwear": {},
}

// Eligible reports whether gender names an accepted footwear category.
func Eligible(gender string) bool {
	_, ok := eligibleGenders[strings.ToLower(strings.TrimSpace(gender))]
	return ok
}

// Normalize maps an extracted product into the canonical record.
//
// Products outside the footwear categories return an eligibility error, which
// callers treat as a silent skip. An unsupported brand returns a validation error.
func Normalize(p *model.ExtractedProduct, brand string) (model.CanonicalProduct, error) {
	gender := strings.TrimSpace(p.Gender.String())
	if !p.Gender.Ok() || !Eligible(gender) {
		return model.CanonicalProduct{}, errx.Newf(errx.KindEligibility, "normalize", "gender %q is not eligible", gender)
	}

	b, err := model.ParseBrand(p.Brand.Or(brand))
	if err != nil {
		return model.CanonicalProduct{}, errx.New(errx.KindValidation, "normalize", err)
	}

	variants := p.Variants
	if variants == nil {
		variants = []model.Variant{}
	}
	images := p.Images
	if images == nil {
		images = []string{}
	}

	return model.CanonicalProduct{
		SKU:      p.SKU.Or(model.SKUNotFound),
		Title:    p.Title.Or(model.TitleNotFound),
		Brand:    b.String(),
		Color:    p.Color.Or(model.ColorNotFound),
		Gender:   p.Gender.String(),
		Material: p.Material.Or(""),
		AgeGroup: p.AgeGroup.Or(""),
		Size:     p.Size.Or(model.SizeNotFound),
		Barcode:  p.Barcode.Or(model.BarcodeNotFound),
		Weight:   p.Weight.Or(model.WeightNotFound),
		Quantity: p.Quantity.Or(model.QuantityNotFound),
		Variants: variants,
		Images:   images,
		Detail:   p.Detail.Or(""),
		Price:    p.Price.Or(model.PriceNotFound),
	}, nil
}
