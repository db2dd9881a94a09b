package normalizer

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"sneakersync/internal/errx"
	"sneakersync/internal/model"
)

func extracted(gender, brand string) *model.ExtractedProduct {
	return &model.ExtractedProduct{
		Title:    model.Found("Dunk Low"),
		Brand:    model.Found(brand),
		Color:    model.Found("Panda"),
		Material: model.Found("Leather"),
		AgeGroup: model.Found("Adult"),
		Price:    model.Found("160.00"),
		SKU:      model.Found("DD1391-100"),
		Gender:   model.Found(gender),
		Variants: []model.Variant{{Size: "US 9", SKU: "DD1391-100-9", Quantity: 2}},
		Images:   []string{"https://cdn.example.com/dunk.jpg"},
		Detail:   model.Found("Leather upper"),
	}
}

func TestNormalizeEligibility(t *testing.T) {
	tests := []struct {
		gender string
		want   bool
	}{
		{"Mens Footwear", true},
		{"Womens Footwear", true},
		{"WOMENS FOOTWEAR ", true},
		{"kids", false},
		{"Mens Apparel", false},
	}

	for _, tt := range tests {
		_, err := Normalize(extracted(tt.gender, "Nike"), "Nike")
		if tt.want && err != nil {
			t.Errorf("gender %q: unexpected error %v", tt.gender, err)
		}
		if !tt.want && !errx.Is(err, errx.KindEligibility) {
			t.Errorf("gender %q: expected eligibility rejection, got %v", tt.gender, err)
		}
	}
}

func TestNormalizeMissingGenderRejected(t *testing.T) {
	p := extracted("", "Nike")
	p.Gender = model.Missing()

	if _, err := Normalize(p, "Nike"); !errx.Is(err, errx.KindEligibility) {
		t.Errorf("expected eligibility rejection, got %v", err)
	}
}

func TestNormalizeUnsupportedBrand(t *testing.T) {
	_, err := Normalize(extracted("Mens Footwear", "Puma"), "Puma")
	if !errx.Is(err, errx.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestNormalizeMapsFields(t *testing.T) {
	p := extracted("Mens Footwear", "nike")
	p.Barcode = model.Missing()

	got, err := Normalize(p, "nike")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	want := model.CanonicalProduct{
		SKU:      "DD1391-100",
		Title:    "Dunk Low",
		Brand:    "Nike",
		Color:    "Panda",
		Gender:   "Mens Footwear",
		Material: "Leather",
		AgeGroup: "Adult",
		Size:     model.SizeNotFound,
		Barcode:  model.BarcodeNotFound,
		Weight:   model.WeightNotFound,
		Quantity: model.QuantityNotFound,
		Variants: []model.Variant{{Size: "US 9", SKU: "DD1391-100-9", Quantity: 2}},
		Images:   []string{"https://cdn.example.com/dunk.jpg"},
		Detail:   "Leather upper",
		Price:    "160.00",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("canonical mismatch (-want +got):\n%s", diff)
	}
}
