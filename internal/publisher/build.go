package publisher

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"sneakersync/internal/catalog"
	"sneakersync/internal/model"
)

const (
	sizeOption  = "Shoe Size"
	productType = "Shoes"
	draft       = "draft"
)

var defaultTags = catalog.Tags{"Shoes", "Footwear", "Sneakers", "Athletic"}

// Build maps a stored product onto the catalog schema. Images under /uploads
// are read from uploadDir and embedded; a missing file is logged and left out.
func Build(p model.CanonicalProduct, uploadDir string, logger zerolog.Logger) catalog.Product {
	price := p.Price
	if model.IsSentinel(price) {
		price = ""
	}

	variants := make([]catalog.Variant, 0, len(p.Variants))
	sizes := make([]string, 0, len(p.Variants))
	for _, v := range p.Variants {
		barcode := v.Barcode
		if model.IsSentinel(barcode) {
			barcode = ""
		}
		variants = append(variants, catalog.Variant{
			Option1:             v.Size,
			SKU:                 v.SKU,
			Barcode:             barcode,
			InventoryQuantity:   v.Quantity,
			InventoryManagement: "shopify",
			InventoryPolicy:     "deny",
			FulfillmentService:  "manual",
			RequiresShipping:    true,
			Price:               price,
		})
		sizes = append(sizes, v.Size)
	}

	return catalog.Product{
		Title:       p.Title,
		BodyHTML:    bodyHTML(p.Detail),
		Vendor:      p.Brand,
		ProductType: productType,
		Tags:        append(catalog.Tags(nil), defaultTags...),
		Options:     []catalog.Option{{Name: sizeOption, Values: sizes}},
		Variants:    variants,
		Images:      images(p.Images, uploadDir, logger),
		Status:      draft,
	}
}

func bodyHTML(detail string) string {
	var b strings.Builder
	b.WriteString("<ul>")
	for _, line := range strings.Split(detail, "\n") {
		b.WriteString("<li>")
		b.WriteString(strings.TrimSpace(line))
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")
	return b.String()
}

func images(paths []string, uploadDir string, logger zerolog.Logger) []catalog.Image {
	out := make([]catalog.Image, 0, len(paths))
	for _, path := range paths {
		if !strings.HasPrefix(path, "/uploads") {
			out = append(out, catalog.Image{Src: path})
			continue
		}
		local := filepath.Join(uploadDir, filepath.Base(path))
		data, err := os.ReadFile(local)
		if err != nil {
			logger.Warn().Err(err).Str("path", local).Msg("local image not found")
			continue
		}
		out = append(out, catalog.Image{Attachment: base64.StdEncoding.EncodeToString(data)})
	}
	return out
}
