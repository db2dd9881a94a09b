package model

import (
	"fmt"
	"strings"
)

// Brand selects the storage partition of a product.
type Brand string

const (
	Adidas Brand = "Adidas"
	Nike   Brand = "Nike"
	Jordan Brand = "Jordan"
)

// Brands lists every supported brand in partition order.
var Brands = []Brand{Adidas, Nike, Jordan}

// ParseBrand matches s case-insensitively against the supported brands.
func ParseBrand(s string) (Brand, error) {
	s = strings.TrimSpace(s)
	for _, b := range Brands {
		if strings.EqualFold(s, string(b)) {
			return b, nil
		}
	}
	return "", fmt.Errorf("brand %q is not supported", s)
}

// Partition is the collection (or table) holding the brand's products.
func (b Brand) Partition() string { return strings.ToLower(string(b)) }

// CollectionPath is the storefront path listing the brand's products.
func (b Brand) CollectionPath() string { return "/collections/" + b.Partition() }

func (b Brand) String() string { return string(b) }
