package model

import (
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// Legacy "not found" strings. Stored documents and UI events still carry them.
const (
	TitleNotFound    = "Title not found"
	ColorNotFound    = "Color not found"
	PriceNotFound    = "Price not found"
	SizeNotFound     = "Size not found"
	SKUNotFound      = "SKU not found"
	BarcodeNotFound  = "Barcode not found"
	WeightNotFound   = "Weight not found"
	QuantityNotFound = "Quantity not found"
	IDNotFound       = "ID not found"
	GenderNotFound   = "gender not found"

	DetailsNotFound = "Details not found"
	NoListFound     = "No list found"
)

var sentinels = map[string]struct{}{
	TitleNotFound:    {},
	ColorNotFound:    {},
	PriceNotFound:    {},
	SizeNotFound:     {},
	SKUNotFound:      {},
	BarcodeNotFound:  {},
	WeightNotFound:   {},
	QuantityNotFound: {},
	IDNotFound:       {},
	GenderNotFound:   {},
}

// IsSentinel reports whether s is a legacy placeholder rather than a real value.
// Empty strings count as placeholders too.
func IsSentinel(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	_, ok := sentinels[s]
	return ok
}

// Variant is one size of a product.
type Variant struct {
	Size       string `bson:"Size" json:"Size"`
	ExternalID string `bson:"ID" json:"ID"`
	SKU        string `bson:"SKU" json:"SKU"`
	Barcode    string `bson:"Barcode" json:"Barcode"`
	Quantity   int    `bson:"Quantity" json:"Quantity"`
	Weight     int    `bson:"Weight" json:"Weight"`
}

// UnmarshalBSON reads variants written by the earlier scraper too, where ID
// was stored as a number and Quantity or Weight could be a "not found"
// string. Unreadable numbers decode as 0.
func (v *Variant) UnmarshalBSON(data []byte) error {
	elems, err := bson.Raw(data).Elements()
	if err != nil {
		return err
	}
	*v = Variant{}
	for _, e := range elems {
		val := e.Value()
		switch e.Key() {
		case "Size":
			v.Size = bsonText(val)
		case "ID":
			v.ExternalID = bsonText(val)
		case "SKU":
			v.SKU = bsonText(val)
		case "Barcode":
			v.Barcode = bsonText(val)
		case "Quantity":
			v.Quantity = bsonInt(val)
		case "Weight":
			v.Weight = bsonInt(val)
		}
	}
	return nil
}

func bsonText(val bson.RawValue) string {
	switch val.Type {
	case bson.TypeString:
		return val.StringValue()
	case bson.TypeInt32:
		return strconv.Itoa(int(val.Int32()))
	case bson.TypeInt64:
		return strconv.FormatInt(val.Int64(), 10)
	case bson.TypeDouble:
		return strconv.FormatFloat(val.Double(), 'f', -1, 64)
	case bson.TypeNull, bson.TypeUndefined:
		return ""
	}
	return val.String()
}

func bsonInt(val bson.RawValue) int {
	switch val.Type {
	case bson.TypeInt32:
		return int(val.Int32())
	case bson.TypeInt64:
		return int(val.Int64())
	case bson.TypeDouble:
		return int(val.Double())
	case bson.TypeString:
		n, err := strconv.Atoi(strings.TrimSpace(val.StringValue()))
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

// ExtractedProduct is what the extractor recovered from one product page.
type ExtractedProduct struct {
	URL      string
	Title    Value
	Brand    Value
	Color    Value
	Material Value
	AgeGroup Value
	Price    Value
	SKU      Value
	Size     Value
	Barcode  Value
	Weight   Value
	Quantity Value
	ID       Value
	Gender   Value
	Variants []Variant
	Images   []string
	Detail   Value
}

// CanonicalProduct is the stored record. Field names follow the documents
// already present in the brand collections.
type CanonicalProduct struct {
	ID       string    `bson:"_id,omitempty" json:"_id,omitempty"`
	SKU      string    `bson:"sku" json:"sku"`
	Title    string    `bson:"title" json:"title"`
	Brand    string    `bson:"brand" json:"brand"`
	Color    string    `bson:"color" json:"color"`
	Gender   string    `bson:"gender" json:"gender"`
	Material string    `bson:"material" json:"material"`
	AgeGroup string    `bson:"age_group" json:"age_group"`
	Size     string    `bson:"size" json:"size"`
	Barcode  string    `bson:"barcode" json:"barcode"`
	Weight   string    `bson:"weight" json:"weight"`
	Quantity string    `bson:"quantity" json:"quantity"`
	Variants []Variant `bson:"Variants" json:"Variants"`
	Images   []string  `bson:"Images" json:"Images"`
	Detail   string    `bson:"product_detail" json:"product_detail"`
	Price    string    `bson:"price" json:"price"`
}

// Thumbnail returns the first image, used as the listing picture.
func (p *CanonicalProduct) Thumbnail() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}
