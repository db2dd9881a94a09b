package catalog

import (
	"encoding/json"
	"strings"
)

type Product struct {
	ID          int64     `json:"id,omitempty"`
	Title       string    `json:"title"`
	BodyHTML    string    `json:"body_html"`
	Vendor      string    `json:"vendor"`
	ProductType string    `json:"product_type"`
	Tags        Tags      `json:"tags"`
	Options     []Option  `json:"options,omitempty"`
	Variants    []Variant `json:"variants"`
	Images      []Image   `json:"images"`
	Status      string    `json:"status,omitempty"`
}

type Variant struct {
	ID                  int64  `json:"id,omitempty"`
	InventoryItemID     int64  `json:"inventory_item_id,omitempty"`
	Option1             string `json:"option1"`
	SKU                 string `json:"sku"`
	Barcode             string `json:"barcode"`
	InventoryQuantity   int    `json:"inventory_quantity"`
	InventoryManagement string `json:"inventory_management,omitempty"`
	InventoryPolicy     string `json:"inventory_policy,omitempty"`
	FulfillmentService  string `json:"fulfillment_service,omitempty"`
	RequiresShipping    bool   `json:"requires_shipping"`
	Price               string `json:"price,omitempty"`
}

type Option struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Image is either a remote src or base64 attachment data.
type Image struct {
	ID         int64  `json:"id,omitempty"`
	Src        string `json:"src,omitempty"`
	Attachment string `json:"attachment,omitempty"`
}

type Location struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Tags travel as one comma separated string.
type Tags []string

func (t Tags) MarshalJSON() ([]byte, error) {
	return json.Marshal(strings.Join(t, ", "))
}

func (t *Tags) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var list []string
		if err2 := json.Unmarshal(b, &list); err2 != nil {
			return err
		}
		*t = list
		return nil
	}
	*t = nil
	for _, tag := range strings.Split(s, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			*t = append(*t, tag)
		}
	}
	return nil
}
