package extractor

import (
	"bytes"
	"encoding/json"
	"strconv"

	"sneakersync/internal/model"
)

// scriptProduct is the product literal embedded in the option selectors script.
type scriptProduct struct {
	ID       *jsonText       `json:"id"`
	Variants []scriptVariant `json:"variants"`
}

type scriptVariant struct {
	ID                *jsonText `json:"id"`
	Option2           *jsonText `json:"option2"`
	SKU               *jsonText `json:"sku"`
	Barcode           *jsonText `json:"barcode"`
	InventoryQuantity *float64  `json:"inventory_quantity"`
	Weight            *float64  `json:"weight"`
}

func (v scriptVariant) toModel() model.Variant {
	out := model.Variant{
		Size:       v.Option2.value().Or(model.SizeNotFound),
		ExternalID: v.ID.value().Or(model.IDNotFound),
		SKU:        v.SKU.value().Or(model.SKUNotFound),
		Barcode:    v.Barcode.value().Or(model.BarcodeNotFound),
	}
	if v.InventoryQuantity != nil {
		out.Quantity = int(*v.InventoryQuantity)
	}
	if v.Weight != nil {
		out.Weight = int(*v.Weight)
	}
	return out
}

// jsonText accepts a JSON string or number and keeps its text.
type jsonText string

func (t *jsonText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = jsonText(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if i, err := n.Int64(); err == nil {
		*t = jsonText(strconv.FormatInt(i, 10))
		return nil
	}
	*t = jsonText(n.String())
	return nil
}

func (t *jsonText) value() model.Value {
	if t == nil {
		return model.Missing()
	}
	return model.Found(string(*t))
}
