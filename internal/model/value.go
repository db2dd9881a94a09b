package model

import "encoding/json"

// Value is a scraped field that may be absent from the page.
type Value struct {
	v  string
	ok bool
}

// Found wraps a value read from the page.
func Found(v string) Value { return Value{v: v, ok: true} }

// Missing is the absent value.
func Missing() Value { return Value{} }

// Get returns the value and whether it was found.
func (v Value) Get() (string, bool) { return v.v, v.ok }

// Ok reports whether the value was found.
func (v Value) Ok() bool { return v.ok }

// Or returns the value, or fallback when it is missing.
func (v Value) Or(fallback string) string {
	if !v.ok {
		return fallback
	}
	return v.v
}

func (v Value) String() string { return v.v }

// MarshalJSON writes missing values as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.ok {
		return []byte("null"), nil
	}
	return json.Marshal(v.v)
}
