package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"sneakersync/internal/model"
)

type failingSink struct{}

func (failingSink) Emit(ctx context.Context, e Event) error { return errors.New("down") }

func TestMultiDeliversToAllSinks(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	m := Multi{a, failingSink{}, b}

	err := m.Emit(context.Background(), Event{Message: "Scraping started"})
	if err == nil {
		t.Error("expected the failing sink error")
	}
	if len(a.Events) != 1 || len(b.Events) != 1 {
		t.Errorf("deliveries: %d, %d", len(a.Events), len(b.Events))
	}
}

func TestEventJSON(t *testing.T) {
	p := model.CanonicalProduct{
		Title:    "Samba OG",
		Brand:    "Adidas",
		SKU:      "B75806",
		Price:    "180.00",
		Variants: []model.Variant{{Size: "US 9", SKU: "B75806-9", Quantity: 3}},
		Images:   []string{"https://cdn.example.com/a.jpg", "https://cdn.example.com/b.jpg"},
	}

	b, err := json.Marshal(Event{Message: "Scraped and saved product: Samba OG", Product: Summarize(p)})
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		Message string         `json:"message"`
		Product map[string]any `json:"product"`
	}
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	if got.Product["image"] != "https://cdn.example.com/a.jpg" || got.Product["sku"] != "B75806" || got.Product["brand"] != "Adidas" {
		t.Errorf("product summary: %v", got.Product)
	}
	if v, ok := got.Product["variants"].([]any); !ok || len(v) != 1 {
		t.Errorf("variants: %v", got.Product["variants"])
	}

	b, _ = json.Marshal(Event{Message: "All products have been processed."})
	if string(b) != `{"message":"All products have been processed."}` {
		t.Errorf("status event: %s", b)
	}
}
