// Package events streams scrape progress to whoever is watching the run.
package events

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"sneakersync/internal/model"
)

// Summary is the product view shown next to a status line.
type Summary struct {
	Thumbnail string          `json:"image"`
	Title     string          `json:"title"`
	Brand     string          `json:"brand"`
	Color     string          `json:"color"`
	Gender    string          `json:"gender"`
	Material  string          `json:"material"`
	AgeGroup  string          `json:"age_group"`
	Size      string          `json:"size"`
	SKU       string          `json:"sku"`
	Barcode   string          `json:"barcode"`
	Weight    string          `json:"weight"`
	Detail    string          `json:"product_detail"`
	Quantity  string          `json:"quantity"`
	Price     string          `json:"price"`
	Variants  []model.Variant `json:"variants"`
}

func Summarize(p model.CanonicalProduct) *Summary {
	return &Summary{
		Thumbnail: p.Thumbnail(),
		Title:     p.Title,
		Brand:     p.Brand,
		Color:     p.Color,
		Gender:    p.Gender,
		Material:  p.Material,
		AgeGroup:  p.AgeGroup,
		Size:      p.Size,
		SKU:       p.SKU,
		Barcode:   p.Barcode,
		Weight:    p.Weight,
		Detail:    p.Detail,
		Quantity:  p.Quantity,
		Price:     p.Price,
		Variants:  p.Variants,
	}
}

type Event struct {
	Message string   `json:"message"`
	Product *Summary `json:"product,omitempty"`
}

// Sink receives events in emission order.
type Sink interface {
	Emit(ctx context.Context, e Event) error
}

type LogSink struct {
	Logger zerolog.Logger
}

func (s LogSink) Emit(ctx context.Context, e Event) error {
	ev := s.Logger.Info()
	if e.Product != nil {
		ev = ev.Str("sku", e.Product.SKU).Str("title", e.Product.Title)
	}
	ev.Msg(e.Message)
	return nil
}

// RedisSink publishes events as JSON on a pub/sub channel.
type RedisSink struct {
	Client  redis.Cmdable
	Channel string
}

func (s RedisSink) Emit(ctx context.Context, e Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.Client.Publish(ctx, s.Channel, b).Err()
}

// Multi fans each event out to every sink.
type Multi []Sink

func (m Multi) Emit(ctx context.Context, e Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Emit(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps events in memory.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Emit(ctx context.Context, e Event) error {
	r.Events = append(r.Events, e)
	return nil
}
