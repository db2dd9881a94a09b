package pipeline

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/rs/zerolog"

	"sneakersync/internal/crawler"
	"sneakersync/internal/errx"
	"sneakersync/internal/events"
	"sneakersync/internal/model"
	"sneakersync/internal/normalizer"
	"sneakersync/internal/observability"
	"sneakersync/internal/publisher"
	"sneakersync/internal/reconciler"
)

type Crawler interface {
	Products(ctx context.Context, baseURL, brand string) (iter.Seq[crawler.Item], error)
}

type Reconciler interface {
	Reconcile(ctx context.Context, p model.CanonicalProduct) (reconciler.Outcome, error)
}

type Publisher interface {
	Publish(ctx context.Context, p model.CanonicalProduct) publisher.Result
}

type RunStore interface {
	Save(ctx context.Context, s *model.RunSummary) error
}

type Outcome string

const (
	OutcomeInserted   Outcome = "inserted"
	OutcomeUpdated    Outcome = "updated"
	OutcomeUnchanged  Outcome = "unchanged"
	OutcomeIneligible Outcome = "ineligible"
	OutcomeSkipped    Outcome = "skipped"
	OutcomeFailed     Outcome = "failed"
)

// Result is what happened to one collection entry.
type Result struct {
	Name    string
	URL     string
	Outcome Outcome
	Err     error
	Product *events.Summary
	Publish *publisher.Result
}

type Report struct {
	Summary model.RunSummary
	Results []Result
}

// Runner drives one scrape: crawl, normalize, reconcile and optionally publish.
// Publisher and Runs may be nil.
type Runner struct {
	Crawler    Crawler
	Reconciler Reconciler
	Publisher  Publisher
	Sink       events.Sink
	Runs       RunStore
	Logger     zerolog.Logger
}

// Run processes the brand collection under baseURL item by item. Per-item
// failures are recorded and never stop the run. On cancellation the partial
// report is returned with ctx.Err().
func (r *Runner) Run(ctx context.Context, baseURL, brand string) (*Report, error) {
	log := r.Logger.With().Str("component", "pipeline").Str("brand", brand).Logger()

	label := brand
	if b, err := model.ParseBrand(brand); err == nil {
		label = b.String()
	}
	rep := &Report{Summary: model.RunSummary{
		Brand:     label,
		SourceURL: baseURL,
		StartedAt: time.Now().UTC(),
	}}

	r.emit(ctx, events.Event{Message: fmt.Sprintf("Starting to scrape %s products...", brand)})

	items, err := r.Crawler.Products(ctx, baseURL, brand)
	if err != nil {
		log.Error().Err(err).Str("url", baseURL).Msg("collection page failed")
		r.emit(ctx, events.Event{Message: "Failed to fetch the collection page"})
		return nil, err
	}

	for item := range items {
		res := r.process(ctx, item, brand, log)
		rep.add(res)
		observability.ItemsTotal.WithLabelValues(label, string(res.Outcome)).Inc()
	}

	rep.Summary.FinishedAt = time.Now().UTC()
	s := rep.Summary
	log.Info().
		Int("seen", s.Seen).Int("inserted", s.Inserted).Int("updated", s.Updated).
		Int("unchanged", s.Unchanged).Int("ineligible", s.Ineligible).Int("skipped", s.Skipped).
		Int("failed", s.Failed).Int("published", s.Published).
		Dur("elapsed", s.FinishedAt.Sub(s.StartedAt)).
		Msg("scrape finished")

	if r.Runs != nil {
		if err := r.Runs.Save(context.WithoutCancel(ctx), &rep.Summary); err != nil {
			log.Warn().Err(err).Msg("run summary not recorded")
		}
	}

	if err := ctx.Err(); err != nil {
		r.emit(context.WithoutCancel(ctx), events.Event{Message: "Scraping was interrupted."})
		return rep, err
	}
	r.emit(ctx, events.Event{Message: "All products have been processed."})
	return rep, nil
}

// process handles one item to the end; cancellation is only observed between
// items.
func (r *Runner) process(ctx context.Context, item crawler.Item, brand string, log zerolog.Logger) Result {
	ctx = context.WithoutCancel(ctx)
	res := Result{Name: item.Link.Name, URL: item.URL}

	if item.Err != nil {
		res.Outcome, res.Err = OutcomeFailed, item.Err
		log.Warn().Err(item.Err).Str("url", item.URL).Msg("product not scraped")
		if errx.Is(item.Err, errx.KindFetch) {
			r.emit(ctx, events.Event{Message: "Failed to fetch product detail page for: " + item.Link.Name})
		} else {
			r.emit(ctx, events.Event{Message: "Failed to scrape product: " + item.Link.Name})
		}
		return res
	}

	p, err := normalizer.Normalize(item.Product, brand)
	switch {
	case errx.Is(err, errx.KindEligibility):
		res.Outcome = OutcomeIneligible
		log.Debug().Str("url", item.URL).Str("gender", item.Product.Gender.String()).Msg("not footwear, skipped")
		return res
	case err != nil:
		res.Outcome, res.Err = OutcomeSkipped, err
		log.Warn().Err(err).Str("url", item.URL).Msg("product skipped")
		return res
	}
	res.Product = events.Summarize(p)

	outcome, err := r.Reconciler.Reconcile(ctx, p)
	if err != nil {
		res.Err = err
		res.Outcome = OutcomeFailed
		if errx.Is(err, errx.KindValidation) {
			res.Outcome = OutcomeSkipped
		}
		log.Warn().Err(err).Str("url", item.URL).Msg("product not saved")
		r.emit(ctx, events.Event{Message: "Failed to save product: " + p.Title, Product: res.Product})
		return res
	}
	res.Outcome = Outcome(outcome)
	r.emit(ctx, events.Event{Message: "Scraped and saved product: " + p.Title, Product: res.Product})

	if r.Publisher != nil && outcome != reconciler.OutcomeUnchanged {
		pub := r.Publisher.Publish(ctx, p)
		res.Publish = &pub
		switch {
		case pub.Err != nil:
			log.Warn().Err(pub.Err).Str("sku", p.SKU).Msg("publish failed")
			r.emit(ctx, events.Event{Message: "Failed to publish product: " + p.Title, Product: res.Product})
		case pub.InventoryErr != nil:
			log.Warn().Err(pub.InventoryErr).Str("sku", pub.SKU).Msg("published without full inventory")
		}
	}
	return res
}

func (r *Runner) emit(ctx context.Context, e events.Event) {
	if r.Sink == nil {
		return
	}
	if err := r.Sink.Emit(ctx, e); err != nil {
		r.Logger.Warn().Err(err).Str("message", e.Message).Msg("event not delivered")
	}
}

func (rep *Report) add(res Result) {
	s := &rep.Summary
	s.Seen++
	switch res.Outcome {
	case OutcomeInserted:
		s.Inserted++
	case OutcomeUpdated:
		s.Updated++
	case OutcomeUnchanged:
		s.Unchanged++
	case OutcomeIneligible:
		s.Ineligible++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
	}
	if res.Publish != nil && res.Publish.Err == nil {
		s.Published++
	}
	rep.Results = append(rep.Results, res)
}
