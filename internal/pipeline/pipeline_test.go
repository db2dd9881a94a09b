package pipeline

import (
	"context"
	"errors"
	"iter"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"sneakersync/internal/catalog"
	"sneakersync/internal/crawler"
	"sneakersync/internal/errx"
	"sneakersync/internal/events"
	"sneakersync/internal/logx"
	"sneakersync/internal/model"
	"sneakersync/internal/publisher"
	"sneakersync/internal/reconciler"
	"sneakersync/internal/repository"
)

type stubCrawler struct {
	items []crawler.Item
	err   error
}

func (s stubCrawler) Products(ctx context.Context, baseURL, brand string) (iter.Seq[crawler.Item], error) {
	if s.err != nil {
		return nil, s.err
	}
	return slices.Values(s.items), nil
}

type countingRepo struct {
	*repository.MemoryRepository
	writes int
}

func (c *countingRepo) Insert(ctx context.Context, b model.Brand, p model.CanonicalProduct) (string, error) {
	c.writes++
	return c.MemoryRepository.Insert(ctx, b, p)
}

func (c *countingRepo) Replace(ctx context.Context, b model.Brand, p model.CanonicalProduct) error {
	c.writes++
	return c.MemoryRepository.Replace(ctx, b, p)
}

type stubPublisher struct {
	published []string
	err       error
}

func (s *stubPublisher) Publish(ctx context.Context, p model.CanonicalProduct) publisher.Result {
	s.published = append(s.published, p.SKU)
	return publisher.Result{SKU: p.SKU, Action: publisher.ActionCreated, Err: s.err}
}

type stubRuns struct{ saved []model.RunSummary }

func (s *stubRuns) Save(ctx context.Context, r *model.RunSummary) error {
	s.saved = append(s.saved, *r)
	return nil
}

func extracted(sku, gender string) *model.ExtractedProduct {
	return &model.ExtractedProduct{
		Title:    model.Found("Samba " + sku),
		Brand:    model.Found("Adidas"),
		Color:    model.Found("White"),
		Material: model.Found("Leather"),
		AgeGroup: model.Found("Adult"),
		Price:    model.Found("180.00"),
		SKU:      model.Found(sku),
		Gender:   model.Found(gender),
		Variants: []model.Variant{{Size: "US 9", SKU: sku + "-9", Quantity: 2}},
		Images:   []string{"https://cdn.example.com/" + sku + ".jpg"},
		Detail:   model.Found("Suede"),
	}
}

func item(name string, p *model.ExtractedProduct, err error) crawler.Item {
	return crawler.Item{Link: crawler.Link{Name: name}, URL: "https://usgstore.com.au/products/" + name, Product: p, Err: err}
}

func newRunner(c Crawler, repo repository.ProductRepository) (*Runner, *events.Recorder) {
	rec := &events.Recorder{}
	return &Runner{
		Crawler:    c,
		Reconciler: reconciler.New(repo, nil, logx.Discard()),
		Sink:       rec,
		Logger:     logx.Discard(),
	}, rec
}

func TestIneligibleGenderWritesNothing(t *testing.T) {
	repo := &countingRepo{MemoryRepository: repository.NewMemory()}
	r, rec := newRunner(stubCrawler{items: []crawler.Item{item("kids", extracted("K1", "Kids Footwear"), nil)}}, repo)

	rep, err := r.Run(context.Background(), "https://usgstore.com.au", "Adidas")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if repo.writes != 0 {
		t.Errorf("store writes: got %d, want 0", repo.writes)
	}
	if rep.Summary.Ineligible != 1 || rep.Summary.Failed != 0 {
		t.Errorf("summary: %+v", rep.Summary)
	}
	for _, e := range rec.Events {
		if e.Product != nil {
			t.Errorf("ineligible product must not be announced: %+v", e)
		}
	}
}

func TestRunMixedItems(t *testing.T) {
	repo := &countingRepo{MemoryRepository: repository.NewMemory()}
	noSKU := extracted("X", "Womens Footwear")
	noSKU.SKU = model.Missing()
	noSKU.Variants = nil

	items := []crawler.Item{
		item("samba", extracted("B1", "Mens Footwear"), nil),
		item("gone", nil, errx.Newf(errx.KindFetch, "fetch", "status 404")),
		item("broken", nil, errx.Newf(errx.KindParse, "scrape", "no product extracted")),
		item("gazelle", extracted("B2", " womens footwear "), nil),
		item("mystery", noSKU, nil),
	}
	r, rec := newRunner(stubCrawler{items: items}, repo)
	runs := &stubRuns{}
	r.Runs = runs

	rep, err := r.Run(context.Background(), "https://usgstore.com.au", "adidas")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := model.RunSummary{Brand: "Adidas", SourceURL: "https://usgstore.com.au", Seen: 5, Inserted: 2, Failed: 2, Skipped: 1}
	got := rep.Summary
	got.StartedAt, got.FinishedAt = want.StartedAt, want.FinishedAt
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("summary (-want +got):\n%s", diff)
	}
	if len(runs.saved) != 1 {
		t.Errorf("run ledger: got %d saves, want 1", len(runs.saved))
	}

	var messages []string
	for _, e := range rec.Events {
		messages = append(messages, e.Message)
	}
	wantMessages := []string{
		"Starting to scrape adidas products...",
		"Scraped and saved product: Samba B1",
		"Failed to fetch product detail page for: gone",
		"Failed to scrape product: broken",
		"Scraped and saved product: Samba B2",
		"Failed to save product: Samba X",
		"All products have been processed.",
	}
	if diff := cmp.Diff(wantMessages, messages); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
	if rec.Events[1].Product == nil || rec.Events[1].Product.Thumbnail != "https://cdn.example.com/B1.jpg" {
		t.Errorf("saved event should carry a summary: %+v", rec.Events[1].Product)
	}
}

func TestRerunIsUnchangedAndNotRepublished(t *testing.T) {
	repo := &countingRepo{MemoryRepository: repository.NewMemory()}
	c := stubCrawler{items: []crawler.Item{item("samba", extracted("B1", "Mens Footwear"), nil)}}
	r, _ := newRunner(c, repo)
	pub := &stubPublisher{}
	r.Publisher = pub

	first, _ := r.Run(context.Background(), "https://usgstore.com.au", "Adidas")
	second, _ := r.Run(context.Background(), "https://usgstore.com.au", "Adidas")

	if first.Summary.Inserted != 1 || first.Summary.Published != 1 {
		t.Errorf("first run: %+v", first.Summary)
	}
	if second.Summary.Unchanged != 1 || second.Summary.Published != 0 {
		t.Errorf("second run: %+v", second.Summary)
	}
	if repo.writes != 1 {
		t.Errorf("store writes: got %d, want 1", repo.writes)
	}
	if diff := cmp.Diff([]string{"B1"}, pub.published); diff != "" {
		t.Errorf("published (-want +got):\n%s", diff)
	}
}

func TestPublishFailureIsRecorded(t *testing.T) {
	repo := repository.NewMemory()
	r, rec := newRunner(stubCrawler{items: []crawler.Item{item("samba", extracted("B1", "Mens Footwear"), nil)}}, repo)
	r.Publisher = &stubPublisher{err: errx.Newf(errx.KindRemoteAPI, "POST /products.json", "status 422")}

	rep, err := r.Run(context.Background(), "https://usgstore.com.au", "Adidas")
	if err != nil {
		t.Fatal(err)
	}
	res := rep.Results[0]
	if res.Outcome != OutcomeInserted || !errx.Is(res.Publish.Err, errx.KindRemoteAPI) {
		t.Errorf("result: %+v", res)
	}
	if rep.Summary.Published != 0 {
		t.Errorf("published: got %d, want 0", rep.Summary.Published)
	}
	if rec.Events[2].Message != "Failed to publish product: Samba B1" {
		t.Errorf("event: %q", rec.Events[2].Message)
	}
}

func TestCollectionFailureEndsRun(t *testing.T) {
	fetchErr := errx.New(errx.KindFetch, "fetch", errors.New("503"))
	r, _ := newRunner(stubCrawler{err: fetchErr}, repository.NewMemory())

	rep, err := r.Run(context.Background(), "https://usgstore.com.au", "Nike")
	if rep != nil || !errors.Is(err, fetchErr) {
		t.Errorf("got %v, %v", rep, err)
	}
}

func TestCancelledRunReturnsPartialReport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, rec := newRunner(stubCrawler{}, repository.NewMemory())

	rep, err := r.Run(ctx, "https://usgstore.com.au", "Jordan")
	if !errors.Is(err, context.Canceled) || rep == nil {
		t.Fatalf("got %v, %v", rep, err)
	}
	if last := rec.Events[len(rec.Events)-1].Message; last != "Scraping was interrupted." {
		t.Errorf("last event: %q", last)
	}
}

// interruptingReconciler cancels the run while an item is being saved.
type interruptingReconciler struct {
	cancel context.CancelFunc
	next   Reconciler
}

func (r interruptingReconciler) Reconcile(ctx context.Context, p model.CanonicalProduct) (reconciler.Outcome, error) {
	r.cancel()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return r.next.Reconcile(ctx, p)
}

func TestInterruptDuringSaveFinishesItem(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := repository.NewMemory()
	r, rec := newRunner(stubCrawler{items: []crawler.Item{item("samba", extracted("B1", "Mens Footwear"), nil)}}, repo)
	r.Reconciler = interruptingReconciler{cancel: cancel, next: r.Reconciler}
	pub := &stubPublisher{}
	r.Publisher = pub

	rep, err := r.Run(ctx, "https://usgstore.com.au", "Adidas")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run: %v", err)
	}
	if rep.Summary.Inserted != 1 || rep.Summary.Failed != 0 || rep.Summary.Published != 1 {
		t.Errorf("summary: %+v", rep.Summary)
	}
	if _, err := repo.FindBySKU(context.Background(), model.Adidas, "B1"); err != nil {
		t.Errorf("stored: %v", err)
	}
	if last := rec.Events[len(rec.Events)-1].Message; last != "Scraping was interrupted." {
		t.Errorf("last event: %q", last)
	}
}

func TestInterruptDuringCreateStillSetsInventory(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var inventoryCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/locations.json":
			w.Write([]byte(`{"locations":[{"id":11,"name":"Warehouse"}]}`))
		case r.Method == http.MethodGet && r.URL.Path == "/products.json":
			w.Write([]byte(`{"products":[]}`))
		case r.Method == http.MethodPost && r.URL.Path == "/products.json":
			cancel()
			w.Write([]byte(`{"product":{"id":7,"title":"Samba B1","variants":[` +
				`{"id":1,"option1":"US 9","sku":"B1-9","inventory_item_id":900},` +
				`{"id":2,"option1":"US 10","sku":"B1-10","inventory_item_id":901}]}}`))
		case r.URL.Path == "/inventory_levels/set.json":
			inventoryCalls.Add(1)
			w.Write([]byte(`{}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := catalog.NewClient(srv.URL, "shpat_test", logx.Discard())
	pub, err := publisher.New(context.Background(), client, publisher.Options{InventoryRetries: 1}, logx.Discard())
	if err != nil {
		t.Fatal(err)
	}

	p := extracted("B1", "Mens Footwear")
	p.Variants = append(p.Variants, model.Variant{Size: "US 10", SKU: "B1-10", Quantity: 4})
	r, _ := newRunner(stubCrawler{items: []crawler.Item{item("samba", p, nil)}}, repository.NewMemory())
	r.Publisher = pub

	rep, err := r.Run(ctx, "https://usgstore.com.au", "Adidas")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run: %v", err)
	}
	res := rep.Results[0].Publish
	if res == nil || res.Err != nil || res.InventoryErr != nil || res.Action != publisher.ActionCreated {
		t.Fatalf("publish result: %+v", res)
	}
	if got := inventoryCalls.Load(); got != 2 {
		t.Errorf("inventory calls: got %d, want 2", got)
	}
	if rep.Summary.Published != 1 {
		t.Errorf("published: got %d, want 1", rep.Summary.Published)
	}
}
