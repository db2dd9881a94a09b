package crawler

import (
	"bytes"
	"context"
	"fmt"
	"iter"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"sneakersync/internal/errx"
	"sneakersync/internal/fetcher"
	"sneakersync/internal/model"
)

const linkSelector = "a.collection-item"

// Scraper extracts one product page.
type Scraper interface {
	Scrape(ctx context.Context, url, brand string) (*model.ExtractedProduct, error)
}

// Link is a product entry of a collection page.
type Link struct {
	Name string
	Href string
}

// Item is the outcome of visiting one product link. Exactly one of Product
// and Err is set.
type Item struct {
	Link    Link
	URL     string
	Product *model.ExtractedProduct
	Err     error
}

type Options struct {
	// Host resolves the relative product links, e.g. https://usgstore.com.au.
	Host string
	// Gap is the minimum delay between product page requests.
	Gap time.Duration
}

// Crawler walks a brand collection and scrapes each product in page order.
type Crawler struct {
	fetcher fetcher.Fetcher
	scraper Scraper
	host    *url.URL
	limiter *rate.Limiter
	logger  zerolog.Logger
}

func New(f fetcher.Fetcher, s Scraper, opts Options, logger zerolog.Logger) (*Crawler, error) {
	host, err := url.Parse(opts.Host)
	if err != nil || host.Scheme == "" || host.Host == "" {
		return nil, fmt.Errorf("crawler: invalid storefront host %q", opts.Host)
	}
	limit := rate.Inf
	if opts.Gap > 0 {
		limit = rate.Every(opts.Gap)
	}
	return &Crawler{
		fetcher: f,
		scraper: s,
		host:    host,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.With().Str("component", "crawler").Logger(),
	}, nil
}

// CollectionURL appends the brand collection path to baseURL. Unknown brands
// leave baseURL unchanged.
func CollectionURL(baseURL, brand string) string {
	b, err := model.ParseBrand(brand)
	if err != nil {
		return baseURL
	}
	return strings.TrimRight(baseURL, "/") + b.CollectionPath()
}

// Collection fetches the brand collection page and lists its product links in order.
func (c *Crawler) Collection(ctx context.Context, baseURL, brand string) ([]Link, error) {
	collectionURL := CollectionURL(baseURL, brand)

	page, err := c.fetcher.Fetch(ctx, collectionURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, errx.New(errx.KindParse, "parse collection "+collectionURL, err)
	}

	var links []Link
	doc.Find(linkSelector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		links = append(links, Link{Name: strings.TrimSpace(s.Text()), Href: href})
	})

	c.logger.Info().Str("url", collectionURL).Int("links", len(links)).Msg("collection page parsed")
	return links, nil
}

// Products crawls the collection and returns a single-use sequence of scraped
// items. Product pages are fetched lazily while the sequence is consumed.
// Cancelling ctx stops the sequence before the next item; an item already
// being scraped completes.
func (c *Crawler) Products(ctx context.Context, baseURL, brand string) (iter.Seq[Item], error) {
	links, err := c.Collection(ctx, baseURL, brand)
	if err != nil {
		return nil, err
	}

	return func(yield func(Item) bool) {
		for _, link := range links {
			if err := c.limiter.Wait(ctx); err != nil {
				c.logger.Info().Err(err).Msg("crawl interrupted")
				return
			}

			item := Item{Link: link, URL: c.resolve(link.Href)}
			item.Product, item.Err = c.scraper.Scrape(context.WithoutCancel(ctx), item.URL, brand)
			if item.Err == nil && item.Product == nil {
				item.Err = errx.Newf(errx.KindParse, "scrape "+item.URL, "no product extracted")
			}

			if !yield(item) {
				return
			}
		}
	}, nil
}

func (c *Crawler) resolve(href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return c.host.String() + href
	}
	return c.host.ResolveReference(ref).String()
}
