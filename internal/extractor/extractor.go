package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"sneakersync/internal/errx"
	"sneakersync/internal/fetcher"
	"sneakersync/internal/model"
)

const (
	material = "Leather"
	ageGroup = "Adult"

	detailsSelector = "div.product-details-tabs-description-flex-col"
	sliderSelector  = "div.product-image-slider"
	priceSelector   = `meta[property="og:price:amount"]`

	sourceBrandToken = "USG"
	targetBrandToken = "GOOD LOOKS"
)

var (
	optionSelectorsRe = regexp.MustCompile(`new Shopify\.OptionSelectors`)

	sizeRe     = regexp.MustCompile(`"Size":"(.*?)"`)
	skuRe      = regexp.MustCompile(`"sku":"(.*?)"`)
	barcodeRe  = regexp.MustCompile(`"barcode":"(.*?)"`)
	weightRe   = regexp.MustCompile(`"weight":(\d+)`)
	quantityRe = regexp.MustCompile(`"inventory_quantity":(\d+)`)
	idRe       = regexp.MustCompile(`"id":(\d+)`)
	genderRe   = regexp.MustCompile(`"type":"(.*?)"`)

	productLiteralRe = regexp.MustCompile(`product:\s*(\{.*\})`)
)

// Extractor turns product pages into ExtractedProducts.
type Extractor struct {
	fetcher fetcher.Fetcher
	logger  zerolog.Logger
}

func New(f fetcher.Fetcher, logger zerolog.Logger) *Extractor {
	return &Extractor{fetcher: f, logger: logger.With().Str("component", "extractor").Logger()}
}

// Scrape fetches url and parses it. A fetch failure yields a nil product and
// a fetch error; the caller decides to skip the item.
func (e *Extractor) Scrape(ctx context.Context, url, brand string) (*model.ExtractedProduct, error) {
	page, err := e.fetcher.Fetch(ctx, url)
	if err != nil {
		e.logger.Error().Err(err).Str("url", url).Msg("product page fetch failed")
		return nil, err
	}
	return e.Parse(url, page.Body, brand)
}

// Parse extracts a product from a page body. Missing page structure degrades
// individual fields; only an unreadable document returns an error.
func (e *Extractor) Parse(url string, body []byte, brand string) (*model.ExtractedProduct, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, errx.New(errx.KindParse, "parse "+url, err)
	}
	log := e.logger.With().Str("url", url).Logger()

	p := &model.ExtractedProduct{
		URL:      url,
		Title:    firstText(doc, "h3"),
		Brand:    model.Found(brand),
		Color:    firstText(doc, "h4"),
		Material: model.Found(material),
		AgeGroup: model.Found(ageGroup),
	}
	if !p.Title.Ok() {
		log.Debug().Msg("title heading not found")
	}

	if content, ok := doc.Find(priceSelector).First().Attr("content"); ok {
		p.Price = model.Found(content)
	} else {
		log.Debug().Msg("price meta tag not found")
	}

	if script, ok := optionSelectorsScript(doc); ok {
		e.applyScript(p, script, log)
	} else {
		log.Debug().Msg("no option selectors script found")
	}

	p = applyDetail(p, doc, log)
	p.Images = collectImages(doc)

	log.Debug().Str("title", p.Title.String()).Int("variants", len(p.Variants)).
		Int("images", len(p.Images)).Msg("product parsed")
	return p, nil
}

func firstText(doc *goquery.Document, selector string) model.Value {
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return model.Missing()
	}
	return model.Found(strippedText(sel))
}

func optionSelectorsScript(doc *goquery.Document) (string, bool) {
	var script string
	var found bool
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if optionSelectorsRe.MatchString(text) {
			script, found = text, true
			return false
		}
		return true
	})
	return script, found
}

func (e *Extractor) applyScript(p *model.ExtractedProduct, script string, log zerolog.Logger) {
	p.Size = match(sizeRe, script)
	p.SKU = match(skuRe, script)
	p.Barcode = match(barcodeRe, script)
	p.Weight = match(weightRe, script)
	p.Quantity = match(quantityRe, script)
	p.ID = match(idRe, script)
	p.Gender = match(genderRe, script)

	m := productLiteralRe.FindStringSubmatch(script)
	if m == nil {
		return
	}
	var literal scriptProduct
	if err := json.Unmarshal([]byte(m[1]), &literal); err != nil {
		log.Warn().Err(errx.New(errx.KindParse, "decode product literal", err)).
			Msg("product literal unreadable, keeping pattern matches")
		return
	}

	p.ID = literal.ID.value()
	p.Variants = make([]model.Variant, 0, len(literal.Variants))
	for _, v := range literal.Variants {
		p.Variants = append(p.Variants, v.toModel())
	}
}

func match(re *regexp.Regexp, s string) model.Value {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return model.Missing()
	}
	return model.Found(m[1])
}

// applyDetail reads the bullet list. A page without the details block or its
// list loses every field read so far and keeps only a placeholder detail.
func applyDetail(p *model.ExtractedProduct, doc *goquery.Document, log zerolog.Logger) *model.ExtractedProduct {
	div := doc.Find(detailsSelector).First()
	if div.Length() == 0 {
		log.Warn().Msg("no product details found")
		return &model.ExtractedProduct{URL: p.URL, Detail: model.Found(model.DetailsNotFound)}
	}
	ul := div.Find("ul").First()
	if ul.Length() == 0 {
		log.Warn().Msg("no list found in product details")
		return &model.ExtractedProduct{URL: p.URL, Detail: model.Found(model.NoListFound)}
	}

	var items []string
	ul.Find("li").Each(func(_ int, li *goquery.Selection) {
		items = append(items, strippedText(li))
	})
	detail := strings.Join(items, "\n")
	p.Detail = model.Found(strings.ReplaceAll(detail, sourceBrandToken, targetBrandToken))
	return p
}

func collectImages(doc *goquery.Document) []string {
	slider := doc.Find(sliderSelector).First()
	if slider.Length() == 0 {
		return nil
	}
	var images []string
	slider.Find("img").Each(func(_ int, img *goquery.Selection) {
		src, ok := img.Attr("src")
		if !ok {
			return
		}
		images = append(images, NormalizeImageURL(src))
	})
	return images
}

// NormalizeImageURL turns protocol-relative URLs into https URLs.
func NormalizeImageURL(src string) string {
	if strings.HasPrefix(src, "//") {
		return "https:" + src
	}
	return src
}
