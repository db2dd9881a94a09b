package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"sneakersync/internal/errx"
)

const pageSize = 250

// Client talks to the storefront admin REST API, e.g.
// https://<shop>.myshopify.com/admin/api/2023-10.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  zerolog.Logger
}

func NewClient(baseURL, token string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logger.With().Str("component", "catalog").Logger(),
	}
}

func (c *Client) ListLocations(ctx context.Context) ([]Location, error) {
	var resp struct {
		Locations []Location `json:"locations"`
	}
	if err := c.do(ctx, http.MethodGet, "/locations.json", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Locations, nil
}

// ListProducts returns one page of products with ids above sinceID. An empty
// page ends the listing.
func (c *Client) ListProducts(ctx context.Context, sinceID int64) ([]Product, error) {
	q := url.Values{"limit": {strconv.Itoa(pageSize)}}
	if sinceID > 0 {
		q.Set("since_id", strconv.FormatInt(sinceID, 10))
	}
	var resp struct {
		Products []Product `json:"products"`
	}
	if err := c.do(ctx, http.MethodGet, "/products.json?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Products, nil
}

func (c *Client) CreateProduct(ctx context.Context, p Product) (*Product, error) {
	var resp productEnvelope
	if err := c.do(ctx, http.MethodPost, "/products.json", productEnvelope{Product: p}, &resp); err != nil {
		return nil, err
	}
	return &resp.Product, nil
}

func (c *Client) UpdateProduct(ctx context.Context, p Product) (*Product, error) {
	var resp productEnvelope
	path := fmt.Sprintf("/products/%d.json", p.ID)
	if err := c.do(ctx, http.MethodPut, path, productEnvelope{Product: p}, &resp); err != nil {
		return nil, err
	}
	return &resp.Product, nil
}

// SetInventoryLevel sets the available quantity of an inventory item at a location.
func (c *Client) SetInventoryLevel(ctx context.Context, locationID, inventoryItemID int64, available int) error {
	body := map[string]any{
		"location_id":       locationID,
		"inventory_item_id": inventoryItemID,
		"available":         available,
	}
	return c.do(ctx, http.MethodPost, "/inventory_levels/set.json", body, nil)
}

type productEnvelope struct {
	Product Product `json:"product"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	op := method + " " + strings.SplitN(path, "?", 2)[0]

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errx.New(errx.KindRemoteAPI, op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errx.New(errx.KindRemoteAPI, op, err)
	}
	req.Header.Set("X-Shopify-Access-Token", c.token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug().Str("method", method).Str("path", path).Msg("catalog request")

	resp, err := c.http.Do(req)
	if err != nil {
		return errx.New(errx.KindRemoteAPI, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return errx.Newf(errx.KindRemoteAPI, op, "status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errx.New(errx.KindRemoteAPI, op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
