// Package catalog reads categories, series and products from the shop's
// catalog API. Results are never nil: a failed call returns an empty list
// together with the error so pages can render "no options" and log.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/gofiber/fiber/v2/log"

	"hydrakit/internal/model"
)

var ErrInvalidID = errors.New("invalid catalog id")

var idPattern = regexp2.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9_-]){0,63}$`, regexp2.None)

// ValidID reports whether id is safe to place in a catalog URL path.
func ValidID(id string) bool {
	ok, err := idPattern.MatchString(id)
	return err == nil && ok
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Series struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	CategoryID string `json:"categoryId"`
}

type Product struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	SKU        string            `json:"sku"`
	Price      float64           `json:"price"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Stock      *int              `json:"stock,omitempty"`
}

type SearchQuery struct {
	Query      string `json:"query"`
	CategoryID string `json:"categoryId,omitempty"`
	SeriesID   string `json:"seriesId,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient targets baseURL. A nil hc gets a 10s timeout.
func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	items, err := c.fetch(ctx, http.MethodGet, "/api/categories", nil)
	out := make([]Category, 0, len(items))
	for _, it := range items {
		out = append(out, Category{ID: it.id(), Name: it.name(), Slug: it.slug()})
	}
	return out, err
}

func (c *Client) Series(ctx context.Context, categoryID string) ([]Series, error) {
	if !ValidID(categoryID) {
		return make([]Series, 0), fmt.Errorf("category %q: %w", categoryID, ErrInvalidID)
	}
	items, err := c.fetch(ctx, http.MethodGet, "/api/categories/"+url.PathEscape(categoryID)+"/series", nil)
	out := make([]Series, 0, len(items))
	for _, it := range items {
		s := Series{ID: it.id(), Name: it.name(), Slug: it.slug(), CategoryID: it.CategoryID}
		if s.CategoryID == "" {
			s.CategoryID = categoryID
		}
		out = append(out, s)
	}
	return out, err
}

func (c *Client) Products(ctx context.Context, seriesID string) ([]Product, error) {
	if !ValidID(seriesID) {
		return make([]Product, 0), fmt.Errorf("series %q: %w", seriesID, ErrInvalidID)
	}
	items, err := c.fetch(ctx, http.MethodGet, "/api/series/"+url.PathEscape(seriesID)+"/products", nil)
	return products(items), err
}

func (c *Client) Search(ctx context.Context, q SearchQuery) ([]Product, error) {
	body, err := json.Marshal(q)
	if err != nil {
		return make([]Product, 0), err
	}
	items, err := c.fetch(ctx, http.MethodPost, "/api/products/search", body)
	return products(items), err
}

func products(items []rawItem) []Product {
	out := make([]Product, 0, len(items))
	for _, it := range items {
		out = append(out, Product{
			ID:         it.id(),
			Name:       it.name(),
			SKU:        it.sku(),
			Price:      positive(it.Price.Float()),
			Attributes: it.attributes(),
			Stock:      it.stock(),
		})
	}
	return out
}

func positive(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// fetch performs the request and decodes the item list, dropping entries
// without an id.
func (c *Client) fetch(ctx context.Context, method, path string, body []byte) ([]rawItem, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog %s %s: status %d", method, path, resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("catalog %s %s: %w", method, path, err)
	}
	items, err := decodeList(raw)
	if err != nil {
		return nil, fmt.Errorf("catalog %s %s: decode: %w", method, path, err)
	}
	kept := items[:0]
	for _, it := range items {
		if it.id() != "" {
			kept = append(kept, it)
		}
	}
	return kept, nil
}

// decodeList accepts a bare array or an object wrapping it in data, items,
// results or products. Entries that do not decode are dropped one by one.
func decodeList(b []byte) ([]rawItem, error) {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var entries []json.RawMessage
		if err := json.Unmarshal(b, &entries); err != nil {
			return nil, err
		}
		items := make([]rawItem, 0, len(entries))
		for i, e := range entries {
			var it rawItem
			if err := json.Unmarshal(e, &it); err != nil {
				log.Debugf("catalog: skipping entry %d: %v", i, err)
				continue
			}
			items = append(items, it)
		}
		return items, nil
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, err
	}
	for _, k := range []string{"data", "items", "results", "products"} {
		if v, ok := env[k]; ok {
			return decodeList(v)
		}
	}
	return nil, nil
}

type rawItem struct {
	ID         json.RawMessage `json:"id"`
	Name       string          `json:"name"`
	Title      string          `json:"title"`
	SKU        string          `json:"sku"`
	Slug       string          `json:"slug"`
	CategoryID string          `json:"categoryId"`
	Price      model.Price     `json:"price"`
	Attributes map[string]any  `json:"attributes"`
	Stock      json.RawMessage `json:"stock"`
}

// id accepts string and numeric ids.
func (r rawItem) id() string {
	s := strings.TrimSpace(string(r.ID))
	if s == "" || s == "null" {
		return ""
	}
	if s[0] == '"' {
		var v string
		if json.Unmarshal(r.ID, &v) != nil {
			return ""
		}
		return strings.TrimSpace(v)
	}
	return s
}

func (r rawItem) name() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Title
}

func (r rawItem) sku() string {
	if r.SKU != "" {
		return r.SKU
	}
	return r.Slug
}

func (r rawItem) slug() string {
	if r.Slug != "" {
		return r.Slug
	}
	return r.SKU
}

func (r rawItem) attributes() map[string]string {
	if len(r.Attributes) == 0 {
		return nil
	}
	out := make(map[string]string, len(r.Attributes))
	for k, v := range r.Attributes {
		out[k] = fmt.Sprint(v)
	}
	return out
}

func (r rawItem) stock() *int {
	s := strings.Trim(strings.TrimSpace(string(r.Stock)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	v := int(n)
	return &v
}
