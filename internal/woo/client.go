// Package woo is the client for the WooCommerce REST API (wc/v3).
package woo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/doctorsstudio/crmsync/internal/config"
	"github.com/doctorsstudio/crmsync/internal/util"
)

// Billing is the billing block shared by customers and orders.
type Billing struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address1  string `json:"address_1"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
}

// Customer is the subset of a Woo customer payload the sync engine maps.
type Customer struct {
	ID        int64   `json:"id"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     string  `json:"email"`
	Billing   Billing `json:"billing"`
}

// Product is the subset of a Woo product payload the sync engine maps.
type Product struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Price         string  `json:"price"`
	RegularPrice  string  `json:"regular_price"`
	SalePrice     string  `json:"sale_price"`
	Status        string  `json:"status"`
	StockStatus   string  `json:"stock_status"`
	StockQuantity *int    `json:"stock_quantity"`
	Categories    []struct {
		Name string `json:"name"`
	} `json:"categories"`
	Images []struct {
		Src string `json:"src"`
	} `json:"images"`
}

// Order is the subset of a Woo order payload the sync engine maps.
type Order struct {
	ID          int64   `json:"id"`
	Number      string  `json:"number"`
	Status      string  `json:"status"`
	Total       string  `json:"total"`
	DateCreated string  `json:"date_created"`
	CustomerID  int64   `json:"customer_id"`
	Billing     Billing `json:"billing"`
}

// Page is one page of a paginated listing, with totals taken from the
// X-WP-Total / X-WP-TotalPages response headers.
type Page struct {
	Items      []json.RawMessage
	Total      int
	TotalPages int
}

// Client talks to the WooCommerce store API using consumer key/secret auth.
type Client struct {
	http    *resty.Client
	baseURL string
}

// NewClient builds a client with a bounded request timeout.
func NewClient(cfg config.Woo) *Client {
	return &Client{
		http: resty.New().
			SetTimeout(30 * time.Second).
			SetBasicAuth(cfg.ConsumerKey, cfg.ConsumerSecret),
		baseURL: cfg.BaseURL,
	}
}

// SetBaseURL overrides the store URL. Used by tests.
func (c *Client) SetBaseURL(u string) { c.baseURL = u }

// GetCustomers fetches one page of customers, all roles included so store
// members show up alongside plain customers.
func (c *Client) GetCustomers(ctx context.Context, page, perPage int, modifiedAfter *time.Time) (*Page, error) {
	params := map[string]string{"role": "all"}
	return c.listPage(ctx, "customers", page, perPage, modifiedAfter, params)
}

// GetProducts fetches one page of published products.
func (c *Client) GetProducts(ctx context.Context, page, perPage int, modifiedAfter *time.Time) (*Page, error) {
	params := map[string]string{"status": "publish"}
	return c.listPage(ctx, "products", page, perPage, modifiedAfter, params)
}

// GetOrders fetches one page of orders.
func (c *Client) GetOrders(ctx context.Context, page, perPage int, modifiedAfter *time.Time) (*Page, error) {
	return c.listPage(ctx, "orders", page, perPage, modifiedAfter, nil)
}

func (c *Client) listPage(ctx context.Context, resource string, page, perPage int, modifiedAfter *time.Time, extra map[string]string) (*Page, error) {
	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("page", strconv.Itoa(page)).
		SetQueryParam("per_page", strconv.Itoa(perPage))
	for k, v := range extra {
		req.SetQueryParam(k, v)
	}
	if modifiedAfter != nil {
		req.SetQueryParam("modified_after", modifiedAfter.Format(time.RFC3339))
	}

	resp, err := req.Get(c.baseURL + "/wp-json/wc/v3/" + resource)
	if err != nil {
		return nil, fmt.Errorf("get %s page %d: %w", resource, page, err)
	}
	if resp.StatusCode() == http.StatusTooManyRequests {
		return nil, &util.RateLimitError{
			Op:         fmt.Sprintf("get %s page %d", resource, page),
			RetryAfter: util.RetryAfterDelay(resp.Header()),
		}
	}
	if resp.IsError() {
		return nil, fmt.Errorf("get %s page %d: status %d: %s", resource, page, resp.StatusCode(), resp.String())
	}

	var items []json.RawMessage
	if err := json.Unmarshal(resp.Body(), &items); err != nil {
		return nil, fmt.Errorf("get %s page %d: invalid response body: %w", resource, page, err)
	}

	total, _ := strconv.Atoi(resp.Header().Get("X-WP-Total"))
	totalPages, _ := strconv.Atoi(resp.Header().Get("X-WP-TotalPages"))

	return &Page{Items: items, Total: total, TotalPages: totalPages}, nil
}
