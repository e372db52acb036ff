package sourceclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bazario/pkg/models"
)

// RequestKind identifies which endpoint template of a data source to use
type RequestKind string

const (
	KindCategoryListing   RequestKind = "category_listing"
	KindCategorySearch    RequestKind = "category_search"
	KindProductListing    RequestKind = "product_listing"
	KindProductByCategory RequestKind = "product_by_category"
)

// ConfigurationError indicates a data source is missing the endpoint template
// or credential required for a request. It is raised before any network call.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "data source configuration error: " + e.Reason
}

// Params carries the values substituted into endpoint template placeholders
type Params struct {
	CategoryID   string
	CategoryName string
	PageSize     int
}

// FetchOptions controls a single fetch against a data source
type FetchOptions struct {
	CategoryID   string
	CategoryName string
	PageSize     int
	// Strict fails the fetch when the expected payload key is missing
	// instead of treating the response as an empty result set.
	Strict bool
}

// FlexString decodes a JSON string or number into a string. Remote catalog
// APIs are inconsistent about whether ids and prices are quoted.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }

// RemoteCategory is a category record as returned by a remote catalog API
type RemoteCategory struct {
	ID       FlexString       `json:"id"`
	Name     string           `json:"name"`
	ParentID FlexString       `json:"parent_id"`
	Children []RemoteCategory `json:"children"`
}

// ExternalID returns the remote record's natural key as a string
func (c RemoteCategory) ExternalID() string {
	return string(c.ID)
}

// RemoteProduct is a product record as returned by a remote catalog API
type RemoteProduct struct {
	ID           FlexString `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Price        FlexString `json:"price"`
	Currency     string     `json:"currency"`
	SKU          string     `json:"sku"`
	Images       []string   `json:"images"`
	Stock        *int       `json:"stock"`
	CategoryID   FlexString `json:"category_id"`
	CategoryName string     `json:"category_name"`
}

// ExternalID returns the remote record's natural key as a string
func (p RemoteProduct) ExternalID() string {
	return string(p.ID)
}

// templateFor returns the endpoint template for a request kind, or a
// ConfigurationError when the data source does not define it.
func templateFor(ds *models.DataSource, kind RequestKind) (string, error) {
	var tpl string
	switch kind {
	case KindCategoryListing:
		tpl = ds.CategoryListingURL
	case KindCategorySearch:
		tpl = ds.CategorySearchURL
	case KindProductListing:
		tpl = ds.ProductListingURL
	case KindProductByCategory:
		tpl = ds.ProductByCategoryURL
	default:
		return "", fmt.Errorf("unknown request kind %q", kind)
	}
	if tpl == "" {
		return "", &ConfigurationError{Reason: fmt.Sprintf("data source %s has no %s template", ds.Slug, kind)}
	}
	return tpl, nil
}

// BuildURL combines the data source base URL with the endpoint template for
// the given kind, substituting {category_id} and {category_name} placeholders.
func BuildURL(ds *models.DataSource, kind RequestKind, p Params) (string, error) {
	tpl, err := templateFor(ds, kind)
	if err != nil {
		return "", err
	}

	path := tpl
	path = strings.ReplaceAll(path, "{category_id}", url.PathEscape(p.CategoryID))
	path = strings.ReplaceAll(path, "{category_name}", url.PathEscape(p.CategoryName))

	full := strings.TrimRight(ds.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")

	u, err := url.Parse(full)
	if err != nil {
		return "", fmt.Errorf("invalid request URL %q: %w", full, err)
	}
	if p.PageSize > 0 {
		q := u.Query()
		q.Set("limit", strconv.Itoa(p.PageSize))
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// AuthHeaders derives the request headers for the data source's auth type.
// A missing credential is a configuration error, not a fetch error.
func AuthHeaders(ds *models.DataSource) (map[string]string, error) {
	switch ds.AuthType {
	case models.AuthTypeNone, "":
		return nil, nil
	case models.AuthTypeAPIKey:
		key := ds.AuthCredentials[models.CredentialAPIKey]
		if key == "" {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("data source %s is missing the api_key credential", ds.Slug)}
		}
		return map[string]string{"X-API-Key": key}, nil
	case models.AuthTypeBearerToken:
		token := ds.AuthCredentials[models.CredentialBearerToken]
		if token == "" {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("data source %s is missing the bearer_token credential", ds.Slug)}
		}
		return map[string]string{"Authorization": "Bearer " + token}, nil
	default:
		return nil, &ConfigurationError{Reason: fmt.Sprintf("data source %s has unknown auth type %q", ds.Slug, ds.AuthType)}
	}
}

// Validate checks that the data source can serve a request of the given kind
// without performing any network call.
func Validate(ds *models.DataSource, kind RequestKind) error {
	if _, err := templateFor(ds, kind); err != nil {
		return err
	}
	_, err := AuthHeaders(ds)
	return err
}

// Client performs HTTP fetches against configured data sources
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new data source client
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewClientWithTimeout creates a client with a custom timeout (for tests)
func NewClientWithTimeout(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// fetch performs one GET against the data source and returns the raw body
func (c *Client) fetch(ctx context.Context, ds *models.DataSource, kind RequestKind, p Params) ([]byte, error) {
	reqURL, err := BuildURL(ds, kind, p)
	if err != nil {
		return nil, err
	}
	headers, err := AuthHeaders(ds)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", ds.Slug, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", ds.Slug, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s returned HTTP %d for %s", ds.Slug, resp.StatusCode, reqURL)
	}
	return body, nil
}

// FetchCategories fetches the category listing of a data source
func (c *Client) FetchCategories(ctx context.Context, ds *models.DataSource, opts FetchOptions) ([]RemoteCategory, error) {
	body, err := c.fetch(ctx, ds, KindCategoryListing, Params{PageSize: opts.PageSize})
	if err != nil {
		return nil, err
	}
	return ParseCategories(body, opts.Strict)
}

// FetchProducts fetches the products of the remote category selected by opts
func (c *Client) FetchProducts(ctx context.Context, ds *models.DataSource, opts FetchOptions) ([]RemoteProduct, error) {
	body, err := c.fetch(ctx, ds, KindProductByCategory, Params{
		CategoryID:   opts.CategoryID,
		CategoryName: opts.CategoryName,
		PageSize:     opts.PageSize,
	})
	if err != nil {
		return nil, err
	}
	return ParseProducts(body, opts.Strict)
}

// ParseCategories extracts the categories array from a listing payload.
// In lenient mode a malformed body or missing key yields an empty result set.
func ParseCategories(body []byte, strict bool) ([]RemoteCategory, error) {
	var payload struct {
		Categories json.RawMessage `json:"categories"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		if strict {
			return nil, fmt.Errorf("malformed category payload: %w", err)
		}
		return nil, nil
	}
	if payload.Categories == nil {
		if strict {
			return nil, fmt.Errorf("category payload is missing the \"categories\" key")
		}
		return nil, nil
	}
	var categories []RemoteCategory
	if err := json.Unmarshal(payload.Categories, &categories); err != nil {
		if strict {
			return nil, fmt.Errorf("malformed \"categories\" array: %w", err)
		}
		return nil, nil
	}
	return categories, nil
}

// ParseProducts extracts the products array from a listing payload.
// In lenient mode a malformed body or missing key yields an empty result set.
func ParseProducts(body []byte, strict bool) ([]RemoteProduct, error) {
	var payload struct {
		Products json.RawMessage `json:"products"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		if strict {
			return nil, fmt.Errorf("malformed product payload: %w", err)
		}
		return nil, nil
	}
	if payload.Products == nil {
		if strict {
			return nil, fmt.Errorf("product payload is missing the \"products\" key")
		}
		return nil, nil
	}
	var products []RemoteProduct
	if err := json.Unmarshal(payload.Products, &products); err != nil {
		if strict {
			return nil, fmt.Errorf("malformed \"products\" array: %w", err)
		}
		return nil, nil
	}
	return products, nil
}
