package sourceclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"bazario/pkg/models"
)

func testDataSource(baseURL string) *models.DataSource {
	return &models.DataSource{
		Name:                 "Test Source",
		Slug:                 "test-source",
		BaseURL:              baseURL,
		CategoryListingURL:   "/cats",
		ProductByCategoryURL: "/cats/{category_id}/products",
		AuthType:             models.AuthTypeNone,
	}
}

func TestBuildURL(t *testing.T) {
	ds := testDataSource("https://api.example.com/")
	ds.CategorySearchURL = "/cats/search?name={category_name}"

	tests := []struct {
		name     string
		kind     RequestKind
		params   Params
		expected string
		wantErr  bool
	}{
		{"category listing", KindCategoryListing, Params{}, "https://api.example.com/cats", false},
		{"page size appended", KindCategoryListing, Params{PageSize: 50}, "https://api.example.com/cats?limit=50", false},
		{"category id substituted", KindProductByCategory, Params{CategoryID: "42"}, "https://api.example.com/cats/42/products", false},
		{"category name substituted", KindCategorySearch, Params{CategoryName: "Phones"}, "https://api.example.com/cats/search?name=Phones", false},
		{"missing template", KindProductListing, Params{}, "", true},
	}

	for _, test := range tests {
		got, err := BuildURL(ds, test.kind, test.params)
		if test.wantErr {
			if err == nil {
				t.Errorf("%s: expected error, got %q", test.name, got)
				continue
			}
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Errorf("%s: expected ConfigurationError, got %v", test.name, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error: %v", test.name, err)
			continue
		}
		if got != test.expected {
			t.Errorf("%s: got %q, expected %q", test.name, got, test.expected)
		}
	}
}

func TestAuthHeaders(t *testing.T) {
	tests := []struct {
		name        string
		authType    models.AuthType
		credentials models.CredentialMap
		expected    map[string]string
		wantErr     bool
	}{
		{"none", models.AuthTypeNone, nil, nil, false},
		{"api key", models.AuthTypeAPIKey, models.CredentialMap{"api_key": "k123"}, map[string]string{"X-API-Key": "k123"}, false},
		{"bearer token", models.AuthTypeBearerToken, models.CredentialMap{"bearer_token": "tok123"}, map[string]string{"Authorization": "Bearer tok123"}, false},
		{"missing api key", models.AuthTypeAPIKey, nil, nil, true},
		{"missing bearer token", models.AuthTypeBearerToken, models.CredentialMap{"api_key": "wrong"}, nil, true},
	}

	for _, test := range tests {
		ds := testDataSource("https://api.example.com")
		ds.AuthType = test.authType
		ds.AuthCredentials = test.credentials

		headers, err := AuthHeaders(ds)
		if test.wantErr {
			if err == nil {
				t.Errorf("%s: expected error", test.name)
				continue
			}
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Errorf("%s: expected ConfigurationError, got %v", test.name, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error: %v", test.name, err)
			continue
		}
		if len(headers) != len(test.expected) {
			t.Errorf("%s: got %d headers, expected %d", test.name, len(headers), len(test.expected))
		}
		for k, v := range test.expected {
			if headers[k] != v {
				t.Errorf("%s: header %s = %q, expected %q", test.name, k, headers[k], v)
			}
		}
	}
}

func TestFetchCategoriesSendsAuthHeader(t *testing.T) {
	var gotAuth, gotAPIKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAPIKey = r.Header.Get("X-API-Key")
		w.Write([]byte(`{"categories":[{"id":1,"name":"Phones"}]}`))
	}))
	defer server.Close()

	ds := testDataSource(server.URL)
	ds.AuthType = models.AuthTypeBearerToken
	ds.AuthCredentials = models.CredentialMap{"bearer_token": "tok123"}

	client := NewClient()
	categories, err := client.FetchCategories(context.Background(), ds, FetchOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Bearer tok123" {
		t.Errorf("Authorization header = %q, expected %q", gotAuth, "Bearer tok123")
	}
	if gotAPIKey != "" {
		t.Errorf("X-API-Key should not be set, got %q", gotAPIKey)
	}
	if len(categories) != 1 || categories[0].Name != "Phones" {
		t.Errorf("unexpected categories: %+v", categories)
	}
}

func TestFetchCategoriesHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient()
	_, err := client.FetchCategories(context.Background(), testDataSource(server.URL), FetchOptions{})
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestParseCategoriesLenient(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		count int
	}{
		{"normal payload", `{"categories":[{"id":1,"name":"A"},{"id":2,"name":"B"}]}`, 2},
		{"missing key", `{"items":[{"id":1}]}`, 0},
		{"malformed body", `not json`, 0},
		{"empty array", `{"categories":[]}`, 0},
	}

	for _, test := range tests {
		categories, err := ParseCategories([]byte(test.body), false)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", test.name, err)
			continue
		}
		if len(categories) != test.count {
			t.Errorf("%s: got %d categories, expected %d", test.name, len(categories), test.count)
		}
	}
}

func TestParseCategoriesStrict(t *testing.T) {
	if _, err := ParseCategories([]byte(`{"items":[]}`), true); err == nil {
		t.Error("strict mode should fail on missing key")
	}
	if _, err := ParseCategories([]byte(`not json`), true); err == nil {
		t.Error("strict mode should fail on malformed body")
	}
	categories, err := ParseCategories([]byte(`{"categories":[{"id":9,"name":"Ok"}]}`), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(categories) != 1 || categories[0].ExternalID() != "9" {
		t.Errorf("unexpected categories: %+v", categories)
	}
}

func TestParseProducts(t *testing.T) {
	body := `{"products":[{"id":"p-1","name":"Widget","price":19.90,"currency":"USD","images":["a.jpg"],"stock":3}]}`
	products, err := ParseProducts([]byte(body), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("got %d products, expected 1", len(products))
	}
	p := products[0]
	if p.ExternalID() != "p-1" || p.Name != "Widget" || p.Price.String() != "19.90" || *p.Stock != 3 {
		t.Errorf("unexpected product: %+v", p)
	}
}
