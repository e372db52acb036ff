package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestRequestIDEchoesIncomingHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen string
	handler := RequestID()(func(c echo.Context) error {
		seen = RequestIDFromContext(c.Request().Context())
		return nil
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}

	if seen != "req-123" {
		t.Errorf("context request id = %q, expected incoming header echoed", seen)
	}
	if got := rec.Header().Get("X-Request-ID"); got != "req-123" {
		t.Errorf("response header = %q, expected %q", got, "req-123")
	}
}

func TestRequestIDGeneratesWhenMissing(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen string
	handler := RequestID()(func(c echo.Context) error {
		seen = RequestIDFromContext(c.Request().Context())
		return nil
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}

	if seen == "" {
		t.Error("expected a generated request id on the context")
	}
	if rec.Header().Get("X-Request-ID") != seen {
		t.Errorf("response header %q does not match context id %q", rec.Header().Get("X-Request-ID"), seen)
	}
}

func TestRequestIDFromContextOutsideRequest(t *testing.T) {
	if id := RequestIDFromContext(context.Background()); id != "" {
		t.Errorf("bare context returned %q, expected empty", id)
	}
}
