package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testConfig(endpoint string) Config {
	return Config{
		AppKey:      "key",
		AppSecret:   "secret",
		AccessToken: "token",
		Endpoint:    endpoint,
	}
}

func TestHTTPClient_Validate(t *testing.T) {
	t.Parallel()
	c := NewHTTPClient(Config{AppKey: "key"}, nil)
	if err := c.Validate(); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}

	c = NewHTTPClient(testConfig("http://localhost"), nil)
	if err := c.Validate(); err != nil {
		t.Fatalf("complete config must validate: %v", err)
	}
}

func TestHTTPClient_FetchOrders_InjectsCredentials(t *testing.T) {
	t.Parallel()
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"result": map[string]any{
				"orders": []map[string]any{{"order_sn": "SN-1", "status": 2}},
			},
		})
	}))
	defer srv.Close()

	c := NewHTTPClient(testConfig(srv.URL), nil)
	orders, err := c.FetchOrders(context.Background(), OrderFilter{ParentStatus: 2, Since: time.Now().AddDate(0, 0, -7)})
	if err != nil {
		t.Fatalf("FetchOrders: %v", err)
	}
	if len(orders) != 1 || orders[0].OrderSN != "SN-1" {
		t.Fatalf("unexpected orders: %+v", orders)
	}
	if got["app_key"] != "key" || got["access_token"] != "token" {
		t.Fatalf("credentials not injected: %+v", got)
	}
	if got["type"] != "order.list.get" {
		t.Fatalf("wrong request type: %v", got["type"])
	}
}

func TestHTTPClient_RejectedEnvelopeIsPermanent(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error_msg": "invalid token"})
	}))
	defer srv.Close()

	c := NewHTTPClient(testConfig(srv.URL), nil)
	err := c.PushStock(context.Background(), "100", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("rejected requests must not be retried, got %d calls", n)
	}
}

func TestHTTPClient_RetriesServerErrors(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "result": map[string]any{}})
	}))
	defer srv.Close()

	c := NewHTTPClient(testConfig(srv.URL), nil)
	if err := c.PushTracking(context.Background(), "dhl", nil); err != nil {
		t.Fatalf("expected retry to eventually succeed: %v", err)
	}
	if n := calls.Load(); n != 3 {
		t.Fatalf("expected 3 attempts, got %d", n)
	}
}

func TestHTTPClient_ClientErrorIsPermanent(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewHTTPClient(testConfig(srv.URL), nil)
	if _, err := c.FetchProducts(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("4xx must not be retried, got %d calls", n)
	}
}
