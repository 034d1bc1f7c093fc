package runtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	brokerpkg "github.com/drblury/pulseflow/internal/runtime/broker"
	"github.com/drblury/pulseflow/internal/runtime/jsoncodec"
	statspkg "github.com/drblury/pulseflow/internal/runtime/stats"
)

func TestInfoHandlerReturnsJSON(t *testing.T) {
	pub, _ := newTestPublisher(t, nil)

	message := map[string]any{"itemId": "i-123", "region": "us-east-1"}
	routingKey := map[string]any{"region": "us-east-1", "itemId": "i-123"}
	if err := pub.Publish(context.Background(), "itemCreated", message, routingKey); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	rec := httptest.NewRecorder()
	pub.InfoHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected application/json content type, got %s", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no CORS header without configured origins, got %s", got)
	}

	var payload []statspkg.ExchangeInfo
	if err := jsoncodec.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unexpected error decoding response: %v", err)
	}
	if len(payload) != 1 || payload[0].Exchange != "exchange/svc-inventory/v1/item-created" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if payload[0].Published != 1 {
		t.Fatalf("expected 1 published message in stats, got %+v", payload[0])
	}
}

func TestInfoHandlerCORS(t *testing.T) {
	restore := BrokerFactory
	t.Cleanup(func() { BrokerFactory = restore })
	BrokerFactory = func(settings brokerpkg.Settings) (Broker, error) { return newFakeBroker(), nil }

	conf := newTestConfig()
	conf.StatsCORSAllowedOrigins = []string{"https://dashboard.example.com"}
	pub, err := Connect(context.Background(), conf, newTestLogger(), newItemRegistry(t).Snapshot(), PublisherDependencies{
		Validator: newItemValidator(t),
	})
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer pub.Close()

	tests := []struct {
		name   string
		origin string
		want   string
	}{
		{"allowed origin is echoed", "https://dashboard.example.com", "https://dashboard.example.com"},
		{"match is case insensitive", "https://DASHBOARD.example.com", "https://DASHBOARD.example.com"},
		{"unknown origin gets no header", "https://evil.example.com", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			pub.InfoHandler().ServeHTTP(rec, req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Fatalf("expected CORS origin %q, got %q", tt.want, got)
			}
		})
	}

	t.Run("preflight returns no content", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/stats", nil)
		req.Header.Set("Origin", "https://dashboard.example.com")
		rec := httptest.NewRecorder()
		pub.InfoHandler().ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204 for preflight, got %d", rec.Code)
		}
		if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "GET, OPTIONS" {
			t.Fatalf("expected allowed methods header, got %q", got)
		}
	})
}

func TestAllowedCORSOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    string
	}{
		{"wildcard wins", []string{"https://a.example.com", "*"}, "https://b.example.com", "*"},
		{"exact match", []string{"https://a.example.com"}, "https://a.example.com", "https://a.example.com"},
		{"no match", []string{"https://a.example.com"}, "https://b.example.com", ""},
		{"empty list", nil, "https://a.example.com", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := allowedCORSOrigin(tt.allowed, tt.origin); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
