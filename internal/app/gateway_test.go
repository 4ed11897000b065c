package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hl-chase-bot/internal/chase"
	"hl-chase-bot/internal/hl/exchange"
	"hl-chase-bot/internal/hl/rest"
)

const testPrivateKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

// venueStub answers /info by request type and /exchange with a fixed body.
type venueStub struct {
	info     map[string]string
	exchange string
}

func (v *venueStub) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/info":
			var req struct {
				Type string `json:"type"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode info request: %v", err)
			}
			body, ok := v.info[req.Type]
			if !ok {
				t.Errorf("unexpected info type %q", req.Type)
				http.Error(w, "unknown type", http.StatusBadRequest)
				return
			}
			w.Write([]byte(body))
		case "/exchange":
			w.Write([]byte(v.exchange))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	})
}

func testGateway(t *testing.T, stub *venueStub) *gateway {
	t.Helper()
	server := httptest.NewServer(stub.handler(t))
	t.Cleanup(server.Close)

	signer, err := exchange.NewSigner(testPrivateKey, false)
	if err != nil {
		t.Fatalf("NewSigner failed: %v", err)
	}
	exClient, err := exchange.NewClient(server.URL, 5*time.Second, signer, "")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return &gateway{
		rest: rest.New(server.URL, 5*time.Second, nil),
		ex:   exClient,
		user: signer.Address().Hex(),
	}
}

func TestGatewayAssetID(t *testing.T) {
	gw := testGateway(t, &venueStub{info: map[string]string{
		"meta": `{"universe":[{"name":"BTC"},{"name":"ETH"},{"name":"SOL"}]}`,
	}})
	id, err := gw.AssetID(context.Background(), "SOL")
	if err != nil {
		t.Fatalf("AssetID failed: %v", err)
	}
	if id != 2 {
		t.Fatalf("expected asset id 2, got %d", id)
	}
}

func TestGatewayAssetIDUnknownCoin(t *testing.T) {
	gw := testGateway(t, &venueStub{info: map[string]string{
		"meta": `{"universe":[{"name":"BTC"}]}`,
	}})
	_, err := gw.AssetID(context.Background(), "DOGE")
	if !errors.Is(err, chase.ErrAssetNotFound) {
		t.Fatalf("expected ErrAssetNotFound, got %v", err)
	}
}

func TestGatewayBook(t *testing.T) {
	gw := testGateway(t, &venueStub{info: map[string]string{
		"l2Book": `{"coin":"BTC","levels":[[{"px":"99999","sz":"1","n":2}],[{"px":"100000","sz":"0.5","n":1},{"px":"100001","sz":"2","n":3}]]}`,
	}})
	book, err := gw.Book(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("Book failed: %v", err)
	}
	asks := book.Side(1)
	if len(asks) != 2 || asks[0].Price != 100000 || asks[1].Price != 100001 {
		t.Fatalf("unexpected asks: %+v", asks)
	}
}

func TestGatewayOpenOrders(t *testing.T) {
	gw := testGateway(t, &venueStub{info: map[string]string{
		"openOrders": `[{"oid":55,"coin":"BTC","limitPx":"100000","sz":"0.0001","side":"A"}]`,
	}})
	orders, err := gw.OpenOrders(context.Background())
	if err != nil {
		t.Fatalf("OpenOrders failed: %v", err)
	}
	if len(orders) != 1 || orders[0].OrderID != 55 {
		t.Fatalf("unexpected orders: %+v", orders)
	}
}

func TestGatewayPlace(t *testing.T) {
	gw := testGateway(t, &venueStub{
		exchange: `{"status":"ok","response":{"type":"order","data":{"statuses":[{"resting":{"oid":321}}]}}}`,
	})
	oid, err := gw.Place(context.Background(), chase.OrderRequest{Asset: 0, IsBuy: false, Size: 0.0001, LimitPrice: 100000})
	if err != nil {
		t.Fatalf("Place failed: %v", err)
	}
	if oid != 321 {
		t.Fatalf("expected oid 321, got %d", oid)
	}
}

func TestGatewayPlaceRejected(t *testing.T) {
	gw := testGateway(t, &venueStub{
		exchange: `{"status":"ok","response":{"type":"order","data":{"statuses":[{"error":"Post only order would have immediately matched"}]}}}`,
	})
	_, err := gw.Place(context.Background(), chase.OrderRequest{Asset: 0, IsBuy: false, Size: 0.0001, LimitPrice: 100000})
	if !errors.Is(err, chase.ErrPlacementRejected) {
		t.Fatalf("expected ErrPlacementRejected, got %v", err)
	}
}

func TestGatewayModify(t *testing.T) {
	gw := testGateway(t, &venueStub{
		exchange: `{"status":"ok","response":{"type":"default"}}`,
	})
	err := gw.Modify(context.Background(), 321, chase.OrderRequest{Asset: 0, IsBuy: false, Size: 0.0001, LimitPrice: 100001})
	if err != nil {
		t.Fatalf("Modify failed: %v", err)
	}
}

func TestGatewayModifyRejected(t *testing.T) {
	gw := testGateway(t, &venueStub{
		exchange: `{"status":"err","response":"Order was never placed, already canceled, or filled."}`,
	})
	err := gw.Modify(context.Background(), 321, chase.OrderRequest{Asset: 0, IsBuy: false, Size: 0.0001, LimitPrice: 100001})
	if err == nil {
		t.Fatalf("expected error for rejected modify")
	}
}
